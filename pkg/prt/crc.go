// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

// Nibble lookup tables for the CRC-16/CCITT variant used by the thermostats.
// Entry t is the high and low byte of t*0x1021 reduced modulo the polynomial.
var (
	lookupHi = [16]byte{
		0x00, 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70,
		0x81, 0x91, 0xa1, 0xb1, 0xc1, 0xd1, 0xe1, 0xf1,
	}
	lookupLo = [16]byte{
		0x00, 0x21, 0x42, 0x63, 0x84, 0xa5, 0xc6, 0xe7,
		0x08, 0x29, 0x4a, 0x6b, 0x8c, 0xad, 0xce, 0xef,
	}
)

// CRC16 is a running checksum accumulator. The zero value is not seeded;
// use NewCRC16.
type CRC16 struct {
	hi byte
	lo byte
}

// NewCRC16 returns an accumulator seeded with 0xFFFF
func NewCRC16() *CRC16 {
	return &CRC16{hi: 0xFF, lo: 0xFF}
}

// nibble folds four bits into the accumulator
func (c *CRC16) nibble(n byte) {
	t := (c.hi >> 4) ^ n
	c.hi = c.hi<<4 | c.lo>>4
	c.lo <<= 4
	c.hi ^= lookupHi[t]
	c.lo ^= lookupLo[t]
}

// Update processes one byte, high nibble first
func (c *CRC16) Update(b byte) {
	c.nibble(b >> 4)
	c.nibble(b & 0x0F)
}

// Write implements io.Writer so a CRC16 can sit behind io.MultiWriter.
func (c *CRC16) Write(p []byte) (int, error) {
	for _, b := range p {
		c.Update(b)
	}
	return len(p), nil
}

// Finish returns the trailer in wire order: low byte, then high byte.
func (c *CRC16) Finish() [2]byte {
	return [2]byte{c.lo, c.hi}
}

// Sum16 returns the accumulator as a single value (high byte first)
func (c *CRC16) Sum16() uint16 {
	return uint16(c.hi)<<8 | uint16(c.lo)
}

// Checksum computes the trailer for data
func Checksum(data []byte) [2]byte {
	c := NewCRC16()
	c.Write(data)
	return c.Finish()
}

// AppendChecksum returns data with its trailer appended
func AppendChecksum(data []byte) []byte {
	sum := Checksum(data)
	return append(data, sum[0], sum[1])
}
