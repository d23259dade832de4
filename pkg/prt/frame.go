// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import "fmt"

// Address identifies a thermostat on the bus
type Address uint8

// Valid reports whether the address is in the range a thermostat can use
func (a Address) Valid() bool {
	return a >= MinAddress && a <= MaxAddress
}

// ParseAddress converts an integer into an Address, rejecting values outside 1..32
func ParseAddress(n int) (Address, error) {
	if n < MinAddress || n > MaxAddress {
		return 0, fmt.Errorf("%w: %d (valid %d-%d)", ErrInvalidAddress, n, MinAddress, MaxAddress)
	}
	return Address(n), nil
}

// Function is the operation carried by a frame
type Function uint8

func (f Function) String() string {
	switch f {
	case FunctionRead:
		return "READ_ALL"
	case FunctionWrite:
		return "WRITE"
	}
	return fmt.Sprintf("FUNCTION_%d", uint8(f))
}

// Request is an encoded master-to-thermostat frame, checksum included.
//
// Layout: dest, length, source, function, startLo, startHi, countLo, countHi,
// payload..., crcLo, crcHi. The request length field is a single byte.
type Request []byte

// Destination returns the addressed thermostat
func (r Request) Destination() Address {
	return Address(r[0])
}

// Length returns the declared frame length
func (r Request) Length() int {
	return int(r[1])
}

// Source returns the master address
func (r Request) Source() uint8 {
	return r[2]
}

// Function returns the function code
func (r Request) Function() Function {
	return Function(r[3])
}

// Start returns the DCB offset the request addresses
func (r Request) Start() uint16 {
	return uint16(r[4]) | uint16(r[5])<<8
}

// Count returns the number of bytes requested or written
func (r Request) Count() uint16 {
	return uint16(r[6]) | uint16(r[7])<<8
}

// Payload returns the bytes to be written (empty for reads)
func (r Request) Payload() []byte {
	return r[8 : len(r)-trailerSize]
}

// Reply is a raw thermostat-to-master frame as read from the line.
//
// Layout: dest, lenLo, lenHi, source, function, then for reads startLo,
// startHi, countLo, countHi and the DCB bytes, then crcLo, crcHi.
type Reply []byte

// Destination returns the master address the reply was sent to
func (r Reply) Destination() uint8 {
	return r[0]
}

// DeclaredLength returns the little-endian length from the header
func (r Reply) DeclaredLength() int {
	return int(r[1]) | int(r[2])<<8
}

// Source returns the address of the thermostat that answered
func (r Reply) Source() Address {
	return Address(r[3])
}

// Function returns the function code of the reply
func (r Reply) Function() Function {
	return Function(r[4])
}

// Payload returns the DCB bytes of a read reply, without header or trailer
func (r Reply) Payload() []byte {
	if len(r) < minReadReply {
		return nil
	}
	return r[readHeaderSize : len(r)-trailerSize]
}

// BuildReadAll encodes the fixed request for a thermostat's entire DCB
func BuildReadAll(addr Address) Request {
	frame := []byte{
		byte(addr), requestOverhead, MasterAddress, byte(FunctionRead),
		0, 0, readAllCount & 0xFF, readAllCount >> 8,
	}
	return Request(AppendChecksum(frame))
}

// BuildWrite encodes a request writing payload at offset in the DCB. The
// payload must hold 1 to MaxWritePayload bytes.
func BuildWrite(addr Address, offset uint16, payload []byte) (Request, error) {
	if len(payload) == 0 || len(payload) > MaxWritePayload {
		return nil, fmt.Errorf("%w: write payload of %d bytes (valid 1-%d)", ErrOutOfRange, len(payload), MaxWritePayload)
	}
	count := uint16(len(payload))
	frame := make([]byte, 0, requestOverhead+len(payload))
	frame = append(frame,
		byte(addr), byte(requestOverhead+len(payload)), MasterAddress, byte(FunctionWrite),
		byte(offset), byte(offset>>8), byte(count), byte(count>>8),
	)
	frame = append(frame, payload...)
	return Request(AppendChecksum(frame)), nil
}
