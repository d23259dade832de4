// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// ============================================================
// Frame Builders
// ============================================================

// buildReadReply frames a DCB the way a thermostat answers a read-all
func buildReadReply(dest uint8, src Address, dcb []byte) []byte {
	n := minReadReply + len(dcb)
	frame := []byte{
		dest, byte(n), byte(n >> 8), byte(src), byte(FunctionRead),
		0, 0, byte(len(dcb)), byte(len(dcb) >> 8),
	}
	frame = append(frame, dcb...)
	return AppendChecksum(frame)
}

// buildWriteReply frames a write acknowledgement
func buildWriteReply(dest uint8, src Address) []byte {
	return AppendChecksum([]byte{dest, writeReplySize, 0, byte(src), byte(FunctionWrite)})
}

// sampleDCB returns a reply-sized DCB with recognizable contents
func sampleDCB() []byte {
	dcb := make([]byte, MaxReplyDCB)
	for i := range dcb {
		dcb[i] = byte(i)
	}
	return dcb
}

// ============================================================
// Fake Connection
// ============================================================

var errBrokenPipe = errors.New("broken pipe")

// fakeConn answers each written frame with whatever respond returns. Replies
// queue up like bytes on a real line; a nil reply leaves the line silent so
// the read hits its deadline.
type fakeConn struct {
	mu       sync.Mutex
	respond  func(req []byte) []byte
	pending  []byte
	chunk    int // bytes handed out per Read, 0 for all
	writes   [][]byte
	writeErr error
	closed   bool

	busy    bool
	overlap bool
	delay   time.Duration
}

func newFakeConn(respond func(req []byte) []byte) *fakeConn {
	return &fakeConn{respond: respond}
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, errBrokenPipe
	}
	if f.writeErr != nil {
		err := f.writeErr
		f.writeErr = nil
		return 0, err
	}
	if f.busy {
		f.overlap = true
	}
	f.busy = true

	req := append([]byte(nil), p...)
	f.writes = append(f.writes, req)
	if f.respond != nil {
		f.pending = append(f.pending, f.respond(req)...)
	}
	return len(p), nil
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, errBrokenPipe
	}
	if len(f.pending) == 0 {
		f.busy = false
		return 0, os.ErrDeadlineExceeded
	}
	if f.chunk > 0 && len(p) > f.chunk {
		p = p[:f.chunk]
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	if len(f.pending) == 0 {
		f.busy = false
	}
	return n, nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error {
	return nil
}

// queue puts bytes on the line ahead of the next reply
func (f *fakeConn) queue(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, b...)
}

func (f *fakeConn) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// resettingConn is a fakeConn that can flush its input, like a serial port
type resettingConn struct {
	*fakeConn
	resets int
}

func (r *resettingConn) ResetInputBuffer() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	r.pending = nil
	return nil
}

// ============================================================
// Fake Bus
// ============================================================

// fakeBus simulates thermostats sharing a line. Writes update the stored
// block so a following read returns the new value.
type fakeBus struct {
	mu    sync.Mutex
	stats map[Address][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{stats: make(map[Address][]byte)}
}

func (b *fakeBus) add(addr Address, dcb []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats[addr] = append([]byte(nil), dcb...)
}

func (b *fakeBus) get(addr Address) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.stats[addr]...)
}

func (b *fakeBus) respond(req []byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := Request(req)
	dcb, ok := b.stats[r.Destination()]
	if !ok {
		return nil
	}

	switch r.Function() {
	case FunctionRead:
		return buildReadReply(MasterAddress, r.Destination(), dcb)
	case FunctionWrite:
		copy(dcb[r.Start():], r.Payload())
		return buildWriteReply(MasterAddress, r.Destination())
	}
	return nil
}

// newTestTransport builds a transport over conn with no backoff
func newTestTransport(t *testing.T, conn Conn, opts ...Option) *Transport {
	t.Helper()
	opts = append([]Option{WithBackoff(0), WithReadTimeout(50 * time.Millisecond)}, opts...)
	tr, err := NewWithDialer(func() (Conn, error) { return conn, nil }, opts...)
	if err != nil {
		t.Fatalf("NewWithDialer failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}
