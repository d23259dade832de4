// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Status is the outcome of a transaction
type Status int

const (
	StatusOK Status = iota
	StatusHardFailure
)

func (s Status) String() string {
	if s == StatusOK {
		return "OK"
	}
	return "HARD_FAILURE"
}

// Result is returned by every transaction. A hard failure is not an error
// condition for the caller's process: the cached state should simply be kept.
type Result struct {
	Status Status

	// Payload holds the DCB bytes of a read. It is empty for writes and
	// for hard failures.
	Payload []byte

	// SoftErrors is the number of attempts that failed before the outcome
	// was decided. It equals the retry limit on a hard failure.
	SoftErrors int

	// Failures breaks the failed attempts down by kind
	Failures Tally

	// Err is the failure of the last attempt when Status is StatusHardFailure
	Err error
}

// OK reports whether the transaction succeeded
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Option configures a Transport
type Option func(*Transport)

// WithLogger sets the logger used for retries, reconnects and summaries
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithMaxRetries sets the number of attempts per transaction
func WithMaxRetries(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxRetries = n
		}
	}
}

// WithBackoff sets the pause after a failed attempt
func WithBackoff(d time.Duration) Option {
	return func(t *Transport) {
		if d >= 0 {
			t.backoff = d
		}
	}
}

// WithReadTimeout sets how long to wait for a reply
func WithReadTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.readTimeout = d
		}
	}
}

// WithSummaryEvery sets how many transactions pass between statistics
// summaries in the log. Zero disables the summary.
func WithSummaryEvery(n uint64) Option {
	return func(t *Transport) {
		t.summaryEvery = n
	}
}

// TraceFunc receives every frame written to or read from the line.
// sent is true for requests.
type TraceFunc func(sent bool, frame []byte)

// WithTrace installs a frame trace. The frame must not be retained.
func WithTrace(fn TraceFunc) Option {
	return func(t *Transport) {
		t.trace = fn
	}
}

// Transport owns the connection to one bus and runs every transaction on it.
// It is safe for concurrent use; transactions are serialized.
type Transport struct {
	mu     sync.Mutex // held for a whole transaction, retries included
	dial   Dialer
	conn   Conn
	closed bool

	maxRetries   int
	backoff      time.Duration
	readTimeout  time.Duration
	summaryEvery uint64
	logger       zerolog.Logger
	trace        TraceFunc

	stats        *Statistics
	transactions atomic.Uint64

	claimsMu sync.Mutex
	claims   map[Address]string
}

// New validates the endpoint and opens a transport on it
func New(ep Endpoint, opts ...Option) (*Transport, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}

	t, err := NewWithDialer(ep.Dialer(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ep, err)
	}
	t.logger = t.logger.With().Str("endpoint", ep.String()).Logger()
	return t, nil
}

// NewWithDialer opens a transport on connections produced by dial
func NewWithDialer(dial Dialer, opts ...Option) (*Transport, error) {
	if dial == nil {
		return nil, fmt.Errorf("%w: no dialer", ErrConfig)
	}

	t := &Transport{
		dial:         dial,
		maxRetries:   DefaultMaxRetries,
		backoff:      DefaultBackoff,
		readTimeout:  ReadTimeout,
		summaryEvery: DefaultSummaryEvery,
		logger:       zerolog.Nop(),
		stats:        NewStatistics(),
		claims:       make(map[Address]string),
	}
	for _, opt := range opts {
		opt(t)
	}

	conn, err := dial()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}
	t.conn = conn
	return t, nil
}

// ReadAll fetches the whole DCB of a thermostat
func (t *Transport) ReadAll(addr Address) Result {
	return t.Execute(addr, BuildReadAll(addr), FunctionRead)
}

// WriteField writes a single DCB byte
func (t *Transport) WriteField(addr Address, offset uint16, value byte) Result {
	frame, err := BuildWrite(addr, offset, []byte{value})
	if err != nil {
		return Result{Status: StatusHardFailure, Payload: []byte{}, Err: err}
	}
	return t.Execute(addr, frame, FunctionWrite)
}

// Execute sends an encoded request and waits for a verified reply, retrying
// failed attempts. It blocks until the outcome is decided.
func (t *Transport) Execute(addr Address, frame Request, fn Function) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Result{Status: StatusHardFailure, Payload: []byte{}, Err: ErrClosed}
	}

	log := t.logger.With().Uint8("address", uint8(addr)).Stringer("function", fn).Logger()

	var (
		res     Result
		lastErr error
	)
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		payload, err := t.attempt(addr, frame, fn)
		if err == nil {
			res.Status = StatusOK
			res.Payload = payload
			res.SoftErrors = attempt - 1
			if res.SoftErrors > 0 {
				log.Debug().Int("attempts", attempt).Msg("transaction recovered")
			}
			t.finish(fn, res)
			return res
		}

		lastErr = err
		kind := KindOf(err)
		res.Failures.Add(kind)

		if kind == FailureConnection {
			log.Error().Err(err).Int("attempt", attempt).Msg("connection failure, reconnecting")
			t.reconnect(log)
		} else {
			log.Info().Err(err).Int("attempt", attempt).Stringer("kind", kind).Msg("reply rejected")
			t.discard(log)
		}

		if attempt < t.maxRetries && t.backoff > 0 {
			time.Sleep(t.backoff)
		}
	}

	res.Status = StatusHardFailure
	res.Payload = []byte{}
	res.SoftErrors = t.maxRetries
	res.Err = fmt.Errorf("%w after %d attempts: %v", ErrHardFailure, t.maxRetries, lastErr)
	log.Error().Err(lastErr).Int("attempts", t.maxRetries).Msg("transaction failed")
	t.finish(fn, res)
	return res
}

// attempt performs one write and reply read. Connection errors wrap
// ErrConnectionFailure; verification failures come back as *VerifyError.
func (t *Transport) attempt(addr Address, frame Request, fn Function) ([]byte, error) {
	if t.conn == nil {
		conn, err := t.dial()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailure, err)
		}
		t.conn = conn
	}

	if r, ok := t.conn.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return nil, fmt.Errorf("%w: reset input: %v", ErrConnectionFailure, err)
		}
	}

	if t.trace != nil {
		t.trace(true, frame)
	}
	if _, err := t.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("%w: write: %v", ErrConnectionFailure, err)
	}

	raw, err := t.readReply()
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrConnectionFailure, err)
	}
	if t.trace != nil {
		t.trace(false, raw)
	}

	return Verify(addr, fn, raw)
}

// readReply collects reply bytes until the declared length has arrived, the
// reply buffer is full, or the read deadline passes. A deadline is not an
// error: whatever arrived is handed to Verify. A declared length no reply can
// have is ignored so a corrupted header does not cut the read short.
func (t *Transport) readReply() ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, MaxReplySize)
	n := 0
	for n < len(buf) {
		m, err := t.conn.Read(buf[n:])
		n += m
		if n >= 3 {
			if want := Reply(buf[:n]).DeclaredLength(); want >= minReplySize && want <= MaxReplySize && want <= n {
				break
			}
		}
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			if errors.Is(err, io.EOF) {
				return buf[:n], io.ErrUnexpectedEOF
			}
			return buf[:n], err
		}
		if m == 0 {
			break
		}
	}
	return buf[:n], nil
}

// discard throws away input left over from a rejected reply so the next
// attempt starts on a clean line. It reads until the read deadline passes.
func (t *Transport) discard(log zerolog.Logger) {
	if t.conn == nil {
		return
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return
	}

	buf := make([]byte, MaxReplySize)
	dropped := 0
	for {
		m, err := t.conn.Read(buf)
		dropped += m
		if err != nil || m == 0 {
			break
		}
	}
	if dropped > 0 {
		log.Debug().Int("bytes", dropped).Msg("discarded stale input")
	}
}

// reconnect closes the current connection and dials a new one. If dialing
// fails the next attempt tries again.
func (t *Transport) reconnect(log zerolog.Logger) {
	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			log.Debug().Err(err).Msg("close before reconnect")
		}
		t.conn = nil
	}

	conn, err := t.dial()
	if err != nil {
		log.Error().Err(err).Msg("reconnect failed")
		return
	}
	t.conn = conn
	log.Info().Msg("reconnected")
}

// finish records a completed transaction and emits the periodic summary
func (t *Transport) finish(fn Function, res Result) {
	t.stats.Record(fn, res)

	n := t.transactions.Add(1)
	if t.summaryEvery > 0 && n%t.summaryEvery == 0 {
		snap := t.stats.Snapshot()
		t.logger.Info().
			Uint64("transactions", n).
			Str("read", snap.ReadSummary()).
			Str("write", snap.WriteSummary()).
			Msg("line statistics")
	}
}

// Statistics returns the line counters for every transaction run so far
func (t *Transport) Statistics() StatisticsSnapshot {
	return t.stats.Snapshot()
}

// Claim reserves an address for a named thermostat handle
func (t *Transport) Claim(addr Address, name string) error {
	if !addr.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAddress, addr)
	}

	t.claimsMu.Lock()
	defer t.claimsMu.Unlock()

	if owner, ok := t.claims[addr]; ok {
		return fmt.Errorf("%w: %d is used by %q", ErrDuplicateAddress, addr, owner)
	}
	t.claims[addr] = name
	return nil
}

// Release frees an address reserved with Claim
func (t *Transport) Release(addr Address) {
	t.claimsMu.Lock()
	delete(t.claims, addr)
	t.claimsMu.Unlock()
}

// Close releases the connection. Transactions after Close fail immediately.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
