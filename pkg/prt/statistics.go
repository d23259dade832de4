// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Tally counts the failed attempts of one transaction by kind
type Tally struct {
	NoData     int
	Checksum   int
	Protocol   int
	Connection int
}

// Add records one failed attempt
func (t *Tally) Add(kind FailureKind) {
	switch kind {
	case FailureNoData:
		t.NoData++
	case FailureChecksum:
		t.Checksum++
	case FailureProtocol:
		t.Protocol++
	case FailureConnection:
		t.Connection++
	}
}

// Soft returns the number of verification failures (connection failures excluded)
func (t Tally) Soft() int {
	return t.NoData + t.Checksum + t.Protocol
}

// Counters tracks one direction (reads or writes). Counters only grow.
type Counters struct {
	transactions atomic.Uint64
	noData       atomic.Uint64
	checksum     atomic.Uint64
	protocol     atomic.Uint64
	connection   atomic.Uint64
	hard         atomic.Uint64
}

// Snapshot copies the current values
func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		Transactions: c.transactions.Load(),
		NoData:       c.noData.Load(),
		Checksum:     c.checksum.Load(),
		Protocol:     c.protocol.Load(),
		Connection:   c.connection.Load(),
		Hard:         c.hard.Load(),
	}
}

// Statistics holds read and write counters for a line or a thermostat
type Statistics struct {
	StartTime time.Time

	Read  Counters
	Write Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// For returns the counters for a function code
func (s *Statistics) For(fn Function) *Counters {
	if fn == FunctionWrite {
		return &s.Write
	}
	return &s.Read
}

// Record folds a finished transaction into the counters
func (s *Statistics) Record(fn Function, res Result) {
	c := s.For(fn)
	c.transactions.Add(1)
	c.noData.Add(uint64(res.Failures.NoData))
	c.checksum.Add(uint64(res.Failures.Checksum))
	c.protocol.Add(uint64(res.Failures.Protocol))
	c.connection.Add(uint64(res.Failures.Connection))
	if res.Status == StatusHardFailure {
		c.hard.Add(1)
	}
}

// Snapshot copies both directions
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		StartTime: s.StartTime,
		Read:      s.Read.Snapshot(),
		Write:     s.Write.Snapshot(),
	}
}

// CountersSnapshot is a point-in-time copy of Counters
type CountersSnapshot struct {
	Transactions uint64 `cbor:"1,keyasint" json:"transactions"`
	NoData       uint64 `cbor:"2,keyasint" json:"no_data"`
	Checksum     uint64 `cbor:"3,keyasint" json:"checksum"`
	Protocol     uint64 `cbor:"4,keyasint" json:"protocol"`
	Connection   uint64 `cbor:"5,keyasint" json:"connection"`
	Hard         uint64 `cbor:"6,keyasint" json:"hard"`
}

// SoftErrors returns the retried verification failures
func (c CountersSnapshot) SoftErrors() uint64 {
	return c.NoData + c.Checksum + c.Protocol
}

// ErrorRate returns soft errors per transaction
func (c CountersSnapshot) ErrorRate() float64 {
	if c.Transactions == 0 {
		return 0
	}
	return float64(c.SoftErrors()) / float64(c.Transactions)
}

// StatisticsSnapshot is a point-in-time copy of Statistics
type StatisticsSnapshot struct {
	StartTime time.Time        `cbor:"-" json:"-"`
	Read      CountersSnapshot `cbor:"1,keyasint" json:"read"`
	Write     CountersSnapshot `cbor:"2,keyasint" json:"write"`
}

// Total returns the number of transactions in both directions
func (s StatisticsSnapshot) Total() uint64 {
	return s.Read.Transactions + s.Write.Transactions
}

// ReadSummary renders read statistics as "err% crc ndr oth hard".
// Reads dominate the traffic, so the soft error rate is the useful figure.
func (s StatisticsSnapshot) ReadSummary() string {
	r := s.Read
	return fmt.Sprintf("%.3f%% %d %d %d %d", r.ErrorRate()*100, r.Checksum, r.NoData, r.Protocol, r.Hard)
}

// WriteSummary renders write statistics as "count crc ndr oth hard"
func (s StatisticsSnapshot) WriteSummary() string {
	w := s.Write
	return fmt.Sprintf("%d %d %d %d %d", w.Transactions, w.Checksum, w.NoData, w.Protocol, w.Hard)
}

// String returns a formatted statistics summary
func (s StatisticsSnapshot) String() string {
	var b strings.Builder

	elapsed := time.Duration(0)
	if !s.StartTime.IsZero() {
		elapsed = time.Since(s.StartTime)
	}

	fmt.Fprintf(&b, "=== Line Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	fmt.Fprintf(&b, "%-18s %10s %10s\n", "", "Read", "Write")
	row := func(label string, r, w uint64) {
		fmt.Fprintf(&b, "%-18s %10d %10d\n", label, r, w)
	}
	row("Transactions:", s.Read.Transactions, s.Write.Transactions)
	row("CRC Errors:", s.Read.Checksum, s.Write.Checksum)
	row("No Data:", s.Read.NoData, s.Write.NoData)
	row("Other Protocol:", s.Read.Protocol, s.Write.Protocol)
	if s.Read.Connection > 0 || s.Write.Connection > 0 {
		row("Reconnects:", s.Read.Connection, s.Write.Connection)
	}
	row("Hard Errors:", s.Read.Hard, s.Write.Hard)
	fmt.Fprintf(&b, "%-18s %9.3f%% %9.3f%%\n", "Soft Error Rate:", s.Read.ErrorRate()*100, s.Write.ErrorRate()*100)
	b.WriteString("====================================\n")

	return b.String()
}
