// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"errors"
	"strings"
	"testing"
)

func TestTally(t *testing.T) {
	var tally Tally
	for _, k := range []FailureKind{FailureNoData, FailureChecksum, FailureChecksum, FailureProtocol, FailureConnection} {
		tally.Add(k)
	}
	if tally.NoData != 1 || tally.Checksum != 2 || tally.Protocol != 1 || tally.Connection != 1 {
		t.Errorf("unexpected tally %+v", tally)
	}
	if tally.Soft() != 4 {
		t.Errorf("Soft() = %d, expected 4", tally.Soft())
	}
}

func TestStatistics_Record(t *testing.T) {
	s := NewStatistics()

	s.Record(FunctionRead, Result{Status: StatusOK})
	s.Record(FunctionRead, Result{Status: StatusOK, SoftErrors: 2, Failures: Tally{Checksum: 1, NoData: 1}})
	s.Record(FunctionWrite, Result{Status: StatusHardFailure, SoftErrors: 5, Failures: Tally{Protocol: 5}})

	snap := s.Snapshot()
	if snap.Read.Transactions != 2 || snap.Read.Checksum != 1 || snap.Read.NoData != 1 || snap.Read.Hard != 0 {
		t.Errorf("unexpected read counters %+v", snap.Read)
	}
	if snap.Write.Transactions != 1 || snap.Write.Protocol != 5 || snap.Write.Hard != 1 {
		t.Errorf("unexpected write counters %+v", snap.Write)
	}
	if snap.Total() != 3 {
		t.Errorf("Total() = %d", snap.Total())
	}
}

func TestStatistics_Summaries(t *testing.T) {
	snap := StatisticsSnapshot{
		Read:  CountersSnapshot{Transactions: 200, Checksum: 1, NoData: 2, Protocol: 1, Hard: 1},
		Write: CountersSnapshot{Transactions: 7, Checksum: 1},
	}

	if got := snap.ReadSummary(); got != "2.000% 1 2 1 1" {
		t.Errorf("ReadSummary() = %q", got)
	}
	if got := snap.WriteSummary(); got != "7 1 0 0 0" {
		t.Errorf("WriteSummary() = %q", got)
	}

	out := snap.String()
	for _, want := range []string{"Line Statistics", "Transactions:", "CRC Errors:", "Hard Errors:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Reconnects:") {
		t.Error("reconnect row should be hidden when there were none")
	}
}

func TestCountersSnapshot_ErrorRateEmpty(t *testing.T) {
	if (CountersSnapshot{}).ErrorRate() != 0 {
		t.Error("error rate of no transactions should be 0")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{&VerifyError{Kind: FailureChecksum}, FailureChecksum},
		{ErrNoDataReceived, FailureNoData},
		{ErrProtocolViolation, FailureProtocol},
		{ErrHardFailure, FailureHard},
		{errors.New("EOF"), FailureConnection},
		{ErrConnectionFailure, FailureConnection},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, expected %s", tt.err, got, tt.want)
		}
	}
}
