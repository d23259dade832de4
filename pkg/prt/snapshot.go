// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a self-contained record of one thermostat after an update,
// encoded as a CBOR map with integer keys.
type Snapshot struct {
	Address     uint8              `cbor:"1,keyasint"`
	Name        string             `cbor:"2,keyasint,omitempty"`
	Time        time.Time          `cbor:"3,keyasint"`
	Status      string             `cbor:"4,keyasint"`
	Current     float64            `cbor:"5,keyasint"`
	Target      uint8              `cbor:"6,keyasint"`
	Frost       uint8              `cbor:"7,keyasint"`
	RunMode     string             `cbor:"8,keyasint"`
	Heating     bool               `cbor:"9,keyasint"`
	DayTime     string             `cbor:"10,keyasint"`
	DCB         []byte             `cbor:"11,keyasint"`
	Statistics  StatisticsSnapshot `cbor:"12,keyasint"`
	SoftErrors  int                `cbor:"13,keyasint"`
	Description string             `cbor:"14,keyasint,omitempty"`
}

// NewSnapshot captures the state of a thermostat together with the result of
// the transaction that produced it
func NewSnapshot(t *Thermostat, res Result, at time.Time) Snapshot {
	d := t.DCB()
	s := Snapshot{
		Address:    uint8(t.Address()),
		Name:       t.Name(),
		Time:       at.UTC(),
		Status:     res.Status.String(),
		Current:    d.CurrentTemperature(),
		Target:     d.TargetTemperature(),
		Frost:      d.FrostTemperature(),
		RunMode:    d.RunMode().String(),
		Heating:    d.Heating(),
		DayTime:    d.DayTime().String(),
		DCB:        append([]byte(nil), d[:]...),
		Statistics: t.Statistics(),
		SoftErrors: res.SoftErrors,
	}
	if res.Err != nil {
		s.Description = res.Err.Error()
	}
	return s
}

// EncodeSnapshot serializes a snapshot
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot produced by EncodeSnapshot
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if len(data) == 0 {
		return s, fmt.Errorf("empty CBOR payload")
	}
	if err := cbor.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(s.DCB) != DCBSize {
		return s, fmt.Errorf("snapshot DCB is %d bytes, expected %d", len(s.DCB), DCBSize)
	}
	return s, nil
}

// Block returns the snapshot's DCB
func (s Snapshot) Block() *DCB {
	return NewDCB(s.DCB)
}
