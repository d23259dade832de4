// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package poller

import (
	"time"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

// Reading is the decoded state of one thermostat after an update
type Reading struct {
	Address    prt.Address
	Name       string
	Status     prt.Status
	SoftErrors int

	// Stale is set when the update failed and the values come from the
	// last successful read (or the zero block if there never was one).
	Stale bool

	Current    float64
	Target     uint8
	Frost      uint8
	RunMode    prt.RunMode
	Heating    bool
	DayTime    string
	Statistics prt.StatisticsSnapshot

	Err error
}

// PollResult is a snapshot produced by one poll cycle
type PollResult struct {
	At       time.Time
	Readings []Reading
	Failed   int // thermostats whose update hit a hard failure
}
