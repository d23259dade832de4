// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package poller reads every thermostat on a bus on a fixed clock.
package poller

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

// Stat abstracts the thermostat handle operations the poller needs
type Stat interface {
	Address() prt.Address
	Name() string
	Update() prt.Result
	DCB() *prt.DCB
	Statistics() prt.StatisticsSnapshot
}

// Config is the minimal runtime config the poller needs
type Config struct {
	Interval time.Duration
}

// Poller is a clock-driven reader. It never writes.
type Poller struct {
	cfg    Config
	stats  []Stat
	logger zerolog.Logger
}

// New creates a poller over a fixed set of thermostats
func New(cfg Config, stats []Stat, logger zerolog.Logger) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(stats) == 0 {
		return nil, errors.New("poller: at least one thermostat required")
	}
	return &Poller{cfg: cfg, stats: stats, logger: logger}, nil
}

// Stats returns the polled thermostats in configuration order
func (p *Poller) Stats() []Stat {
	return p.stats
}

// PollOnce updates every thermostat once, in order. A failed thermostat does
// not abort the cycle; its reading carries the previous block marked stale.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		At:       time.Now(),
		Readings: make([]Reading, 0, len(p.stats)),
	}

	for _, s := range p.stats {
		r := s.Update()
		reading := newReading(s, r)
		if !r.OK() {
			res.Failed++
			p.logger.Warn().
				Uint8("address", uint8(s.Address())).
				Str("name", s.Name()).
				Err(r.Err).
				Msg("thermostat update failed, keeping previous values")
		}
		res.Readings = append(res.Readings, reading)
	}

	p.logger.Debug().Int("thermostats", len(p.stats)).Int("failed", res.Failed).Msg("poll cycle complete")
	return res
}

func newReading(s Stat, r prt.Result) Reading {
	d := s.DCB()
	return Reading{
		Address:    s.Address(),
		Name:       s.Name(),
		Status:     r.Status,
		SoftErrors: r.SoftErrors,
		Stale:      !r.OK(),
		Current:    d.CurrentTemperature(),
		Target:     d.TargetTemperature(),
		Frost:      d.FrostTemperature(),
		RunMode:    d.RunMode(),
		Heating:    d.Heating(),
		DayTime:    d.DayTime().String(),
		Statistics: s.Statistics(),
		Err:        r.Err,
	}
}
