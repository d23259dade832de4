// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package poller

import (
	"github.com/rs/zerolog"

	cfg "github.com/Thermoquad/prtlink/internal/config"
	"github.com/Thermoquad/prtlink/pkg/prt"
)

// Build creates a handle for every configured thermostat on the transport and
// wraps them in a Poller. The transport stays owned by the caller.
func Build(c *cfg.Config, transport *prt.Transport, logger zerolog.Logger) (*Poller, []*prt.Thermostat, error) {
	handles := make([]*prt.Thermostat, 0, len(c.Thermostats))
	stats := make([]Stat, 0, len(c.Thermostats))

	for _, tc := range c.Thermostats {
		addr, err := prt.ParseAddress(tc.ID)
		if err != nil {
			release(handles)
			return nil, nil, err
		}
		h, err := prt.NewThermostat(addr, tc.Name, transport)
		if err != nil {
			release(handles)
			return nil, nil, err
		}
		handles = append(handles, h)
		stats = append(stats, h)
	}

	p, err := New(Config{Interval: c.Poll.Interval()}, stats, logger)
	if err != nil {
		release(handles)
		return nil, nil, err
	}
	return p, handles, nil
}

func release(handles []*prt.Thermostat) {
	for _, h := range handles {
		h.Close()
	}
}
