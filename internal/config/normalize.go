// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

// DefaultPollIntervalMs is used when poll.interval_ms is absent
const DefaultPollIntervalMs = 60000

// Normalize fills in defaults. It must be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Bus.MaxRetries == 0 {
		cfg.Bus.MaxRetries = prt.DefaultMaxRetries
	}
	if cfg.Bus.BackoffMs == 0 {
		cfg.Bus.BackoffMs = int(prt.DefaultBackoff.Milliseconds())
	}
	if cfg.Poll.IntervalMs == 0 {
		cfg.Poll.IntervalMs = DefaultPollIntervalMs
	}

	for i := range cfg.Thermostats {
		t := &cfg.Thermostats[i]
		if t.Name == "" {
			t.Name = fmt.Sprintf("stat%d", t.ID)
		}
	}
}
