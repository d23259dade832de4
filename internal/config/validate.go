// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
// The bus section and the thermostat list may be absent: the endpoint can
// come from flags, and only monitoring needs a thermostat list.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: empty configuration", prt.ErrConfig)
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	if ep := cfg.Bus.Endpoint(); ep.Kind() != prt.EndpointNone {
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("bus: %w", err)
		}
	}
	if cfg.Bus.MaxRetries < 0 {
		return fmt.Errorf("%w: bus: max_retries must not be negative", prt.ErrConfig)
	}
	if cfg.Bus.BackoffMs < 0 {
		return fmt.Errorf("%w: bus: backoff_ms must not be negative", prt.ErrConfig)
	}

	// ------------------------------------------------------------
	// THERMOSTATS
	// ------------------------------------------------------------

	owner := make(map[int]string)
	for i, t := range cfg.Thermostats {
		label := t.Name
		if label == "" {
			label = fmt.Sprintf("thermostats[%d]", i)
		}

		if _, err := prt.ParseAddress(t.ID); err != nil {
			return fmt.Errorf("thermostat %q: %w", label, err)
		}
		if prev, ok := owner[t.ID]; ok {
			return fmt.Errorf(
				"thermostat %q: %w: id %d is also used by %q",
				label, prt.ErrDuplicateAddress, t.ID, prev,
			)
		}
		owner[t.ID] = label
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.IntervalMs < 0 {
		return fmt.Errorf("%w: poll: interval_ms must not be negative", prt.ErrConfig)
	}

	return nil
}
