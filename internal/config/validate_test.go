// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

// helper to build a config quickly
func bus(ids ...int) *Config {
	cfg := &Config{Bus: BusConfig{Host: "10.0.0.5", Port: 2001}}
	for _, id := range ids {
		cfg.Thermostats = append(cfg.Thermostats, ThermostatConfig{ID: id})
	}
	return cfg
}

// ---- tests ----

func TestValidate_OK(t *testing.T) {
	assert.NilError(t, Validate(bus(1, 2, 32)))
}

func TestValidate_DuplicateID(t *testing.T) {
	err := Validate(bus(1, 4, 4))
	assert.Assert(t, errors.Is(err, prt.ErrDuplicateAddress), "got %v", err)
}

func TestValidate_IDOutOfRange(t *testing.T) {
	for _, id := range []int{0, 33, -2} {
		err := Validate(bus(1, id))
		assert.Assert(t, errors.Is(err, prt.ErrInvalidAddress), "id %d: got %v", id, err)
	}
}

func TestValidate_OptionalSections(t *testing.T) {
	// bus only, for one-off commands
	assert.NilError(t, Validate(bus()))

	// thermostats only, endpoint from flags
	cfg := bus(3)
	cfg.Bus = BusConfig{}
	assert.NilError(t, Validate(cfg))

	// tuning without an endpoint is still checked
	cfg.Bus.MaxRetries = -1
	assert.ErrorIs(t, Validate(cfg), prt.ErrConfig)
}

func TestValidate_BusForms(t *testing.T) {
	cfg := bus(1)
	cfg.Bus.Device = "/dev/ttyUSB0"
	assert.ErrorIs(t, Validate(cfg), prt.ErrConfig)

	cfg = bus(1)
	cfg.Bus = BusConfig{Port: 2001}
	assert.ErrorIs(t, Validate(cfg), prt.ErrConfig)

	cfg = bus(1)
	cfg.Bus = BusConfig{URL: "wss://slate.local/rs485", Username: "admin"}
	assert.NilError(t, Validate(cfg))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := bus(7)
	assert.NilError(t, Validate(cfg))
	assert.Equal(t, cfg.Thermostats[0].Name, "")
	assert.Equal(t, cfg.Poll.IntervalMs, 0)
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := bus(7)
	cfg.Thermostats[0].Name = ""
	Normalize(cfg)

	assert.Equal(t, cfg.Thermostats[0].Name, "stat7")
	assert.Equal(t, cfg.Bus.MaxRetries, prt.DefaultMaxRetries)
	assert.Equal(t, cfg.Bus.Backoff(), prt.DefaultBackoff)
	assert.Equal(t, cfg.Poll.Interval(), 60*time.Second)
}

func TestParse(t *testing.T) {
	doc := []byte(`
bus:
  host: 192.168.1.40
  port: 2001
  max_retries: 3
thermostats:
  - id: 1
    name: Hall
  - id: 2
poll:
  interval_ms: 30000
metrics:
  listen: ":9110"
`)
	cfg, err := Parse(doc)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Bus.Endpoint().Address(), "192.168.1.40:2001")
	assert.Equal(t, cfg.Bus.MaxRetries, 3)
	assert.Assert(t, is.Len(cfg.Thermostats, 2))
	assert.Equal(t, cfg.Thermostats[0].Name, "Hall")
	assert.Equal(t, cfg.Thermostats[1].Name, "stat2")
	assert.Equal(t, cfg.Poll.Interval(), 30*time.Second)
	assert.Equal(t, cfg.Metrics.Listen, ":9110")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("bus: [unterminated"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Parse([]byte("bus:\n  device: /dev/ttyUSB0\n  host: 10.0.0.5\n"))
	assert.ErrorIs(t, err, prt.ErrConfig)
}

func TestParse_PartialFiles(t *testing.T) {
	cfg, err := Parse([]byte("thermostats:\n  - id: 3\n    name: hall\n"))
	assert.NilError(t, err)
	assert.Equal(t, cfg.Bus.Endpoint().Kind(), prt.EndpointNone)
	assert.Equal(t, cfg.Thermostats[0].Name, "hall")

	cfg, err = Parse([]byte("bus:\n  device: /dev/ttyUSB0\n"))
	assert.NilError(t, err)
	assert.Assert(t, is.Len(cfg.Thermostats, 0))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prtlink.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("bus:\n  device: /dev/ttyUSB0\nthermostats:\n  - id: 3\n"), 0o600))

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Bus.Endpoint().Kind(), prt.EndpointSerial)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}
