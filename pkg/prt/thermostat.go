// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"fmt"
	"sync/atomic"
)

// Thermostat is the handle for one device on a bus. It keeps the last DCB
// read from the device and its own transaction statistics. The Transport is
// shared with other handles and is not owned.
type Thermostat struct {
	addr      Address
	name      string
	transport *Transport

	dcb   atomic.Pointer[DCB]
	stats *Statistics
}

// NewThermostat creates a handle for addr and reserves the address on the
// transport. The DCB starts zeroed so reads before the first successful
// update are safe.
func NewThermostat(addr Address, name string, transport *Transport) (*Thermostat, error) {
	if err := transport.Claim(addr, name); err != nil {
		return nil, err
	}

	t := &Thermostat{
		addr:      addr,
		name:      name,
		transport: transport,
		stats:     NewStatistics(),
	}
	t.dcb.Store(new(DCB))
	return t, nil
}

// Address returns the bus address
func (t *Thermostat) Address() Address {
	return t.addr
}

// Name returns the display name given at construction
func (t *Thermostat) Name() string {
	return t.name
}

// DCB returns the most recent block. Callers must not modify it.
func (t *Thermostat) DCB() *DCB {
	return t.dcb.Load()
}

// Statistics returns this thermostat's transaction counters
func (t *Thermostat) Statistics() StatisticsSnapshot {
	return t.stats.Snapshot()
}

// Update reads the whole DCB. On a hard failure the previous block is kept.
func (t *Thermostat) Update() Result {
	res := t.transport.ReadAll(t.addr)
	t.stats.Record(FunctionRead, res)
	if res.OK() {
		t.dcb.Store(NewDCB(res.Payload))
	}
	return res
}

// write sends a single byte. The cached DCB is left alone until the next Update.
func (t *Thermostat) write(offset uint16, value byte) Result {
	res := t.transport.WriteField(t.addr, offset, value)
	t.stats.Record(FunctionWrite, res)
	return res
}

// SetTargetTemperature writes the heating setpoint (5..35)
func (t *Thermostat) SetTargetTemperature(temp int) (Result, error) {
	if temp < MinTargetTemperature || temp > MaxTargetTemperature {
		return Result{}, fmt.Errorf("%w: target temperature %d (valid %d-%d)",
			ErrOutOfRange, temp, MinTargetTemperature, MaxTargetTemperature)
	}
	return t.write(OffsetTargetTemp, byte(temp)), nil
}

// SetFrostTemperature writes the frost protection setpoint (7..17)
func (t *Thermostat) SetFrostTemperature(temp int) (Result, error) {
	if temp < MinFrostTemperature || temp > MaxFrostTemperature {
		return Result{}, fmt.Errorf("%w: frost temperature %d (valid %d-%d)",
			ErrOutOfRange, temp, MinFrostTemperature, MaxFrostTemperature)
	}
	return t.write(OffsetFrostTemperature, byte(temp)), nil
}

// SetRunMode switches between normal heating and frost protection
func (t *Thermostat) SetRunMode(mode RunMode) (Result, error) {
	if mode != RunModeNormal && mode != RunModeFrost {
		return Result{}, fmt.Errorf("%w: run mode %d", ErrOutOfRange, mode)
	}
	return t.write(OffsetRunMode, byte(mode)), nil
}

// Close releases the address on the transport
func (t *Thermostat) Close() {
	t.transport.Release(t.addr)
}

func (t *Thermostat) String() string {
	if t.name == "" {
		return fmt.Sprintf("stat %d", t.addr)
	}
	return fmt.Sprintf("%s (stat %d)", t.name, t.addr)
}
