// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"fmt"
	"strings"
)

// DCB offsets
const (
	OffsetVendorID         = 2
	OffsetVersion          = 3 // low 7 bits version, high bit floor limit state
	OffsetModel            = 4
	OffsetTemperatureFmt   = 5
	OffsetSwitchingDiff    = 6
	OffsetCalibration      = 8 // 2 bytes
	OffsetOutputDelay      = 10
	OffsetAddress          = 11
	OffsetUpDownLimit      = 12
	OffsetSensorSelect     = 13
	OffsetOptimumStart     = 14
	OffsetRateOfChange     = 15
	OffsetProgramMode      = 16
	OffsetFrostTemperature = 17
	OffsetTargetTemp       = 18
	OffsetFloorLimit       = 19
	OffsetFloorLimitEnable = 20
	OffsetKeyLock          = 22
	OffsetRunMode          = 23
	OffsetHolidayHours     = 24 // 2 bytes
	OffsetTemperatureHold  = 26 // 2 bytes
	OffsetRemoteAirTemp    = 28 // 2 bytes, tenths
	OffsetFloorTemp        = 30 // 2 bytes, tenths
	OffsetBuiltInTemp      = 32 // 2 bytes, tenths
	OffsetErrorCode        = 34
	OffsetHeatState        = 35
	OffsetDayTime          = 36 // day, hour, minute, second
	OffsetWeekdaySchedule  = 40
	OffsetWeekendSchedule  = 52
)

// Setter limits
const (
	MinTargetTemperature = 5
	MaxTargetTemperature = 35
	MinFrostTemperature  = 7
	MaxFrostTemperature  = 17
)

// Sensor selection values
const (
	SensorBuiltIn         = 0
	SensorRemote          = 1
	SensorFloor           = 2
	SensorBuiltInAndFloor = 3
	SensorRemoteAndFloor  = 4
)

// Program modes
const (
	ProgramModeFiveTwo  = 0 // weekday/weekend schedules only
	ProgramModeSevenDay = 1
)

const (
	scheduleEntries = 4
	scheduleSize    = scheduleEntries * 3
)

// RunMode selects between normal heating and frost protection
type RunMode uint8

const (
	RunModeNormal RunMode = 0
	RunModeFrost  RunMode = 1
)

func (m RunMode) String() string {
	switch m {
	case RunModeNormal:
		return "normal"
	case RunModeFrost:
		return "frost"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseRunMode accepts "normal", "frost", "0" or "1"
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(s) {
	case "normal", "heat", "0":
		return RunModeNormal, nil
	case "frost", "1":
		return RunModeFrost, nil
	}
	return 0, fmt.Errorf("%w: run mode %q (use normal or frost)", ErrOutOfRange, s)
}

// DCB is a thermostat's device control block
type DCB [DCBSize]byte

// NewDCB copies a read payload into a zeroed block. Short payloads leave the
// remaining bytes at zero; extra bytes are dropped.
func NewDCB(payload []byte) *DCB {
	var d DCB
	copy(d[:], payload)
	return &d
}

func (d *DCB) word(offset int) uint16 {
	return uint16(d[offset])<<8 | uint16(d[offset+1])
}

func (d *DCB) tenths(offset int) float64 {
	return float64(d.word(offset)) / 10
}

// Field accessors. Two-byte fields are big-endian.

func (d *DCB) VendorID() uint8 { return d[OffsetVendorID] }
func (d *DCB) Version() uint8 { return d[OffsetVersion] & 0x7f }
func (d *DCB) FloorLimitState() bool { return d[OffsetVersion]&0x80 != 0 }
func (d *DCB) Model() uint8 { return d[OffsetModel] }
func (d *DCB) TemperatureFormat() uint8 { return d[OffsetTemperatureFmt] }
func (d *DCB) SwitchingDifferential() uint8 {
	return d[OffsetSwitchingDiff]
}
func (d *DCB) CalibrationOffset() uint16 { return d.word(OffsetCalibration) }
func (d *DCB) OutputDelay() uint8 { return d[OffsetOutputDelay] }
func (d *DCB) Address() uint8 { return d[OffsetAddress] }
func (d *DCB) UpDownLimit() uint8 { return d[OffsetUpDownLimit] }
func (d *DCB) SensorSelect() uint8 { return d[OffsetSensorSelect] }
func (d *DCB) OptimumStart() uint8 { return d[OffsetOptimumStart] }
func (d *DCB) RateOfChange() uint8 { return d[OffsetRateOfChange] }
func (d *DCB) ProgramMode() uint8 { return d[OffsetProgramMode] }
func (d *DCB) FrostTemperature() uint8 { return d[OffsetFrostTemperature] }
func (d *DCB) TargetTemperature() uint8 { return d[OffsetTargetTemp] }
func (d *DCB) FloorLimit() uint8 { return d[OffsetFloorLimit] }
func (d *DCB) FloorLimitEnabled() bool { return d[OffsetFloorLimitEnable] != 0 }
func (d *DCB) KeyLock() uint8 { return d[OffsetKeyLock] }
func (d *DCB) RunMode() RunMode { return RunMode(d[OffsetRunMode]) }
func (d *DCB) HolidayHours() uint16 { return d.word(OffsetHolidayHours) }
func (d *DCB) TemperatureHold() uint16 { return d.word(OffsetTemperatureHold) }
func (d *DCB) RemoteAirTemperature() float64 {
	return d.tenths(OffsetRemoteAirTemp)
}
func (d *DCB) FloorTemperature() float64 { return d.tenths(OffsetFloorTemp) }
func (d *DCB) BuiltInTemperature() float64 { return d.tenths(OffsetBuiltInTemp) }
func (d *DCB) ErrorCode() uint8 { return d[OffsetErrorCode] }
func (d *DCB) Heating() bool { return d[OffsetHeatState] != 0 }

// CurrentTemperature returns the reading of the sensor the thermostat is
// configured to control on: the built-in or remote air sensor when one is
// selected, otherwise the floor sensor.
func (d *DCB) CurrentTemperature() float64 {
	switch d.SensorSelect() {
	case SensorBuiltIn, SensorBuiltInAndFloor:
		return d.BuiltInTemperature()
	case SensorRemote, SensorRemoteAndFloor:
		return d.RemoteAirTemperature()
	default:
		return d.FloorTemperature()
	}
}

var dayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// DayTime is the thermostat clock
type DayTime struct {
	Day    uint8 // 1 = Monday .. 7 = Sunday
	Hour   uint8
	Minute uint8
	Second uint8
}

func (t DayTime) String() string {
	day := "???"
	if t.Day >= 1 && int(t.Day) <= len(dayNames) {
		day = dayNames[t.Day-1]
	}
	return fmt.Sprintf("%s %02d:%02d:%02d", day, t.Hour, t.Minute, t.Second)
}

// DayTime returns the thermostat clock
func (d *DCB) DayTime() DayTime {
	return DayTime{
		Day:    d[OffsetDayTime],
		Hour:   d[OffsetDayTime+1],
		Minute: d[OffsetDayTime+2],
		Second: d[OffsetDayTime+3],
	}
}

// ComfortLevel is one schedule switch point
type ComfortLevel struct {
	Hour        uint8
	Minute      uint8
	Temperature uint8
}

// Schedule is the four switch points of a day
type Schedule [scheduleEntries]ComfortLevel

// String renders "hh:mm tt; hh:mm tt; hh:mm tt; hh:mm tt;"
func (s Schedule) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = fmt.Sprintf("%02d:%02d %02d;", c.Hour, c.Minute, c.Temperature)
	}
	return strings.Join(parts, " ")
}

func (d *DCB) schedule(offset int) Schedule {
	var s Schedule
	for i := range s {
		p := offset + i*3
		s[i] = ComfortLevel{Hour: d[p], Minute: d[p+1], Temperature: d[p+2]}
	}
	return s
}

// WeekdaySchedule returns the Monday to Friday schedule used in 5/2 mode
func (d *DCB) WeekdaySchedule() Schedule {
	return d.schedule(OffsetWeekdaySchedule)
}

// WeekendSchedule returns the Saturday and Sunday schedule used in 5/2 mode
func (d *DCB) WeekendSchedule() Schedule {
	return d.schedule(OffsetWeekendSchedule)
}

// DaySchedule returns the 7-day mode schedule for day (1 = Monday .. 7 = Sunday).
// In 5/2 mode, or for a day outside 1..7, the zero Schedule is returned.
func (d *DCB) DaySchedule(day int) Schedule {
	if d.ProgramMode() == ProgramModeFiveTwo || day < 1 || day > len(dayNames) {
		return Schedule{}
	}
	return d.schedule(OffsetWeekendSchedule + day*scheduleSize)
}

// Fields returns the decoded attributes in display order
func (d *DCB) Fields() []Field {
	fields := []Field{
		{"Vendor ID", fmt.Sprint(d.VendorID())},
		{"Version", fmt.Sprint(d.Version())},
		{"Floor Limit State", fmt.Sprint(d.FloorLimitState())},
		{"Model", fmt.Sprint(d.Model())},
		{"Temperature Format", fmt.Sprint(d.TemperatureFormat())},
		{"Switching Differential", fmt.Sprint(d.SwitchingDifferential())},
		{"Calibration Offset", fmt.Sprint(d.CalibrationOffset())},
		{"Output Delay", fmt.Sprint(d.OutputDelay())},
		{"Address", fmt.Sprint(d.Address())},
		{"Up/Down Limit", fmt.Sprint(d.UpDownLimit())},
		{"Sensor Select", fmt.Sprint(d.SensorSelect())},
		{"Optimum Start", fmt.Sprint(d.OptimumStart())},
		{"Rate of Change", fmt.Sprint(d.RateOfChange())},
		{"Program Mode", fmt.Sprint(d.ProgramMode())},
		{"Frost Temperature", fmt.Sprint(d.FrostTemperature())},
		{"Target Temperature", fmt.Sprint(d.TargetTemperature())},
		{"Floor Limit", fmt.Sprint(d.FloorLimit())},
		{"Floor Limit Enabled", fmt.Sprint(d.FloorLimitEnabled())},
		{"Key Lock", fmt.Sprint(d.KeyLock())},
		{"Run Mode", d.RunMode().String()},
		{"Holiday Hours", fmt.Sprint(d.HolidayHours())},
		{"Temperature Hold", fmt.Sprint(d.TemperatureHold())},
		{"Remote Air Temperature", fmt.Sprintf("%.1f", d.RemoteAirTemperature())},
		{"Floor Temperature", fmt.Sprintf("%.1f", d.FloorTemperature())},
		{"Built-in Temperature", fmt.Sprintf("%.1f", d.BuiltInTemperature())},
		{"Current Temperature", fmt.Sprintf("%.1f", d.CurrentTemperature())},
		{"Error Code", fmt.Sprint(d.ErrorCode())},
		{"Heating", fmt.Sprint(d.Heating())},
		{"Day and Time", d.DayTime().String()},
		{"Weekday Schedule", d.WeekdaySchedule().String()},
		{"Weekend Schedule", d.WeekendSchedule().String()},
	}
	for day := 1; day <= len(dayNames); day++ {
		fields = append(fields, Field{dayNames[day-1] + " Schedule", d.DaySchedule(day).String()})
	}
	return fields
}

// Field is a named, formatted DCB attribute
type Field struct {
	Name  string
	Value string
}
