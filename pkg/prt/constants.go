// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package prt implements the point-to-point protocol spoken by Heatmiser PRT
// thermostats on a shared RS-485 bus.
//
// The bus is reached either through a local serial adapter or through a
// network-to-serial bridge. A single Transport owns the line and serializes
// every transaction; Thermostat handles hold a reference to it and keep their
// own device control block (DCB) and error statistics.
package prt

import "time"

// Bus addresses
const (
	MinAddress       = 1
	MaxAddress       = 32
	MasterAddress    = 129
	AltMasterAddress = 160 // also accepted as the destination of a reply
)

// Function codes
const (
	FunctionRead  Function = 0 // read the whole DCB
	FunctionWrite Function = 1 // write a run of DCB bytes
)

// Frame geometry
const (
	headerSize      = 5 // dest, lenLo, lenHi, source, function
	readHeaderSize  = 9 // header + startLo, startHi, countLo, countHi
	trailerSize     = 2
	minReplySize    = headerSize + trailerSize
	minReadReply    = readHeaderSize + trailerSize
	writeReplySize  = 7
	requestOverhead = 10 // declared length of a request excluding its payload
	readAllCount    = 0xFFFF
)

// MaxWritePayload is the longest run of bytes one write request can carry.
// The request length field is a single byte.
const MaxWritePayload = 0xFF - requestOverhead

// Reply and DCB sizes. A 7-day mode thermostat sends the longest reply.
const (
	MaxReplySize = 159
	MaxReplyDCB  = MaxReplySize - minReadReply
	DCBSize      = 160
)

// Serial line parameters. These are fixed by the thermostats.
const (
	BaudRate    = 4800
	DataBits    = 8
	ReadTimeout = 800 * time.Millisecond
)

// Transaction defaults
const (
	DefaultMaxRetries   = 5
	DefaultBackoff      = 100 * time.Millisecond
	DefaultSummaryEvery = 10000
	DefaultDialTimeout  = 10 * time.Second
)
