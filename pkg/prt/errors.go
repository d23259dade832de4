// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"errors"
	"fmt"
)

// Sentinel errors. Verification failures unwrap to one of the first three.
var (
	ErrNoDataReceived    = errors.New("no data received")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrConnectionFailure = errors.New("connection failure")
	ErrHardFailure       = errors.New("retries exhausted")

	ErrConfig           = errors.New("invalid configuration")
	ErrInvalidAddress   = errors.New("invalid thermostat address")
	ErrDuplicateAddress = errors.New("thermostat address already in use")
	ErrOutOfRange       = errors.New("value out of range")
	ErrClosed           = errors.New("transport closed")
)

// FailureKind classifies why a transaction attempt failed
type FailureKind int

const (
	FailureNoData FailureKind = iota
	FailureChecksum
	FailureProtocol
	FailureConnection
	FailureHard
)

var failureNames = map[FailureKind]string{
	FailureNoData:     "no data",
	FailureChecksum:   "checksum",
	FailureProtocol:   "protocol",
	FailureConnection: "connection",
	FailureHard:       "hard",
}

func (k FailureKind) String() string {
	if s, ok := failureNames[k]; ok {
		return s
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

// Label returns the kind as a metric label value
func (k FailureKind) Label() string {
	if k == FailureNoData {
		return "no_data"
	}
	return k.String()
}

// sentinel maps a kind onto its sentinel error
func (k FailureKind) sentinel() error {
	switch k {
	case FailureNoData:
		return ErrNoDataReceived
	case FailureChecksum:
		return ErrChecksumMismatch
	case FailureProtocol:
		return ErrProtocolViolation
	case FailureConnection:
		return ErrConnectionFailure
	default:
		return ErrHardFailure
	}
}

// VerifyError describes a rejected reply frame
type VerifyError struct {
	Kind    FailureKind
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *VerifyError) Error() string {
	return fmt.Sprintf("%s: %s", v.Kind.sentinel(), v.Message)
}

// Unwrap lets errors.Is match the sentinel for the failure kind
func (v *VerifyError) Unwrap() error {
	return v.Kind.sentinel()
}

// KindOf classifies any transaction error. Errors that are not verification
// failures are treated as connection failures.
func KindOf(err error) FailureKind {
	var v *VerifyError
	if errors.As(err, &v) {
		return v.Kind
	}
	switch {
	case errors.Is(err, ErrNoDataReceived):
		return FailureNoData
	case errors.Is(err, ErrChecksumMismatch):
		return FailureChecksum
	case errors.Is(err, ErrProtocolViolation):
		return FailureProtocol
	case errors.Is(err, ErrHardFailure):
		return FailureHard
	}
	return FailureConnection
}
