// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"bytes"
	"fmt"
)

// Verify checks a raw reply from addr against the function that was requested.
//
// Checks run in a fixed order and stop at the first failure; the order decides
// which statistics bucket a reply with several faults lands in. On success the
// DCB bytes of a read reply are returned as a fresh slice; a write reply yields
// an empty payload.
func Verify(addr Address, fn Function, raw []byte) ([]byte, error) {
	n := len(raw)
	if n < 3 {
		return nil, &VerifyError{
			Kind:    FailureNoData,
			Message: fmt.Sprintf("reply length %d", n),
			Details: map[string]interface{}{"length": n},
		}
	}

	want := Checksum(raw[:n-trailerSize])
	if !bytes.Equal(want[:], raw[n-trailerSize:]) {
		return nil, &VerifyError{
			Kind:    FailureChecksum,
			Message: fmt.Sprintf("expected %02X%02X, got %02X%02X (length %d)", want[1], want[0], raw[n-1], raw[n-2], n),
			Details: map[string]interface{}{"length": n, "expected": want, "received": [2]byte{raw[n-2], raw[n-1]}},
		}
	}

	if n < minReplySize {
		return nil, protocolError("reply too short for header", map[string]interface{}{"length": n})
	}

	r := Reply(raw)
	if dest := r.Destination(); dest != MasterAddress && dest != AltMasterAddress {
		return nil, protocolError(fmt.Sprintf("bad destination address %d", dest),
			map[string]interface{}{"destination": dest})
	}
	if src := r.Source(); src != addr {
		return nil, protocolError(fmt.Sprintf("bad source address %d (expected %d)", src, addr),
			map[string]interface{}{"source": src, "expected": addr})
	}

	got := r.Function()
	if got != FunctionRead && got != FunctionWrite {
		return nil, protocolError(fmt.Sprintf("bad function code %d", got),
			map[string]interface{}{"function": got})
	}
	if got != fn {
		return nil, protocolError(fmt.Sprintf("wrong function code %s (expected %s)", got, fn),
			map[string]interface{}{"function": got, "expected": fn})
	}

	declared := r.DeclaredLength()
	if fn == FunctionWrite && declared != writeReplySize {
		return nil, protocolError(fmt.Sprintf("write reply length %d (expected %d)", declared, writeReplySize),
			map[string]interface{}{"declared": declared, "expected": writeReplySize})
	}
	if declared != n {
		return nil, protocolError(fmt.Sprintf("reply length %d, header says %d", n, declared),
			map[string]interface{}{"declared": declared, "received": n})
	}

	if fn == FunctionWrite {
		return []byte{}, nil
	}
	if n < minReadReply {
		return nil, protocolError(fmt.Sprintf("read reply length %d shorter than header", n),
			map[string]interface{}{"length": n})
	}

	payload := make([]byte, n-minReadReply)
	copy(payload, r.Payload())
	return payload, nil
}

func protocolError(msg string, details map[string]interface{}) *VerifyError {
	return &VerifyError{Kind: FailureProtocol, Message: msg, Details: details}
}
