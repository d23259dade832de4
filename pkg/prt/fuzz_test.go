// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Verify Fuzz Tests
// ============================================================

// TestFuzzVerify_RandomBytes feeds random bytes to Verify and checks that
// it never panics and always classifies the failure
func TestFuzzVerify_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(MaxReplySize+20))
		rng.Read(data)

		fn := Function(rng.Intn(2))
		_, err := Verify(Address(rng.Intn(MaxAddress)+1), fn, data)
		if err == nil {
			continue
		}
		if kind := KindOf(err); kind == FailureConnection || kind == FailureHard {
			t.Fatalf("verification failure classified as %s: %v", kind, err)
		}
	}
}

// TestFuzzVerify_RandomValidReplies builds well-formed replies with random
// contents and checks that the DCB comes back unchanged
func TestFuzzVerify_RandomValidReplies(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		addr := Address(rng.Intn(MaxAddress) + 1)
		dest := uint8(MasterAddress)
		if rng.Intn(2) == 1 {
			dest = AltMasterAddress
		}

		dcb := make([]byte, rng.Intn(MaxReplyDCB+1))
		rng.Read(dcb)

		payload, err := Verify(addr, FunctionRead, buildReadReply(dest, addr, dcb))
		if err != nil {
			t.Fatalf("round %d: valid reply rejected: %v", i, err)
		}
		if !bytes.Equal(payload, dcb) {
			t.Fatalf("round %d: payload mismatch", i)
		}
	}
}

// TestFuzzVerify_RandomBitFlips flips one random bit of a valid reply
func TestFuzzVerify_RandomBitFlips(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		addr := Address(rng.Intn(MaxAddress) + 1)

		var raw []byte
		fn := FunctionRead
		if rng.Intn(4) == 0 {
			fn = FunctionWrite
			raw = buildWriteReply(MasterAddress, addr)
		} else {
			dcb := make([]byte, rng.Intn(MaxReplyDCB+1))
			rng.Read(dcb)
			raw = buildReadReply(MasterAddress, addr, dcb)
		}

		bit := rng.Intn(len(raw) * 8)
		raw[bit/8] ^= 1 << (bit % 8)

		if _, err := Verify(addr, fn, raw); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("round %d: flipped bit %d of %d-byte %s reply: expected ErrChecksumMismatch, got %v",
				i, bit, len(raw), fn, err)
		}
	}
}
