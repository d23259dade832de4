// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Frame Builder Tests
// ============================================================

func TestBuildReadAll(t *testing.T) {
	frame := BuildReadAll(5)

	expected := AppendChecksum([]byte{5, 10, 129, 0, 0, 0, 0xFF, 0xFF})
	if !bytes.Equal(frame, expected) {
		t.Fatalf("read-all frame: expected % X, got % X", expected, []byte(frame))
	}
	if frame.Destination() != 5 || frame.Function() != FunctionRead {
		t.Errorf("header decoded as dest=%d fn=%s", frame.Destination(), frame.Function())
	}
	if frame.Count() != 0xFFFF || frame.Start() != 0 {
		t.Errorf("expected start=0 count=0xFFFF, got start=%d count=0x%04X", frame.Start(), frame.Count())
	}
	if len(frame.Payload()) != 0 {
		t.Errorf("read-all should carry no data, got % X", frame.Payload())
	}
}

func TestBuildWrite(t *testing.T) {
	frame, err := BuildWrite(7, OffsetTargetTemp, []byte{21})
	if err != nil {
		t.Fatalf("BuildWrite failed: %v", err)
	}

	expected := AppendChecksum([]byte{7, 11, 129, 1, 18, 0, 1, 0, 21})
	if !bytes.Equal(frame, expected) {
		t.Fatalf("write frame: expected % X, got % X", expected, []byte(frame))
	}
	if frame.Length() != 11 {
		t.Errorf("declared length %d, expected 11", frame.Length())
	}
	if frame.Start() != OffsetTargetTemp || frame.Count() != 1 {
		t.Errorf("expected start=%d count=1, got start=%d count=%d", OffsetTargetTemp, frame.Start(), frame.Count())
	}
	if !bytes.Equal(frame.Payload(), []byte{21}) {
		t.Errorf("payload % X", frame.Payload())
	}
}

func TestBuildWrite_MultiByte(t *testing.T) {
	frame, err := BuildWrite(3, 0x0102, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("BuildWrite failed: %v", err)
	}
	if frame.Length() != 13 || frame.Count() != 3 || frame.Start() != 0x0102 {
		t.Errorf("unexpected header: len=%d start=0x%04X count=%d", frame.Length(), frame.Start(), frame.Count())
	}
	if len(frame) != 13 {
		t.Errorf("frame length %d, expected 13", len(frame))
	}
}

func TestBuildWrite_PayloadLimits(t *testing.T) {
	frame, err := BuildWrite(3, 0, make([]byte, MaxWritePayload))
	if err != nil {
		t.Fatalf("largest payload rejected: %v", err)
	}
	if frame.Length() != 0xFF || len(frame) != 0xFF {
		t.Errorf("declared length %d, frame length %d, expected 255", frame.Length(), len(frame))
	}

	for _, n := range []int{0, MaxWritePayload + 1, 300} {
		if _, err := BuildWrite(3, 0, make([]byte, n)); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("payload of %d bytes: expected ErrOutOfRange, got %v", n, err)
		}
	}
}

func TestParseAddress(t *testing.T) {
	for _, n := range []int{1, 16, 32} {
		if _, err := ParseAddress(n); err != nil {
			t.Errorf("ParseAddress(%d) failed: %v", n, err)
		}
	}
	for _, n := range []int{-1, 0, 33, 129} {
		if _, err := ParseAddress(n); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ParseAddress(%d) = %v, want ErrInvalidAddress", n, err)
		}
	}
}

// ============================================================
// Verify Tests
// ============================================================

func TestVerify_RoundTripFullBlock(t *testing.T) {
	req := BuildReadAll(5)

	dcb := make([]byte, DCBSize)
	for i := range dcb {
		dcb[i] = byte(255 - i)
	}
	reply := buildReadReply(MasterAddress, req.Destination(), dcb)

	payload, err := Verify(req.Destination(), req.Function(), reply)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !bytes.Equal(payload, dcb) {
		t.Fatal("payload differs from the block that was sent")
	}

	// The payload must not alias the raw buffer
	reply[readHeaderSize] ^= 0xFF
	if payload[0] != dcb[0] {
		t.Error("payload shares memory with the reply")
	}
}

func TestVerify_AltMasterAddress(t *testing.T) {
	reply := buildReadReply(AltMasterAddress, 9, sampleDCB())
	if _, err := Verify(9, FunctionRead, reply); err != nil {
		t.Errorf("reply to master 160 rejected: %v", err)
	}
}

func TestVerify_WriteAck(t *testing.T) {
	payload, err := Verify(4, FunctionWrite, buildWriteReply(MasterAddress, 4))
	if err != nil {
		t.Fatalf("write ack rejected: %v", err)
	}
	if len(payload) != 0 {
		t.Errorf("write ack payload should be empty, got % X", payload)
	}
}

func TestVerify_ShortFrames(t *testing.T) {
	for n := 0; n < 3; n++ {
		raw := make([]byte, n)
		_, err := Verify(1, FunctionRead, raw)
		if !errors.Is(err, ErrNoDataReceived) {
			t.Errorf("length %d: expected ErrNoDataReceived, got %v", n, err)
		}
		if KindOf(err) != FailureNoData {
			t.Errorf("length %d: kind %s", n, KindOf(err))
		}
	}
}

func TestVerify_Rejections(t *testing.T) {
	good := buildReadReply(MasterAddress, 5, sampleDCB())

	tests := []struct {
		name string
		addr Address
		fn   Function
		raw  []byte
		want error
	}{
		{
			name: "bad checksum",
			addr: 5,
			fn:   FunctionRead,
			raw:  corruptTrailer(good),
			want: ErrChecksumMismatch,
		},
		{
			name: "bad destination",
			addr: 5,
			fn:   FunctionRead,
			raw:  buildReadReply(42, 5, sampleDCB()),
			want: ErrProtocolViolation,
		},
		{
			name: "wrong source",
			addr: 6,
			fn:   FunctionRead,
			raw:  good,
			want: ErrProtocolViolation,
		},
		{
			name: "unknown function",
			addr: 5,
			fn:   FunctionRead,
			raw:  AppendChecksum([]byte{MasterAddress, 11, 0, 5, 7, 0, 0, 0, 0}),
			want: ErrProtocolViolation,
		},
		{
			name: "function mismatch",
			addr: 5,
			fn:   FunctionWrite,
			raw:  good,
			want: ErrProtocolViolation,
		},
		{
			name: "declared length mismatch",
			addr: 5,
			fn:   FunctionRead,
			raw:  AppendChecksum([]byte{MasterAddress, 40, 0, 5, 0, 0, 0, 0, 0, 1, 2}),
			want: ErrProtocolViolation,
		},
		{
			name: "header shorter than minimum",
			addr: 5,
			fn:   FunctionRead,
			raw:  AppendChecksum([]byte{MasterAddress, 5, 0}),
			want: ErrProtocolViolation,
		},
		{
			name: "read reply without start and count",
			addr: 5,
			fn:   FunctionRead,
			raw:  AppendChecksum([]byte{MasterAddress, 7, 0, 5, 0}),
			want: ErrProtocolViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Verify(tt.addr, tt.fn, tt.raw)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if payload != nil {
				t.Errorf("rejected frame returned payload % X", payload)
			}
			var verr *VerifyError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *VerifyError, got %T", err)
			}
			if verr.Message == "" {
				t.Error("VerifyError should carry a message")
			}
		})
	}
}

func TestVerify_WriteReplyLength(t *testing.T) {
	// Write acks of every other length are rejected even when self-consistent
	for extra := 1; extra <= 20; extra++ {
		n := writeReplySize + extra
		frame := make([]byte, n-trailerSize)
		frame[0] = MasterAddress
		frame[1] = byte(n)
		frame[3] = 4
		frame[4] = byte(FunctionWrite)
		raw := AppendChecksum(frame)

		if _, err := Verify(4, FunctionWrite, raw); !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("write reply of %d bytes: expected ErrProtocolViolation, got %v", n, err)
		}
	}
}

func TestVerify_Ordering(t *testing.T) {
	// Checksum is checked before addresses
	bad := buildReadReply(42, 9, sampleDCB())
	if _, err := Verify(5, FunctionRead, corruptTrailer(bad)); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected checksum failure first, got %v", err)
	}

	// Destination before source
	_, err := Verify(5, FunctionRead, bad)
	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *VerifyError, got %v", err)
	}
	if _, ok := verr.Details["destination"]; !ok {
		t.Errorf("expected destination failure first, got %v", err)
	}
}

func TestVerify_SingleBitFlips(t *testing.T) {
	good := buildReadReply(MasterAddress, 12, sampleDCB())

	for i := 0; i < len(good)*8; i++ {
		raw := append([]byte(nil), good...)
		raw[i/8] ^= 1 << (i % 8)

		_, err := Verify(12, FunctionRead, raw)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("bit %d flipped: expected ErrChecksumMismatch, got %v", i, err)
		}
	}
}

func corruptTrailer(frame []byte) []byte {
	raw := append([]byte(nil), frame...)
	raw[len(raw)-1] ^= 0x5A
	return raw
}
