// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package prt

import (
	"fmt"
	"strings"
	"time"
)

// FormatHex renders bytes as space separated hex
func FormatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// FormatRequest formats an outgoing frame into a human-readable string
func FormatRequest(r Request, at time.Time) string {
	timestamp := at.Format("15:04:05.000")
	if len(r) < requestOverhead {
		return fmt.Sprintf("[%s] TX short frame len=%d: %s\n", timestamp, len(r), FormatHex(r))
	}

	result := fmt.Sprintf("[%s] TX %s stat=%d len=%d start=%d count=%d\n",
		timestamp, r.Function(), r.Destination(), r.Length(), r.Start(), r.Count())
	if p := r.Payload(); len(p) > 0 {
		result += fmt.Sprintf("  Data: %s\n", FormatHex(p))
	}
	result += fmt.Sprintf("  Raw: %s\n", FormatHex(r))
	return result
}

// FormatReply formats a received frame. The frame is not verified; fields
// are printed for whatever header bytes are present.
func FormatReply(raw []byte, at time.Time) string {
	timestamp := at.Format("15:04:05.000")
	if len(raw) < minReplySize {
		return fmt.Sprintf("[%s] RX short frame len=%d: %s\n", timestamp, len(raw), FormatHex(raw))
	}

	r := Reply(raw)
	result := fmt.Sprintf("[%s] RX %s stat=%d dest=%d len=%d (declared %d)\n",
		timestamp, r.Function(), r.Source(), r.Destination(), len(raw), r.DeclaredLength())
	if p := r.Payload(); len(p) > 0 {
		result += fmt.Sprintf("  DCB: %d bytes\n", len(p))
	}
	result += fmt.Sprintf("  Raw: %s\n", FormatHex(raw))
	return result
}

// FormatDCB lists every decoded attribute, one per line
func FormatDCB(d *DCB) string {
	fields := d.Fields()

	width := 0
	for _, f := range fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "  %-*s %s\n", width+1, f.Name+":", f.Value)
	}
	return b.String()
}

// FormatFailure describes a failed transaction for display
func FormatFailure(res Result) string {
	if res.OK() {
		return "OK"
	}
	t := res.Failures
	return fmt.Sprintf("%s (crc=%d ndr=%d oth=%d conn=%d)",
		res.Status, t.Checksum, t.NoData, t.Protocol, t.Connection)
}
