// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

var (
	readCBOR bool
	readRaw  bool
)

var readCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Read and decode the full register block of thermostats",
	Long: `Read the whole data control block of each thermostat and print every
decoded attribute, followed by the per-thermostat read and write statistics.

With --raw every frame on the line is also dumped to stderr as it is sent or
received, with a decoded header and a hex dump.

With --cbor one CBOR snapshot per thermostat is written to stdout instead of
the text listing, for handing state to other tools.

Exits non-zero if any thermostat could not be read.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readCBOR, "cbor", false, "Write CBOR snapshots to stdout")
	readCmd.Flags().BoolVar(&readRaw, "raw", false, "Dump every frame to stderr")
}

// frameTrace prints frames as they cross the line
func frameTrace(w io.Writer) prt.TraceFunc {
	return func(sent bool, frame []byte) {
		if sent {
			fmt.Fprint(w, prt.FormatRequest(prt.Request(frame), time.Now()))
			return
		}
		fmt.Fprint(w, prt.FormatReply(frame, time.Now()))
	}
}

func runRead(cmd *cobra.Command, args []string) error {
	addrs, err := parseAddresses(args)
	if err != nil {
		return err
	}

	c, err := loadConfig()
	if err != nil {
		return err
	}

	var extra []prt.Option
	if readRaw {
		extra = append(extra, prt.WithTrace(frameTrace(cmd.ErrOrStderr())))
	}

	t, connInfo, err := OpenTransport(c, extra...)
	if err != nil {
		return err
	}
	defer t.Close()

	out := cmd.OutOrStdout()
	if !readCBOR {
		fmt.Fprintf(out, "Connection: %s\n\n", connInfo)
	}

	failed := 0
	for _, addr := range addrs {
		ok, err := readOne(out, t, addr, nameFor(c, addr))
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d thermostats could not be read", failed, len(addrs))
	}
	return nil
}

func readOne(out io.Writer, t *prt.Transport, addr prt.Address, name string) (bool, error) {
	h, err := prt.NewThermostat(addr, name, t)
	if err != nil {
		return false, err
	}
	defer h.Close()

	res := h.Update()

	if readCBOR {
		data, err := prt.EncodeSnapshot(prt.NewSnapshot(h, res, time.Now()))
		if err != nil {
			return false, err
		}
		if _, err := out.Write(data); err != nil {
			return false, err
		}
		return res.OK(), nil
	}

	fmt.Fprintf(out, "=== %s ===\n", h)
	if !res.OK() {
		fmt.Fprintf(out, "  %s: %v\n\n", prt.FormatFailure(res), res.Err)
		return false, nil
	}

	fmt.Fprint(out, prt.FormatDCB(h.DCB()))
	stats := h.Statistics()
	fmt.Fprintf(out, "  Read stats (err%% crc ndr oth hard): %s\n", stats.ReadSummary())
	fmt.Fprintf(out, "  Write stats (n crc ndr oth hard):   %s\n", stats.WriteSummary())
	if res.SoftErrors > 0 {
		fmt.Fprintf(out, "  Succeeded after %d retries\n", res.SoftErrors)
	}
	fmt.Fprintln(out)
	return true, nil
}
