// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

var (
	lineTestCount int
)

var lineTestCmd = &cobra.Command{
	Use:   "line_test <id>",
	Short: "Measure line quality with repeated reads of one thermostat",
	Long: `Read the full register block of one thermostat --count times and print the
line statistics: transactions, checksum failures, silent replies, other protocol
violations and hard failures.

Exit codes:
  0 - Every read succeeded (retries are allowed)
  1 - At least one read hit a hard failure
  2 - Connection error

Useful for checking RS-485 wiring, termination and bridge setup.`,
	Args: cobra.ExactArgs(1),
	RunE: runLineTest,
}

func init() {
	rootCmd.AddCommand(lineTestCmd)
	lineTestCmd.Flags().IntVarP(&lineTestCount, "count", "n", 100, "Number of reads")
}

// lineTest runs count reads and returns the number of hard failures
func lineTest(h *prt.Thermostat, count int, progress func(i int, res prt.Result)) int {
	hard := 0
	for i := 0; i < count; i++ {
		res := h.Update()
		if !res.OK() {
			hard++
		}
		if progress != nil {
			progress(i, res)
		}
	}
	return hard
}

func runLineTest(cmd *cobra.Command, args []string) error {
	addrs, err := parseAddresses(args)
	if err != nil {
		return err
	}
	if lineTestCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	c, err := loadConfig()
	if err != nil {
		return err
	}

	t, connInfo, err := OpenTransport(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	h, err := prt.NewThermostat(addrs[0], nameFor(c, addrs[0]), t)
	if err != nil {
		t.Close()
		return err
	}

	fmt.Printf("prtlink - Line Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Thermostat: %s\n", h)
	fmt.Printf("Reads: %d\n\n", lineTestCount)

	hard := lineTest(h, lineTestCount, func(i int, res prt.Result) {
		switch {
		case !res.OK():
			fmt.Printf("  read %d: %s\n", i+1, prt.FormatFailure(res))
		case res.SoftErrors > 0:
			fmt.Printf("  read %d: OK after %d retries\n", i+1, res.SoftErrors)
		}
	})

	fmt.Println()
	fmt.Print(t.Statistics())

	h.Close()
	t.Close()

	if hard > 0 {
		fmt.Fprintf(os.Stderr, "FAILED: %d of %d reads hit a hard failure\n", hard, lineTestCount)
		os.Exit(1)
	}
	fmt.Printf("SUCCESS: %d reads\n", lineTestCount)
	return nil
}
