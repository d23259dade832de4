// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/prtlink/pkg/prt"
)

var setCmd = &cobra.Command{
	Use:   "set <id> target|frost|mode <value>",
	Short: "Write a single setting to a thermostat",
	Long: `Write one setting to a thermostat, then read it back.

Settings:
  target <5-35>        heating setpoint in °C
  frost  <7-17>        frost protection setpoint in °C
  mode   normal|frost  run mode

Values are checked before anything is sent to the line.`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

// applySetting validates and writes one setting on the handle
func applySetting(h *prt.Thermostat, setting, value string) (prt.Result, error) {
	switch setting {
	case "target", "frost":
		temp, err := strconv.Atoi(value)
		if err != nil {
			return prt.Result{}, fmt.Errorf("%w: %q is not a temperature", prt.ErrOutOfRange, value)
		}
		if setting == "target" {
			return h.SetTargetTemperature(temp)
		}
		return h.SetFrostTemperature(temp)
	case "mode":
		mode, err := prt.ParseRunMode(value)
		if err != nil {
			return prt.Result{}, err
		}
		return h.SetRunMode(mode)
	}
	return prt.Result{}, fmt.Errorf("unknown setting %q (use target, frost or mode)", setting)
}

func runSet(cmd *cobra.Command, args []string) error {
	addrs, err := parseAddresses(args[:1])
	if err != nil {
		return err
	}
	addr := addrs[0]

	c, err := loadConfig()
	if err != nil {
		return err
	}

	t, connInfo, err := OpenTransport(c)
	if err != nil {
		return err
	}
	defer t.Close()

	h, err := prt.NewThermostat(addr, nameFor(c, addr), t)
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connection: %s\n", connInfo)

	res, err := applySetting(h, args[1], args[2])
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%s: write %s failed: %s: %w", h, args[1], prt.FormatFailure(res), res.Err)
	}

	if res := h.Update(); !res.OK() {
		fmt.Fprintf(out, "%s: %s written, read back failed: %s\n", h, args[1], prt.FormatFailure(res))
		return nil
	}

	d := h.DCB()
	fmt.Fprintf(out, "%s: target %d°C, frost %d°C, mode %s\n",
		h, d.TargetTemperature(), d.FrostTemperature(), d.RunMode())
	return nil
}
