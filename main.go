// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// prtlink - Heatmiser PRT RS-485 thermostat tool
//
// A CLI tool for reading, configuring and monitoring Heatmiser PRT
// thermostats over a serial line or a network serial bridge.

package main

import (
	"os"

	"github.com/Thermoquad/prtlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
