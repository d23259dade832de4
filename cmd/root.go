// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// TCP bridge flags
	busHost string
	busPort int

	// Local serial flag
	busDevice string

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath string
	verbosity  int

	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "prtlink",
	Short: "Heatmiser PRT RS-485 thermostat tool",
	Long: `prtlink - A CLI tool for reading and configuring Heatmiser PRT thermostats
on an RS-485 line.

Every transaction is checksummed and retried; failed reads keep the previous
values rather than reporting garbage.

Connection modes:
  TCP bridge: --host 192.168.1.50 --port 1024
  WebSocket:  --url ws://host/path [--username user]
  Serial:     --device /dev/ttyUSB0 (4800 baud 8N1)

Exactly one mode must be given, either by flags or in the bus section of
--config. Flags win over the file.

For WebSocket authentication, the password is read from the PRTLINK_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogger,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&busHost, "host", "", "Serial bridge host (TCP)")
	rootCmd.PersistentFlags().IntVar(&busPort, "port", 0, "Serial bridge port (TCP)")

	rootCmd.PersistentFlags().StringVarP(&busDevice, "device", "d", "", "Local serial device")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML bus configuration file")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
}

func setupLogger(cmd *cobra.Command, args []string) error {
	level := zerolog.WarnLevel
	switch {
	case verbosity >= 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
