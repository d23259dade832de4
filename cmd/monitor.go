// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfg "github.com/Thermoquad/prtlink/internal/config"
	"github.com/Thermoquad/prtlink/internal/metrics"
	"github.com/Thermoquad/prtlink/internal/poller"
)

var (
	monitorInterval time.Duration
	monitorTUI      bool
	monitorListen   string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [id...]",
	Short: "Poll thermostats on a fixed interval",
	Long: `Poll every thermostat on a fixed interval and show the decoded state.

Thermostats come from the ids on the command line, or from the thermostats
section of --config. A thermostat whose read fails keeps its previous values
and is marked stale.

Output modes:
  default: one line per thermostat per poll
  --tui:   interactive table with line statistics and an event log

With --metrics-listen (or metrics.listen in the config file) the readings and
line statistics are also served to Prometheus at /metrics.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 0, "Poll interval (default 60s or poll.interval_ms)")
	monitorCmd.Flags().BoolVar(&monitorTUI, "tui", false, "Show an interactive table")
	monitorCmd.Flags().StringVar(&monitorListen, "metrics-listen", "", "Serve Prometheus metrics on this address (e.g. :9120)")
}

// monitorConfig merges the config file with the command line. Ids given as
// arguments replace the configured thermostat list.
func monitorConfig(c *cfg.Config, args []string) (*cfg.Config, error) {
	if c == nil {
		c = &cfg.Config{}
	}

	if len(args) > 0 {
		addrs, err := parseAddresses(args)
		if err != nil {
			return nil, err
		}
		stats := make([]cfg.ThermostatConfig, 0, len(addrs))
		for _, a := range addrs {
			stats = append(stats, cfg.ThermostatConfig{ID: int(a), Name: nameFor(c, a)})
		}
		c.Thermostats = stats
	}
	if len(c.Thermostats) == 0 {
		return nil, fmt.Errorf("no thermostats: give ids or a config file with a thermostats section")
	}

	if monitorInterval < 0 {
		return nil, fmt.Errorf("--interval must not be negative")
	}
	if monitorInterval > 0 {
		c.Poll.IntervalMs = int(monitorInterval.Milliseconds())
	}
	if monitorListen != "" {
		c.Metrics.Listen = monitorListen
	}

	cfg.Normalize(c)
	return c, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := monitorConfig(fileCfg, args)
	if err != nil {
		return err
	}

	// In TUI mode log events go to the event pane instead of the terminal
	var logSink *programWriter
	if monitorTUI {
		logSink = &programWriter{}
		logger = logger.Output(zerolog.ConsoleWriter{Out: logSink, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}})
	}

	t, connInfo, err := OpenTransport(c)
	if err != nil {
		return err
	}
	defer t.Close()

	p, handles, err := poller.Build(c, t, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if c.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		collector, err = metrics.New(reg, t.Statistics)
		if err != nil {
			return err
		}
		srv := serveMetrics(c.Metrics.Listen, reg)
		defer srv.Close()
	}

	results := make(chan poller.PollResult)
	go p.Run(ctx, results)

	if monitorTUI {
		return runMonitorTUI(ctx, stop, connInfo, c.Poll.Interval(), t, results, collector, logSink)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "prtlink - Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Thermostats: %d, interval %s\n", len(handles), c.Poll.Interval())
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			fmt.Fprint(out, t.Statistics())
			return nil
		case res := <-results:
			if collector != nil {
				collector.Observe(res)
			}
			printPollResult(out, res)
		}
	}
}

func serveMetrics(listen string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info().Str("listen", listen).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

// formatReading renders one thermostat as a single line
func formatReading(r poller.Reading) string {
	heat := "off"
	if r.Heating {
		heat = "ON"
	}
	line := fmt.Sprintf("%-12s %2d  %5.1f°C  target %2d  frost %2d  %-6s heat %-3s  %s",
		readingName(r), r.Address, r.Current, r.Target, r.Frost, r.RunMode, heat, r.DayTime)
	if r.Stale {
		line += "  STALE"
		if r.Err != nil {
			line += ": " + r.Err.Error()
		}
	}
	return line
}

func readingName(r poller.Reading) string {
	if r.Name != "" {
		return r.Name
	}
	return "stat" + strconv.Itoa(int(r.Address))
}

func printPollResult(w io.Writer, res poller.PollResult) {
	fmt.Fprintf(w, "[%s] %d thermostats, %d failed\n", res.At.Format("15:04:05"), len(res.Readings), res.Failed)
	for _, r := range res.Readings {
		fmt.Fprintf(w, "  %s\n", formatReading(r))
	}
}

// programWriter forwards log output to a running TUI
type programWriter struct {
	program atomic.Pointer[tea.Program]
}

func (w *programWriter) Write(p []byte) (int, error) {
	if prog := w.program.Load(); prog != nil {
		prog.Send(logMsg(string(p)))
	}
	return len(p), nil
}
