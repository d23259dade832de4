// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/prtlink/internal/metrics"
	"github.com/Thermoquad/prtlink/internal/poller"
	"github.com/Thermoquad/prtlink/pkg/prt"
)

// Event log entry
type eventEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors and warnings
}

// Messages
type tickMsg time.Time
type pollMsg poller.PollResult
type logMsg string

// TUI model
type monitorModel struct {
	connInfo  string
	interval  time.Duration
	line      func() prt.StatisticsSnapshot
	table     table.Model
	lastPoll  time.Time
	polls     int
	failed    int
	events    []eventEntry
	maxEvents int
	width     int
	height    int
	quitting  bool
}

var monitorColumns = []table.Column{
	{Title: "Stat", Width: 4},
	{Title: "Name", Width: 12},
	{Title: "Temp", Width: 7},
	{Title: "Target", Width: 6},
	{Title: "Frost", Width: 5},
	{Title: "Mode", Width: 6},
	{Title: "Heat", Width: 4},
	{Title: "Clock", Width: 12},
	{Title: "Err%", Width: 7},
	{Title: "Status", Width: 12},
}

// formatDuration formats an elapsed time as a human-friendly string
func formatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, unit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, unit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, unit(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, unit(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialMonitorModel(connInfo string, interval time.Duration, line func() prt.StatisticsSnapshot) monitorModel {
	t := table.New(
		table.WithColumns(monitorColumns),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return monitorModel{
		connInfo:  connInfo,
		interval:  interval,
		line:      line,
		table:     t,
		events:    make([]eventEntry, 0),
		maxEvents: 100,
		width:     80,
		height:    24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// Redraw line statistics and the poll age
		return m, tickCmd()

	case pollMsg:
		m.applyPoll(poller.PollResult(msg))

	case logMsg:
		text := strings.TrimSpace(string(msg))
		if text != "" {
			m.addEvent(text, strings.HasPrefix(text, "ERR") || strings.HasPrefix(text, "WRN"))
		}
	}

	return m, nil
}

func (m *monitorModel) applyPoll(res poller.PollResult) {
	m.lastPoll = res.At
	m.polls++
	m.failed = res.Failed

	rows := make([]table.Row, 0, len(res.Readings))
	for _, r := range res.Readings {
		heat := "off"
		if r.Heating {
			heat = "ON"
		}
		status := "OK"
		if r.SoftErrors > 0 {
			status = fmt.Sprintf("OK (%d retry)", r.SoftErrors)
		}
		if r.Stale {
			status = "STALE"
			m.addEvent(fmt.Sprintf("%s (stat %d): %v", readingName(r), r.Address, r.Err), true)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", r.Address),
			readingName(r),
			fmt.Sprintf("%.1f°C", r.Current),
			fmt.Sprintf("%d", r.Target),
			fmt.Sprintf("%d", r.Frost),
			r.RunMode.String(),
			heat,
			r.DayTime,
			fmt.Sprintf("%.2f", r.Statistics.Read.ErrorRate()*100),
			status,
		})
	}
	m.table.SetRows(rows)
}

func (m *monitorModel) addEvent(message string, isError bool) {
	m.events = append(m.events, eventEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("PRTLINK - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Interval: %s | Press 'q' to quit", m.connInfo, m.interval)))
	s.WriteString("\n\n")

	// Line statistics
	stats := m.line()
	soft := stats.Read.SoftErrors() + stats.Write.SoftErrors()
	hard := stats.Read.Hard + stats.Write.Hard

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Reads:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.Read.Transactions)),
		statsLabelStyle.Render("Writes:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.Write.Transactions)),
		statsLabelStyle.Render("Up:"), statsValueStyle.Render(formatDuration(time.Since(stats.StartTime))),
	))

	countStyle := func(n uint64, style lipgloss.Style) string {
		if n == 0 {
			return statsValueStyle.Render("0")
		}
		return style.Render(fmt.Sprintf("%d", n))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s (%s %d, %s %d, %s %d)   %s %s   %s %s",
		statsLabelStyle.Render("Retried:"), countStyle(soft, warningStyle),
		headerStyle.Render("crc"), stats.Read.Checksum+stats.Write.Checksum,
		headerStyle.Render("ndr"), stats.Read.NoData+stats.Write.NoData,
		headerStyle.Render("oth"), stats.Read.Protocol+stats.Write.Protocol,
		statsLabelStyle.Render("Hard:"), countStyle(hard, errorStyle),
		statsLabelStyle.Render("Read Err:"), statsValueStyle.Render(fmt.Sprintf("%.3f%%", stats.Read.ErrorRate()*100)),
	))
	if reconnects := stats.Read.Connection + stats.Write.Connection; reconnects > 0 {
		statsContent.WriteString(fmt.Sprintf("\n%s %s",
			statsLabelStyle.Render("Reconnects:"), errorStyle.Render(fmt.Sprintf("%d", reconnects))))
	}

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Thermostats
	if m.polls == 0 {
		s.WriteString(warningStyle.Render("⏳ Waiting for first poll..."))
	} else {
		s.WriteString(statsLabelStyle.Render("Thermostats:"))
		s.WriteString(headerStyle.Render(fmt.Sprintf(" poll %d at %s, %d failed",
			m.polls, m.lastPoll.Format("15:04:05"), m.failed)))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(m.table.View()))
	}
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 24 // Reserve space for header, stats and table
	if logHeight < 3 {
		logHeight = 3
	}

	logContent := strings.Builder{}
	startIdx := len(m.events) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.events) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.events); i++ {
			entry := m.events[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func runMonitorTUI(ctx context.Context, stop context.CancelFunc, connInfo string, interval time.Duration,
	t *prt.Transport, results <-chan poller.PollResult, collector *metrics.Collector, logSink *programWriter) error {
	m := initialMonitorModel(connInfo, interval, t.Statistics)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if logSink != nil {
		logSink.program.Store(p)
		defer logSink.program.Store(nil)
	}

	// Forward poll results until shutdown
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.Quit()
				return
			case res := <-results:
				if collector != nil {
					collector.Observe(res)
				}
				p.Send(pollMsg(res))
			}
		}
	}()

	_, err := p.Run()
	stop()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
