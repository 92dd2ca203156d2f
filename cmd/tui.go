// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/actuatorctl/pkg/actuator"
	"github.com/Thermoquad/actuatorctl/pkg/canbus"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// queryFunc sends a query without waiting; the report arrives through the
// receive loop
type queryFunc func(op string) error

// monitorKeys are the key bindings of the monitor
type monitorKeys struct {
	Version key.Binding
	UID     key.Binding
	ShowAll key.Binding
	Clear   key.Binding
	Quit    key.Binding
}

func (k monitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Version, k.UID, k.ShowAll, k.Clear, k.Quit}
}

func (k monitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultMonitorKeys() monitorKeys {
	return monitorKeys{
		Version: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "query version")),
		UID:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "query id")),
		ShowAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all frames")),
		Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear log")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// TUI model
type monitorModel struct {
	connInfo      string
	reportAddress uint32
	showAll       bool
	query         queryFunc

	stats         *actuator.Statistics
	eventLog      []logEntry
	maxLogEntries int
	lastVersion   *actuator.SoftwareRevisionReport
	lastUID       *actuator.UniqueDeviceIDReport
	receiving     bool
	stopped       bool
	started       time.Time

	spinner spinner.Model
	help    help.Model
	keys    monitorKeys

	width    int
	height   int
	quitting bool
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	frame     canbus.Frame
	at        time.Time
	report    actuator.Report
	decodeErr error
	anomalies []actuator.ValidationError
}
type timeoutMsg struct{}
type receiveErrMsg struct{ err error }
type receiverDoneMsg struct{ err error }
type queryResultMsg struct {
	op  string
	err error
}

func newMonitorModel(connInfo string, reportAddress uint32, showAll bool, query queryFunc) monitorModel {
	return monitorModel{
		connInfo:      connInfo,
		reportAddress: reportAddress,
		showAll:       showAll,
		query:         query,
		stats:         actuator.NewStatistics(),
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		started:       time.Now(),
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:          help.New(),
		keys:          defaultMonitorKeys(),
		width:         80,
		height:        24,
	}
}

// newFrameMsg decodes and validates a received frame for the model
func newFrameMsg(f canbus.Frame, reportAddress uint32) frameMsg {
	report, err := classifyFrame(f, reportAddress)
	return frameMsg{
		frame:     f,
		at:        time.Now(),
		report:    report,
		decodeErr: err,
		anomalies: actuator.ValidateFrame(f.ID, f.Payload(), reportAddress),
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) sendQuery(op string) tea.Cmd {
	query := m.query
	return func() tea.Msg {
		if query == nil {
			return queryResultMsg{op: op, err: fmt.Errorf("queries not available")}
		}
		return queryResultMsg{op: op, err: query(op)}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Version):
			return m, m.sendQuery(actuator.OpSoftwareVersion)
		case key.Matches(msg, m.keys.UID):
			return m, m.sendQuery(actuator.OpUniqueDeviceID)
		case key.Matches(msg, m.keys.ShowAll):
			m.showAll = !m.showAll
		case key.Matches(msg, m.keys.Clear):
			m.eventLog = m.eventLog[:0]
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case spinner.TickMsg:
		if m.receiving || m.stopped {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case frameMsg:
		m.handleFrame(msg)

	case timeoutMsg:
		m.stats.UpdateTimeout()

	case receiveErrMsg:
		m.stats.UpdateError()
		m.addLogEntry(fmt.Sprintf("RECEIVE ERROR: %v", msg.err), true)

	case receiverDoneMsg:
		m.stopped = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Receiver stopped: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection lost, receiver stopped", true)
		}

	case queryResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s query failed: %v", msg.op, msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("%s query sent", msg.op), false)
		}
	}

	return m, nil
}

func (m *monitorModel) handleFrame(msg frameMsg) {
	if !m.receiving {
		m.receiving = true
		m.addLogEntry("Receiving frames", false)
	}
	m.stats.UpdateFrame(msg.frame, msg.report, msg.decodeErr, msg.anomalies)

	opName := actuator.FormatOpcode(firstByte(msg.frame))
	switch r := msg.report.(type) {
	case *actuator.SoftwareRevisionReport:
		m.lastVersion = r
		m.addLogEntry(fmt.Sprintf("Software version %s", r.SoftwareVersion()), false)
	case *actuator.UniqueDeviceIDReport:
		m.lastUID = r
		m.addLogEntry(fmt.Sprintf("Actuator ID %012X", r.ActuatorIDPart()), false)
	default:
		if msg.decodeErr != nil {
			m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", msg.decodeErr), true)
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("%s %s", opName, msg.frame), false)
		}
	}

	for _, a := range msg.anomalies {
		m.addLogEntry(fmt.Sprintf("%s: %s", opName, a.Message), true)
	}
}

func firstByte(f canbus.Frame) byte {
	if p := f.Payload(); len(p) > 0 {
		return p[0]
	}
	return 0
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// formatUptime formats a duration in milliseconds to a human-friendly string
func formatUptime(ms uint64) string {
	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	parts := []string{}
	for _, p := range []struct {
		n    uint64
		unit string
	}{{days, "day"}, {hours, "hour"}, {minutes, "minute"}} {
		switch {
		case p.n == 1:
			parts = append(parts, "1 "+p.unit)
		case p.n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", p.n, p.unit))
		}
	}
	if seconds == 1 {
		parts = append(parts, "1 second")
	} else if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d seconds", seconds))
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

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("ACTUATOR MONITOR"))
	s.WriteString("\n")
	mode := "Reports and errors"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Report ID: 0x%08X | Mode: %s | Up %s",
		m.connInfo, m.reportAddress, mode, formatUptime(uint64(time.Since(m.started).Milliseconds())))))
	s.WriteString("\n\n")

	// Receive status
	switch {
	case m.stopped:
		s.WriteString(errorStyle.Render("✗ Receiver stopped"))
	case m.receiving:
		s.WriteString(statsValueStyle.Render("✓ Receiving"))
	default:
		s.WriteString(warningStyle.Render(m.spinner.View() + " Waiting for frames..."))
	}
	s.WriteString("\n\n")

	// Statistics
	stats := m.stats
	var reportPercent float64
	if stats.TotalFrames > 0 {
		reportPercent = float64(stats.ReportFrames) * 100.0 / float64(stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		statsLabelStyle.Render("Reports:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.ReportFrames, reportPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.ErrorCount())),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Timeouts:"), warningStyle.Render(fmt.Sprintf("%d", stats.Timeouts)),
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
	))
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Device section (only shown once a report arrived)
	if m.lastVersion != nil || m.lastUID != nil {
		s.WriteString(statsLabelStyle.Render("Actuator:"))
		s.WriteString("\n")

		device := strings.Builder{}
		if m.lastVersion != nil {
			date := fmt.Sprintf("%02d/%02d/%02d", m.lastVersion.SwDay(), m.lastVersion.SwMonth(), m.lastVersion.SwYear())
			if d, err := m.lastVersion.ReleaseDate(); err == nil {
				date = d.Format("2006-01-02")
			}
			device.WriteString(fmt.Sprintf("%s %s   %s %s\n",
				statsLabelStyle.Render("Version:"), statsValueStyle.Render(m.lastVersion.SoftwareVersion()),
				statsLabelStyle.Render("Released:"), statsValueStyle.Render(date),
			))
		}
		if m.lastUID != nil {
			device.WriteString(fmt.Sprintf("%s %s\n",
				statsLabelStyle.Render("ID:"), statsValueStyle.Render(fmt.Sprintf("%012X", m.lastUID.ActuatorIDPart())),
			))
		}
		s.WriteString(boxStyle.Render(strings.TrimSuffix(device.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Reserve space for header, stats and help
	logHeight := m.height - 16
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
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

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(logContent.String()))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}
