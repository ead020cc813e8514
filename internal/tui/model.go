// Package tui provides the Bubble Tea pomodoro timer interface.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/pomo/internal/model"
	"github.com/verte-zerg/pomo/internal/timer"
)

const statsTimeout = 5 * time.Second

// StatsFunc loads the user's summary counters.
type StatsFunc func(ctx context.Context) (model.Stats, error)

// Notifier signals a finished phase to the user. Failures are ignored.
type Notifier interface {
	Notify(tr timer.Transition)
}

// Bell rings the terminal bell on a writer.
type Bell struct {
	W io.Writer
}

// Notify implements Notifier.
func (b Bell) Notify(timer.Transition) {
	if b.W == nil {
		return
	}
	if _, err := io.WriteString(b.W, "\a"); err != nil {
		// Best-effort notification.
		_ = err
	}
}

// SessionLoggedMsg tells the model a completed round was persisted.
type SessionLoggedMsg struct {
	Session model.Session
}

// FailureCounter reports lifecycle calls that could not be persisted.
type FailureCounter interface {
	Failures() int64
}

type tickMsg struct {
	id int
}

type statsMsg struct {
	stats model.Stats
	err   error
}

// Model implements the Bubble Tea timer UI.
type Model struct {
	machine  *timer.Machine
	loadStat StatsFunc
	notifier Notifier
	failures FailureCounter
	logger   *slog.Logger

	keys     keyMap
	help     help.Model
	progress progress.Model

	width  int
	height int

	// tickID invalidates ticks scheduled before the last start/pause.
	tickID int

	stats    model.Stats
	hasStats bool
	statsErr string
}

var (
	phaseColors = map[model.Phase]string{
		model.PhaseFocus:      "#FF4D4F",
		model.PhaseShortBreak: "#52C41A",
		model.PhaseLongBreak:  "#1890FF",
	}
	clockStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// Options carries optional collaborators of the timer UI.
type Options struct {
	Stats    StatsFunc
	Notifier Notifier
	Failures FailureCounter
	Logger   *slog.Logger
}

// NewModel constructs a timer TUI model around machine.
func NewModel(machine *timer.Machine, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		machine:  machine,
		loadStat: opts.Stats,
		notifier: opts.Notifier,
		failures: opts.Failures,
		logger:   logger,
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithoutPercentage()),
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.fetchStats()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width/2, 10), 60)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			m.machine.Toggle()
			return m, m.scheduleTick()
		case key.Matches(msg, m.keys.Reset):
			m.machine.Reset()
			m.tickID++
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		return m, nil
	case tickMsg:
		if msg.id != m.tickID {
			return m, nil
		}
		tr := m.machine.Tick()
		if tr.Completed {
			m.phaseCompleted(tr)
			return m, nil
		}
		return m, m.scheduleTick()
	case SessionLoggedMsg:
		return m, m.fetchStats()
	case statsMsg:
		if msg.err != nil {
			m.statsErr = msg.err.Error()
			m.logger.Warn("failed to load stats", "error", msg.err)
			return m, nil
		}
		m.stats = msg.stats
		m.hasStats = true
		m.statsErr = ""
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	st := m.machine.State()
	color := lipgloss.Color(phaseColors[st.Phase])
	title := lipgloss.NewStyle().Foreground(color).Bold(true).Render(st.Phase.Title())

	total := m.machine.Config().PhaseSeconds(st.Phase)
	percent := 0.0
	if total > 0 {
		percent = float64(total-st.Remaining) / float64(total)
	}
	bar := m.progress
	bar.FullColor = string(color)

	status := "paused"
	if st.Running {
		status = "running"
	}
	lines := []string{
		title,
		"",
		clockStyle.Render(formatClock(st.Remaining)),
		bar.ViewAs(percent),
		mutedStyle.Render(fmt.Sprintf("Round %d · %s", st.CompletedRounds+1, status)),
	}
	if label := m.sessionLabel(); label != "" {
		lines = append(lines, mutedStyle.Render(label))
	}
	lines = append(lines, "", m.help.View(m.keys))
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) scheduleTick() tea.Cmd {
	m.tickID++
	if !m.machine.State().Running {
		return nil
	}
	id := m.tickID
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{id: id}
	})
}

func (m *Model) phaseCompleted(tr timer.Transition) {
	m.tickID++
	if m.notifier != nil {
		m.notifier.Notify(tr)
	}
	m.logger.Info("phase completed",
		"from", string(tr.From),
		"to", string(tr.To),
		"completed_rounds", m.machine.State().CompletedRounds,
	)
}

func (m *Model) fetchStats() tea.Cmd {
	if m.loadStat == nil {
		return nil
	}
	load := m.loadStat
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()
		st, err := load(ctx)
		return statsMsg{stats: st, err: err}
	}
}

func (m *Model) sessionLabel() string {
	cfg := m.machine.Config()
	var parts []string
	if cfg.Purpose != "" {
		parts = append(parts, cfg.Purpose)
	}
	if cfg.Tag != "" {
		parts = append(parts, "#"+cfg.Tag)
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderFooter() string {
	cfg := m.machine.Config()
	segments := []string{fmt.Sprintf("Focus %dm · Short %dm · Long %dm", cfg.StudyPeriod, cfg.ShortBreak, cfg.LongBreak)}
	if m.hasStats {
		segments = append(segments, fmt.Sprintf("All-time %d sessions · %d min · %d rounds",
			m.stats.TotalSessions, m.stats.TotalStudyMinutes, m.stats.TotalCompletedRounds))
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.failures != nil {
		if n := m.failures.Failures(); n > 0 {
			footer += "  " + warnStyle.Render(fmt.Sprintf("%d unsynced", n))
		}
	}
	return footer
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
