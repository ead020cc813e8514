// Package timer implements the pomodoro phase and round sequencing.
//
// A Machine is driven by one Tick per elapsed second. It is not safe for
// concurrent use; the owner (the TUI event loop) serializes every call.
// Lifecycle side effects go to a Sink, which must not block.
package timer

import (
	"time"

	"github.com/verte-zerg/pomo/internal/model"
)

// RoundsPerLongBreak is the number of focus rounds between long breaks.
const RoundsPerLongBreak = 4

// StartEvent is emitted once when a continuous run begins.
type StartEvent struct {
	Config    model.TimerConfig
	StartTime time.Time
}

// CompleteEvent is emitted each time a focus phase runs down to zero.
type CompleteEvent struct {
	Config          model.TimerConfig
	CompletedRounds int
	StartTime       time.Time
	EndTime         time.Time
}

// Sink receives lifecycle events.
type Sink interface {
	SessionStarted(StartEvent)
	SessionCompleted(CompleteEvent)
}

// State is a snapshot of the timer.
type State struct {
	Phase           model.Phase
	Remaining       int
	CompletedRounds int
	Running         bool
	Anchor          *time.Time
}

// Transition describes the outcome of a Tick.
type Transition struct {
	Completed bool
	From      model.Phase
	To        model.Phase
}

// Machine holds the timer state and applies transitions.
type Machine struct {
	cfg   model.TimerConfig
	sink  Sink
	now   func() time.Time
	state State
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// New returns a Machine in its initial state. A nil sink drops events.
func New(cfg model.TimerConfig, sink Sink, opts ...Option) *Machine {
	if sink == nil {
		sink = nopSink{}
	}
	m := &Machine{cfg: cfg, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.Reset()
	return m
}

// Config returns the timer configuration.
func (m *Machine) Config() model.TimerConfig {
	return m.cfg
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	st := m.state
	if st.Anchor != nil {
		anchor := *st.Anchor
		st.Anchor = &anchor
	}
	return st
}

// Start resumes the countdown, anchoring a new run if none is active.
func (m *Machine) Start() {
	if m.state.Anchor == nil {
		anchor := m.now()
		m.state.Anchor = &anchor
		m.sink.SessionStarted(StartEvent{Config: m.cfg, StartTime: anchor})
	}
	m.state.Running = true
}

// Pause halts the countdown without changing phase.
func (m *Machine) Pause() {
	m.state.Running = false
}

// Toggle starts a paused timer or pauses a running one.
func (m *Machine) Toggle() {
	if m.state.Running {
		m.Pause()
		return
	}
	m.Start()
}

// Reset returns to the initial state, clearing the anchor and rounds.
func (m *Machine) Reset() {
	m.state = State{
		Phase:     model.PhaseFocus,
		Remaining: m.cfg.PhaseSeconds(model.PhaseFocus),
	}
}

// Tick advances the countdown by one second.
func (m *Machine) Tick() Transition {
	if !m.state.Running || m.state.Remaining <= 0 {
		return Transition{}
	}
	m.state.Remaining--
	if m.state.Remaining > 0 {
		return Transition{}
	}
	return m.advance()
}

func (m *Machine) advance() Transition {
	from := m.state.Phase
	next := model.PhaseFocus
	if from == model.PhaseFocus {
		m.state.CompletedRounds++
		ev := CompleteEvent{
			Config:          m.cfg,
			CompletedRounds: m.state.CompletedRounds,
			EndTime:         m.now(),
		}
		if m.state.Anchor != nil {
			ev.StartTime = *m.state.Anchor
		}
		m.sink.SessionCompleted(ev)
		next = model.PhaseShortBreak
		if m.state.CompletedRounds%RoundsPerLongBreak == 0 {
			next = model.PhaseLongBreak
		}
	}
	m.state.Phase = next
	m.state.Remaining = m.cfg.PhaseSeconds(next)
	m.state.Running = false
	return Transition{Completed: true, From: from, To: next}
}

type nopSink struct{}

func (nopSink) SessionStarted(StartEvent)      {}
func (nopSink) SessionCompleted(CompleteEvent) {}
