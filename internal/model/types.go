// Package model defines shared data structures.
package model

import "time"

// Default break lengths in minutes.
const (
	DefaultStudyPeriod = 25
	DefaultShortBreak  = 5
	DefaultLongBreak   = 15
)

// Phase is one segment of a pomodoro cycle.
type Phase string

// Timer phases.
const (
	PhaseFocus      Phase = "focus"
	PhaseShortBreak Phase = "shortBreak"
	PhaseLongBreak  Phase = "longBreak"
)

// Title returns a human label for the phase.
func (p Phase) Title() string {
	switch p {
	case PhaseShortBreak:
		return "Short Break"
	case PhaseLongBreak:
		return "Long Break"
	default:
		return "Focus Time"
	}
}

// TimerConfig defines durations and labels for a timer run.
type TimerConfig struct {
	StudyPeriod int
	ShortBreak  int
	LongBreak   int
	Purpose     string
	Tag         string
}

// PhaseSeconds returns the configured length of a phase in seconds.
func (c TimerConfig) PhaseSeconds(p Phase) int {
	switch p {
	case PhaseShortBreak:
		return c.ShortBreak * 60
	case PhaseLongBreak:
		return c.LongBreak * 60
	default:
		return c.StudyPeriod * 60
	}
}

// Session is a persisted pomodoro session record.
type Session struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	StudyPeriod     int        `json:"studyPeriod"`
	ShortBreak      int        `json:"shortBreak"`
	LongBreak       int        `json:"longBreak"`
	CompletedRounds int        `json:"completedRounds"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	Purpose         string     `json:"purpose,omitempty"`
	Tag             string     `json:"tag,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// StartRequest is the body of a session start call.
type StartRequest struct {
	StudyPeriod     int        `json:"studyPeriod"`
	ShortBreak      int        `json:"shortBreak,omitempty"`
	LongBreak       int        `json:"longBreak,omitempty"`
	CompletedRounds int        `json:"completedRounds,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	Purpose         string     `json:"purpose,omitempty"`
	Tag             string     `json:"tag,omitempty"`
}

// LogRequest is the body of a completed-round log call.
type LogRequest struct {
	StudyPeriod     int        `json:"studyPeriod"`
	ShortBreak      int        `json:"shortBreak"`
	LongBreak       int        `json:"longBreak"`
	CompletedRounds int        `json:"completedRounds"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	Purpose         string     `json:"purpose,omitempty"`
	Tag             string     `json:"tag,omitempty"`
}

// Stats summarizes a user's logged sessions.
type Stats struct {
	TotalSessions        int `json:"totalSessions"`
	TotalStudyMinutes    int `json:"totalStudyMinutes"`
	TotalCompletedRounds int `json:"totalCompletedRounds"`
}
