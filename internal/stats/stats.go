// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/pomo/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Lister reads a user's session records.
type Lister interface {
	ListSessions(ctx context.Context, userID string) ([]model.Session, error)
}

// Summarize totals session count, configured study minutes and completed rounds.
// Study minutes count the configured focus length per record, not wall-clock time.
func Summarize(sessions []model.Session) model.Stats {
	var out model.Stats
	for _, s := range sessions {
		out.TotalSessions++
		out.TotalStudyMinutes += s.StudyPeriod
		out.TotalCompletedRounds += s.CompletedRounds
	}
	return out
}

// ForUser loads a user's records and summarizes them.
func ForUser(ctx context.Context, l Lister, userID string) (model.Stats, error) {
	sessions, err := l.ListSessions(ctx, userID)
	if err != nil {
		return model.Stats{}, err
	}
	return Summarize(sessions), nil
}

// DailyMinutes buckets study minutes by local calendar day for the last days
// ending at now. Index 0 is the oldest day.
func DailyMinutes(sessions []model.Session, days int, now time.Time) []float64 {
	if days <= 0 {
		return nil
	}
	out := make([]float64, days)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	for _, s := range sessions {
		at := s.CreatedAt
		if s.EndTime != nil {
			at = *s.EndTime
		}
		at = at.In(now.Location())
		ay, am, ad := at.Date()
		day := time.Date(ay, am, ad, 0, 0, 0, 0, now.Location())
		// Round to absorb DST shifts.
		offset := int(math.Round(today.Sub(day).Hours() / 24))
		if offset < 0 || offset >= days {
			continue
		}
		out[days-1-offset] += float64(s.StudyPeriod)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints summary counters and an optional daily sparkline.
func RenderSummary(w io.Writer, st model.Stats, daily []float64) error {
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d\n", st.TotalSessions); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Study minutes: %d (%s)\n", st.TotalStudyMinutes, formatMinutes(st.TotalStudyMinutes)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Completed rounds: %d\n", st.TotalCompletedRounds); err != nil {
		return err
	}
	if len(daily) > 0 {
		total := 0.0
		for _, v := range daily {
			total += v
		}
		if _, err := fmt.Fprintf(w, "Last %d days: [%s] %.0f min\n", len(daily), Sparkline(daily), total); err != nil {
			return err
		}
	}
	return nil
}

// RenderSessions prints session records as an aligned table.
func RenderSessions(w io.Writer, sessions []model.Session) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"Created", "Study", "Rounds", "Start", "End", "Tag", "Purpose"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%dm", s.StudyPeriod),
			fmt.Sprintf("%d", s.CompletedRounds),
			clock(s.StartTime),
			clock(s.EndTime),
			s.Tag,
			s.Purpose,
		})
	}
	rightAlign := map[int]bool{1: true, 2: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func clock(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("15:04")
}

func formatMinutes(minutes int) string {
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
