// Package core implements the habit registry, the daily ledger, the analytics
// engine, and the Service that owns tracker state and persists it through an
// injected domain.EntryStore.
package core

import (
	"context"
	"time"

	"habitcore/pkg/domain"
)

type (
	// Habit aliases domain.Habit.
	Habit = domain.Habit
	// DailyEntry aliases domain.DailyEntry.
	DailyEntry = domain.DailyEntry
	// State aliases domain.State.
	State = domain.State
	// Date aliases domain.Date.
	Date = domain.Date
	// EntryStore aliases domain.EntryStore.
	EntryStore = domain.EntryStore
)

// Clock supplies the current time. The calendar date of Now() in its own
// location is "today".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// MetricsRecorder observes the outcome of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// DayStat is one point of a completion history series.
type DayStat struct {
	Date       Date `json:"date"`
	Completed  int  `json:"completed"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
}

// Summary bundles the derived views a presentation layer reads together.
type Summary struct {
	Today         Date      `json:"today"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	History       []DayStat `json:"history"`
}

// Operation names reported to MetricsRecorder.
const (
	OpAddHabit    = "add_habit"
	OpDeleteHabit = "delete_habit"
	OpToggle      = "toggle_completion"
	OpLoad        = "load"
	OpReload      = "reload"
	OpPersist     = "persist"
)
