package core

import (
	"math"
	"sort"
)

// The analytics functions are pure. Every "completed" count is restricted to
// ids present in the current registry, and the current registry size is the
// threshold for every date, past ones included.

// MaxHistoryDays bounds a completion history window to roughly ten years.
const MaxHistoryDays = 3660

// CompletionHistory returns one DayStat per date from today-days+1 through
// today, oldest first. A non-positive days yields an empty series; days above
// MaxHistoryDays is clamped.
func CompletionHistory(state State, today Date, days int) []DayStat {
	if days <= 0 {
		return []DayStat{}
	}
	days = min(days, MaxHistoryDays)
	ids := state.HabitIDs()
	byDate := entriesByDate(state)
	total := len(ids)
	out := make([]DayStat, 0, days)
	for offset := days - 1; offset >= 0; offset-- {
		date := today.AddDays(-offset)
		completed := 0
		if entry, ok := byDate[date]; ok {
			completed = completedCount(entry, ids)
		}
		out = append(out, DayStat{
			Date:       date,
			Completed:  completed,
			Total:      total,
			Percentage: percentage(completed, total),
		})
	}
	return out
}

// CurrentStreak counts consecutive fully-completed days walking back from
// today. An incomplete today does not break a streak that ended yesterday.
// The walk stops at the first incomplete earlier day; the ledger is finite so
// it always terminates.
func CurrentStreak(state State, today Date) int {
	ids := state.HabitIDs()
	if len(ids) == 0 || !today.Valid() {
		return 0
	}
	byDate := entriesByDate(state)
	streak := 0
	for offset := 0; ; offset++ {
		entry, ok := byDate[today.AddDays(-offset)]
		if ok && completedCount(entry, ids) == len(ids) {
			streak++
			continue
		}
		if offset == 0 {
			continue
		}
		return streak
	}
}

// LongestStreak returns the longest run of consecutive fully-completed dates
// found anywhere in the ledger.
func LongestStreak(state State) int {
	ids := state.HabitIDs()
	if len(ids) == 0 || len(state.Entries) == 0 {
		return 0
	}
	entries := make([]DailyEntry, len(state.Entries))
	copy(entries, state.Entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })

	best, run := 0, 0
	var prev Date
	anchored := false
	for _, entry := range entries {
		if completedCount(entry, ids) != len(ids) {
			run = 0
			anchored = false
			continue
		}
		if anchored && prev.AddDays(1) == entry.Date {
			run++
		} else {
			run = 1
		}
		prev = entry.Date
		anchored = true
		if run > best {
			best = run
		}
	}
	return best
}

// Summarize computes history and both streaks from one state.
func Summarize(state State, today Date, days int) Summary {
	return Summary{
		Today:         today,
		CurrentStreak: CurrentStreak(state, today),
		LongestStreak: LongestStreak(state),
		History:       CompletionHistory(state, today, days),
	}
}

func entriesByDate(state State) map[Date]DailyEntry {
	out := make(map[Date]DailyEntry, len(state.Entries))
	for _, e := range state.Entries {
		out[e.Date] = e
	}
	return out
}

func completedCount(entry DailyEntry, ids map[string]struct{}) int {
	n := 0
	seen := make(map[string]struct{}, len(entry.CompletedHabits))
	for _, id := range entry.CompletedHabits {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := ids[id]; ok {
			n++
		}
	}
	return n
}

func percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
