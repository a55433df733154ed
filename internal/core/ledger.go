package core

// toggleCompletion flips habitID's membership in date's entry, creating the
// entry on first use. Entries are never removed, even once emptied. The
// ledger does not check habitID against the registry. It returns whether the
// habit is now completed.
func toggleCompletion(state *State, date Date, habitID string) bool {
	idx := state.EntryIndex(date)
	if idx < 0 {
		state.Entries = append(state.Entries, DailyEntry{Date: date, CompletedHabits: []string{habitID}})
		return true
	}
	entry := &state.Entries[idx]
	for i, id := range entry.CompletedHabits {
		if id == habitID {
			entry.CompletedHabits = append(entry.CompletedHabits[:i], entry.CompletedHabits[i+1:]...)
			return false
		}
	}
	entry.CompletedHabits = append(entry.CompletedHabits, habitID)
	return true
}

// entryFor returns a copy of date's entry, or an empty one when none exists.
func entryFor(state State, date Date) DailyEntry {
	if idx := state.EntryIndex(date); idx >= 0 {
		return state.Entries[idx].Clone()
	}
	return DailyEntry{Date: date, CompletedHabits: []string{}}
}
