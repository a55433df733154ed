// Package domain defines the persistent habit-tracking entities, the storage
// contracts implemented by backends, and the error taxonomy shared by habitcore.
package domain

// DefaultEmoji is assigned to habits created without a glyph.
const DefaultEmoji = "📚"

// EmojiOptions lists the glyphs offered when creating a habit.
var EmojiOptions = []string{"📚", "🏃", "💪", "🧘", "💧", "🍎", "😴", "✍️", "🎯", "🧹", "💰", "📱"}

// Habit is a user-defined recurring task tracked daily.
type Habit struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// DailyEntry records which habits were completed on one calendar date.
// CompletedHabits is a set; order reflects first completion.
type DailyEntry struct {
	Date            Date     `json:"date"`
	CompletedHabits []string `json:"completedHabits"`
}

// Has reports whether habitID is in the completed set.
func (e DailyEntry) Has(habitID string) bool {
	for _, id := range e.CompletedHabits {
		if id == habitID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entry.
func (e DailyEntry) Clone() DailyEntry {
	out := DailyEntry{Date: e.Date, CompletedHabits: make([]string, len(e.CompletedHabits))}
	copy(out.CompletedHabits, e.CompletedHabits)
	return out
}

// State is the full persisted tracker state: the habit registry in insertion
// order and the daily ledger.
type State struct {
	Habits  []Habit      `json:"habits"`
	Entries []DailyEntry `json:"entries"`
}

// DefaultHabits seeds a fresh tracker.
func DefaultHabits() []Habit {
	return []Habit{
		{ID: "development", Name: "Development", Emoji: "💻"},
		{ID: "dsa-practice", Name: "DSA Practice", Emoji: "🧮"},
		{ID: "walking", Name: "Walking", Emoji: "🚶"},
	}
}

// DefaultState returns the seed state used when nothing usable is persisted.
func DefaultState() State {
	return State{Habits: DefaultHabits(), Entries: []DailyEntry{}}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Habits:  make([]Habit, len(s.Habits)),
		Entries: make([]DailyEntry, len(s.Entries)),
	}
	copy(out.Habits, s.Habits)
	for i, e := range s.Entries {
		out.Entries[i] = e.Clone()
	}
	return out
}

// HabitIDs returns the set of currently registered habit ids.
func (s State) HabitIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Habits))
	for _, h := range s.Habits {
		ids[h.ID] = struct{}{}
	}
	return ids
}

// EntryIndex returns the position of the entry for date, or -1.
func (s State) EntryIndex(date Date) int {
	for i, e := range s.Entries {
		if e.Date == date {
			return i
		}
	}
	return -1
}
