package core

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"habitcore/pkg/domain"
)

const maxIDAttempts = 8

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// addHabit appends a new habit to the registry. name is trimmed; an empty
// result is rejected before state is touched.
func addHabit(state *State, name, emoji string, token func() string) (Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Habit{}, domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = domain.DefaultEmoji
	}
	ids := state.HabitIDs()
	base := slugify(name)
	var id string
	for attempt := 0; ; attempt++ {
		id = base + "-" + token()
		if _, taken := ids[id]; !taken {
			break
		}
		if attempt >= maxIDAttempts {
			id = base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
			break
		}
	}
	habit := Habit{ID: id, Name: name, Emoji: emoji}
	state.Habits = append(state.Habits, habit)
	return habit, nil
}

// deleteHabit removes the habit with id and reports whether it existed.
// Ledger entries keep referencing the id.
func deleteHabit(state *State, id string) bool {
	for i, h := range state.Habits {
		if h.ID == id {
			state.Habits = append(state.Habits[:i], state.Habits[i+1:]...)
			return true
		}
	}
	return false
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "habit"
	}
	return slug
}
