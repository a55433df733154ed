package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EncodeState serializes s into the persisted blob format. Nil collections are
// written as empty arrays.
func EncodeState(s State) ([]byte, error) {
	out := s.Clone()
	for i := range out.Entries {
		if out.Entries[i].CompletedHabits == nil {
			out.Entries[i].CompletedHabits = []string{}
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a persisted blob and normalizes it: duplicate habit ids
// keep their first occurrence, entries sharing a date are merged, and
// completed sets are de-duplicated. Any failure is a MalformedStateError.
func DecodeState(blob []byte) (State, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return State{}, MalformedStateError{Err: errors.New("empty payload")}
	}
	var raw State
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return State{}, MalformedStateError{Err: err}
	}
	state := State{Habits: make([]Habit, 0, len(raw.Habits)), Entries: make([]DailyEntry, 0, len(raw.Entries))}
	seen := make(map[string]struct{}, len(raw.Habits))
	for _, h := range raw.Habits {
		if h.ID == "" {
			return State{}, MalformedStateError{Err: errors.New("habit without id")}
		}
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		state.Habits = append(state.Habits, h)
	}
	byDate := make(map[Date]int, len(raw.Entries))
	for _, e := range raw.Entries {
		if !e.Date.Valid() {
			return State{}, MalformedStateError{Err: fmt.Errorf("entry date %q", e.Date)}
		}
		idx, ok := byDate[e.Date]
		if !ok {
			idx = len(state.Entries)
			byDate[e.Date] = idx
			state.Entries = append(state.Entries, DailyEntry{Date: e.Date, CompletedHabits: []string{}})
		}
		for _, id := range e.CompletedHabits {
			if !state.Entries[idx].Has(id) {
				state.Entries[idx].CompletedHabits = append(state.Entries[idx].CompletedHabits, id)
			}
		}
	}
	return state, nil
}
