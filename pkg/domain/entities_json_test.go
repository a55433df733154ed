package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const sampleBlob = `{
  "habits": [
    {"id": "walking", "name": "Walking", "emoji": "🚶"},
    {"id": "reading", "name": "Reading", "emoji": "📚"}
  ],
  "entries": [
    {"date": "2024-03-01", "completedHabits": ["walking", "reading"]},
    {"date": "2024-03-02", "completedHabits": []}
  ]
}`

func TestDecodeStateWireFormat(t *testing.T) {
	state, err := DecodeState([]byte(sampleBlob))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Habits) != 2 || state.Habits[1].ID != "reading" || state.Habits[0].Emoji != "🚶" {
		t.Fatalf("unexpected habits: %+v", state.Habits)
	}
	if len(state.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(state.Entries))
	}
	if !state.Entries[0].Has("reading") || state.Entries[1].Has("walking") {
		t.Fatalf("unexpected entries: %+v", state.Entries)
	}
}

func TestEncodeStateUsesWireFieldNames(t *testing.T) {
	state := State{
		Habits:  []Habit{{ID: "a", Name: "A", Emoji: "💧"}},
		Entries: []DailyEntry{{Date: "2024-01-05"}},
	}
	data, err := EncodeState(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	entries, ok := raw["entries"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected entries array, got %v", raw["entries"])
	}
	entry := entries[0].(map[string]any)
	if entry["date"] != "2024-01-05" {
		t.Fatalf("unexpected date %v", entry["date"])
	}
	completed, ok := entry["completedHabits"].([]any)
	if !ok || len(completed) != 0 {
		t.Fatalf("expected empty completedHabits array, got %v", entry["completedHabits"])
	}
	if !strings.Contains(string(data), `"habits":[{"id":"a","name":"A","emoji":"💧"}]`) {
		t.Fatalf("unexpected habits encoding: %s", data)
	}
}

func TestEncodeDecodeEmptyCollections(t *testing.T) {
	data, err := EncodeState(State{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != `{"habits":[],"entries":[]}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestDecodeStateNormalizesDuplicates(t *testing.T) {
	blob := `{"habits":[{"id":"a","name":"A","emoji":""},{"id":"a","name":"Again","emoji":""}],
	"entries":[{"date":"2024-01-01","completedHabits":["a","a"]},{"date":"2024-01-01","completedHabits":["b","a"]}]}`
	state, err := DecodeState([]byte(blob))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Habits) != 1 || state.Habits[0].Name != "A" {
		t.Fatalf("expected first habit kept, got %+v", state.Habits)
	}
	if len(state.Entries) != 1 {
		t.Fatalf("expected merged entry, got %+v", state.Entries)
	}
	got := strings.Join(state.Entries[0].CompletedHabits, ",")
	if got != "a,b" {
		t.Fatalf("expected a,b got %s", got)
	}
}

func TestDecodeStateMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"null":         "null",
		"syntax":       "{not json",
		"bad date":     `{"habits":[],"entries":[{"date":"03/01/2024","completedHabits":[]}]}`,
		"missing id":   `{"habits":[{"name":"x"}],"entries":[]}`,
		"wrong shape":  `{"habits":"nope"}`,
		"array root":   `[]`,
		"date numeric": `{"entries":[{"date":20240101}]}`,
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeState([]byte(blob))
			var malformed MalformedStateError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedStateError, got %v", err)
			}
		})
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	orig := State{
		Habits:  []Habit{{ID: "a"}},
		Entries: []DailyEntry{{Date: "2024-01-01", CompletedHabits: []string{"a"}}},
	}
	cpy := orig.Clone()
	cpy.Habits[0].ID = "changed"
	cpy.Entries[0].CompletedHabits[0] = "changed"
	if orig.Habits[0].ID != "a" || orig.Entries[0].CompletedHabits[0] != "a" {
		t.Fatalf("clone shares memory with original: %+v", orig)
	}
}

func TestDefaultStateSeedsThreeHabits(t *testing.T) {
	state := DefaultState()
	if len(state.Habits) != 3 || len(state.Entries) != 0 {
		t.Fatalf("unexpected seed state %+v", state)
	}
	want := []string{"development", "dsa-practice", "walking"}
	for i, id := range want {
		if state.Habits[i].ID != id {
			t.Fatalf("habit %d: want %s got %s", i, id, state.Habits[i].ID)
		}
	}
}

func TestErrorTypesUnwrap(t *testing.T) {
	perr := PersistenceError{Op: "save", Err: ErrConflict}
	if !errors.Is(perr, ErrConflict) {
		t.Fatalf("expected PersistenceError to unwrap to ErrConflict")
	}
	if !strings.Contains(ValidationError{Field: "name", Reason: "empty"}.Error(), "name") {
		t.Fatalf("validation error should mention the field")
	}
}
