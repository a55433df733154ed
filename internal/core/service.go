package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"habitcore/pkg/domain"
)

// Service owns the tracker state. Mutations are copy-on-write: the current
// state is cloned, the clone is mutated, swapped in whole, then persisted.
// Readers always observe a complete state.
type Service struct {
	mu      sync.RWMutex
	state   State
	version int64
	store   EntryStore

	clock   Clock
	logger  *zap.Logger
	metrics MetricsRecorder
	token   func() string

	lastPersistErr error
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used to derive "today".
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the operation metrics recorder.
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithIDToken overrides the uniqueness token appended to generated habit ids.
func WithIDToken(token func() string) ServiceOption {
	return func(s *Service) {
		if token != nil {
			s.token = token
		}
	}
}

// NewService constructs a service and loads state from store. Loading never
// fails: a missing, unreadable, or malformed blob yields the seed state.
func NewService(ctx context.Context, store EntryStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		clock:   systemClock{},
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
		token:   newToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	started := time.Now()
	state, version, err := s.read(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Info("no stored state, using defaults")
		state = domain.DefaultState()
		err = nil
	case err != nil:
		s.logger.Warn("stored state unusable, using defaults", zap.Error(err))
		state = domain.DefaultState()
		var perr domain.PersistenceError
		if errors.As(err, &perr) {
			s.lastPersistErr = perr
		}
	}
	s.state = state
	s.version = version
	s.metrics.Observe(ctx, OpLoad, err == nil, time.Since(started))
	return s
}

// NewInMemoryService builds a service backed by a throwaway store.
func NewInMemoryService(ctx context.Context, opts ...ServiceOption) *Service {
	return NewService(ctx, &volatileStore{}, opts...)
}

// read loads and decodes the stored blob. The returned version is meaningful
// even when decoding fails so the next save can overwrite the bad blob.
func (s *Service) read(ctx context.Context) (State, int64, error) {
	if s.store == nil {
		return State{}, 0, domain.ErrNotFound
	}
	var (
		blob    []byte
		version int64
		err     error
	)
	if vs, ok := s.store.(domain.VersionedStore); ok {
		blob, version, err = vs.LoadVersioned(ctx)
	} else {
		blob, err = s.store.Load(ctx)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return State{}, version, domain.ErrNotFound
	}
	if err != nil {
		return State{}, version, domain.PersistenceError{Op: "load", Err: err}
	}
	state, err := domain.DecodeState(blob)
	if err != nil {
		return State{}, version, err
	}
	return state, version, nil
}

// Reload re-reads the store and adopts its state. On failure the in-memory
// state is kept and the error returned. The read happens under the write lock
// so a concurrent mutation is applied either before or after the reload.
func (s *Service) Reload(ctx context.Context) error {
	started := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	state, version, err := s.read(ctx)
	defer func() { s.metrics.Observe(ctx, OpReload, err == nil, time.Since(started)) }()
	if err != nil {
		s.logger.Debug("reload skipped", zap.Error(err))
		return err
	}
	s.state = state
	s.version = version
	s.logger.Debug("state reloaded", zap.Int64("version", version), zap.Int("habits", len(state.Habits)))
	return nil
}

func (s *Service) run(ctx context.Context, op string, fn func(*State) error) error {
	started := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	if err := fn(&next); err != nil {
		s.metrics.Observe(ctx, op, false, time.Since(started))
		return err
	}
	s.state = next
	s.persistLocked(ctx)
	s.metrics.Observe(ctx, op, true, time.Since(started))
	return nil
}

// persistLocked writes the current state. Failures are logged and recorded;
// the in-memory state stays authoritative.
func (s *Service) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	started := time.Now()
	err := s.saveLocked(ctx)
	s.metrics.Observe(ctx, OpPersist, err == nil, time.Since(started))
	if err != nil {
		perr := domain.PersistenceError{Op: "save", Err: err}
		s.lastPersistErr = perr
		s.logger.Error("persist state failed", zap.Error(perr), zap.Int64("version", s.version))
		return
	}
	s.lastPersistErr = nil
}

func (s *Service) saveLocked(ctx context.Context) error {
	blob, err := domain.EncodeState(s.state)
	if err != nil {
		return err
	}
	if vs, ok := s.store.(domain.VersionedStore); ok {
		version, err := vs.SaveVersioned(ctx, blob, s.version)
		if err != nil {
			return err
		}
		s.version = version
		return nil
	}
	return s.store.Save(ctx, blob)
}

// Flush writes the current state and reports the outcome.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
	return s.lastPersistErr
}

// AddHabit registers a new habit and persists.
func (s *Service) AddHabit(ctx context.Context, name, emoji string) (Habit, error) {
	var created Habit
	err := s.run(ctx, OpAddHabit, func(st *State) error {
		var err error
		created, err = addHabit(st, name, emoji, s.token)
		return err
	})
	if err != nil {
		return Habit{}, err
	}
	s.logger.Debug("habit added", zap.String("habit_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// DeleteHabit removes a habit if present and persists. Removing an unknown id
// is a no-op. Historical ledger entries keep the id.
func (s *Service) DeleteHabit(ctx context.Context, habitID string) error {
	var removed bool
	err := s.run(ctx, OpDeleteHabit, func(st *State) error {
		removed = deleteHabit(st, habitID)
		return nil
	})
	s.logger.Debug("habit delete", zap.String("habit_id", habitID), zap.Bool("removed", removed))
	return err
}

// ToggleCompletion flips habitID's completion on date and persists. It
// returns whether the habit is completed afterwards.
func (s *Service) ToggleCompletion(ctx context.Context, date Date, habitID string) (bool, error) {
	if !date.Valid() {
		return false, domain.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	var completed bool
	err := s.run(ctx, OpToggle, func(st *State) error {
		completed = toggleCompletion(st, date, habitID)
		return nil
	})
	if err != nil {
		return false, err
	}
	s.logger.Debug("completion toggled",
		zap.String("date", date.String()),
		zap.String("habit_id", habitID),
		zap.Bool("completed", completed),
	)
	return completed, nil
}

// ToggleToday flips habitID's completion for today.
func (s *Service) ToggleToday(ctx context.Context, habitID string) (bool, error) {
	return s.ToggleCompletion(ctx, s.Today(), habitID)
}

// Today returns the current calendar date according to the service clock.
func (s *Service) Today() Date {
	return domain.DateOf(s.clock.Now())
}

// ListHabits returns the registry in insertion order.
func (s *Service) ListHabits() []Habit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Habit, len(s.state.Habits))
	copy(out, s.state.Habits)
	return out
}

// IsCompleted reports whether habitID is recorded as completed on date.
func (s *Service) IsCompleted(date Date, habitID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.state.EntryIndex(date); idx >= 0 {
		return s.state.Entries[idx].Has(habitID)
	}
	return false
}

// GetEntry returns date's entry or an empty one.
func (s *Service) GetEntry(date Date) DailyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entryFor(s.state, date)
}

// CompletionHistory returns the last days of completion statistics ending today.
func (s *Service) CompletionHistory(days int) []DayStat {
	return CompletionHistory(s.Snapshot(), s.Today(), days)
}

// CurrentStreak returns the active streak ending today (or yesterday).
func (s *Service) CurrentStreak() int {
	return CurrentStreak(s.Snapshot(), s.Today())
}

// LongestStreak returns the longest streak in the ledger.
func (s *Service) LongestStreak() int {
	return LongestStreak(s.Snapshot())
}

// Summary returns history and streaks computed from a single snapshot.
func (s *Service) Summary(days int) Summary {
	return Summarize(s.Snapshot(), s.Today(), days)
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Version returns the store version the in-memory state is based on. It is
// always zero for unversioned stores.
func (s *Service) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LastPersistenceError returns the most recent unrecovered persistence
// failure, or nil once a later save succeeds.
func (s *Service) LastPersistenceError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPersistErr
}

// volatileStore keeps the blob in process memory.
type volatileStore struct {
	mu   sync.Mutex
	blob []byte
}

func (v *volatileStore) Load(context.Context) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.blob == nil {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v.blob...), nil
}

func (v *volatileStore) Save(_ context.Context, blob []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.blob = append([]byte(nil), blob...)
	return nil
}
