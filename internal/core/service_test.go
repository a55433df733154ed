package core_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"habitcore/internal/core"
	"habitcore/internal/infra/persistence/memory"
	"habitcore/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 10, 21, 30, 0, 0, time.UTC)

func fixedClock() core.Clock {
	return core.ClockFunc(func() time.Time { return fixedNow })
}

type flakyStore struct {
	mu      sync.Mutex
	blob    []byte
	loadErr error
	saveErr error
	saves   int
}

func (f *flakyStore) Load(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.blob == nil {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), f.blob...), nil
}

func (f *flakyStore) Save(_ context.Context, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.blob = append([]byte(nil), blob...)
	return nil
}

func (f *flakyStore) setSaveErr(err error) {
	f.mu.Lock()
	f.saveErr = err
	f.mu.Unlock()
}

func (f *flakyStore) stored(t *testing.T) domain.State {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := domain.DecodeState(f.blob)
	if err != nil {
		t.Fatalf("decode stored blob: %v", err)
	}
	return state
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

func TestNewServiceSeedsDefaultsWhenStoreEmpty(t *testing.T) {
	store := &flakyStore{}
	svc := core.NewService(context.Background(), store, core.WithClock(fixedClock()))
	habits := svc.ListHabits()
	if len(habits) != 3 || habits[0].ID != "development" || habits[1].ID != "dsa-practice" || habits[2].ID != "walking" {
		t.Fatalf("unexpected seed habits %+v", habits)
	}
	if store.saves != 0 {
		t.Fatalf("seed state should not be written until the first mutation")
	}
	if svc.LastPersistenceError() != nil {
		t.Fatalf("missing state is not a persistence failure")
	}
	if svc.Today() != "2024-03-10" {
		t.Fatalf("unexpected today %s", svc.Today())
	}
}

func TestNewServiceRecoversFromMalformedState(t *testing.T) {
	obsCore, logs := observer.New(zapcore.WarnLevel)
	store := &flakyStore{blob: []byte(`{"habits": [`)}
	svc := coreService(t, store, zap.New(obsCore))
	if len(svc.ListHabits()) != 3 {
		t.Fatalf("expected seed habits after malformed blob")
	}
	if svc.LastPersistenceError() != nil {
		t.Fatalf("malformed state should not surface as a persistence error")
	}
	if logs.FilterMessage("stored state unusable, using defaults").Len() != 1 {
		t.Fatalf("expected warning about unusable state, got %v", logs.All())
	}
	if _, err := svc.ToggleToday(context.Background(), "walking"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := store.stored(t); len(got.Entries) != 1 {
		t.Fatalf("expected malformed blob to be overwritten, got %+v", got)
	}
}

func TestNewServiceRecordsLoadFailure(t *testing.T) {
	store := &flakyStore{loadErr: errors.New("disk gone")}
	svc := core.NewService(context.Background(), store)
	var perr domain.PersistenceError
	if !errors.As(svc.LastPersistenceError(), &perr) || perr.Op != "load" {
		t.Fatalf("expected load persistence error, got %v", svc.LastPersistenceError())
	}
	if len(svc.ListHabits()) != 3 {
		t.Fatalf("expected seed habits")
	}
}

func TestMutationsPersistFullState(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{}
	svc := core.NewService(ctx, store, core.WithClock(fixedClock()), core.WithIDToken(func() string { return "t1" }))

	habit, err := svc.AddHabit(ctx, "  Read  ", "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if habit.ID != "read-t1" || habit.Name != "Read" || habit.Emoji != domain.DefaultEmoji {
		t.Fatalf("unexpected habit %+v", habit)
	}
	if _, err := svc.ToggleCompletion(ctx, "2024-03-09", habit.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := svc.DeleteHabit(ctx, "walking"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	stored := store.stored(t)
	if len(stored.Habits) != 3 || stored.Habits[2].ID != "read-t1" {
		t.Fatalf("unexpected stored habits %+v", stored.Habits)
	}
	if len(stored.Entries) != 1 || stored.Entries[0].Date != "2024-03-09" || !stored.Entries[0].Has("read-t1") {
		t.Fatalf("unexpected stored entries %+v", stored.Entries)
	}

	reopened := core.NewService(ctx, store, core.WithClock(fixedClock()))
	if !reopened.IsCompleted("2024-03-09", "read-t1") || len(reopened.ListHabits()) != 3 {
		t.Fatalf("state did not survive reopen")
	}
}

func TestAddHabitValidationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{}
	metrics := &captureMetricsRecorder{}
	svc := core.NewService(ctx, store, core.WithMetrics(metrics))
	_, err := svc.AddHabit(ctx, "   ", "🔥")
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(svc.ListHabits()) != 3 || store.saves != 0 {
		t.Fatalf("rejected add must not mutate or persist")
	}
	if !metrics.has(core.OpAddHabit, false) {
		t.Fatalf("expected failed add_habit observation")
	}
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	obsCore, logs := observer.New(zapcore.ErrorLevel)
	store := &flakyStore{}
	metrics := &captureMetricsRecorder{}
	svc := core.NewService(ctx, store, core.WithLogger(zap.New(obsCore)), core.WithMetrics(metrics), core.WithClock(fixedClock()))

	store.setSaveErr(errors.New("quota exceeded"))
	completed, err := svc.ToggleToday(ctx, "development")
	if err != nil || !completed {
		t.Fatalf("toggle should succeed in memory: %v %v", completed, err)
	}
	if !svc.IsCompleted(svc.Today(), "development") {
		t.Fatalf("in-memory state should reflect the toggle")
	}
	var perr domain.PersistenceError
	if !errors.As(svc.LastPersistenceError(), &perr) || perr.Op != "save" {
		t.Fatalf("expected save persistence error, got %v", svc.LastPersistenceError())
	}
	if logs.FilterMessage("persist state failed").Len() != 1 {
		t.Fatalf("expected persist failure log")
	}
	if !metrics.has(core.OpPersist, false) || !metrics.has(core.OpToggle, true) {
		t.Fatalf("unexpected metrics %+v", metrics.calls)
	}

	store.setSaveErr(nil)
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("flush after recovery: %v", err)
	}
	if svc.LastPersistenceError() != nil {
		t.Fatalf("successful save should clear the persistence error")
	}
	if !store.stored(t).Entries[0].Has("development") {
		t.Fatalf("recovered save should include earlier mutation")
	}
}

func TestToggleCompletionRejectsInvalidDate(t *testing.T) {
	svc := core.NewInMemoryService(context.Background())
	_, err := svc.ToggleCompletion(context.Background(), "03/10/2024", "walking")
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "date" {
		t.Fatalf("expected date validation error, got %v", err)
	}
}

func TestToggleTwiceRestoresEntry(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService(ctx, core.WithClock(fixedClock()))
	for i := 0; i < 2; i++ {
		if _, err := svc.ToggleToday(ctx, "walking"); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}
	if svc.IsCompleted(svc.Today(), "walking") {
		t.Fatalf("double toggle should clear completion")
	}
	if got := svc.GetEntry(svc.Today()); len(got.CompletedHabits) != 0 {
		t.Fatalf("expected empty entry, got %+v", got)
	}
}

func TestToggleUnknownHabitIsRecorded(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService(ctx, core.WithClock(fixedClock()))
	if _, err := svc.ToggleCompletion(ctx, "2024-03-10", "not-a-habit"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !svc.IsCompleted("2024-03-10", "not-a-habit") {
		t.Fatalf("expected unknown id recorded in ledger")
	}
	for _, h := range svc.ListHabits() {
		if h.ID == "not-a-habit" {
			t.Fatalf("unknown id must not appear in registry")
		}
	}
	if got := svc.CompletionHistory(1)[0]; got.Completed != 0 || got.Total != 3 {
		t.Fatalf("unknown id should not count toward history, got %+v", got)
	}
}

func TestServiceAnalyticsFollowClock(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService(ctx, core.WithClock(fixedClock()))
	today := svc.Today()
	for _, day := range []domain.Date{today.AddDays(-2), today.AddDays(-1)} {
		for _, h := range svc.ListHabits() {
			if _, err := svc.ToggleCompletion(ctx, day, h.ID); err != nil {
				t.Fatalf("toggle: %v", err)
			}
		}
	}
	if _, err := svc.ToggleToday(ctx, "walking"); err != nil {
		t.Fatalf("toggle today: %v", err)
	}
	if svc.CurrentStreak() != 2 || svc.LongestStreak() != 2 {
		t.Fatalf("expected streaks 2/2, got %d/%d", svc.CurrentStreak(), svc.LongestStreak())
	}
	summary := svc.Summary(7)
	if summary.Today != today || len(summary.History) != 7 || summary.History[6].Percentage != 33 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if err := svc.DeleteHabit(ctx, "walking"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteHabit(ctx, "walking"); err != nil {
		t.Fatalf("deleting unknown id should be a no-op: %v", err)
	}
	history := svc.CompletionHistory(3)
	if history[0].Total != 2 || history[0].Percentage != 100 || history[2].Completed != 0 {
		t.Fatalf("expected retroactive recompute, got %+v", history)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService(ctx, core.WithClock(fixedClock()))
	if _, err := svc.ToggleToday(ctx, "walking"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	snap := svc.Snapshot()
	snap.Habits[0].Name = "changed"
	snap.Entries[0].CompletedHabits[0] = "changed"
	if svc.ListHabits()[0].Name == "changed" || !svc.IsCompleted(svc.Today(), "walking") {
		t.Fatalf("snapshot mutation leaked into service")
	}
}

func TestVersionConflictKeepsMemoryAndReloadAdopts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore("")
	first := core.NewService(ctx, store, core.WithClock(fixedClock()))
	second := core.NewService(ctx, store, core.WithClock(fixedClock()))

	if _, err := first.ToggleToday(ctx, "development"); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if first.Version() != 1 || first.LastPersistenceError() != nil {
		t.Fatalf("expected first writer at version 1, got %d %v", first.Version(), first.LastPersistenceError())
	}

	if _, err := second.ToggleToday(ctx, "walking"); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if !errors.Is(second.LastPersistenceError(), domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", second.LastPersistenceError())
	}
	if !second.IsCompleted(second.Today(), "walking") {
		t.Fatalf("in-memory state should survive a conflict")
	}

	if err := second.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if second.Version() != 1 || !second.IsCompleted(second.Today(), "development") || second.IsCompleted(second.Today(), "walking") {
		t.Fatalf("reload should adopt stored state")
	}
	if _, err := second.ToggleToday(ctx, "walking"); err != nil {
		t.Fatalf("toggle after reload: %v", err)
	}
	if second.LastPersistenceError() != nil || second.Version() != 2 {
		t.Fatalf("expected clean write after reload, got %v at %d", second.LastPersistenceError(), second.Version())
	}
}

func TestReloadKeepsStateOnFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{}
	metrics := &captureMetricsRecorder{}
	svc := core.NewService(ctx, store, core.WithMetrics(metrics))
	if _, err := svc.AddHabit(ctx, "Journal", "📝"); err != nil {
		t.Fatalf("add: %v", err)
	}
	store.blob = []byte("not json")
	var merr domain.MalformedStateError
	if err := svc.Reload(ctx); !errors.As(err, &merr) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if len(svc.ListHabits()) != 4 {
		t.Fatalf("failed reload must keep in-memory state")
	}
	if !metrics.has(core.OpReload, false) || !metrics.has(core.OpLoad, true) {
		t.Fatalf("unexpected metrics %+v", metrics.calls)
	}
}

// gatedStore parks the next LoadVersioned call until gate is closed.
type gatedStore struct {
	*memory.Store
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedStore) LoadVersioned(ctx context.Context) ([]byte, int64, error) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.gate
	}
	return g.Store.LoadVersioned(ctx)
}

func TestReloadDoesNotDropConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{Store: memory.NewStore(""), entered: make(chan struct{}), gate: make(chan struct{})}
	svc := core.NewService(ctx, store, core.WithClock(fixedClock()))
	if _, err := svc.AddHabit(ctx, "Stretch", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	store.armed.Store(true)
	reloaded := make(chan error, 1)
	go func() { reloaded <- svc.Reload(ctx) }()
	<-store.entered

	added := make(chan error, 1)
	go func() {
		_, err := svc.AddHabit(ctx, "Journal", "")
		added <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.gate)

	if err := <-reloaded; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := <-added; err != nil {
		t.Fatalf("add during reload: %v", err)
	}
	found := false
	for _, h := range svc.ListHabits() {
		if h.Name == "Journal" {
			found = true
		}
	}
	if !found {
		t.Fatalf("mutation made during reload was lost: %+v", svc.ListHabits())
	}
	if svc.Version() != 2 || svc.LastPersistenceError() != nil {
		t.Fatalf("expected clean write at version 2, got %d %v", svc.Version(), svc.LastPersistenceError())
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc := core.NewService(ctx, memory.NewStore(""), core.WithClock(fixedClock()))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddHabit(ctx, "Parallel", ""); err != nil {
				t.Errorf("add: %v", err)
			}
			_ = svc.Summary(7)
		}()
	}
	wg.Wait()
	if got := len(svc.ListHabits()); got != 23 {
		t.Fatalf("expected 23 habits, got %d", got)
	}
	if svc.Version() != 20 || svc.LastPersistenceError() != nil {
		t.Fatalf("expected 20 clean versioned writes, got %d %v", svc.Version(), svc.LastPersistenceError())
	}
}

func coreService(t *testing.T, store domain.EntryStore, logger *zap.Logger) *core.Service {
	t.Helper()
	return core.NewService(context.Background(), store, core.WithLogger(logger), core.WithClock(fixedClock()))
}
