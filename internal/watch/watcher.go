// Package watch reloads a service when the file backing its state changes on
// disk, so several processes sharing one store converge.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 150 * time.Millisecond

// Reloader re-reads persisted state.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithNotify registers fn to run after every reload attempt with its result.
func WithNotify(fn func(error)) Option {
	return func(w *Watcher) { w.notify = fn }
}

// Watcher monitors the directory holding a state file. Watching the
// directory survives atomic rename-over writes and sqlite journal files.
type Watcher struct {
	path     string
	base     string
	target   Reloader
	logger   *zap.Logger
	debounce time.Duration
	notify   func(error)
	fw       *fsnotify.Watcher
}

// New prepares a watcher for path. Call Run to start it.
func New(path string, target Reloader, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		base:     filepath.Base(abs),
		target:   target,
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
		fw:       fw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the watched state file.
func (w *Watcher) Path() string { return w.path }

// Run blocks until ctx is cancelled, reloading the target once per burst of
// changes to the state file.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fw.Close() }()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
			pending = true
		case <-timer.C:
			pending = false
			err := w.target.Reload(ctx)
			if err != nil {
				w.logger.Warn("reload after change failed", zap.String("path", w.path), zap.Error(err))
			} else {
				w.logger.Debug("reloaded after change", zap.String("path", w.path))
			}
			if w.notify != nil {
				w.notify(err)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if name == w.base {
		return true
	}
	// sqlite journal and fs blob sidecar files
	for _, suffix := range []string{"-wal", "-journal", ".meta"} {
		if strings.TrimSuffix(name, suffix) == w.base && name != w.base {
			return true
		}
	}
	return false
}
