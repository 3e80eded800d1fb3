// Package watch reloads the scene when its file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 50 * time.Millisecond

type Option func(*Watcher)

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce sets the quiet period after the last event before the file
// is read.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher posts the contents of one file each time it is written.
type Watcher struct {
	path     string
	post     func(src string)
	log      *zap.Logger
	debounce time.Duration
}

func New(path string, post func(src string), opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		post:     post,
		log:      zap.NewNop(),
		debounce: DefaultDebounce,
	}
	if abs, err := filepath.Abs(w.path); err == nil {
		w.path = abs
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) Path() string { return w.path }

// Initial posts the file's current contents.
func (w *Watcher) Initial() error {
	src, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("watch: read %s: %w", w.path, err)
	}
	w.post(string(src))
	return nil
}

// Run watches the file's directory until ctx ends. Editors that save by
// rename are covered because the directory, not the file, is watched.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}
	w.log.Info("watching scene", zap.String("path", w.path))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				rearm(timer, w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

// rearm restarts t, discarding a tick that fired but was never received so
// the next receive waits the full d.
func rearm(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (w *Watcher) reload() {
	src, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn("scene read failed", zap.Error(err))
		}
		return
	}
	// Editors often truncate before writing; the write that follows
	// triggers another reload.
	if len(src) == 0 {
		w.log.Debug("skipping empty scene file")
		return
	}
	w.log.Debug("scene changed", zap.Int("bytes", len(src)))
	w.post(string(src))
}
