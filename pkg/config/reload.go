package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDuration coalesces bursts of filesystem events (editors
// commonly write-then-rename) into a single reload.
const DefaultDebounceDuration = 250 * time.Millisecond

// Watcher reloads a Tuning from disk whenever its backing file changes,
// mirroring vanderheijden86-beadwork/pkg/watcher's fsnotify-driven,
// debounced file watch — trimmed to what a single config file needs: no
// polling fallback, since a config file living on a remote filesystem is
// outside goddo's supported deployment shape.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	onChange         func(Tuning)
	onError          func(error)

	fsWatcher *fsnotify.Watcher

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	timer   *time.Timer
}

// NewWatcher creates a Watcher for the config file at path. onChange is
// called with the freshly reloaded Tuning after every debounced change;
// onError is called if the reload fails (the previous Tuning stays live).
func NewWatcher(path string, onChange func(Tuning), onError func(error)) *Watcher {
	if onChange == nil {
		onChange = func(Tuning) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{
		path:             path,
		debounceDuration: DefaultDebounceDuration,
		onChange:         onChange,
		onError:          onError,
	}
}

// Start begins watching. Safe to call once; a second call is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.fsWatcher = fsw
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.started = true
	go w.watch()
	return nil
}

// Stop stops watching and releases the fsnotify handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.cancel()
	w.fsWatcher.Close()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.started = false
}

func (w *Watcher) watch() {
	target := filepath.Base(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.debounce(w.reload)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) debounce(f func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDuration, f)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.onError(err)
		return
	}
	w.onChange(cfg.Tuning)
}
