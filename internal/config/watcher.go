package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the watcher waits after the last event on the config
// file before reloading, so that a burst of writes produces one reload.
const settle = 100 * time.Millisecond

// Watcher reloads a Config when its file changes on disk.
//
// The parent directory is watched rather than the file itself: editors and
// deploy tooling commonly save by writing a temp file and renaming it over
// the target, or by swapping a symlink, and a watch on the old inode would
// be lost after the first such save.
type Watcher struct {
	cfg  *Config
	fsw  *fsnotify.Watcher
	done chan struct{}
	stop sync.Once

	mu        sync.Mutex
	listeners []func(*Config)
}

// NewWatcher creates a watcher for cfg. Call Start to begin watching.
func NewWatcher(cfg *Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{cfg: cfg, fsw: fsw, done: make(chan struct{})}, nil
}

// OnReload registers fn to run after each successful reload.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

// Start begins watching. It is a no-op for configs not loaded from a file.
func (w *Watcher) Start() error {
	target := w.cfg.Path()
	if target == "" {
		return nil
	}
	if err := w.fsw.Add(filepath.Dir(target)); err != nil {
		return err
	}
	go w.loop(filepath.Clean(target))
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

// touches reports whether ev may have changed the contents at target.
// Removal alone is ignored; the replacement file arrives as Create or Rename.
func touches(ev fsnotify.Event, target string) bool {
	if filepath.Clean(ev.Name) != target {
		return false
	}
	return ev.Op&^fsnotify.Remove != 0
}

func (w *Watcher) loop(target string) {
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !touches(ev, target) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(settle, w.apply)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) apply() {
	if err := w.cfg.Reload(); err != nil {
		slog.Error("Failed to reload config, keeping previous values", "path", w.cfg.Path(), "error", err)
		return
	}
	slog.Info("Config reloaded", "path", w.cfg.Path())

	w.mu.Lock()
	listeners := append(([]func(*Config))(nil), w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(w.cfg)
	}
}
