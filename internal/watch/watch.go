// Package watch reports repository changes made outside the session.
package watch

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitdesk/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	closed   bool
	done     chan struct{}
}

// Start watches the repository at root and calls onChange once events have
// been quiet for delay.
func Start(root string, delay time.Duration, onChange func()) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for path := range watchPaths(root) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fw.Add(path); err != nil {
			err := errors.Join(err, fw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	w := &Watcher{
		watcher: fw,
		done:    make(chan struct{}),
	}
	w.debounce = debounce.New(delay, func() {
		slog.Debug("repository changed on disk")
		onChange()
	})
	go w.loop()
	return w, nil
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	w.debounce.Stop()
	err := w.watcher.Close()
	<-w.done
	w.debounce.Stop()
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.debounce.Trigger()
}

// watchPaths prefers the .git directory, which changes on commits, index
// updates and ref moves, over the whole worktree.
func watchPaths(root string) iter.Seq[string] {
	if root == "" {
		return func(func(string) bool) {}
	}
	uniquePaths := map[string]struct{}{}
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		uniquePaths[gitDir] = struct{}{}
		return maps.Keys(uniquePaths)
	}
	uniquePaths[root] = struct{}{}
	return maps.Keys(uniquePaths)
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
