package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/thiagokokada/gitdesk/internal/debounce"
)

// ContentChanged records new content for path. The write happens once edits
// to path have been quiet for the debounce delay.
func (c *Controller) ContentChanged(path, content string) error {
	if path == "" {
		return validationError("content changed", errors.New("empty path"))
	}
	return c.loop.call(func() error {
		c.writer.change(path, content)
		c.changed()
		return nil
	})
}

// Flush writes pending content for path without waiting for the debounce
// delay. A write already in flight is followed by one more carrying the
// newest content.
func (c *Controller) Flush(path string) error {
	return c.loop.call(func() error {
		c.writer.flushNow(path)
		return nil
	})
}

type pendingWrite struct {
	latest   string
	dirty    bool
	inflight bool
	queued   bool
	waiters  []func()
}

// writer serializes edits per path. Only the loop goroutine touches paths;
// the debouncer posts its callbacks back to the loop.
type writer struct {
	c      *Controller
	timers *debounce.Keyed
	paths  map[string]*pendingWrite
}

func newWriter(c *Controller, delay time.Duration) *writer {
	w := &writer{c: c, paths: make(map[string]*pendingWrite)}
	w.timers = debounce.NewKeyed(delay, func(path string) {
		c.loop.post(func() { w.flush(path) })
	})
	return w
}

func (w *writer) change(path, content string) {
	p := w.paths[path]
	if p == nil {
		p = &pendingWrite{}
		w.paths[path] = p
	}
	p.latest = content
	p.dirty = true
	w.timers.Trigger(path)
}

func (w *writer) flushNow(path string) {
	w.timers.Cancel(path)
	w.flush(path)
}

func (w *writer) flushAll() {
	w.timers.Stop()
	for path := range w.paths {
		w.flush(path)
	}
}

func (w *writer) flush(path string) {
	p := w.paths[path]
	if p == nil {
		return
	}
	if p.inflight {
		if p.dirty {
			p.queued = true
		}
		return
	}
	if !p.dirty {
		w.settle(path, p)
		return
	}
	w.send(path, p)
}

func (w *writer) send(path string, p *pendingWrite) {
	content := p.latest
	p.dirty = false
	p.inflight = true
	slog.Debug("writing file", slog.String("path", path), slog.Int("bytes", len(content)))
	call := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.c.repo.UpdateFileContent(ctx, path, content)
	}
	fetch(w.c, call, func(_ struct{}, err error) {
		p.inflight = false
		if err != nil {
			w.c.notify(errorNotice(&Error{Kind: KindWrite, Op: "write", Path: path, Err: err}))
		} else if !p.dirty {
			w.c.written(path, content)
		}
		if p.queued {
			p.queued = false
			w.timers.Cancel(path)
			w.flush(path)
		}
		if !p.inflight && !p.dirty {
			w.settle(path, p)
		}
		w.c.changed()
	})
}

func (w *writer) settle(path string, p *pendingWrite) {
	if w.paths[path] == p {
		delete(w.paths, path)
	}
	waiters := p.waiters
	p.waiters = nil
	for _, fn := range waiters {
		fn()
	}
}

// whenSettled flushes paths and runs fn once none of them has a write
// pending or in flight.
func (w *writer) whenSettled(paths []string, fn func()) {
	remaining := 0
	for _, path := range paths {
		p := w.paths[path]
		if p == nil {
			continue
		}
		w.flushNow(path)
		if w.paths[path] != p {
			continue
		}
		remaining++
		p.waiters = append(p.waiters, func() {
			remaining--
			if remaining == 0 {
				fn()
			}
		})
	}
	if remaining == 0 {
		fn()
	}
}

// latest returns content that has not been confirmed by the repository yet.
func (w *writer) latest(path string) (string, bool) {
	p := w.paths[path]
	if p == nil {
		return "", false
	}
	return p.latest, true
}

func (w *writer) pending() []string {
	if len(w.paths) == 0 {
		return nil
	}
	paths := make([]string, 0, len(w.paths))
	for path := range w.paths {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// written reflects a confirmed write into the views showing path.
func (c *Controller) written(path, content string) {
	c.sel.SetModified(path, content)
	if c.browse.Path == path {
		c.browse.Content = content
	}
	c.refreshUncommitted()
}
