// Package session implements the controller behind a browsing session: the
// commit, file and version selection, debounced edit persistence and the
// commit/rollback workflows.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thiagokokada/gitdesk/internal/git"
	"github.com/thiagokokada/gitdesk/internal/session/selection"
)

const DefaultDebounce = 500 * time.Millisecond

type Options struct {
	// Debounce is the quiet period before an edit is written.
	Debounce time.Duration
	// CallTimeout bounds each repository call; zero means no limit.
	CallTimeout time.Duration
}

// Controller owns all session state. Its methods are safe for concurrent use;
// every state transition runs on a single internal goroutine.
type Controller struct {
	repo Repository
	opts Options
	loop *loop

	ctx    context.Context
	cancel context.CancelFunc

	// Loop-owned state.
	sel         selection.State
	commits     []git.Commit
	loaded      bool
	uncommitted []string
	refreshSeq  uint64
	listingSeq  uint64
	writer      *writer
	mutations   map[MutationKind]*workflow
	browse      browseState
	revision    uint64
	subs        map[uint64]*Subscription
	nextSub     uint64
}

func New(repo Repository, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		repo:   repo,
		opts:   opts,
		loop:   newLoop(),
		ctx:    ctx,
		cancel: cancel,
		mutations: map[MutationKind]*workflow{
			MutationCommit:   newWorkflow(MutationCommit),
			MutationRollback: newWorkflow(MutationRollback),
		},
		subs: make(map[uint64]*Subscription),
	}
	c.sel.Clear()
	c.writer = newWriter(c, opts.Debounce)
	return c
}

// Close writes every pending edit, waits for outstanding calls and stops the
// controller. Work still running when ctx ends is abandoned.
func (c *Controller) Close(ctx context.Context) error {
	var idle chan struct{}
	err := c.loop.call(func() error {
		c.writer.flushAll()
		idle = c.loop.whenIdle()
		return nil
	})
	if err != nil {
		return nil
	}
	select {
	case <-idle:
	case <-ctx.Done():
		err = fmt.Errorf("flush pending writes: %w", ctx.Err())
	}
	c.cancel()
	_ = c.loop.call(func() error {
		for id, s := range c.subs {
			s.closed.Do(func() { close(s.done) })
			delete(c.subs, id)
		}
		return nil
	})
	c.loop.stop()
	return err
}

// Wait blocks until every outstanding repository call has completed and its
// result has been applied. Edits still inside their debounce window are not
// waited for.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		var idle chan struct{}
		if err := c.loop.call(func() error {
			idle = c.loop.whenIdle()
			return nil
		}); err != nil {
			return err
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
		// Completions may have been posted behind the idle signal.
		var busy bool
		if err := c.loop.call(func() error {
			busy = c.loop.inflight > 0
			return nil
		}); err != nil {
			return err
		}
		if !busy {
			return nil
		}
	}
}

func (c *Controller) Snapshot() Snapshot {
	var snap Snapshot
	_ = c.loop.call(func() error {
		snap = c.snapshot()
		return nil
	})
	return snap
}

// Subscribe returns a subscription whose first event is the current
// snapshot.
func (c *Controller) Subscribe() (*Subscription, error) {
	var sub *Subscription
	err := c.loop.call(func() error {
		c.nextSub++
		sub = newSubscription(c.nextSub, c)
		c.subs[sub.id] = sub
		snap := c.snapshot()
		sub.push(Event{Snapshot: &snap})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (c *Controller) changed() {
	c.revision++
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshot()
	for _, s := range c.subs {
		s.push(Event{Snapshot: &snap})
	}
}

func (c *Controller) notify(n Notice) {
	if n.Level >= slog.LevelError {
		slog.Error(n.Message, slog.String("kind", string(n.Kind)), slog.Any("error", n.Err))
	} else {
		slog.Info(n.Message, slog.String("kind", string(n.Kind)))
	}
	for _, s := range c.subs {
		s.push(Event{Notice: &n})
	}
}

func (c *Controller) callContext() (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout > 0 {
		return context.WithTimeout(c.ctx, c.opts.CallTimeout)
	}
	return context.WithCancel(c.ctx)
}

// fetch runs call off the loop and applies done on it.
func fetch[T any](c *Controller, call func(context.Context) (T, error), done func(T, error)) {
	c.loop.begin()
	go func() {
		ctx, cancel := c.callContext()
		v, err := call(ctx)
		cancel()
		c.loop.post(func() {
			defer c.loop.end()
			done(v, err)
		})
	}()
}
