// Package persist mirrors session state into a durable slot so a later
// process can pick up where the previous one stopped.
package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/thiagokokada/gitdesk/internal/session"
)

const DefaultSession = "default"

// Persistence owns the slot of one logical session. The session name maps
// to a generated id; the slot is keyed by that id so Clear can abandon it.
type Persistence struct {
	store Store
	name  string

	mu   sync.Mutex
	id   string
	last []byte
}

func New(store Store, name string) (*Persistence, error) {
	if name == "" {
		name = DefaultSession
	}
	p := &Persistence{store: store, name: name}
	raw, ok, err := store.Get(p.nameKey())
	if err != nil {
		return nil, err
	}
	if ok {
		if id, err := uuid.ParseBytes(raw); err == nil {
			p.id = id.String()
			return p, nil
		}
		slog.Debug("replacing malformed session id", slog.String("session", name))
	}
	if err := p.rotate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persistence) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Load returns the saved state. A missing or unreadable slot reports false.
func (p *Persistence) Load() (session.State, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	raw, ok, err := p.store.Get(p.slotKey())
	if err != nil || !ok {
		return session.State{}, false, err
	}
	st, ok := Decode(raw)
	if !ok {
		slog.Debug("ignoring unreadable session slot", slog.String("id", p.id))
		return session.State{}, false, nil
	}
	return st, true, nil
}

func (p *Persistence) Save(st session.State) error {
	doc, err := Encode(st)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if bytes.Equal(doc, p.last) {
		return nil
	}
	if err := p.store.Put(p.slotKey(), doc); err != nil {
		return err
	}
	p.last = doc
	return nil
}

// Clear deletes the slot and moves the session to a fresh id.
func (p *Persistence) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Delete(p.slotKey()); err != nil {
		return err
	}
	p.last = nil
	return p.rotate()
}

// Observe saves every snapshot delivered by sub until it closes or ctx ends.
func (p *Persistence) Observe(ctx context.Context, sub *session.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Snapshot == nil {
				continue
			}
			if err := p.Save(ev.Snapshot.State()); err != nil {
				slog.Error("persist session", slog.Any("error", err))
			}
		}
	}
}

// Hydrate restores the saved state into ctrl and revalidates it, or simply
// loads fresh data when nothing was saved.
func Hydrate(ctrl *session.Controller, p *Persistence) error {
	st, ok, err := p.Load()
	if err != nil {
		slog.Error("load persisted session", slog.Any("error", err))
	}
	if !ok {
		return ctrl.Refresh()
	}
	slog.Debug("hydrating session", slog.String("id", p.ID()))
	return ctrl.Hydrate(st)
}

// Reset clears both the controller and its persisted slot.
func Reset(ctrl *session.Controller, p *Persistence) error {
	return errors.Join(ctrl.Reset(), p.Clear())
}

func (p *Persistence) rotate() error {
	id := uuid.NewString()
	if err := p.store.Put(p.nameKey(), []byte(id)); err != nil {
		return fmt.Errorf("store session id: %w", err)
	}
	p.id = id
	return nil
}

func (p *Persistence) nameKey() string {
	return "session/" + p.name
}

func (p *Persistence) slotKey() string {
	return "slot/" + p.id
}
