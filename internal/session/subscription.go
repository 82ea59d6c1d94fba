package session

import (
	"slices"
	"sync"
)

// Event is delivered to subscribers; exactly one field is set.
type Event struct {
	Snapshot *Snapshot
	Notice   *Notice
}

// Subscription delivers events in order. Snapshots that have not been
// received yet are replaced by newer ones, so a slow reader still ends on the
// latest state.
type Subscription struct {
	C <-chan Event

	id     uint64
	ctrl   *Controller
	ch     chan Event
	mu     sync.Mutex
	queue  []Event
	wake   chan struct{}
	done   chan struct{}
	closed sync.Once
}

func newSubscription(id uint64, ctrl *Controller) *Subscription {
	ch := make(chan Event)
	s := &Subscription{
		C:    ch,
		id:   id,
		ctrl: ctrl,
		ch:   ch,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	if ev.Snapshot != nil {
		s.queue = slices.DeleteFunc(s.queue, func(q Event) bool { return q.Snapshot != nil })
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Event{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			ev, ok := s.pop()
			if !ok {
				break
			}
			select {
			case s.ch <- ev:
			case <-s.done:
				return
			}
		}
	}
}

// Close stops delivery and closes C.
func (s *Subscription) Close() {
	s.closed.Do(func() {
		close(s.done)
		s.ctrl.loop.post(func() { delete(s.ctrl.subs, s.id) })
	})
}
