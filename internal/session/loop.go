package session

import (
	"sync"
)

// loop runs every state transition on one goroutine. Work may be posted from
// any goroutine, including the loop itself.
type loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// Fields below are only touched on the loop goroutine.
	inflight int
	idle     []chan struct{}
}

func newLoop() *loop {
	l := &loop{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			select {
			case <-l.quit:
				return
			default:
			}
		}
	}
}

func (l *loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// post schedules fn and reports false once the loop has stopped.
func (l *loop) post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// call runs fn on the loop and waits for its result. It must not be used
// from the loop goroutine.
func (l *loop) call(fn func() error) error {
	errc := make(chan error, 1)
	if !l.post(func() { errc <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-l.stopped:
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	}
}

// begin marks background work whose completion will be posted back.
func (l *loop) begin() {
	l.inflight++
}

func (l *loop) end() {
	l.inflight--
	if l.inflight > 0 {
		return
	}
	for _, ch := range l.idle {
		close(ch)
	}
	l.idle = nil
}

// whenIdle returns a channel closed once no background work is in flight.
func (l *loop) whenIdle() chan struct{} {
	ch := make(chan struct{})
	if l.inflight == 0 {
		close(ch)
		return ch
	}
	l.idle = append(l.idle, ch)
	return ch
}

func (l *loop) stop() {
	l.once.Do(func() { close(l.quit) })
	<-l.stopped
}
