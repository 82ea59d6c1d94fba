package debounce

import (
	"sync"
	"time"
)

// Keyed runs fn(key) once input for key has been quiet for the delay. Each
// key has its own trailing-edge window; triggering one key never delays
// another.
type Keyed struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(key string)
	pending map[string]*Debouncer
}

func NewKeyed(delay time.Duration, fn func(key string)) *Keyed {
	return &Keyed{delay: delay, fn: fn, pending: make(map[string]*Debouncer)}
}

func (k *Keyed) Trigger(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, ok := k.pending[key]
	if !ok {
		d = &Debouncer{delay: k.delay}
		d.fn = func() { k.fire(key, d) }
		k.pending[key] = d
	}
	// Re-arm under k.mu so fire cannot drop the entry in between.
	d.Trigger()
}

// Cancel drops the pending window for key and reports whether one existed.
func (k *Keyed) Cancel(key string) bool {
	k.mu.Lock()
	d, ok := k.pending[key]
	delete(k.pending, key)
	k.mu.Unlock()
	if ok {
		d.Stop()
	}
	return ok
}

func (k *Keyed) Pending(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	_, ok := k.pending[key]
	return ok
}

// Keys returns the keys with a pending window.
func (k *Keyed) Keys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys := make([]string, 0, len(k.pending))
	for key := range k.pending {
		keys = append(keys, key)
	}
	return keys
}

// Stop cancels every pending window.
func (k *Keyed) Stop() {
	k.mu.Lock()
	pending := k.pending
	k.pending = make(map[string]*Debouncer)
	k.mu.Unlock()
	for _, d := range pending {
		d.Stop()
	}
}

func (k *Keyed) fire(key string, d *Debouncer) {
	k.mu.Lock()
	if k.pending[key] != d || d.armed() {
		k.mu.Unlock()
		return
	}
	delete(k.pending, key)
	k.mu.Unlock()
	k.fn(key)
}
