package cart

import (
	"sync"
	"time"
)

type entry struct {
	mu       sync.Mutex
	engine   *Engine
	lastSeen time.Time
}

// Registry owns one Engine per browsing session. Carts live only in process
// memory and disappear on Drop, Prune or restart.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*entry
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*entry), now: time.Now}
}

// Do runs fn with exclusive access to the cart for id, creating it if needed.
func (r *Registry) Do(id string, fn func(*Engine) error) error {
	r.mu.Lock()
	en, ok := r.carts[id]
	if !ok {
		en = &entry{engine: New()}
		r.carts[id] = en
	}
	en.lastSeen = r.now()
	r.mu.Unlock()

	en.mu.Lock()
	defer en.mu.Unlock()
	return fn(en.engine)
}

func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.carts, id)
	r.mu.Unlock()
}

// Prune drops carts untouched for longer than idle and reports how many went.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, en := range r.carts {
		if en.lastSeen.Before(cutoff) {
			delete(r.carts, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}
