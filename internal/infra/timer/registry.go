// Package timer mantiene los timers en memoria del proceso, uno por key.
package timer

import (
	"sync"
	"time"
)

type Registry struct {
	mu     sync.Mutex
	timers map[string]*entry
	seq    uint64
	now    func() time.Time
}

type entry struct {
	t   *time.Timer
	seq uint64
}

func NewRegistry() *Registry {
	return &Registry{timers: map[string]*entry{}, now: time.Now}
}

// ArmAt programa fn para at. Si la key ya tenía timer se reemplaza.
// Un instante pasado dispara enseguida.
func (r *Registry) ArmAt(key string, at time.Time, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[key]; ok {
		old.t.Stop()
	}
	r.seq++
	e := &entry{seq: r.seq}
	d := at.Sub(r.now())
	if d < 0 {
		d = 0
	}
	e.t = time.AfterFunc(d, func() {
		// se suelta la key antes de correr fn: fn puede re-armarla
		r.mu.Lock()
		cur, ok := r.timers[key]
		if !ok || cur.seq != e.seq {
			r.mu.Unlock()
			return
		}
		delete(r.timers, key)
		r.mu.Unlock()
		fn()
	})
	r.timers[key] = e
}

func (r *Registry) Cancel(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.timers[key]; ok {
		e.t.Stop()
		delete(r.timers, key)
	}
}

// Armed indica si hay un timer pendiente para key.
func (r *Registry) Armed(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[key]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancela todo. Se usa en el shutdown.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.timers {
		e.t.Stop()
		delete(r.timers, k)
	}
}
