package trip

import (
	"sync"
	"time"
)

// Registry holds one trip machine per list. HTTP handlers run concurrently,
// so access is serialized here; individual machines are not safe on their
// own.
type Registry struct {
	mu       sync.Mutex
	machines map[int64]*Machine
}

func NewRegistry() *Registry {
	return &Registry{machines: make(map[int64]*Machine)}
}

// For returns the machine for a list, creating it on first use. When a
// persisted trip start is supplied and no machine exists yet, the machine
// resumes in the Active phase (server restarted mid-trip).
func (r *Registry) For(listID int64, persistedStart *time.Time) *Machine {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[listID]
	if !ok {
		if persistedStart != nil {
			m = Resume(*persistedStart)
		} else {
			m = NewMachine()
		}
		r.machines[listID] = m
	}
	return m
}

// Forget drops the machine for a list, e.g. after the list is deleted.
func (r *Registry) Forget(listID int64) {
	r.mu.Lock()
	delete(r.machines, listID)
	r.mu.Unlock()
}

// Do runs fn while holding the registry lock, keeping the machine's
// transition and the caller's bookkeeping atomic with respect to other
// requests for the same list.
func (r *Registry) Do(listID int64, persistedStart *time.Time, fn func(*Machine) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[listID]
	if !ok {
		if persistedStart != nil {
			m = Resume(*persistedStart)
		} else {
			m = NewMachine()
		}
		r.machines[listID] = m
	}
	return fn(m)
}
