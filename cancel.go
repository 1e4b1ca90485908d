package jangkau

import (
	"context"
	"sync"
)

// cancelRegistry tracks the cancel token of every live call, grouped by
// endpoint name, so callers can abort all outstanding requests of an
// endpoint without holding the individual contexts.
type cancelRegistry struct {
	mu     sync.Mutex
	nextID uint64
	tokens map[string]map[uint64]context.CancelFunc
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{tokens: make(map[string]map[uint64]context.CancelFunc)}
}

// register adds cancel under name and returns its release func. Release is
// idempotent and must run when the call completes, aborted or not.
func (r *cancelRegistry) register(name string, cancel context.CancelFunc) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	set := r.tokens[name]
	if set == nil {
		set = make(map[uint64]context.CancelFunc)
		r.tokens[name] = set
	}
	set[id] = cancel

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set, ok := r.tokens[name]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(r.tokens, name)
			}
		}
	}
}

// abort cancels every live call under name and clears its token set,
// reporting how many tokens fired.
func (r *cancelRegistry) abort(name string) int {
	r.mu.Lock()
	set := r.tokens[name]
	delete(r.tokens, name)
	r.mu.Unlock()

	for _, cancel := range set {
		cancel()
	}
	return len(set)
}

// abortAll cancels every live call across all names.
func (r *cancelRegistry) abortAll() int {
	r.mu.Lock()
	all := r.tokens
	r.tokens = make(map[string]map[uint64]context.CancelFunc)
	r.mu.Unlock()

	n := 0
	for _, set := range all {
		for _, cancel := range set {
			cancel()
		}
		n += len(set)
	}
	return n
}

// active reports the number of live tokens across all names.
func (r *cancelRegistry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, set := range r.tokens {
		n += len(set)
	}
	return n
}
