package jangkau

import (
	"context"
	"sync"
	"sync/atomic"
)

// inflightCall is one physical request shared by every concurrent caller of
// the same request key. The settled pair is published exactly once; all
// subscribers observe the identical *Result and error.
type inflightCall struct {
	done chan struct{}
	res  *Result
	err  error
	subs atomic.Int32
}

// wait blocks until the call settles or ctx is done. A joiner abandoning a
// call leaves the owner running for the remaining subscribers.
func (c *inflightCall) wait(ctx context.Context) (*Result, error) {
	select {
	case <-c.done:
		return c.res, c.err
	case <-ctx.Done():
		c.subs.Add(-1)
		return nil, ctx.Err()
	}
}

// inflightRegistry tracks live calls by request key so identical concurrent
// calls collapse into one network request. Entries are removed the moment
// their call settles; a later caller always starts from the cache probe
// rather than a stale future.
type inflightRegistry struct {
	mu    sync.Mutex
	calls map[string]*inflightCall
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{calls: make(map[string]*inflightCall)}
}

// begin registers interest in key. The first caller becomes the owner and
// must settle the returned call; every other caller joins and waits.
func (r *inflightRegistry) begin(key string) (call *inflightCall, owner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.calls[key]; ok {
		c.subs.Add(1)
		return c, false
	}
	c := &inflightCall{done: make(chan struct{})}
	c.subs.Store(1)
	r.calls[key] = c
	return c, true
}

// settle publishes the outcome and deregisters key. The outcome fields are
// written before done closes, so every waiter reads them safely.
func (r *inflightRegistry) settle(key string, c *inflightCall, res *Result, err error) {
	r.mu.Lock()
	if r.calls[key] == c {
		delete(r.calls, key)
	}
	r.mu.Unlock()

	c.res = res
	c.err = err
	close(c.done)
}

// pending reports the number of live calls.
func (r *inflightRegistry) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
