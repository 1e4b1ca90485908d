// Package singleflight collapses concurrent calls sharing a key into one
// execution. It backs the client's stale-while-revalidate refreshes and the
// poller's tick overlap skipping.
package singleflight

import (
	"errors"
	"sync"
)

// ErrInProgress is returned by TryDo when another call already holds the
// key.
var ErrInProgress = errors.New("singleflight: call already in progress")

// Group tracks in-flight calls by key.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

type call struct {
	wg  sync.WaitGroup
	val any
	err error
}

// New returns an empty Group.
func New() *Group {
	return &Group{m: make(map[string]*call)}
}

// Do executes fn, ensuring only one execution is in flight for key at a
// time. Duplicate callers block until the original completes and receive
// its results. The key is free again the moment the call settles.
func (g *Group) Do(key string, fn func() (any, error)) (any, error) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	g.mu.Unlock()
	c.wg.Done()

	return c.val, c.err
}

// TryDo executes fn only when no call holds key. When another call is in
// progress it returns immediately with ErrInProgress and executed=false.
func (g *Group) TryDo(key string, fn func() (any, error)) (val any, err error, executed bool) {
	g.mu.Lock()
	if _, ok := g.m[key]; ok {
		g.mu.Unlock()
		return nil, ErrInProgress, false
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	g.mu.Unlock()
	c.wg.Done()

	return c.val, c.err, true
}

// Forget releases key immediately, letting the next caller execute even
// while a previous call is still running.
func (g *Group) Forget(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}
