package jangkau

import (
	"sync"
	"time"
)

// DefaultLoadingDebounce is the window a first request must outlive before
// the loading start hook fires.
const DefaultLoadingDebounce = 100 * time.Millisecond

// LoadingHooks receives the aggregated loading transitions of a client.
// Start fires once when requests have been active for the debounce window;
// End fires once when the last active request finishes. Hooks run outside
// the client's locks and may call back into it.
type LoadingHooks struct {
	Start func()
	End   func()
}

// loadingAggregator folds concurrent request activity into a single
// debounced loading signal. Requests finishing inside the debounce window
// suppress the start signal entirely; the end signal only ever follows a
// delivered start.
type loadingAggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	hooks    LoadingHooks
	active   int
	showing  bool
	gen      uint64
	timer    *time.Timer
}

func newLoadingAggregator(debounce time.Duration, hooks LoadingHooks) *loadingAggregator {
	if debounce < 0 {
		debounce = DefaultLoadingDebounce
	}
	return &loadingAggregator{debounce: debounce, hooks: hooks}
}

// inc registers a request start. Crossing from zero to one active arms the
// debounce timer; a zero debounce fires the start hook inline.
func (l *loadingAggregator) inc() {
	var start func()

	l.mu.Lock()
	l.active++
	if l.active == 1 && !l.showing {
		l.gen++
		if l.debounce <= 0 {
			l.showing = true
			start = l.hooks.Start
		} else {
			gen := l.gen
			l.timer = time.AfterFunc(l.debounce, func() { l.fire(gen) })
		}
	}
	l.mu.Unlock()

	if start != nil {
		start()
	}
}

// dec registers a request end. The last request leaving cancels any pending
// debounce and, when the start hook was delivered, fires the end hook
// immediately.
func (l *loadingAggregator) dec() {
	var end func()

	l.mu.Lock()
	if l.active > 0 {
		l.active--
	}
	if l.active == 0 {
		l.gen++
		if l.timer != nil {
			l.timer.Stop()
			l.timer = nil
		}
		if l.showing {
			l.showing = false
			end = l.hooks.End
		}
	}
	l.mu.Unlock()

	if end != nil {
		end()
	}
}

// fire is the debounce timer body. A generation mismatch means activity
// dropped back to zero before the timer ran and the window is stale.
func (l *loadingAggregator) fire(gen uint64) {
	l.mu.Lock()
	if gen != l.gen || l.active == 0 || l.showing {
		l.mu.Unlock()
		return
	}
	l.showing = true
	l.timer = nil
	start := l.hooks.Start
	l.mu.Unlock()

	if start != nil {
		start()
	}
}

// snapshot reports the raw active count and whether the loading state is
// currently visible.
func (l *loadingAggregator) snapshot() (active int, showing bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active, l.showing
}
