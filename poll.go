package jangkau

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ambiyansyah-risyal/jangkau/internal/singleflight"
)

// DefaultPollInterval spaces poll ticks when no interval is configured.
const DefaultPollInterval = 10 * time.Second

// PollConfig drives Poll. Ticks always refresh past the cache so each one
// observes fresh data; the response is still written through for other
// readers.
type PollConfig struct {
	Interval  time.Duration // tick spacing, default 10s
	Immediate bool          // fire a tick before the first interval
	OnData    func(*Result)
	OnError   func(error)
}

// Poller is a running poll loop.
type Poller struct {
	name   string
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Name returns the polled endpoint's name.
func (p *Poller) Name() string { return p.name }

// Done is closed when the poll loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Stop cancels the poll and waits for its loop to exit.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}

// pollRegistry tracks running pollers by endpoint name and guards tick
// overlap per request key.
type pollRegistry struct {
	mu     sync.Mutex
	nextID uint64
	polls  map[string]map[uint64]*Poller
	group  *singleflight.Group
}

func newPollRegistry() *pollRegistry {
	return &pollRegistry{
		polls: make(map[string]map[uint64]*Poller),
		group: singleflight.New(),
	}
}

func (pr *pollRegistry) add(p *Poller) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.nextID++
	p.id = pr.nextID
	set, ok := pr.polls[p.name]
	if !ok {
		set = make(map[uint64]*Poller)
		pr.polls[p.name] = set
	}
	set[p.id] = p
}

func (pr *pollRegistry) remove(p *Poller) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	set, ok := pr.polls[p.name]
	if !ok {
		return
	}
	delete(set, p.id)
	if len(set) == 0 {
		delete(pr.polls, p.name)
	}
}

func (pr *pollRegistry) byName(name string) []*Poller {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	set := pr.polls[name]
	out := make([]*Poller, 0, len(set))
	for _, p := range set {
		out = append(out, p)
	}
	return out
}

func (pr *pollRegistry) all() []*Poller {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	var out []*Poller
	for _, set := range pr.polls {
		for _, p := range set {
			out = append(out, p)
		}
	}
	return out
}

func (pr *pollRegistry) active() int {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	n := 0
	for _, set := range pr.polls {
		n += len(set)
	}
	return n
}

// Poll repeatedly invokes a registered body-less endpoint. An immediate
// tick is optional; afterwards ticks fire every Interval, and a tick that
// would overlap a still-running one is skipped. The loop ends when ctx is
// canceled or the returned Poller is stopped.
func (c *Client) Poll(ctx context.Context, name string, params Params, cfg PollConfig) (*Poller, error) {
	ep, ok := c.endpoint(name)
	if !ok {
		return nil, &RequestError{
			Type:      ErrorTypeRegistry,
			Message:   fmt.Sprintf("unknown endpoint %q", name),
			Cause:     ErrEndpointUnknown,
			Endpoint:  name,
			Timestamp: time.Now(),
		}
	}
	if !isReadMethod(ep.method) {
		return nil, &RequestError{
			Type:      ErrorTypeValidation,
			Message:   fmt.Sprintf("endpoint %q is a %s endpoint; polling requires a body-less method", name, ep.method),
			Endpoint:  name,
			Method:    ep.method,
			Timestamp: time.Now(),
		}
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pollCtx, cancel := context.WithCancel(ctx)
	p := &Poller{name: name, cancel: cancel, done: make(chan struct{})}
	c.pollers.add(p)
	c.metrics.RecordPollStart(name)
	if c.debug != nil && c.debug.Enabled && c.debug.LogPolls && c.logger != nil {
		c.logger.Debug("Poll started", "endpoint", name, "interval", interval, "immediate", cfg.Immediate)
	}

	go c.pollLoop(pollCtx, ep, params, cfg, interval, p)
	return p, nil
}

func (c *Client) pollLoop(ctx context.Context, ep *Endpoint, params Params, cfg PollConfig, interval time.Duration, p *Poller) {
	defer func() {
		c.pollers.remove(p)
		c.metrics.RecordPollEnd(ep.name)
		if c.debug != nil && c.debug.Enabled && c.debug.LogPolls && c.logger != nil {
			c.logger.Debug("Poll stopped", "endpoint", ep.name)
		}
		close(p.done)
	}()

	if cfg.Immediate {
		c.pollTick(ctx, ep, params, cfg)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollTick(ctx, ep, params, cfg)
		}
	}
}

func (c *Client) pollTick(ctx context.Context, ep *Endpoint, params Params, cfg PollConfig) {
	key := "poll:" + RequestKey(ep.name, ep.method, params)
	val, err, executed := c.pollers.group.TryDo(key, func() (any, error) {
		return c.execute(ctx, ep, nil, params, []CallOption{CallRefresh()})
	})
	if !executed {
		if c.debug != nil && c.debug.Enabled && c.debug.LogPolls && c.logger != nil {
			c.logger.Debug("Poll tick skipped", "endpoint", ep.name, "key", key)
		}
		return
	}
	if err != nil {
		// A canceled tick means the poll is shutting down, not failing.
		if ctx.Err() != nil {
			return
		}
		if cfg.OnError != nil {
			cfg.OnError(err)
		}
		return
	}
	if cfg.OnData != nil {
		if res, ok := val.(*Result); ok {
			cfg.OnData(res)
		}
	}
}

// StopPoll stops every active poll of the named endpoint and waits for
// their loops to exit, reporting how many were running.
func (c *Client) StopPoll(name string) int {
	polls := c.pollers.byName(name)
	for _, p := range polls {
		p.Stop()
	}
	return len(polls)
}

// StopAllPolls stops every active poll across all endpoints.
func (c *Client) StopAllPolls() int {
	polls := c.pollers.all()
	for _, p := range polls {
		p.Stop()
	}
	return len(polls)
}
