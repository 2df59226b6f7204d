// Package stats is the statistics sink the splitter reports to: a small set
// of named counters, created on first use and read with atomic loads.
package stats

import (
	"sync"
	"sync/atomic"
)

// Sink receives named counter increments. The splitter builds its own
// counter names with the prefix it was constructed with, e.g.
// "splitter.invalid_request"; per-command counters such as
// "command.get.total" carry no prefix.
type Sink interface {
	Incr(name string)
}

// Counters is a Sink backed by a map of atomic int64 counters. Reads of an
// existing counter take the read lock only; creating a new one promotes to
// the write lock, mirroring the read-mostly counter registries this kind of
// proxy keeps.
type Counters struct {
	mu     sync.RWMutex
	counts map[string]*int64
}

// NewCounters returns an empty Counters sink.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]*int64)}
}

// Incr increments the named counter, creating it at zero first if needed.
func (c *Counters) Incr(name string) {
	atomic.AddInt64(c.counterFor(name), 1)
}

// Get returns the current value of the named counter, or 0 if it has never
// been incremented.
func (c *Counters) Get(name string) int64 {
	c.mu.RLock()
	p, ok := c.counts[name]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

// All returns a snapshot of every counter that has been created so far.
func (c *Counters) All() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.counts))
	for name, p := range c.counts {
		out[name] = atomic.LoadInt64(p)
	}
	return out
}

func (c *Counters) counterFor(name string) *int64 {
	c.mu.RLock()
	p, ok := c.counts[name]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.counts[name]; ok {
		return p
	}
	p = new(int64)
	c.counts[name] = p
	return p
}
