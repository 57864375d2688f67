package cache

import (
	"sync"

	"github.com/Legend-Vipin/corepy/profiler"
)

// BaselineCache defines a generic interface for storing named baseline
// reports used in regression comparisons.
type BaselineCache interface {
	// Get retrieves a baseline report from the cache.
	Get(name string) (*profiler.Report, bool)
	// Put stores a baseline report in the cache.
	Put(name string, report *profiler.Report)
	// Names returns the stored baseline names.
	Names() []string
	// Size returns the number of items in the cache.
	Size() int
}

// MapCache is a simple in-memory implementation of BaselineCache.
type MapCache struct {
	data map[string]*profiler.Report
	mu   sync.RWMutex
}

func NewMapCache() *MapCache {
	return &MapCache{
		data: make(map[string]*profiler.Report),
	}
}

func (c *MapCache) Get(name string) (*profiler.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Return copy to avoid modification of cached value
	if r, ok := c.data[name]; ok {
		return cloneReport(r), true
	}
	return nil, false
}

func (c *MapCache) Put(name string, report *profiler.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Store copy
	c.data[name] = cloneReport(report)
}

func (c *MapCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.data))
	for name := range c.data {
		names = append(names, name)
	}
	return names
}

func (c *MapCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func cloneReport(r *profiler.Report) *profiler.Report {
	dst := *r
	dst.Operations = make(map[string]profiler.OperationMetrics, len(r.Operations))
	for op, m := range r.Operations {
		dst.Operations[op] = m
	}
	return &dst
}
