package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fintx/internal/models"
	"github.com/desertthunder/fintx/internal/shared"
	"github.com/viccon/sturdyc"
)

// Coordinator caches read responses in sturdyc and evicts them when a write invalidates one of their tags.
//
// It satisfies both api.QueryCache and api.Observer.
type Coordinator struct {
	client *sturdyc.Client[any]
	logger *log.Logger

	mu      sync.Mutex
	tags    map[string][]models.Tag // cache key -> provided tags
	gen     uint64                  // bumped by every invalidation
	pending map[string]uint64       // cache key -> gen when its fetch started
	recent  []invalidation          // invalidations seen while fetches are pending

	hits   atomic.Int64
	misses atomic.Int64
}

type invalidation struct {
	gen  uint64
	tags []models.Tag
	all  bool // Clear
}

// Stats is a point-in-time view of the coordinator.
type Stats struct {
	Entries int   `json:"entries"`
	Tracked int   `json:"tracked"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// New validates cfg and creates a coordinator.
func New(cfg Config, logger *log.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.NopLogger()
	}

	client := sturdyc.New[any](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, cfg.options()...)
	return &Coordinator{
		client:  client,
		logger:  logger,
		tags:    make(map[string][]models.Tag),
		pending: make(map[string]uint64),
	}, nil
}

// Fetch returns the cached body for key or calls fetch. Concurrent fetches of one key share a single call.
//
// A fetched body is only trusted once [Coordinator.Provide] sees no invalidation happened while it was in flight.
func (c *Coordinator) Fetch(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	called := false
	value, err := c.client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		called = true
		c.mu.Lock()
		c.pending[key] = c.gen
		c.mu.Unlock()
		return fetch(ctx)
	})
	if err != nil {
		if called {
			c.mu.Lock()
			c.settle(key)
			c.mu.Unlock()
		}
		return nil, err
	}

	if called {
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}

	body, ok := value.([]byte)
	if !ok {
		return nil, fmt.Errorf("cache entry %q holds %T", key, value)
	}
	return body, nil
}

// Provide records the tags carried by the response cached under key.
//
// When a write invalidated one of tags after the fetch for key started, the body may predate that write
// and is evicted instead of indexed.
func (c *Coordinator) Provide(key string, tags []models.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if started, ok := c.pending[key]; ok {
		stale := c.invalidatedSince(started, tags)
		c.settle(key)
		if stale {
			c.client.Delete(key)
			delete(c.tags, key)
			c.logger.Debug("dropped response fetched across an invalidation", "key", key)
			return
		}
	}
	if len(tags) == 0 {
		return
	}
	c.tags[key] = append([]models.Tag(nil), tags...)
}

// Invalidated evicts every cached response providing a tag matched by inv.
func (c *Coordinator) Invalidated(_ context.Context, inv models.Invalidation) {
	evicted := c.Invalidate(inv.Tags...)
	c.logger.Debug("cache invalidated", "endpoint", inv.Endpoint, "tags", len(inv.Tags), "evicted", evicted)
}

// Invalidate evicts responses providing any of tags and returns how many were dropped.
func (c *Coordinator) Invalidate(tags ...models.Tag) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record(tags, false)
	evicted := 0
	for key, provided := range c.tags {
		if !matchesAny(tags, provided) {
			continue
		}
		c.client.Delete(key)
		delete(c.tags, key)
		evicted++
	}
	return evicted
}

// Clear drops every cached response.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.client.ScanKeys() {
		c.client.Delete(key)
	}
	c.tags = make(map[string][]models.Tag)
	c.record(nil, true)
}

// record notes an invalidation for fetches still in flight. Callers hold mu.
func (c *Coordinator) record(tags []models.Tag, all bool) {
	c.gen++
	if len(c.pending) > 0 {
		c.recent = append(c.recent, invalidation{gen: c.gen, tags: append([]models.Tag(nil), tags...), all: all})
	}
}

// settle forgets the pending fetch for key. Callers hold mu.
func (c *Coordinator) settle(key string) {
	delete(c.pending, key)
	if len(c.pending) == 0 {
		c.recent = nil
	}
}

func (c *Coordinator) invalidatedSince(started uint64, provided []models.Tag) bool {
	for _, inv := range c.recent {
		if inv.gen <= started {
			continue
		}
		if inv.all || matchesAny(inv.tags, provided) {
			return true
		}
	}
	return false
}

// Keys returns the cached keys in sorted order.
func (c *Coordinator) Keys() []string {
	keys := c.client.ScanKeys()
	sort.Strings(keys)
	return keys
}

// Stats reports entry counts and hit ratio inputs.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	tracked := len(c.tags)
	c.mu.Unlock()

	return Stats{
		Entries: len(c.client.ScanKeys()),
		Tracked: tracked,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

func matchesAny(stale, provided []models.Tag) bool {
	for _, s := range stale {
		for _, p := range provided {
			if s.Matches(p) {
				return true
			}
		}
	}
	return false
}
