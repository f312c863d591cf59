package resultshape

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// PlanCache is a thread-safe LRU cache of compiled plans keyed by the
// fingerprints of the (source, target) pair. Concurrent requests for the
// same pair compile once.
//
// A cached plan reports the Source and Target of the trees it was first
// compiled from; any structurally equal pair runs it identically.
//
// Example:
//
//	cache, _ := resultshape.NewPlanCache()
//	plan, err := cache.Get(source, target)
//	if err != nil {
//	    return err
//	}
//	out, err := plan.Transform(data)
type PlanCache struct {
	plans   *lru.Cache[planKey, *Plan]
	group   singleflight.Group
	fp      *Fingerprinter
	opts    Options
	logger  Logger
	metrics *cacheMetrics

	// Statistics
	hits     uint64
	misses   uint64
	compiles uint64
}

type planKey struct {
	source uint64
	target uint64
}

func (k planKey) String() string {
	return fmt.Sprintf("%016x:%016x", k.source, k.target)
}

// CacheStats is a snapshot of cache statistics.
type CacheStats struct {
	Size     int
	Hits     uint64
	Misses   uint64
	Compiles uint64
}

// HitRate returns hits / (hits + misses), or 0 with no lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewPlanCache creates a cache holding up to Options.CacheSize plans. The
// same options are used to compile every plan.
func NewPlanCache(opts ...Options) (*PlanCache, error) {
	opt := optionsOrDefault(opts)
	size := opt.CacheSize
	if size <= 0 {
		size = DefaultOptions().CacheSize
	}
	logger := opt.logger().With(map[string]any{"component": "plan-cache"})
	plans, err := lru.NewWithEvict(size, func(key planKey, plan *Plan) {
		logger.With(map[string]any{"key": key, "plan": plan.ID()}).Debugf("evicted plan")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}
	return &PlanCache{
		plans:   plans,
		fp:      NewFingerprinter(2 * size),
		opts:    opt,
		logger:  logger,
		metrics: newCacheMetrics(),
	}, nil
}

// Get returns the plan for the pair, compiling it on a miss. Compile errors
// are not cached.
func (c *PlanCache) Get(source, target *Structure) (*Plan, error) {
	key := planKey{source: c.fp.Fingerprint(source), target: c.fp.Fingerprint(target)}

	if plan, ok := c.plans.Get(key); ok {
		atomic.AddUint64(&c.hits, 1)
		c.metrics.requests.WithLabelValues("hit").Inc()
		return plan, nil
	}
	atomic.AddUint64(&c.misses, 1)
	c.metrics.requests.WithLabelValues("miss").Inc()

	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		if plan, ok := c.plans.Peek(key); ok {
			return plan, nil
		}
		plan, err := Compile(source, target, c.opts)
		if err != nil {
			return nil, err
		}
		atomic.AddUint64(&c.compiles, 1)
		c.metrics.compiles.Inc()
		c.plans.Add(key, plan)
		return plan, nil
	})
	if err != nil {
		c.logger.With(map[string]any{"key": key}).Debugf("compile failed: %v", err)
		return nil, err
	}
	if shared {
		c.logger.With(map[string]any{"key": key}).Debugf("shared in-flight compile")
	}
	return v.(*Plan), nil
}

// Len returns the number of cached plans.
func (c *PlanCache) Len() int {
	return c.plans.Len()
}

// Purge drops every cached plan. Statistics are kept.
func (c *PlanCache) Purge() {
	c.plans.Purge()
	c.fp.Reset()
}

// Stats returns a snapshot of the cache statistics.
func (c *PlanCache) Stats() CacheStats {
	return CacheStats{
		Size:     c.plans.Len(),
		Hits:     atomic.LoadUint64(&c.hits),
		Misses:   atomic.LoadUint64(&c.misses),
		Compiles: atomic.LoadUint64(&c.compiles),
	}
}

// RegisterMetrics registers the cache's Prometheus collectors.
func (c *PlanCache) RegisterMetrics(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{c.metrics.requests, c.metrics.compiles} {
		if err := reg.Register(collector); err != nil {
			return fmt.Errorf("failed to register plan cache metrics: %w", err)
		}
	}
	return nil
}

type cacheMetrics struct {
	requests *prometheus.CounterVec
	compiles prometheus.Counter
}

func newCacheMetrics() *cacheMetrics {
	return &cacheMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resultshape_plan_cache_requests_total",
				Help: "Total number of plan cache lookups",
			},
			[]string{"result"},
		),
		compiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "resultshape_plan_compiles_total",
				Help: "Total number of plans compiled by the cache",
			},
		),
	}
}
