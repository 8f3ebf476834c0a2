package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// limiterPool hands out one token bucket per key (usually a client IP) and
// forgets keys that have been idle for limiterTTL.
type limiterPool struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	entries     map[string]*limiterEntry
	cleanupOnce sync.Once
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{limit: limit, burst: burst, entries: make(map[string]*limiterEntry)}
}

func (p *limiterPool) allow(key string) bool {
	p.cleanupOnce.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	e, ok := p.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.entries[key] = e
	}
	e.lastUse = time.Now()
	p.mu.Unlock()

	return e.limiter.Allow()
}

func (p *limiterPool) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		p.evictIdle(time.Now())
	}
}

func (p *limiterPool) evictIdle(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, e := range p.entries {
		if now.Sub(e.lastUse) > limiterTTL {
			delete(p.entries, key)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
