package transport

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterPool keeps one token bucket per destination so fragments to the
// same identity are spaced by the chunk delay while other identities send
// freely. Idle entries are dropped after ttl.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*limiterEntry
	every time.Duration
	ttl   time.Duration
	now   func() time.Time
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(every, ttl time.Duration) *limiterPool {
	return &limiterPool{
		m:     make(map[string]*limiterEntry),
		every: every,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = p.now()
		return e.l
	}
	limit := rate.Inf
	if p.every > 0 {
		limit = rate.Every(p.every)
	}
	l := rate.NewLimiter(limit, 1)
	p.m[key] = &limiterEntry{l: l, lastSeen: p.now()}
	return l
}

// prune removes entries idle longer than ttl and reports how many went.
func (p *limiterPool) prune() int {
	cutoff := p.now().Add(-p.ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
			n++
		}
	}
	return n
}

func (p *limiterPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

func (p *limiterPool) cleanupLoop(period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-stop:
			return
		}
	}
}
