package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DEFAULT_RATE_PER_SECOND = 5
	DEFAULT_RATE_BURST      = 10
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IdentityLimiter 按玩家身份限流，HTTP 与 websocket 请求共用同一个桶
type IdentityLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry

	limit rate.Limit
	burst int
	now   func() time.Time
}

func NewIdentityLimiter(perSecond float64, burst int) *IdentityLimiter {
	if perSecond <= 0 {
		perSecond = DEFAULT_RATE_PER_SECOND
	}
	if burst <= 0 {
		burst = DEFAULT_RATE_BURST
	}

	return &IdentityLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

func (il *IdentityLimiter) Allow(identity string) bool {
	il.mu.Lock()
	defer il.mu.Unlock()

	now := il.now()

	e, ok := il.entries[identity]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(il.limit, il.burst)}
		il.entries[identity] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// Evict 删除在 before 之前就不再活跃的身份
func (il *IdentityLimiter) Evict(before time.Time) int {
	il.mu.Lock()
	defer il.mu.Unlock()

	n := 0
	for identity, e := range il.entries {
		if e.lastSeen.Before(before) {
			delete(il.entries, identity)
			n++
		}
	}

	return n
}

func (il *IdentityLimiter) Len() int {
	il.mu.Lock()
	defer il.mu.Unlock()

	return len(il.entries)
}
