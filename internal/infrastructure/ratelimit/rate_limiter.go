package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	ActionSendMessage = "send_message"
	ActionStartChat   = "start_chat"
	ActionReact       = "react"
	ActionAuth        = "auth"
)

// Limit describes a bucket: Burst tokens, refilled one every Every.
type Limit struct {
	Burst int
	Every time.Duration
}

// DefaultLimits are per user and action.
var DefaultLimits = map[string]Limit{
	ActionSendMessage: {Burst: 30, Every: 2 * time.Second},
	ActionStartChat:   {Burst: 10, Every: 6 * time.Minute},
	ActionReact:       {Burst: 60, Every: time.Second},
	ActionAuth:        {Burst: 5, Every: 12 * time.Second},
}

var fallbackLimit = Limit{Burst: 20, Every: 3 * time.Second}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     int
	limit      Limit
	lastRefill time.Time
	lastUsed   time.Time
}

func (tb *tokenBucket) allow(now time.Time) (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.lastUsed = now
	if refills := int(now.Sub(tb.lastRefill) / tb.limit.Every); refills > 0 {
		tb.tokens += refills
		if tb.tokens > tb.limit.Burst {
			tb.tokens = tb.limit.Burst
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(refills) * tb.limit.Every)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	return false, tb.lastRefill.Add(tb.limit.Every).Sub(now)
}

// RateLimiter keeps one token bucket per (key, action).
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	limits  map[string]Limit
	now     func() time.Time
}

func NewRateLimiter(limits map[string]Limit) *RateLimiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limits:  limits,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used in tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Allow consumes a token for key and action, or reports how long to wait.
func (rl *RateLimiter) Allow(key, action string) (bool, time.Duration) {
	now := rl.now()
	id := key + ":" + action

	rl.mu.Lock()
	bucket, ok := rl.buckets[id]
	if !ok {
		limit, known := rl.limits[action]
		if !known {
			limit = fallbackLimit
		}
		bucket = &tokenBucket{tokens: limit.Burst, limit: limit, lastRefill: now}
		rl.buckets[id] = bucket
	}
	rl.mu.Unlock()

	return bucket.allow(now)
}

// Cleanup drops buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, bucket := range rl.buckets {
		bucket.mu.Lock()
		stale := now.Sub(bucket.lastUsed) > idle
		bucket.mu.Unlock()
		if stale {
			delete(rl.buckets, id)
			removed++
		}
	}
	return removed
}

// StartCleanup prunes idle buckets every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
