package ratelimit

import (
	"sync"
	"time"
)

// Actions with their own buckets.
const (
	ActionSendMessage       = "send_message"
	ActionStartConversation = "start_conversation"
	ActionActivity          = "activity"
)

// Limit describes a bucket: capacity plus one token back every Every.
type Limit struct {
	Burst int
	Every time.Duration
}

var defaultLimits = map[string]Limit{
	// 10 messages per minute
	ActionSendMessage: {Burst: 10, Every: 6 * time.Second},
	// 5 conversation starts per hour
	ActionStartConversation: {Burst: 5, Every: 12 * time.Minute},
	ActionActivity:          {Burst: 60, Every: time.Second},
}

var fallbackLimit = Limit{Burst: 20, Every: 3 * time.Second}

// TokenBucket is a refilling token counter.
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillTime time.Duration
	lastRefill time.Time
	mutex      sync.Mutex
}

func NewTokenBucket(limit Limit, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     limit.Burst,
		maxTokens:  limit.Burst,
		refillTime: limit.Every,
		lastRefill: now,
	}
}

// Allow consumes a token when one is available. Otherwise it reports how
// long until the next refill.
func (tb *TokenBucket) Allow(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	refills := int(now.Sub(tb.lastRefill) / tb.refillTime)
	if refills > 0 {
		tb.tokens += refills
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(refills) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

func (tb *TokenBucket) Tokens() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.tokens
}

// RateLimiter keeps one bucket per viewer and action.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	limits  map[string]Limit
	now     func() time.Time
	mutex   sync.RWMutex
}

func NewRateLimiter() *RateLimiter {
	limits := make(map[string]Limit, len(defaultLimits))
	for action, l := range defaultLimits {
		limits[action] = l
	}
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		limits:  limits,
		now:     time.Now,
	}
}

// SetLimit overrides the bucket shape for an action. Existing buckets keep
// their old shape.
func (rl *RateLimiter) SetLimit(action string, limit Limit) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.limits[action] = limit
}

func (rl *RateLimiter) Allow(viewerID, action string) (bool, time.Duration) {
	key := viewerID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			limit, ok := rl.limits[action]
			if !ok {
				limit = fallbackLimit
			}
			bucket = NewTokenBucket(limit, rl.now())
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow(rl.now())
}

// Cleanup drops buckets idle for longer than an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastRefill)
		bucket.mutex.Unlock()
		if idle > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until stop is closed.
func (rl *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}
