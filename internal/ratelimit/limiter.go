package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

// NewTokenBucket creates a full bucket with the specified capacity and refill rate
func NewTokenBucket(capacity, refillRate int64, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(refillRate),
		lastRefill: now,
		lastUsed:   now,
	}
}

// take consumes a token if one is available at time now
func (tb *TokenBucket) take(now time.Time) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	if elapsed := now.Sub(tb.lastRefill).Seconds(); elapsed > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
		tb.lastRefill = now
	}
	tb.lastUsed = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// giveBack returns a token consumed by a command that was rejected later on
func (tb *TokenBucket) giveBack() {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.tokens = min(tb.capacity, tb.tokens+1)
}

func (tb *TokenBucket) idleSince() time.Time {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.lastUsed
}

// TwoTierRateLimiter applies a global limit and a per-client limit.
// A tier configured with a zero rate is disabled.
type TwoTierRateLimiter struct {
	global         *TokenBucket
	clients        sync.Map // map[string]*TokenBucket
	perClientBurst int64
	perClientRate  int64
	now            func() time.Time
	stop           chan struct{}
	stopOnce       sync.Once
}

// NewTwoTierRateLimiter creates a limiter and starts the idle-bucket janitor
func NewTwoTierRateLimiter(globalBurst, globalRate, perClientBurst, perClientRate int64) *TwoTierRateLimiter {
	return newTwoTierRateLimiter(globalBurst, globalRate, perClientBurst, perClientRate, time.Now)
}

func newTwoTierRateLimiter(globalBurst, globalRate, perClientBurst, perClientRate int64, now func() time.Time) *TwoTierRateLimiter {
	limiter := &TwoTierRateLimiter{
		perClientBurst: perClientBurst,
		perClientRate:  perClientRate,
		now:            now,
		stop:           make(chan struct{}),
	}
	if globalRate > 0 {
		limiter.global = NewTokenBucket(globalBurst, globalRate, limiter.now())
	}

	go limiter.janitor(10*time.Minute, 30*time.Minute)

	return limiter
}

// Allow checks the global bucket first, then the client's own bucket
func (l *TwoTierRateLimiter) Allow(clientIP string) bool {
	now := l.now()

	if l.global != nil && !l.global.take(now) {
		return false
	}

	if l.perClientRate <= 0 {
		return true
	}

	if !l.bucketFor(clientIP, now).take(now) {
		if l.global != nil {
			l.global.giveBack()
		}
		return false
	}

	return true
}

// Stop ends the janitor goroutine
func (l *TwoTierRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *TwoTierRateLimiter) bucketFor(clientIP string, now time.Time) *TokenBucket {
	if bucket, ok := l.clients.Load(clientIP); ok {
		return bucket.(*TokenBucket)
	}

	actual, _ := l.clients.LoadOrStore(clientIP, NewTokenBucket(l.perClientBurst, l.perClientRate, now))
	return actual.(*TokenBucket)
}

// evictIdle drops client buckets unused since cutoff
func (l *TwoTierRateLimiter) evictIdle(cutoff time.Time) {
	l.clients.Range(func(key, value interface{}) bool {
		if value.(*TokenBucket).idleSince().Before(cutoff) {
			l.clients.Delete(key)
		}
		return true
	})
}

func (l *TwoTierRateLimiter) janitor(every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle(l.now().Add(-maxIdle))
		}
	}
}
