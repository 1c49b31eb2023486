package inmem

import (
	"context"
	"math"
	"sync"
	"time"

	"observe/internal/gateway"
)

// idleAfter is how long a client bucket may go untouched before Sweep drops it.
const idleAfter = 10 * time.Minute

// RateLimiter is a weighted token bucket keyed by client address. Requests
// spend cost tokens; a cost above the bucket capacity is clamped to it so a
// full bucket always admits one request.
type RateLimiter struct {
	refill   float64 // tokens per second
	capacity float64
	clock    func() time.Time

	mu      sync.Mutex
	clients map[string]*allowance
}

type allowance struct {
	tokens  float64
	updated time.Time
}

// NewRateLimiter creates a limiter refilling rate tokens per second up to burst.
func NewRateLimiter(rate float64, burst int, clock func() time.Time) *RateLimiter {
	return &RateLimiter{
		refill:   rate,
		capacity: float64(burst),
		clock:    clock,
		clients:  make(map[string]*allowance),
	}
}

// Allow spends cost tokens from key's bucket when it holds enough.
func (rl *RateLimiter) Allow(key string, cost int) gateway.RateLimitResult {
	want := min(float64(max(cost, 1)), rl.capacity)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock()
	a, ok := rl.clients[key]
	if !ok {
		a = &allowance{tokens: rl.capacity, updated: now}
		rl.clients[key] = a
	}
	a.tokens = min(rl.capacity, a.tokens+now.Sub(a.updated).Seconds()*rl.refill)
	a.updated = now

	if a.tokens >= want {
		a.tokens -= want
		return gateway.RateLimitResult{Allowed: true}
	}
	wait := math.Ceil((want - a.tokens) / rl.refill)
	return gateway.RateLimitResult{RetryAfter: max(int(wait), 1)}
}

// Sweep drops buckets idle for longer than idleAfter and reports how many went.
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock()
	dropped := 0
	for key, a := range rl.clients {
		if now.Sub(a.updated) > idleAfter {
			delete(rl.clients, key)
			dropped++
		}
	}
	return dropped
}

// RunCleanup sweeps idle buckets every interval until ctx is done.
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// Clients returns the number of tracked client buckets.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
