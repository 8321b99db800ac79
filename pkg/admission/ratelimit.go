// Package admission gates entry into the analysis pipeline: a per-client
// request window and a global concurrency limiter with a FIFO wait queue.
package admission

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/types"
)

const (
	// DefaultRateLimit is the number of requests a client may make per window
	DefaultRateLimit = 10

	// DefaultRateWindow is the rate limit window length
	DefaultRateWindow = 60 * time.Second

	// DefaultSweepInterval is how often expired client windows are discarded
	DefaultSweepInterval = 60 * time.Second
)

// RateLimiter counts requests per client inside a fixed window that starts
// with the client's first request. Expired windows reset lazily on the next
// request and are removed by Sweep.
type RateLimiter struct {
	limit  int
	window time.Duration
	clk    func() time.Time

	mu      sync.Mutex
	clients map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// RateDecision is the outcome of Allow.
type RateDecision struct {
	Allowed   bool
	Remaining int
	ResetIn   int // seconds until the client's window resets
}

// NewRateLimiter creates a limiter allowing limit requests per window.
// A nil clk uses time.Now.
func NewRateLimiter(limit int, period time.Duration, clk func() time.Time) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if period <= 0 {
		period = DefaultRateWindow
	}
	if clk == nil {
		clk = time.Now
	}
	return &RateLimiter{
		limit:   limit,
		window:  period,
		clk:     clk,
		clients: make(map[string]*window),
	}
}

// Check records one request for clientID and reports whether it is allowed.
func (r *RateLimiter) Check(clientID string) RateDecision {
	now := r.clk()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.clients[clientID]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(r.window)}
		r.clients[clientID] = w
	}

	resetIn := int(math.Ceil(float64(w.resetAt.Sub(now).Milliseconds()) / 1000))
	if w.count >= r.limit {
		return RateDecision{Allowed: false, Remaining: 0, ResetIn: resetIn}
	}
	w.count++
	return RateDecision{Allowed: true, Remaining: r.limit - w.count, ResetIn: resetIn}
}

// Allow records one request for clientID and returns a RATE_LIMITED error
// carrying the wait hint when the client is over its limit.
func (r *RateLimiter) Allow(clientID string) error {
	d := r.Check(clientID)
	if d.Allowed {
		return nil
	}
	return types.NewRateLimited(r.limit, r.window.Milliseconds(), d.ResetIn)
}

// Sweep removes expired client windows and returns how many were removed.
func (r *RateLimiter) Sweep() int {
	now := r.clk()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, w := range r.clients {
		if !now.Before(w.resetAt) {
			delete(r.clients, id)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked client windows.
func (r *RateLimiter) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Limit returns the configured requests per window.
func (r *RateLimiter) Limit() int { return r.limit }

// Window returns the configured window length.
func (r *RateLimiter) Window() time.Duration { return r.window }

// StartSweeper runs Sweep every interval until ctx is done.
func (r *RateLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}
