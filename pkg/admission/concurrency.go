package admission

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/mimic/pkg/types"
)

const (
	// DefaultMaxConcurrent is the number of analyses allowed to run at once
	DefaultMaxConcurrent = 3

	// DefaultMaxQueue is the number of requests allowed to wait for a slot
	DefaultMaxQueue = 10
)

// ConcurrencyLimiter bounds the number of active pipeline runs. Requests
// beyond the bound wait in a strict FIFO queue; requests beyond the queue
// depth are rejected with CAPACITY_EXCEEDED.
//
// A released slot is handed directly to the oldest waiter, so a newcomer
// can never overtake a queued request.
type ConcurrencyLimiter struct {
	max      int
	maxQueue int

	mu     sync.Mutex
	active int
	queue  *list.List // of *waiter, oldest at the front
}

type waiter struct {
	ready   chan struct{}
	granted bool
	elem    *list.Element
}

// ConcurrencyStats is a point-in-time view of the limiter.
type ConcurrencyStats struct {
	Active   int `json:"active"`
	Max      int `json:"max"`
	Queued   int `json:"queued"`
	MaxQueue int `json:"maxQueue"`
}

// NewConcurrencyLimiter creates a limiter with max active slots and a wait
// queue of at most maxQueue requests. Non-positive values use the defaults.
func NewConcurrencyLimiter(max, maxQueue int) *ConcurrencyLimiter {
	if max <= 0 {
		max = DefaultMaxConcurrent
	}
	if maxQueue < 0 {
		maxQueue = DefaultMaxQueue
	}
	return &ConcurrencyLimiter{
		max:      max,
		maxQueue: maxQueue,
		queue:    list.New(),
	}
}

// Acquire obtains a slot, waiting in FIFO order if none is free. It fails
// immediately when the queue is full, and with the context's error if ctx
// ends while waiting. The caller must Release the returned slot.
func (l *ConcurrencyLimiter) Acquire(ctx context.Context) (*Slot, error) {
	l.mu.Lock()
	if l.active < l.max && l.queue.Len() == 0 {
		l.active++
		l.mu.Unlock()
		return &Slot{limiter: l}, nil
	}
	if l.queue.Len() >= l.maxQueue {
		err := types.NewCapacityExceeded(l.max, l.active, l.queue.Len())
		l.mu.Unlock()
		return nil, err
	}
	w := &waiter{ready: make(chan struct{})}
	w.elem = l.queue.PushBack(w)
	l.mu.Unlock()

	select {
	case <-w.ready:
		return &Slot{limiter: l}, nil
	case <-ctx.Done():
		l.mu.Lock()
		if w.granted {
			// The slot arrived together with cancellation; pass it on.
			l.mu.Unlock()
			l.release()
		} else {
			l.queue.Remove(w.elem)
			l.mu.Unlock()
		}
		return nil, fmt.Errorf("waiting for analysis slot: %w", ctx.Err())
	}
}

// release frees one slot, handing it to the oldest waiter if there is one.
func (l *ConcurrencyLimiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if front := l.queue.Front(); front != nil {
		w := l.queue.Remove(front).(*waiter)
		w.granted = true
		close(w.ready)
		return
	}
	if l.active > 0 {
		l.active--
	}
}

// Stats returns the current active and queued counts.
func (l *ConcurrencyLimiter) Stats() ConcurrencyStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ConcurrencyStats{
		Active:   l.active,
		Max:      l.max,
		Queued:   l.queue.Len(),
		MaxQueue: l.maxQueue,
	}
}

// Slot is one held unit of concurrency. Release is idempotent.
type Slot struct {
	limiter *ConcurrencyLimiter
	once    sync.Once
}

// Release returns the slot to the limiter. Calls after the first are no-ops.
func (s *Slot) Release() {
	if s == nil {
		return
	}
	s.once.Do(s.limiter.release)
}
