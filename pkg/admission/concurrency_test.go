package admission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/mimic/pkg/types"
)

// waitForQueued blocks until the limiter reports n queued waiters.
func waitForQueued(t *testing.T, l *ConcurrencyLimiter, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return l.Stats().Queued == n
	}, 2*time.Second, time.Millisecond, "expected %d queued", n)
}

func TestAcquireImmediateWhenFree(t *testing.T) {
	l := NewConcurrencyLimiter(2, 5)

	s1, err := l.Acquire(context.Background())
	require.NoError(t, err)
	s2, err := l.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ConcurrencyStats{Active: 2, Max: 2, Queued: 0, MaxQueue: 5}, l.Stats())

	s1.Release()
	s2.Release()
	assert.Equal(t, 0, l.Stats().Active)
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewConcurrencyLimiter(2, 5)

	s1, err := l.Acquire(context.Background())
	require.NoError(t, err)
	s2, err := l.Acquire(context.Background())
	require.NoError(t, err)

	s1.Release()
	s1.Release()
	s1.Release()
	assert.Equal(t, 1, l.Stats().Active, "double release must not free another holder's slot")

	s2.Release()
	assert.Equal(t, 0, l.Stats().Active)

	var nilSlot *Slot
	assert.NotPanics(t, nilSlot.Release)
}

func TestQueueCapRejects(t *testing.T) {
	l := NewConcurrencyLimiter(1, 1)
	ctx := context.Background()

	held, err := l.Acquire(ctx)
	require.NoError(t, err)

	queued := make(chan *Slot, 1)
	go func() {
		s, err := l.Acquire(ctx)
		if err == nil {
			queued <- s
		}
	}()
	waitForQueued(t, l, 1)

	_, err = l.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, types.Is(err, types.CodeCapacityExceeded))

	held.Release()
	s := <-queued
	assert.Equal(t, 1, l.Stats().Active)
	s.Release()
}

func TestWaitersServedFIFO(t *testing.T) {
	l := NewConcurrencyLimiter(1, 10)
	ctx := context.Background()

	held, err := l.Acquire(ctx)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s, err := l.Acquire(ctx)
			if err != nil {
				t.Errorf("waiter %d: %v", id, err)
				return
			}
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			s.Release()
		}(i)
		waitForQueued(t, l, i+1)
	}

	held.Release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 0, l.Stats().Active)
}

func TestAdmissionBound(t *testing.T) {
	const max, requests = 3, 8
	l := NewConcurrencyLimiter(max, requests)

	var running, peak int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := l.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer s.Release()

			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&running, -1)
		}()
	}

	require.Eventually(t, func() bool {
		st := l.Stats()
		return st.Active == max && st.Queued == requests-max
	}, 2*time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, int32(max), atomic.LoadInt32(&peak))
	assert.Equal(t, ConcurrencyStats{Active: 0, Max: max, Queued: 0, MaxQueue: requests}, l.Stats())
}

func TestCancelledWaiterLeavesQueue(t *testing.T) {
	l := NewConcurrencyLimiter(1, 2)

	held, err := l.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := l.Acquire(ctx)
		errCh <- err
	}()
	waitForQueued(t, l, 1)

	cancel()
	err = <-errCh
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, l.Stats().Queued)

	held.Release()
	assert.Equal(t, 0, l.Stats().Active, "slot must not be handed to a cancelled waiter")
}

func TestFourthRequestQueuedThenRuns(t *testing.T) {
	l := NewConcurrencyLimiter(3, 10)
	ctx := context.Background()

	slots := make([]*Slot, 3)
	for i := range slots {
		s, err := l.Acquire(ctx)
		require.NoError(t, err)
		slots[i] = s
	}

	got := make(chan *Slot, 1)
	go func() {
		s, err := l.Acquire(ctx)
		if err != nil {
			t.Errorf("fourth acquire: %v", err)
			return
		}
		got <- s
	}()
	waitForQueued(t, l, 1)

	select {
	case <-got:
		t.Fatal("fourth request ran before a slot was released")
	case <-time.After(20 * time.Millisecond):
	}

	slots[1].Release()
	fourth := <-got
	assert.Equal(t, ConcurrencyStats{Active: 3, Max: 3, Queued: 0, MaxQueue: 10}, l.Stats())

	fourth.Release()
	slots[0].Release()
	slots[2].Release()
	assert.Equal(t, 0, l.Stats().Active)
}
