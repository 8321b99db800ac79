package cache

import (
	"container/heap"
	"time"
)

// item is one entry's position in the eviction index.
type item struct {
	key      Key
	cachedAt time.Time
	seq      uint64 // insertion counter, breaks cachedAt ties
	index    int
}

// ageIndex is a min-heap of entries ordered by cachedAt, oldest first.
type ageIndex []*item

func (h ageIndex) Len() int { return len(h) }

func (h ageIndex) Less(i, j int) bool {
	if h[i].cachedAt.Equal(h[j].cachedAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].cachedAt.Before(h[j].cachedAt)
}

func (h ageIndex) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *ageIndex) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *ageIndex) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

func (h *ageIndex) add(it *item) { heap.Push(h, it) }

func (h *ageIndex) remove(it *item) {
	if it.index >= 0 && it.index < h.Len() {
		heap.Remove(h, it.index)
	}
}

func (h ageIndex) oldest() *item {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

func (h *ageIndex) popOldest() *item {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*item)
}
