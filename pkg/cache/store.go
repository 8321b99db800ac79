// Package cache is the content-addressed in-memory store of design
// snapshots and generated artifacts. Entries expire after a TTL and the
// total encoded size is held under a budget by evicting the oldest entries.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/mimic/pkg/logging"
	"github.com/entrhq/mimic/pkg/types"
)

// Default store limits
const (
	DefaultTTL     = 24 * time.Hour
	DefaultMaxSize = 1 << 30 // 1 GiB
)

// ErrEntryTooLarge is returned by Set for an entry larger than the whole budget.
var ErrEntryTooLarge = errors.New("cache entry exceeds the cache size budget")

// Entry is one cached (snapshot, artifact) pair. Entries returned by the
// store are shared and must not be modified.
type Entry struct {
	URL       string                `json:"url"`
	Config    types.ComponentConfig `json:"config"`
	Snapshot  *types.DesignSnapshot `json:"snapshot"`
	Artifact  *types.Artifact       `json:"artifact"`
	CachedAt  time.Time             `json:"cachedAt"`
	SizeBytes int64                 `json:"sizeBytes"`
}

// Options configures a Store.
type Options struct {
	TTL     time.Duration
	MaxSize int64
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Stats summarizes the store.
type Stats struct {
	Entries   int        `json:"entries"`
	TotalSize int64      `json:"totalSize"`
	MaxSize   int64      `json:"maxSize"`
	Hits      int64      `json:"hits"`
	Misses    int64      `json:"misses"`
	HitRate   float64    `json:"hitRate"`
	Evictions int64      `json:"evictions"`
	Oldest    *time.Time `json:"oldestEntry,omitempty"`
	Newest    *time.Time `json:"newestEntry,omitempty"`
}

type record struct {
	entry *Entry
	item  *item
}

// Store maps keys to entries with an eviction index ordered by cachedAt.
// Critical sections are O(log n); encoding happens outside the lock.
type Store struct {
	ttl     time.Duration
	maxSize int64
	clk     func() time.Time
	logger  *logging.Logger

	mu        sync.Mutex
	entries   map[Key]*record
	index     ageIndex
	seq       uint64
	totalSize int64
	hits      int64
	misses    int64
	evictions int64
}

// New creates a store. Zero option fields use the defaults.
func New(opts Options, logger *logging.Logger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		ttl:     opts.TTL,
		maxSize: opts.MaxSize,
		clk:     opts.Clock,
		logger:  logger,
		entries: make(map[Key]*record),
	}
}

// Get returns the unexpired entry for (url, cfg), recording a hit or miss.
func (s *Store) Get(url string, cfg types.ComponentConfig) (*Entry, bool) {
	key, err := KeyFor(url, cfg)
	if err != nil {
		s.mu.Lock()
		s.misses++
		s.mu.Unlock()
		return nil, false
	}
	return s.GetKey(key)
}

// GetKey is Get for a precomputed key.
func (s *Store) GetKey(key Key) (*Entry, bool) {
	now := s.clk()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}
	if now.Sub(rec.entry.CachedAt) >= s.ttl {
		s.removeLocked(key, rec)
		s.misses++
		s.logger.Debugf("Cache entry expired: %s", key)
		return nil, false
	}
	s.hits++
	return rec.entry, true
}

// Set stores the snapshot and artifact under (url, cfg) with cachedAt=now,
// replacing any previous entry for the key. Oldest entries are evicted
// until the budget holds.
func (s *Store) Set(url string, cfg types.ComponentConfig, snapshot *types.DesignSnapshot, artifact *types.Artifact) (*Entry, error) {
	key, err := KeyFor(url, cfg)
	if err != nil {
		return nil, err
	}

	entry := &Entry{URL: url, Config: cfg, Snapshot: snapshot, Artifact: artifact}
	size, err := encodedSize(entry)
	if err != nil {
		return nil, err
	}
	entry.SizeBytes = size
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrEntryTooLarge, size, s.maxSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry.CachedAt = s.clk()

	if old, ok := s.entries[key]; ok {
		s.removeLocked(key, old)
	}

	for s.totalSize+size > s.maxSize {
		victim := s.index.popOldest()
		if victim == nil {
			break
		}
		rec := s.entries[victim.key]
		delete(s.entries, victim.key)
		s.totalSize -= rec.entry.SizeBytes
		s.evictions++
		s.logger.Debugf("Evicted cache entry %s (cachedAt=%s, %d bytes)", victim.key, rec.entry.CachedAt.Format(time.RFC3339), rec.entry.SizeBytes)
	}

	s.seq++
	it := &item{key: key, cachedAt: entry.CachedAt, seq: s.seq}
	s.index.add(it)
	s.entries[key] = &record{entry: entry, item: it}
	s.totalSize += size

	return entry, nil
}

// Has reports whether an unexpired entry exists. It does not affect stats.
func (s *Store) Has(url string, cfg types.ComponentConfig) bool {
	key, err := KeyFor(url, cfg)
	if err != nil {
		return false
	}
	now := s.clk()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[key]
	return ok && now.Sub(rec.entry.CachedAt) < s.ttl
}

// Delete removes the entry for (url, cfg) and reports whether one existed.
func (s *Store) Delete(url string, cfg types.ComponentConfig) bool {
	key, err := KeyFor(url, cfg)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[key]
	if ok {
		s.removeLocked(key, rec)
	}
	return ok
}

// Clear removes every entry and returns how many were removed. Hit, miss
// and eviction counters are kept.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[Key]*record)
	s.index = nil
	s.totalSize = 0
	s.logger.Infof("Cache cleared (%d entries)", n)
	return n
}

// Prune removes expired entries and returns how many were removed.
func (s *Store) Prune() int {
	now := s.clk()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for {
		oldest := s.index.oldest()
		if oldest == nil || now.Sub(oldest.cachedAt) < s.ttl {
			break
		}
		s.removeLocked(oldest.key, s.entries[oldest.key])
		removed++
	}
	return removed
}

// StartJanitor runs Prune every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Prune(); n > 0 {
					s.logger.Debugf("Pruned %d expired cache entries", n)
				}
			}
		}
	}()
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Entries:   len(s.entries),
		TotalSize: s.totalSize,
		MaxSize:   s.maxSize,
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
	}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}
	if oldest := s.index.oldest(); oldest != nil {
		t := oldest.cachedAt
		st.Oldest = &t
	}
	for _, rec := range s.entries {
		if st.Newest == nil || rec.entry.CachedAt.After(*st.Newest) {
			t := rec.entry.CachedAt
			st.Newest = &t
		}
	}
	return st
}

func (s *Store) removeLocked(key Key, rec *record) {
	if rec == nil {
		return
	}
	s.index.remove(rec.item)
	delete(s.entries, key)
	s.totalSize -= rec.entry.SizeBytes
}

// encodedSize is the JSON size of the entry payload.
func encodedSize(e *Entry) (int64, error) {
	b, err := json.Marshal(struct {
		Snapshot *types.DesignSnapshot `json:"snapshot"`
		Artifact *types.Artifact       `json:"artifact"`
	}{e.Snapshot, e.Artifact})
	if err != nil {
		return 0, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return int64(len(b)), nil
}
