// Package realtime maintains per-site buffers of recent events and
// derives live metrics over a caller-chosen sliding window.
package realtime

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/model"
)

const (
	// DefaultRetention bounds how far back the buffer keeps events.
	DefaultRetention = 24 * time.Hour

	// DefaultMaxEventsPerSite caps one site's buffer regardless of age.
	DefaultMaxEventsPerSite = 50000

	shardCount = 16
)

type siteShard struct {
	mu    sync.RWMutex
	sites map[string][]model.Event
}

// Store holds per-site event buffers sharded by site so concurrent
// writers for unrelated sites never serialize on one lock.
type Store struct {
	retention  time.Duration
	maxPerSite int
	shards     [shardCount]*siteShard
}

// NewStore creates a Store. Non-positive arguments fall back to defaults.
func NewStore(retention time.Duration, maxPerSite int) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if maxPerSite <= 0 {
		maxPerSite = DefaultMaxEventsPerSite
	}
	s := &Store{retention: retention, maxPerSite: maxPerSite}
	for i := range s.shards {
		s.shards[i] = &siteShard{sites: make(map[string][]model.Event)}
	}
	return s
}

// Add appends an accepted event to its site's buffer. Events are stored
// by value and never mutated afterwards.
func (s *Store) Add(event model.Event) {
	shard := s.shardFor(event.SiteID)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	buf := append(shard.sites[event.SiteID], event)
	if len(buf) > s.maxPerSite {
		// Drop the oldest overflow in place. Queries re-filter by
		// timestamp, so trimming affects memory, not correctness.
		excess := len(buf) - s.maxPerSite
		buf = buf[excess:]
	}
	shard.sites[event.SiteID] = buf
}

// Events returns a point-in-time copy of one site's buffer. The copy is
// the caller's to fold over without holding any lock.
func (s *Store) Events(siteID string) []model.Event {
	shard := s.shardFor(siteID)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	buf := shard.sites[siteID]
	if len(buf) == 0 {
		return nil
	}
	out := make([]model.Event, len(buf))
	copy(out, buf)
	return out
}

// Prune drops events older than the retention horizon. Advisory for
// memory bounding only; window queries never rely on it.
func (s *Store) Prune(now time.Time) {
	horizon := now.Add(-s.retention)

	for _, shard := range s.shards {
		shard.mu.Lock()
		for siteID, buf := range shard.sites {
			cut := 0
			for cut < len(buf) && buf[cut].Timestamp.Before(horizon) {
				cut++
			}
			if cut == len(buf) {
				delete(shard.sites, siteID)
			} else if cut > 0 {
				kept := make([]model.Event, len(buf)-cut)
				copy(kept, buf[cut:])
				shard.sites[siteID] = kept
			}
		}
		shard.mu.Unlock()
	}
}

// RunPruner prunes on an interval until the stop channel closes.
func (s *Store) RunPruner(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.Prune(now)
		}
	}
}

func (s *Store) shardFor(siteID string) *siteShard {
	h := fnv.New32a()
	h.Write([]byte(siteID))
	return s.shards[h.Sum32()%shardCount]
}
