// Package dedup suppresses repeated submissions of the same logical
// event within a short window. Strictly in-memory and synchronous; it
// sits on the ingestion hot path and must never touch network or disk.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultWindow is the span within which identical events collapse
	// to one. Empirically chosen; override via config.
	DefaultWindow = 5 * time.Second

	// KeyLength is the hex length of a dedup key.
	KeyLength = 32

	shardCount = 32

	// shardHighWater triggers lazy eviction of expired entries on write.
	shardHighWater = 4096
)

// Key derives the dedup key for an event from its semantically
// significant fields plus a coarse time bucket. The key is transient:
// it detects replays and is never persisted as event data.
func Key(siteID, eventType, name, path string, ts time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = DefaultWindow
	}

	digest := sha256.New()
	digest.Write([]byte(siteID))
	digest.Write([]byte{0})
	digest.Write([]byte(eventType))
	digest.Write([]byte{0})
	digest.Write([]byte(name))
	digest.Write([]byte{0})
	digest.Write([]byte(path))
	digest.Write([]byte{0})
	digest.Write([]byte(strconv.FormatInt(ts.UnixNano()/int64(bucket), 10)))

	return hex.EncodeToString(digest.Sum(nil))[:KeyLength]
}

type shard struct {
	mu   sync.Mutex
	seen map[string]time.Time // key → last accepted
}

// Deduplicator is a bounded last-seen map sharded by key so unrelated
// traffic never contends on one lock.
type Deduplicator struct {
	window time.Duration
	shards [shardCount]*shard
}

// New creates a Deduplicator with the given window. Non-positive windows
// fall back to DefaultWindow.
func New(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultWindow
	}
	d := &Deduplicator{window: window}
	for i := range d.shards {
		d.shards[i] = &shard{seen: make(map[string]time.Time)}
	}
	return d
}

// IsDuplicate reports whether key was already accepted within the
// window, recording it as accepted when it was not. The check and the
// record happen under one shard lock, so of two racing submissions
// exactly one wins; the loser is a duplicate, not an error.
func (d *Deduplicator) IsDuplicate(key string, now time.Time) bool {
	s := d.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.seen[key]; ok && now.Sub(last) < d.window {
		return true
	}

	if len(s.seen) >= shardHighWater {
		s.evictExpiredLocked(now, d.window)
	}

	s.seen[key] = now
	return false
}

// Sweep drops every expired entry. Intended for a periodic background
// ticker; IsDuplicate stays correct without it.
func (d *Deduplicator) Sweep(now time.Time) {
	for _, s := range d.shards {
		s.mu.Lock()
		s.evictExpiredLocked(now, d.window)
		s.mu.Unlock()
	}
}

// Len reports the number of tracked keys, expired ones included.
func (d *Deduplicator) Len() int {
	total := 0
	for _, s := range d.shards {
		s.mu.Lock()
		total += len(s.seen)
		s.mu.Unlock()
	}
	return total
}

func (d *Deduplicator) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return d.shards[h.Sum32()%shardCount]
}

func (s *shard) evictExpiredLocked(now time.Time, window time.Duration) {
	for key, last := range s.seen {
		if now.Sub(last) >= window {
			delete(s.seen, key)
		}
	}
}
