package metrics

import (
	"sync"
	"time"
)

// InMemory is a Recorder backed by counters in process memory.
// Used by tests and the debug endpoint.
type InMemory struct {
	mu sync.Mutex

	ingested  map[string]int64
	published map[string]int64
	processed map[string]int64
	cache     map[string]int64

	batchCount    int64
	batchRowTotal int64
	batchDuration time.Duration

	queueDepth int64

	statsQueries       int64
	statsQueryDuration time.Duration
}

// NewInMemory creates an in-memory Recorder.
func NewInMemory() *InMemory {
	return &InMemory{
		ingested:  make(map[string]int64),
		published: make(map[string]int64),
		processed: make(map[string]int64),
		cache:     make(map[string]int64),
	}
}

func (m *InMemory) IncEventIngested(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested[outcome]++
}

func (m *InMemory) IncEventPublished(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[outcome]++
}

func (m *InMemory) IncEventProcessed(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[outcome]++
}

func (m *InMemory) ObserveBatchSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCount++
	m.batchRowTotal += int64(size)
}

func (m *InMemory) ObserveBatchDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchDuration += duration
}

func (m *InMemory) SetQueueDepth(depth int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepth = depth
}

func (m *InMemory) ObserveStatsQueryDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsQueries++
	m.statsQueryDuration += duration
}

func (m *InMemory) IncStatsCache(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[outcome]++
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	EventsIngested  int64
	EventsDuplicate int64
	EventsRejected  int64

	EventsPublished int64
	EventsDropped   int64

	EventsProcessed       int64
	EventsProcessedFailed int64
	EventsDeadLettered    int64

	BatchCount           int64
	BatchRowTotal        int64
	BatchDurationTotalNs int64

	QueueDepth int64

	StatsQueries              int64
	StatsQueryDurationTotalNs int64
	StatsCacheHits            int64
	StatsCacheMisses          int64
}

// Snapshotter produces metric snapshots for the debug endpoint.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Snapshot implements Snapshotter.
func (m *InMemory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		EventsIngested:  m.ingested["accepted"],
		EventsDuplicate: m.ingested["duplicate"],
		EventsRejected:  m.ingested["rejected"],

		EventsPublished: m.published["success"],
		EventsDropped:   m.published["dropped"],

		EventsProcessed:       m.processed["success"],
		EventsProcessedFailed: m.processed["failed"],
		EventsDeadLettered:    m.processed["dead_lettered"],

		BatchCount:           m.batchCount,
		BatchRowTotal:        m.batchRowTotal,
		BatchDurationTotalNs: int64(m.batchDuration),

		QueueDepth: m.queueDepth,

		StatsQueries:              m.statsQueries,
		StatsQueryDurationTotalNs: int64(m.statsQueryDuration),
		StatsCacheHits:            m.cache["hit"],
		StatsCacheMisses:          m.cache["miss"],
	}
}

// Ingested returns the count for an ingestion outcome.
func (m *InMemory) Ingested(outcome string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingested[outcome]
}

// Processed returns the count for a worker outcome.
func (m *InMemory) Processed(outcome string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[outcome]
}

// CacheLookups returns the count for a stats cache outcome.
func (m *InMemory) CacheLookups(outcome string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache[outcome]
}

// QueueDepth returns the last recorded queue depth.
func (m *InMemory) QueueDepth() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queueDepth
}
