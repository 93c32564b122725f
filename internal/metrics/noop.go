package metrics

import "time"

// Noop is a Recorder that discards everything.
type Noop struct{}

// NewNoop creates a no-op Recorder.
func NewNoop() *Noop { return &Noop{} }

func (*Noop) IncEventIngested(string)                 {}
func (*Noop) IncEventPublished(string)                {}
func (*Noop) IncEventProcessed(string)                {}
func (*Noop) ObserveBatchSize(int)                    {}
func (*Noop) ObserveBatchDuration(time.Duration)      {}
func (*Noop) SetQueueDepth(int64)                     {}
func (*Noop) ObserveStatsQueryDuration(time.Duration) {}
func (*Noop) IncStatsCache(string)                    {}
