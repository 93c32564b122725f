package realtime

import (
	"sort"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/errs"
	"github.com/hushmetrics/hushmetrics/internal/model"
)

const (
	// MaxWindowMinutes is the upper bound on the look-back window (24h).
	MaxWindowMinutes = 1440

	// DefaultWindowMinutes is used when the caller does not choose.
	DefaultWindowMinutes = 30

	// DefaultLimit bounds top-N breakdowns and recent events.
	DefaultLimit = 10

	// DefaultTrendSlice is the slice compared for the visitor trend.
	DefaultTrendSlice = 15 * time.Minute

	// DefaultTrendThreshold is the relative change treated as movement.
	DefaultTrendThreshold = 0.10
)

// Query selects the window and limits for a snapshot.
// Zero values mean defaults.
type Query struct {
	WindowMinutes  int
	Limit          int
	TrendSlice     time.Duration
	TrendThreshold float64
}

func (q Query) normalize() (Query, error) {
	if q.WindowMinutes == 0 {
		q.WindowMinutes = DefaultWindowMinutes
	}
	if q.WindowMinutes <= 0 {
		return q, errs.Validationf("time window must be positive, got %d minutes", q.WindowMinutes)
	}
	if q.WindowMinutes > MaxWindowMinutes {
		return q, errs.Validationf("time window must not exceed %d minutes, got %d", MaxWindowMinutes, q.WindowMinutes)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.TrendSlice <= 0 {
		q.TrendSlice = DefaultTrendSlice
	}
	if q.TrendThreshold <= 0 {
		q.TrendThreshold = DefaultTrendThreshold
	}
	return q, nil
}

// Snapshot computes live metrics for a site over the queried window.
// Reads a point-in-time copy of the buffer; never mutates events.
func (s *Store) Snapshot(siteID string, q Query, now time.Time) (*model.RealtimeSnapshot, error) {
	if siteID == "" {
		return nil, errs.Validationf("site id is required")
	}
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}

	all := s.Events(siteID)
	window := filterWindow(all, now.Add(-time.Duration(q.WindowMinutes)*time.Minute), now)

	snapshot := &model.RealtimeSnapshot{
		SiteID:          siteID,
		WindowMinutes:   q.WindowMinutes,
		ActiveVisitors:  countDistinctVisitors(window),
		Pageviews:       int64(len(window)),
		TopPages:        topByVisitors(window, func(e *model.Event) string { return e.Path }, q.Limit),
		TopCountries:    topByVisitors(window, func(e *model.Event) string { return e.Country }, q.Limit),
		DeviceBreakdown: deviceBreakdown(window),
		RecentEvents:    recentEvents(window, q.Limit),
		VisitorTrend:    visitorTrend(all, now, q.TrendSlice, q.TrendThreshold),
		GeneratedAt:     now,
	}
	return snapshot, nil
}

// filterWindow keeps events with from <= timestamp <= to. Queries always
// re-filter by timestamp regardless of buffer retention state.
func filterWindow(events []model.Event, from, to time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			out = append(out, e)
		}
	}
	return out
}

func countDistinctVisitors(events []model.Event) int64 {
	seen := make(map[string]struct{}, len(events))
	for i := range events {
		seen[events[i].Fingerprint] = struct{}{}
	}
	return int64(len(seen))
}

// topByVisitors counts distinct fingerprints per dimension value, sorted
// descending by visitor count with ties broken by first-seen order.
func topByVisitors(events []model.Event, dim func(*model.Event) string, limit int) []model.RealtimeCount {
	type bucket struct {
		value    string
		order    int
		visitors map[string]struct{}
	}

	buckets := make(map[string]*bucket)
	ordered := make([]*bucket, 0)

	for i := range events {
		value := dim(&events[i])
		if value == "" {
			continue
		}
		b, ok := buckets[value]
		if !ok {
			b = &bucket{value: value, order: len(ordered), visitors: make(map[string]struct{})}
			buckets[value] = b
			ordered = append(ordered, b)
		}
		b.visitors[events[i].Fingerprint] = struct{}{}
	}

	// ordered is already in first-seen order; a stable sort on visitor
	// count keeps that order for ties.
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].visitors) > len(ordered[j].visitors)
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	out := make([]model.RealtimeCount, len(ordered))
	for i, b := range ordered {
		out[i] = model.RealtimeCount{Value: b.value, Visitors: int64(len(b.visitors))}
	}
	return out
}

// deviceBreakdown counts events (not distinct visitors) per device.
func deviceBreakdown(events []model.Event) map[string]int64 {
	out := make(map[string]int64)
	for i := range events {
		device := events[i].Device
		if device == "" {
			device = "other"
		}
		out[device]++
	}
	return out
}

// recentEvents returns the newest n events, newest first, stripped of
// visitor identifiers.
func recentEvents(events []model.Event, n int) []model.RealtimeEvent {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]model.RealtimeEvent, len(sorted))
	for i := range sorted {
		out[i] = model.RealtimeEvent{
			Type:      sorted[i].Type,
			Name:      sorted[i].Name,
			Path:      sorted[i].Path,
			Country:   sorted[i].Country,
			Device:    sorted[i].Device,
			Timestamp: sorted[i].Timestamp,
		}
	}
	return out
}

// visitorTrend compares active visitors in the most recent slice against
// the preceding slice of equal length.
func visitorTrend(events []model.Event, now time.Time, slice time.Duration, threshold float64) model.VisitorTrend {
	recent := countDistinctVisitors(filterWindow(events, now.Add(-slice), now))
	prior := countDistinctVisitors(filterWindow(events, now.Add(-2*slice), now.Add(-slice)))

	if prior == 0 {
		if recent > 0 {
			return model.TrendIncreasing
		}
		return model.TrendStable
	}

	change := float64(recent-prior) / float64(prior)
	switch {
	case change > threshold:
		return model.TrendIncreasing
	case change < -threshold:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}
