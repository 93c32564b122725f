package model

import "time"

// StatsSummary is a computed aggregate over a closed [start, end] day
// range. Derived fresh per query; never mutated in place.
type StatsSummary struct {
	SiteID string `json:"site_id"`
	Period struct {
		From string `json:"from"` // ISO date
		To   string `json:"to"`   // ISO date
	} `json:"period"`

	UniqueVisitors     int64   `json:"unique_visitors"`
	Pageviews          int64   `json:"pageviews"`
	Sessions           int64   `json:"sessions"`
	BounceRate         float64 `json:"bounce_rate"`          // Fraction in [0, 1]
	AvgSessionDuration float64 `json:"avg_session_duration"` // Seconds

	Pages     []PageStat      `json:"pages,omitempty"`
	Referrers []DimensionStat `json:"referrers,omitempty"`
	Devices   []DimensionStat `json:"devices,omitempty"`
	Browsers  []DimensionStat `json:"browsers,omitempty"`
	Countries []DimensionStat `json:"countries,omitempty"`

	Daily []DailyStat `json:"daily"`

	GeneratedAt time.Time `json:"generated_at"`
}

// PageStat is a per-path breakdown row.
type PageStat struct {
	Path     string `json:"path"`
	Views    int64  `json:"views"`
	Visitors int64  `json:"visitors"` // Distinct fingerprints
}

// DimensionStat is a breakdown row for referrer/device/browser/country.
type DimensionStat struct {
	Value    string `json:"value"`
	Count    int64  `json:"count"`
	Visitors int64  `json:"visitors"` // Distinct fingerprints
}

// DailyStat is one day of the time series. Days without events are
// present with zero values; the series never has gaps.
type DailyStat struct {
	Date           string `json:"date"` // ISO date
	Pageviews      int64  `json:"pageviews"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// VisitorTrend describes the direction of recent visitor activity.
type VisitorTrend string

const (
	TrendIncreasing VisitorTrend = "increasing"
	TrendDecreasing VisitorTrend = "decreasing"
	TrendStable     VisitorTrend = "stable"
)

// RealtimeSnapshot is a point-in-time view over the live event buffer.
type RealtimeSnapshot struct {
	SiteID          string           `json:"site_id"`
	WindowMinutes   int              `json:"window_minutes"`
	ActiveVisitors  int64            `json:"active_visitors"`
	Pageviews       int64            `json:"pageviews"`
	TopPages        []RealtimeCount  `json:"top_pages"`
	TopCountries    []RealtimeCount  `json:"top_countries"`
	DeviceBreakdown map[string]int64 `json:"device_breakdown"`
	RecentEvents    []RealtimeEvent  `json:"recent_events"`
	VisitorTrend    VisitorTrend     `json:"visitor_trend"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// RealtimeCount is a dimension value with its distinct-visitor count.
type RealtimeCount struct {
	Value    string `json:"value"`
	Visitors int64  `json:"visitors"`
}

// RealtimeEvent is the public shape of a recent event. It carries the
// derived fingerprint-free fields only.
type RealtimeEvent struct {
	Type      EventType `json:"type"`
	Name      string    `json:"name,omitempty"`
	Path      string    `json:"path"`
	Country   string    `json:"country,omitempty"`
	Device    string    `json:"device,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
