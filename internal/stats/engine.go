// Package stats computes historical summary statistics and dimensional
// breakdowns over arbitrary closed date ranges. Strictly read-only with
// respect to event storage.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/errs"
	"github.com/hushmetrics/hushmetrics/internal/model"
)

// Dimension names a breakdown the caller may request.
const (
	DimensionPages     = "pages"
	DimensionReferrers = "referrers"
	DimensionDevices   = "devices"
	DimensionBrowsers  = "browsers"
	DimensionCountries = "countries"
)

// AllDimensions is the default breakdown set.
var AllDimensions = []string{DimensionPages, DimensionReferrers, DimensionDevices, DimensionBrowsers, DimensionCountries}

// breakdownLimit bounds each breakdown's row count.
const breakdownLimit = 100

// maxDailySpanDays is the widest range the daily series zero-fills in
// full. Wider ranges (the open-ended "all" period) start the series at
// the first recorded event instead of the nominal range start.
const maxDailySpanDays = 1098

// EventSource reads durable events. The repository implements it; tests
// substitute an in-memory one.
type EventSource interface {
	// EventsBetween returns every event for the site with
	// start <= timestamp < end.
	EventsBetween(ctx context.Context, siteID string, start, end time.Time) ([]model.Event, error)
}

// Engine derives StatsSummary values. Repeated calls with identical
// arguments are idempotent; callers may cache results keyed on
// (site, start, end, dimensions).
type Engine struct {
	source EventSource
}

// NewEngine creates an Engine over the given source.
func NewEngine(source EventSource) *Engine {
	return &Engine{source: source}
}

// ComputeStats computes the summary for siteID over the inclusive
// [startDate, endDate] day range (UTC day boundaries). dimensions selects
// which breakdowns to compute; nil means all.
func (e *Engine) ComputeStats(ctx context.Context, siteID string, startDate, endDate time.Time, dimensions []string) (*model.StatsSummary, error) {
	if siteID == "" {
		return nil, errs.Validationf("site id is required")
	}

	start := startDate.UTC().Truncate(24 * time.Hour)
	end := endDate.UTC().Truncate(24 * time.Hour)
	if start.After(end) {
		return nil, errs.Validationf("start date %s is after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	events, err := e.source.EventsBetween(ctx, siteID, start, end.Add(24*time.Hour))
	if err != nil {
		return nil, errs.Upstream("query events", err)
	}

	summary := &model.StatsSummary{
		SiteID:      siteID,
		GeneratedAt: time.Now().UTC(),
	}
	summary.Period.From = start.Format("2006-01-02")
	summary.Period.To = end.Format("2006-01-02")

	summary.UniqueVisitors = distinctVisitors(events)
	summary.Pageviews = countPageviews(events)

	sessions := foldSessions(events)
	summary.Sessions = int64(len(sessions))
	summary.BounceRate = bounceRate(sessions)
	summary.AvgSessionDuration = avgSessionDuration(sessions)

	wanted := dimensionSet(dimensions)
	if wanted[DimensionPages] {
		summary.Pages = pageBreakdown(events)
	}
	if wanted[DimensionReferrers] {
		summary.Referrers = dimensionBreakdown(events, func(e *model.Event) string { return e.Referrer })
	}
	if wanted[DimensionDevices] {
		summary.Devices = dimensionBreakdown(events, func(e *model.Event) string { return e.Device })
	}
	if wanted[DimensionBrowsers] {
		summary.Browsers = dimensionBreakdown(events, func(e *model.Event) string { return e.Browser })
	}
	if wanted[DimensionCountries] {
		summary.Countries = dimensionBreakdown(events, func(e *model.Event) string { return e.Country })
	}

	summary.Daily = dailySeries(events, seriesStart(events, start, end), end)

	return summary, nil
}

func dimensionSet(dimensions []string) map[string]bool {
	if len(dimensions) == 0 {
		dimensions = AllDimensions
	}
	set := make(map[string]bool, len(dimensions))
	for _, d := range dimensions {
		set[d] = true
	}
	return set
}

func distinctVisitors(events []model.Event) int64 {
	seen := make(map[string]struct{}, len(events))
	for i := range events {
		seen[events[i].Fingerprint] = struct{}{}
	}
	return int64(len(seen))
}

func countPageviews(events []model.Event) int64 {
	var n int64
	for i := range events {
		if events[i].Type == model.EventTypePageview {
			n++
		}
	}
	return n
}

// session accumulates per-session facts during one fold pass.
type session struct {
	first     time.Time
	last      time.Time
	pageviews int
}

func foldSessions(events []model.Event) map[string]*session {
	sessions := make(map[string]*session)
	for i := range events {
		key := events[i].SessionKey()
		ts := events[i].Timestamp
		s, ok := sessions[key]
		if !ok {
			s = &session{first: ts, last: ts}
			sessions[key] = s
		} else {
			if ts.Before(s.first) {
				s.first = ts
			}
			if ts.After(s.last) {
				s.last = ts
			}
		}
		if events[i].Type == model.EventTypePageview {
			s.pageviews++
		}
	}
	return sessions
}

// bounceRate is the fraction of sessions with exactly one pageview.
func bounceRate(sessions map[string]*session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	bounced := 0
	for _, s := range sessions {
		if s.pageviews == 1 {
			bounced++
		}
	}
	return float64(bounced) / float64(len(sessions))
}

// avgSessionDuration sums last−first over sessions with at least two
// events and divides by the total session count, so single-event
// sessions contribute zero. Result in seconds.
func avgSessionDuration(sessions map[string]*session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range sessions {
		if s.last.After(s.first) {
			total += s.last.Sub(s.first)
		}
	}
	return total.Seconds() / float64(len(sessions))
}

func pageBreakdown(events []model.Event) []model.PageStat {
	type bucket struct {
		views    int64
		visitors map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for i := range events {
		if events[i].Type != model.EventTypePageview {
			continue
		}
		b, ok := buckets[events[i].Path]
		if !ok {
			b = &bucket{visitors: make(map[string]struct{})}
			buckets[events[i].Path] = b
		}
		b.views++
		b.visitors[events[i].Fingerprint] = struct{}{}
	}

	out := make([]model.PageStat, 0, len(buckets))
	for path, b := range buckets {
		out = append(out, model.PageStat{Path: path, Views: b.views, Visitors: int64(len(b.visitors))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > breakdownLimit {
		out = out[:breakdownLimit]
	}
	return out
}

func dimensionBreakdown(events []model.Event, dim func(*model.Event) string) []model.DimensionStat {
	type bucket struct {
		count    int64
		visitors map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for i := range events {
		value := dim(&events[i])
		if value == "" {
			continue
		}
		b, ok := buckets[value]
		if !ok {
			b = &bucket{visitors: make(map[string]struct{})}
			buckets[value] = b
		}
		b.count++
		b.visitors[events[i].Fingerprint] = struct{}{}
	}

	out := make([]model.DimensionStat, 0, len(buckets))
	for value, b := range buckets {
		out = append(out, model.DimensionStat{Value: value, Count: b.count, Visitors: int64(len(b.visitors))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > breakdownLimit {
		out = out[:breakdownLimit]
	}
	return out
}

// seriesStart decides where the daily series begins. Ranges within
// maxDailySpanDays keep their nominal start; wider ones begin at the
// first event's day so an all-time query does not emit decades of
// zero rows.
func seriesStart(events []model.Event, start, end time.Time) time.Time {
	if end.Sub(start) <= time.Duration(maxDailySpanDays)*24*time.Hour {
		return start
	}
	first := end
	for i := range events {
		day := events[i].Timestamp.UTC().Truncate(24 * time.Hour)
		if day.Before(first) {
			first = day
		}
	}
	if first.Before(start) {
		return start
	}
	return first
}

// dailySeries fills every calendar day in [start, end] with a row; days
// without events carry zeros, never gaps.
func dailySeries(events []model.Event, start, end time.Time) []model.DailyStat {
	type bucket struct {
		pageviews int64
		visitors  map[string]struct{}
	}
	days := make(map[string]*bucket)
	for i := range events {
		day := events[i].Timestamp.UTC().Format("2006-01-02")
		b, ok := days[day]
		if !ok {
			b = &bucket{visitors: make(map[string]struct{})}
			days[day] = b
		}
		if events[i].Type == model.EventTypePageview {
			b.pageviews++
		}
		b.visitors[events[i].Fingerprint] = struct{}{}
	}

	var series []model.DailyStat
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		row := model.DailyStat{Date: key}
		if b, ok := days[key]; ok {
			row.Pageviews = b.pageviews
			row.UniqueVisitors = int64(len(b.visitors))
		}
		series = append(series, row)
	}
	return series
}
