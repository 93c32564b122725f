package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/errs"
	"github.com/hushmetrics/hushmetrics/internal/model"
)

type memSource struct {
	events []model.Event
	err    error
}

func (m *memSource) EventsBetween(_ context.Context, siteID string, start, end time.Time) ([]model.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Event
	for _, e := range m.events {
		if e.SiteID == siteID && !e.Timestamp.Before(start) && e.Timestamp.Before(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func pv(site, fp, session, path string, ts time.Time) model.Event {
	return model.Event{
		SiteID:      site,
		Type:        model.EventTypePageview,
		Path:        path,
		Fingerprint: fp,
		SessionID:   session,
		Timestamp:   ts,
		Device:      "desktop",
		Browser:     "Firefox",
		Country:     "DE",
		Referrer:    "news.ycombinator.com",
	}
}

var day = time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)

func TestComputeStats_RangeValidation(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&memSource{})

	_, err := engine.ComputeStats(context.Background(), "site-1", day.AddDate(0, 0, 3), day, nil)
	if err == nil {
		t.Fatal("expected error for start after end")
	}
	if !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("kind = %s, want validation", errs.KindOf(err))
	}

	if _, err := engine.ComputeStats(context.Background(), "", day, day, nil); err == nil {
		t.Fatal("expected error for missing site id")
	}
}

func TestComputeStats_EmptyDayIsZeroNotMissing(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&memSource{})

	summary, err := engine.ComputeStats(context.Background(), "site-1", day, day, nil)
	if err != nil {
		t.Fatalf("ComputeStats error = %v", err)
	}

	if summary.UniqueVisitors != 0 || summary.Pageviews != 0 || summary.BounceRate != 0 || summary.AvgSessionDuration != 0 {
		t.Error("empty range should report all-zero metrics")
	}
	if len(summary.Daily) != 1 {
		t.Fatalf("len(Daily) = %d, want 1", len(summary.Daily))
	}
	if summary.Daily[0].Date != "2025-04-07" || summary.Daily[0].Pageviews != 0 {
		t.Errorf("Daily[0] = %+v, want zero row for 2025-04-07", summary.Daily[0])
	}
}

func TestComputeStats_DailySeriesHasNoGaps(t *testing.T) {
	t.Parallel()

	source := &memSource{events: []model.Event{
		pv("site-1", "fp-1", "", "/", day.Add(10*time.Hour)),
		pv("site-1", "fp-2", "", "/", day.AddDate(0, 0, 2).Add(9*time.Hour)),
	}}
	engine := NewEngine(source)

	summary, err := engine.ComputeStats(context.Background(), "site-1", day, day.AddDate(0, 0, 2), nil)
	if err != nil {
		t.Fatalf("ComputeStats error = %v", err)
	}

	if len(summary.Daily) != 3 {
		t.Fatalf("len(Daily) = %d, want 3", len(summary.Daily))
	}
	if summary.Daily[1].Date != "2025-04-08" || summary.Daily[1].Pageviews != 0 {
		t.Errorf("middle day = %+v, want zero row for 2025-04-08", summary.Daily[1])
	}
	if summary.Daily[0].Pageviews != 1 || summary.Daily[2].Pageviews != 1 {
		t.Error("edge days should each carry one pageview")
	}
}

func TestComputeStats_BounceRate(t *testing.T) {
	t.Parallel()

	// Session a: two pageviews. Session b: one pageview (bounce).
	source := &memSource{events: []model.Event{
		pv("site-1", "fp-1", "sess-a", "/", day.Add(time.Hour)),
		pv("site-1", "fp-1", "sess-a", "/docs", day.Add(time.Hour+5*time.Minute)),
		pv("site-1", "fp-2", "sess-b", "/", day.Add(2*time.Hour)),
	}}
	engine := NewEngine(source)

	summary, err := engine.ComputeStats(context.Background(), "site-1", day, day, nil)
	if err != nil {
		t.Fatalf("ComputeStats error = %v", err)
	}

	if summary.Sessions != 2 {
		t.Fatalf("Sessions = %d, want 2", summary.Sessions)
	}
	if summary.BounceRate != 0.5 {
		t.Errorf("BounceRate = %f, want 0.5", summary.BounceRate)
	}
}

func TestComputeStats_AvgSessionDuration(t *testing.T) {
	t.Parallel()

	// Session a spans 10 minutes; session b has a single event and
	// contributes zero to the mean.
	source := &memSource{events: []model.Event{
		pv("site-1", "fp-1", "sess-a", "/", day.Add(time.Hour)),
		pv("site-1", "fp-1", "sess-a", "/docs", day.Add(time.Hour+10*time.Minute)),
		pv("site-1", "fp-2", "sess-b", "/", day.Add(2*time.Hour)),
	}}
	engine := NewEngine(source)

	summary, err := engine.ComputeStats(context.Background(), "site-1", day, day, nil)
	if err != nil {
		t.Fatalf("ComputeStats error = %v", err)
	}

	want := (10 * time.Minute).Seconds() / 2
	if summary.AvgSessionDuration != want {
		t.Errorf("AvgSessionDuration = %f, want %f", summary.AvgSessionDuration, want)
	}
}

func TestComputeStats_SessionFallsBackToFingerprint(t *testing.T) {
	t.Parallel()

	source := &memSource{events: []model.Event{
		pv("site-1", "fp-1", "", "/", day.Add(time.Hour)),
		pv("site-1", "fp-1", "", "/docs", day.Add(time.Hour+time.Minute)),
	}}
	engine := NewEngine(source)

	summary, _ := engine.ComputeStats(context.Background(), "site-1", day, day, nil)
	if summary.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1 (fingerprint groups the session)", summary.Sessions)
	}
}

func TestComputeStats_Breakdowns(t *testing.T) {
	t.Parallel()

	events := []model.Event{
		pv("site-1", "fp-1", "", "/", day.Add(time.Hour)),
		pv("site-1", "fp-2", "", "/", day.Add(time.Hour)),
		pv("site-1", "fp-1", "", "/docs", day.Add(2*time.Hour)),
	}
	events[2].Country = "FR"
	events[2].Browser = "Chrome"

	engine := NewEngine(&memSource{events: events})
	summary, err := engine.ComputeStats(context.Background(), "site-1", day, day, nil)
	if err != nil {
		t.Fatalf("ComputeStats error = %v", err)
	}

	if len(summary.Pages) != 2 {
		t.Fatalf("len(Pages) = %d, want 2", len(summary.Pages))
	}
	if summary.Pages[0].Path != "/" || summary.Pages[0].Views != 2 || summary.Pages[0].Visitors != 2 {
		t.Errorf("Pages[0] = %+v, want / with 2 views and 2 visitors", summary.Pages[0])
	}

	if len(summary.Countries) != 2 || summary.Countries[0].Value != "DE" || summary.Countries[0].Count != 2 {
		t.Errorf("Countries = %+v, want DE first with count 2", summary.Countries)
	}
	if len(summary.Browsers) != 2 || summary.Browsers[0].Value != "Firefox" {
		t.Errorf("Browsers = %+v, want Firefox first", summary.Browsers)
	}
}

func TestComputeStats_DimensionFilter(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&memSource{events: []model.Event{
		pv("site-1", "fp-1", "", "/", day.Add(time.Hour)),
	}})

	summary, err := engine.ComputeStats(context.Background(), "site-1", day, day, []string{DimensionPages})
	if err != nil {
		t.Fatalf("ComputeStats error = %v", err)
	}

	if len(summary.Pages) != 1 {
		t.Error("requested pages breakdown missing")
	}
	if summary.Countries != nil || summary.Browsers != nil || summary.Devices != nil || summary.Referrers != nil {
		t.Error("unrequested breakdowns should be omitted")
	}
}

func TestComputeStats_CustomEventsExcludedFromPageviews(t *testing.T) {
	t.Parallel()

	custom := pv("site-1", "fp-1", "", "/pricing", day.Add(time.Hour))
	custom.Type = model.EventTypeCustom
	custom.Name = "signup"

	engine := NewEngine(&memSource{events: []model.Event{
		custom,
		pv("site-1", "fp-1", "", "/pricing", day.Add(time.Hour)),
	}})

	summary, _ := engine.ComputeStats(context.Background(), "site-1", day, day, nil)
	if summary.Pageviews != 1 {
		t.Errorf("Pageviews = %d, want 1 (custom events excluded)", summary.Pageviews)
	}
	if summary.UniqueVisitors != 1 {
		t.Errorf("UniqueVisitors = %d, want 1", summary.UniqueVisitors)
	}
}

func TestComputeStats_UpstreamError(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&memSource{err: errors.New("connection reset")})

	_, err := engine.ComputeStats(context.Background(), "site-1", day, day, nil)
	if err == nil {
		t.Fatal("expected upstream error")
	}
	if !errs.IsKind(err, errs.KindUpstream) {
		t.Errorf("kind = %s, want upstream", errs.KindOf(err))
	}
}
