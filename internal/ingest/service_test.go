package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/dedup"
	"github.com/hushmetrics/hushmetrics/internal/errs"
	"github.com/hushmetrics/hushmetrics/internal/fingerprint"
	"github.com/hushmetrics/hushmetrics/internal/metrics"
	"github.com/hushmetrics/hushmetrics/internal/pipeline"
	"github.com/hushmetrics/hushmetrics/internal/realtime"
)

type captureSink struct {
	mu       sync.Mutex
	payloads []pipeline.EventPayload
}

func (s *captureSink) PublishAsync(payload pipeline.EventPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
}

func (s *captureSink) all() []pipeline.EventPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pipeline.EventPayload, len(s.payloads))
	copy(out, s.payloads)
	return out
}

func newTestService(t *testing.T) (*Service, *captureSink, *realtime.Store) {
	t.Helper()

	hasher, err := fingerprint.New(strings.Repeat("s", 32))
	if err != nil {
		t.Fatalf("fingerprint.New() error = %v", err)
	}

	sink := &captureSink{}
	store := realtime.NewStore(0, 0)
	svc := NewService(
		hasher,
		dedup.New(5*time.Second),
		store,
		sink,
		slog.New(slog.NewTextHandler(discardWriter{}, nil)),
		metrics.NewNoop(),
		5*time.Second,
	)
	return svc, sink, store
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func pageview(path string) Request {
	return Request{
		SiteID:    "site_abc",
		Type:      "pageview",
		Path:      path,
		RemoteIP:  "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Macintosh) Chrome/120.0 Safari/537.36",
	}
}

func TestIngest_Accepted(t *testing.T) {
	t.Parallel()

	svc, sink, store := newTestService(t)

	result, err := svc.Ingest(context.Background(), pageview("/pricing"))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Outcome != OutcomeAccepted {
		t.Fatalf("Outcome = %q, want accepted", result.Outcome)
	}
	if len(result.EventID) != 26 {
		t.Errorf("EventID length = %d, want 26 (ULID)", len(result.EventID))
	}

	events := store.Events("site_abc")
	if len(events) != 1 {
		t.Fatalf("realtime events = %d, want 1", len(events))
	}
	event := events[0]
	if len(event.Fingerprint) != fingerprint.TokenLength {
		t.Errorf("Fingerprint length = %d, want %d", len(event.Fingerprint), fingerprint.TokenLength)
	}
	if event.Device != DeviceDesktop {
		t.Errorf("Device = %q, want desktop", event.Device)
	}
	if event.Browser != "Chrome" {
		t.Errorf("Browser = %q, want Chrome", event.Browser)
	}

	payloads := sink.all()
	if len(payloads) != 1 {
		t.Fatalf("published payloads = %d, want 1", len(payloads))
	}
	if payloads[0].EventID != result.EventID {
		t.Errorf("payload EventID = %q, want %q", payloads[0].EventID, result.EventID)
	}
}

func TestIngest_DuplicateSuppressed(t *testing.T) {
	t.Parallel()

	svc, sink, store := newTestService(t)
	ctx := context.Background()

	// Shared timestamp keeps both submissions in one dedup time bucket.
	req := pageview("/pricing")
	req.Timestamp = time.Now().UTC().Add(-time.Minute).Truncate(10 * time.Second)

	first, err := svc.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	second, err := svc.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}

	if first.Outcome != OutcomeAccepted {
		t.Errorf("first Outcome = %q, want accepted", first.Outcome)
	}
	if second.Outcome != OutcomeDuplicate {
		t.Errorf("second Outcome = %q, want duplicate", second.Outcome)
	}
	if second.EventID != "" {
		t.Errorf("duplicate EventID = %q, want empty", second.EventID)
	}
	if got := len(store.Events("site_abc")); got != 1 {
		t.Errorf("realtime events = %d, want 1 (duplicate has no side effects)", got)
	}
	if got := len(sink.all()); got != 1 {
		t.Errorf("published payloads = %d, want 1", got)
	}
}

func TestIngest_DistinctPathsNotDuplicates(t *testing.T) {
	t.Parallel()

	svc, _, store := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, pageview("/a")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ingest(ctx, pageview("/b")); err != nil {
		t.Fatal(err)
	}

	if got := len(store.Events("site_abc")); got != 2 {
		t.Errorf("realtime events = %d, want 2", got)
	}
}

func TestIngest_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing site", func(r *Request) { r.SiteID = "" }},
		{"bad type", func(r *Request) { r.Type = "click" }},
		{"custom without name", func(r *Request) { r.Type = "custom"; r.Name = "" }},
		{"pageview with name", func(r *Request) { r.Name = "signup" }},
		{"path too long", func(r *Request) { r.Path = "/" + strings.Repeat("x", 2100) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := pageview("/pricing")
			tt.mutate(&req)

			_, err := svc.Ingest(ctx, req)
			if !errs.IsKind(err, errs.KindValidation) {
				t.Errorf("Ingest() error = %v, want validation kind", err)
			}
		})
	}
}

func TestIngest_ValidationErrorNeverEchoesTransportMeta(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	req := pageview("/x")
	req.SiteID = ""
	req.RemoteIP = "198.51.100.23"
	req.UserAgent = "VerySpecificAgent/9.9"

	_, err := svc.Ingest(context.Background(), req)
	if err == nil {
		t.Fatal("Ingest() = nil, want error")
	}
	msg := err.Error()
	if strings.Contains(msg, req.RemoteIP) || strings.Contains(msg, req.UserAgent) {
		t.Errorf("error %q leaks transport metadata", msg)
	}
}

func TestIngest_FutureTimestampClamped(t *testing.T) {
	t.Parallel()

	svc, _, store := newTestService(t)
	now := time.Now().UTC()

	req := pageview("/pricing")
	req.Timestamp = now.Add(2 * time.Hour)

	if _, err := svc.Ingest(context.Background(), req); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	events := store.Events("site_abc")
	if len(events) != 1 {
		t.Fatalf("realtime events = %d, want 1", len(events))
	}
	if events[0].Timestamp.After(now.Add(time.Minute)) {
		t.Errorf("Timestamp = %v, want clamped near %v", events[0].Timestamp, now)
	}
}

func TestIngest_EventCarriesNoRawTransportMeta(t *testing.T) {
	t.Parallel()

	svc, sink, store := newTestService(t)

	req := pageview("/pricing")
	if _, err := svc.Ingest(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	event := store.Events("site_abc")[0]
	if event.Fingerprint == req.RemoteIP || strings.Contains(event.Fingerprint, req.RemoteIP) {
		t.Error("fingerprint contains raw IP")
	}
	for _, field := range []string{event.Device, event.Browser, event.Referrer, event.Country} {
		if strings.Contains(field, req.UserAgent) {
			t.Errorf("dimension %q derived field carries raw user agent", field)
		}
	}

	payload := sink.all()[0]
	if strings.Contains(payload.Fingerprint, req.RemoteIP) {
		t.Error("payload fingerprint contains raw IP")
	}
}

func TestIngest_RaceExactlyOneWinner(t *testing.T) {
	t.Parallel()

	svc, _, store := newTestService(t)
	ctx := context.Background()

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]Outcome, goroutines)

	// Fixed timestamp keeps every submission in one dedup time bucket.
	ts := time.Now().UTC().Add(-time.Minute).Truncate(10 * time.Second)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := pageview("/race")
			req.Timestamp = ts
			result, err := svc.Ingest(ctx, req)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = result.Outcome
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, outcome := range results {
		if outcome == OutcomeAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want exactly 1", accepted)
	}
	if got := len(store.Events("site_abc")); got != 1 {
		t.Errorf("realtime events = %d, want 1", got)
	}
}
