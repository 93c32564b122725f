package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hushmetrics/hushmetrics/internal/dedup"
	"github.com/hushmetrics/hushmetrics/internal/errs"
	"github.com/hushmetrics/hushmetrics/internal/fingerprint"
	"github.com/hushmetrics/hushmetrics/internal/metrics"
	"github.com/hushmetrics/hushmetrics/internal/model"
	"github.com/hushmetrics/hushmetrics/internal/pipeline"
	"github.com/hushmetrics/hushmetrics/internal/realtime"
)

// MaxClockSkew is how far in the future a client-supplied timestamp may
// run before it is clamped to receive time.
const MaxClockSkew = 5 * time.Minute

// Request is a raw tracker submission. RemoteIP and UserAgent are
// transport-derived, consumed only to derive the fingerprint and the
// device/browser dimensions, and must never appear in logs, errors, or
// stored events.
type Request struct {
	SiteID     string
	Type       string
	Name       string
	Path       string
	SessionID  string
	Referrer   string
	Properties map[string]model.PropertyValue
	Timestamp  time.Time // zero means receive time

	RemoteIP    string
	UserAgent   string
	CountryHint string // edge-provided country header, e.g. CF-IPCountry
}

// Outcome of an ingestion attempt. Duplicate is a success, not an error.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result reports what happened to a submission.
type Result struct {
	Outcome Outcome `json:"outcome"`
	EventID string  `json:"event_id,omitempty"`
}

// Sink receives accepted events for durable persistence.
type Sink interface {
	PublishAsync(payload pipeline.EventPayload)
}

// Service is the ingestion hot path. Everything it does before handing
// off to the sink is synchronous and in-memory.
type Service struct {
	hasher   *fingerprint.Hasher
	dedup    *dedup.Deduplicator
	realtime *realtime.Store
	sink     Sink
	logger   *slog.Logger
	metrics  metrics.Recorder
	bucket   time.Duration
	now      func() time.Time
}

// NewService creates the ingestion service.
func NewService(
	hasher *fingerprint.Hasher,
	deduplicator *dedup.Deduplicator,
	store *realtime.Store,
	sink Sink,
	logger *slog.Logger,
	recorder metrics.Recorder,
	dedupBucket time.Duration,
) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if dedupBucket <= 0 {
		dedupBucket = dedup.DefaultWindow
	}
	return &Service{
		hasher:   hasher,
		dedup:    deduplicator,
		realtime: store,
		sink:     sink,
		logger:   logger.With("component", "ingest"),
		metrics:  recorder,
		bucket:   dedupBucket,
		now:      time.Now,
	}
}

// Ingest validates and accepts one event. A duplicate within the dedup
// window returns OutcomeDuplicate with no side effects.
func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	now := s.now().UTC()

	req.Path = NormalizePath(req.Path)
	if err := validateRequest(req); err != nil {
		s.metrics.IncEventIngested("rejected")
		return nil, err
	}

	ts := req.Timestamp
	if ts.IsZero() || ts.After(now.Add(MaxClockSkew)) {
		ts = now
	}
	ts = ts.UTC()

	fp := s.hasher.Fingerprint(req.RemoteIP, req.UserAgent, ts)

	key := dedup.Key(req.SiteID, req.Type, req.Name, req.Path, ts, s.bucket)
	if s.dedup.IsDuplicate(key, now) {
		s.metrics.IncEventIngested("duplicate")
		s.logger.Debug("duplicate event suppressed", "site_id", req.SiteID)
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	event := model.Event{
		ID:          ulid.Make().String(),
		SiteID:      req.SiteID,
		Type:        model.EventType(req.Type),
		Name:        req.Name,
		Path:        req.Path,
		Fingerprint: fp,
		SessionID:   req.SessionID,
		Timestamp:   ts,
		Country:     ExtractCountryCode(req.CountryHint),
		Device:      ClassifyDevice(req.UserAgent),
		Browser:     ClassifyBrowser(req.UserAgent),
		Referrer:    ExtractReferrerDomain(SanitizeReferrer(req.Referrer)),
		Properties:  req.Properties,
	}

	s.realtime.Add(event)

	payload, err := pipeline.PayloadFromEvent(&event)
	if err != nil {
		// The realtime view already has the event; only durability is
		// lost. Counted as dropped, never fails the request.
		s.logger.Warn("event payload build failed",
			"site_id", event.SiteID,
			"event_id", event.ID,
			"error", err,
		)
		s.metrics.IncEventPublished("dropped")
	} else {
		s.sink.PublishAsync(payload)
	}

	s.metrics.IncEventIngested("accepted")
	s.logger.Debug("event accepted",
		"site_id", event.SiteID,
		"event_id", event.ID,
		"type", event.Type,
	)

	return &Result{Outcome: OutcomeAccepted, EventID: event.ID}, nil
}

func validateRequest(req Request) error {
	if req.SiteID == "" {
		return errs.Validationf("site_id is required")
	}
	eventType := model.EventType(req.Type)
	if !eventType.IsValid() {
		return errs.Validationf("type must be pageview or custom")
	}
	if eventType == model.EventTypeCustom && req.Name == "" {
		return errs.Validationf("name is required for custom events")
	}
	if eventType == model.EventTypePageview && req.Name != "" {
		return errs.Validationf("name is not allowed for pageviews")
	}
	if len(req.Path) > 2000 {
		return errs.Validationf("path too long")
	}
	if err := model.ValidateProperties(req.Properties); err != nil {
		return err
	}
	return nil
}
