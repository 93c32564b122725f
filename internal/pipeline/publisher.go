// Package pipeline moves accepted events from the ingestion hot path to
// durable storage via a Redis stream.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hushmetrics/hushmetrics/internal/metrics"
	"github.com/hushmetrics/hushmetrics/internal/model"
)

const (
	// StreamKey is the Redis stream for accepted events.
	StreamKey = "stream:events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// EventPayload is the compressed event format for the Redis stream.
// It carries only the derived fingerprint, never the raw inputs.
type EventPayload struct {
	EventID     string          `json:"id"`            // ULID assigned at acceptance
	SiteID      string          `json:"sid"`           // site_id
	Type        string          `json:"ty"`            // pageview|custom
	Name        string          `json:"n,omitempty"`   // custom event name
	Path        string          `json:"p"`             // page path
	Fingerprint string          `json:"fp"`            // visitor fingerprint
	SessionID   string          `json:"ssn,omitempty"` // session_id
	Country     string          `json:"cc,omitempty"`  // country code
	Device      string          `json:"d,omitempty"`   // device class
	Browser     string          `json:"b,omitempty"`   // browser family
	Referrer    string          `json:"r,omitempty"`   // sanitized referrer
	Properties  json.RawMessage `json:"pr,omitempty"`  // property bag
	Timestamp   int64           `json:"t"`             // Unix milliseconds
}

// PayloadFromEvent builds the stream payload for an accepted event.
func PayloadFromEvent(event *model.Event) (EventPayload, error) {
	payload := EventPayload{
		EventID:     event.ID,
		SiteID:      event.SiteID,
		Type:        string(event.Type),
		Name:        event.Name,
		Path:        event.Path,
		Fingerprint: event.Fingerprint,
		SessionID:   event.SessionID,
		Country:     event.Country,
		Device:      event.Device,
		Browser:     event.Browser,
		Referrer:    event.Referrer,
		Timestamp:   event.Timestamp.UnixMilli(),
	}

	if len(event.Properties) > 0 {
		props, err := json.Marshal(event.Properties)
		if err != nil {
			return EventPayload{}, fmt.Errorf("marshal properties: %w", err)
		}
		payload.Properties = props
	}
	return payload, nil
}

// Publisher enqueues accepted events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "pipeline.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload EventPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget); the realtime
// view already holds the event, only durability lags.
func (p *Publisher) PublishAsync(payload EventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish event",
				"site_id", payload.SiteID,
				"event_id", payload.EventID,
				"error", err,
			)
			p.metrics.IncEventPublished("dropped")
			return
		}

		p.logger.Debug("event published",
			"site_id", payload.SiteID,
			"event_id", payload.EventID,
			"stream_id", streamID,
		)
		p.metrics.IncEventPublished("success")
	}()
}
