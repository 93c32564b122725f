package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hushmetrics/hushmetrics/internal/importer"
	"github.com/hushmetrics/hushmetrics/internal/model"
)

// EventRepository provides database access for analytics events.
type EventRepository struct {
	repo *Repository
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(repo *Repository) *EventRepository {
	return &EventRepository{repo: repo}
}

// BulkInsert inserts events with idempotency via ON CONFLICT DO NOTHING
// keyed on the stream message id, so worker retries never double-count.
func (r *EventRepository) BulkInsert(ctx context.Context, messageIDs []string, events []*model.Event) error {
	if len(events) == 0 {
		return nil
	}
	if len(messageIDs) != len(events) {
		return fmt.Errorf("message id count %d does not match event count %d", len(messageIDs), len(events))
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO events (
			id, message_id, site_id, type, name, path, fingerprint,
			session_id, ts, country, device, browser, referrer, properties
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (message_id) DO NOTHING
	`

	for i, event := range events {
		var props []byte
		if len(event.Properties) > 0 {
			encoded, err := json.Marshal(event.Properties)
			if err != nil {
				return fmt.Errorf("marshal properties for event %s: %w", event.ID, err)
			}
			props = encoded
		}
		batch.Queue(query,
			event.ID,
			messageIDs[i],
			event.SiteID,
			string(event.Type),
			nullableString(event.Name),
			event.Path,
			event.Fingerprint,
			nullableString(event.SessionID),
			event.Timestamp,
			nullableString(event.Country),
			nullableString(event.Device),
			nullableString(event.Browser),
			nullableString(event.Referrer),
			props,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}
	return nil
}

// EventsBetween returns every event for the site with
// start <= ts < end, implementing stats.EventSource.
func (r *EventRepository) EventsBetween(ctx context.Context, siteID string, start, end time.Time) ([]model.Event, error) {
	query := `
		SELECT id, site_id, type, COALESCE(name, ''), path, fingerprint,
		       COALESCE(session_id, ''), ts, COALESCE(country, ''),
		       COALESCE(device, ''), COALESCE(browser, ''), COALESCE(referrer, '')
		FROM events
		WHERE site_id = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts
	`

	rows, err := r.repo.pool.Query(ctx, query, siteID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var typ string
		if err := rows.Scan(
			&e.ID, &e.SiteID, &typ, &e.Name, &e.Path, &e.Fingerprint,
			&e.SessionID, &e.Timestamp, &e.Country, &e.Device, &e.Browser, &e.Referrer,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = model.EventType(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertImported upserts normalized imported daily aggregates,
// implementing importer.StatWriter. Re-runs of a batch overwrite the
// same rows, keeping the import idempotent.
func (r *EventRepository) InsertImported(ctx context.Context, siteID string, stats []importer.ImportedStat) error {
	if len(stats) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO imported_stats (
			site_id, date, path, referrer, country,
			pageviews, visitors, bounce_rate, avg_session_duration
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (site_id, date, path, referrer, country) DO UPDATE SET
			pageviews = EXCLUDED.pageviews,
			visitors = EXCLUDED.visitors,
			bounce_rate = EXCLUDED.bounce_rate,
			avg_session_duration = EXCLUDED.avg_session_duration
	`

	for _, stat := range stats {
		batch.Queue(query,
			siteID,
			stat.Date,
			stat.Path,
			stat.Referrer,
			stat.Country,
			stat.Pageviews,
			stat.Visitors,
			stat.BounceRate,
			stat.AvgSessionDuration,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(stats); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert imported stat %d: %w", i, err)
		}
	}
	return nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
