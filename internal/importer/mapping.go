package importer

import "time"

// SourceRow is one record from an external analytics export, as the
// source client decoded it. Zero values mean the source omitted the field.
type SourceRow struct {
	Date               time.Time `json:"date"`
	Path               string    `json:"path,omitempty"`
	Source             string    `json:"source,omitempty"` // Referrer source label
	Country            string    `json:"country,omitempty"`
	Pageviews          int64     `json:"pageviews,omitempty"`
	Visitors           int64     `json:"visitors,omitempty"` // The source's unique-user count
	BounceRate         float64   `json:"bounce_rate,omitempty"`
	AvgSessionDuration float64   `json:"avg_session_duration,omitempty"`
}

// ImportedStat is the normalized internal shape of one imported daily
// aggregate row.
type ImportedStat struct {
	Date               time.Time
	Path               string
	Referrer           string
	Country            string
	Pageviews          int64
	Visitors           int64
	BounceRate         float64
	AvgSessionDuration float64
}

// Mapping defaults. These are the single place external-field absence is
// resolved; aggregation code downstream never re-derives them.
const (
	DefaultPath     = "/"
	DefaultReferrer = "direct"
	DefaultCountry  = "Unknown"
)

// MapRow normalizes an external record. Missing numeric fields stay 0;
// missing path, source and country take their named defaults.
func MapRow(row SourceRow) ImportedStat {
	stat := ImportedStat{
		Date:               row.Date.UTC().Truncate(24 * time.Hour),
		Path:               row.Path,
		Referrer:           row.Source,
		Country:            row.Country,
		Pageviews:          row.Pageviews,
		Visitors:           row.Visitors,
		BounceRate:         row.BounceRate,
		AvgSessionDuration: row.AvgSessionDuration,
	}
	if stat.Path == "" {
		stat.Path = DefaultPath
	}
	if stat.Referrer == "" {
		stat.Referrer = DefaultReferrer
	}
	if stat.Country == "" {
		stat.Country = DefaultCountry
	}
	if stat.Pageviews < 0 {
		stat.Pageviews = 0
	}
	if stat.Visitors < 0 {
		stat.Visitors = 0
	}
	if stat.BounceRate < 0 {
		stat.BounceRate = 0
	}
	if stat.AvgSessionDuration < 0 {
		stat.AvgSessionDuration = 0
	}
	return stat
}
