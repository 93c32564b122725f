package importer

import (
	"testing"
	"time"
)

func TestMapRow_Defaults(t *testing.T) {
	t.Parallel()

	stat := MapRow(SourceRow{Date: time.Date(2024, 11, 3, 15, 30, 0, 0, time.UTC)})

	if stat.Path != "/" {
		t.Errorf("Path = %q, want /", stat.Path)
	}
	if stat.Referrer != "direct" {
		t.Errorf("Referrer = %q, want direct", stat.Referrer)
	}
	if stat.Country != "Unknown" {
		t.Errorf("Country = %q, want Unknown", stat.Country)
	}
	if stat.Pageviews != 0 || stat.Visitors != 0 || stat.BounceRate != 0 || stat.AvgSessionDuration != 0 {
		t.Error("absent numeric fields should default to 0")
	}
	if stat.Date != time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Date = %s, want truncated to day", stat.Date)
	}
}

func TestMapRow_PreservesValues(t *testing.T) {
	t.Parallel()

	stat := MapRow(SourceRow{
		Date:               time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
		Path:               "/pricing",
		Source:             "google",
		Country:            "NL",
		Pageviews:          120,
		Visitors:           80,
		BounceRate:         0.42,
		AvgSessionDuration: 95.5,
	})

	if stat.Path != "/pricing" || stat.Referrer != "google" || stat.Country != "NL" {
		t.Errorf("dimensions not preserved: %+v", stat)
	}
	if stat.Pageviews != 120 || stat.Visitors != 80 {
		t.Errorf("counts not preserved: %+v", stat)
	}
	if stat.BounceRate != 0.42 || stat.AvgSessionDuration != 95.5 {
		t.Errorf("rates not preserved: %+v", stat)
	}
}

func TestMapRow_ClampsNegatives(t *testing.T) {
	t.Parallel()

	stat := MapRow(SourceRow{
		Date:               time.Now(),
		Pageviews:          -1,
		Visitors:           -2,
		BounceRate:         -0.1,
		AvgSessionDuration: -5,
	})

	if stat.Pageviews != 0 || stat.Visitors != 0 || stat.BounceRate != 0 || stat.AvgSessionDuration != 0 {
		t.Errorf("negative source values should clamp to 0, got %+v", stat)
	}
}
