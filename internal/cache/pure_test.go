package cache

import (
	"strings"
	"testing"
	"time"
)

func TestStatsKey_Deterministic(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	key1 := StatsKey("site_abc", start, end, []string{"pages", "devices"})
	key2 := StatsKey("site_abc", start, end, []string{"pages", "devices"})

	if key1 != key2 {
		t.Error("Same query should produce same key")
	}
}

func TestStatsKey_DimensionOrderIgnored(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	key1 := StatsKey("site_abc", start, end, []string{"pages", "devices", "countries"})
	key2 := StatsKey("site_abc", start, end, []string{"countries", "devices", "pages"})

	if key1 != key2 {
		t.Errorf("Dimension order should not change the key: %q vs %q", key1, key2)
	}
}

func TestStatsKey_Different(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	base := StatsKey("site_abc", start, end, []string{"pages"})

	tests := []struct {
		name string
		key  string
	}{
		{"different site", StatsKey("site_xyz", start, end, []string{"pages"})},
		{"different start", StatsKey("site_abc", start.AddDate(0, 0, 1), end, []string{"pages"})},
		{"different end", StatsKey("site_abc", start, end.AddDate(0, 0, -1), []string{"pages"})},
		{"different dimensions", StatsKey("site_abc", start, end, []string{"devices"})},
		{"no dimensions", StatsKey("site_abc", start, end, nil)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.key == base {
				t.Error("Distinct queries should produce distinct keys")
			}
		})
	}
}

func TestStatsKey_Prefix(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	key := StatsKey("site_abc", start, start, nil)

	if !strings.HasPrefix(key, statsKeyPrefix+"site_abc:") {
		t.Errorf("StatsKey() = %q, want prefix %q", key, statsKeyPrefix+"site_abc:")
	}
}
