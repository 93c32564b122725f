package model

import "time"

// SharePeriod is a date-range preset a share token may expose.
type SharePeriod string

const (
	Period24h  SharePeriod = "24h"
	Period7d   SharePeriod = "7d"
	Period30d  SharePeriod = "30d"
	Period90d  SharePeriod = "90d"
	Period12mo SharePeriod = "12mo"
	PeriodAll  SharePeriod = "all"
)

// KnownPeriods lists every accepted share period.
var KnownPeriods = []SharePeriod{Period24h, Period7d, Period30d, Period90d, Period12mo, PeriodAll}

// IsValid checks if the period is one of the known presets.
func (p SharePeriod) IsValid() bool {
	for _, known := range KnownPeriods {
		if p == known {
			return true
		}
	}
	return false
}

// Range resolves the period to an inclusive [start, end] day range
// anchored at now in UTC.
func (p SharePeriod) Range(now time.Time) (time.Time, time.Time) {
	end := now.UTC().Truncate(24 * time.Hour)
	switch p {
	case Period24h:
		return end.AddDate(0, 0, -1), end
	case Period7d:
		return end.AddDate(0, 0, -7), end
	case Period30d:
		return end.AddDate(0, 0, -30), end
	case Period90d:
		return end.AddDate(0, 0, -90), end
	case Period12mo:
		return end.AddDate(-1, 0, 0), end
	default: // PeriodAll
		return time.Unix(0, 0).UTC(), end
	}
}

// ShareStatus represents the computed status of a share token.
type ShareStatus string

const (
	ShareStatusActive  ShareStatus = "active"
	ShareStatusExpired ShareStatus = "expired"
)

// ShareToken grants scoped, time-boxed, read-only access to one site's
// statistics without owner credentials. Revocation is a hard delete, so a
// revoked token is indistinguishable from one that never existed.
type ShareToken struct {
	Token          string        `json:"token"`
	SiteID         string        `json:"site_id"`
	OwnerID        string        `json:"-"` // Never serialized to share consumers
	AllowedPeriods []SharePeriod `json:"allowed_periods,omitempty"`
	PasswordHash   string        `json:"-"` // Argon2id PHC string, empty if unprotected
	CreatedAt      time.Time     `json:"created_at"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty"`
}

// Status computes the current status of the token. The active → expired
// transition is time-triggered and irreversible.
func (s *ShareToken) Status(now time.Time) ShareStatus {
	if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
		return ShareStatusExpired
	}
	return ShareStatusActive
}

// PasswordProtected reports whether validation requires a password.
func (s *ShareToken) PasswordProtected() bool {
	return s.PasswordHash != ""
}

// AllowsPeriod checks the period against the token's restriction.
// An empty AllowedPeriods list means unrestricted.
func (s *ShareToken) AllowsPeriod(period SharePeriod) bool {
	if len(s.AllowedPeriods) == 0 {
		return true
	}
	for _, allowed := range s.AllowedPeriods {
		if allowed == period {
			return true
		}
	}
	return false
}

// ShareGrant is the scope a validated token yields: the site and the
// period, nothing else. Owner identity never crosses this boundary.
type ShareGrant struct {
	SiteID string      `json:"site_id"`
	Period SharePeriod `json:"period"`
}
