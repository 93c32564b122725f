// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/hushmetrics/hushmetrics/internal/errs"
)

// EventType distinguishes pageviews from custom events.
type EventType string

const (
	EventTypePageview EventType = "pageview"
	EventTypeCustom   EventType = "custom"
)

// IsValid checks if the event type is one of the known kinds.
func (t EventType) IsValid() bool {
	return t == EventTypePageview || t == EventTypeCustom
}

// Property bag limits. Oversized payloads are rejected at ingestion so the
// bag never has to be re-validated downstream.
const (
	MaxProperties       = 30
	MaxPropertyKeyLen   = 64
	MaxPropertyValueLen = 500
	MaxPropertyArrayLen = 20
)

// Event represents a single accepted analytics event.
// Immutable once accepted; owned by the site it belongs to.
type Event struct {
	ID     string `json:"id"`      // ULID (time-sortable)
	SiteID string `json:"site_id"` //

	Type EventType `json:"type"`
	Name string    `json:"name,omitempty"` // Custom event name

	Path string `json:"path"` // Normalized page path

	// Privacy-safe visitor identification. Derived token only; raw
	// IP/user-agent are never stored or carried on the event.
	Fingerprint string `json:"fingerprint"`
	SessionID   string `json:"session_id,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Dimensions
	Country  string `json:"country,omitempty"`  // ISO 3166-1 alpha-2, or "Unknown"
	Device   string `json:"device,omitempty"`   // desktop|mobile|tablet|other
	Browser  string `json:"browser,omitempty"`  // UA family
	Referrer string `json:"referrer,omitempty"` // Sanitized referrer domain

	// Bounded key/value payload for custom events.
	Properties map[string]PropertyValue `json:"properties,omitempty"`
}

// SessionKey identifies the session an event belongs to: the explicit
// session ID when the tracker supplied one, else the visitor fingerprint.
func (e *Event) SessionKey() string {
	if e.SessionID != "" {
		return e.SessionID
	}
	return e.Fingerprint
}

// PropertyValue is one value in an event property bag. Exactly one field
// is set; the closed set of kinds is enforced at ingestion.
type PropertyValue struct {
	Str  *string   `json:"str,omitempty"`
	Num  *float64  `json:"num,omitempty"`
	Bool *bool     `json:"bool,omitempty"`
	Strs []string  `json:"strs,omitempty"`
	Nums []float64 `json:"nums,omitempty"`
}

// StringProp builds a string property value.
func StringProp(s string) PropertyValue { return PropertyValue{Str: &s} }

// NumberProp builds a numeric property value.
func NumberProp(n float64) PropertyValue { return PropertyValue{Num: &n} }

// BoolProp builds a boolean property value.
func BoolProp(b bool) PropertyValue { return PropertyValue{Bool: &b} }

// StringsProp builds a string array property value.
func StringsProp(s []string) PropertyValue { return PropertyValue{Strs: s} }

// NumbersProp builds a numeric array property value.
func NumbersProp(n []float64) PropertyValue { return PropertyValue{Nums: n} }

// ValidateProperties enforces the property bag bounds.
func ValidateProperties(props map[string]PropertyValue) error {
	if len(props) > MaxProperties {
		return errs.Validationf("too many properties: %d (max %d)", len(props), MaxProperties)
	}
	for key, value := range props {
		if key == "" {
			return errs.Validationf("property key must not be empty")
		}
		if len(key) > MaxPropertyKeyLen {
			return errs.Validationf("property key %q too long (max %d)", key[:MaxPropertyKeyLen], MaxPropertyKeyLen)
		}
		if err := validatePropertyValue(key, value); err != nil {
			return err
		}
	}
	return nil
}

func validatePropertyValue(key string, value PropertyValue) error {
	kinds := 0
	if value.Str != nil {
		kinds++
		if len(*value.Str) > MaxPropertyValueLen {
			return errs.Validationf("property %q value too long (max %d)", key, MaxPropertyValueLen)
		}
	}
	if value.Num != nil {
		kinds++
	}
	if value.Bool != nil {
		kinds++
	}
	if value.Strs != nil {
		kinds++
		if len(value.Strs) > MaxPropertyArrayLen {
			return errs.Validationf("property %q array too long (max %d)", key, MaxPropertyArrayLen)
		}
		for _, s := range value.Strs {
			if len(s) > MaxPropertyValueLen {
				return errs.Validationf("property %q array element too long (max %d)", key, MaxPropertyValueLen)
			}
		}
	}
	if value.Nums != nil {
		kinds++
		if len(value.Nums) > MaxPropertyArrayLen {
			return errs.Validationf("property %q array too long (max %d)", key, MaxPropertyArrayLen)
		}
	}
	if kinds != 1 {
		return errs.Validationf("property %q must hold exactly one value kind", key)
	}
	return nil
}
