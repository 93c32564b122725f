// Package dto defines request and response shapes for the HTTP API.
package dto

import (
	"fmt"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/model"
)

// TrackRequest is a tracker event submission.
// Properties arrive as plain JSON values and are converted to the
// bounded property bag during validation.
type TrackRequest struct {
	Type       string         `json:"type"`
	Name       string         `json:"name,omitempty"`
	Path       string         `json:"path"`
	SessionID  string         `json:"session_id,omitempty"`
	Referrer   string         `json:"referrer,omitempty"`
	Timestamp  *time.Time     `json:"timestamp,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ToProperties converts raw JSON property values into the typed bag.
// Supported kinds: string, number, bool, string array, number array.
func ToProperties(raw map[string]any) (map[string]model.PropertyValue, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	props := make(map[string]model.PropertyValue, len(raw))
	for key, value := range raw {
		prop, err := toPropertyValue(value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		props[key] = prop
	}
	return props, nil
}

func toPropertyValue(value any) (model.PropertyValue, error) {
	switch v := value.(type) {
	case string:
		return model.StringProp(v), nil
	case float64:
		return model.NumberProp(v), nil
	case bool:
		return model.BoolProp(v), nil
	case []any:
		return toArrayProperty(v)
	default:
		return model.PropertyValue{}, fmt.Errorf("unsupported value type")
	}
}

func toArrayProperty(values []any) (model.PropertyValue, error) {
	if len(values) == 0 {
		return model.PropertyValue{}, fmt.Errorf("empty arrays are not allowed")
	}

	switch values[0].(type) {
	case string:
		strs := make([]string, len(values))
		for i, value := range values {
			s, ok := value.(string)
			if !ok {
				return model.PropertyValue{}, fmt.Errorf("mixed array element types")
			}
			strs[i] = s
		}
		return model.StringsProp(strs), nil
	case float64:
		nums := make([]float64, len(values))
		for i, value := range values {
			n, ok := value.(float64)
			if !ok {
				return model.PropertyValue{}, fmt.Errorf("mixed array element types")
			}
			nums[i] = n
		}
		return model.NumbersProp(nums), nil
	default:
		return model.PropertyValue{}, fmt.Errorf("unsupported array element type")
	}
}

// CreateShareRequest configures a new share token.
type CreateShareRequest struct {
	ExpiresInHours int      `json:"expires_in_hours,omitempty"`
	AllowedPeriods []string `json:"allowed_periods,omitempty"`
	Password       string   `json:"password,omitempty"`
}

// ShareResponse is the owner-facing view of a share token.
type ShareResponse struct {
	Token             string     `json:"token"`
	SiteID            string     `json:"site_id"`
	AllowedPeriods    []string   `json:"allowed_periods,omitempty"`
	PasswordProtected bool       `json:"password_protected"`
	CreatedAt         time.Time  `json:"created_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// ToShareResponse converts a token. The password hash never leaves the
// model layer; this response carries only the protection flag.
func ToShareResponse(token *model.ShareToken) ShareResponse {
	periods := make([]string, len(token.AllowedPeriods))
	for i, period := range token.AllowedPeriods {
		periods[i] = string(period)
	}
	if len(periods) == 0 {
		periods = nil
	}
	return ShareResponse{
		Token:             token.Token,
		SiteID:            token.SiteID,
		AllowedPeriods:    periods,
		PasswordProtected: token.PasswordProtected(),
		CreatedAt:         token.CreatedAt,
		ExpiresAt:         token.ExpiresAt,
	}
}

// StartImportRequest launches a bulk import job.
type StartImportRequest struct {
	PropertyID string    `json:"property_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// ImportJobResponse is the API view of an import job.
type ImportJobResponse struct {
	ID           string     `json:"id"`
	SiteID       string     `json:"site_id"`
	PropertyID   string     `json:"property_id"`
	Status       string     `json:"status"`
	TotalRows    int        `json:"total_rows"`
	ImportedRows int        `json:"imported_rows"`
	Progress     float64    `json:"progress"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToImportJobResponse converts an import job.
func ToImportJobResponse(job *model.ImportJob) ImportJobResponse {
	return ImportJobResponse{
		ID:           job.ID,
		SiteID:       job.SiteID,
		PropertyID:   job.SourcePropertyID,
		Status:       string(job.Status),
		TotalRows:    job.TotalRows,
		ImportedRows: job.ImportedRows,
		Progress:     job.Progress(),
		Error:        job.Error,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}
