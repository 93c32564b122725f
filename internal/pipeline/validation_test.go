package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/model"
)

func validPayload() EventPayload {
	return EventPayload{
		EventID:     "01HV3Q8Z5T0000000000000000",
		SiteID:      "site_abc",
		Type:        "pageview",
		Path:        "/pricing",
		Fingerprint: "a3f8c2d4e5b61790",
		Country:     "DE",
		Timestamp:   time.Now().UnixMilli(),
	}
}

func TestValidateEventPayload_Valid(t *testing.T) {
	t.Parallel()

	if err := ValidateEventPayload(validPayload()); err != nil {
		t.Fatalf("ValidateEventPayload() error = %v, want nil", err)
	}
}

func TestValidateEventPayload_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*EventPayload)
	}{
		{"missing id", func(p *EventPayload) { p.EventID = "" }},
		{"short id", func(p *EventPayload) { p.EventID = "abc" }},
		{"missing site", func(p *EventPayload) { p.SiteID = "" }},
		{"unknown type", func(p *EventPayload) { p.Type = "click" }},
		{"custom without name", func(p *EventPayload) { p.Type = "custom"; p.Name = "" }},
		{"missing path", func(p *EventPayload) { p.Path = "" }},
		{"missing fingerprint", func(p *EventPayload) { p.Fingerprint = "" }},
		{"short fingerprint", func(p *EventPayload) { p.Fingerprint = "abc123" }},
		{"non-hex fingerprint", func(p *EventPayload) { p.Fingerprint = "zzzzzzzzzzzzzzzz" }},
		{"bad country", func(p *EventPayload) { p.Country = "DEU" }},
		{"zero timestamp", func(p *EventPayload) { p.Timestamp = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := validPayload()
			tt.mutate(&payload)
			if err := ValidateEventPayload(payload); err == nil {
				t.Error("ValidateEventPayload() = nil, want error")
			}
		})
	}
}

func TestValidateEventPayload_UnknownCountryAllowed(t *testing.T) {
	t.Parallel()

	payload := validPayload()
	payload.Country = "Unknown"
	if err := ValidateEventPayload(payload); err != nil {
		t.Errorf("ValidateEventPayload() error = %v, want nil", err)
	}
}

func TestPayloadFromEvent(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	event := &model.Event{
		ID:          "01HV3Q8Z5T0000000000000000",
		SiteID:      "site_abc",
		Type:        model.EventTypeCustom,
		Name:        "signup",
		Path:        "/register",
		Fingerprint: "a3f8c2d4e5b61790",
		SessionID:   "ssn_1",
		Timestamp:   ts,
		Properties: map[string]model.PropertyValue{
			"plan": model.StringProp("pro"),
		},
	}

	payload, err := PayloadFromEvent(event)
	if err != nil {
		t.Fatalf("PayloadFromEvent() error = %v", err)
	}

	if payload.EventID != event.ID {
		t.Errorf("EventID = %q, want %q", payload.EventID, event.ID)
	}
	if payload.Type != "custom" || payload.Name != "signup" {
		t.Errorf("Type/Name = %q/%q, want custom/signup", payload.Type, payload.Name)
	}
	if payload.Timestamp != ts.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", payload.Timestamp, ts.UnixMilli())
	}

	var props map[string]model.PropertyValue
	if err := json.Unmarshal(payload.Properties, &props); err != nil {
		t.Fatalf("unmarshal properties: %v", err)
	}
	if props["plan"].Str == nil || *props["plan"].Str != "pro" {
		t.Errorf("plan property = %+v, want pro", props["plan"])
	}

	if err := ValidateEventPayload(payload); err != nil {
		t.Errorf("round-tripped payload invalid: %v", err)
	}
}
