package pipeline

import "fmt"

const (
	ulidLength        = 26
	fingerprintLength = 16
	maxPathLength     = 2000
	maxMetaLength     = 500
)

// ValidateEventPayload validates stream payload fields before they are
// turned into persisted events. Payloads that fail here are poison
// messages and go to the dead-letter stream.
func ValidateEventPayload(payload EventPayload) error {
	if payload.EventID == "" {
		return fmt.Errorf("id is required")
	}
	if len(payload.EventID) != ulidLength {
		return fmt.Errorf("id must be %d chars", ulidLength)
	}
	if payload.SiteID == "" {
		return fmt.Errorf("sid is required")
	}
	if payload.Type != "pageview" && payload.Type != "custom" {
		return fmt.Errorf("ty must be pageview or custom")
	}
	if payload.Type == "custom" && payload.Name == "" {
		return fmt.Errorf("n is required for custom events")
	}
	if payload.Path == "" {
		return fmt.Errorf("p is required")
	}
	if len(payload.Path) > maxPathLength {
		return fmt.Errorf("p too long")
	}
	if payload.Fingerprint == "" {
		return fmt.Errorf("fp is required")
	}
	if len(payload.Fingerprint) != fingerprintLength || !isHex(payload.Fingerprint) {
		return fmt.Errorf("fp must be %d hex chars", fingerprintLength)
	}
	if payload.Country != "" && len(payload.Country) != 2 && payload.Country != "Unknown" {
		return fmt.Errorf("cc must be 2 chars")
	}
	if len(payload.Referrer) > maxMetaLength {
		return fmt.Errorf("r too long")
	}
	if payload.Timestamp <= 0 {
		return fmt.Errorf("t must be set")
	}
	return nil
}

func isHex(value string) bool {
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			continue
		}
		return false
	}
	return true
}
