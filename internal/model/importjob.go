package model

import "time"

// ImportStatus represents the state of a bulk import job.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusInProgress ImportStatus = "in_progress"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusCancelled  ImportStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed || s == ImportStatusCancelled
}

// CanTransition checks the import job state machine:
// pending → in_progress → completed; in_progress → failed;
// pending|in_progress → cancelled. Terminal states accept nothing.
func (s ImportStatus) CanTransition(to ImportStatus) bool {
	switch s {
	case ImportStatusPending:
		return to == ImportStatusInProgress || to == ImportStatusCancelled
	case ImportStatusInProgress:
		return to == ImportStatusCompleted || to == ImportStatusFailed || to == ImportStatusCancelled
	default:
		return false
	}
}

// ImportJob tracks a resumable, batched ingestion of an external
// analytics export. Mutated only by the import coordinator.
type ImportJob struct {
	ID               string       `json:"id"`
	SiteID           string       `json:"site_id"`
	SourcePropertyID string       `json:"source_property_id"`
	SourceAccountID  string       `json:"-"` // Opaque id from the credential validator
	StartDate        time.Time    `json:"start_date"`
	EndDate          time.Time    `json:"end_date"`
	Status           ImportStatus `json:"status"`
	TotalRows        int          `json:"total_rows"`
	ImportedRows     int          `json:"imported_rows"`
	Error            string       `json:"error,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Progress reports completion as a fraction in [0, 1].
func (j *ImportJob) Progress() float64 {
	if j.TotalRows <= 0 {
		return 0
	}
	return float64(j.ImportedRows) / float64(j.TotalRows)
}
