package model

import "time"

// ActivityType classifies an audit-trail entry.
type ActivityType string

// Activity types.
const (
	ActivityStatusChange ActivityType = "status_change"
	ActivityFieldUpdate  ActivityType = "field_update"
	ActivityNote         ActivityType = "note"
)

// IsValid reports whether t is a recognized activity type.
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityStatusChange, ActivityFieldUpdate, ActivityNote:
		return true
	}
	return false
}

// ActivityLogEntry is one append-only audit record against a pipeline. Entries
// are immutable once written; only cascading pipeline deletion removes them.
type ActivityLogEntry struct {
	ID           int64        `json:"id"`
	PipelineID   string       `json:"pipeline_id"`
	Type         ActivityType `json:"activity_type"`
	FieldChanged string       `json:"field_changed,omitempty"`
	OldValue     string       `json:"old_value,omitempty"`
	NewValue     string       `json:"new_value,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	LoggedBy     string       `json:"logged_by"`
	LoggedAt     time.Time    `json:"logged_at"`
}
