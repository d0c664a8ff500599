package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Group identifies which business line a pipeline or sheet belongs to. The
// group also selects the sheet column flavor used during sync.
type Group string

// Known business groups.
const (
	GroupSales Group = "sales"
	GroupCS    Group = "cs"
)

// IsValid reports whether g is a known group.
func (g Group) IsValid() bool {
	return g == GroupSales || g == GroupCS
}

// SyncStatus controls whether a registered sheet participates in sync runs.
type SyncStatus string

// Sync statuses. Paused sheets are skipped in both directions; archived
// sheets are additionally excluded from empty-row allocation.
const (
	SyncActive   SyncStatus = "active"
	SyncPaused   SyncStatus = "paused"
	SyncArchived SyncStatus = "archived"
)

// IsValid reports whether s is a recognized sync status.
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncActive, SyncPaused, SyncArchived:
		return true
	}
	return false
}

// QuarterlySheet is one external-sheet target, unique per
// (fiscal year, quarter, group).
type QuarterlySheet struct {
	ID           int64      `json:"id"`
	Year         int        `json:"year"`
	Quarter      int        `json:"quarter"`
	Group        Group      `json:"group"`
	DocumentID   string     `json:"document_id"`
	TabName      string     `json:"tab_name"`
	WebhookToken string     `json:"-"`
	SyncStatus   SyncStatus `json:"sync_status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// PipelineCount is populated by list queries, not stored.
	PipelineCount int `json:"pipeline_count,omitempty"`
}

// Validate checks the registry invariants before a sheet is persisted.
func (s *QuarterlySheet) Validate() error {
	if s.Year < 2000 || s.Year > 2200 {
		return fmt.Errorf("year %d out of range", s.Year)
	}
	if s.Quarter < 1 || s.Quarter > 4 {
		return fmt.Errorf("quarter must be between 1 and 4, got %d", s.Quarter)
	}
	if !s.Group.IsValid() {
		return fmt.Errorf("unknown group %q", s.Group)
	}
	if s.DocumentID == "" {
		return fmt.Errorf("document id is required")
	}
	if s.TabName == "" {
		return fmt.Errorf("tab name is required")
	}
	if !s.SyncStatus.IsValid() {
		return fmt.Errorf("unknown sync status %q", s.SyncStatus)
	}
	return nil
}

var documentRefPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ParseDocumentRef extracts the canonical document identifier from whatever
// locator the caller supplies: a full document URL or a bare identifier.
func ParseDocumentRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("document reference is empty")
	}
	if m := documentRefPattern.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if strings.Contains(ref, "/") || strings.Contains(ref, " ") {
		return "", fmt.Errorf("unparseable document reference %q", ref)
	}
	return ref, nil
}

// NewWebhookToken generates an opaque credential for a sheet's edit webhook.
func NewWebhookToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
