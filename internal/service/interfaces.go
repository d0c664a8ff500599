// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
)

// PipelineFilter defines filtering options for pipeline queries. Zero-value
// fields are ignored; results are ordered most-recently-created first.
type PipelineFilter struct {
	SheetID *int64
	IDs     []string
	Limit   int
	Offset  int
}

// ActivityFilter defines filtering options for activity-log reads.
type ActivityFilter struct {
	Type   *model.ActivityType
	Limit  int
	Offset int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Pipeline operations. Creation is owned by ingestion; the API layer
	// exposes no create endpoint.
	CreatePipeline(ctx context.Context, p *model.Pipeline) error
	GetPipeline(ctx context.Context, id string) (*model.Pipeline, error)
	GetPipelines(ctx context.Context, filter PipelineFilter) ([]model.Pipeline, error)
	UpdatePipeline(ctx context.Context, p *model.Pipeline) error
	SetSheetRowNumber(ctx context.Context, id string, row int64) error
	// DeletePipeline cascades to forecasts and activity entries.
	DeletePipeline(ctx context.Context, id string) error

	// Forecast operations. The three rows are replaced wholesale.
	ReplaceForecasts(ctx context.Context, pipelineID string, forecasts []model.MonthlyForecast) error
	GetForecasts(ctx context.Context, pipelineID string) ([]model.MonthlyForecast, error)

	// Activity log: append-only writes, paginated filtered reads ordered by
	// logged_at descending.
	AppendActivity(ctx context.Context, entry *model.ActivityLogEntry) error
	GetActivity(ctx context.Context, pipelineID string, filter ActivityFilter) ([]model.ActivityLogEntry, int, error)

	// Quarterly sheet registry.
	CreateSheet(ctx context.Context, sheet *model.QuarterlySheet) error
	GetSheet(ctx context.Context, id int64) (*model.QuarterlySheet, error)
	ListSheets(ctx context.Context) ([]model.QuarterlySheet, error)
	UpdateSheetStatus(ctx context.Context, id int64, status model.SyncStatus) error
	// DeleteSheet cascades: pipelines pointing at the sheet go first.
	DeleteSheet(ctx context.Context, id int64) error

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// RangeValues is one contiguous block of cell values addressed in A1 notation.
type RangeValues struct {
	Range  string
	Values [][]any
}

// SheetAPI is the minimal surface the sync engine needs from the external
// document service. The production implementation talks to Google Sheets;
// tests use a mock.
type SheetAPI interface {
	// ReadColumn returns every cell of one column of a tab, top to bottom.
	ReadColumn(ctx context.Context, documentID, tab, column string) ([]string, error)
	// ReadRow returns the cells of one row starting at column A.
	ReadRow(ctx context.Context, documentID, tab string, row int64) ([]string, error)
	// UpdateCells applies all ranges in a single batched request.
	UpdateCells(ctx context.Context, documentID string, updates []RangeValues) error
	// DeleteRow removes one row from a tab.
	DeleteRow(ctx context.Context, documentID, tab string, row int64) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RowIssue describes one row that failed validation or sync; batches report
// issues per row and keep going.
type RowIssue struct {
	Row        int64
	PipelineID string
	Reason     string
}

// CellDiff is one cell the sync would change, reported by dry runs.
type CellDiff struct {
	PipelineID string
	Row        int64
	Column     string
	Old        string
	New        string
}

// SyncSummary aggregates the outcome of one outbound sync run.
type SyncSummary struct {
	Scanned int
	Written int
	Skipped int
	Failed  int
	Issues  []RowIssue
	Diffs   []CellDiff
	DryRun  bool
}

// IngestSummary aggregates the outcome of one inbound parse run.
type IngestSummary struct {
	Rows     int
	Imported int
	Rejected int
	Issues   []RowIssue
}
