// Package syncer implements the bidirectional row-level synchronizer between
// pipeline records and their external quarterly sheets. Runs are sequential
// by design: the external service is rate limited and shared with human
// editors, so writes are paced, never parallelized, and always overwrite the
// mapped cells (last writer wins; there is no merge).
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/revenue"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/sheets"
)

// firstDataRow is the first row below the header.
const firstDataRow = 2

// SyncActor is recorded as the author of sync-originated mutations.
const SyncActor = "sheet-sync"

// Config controls pacing and retries for sync runs.
type Config struct {
	WriteDelay time.Duration
	Retry      service.RetryOptions
	Now        func() time.Time
}

// DefaultConfig returns the standard pacing configuration.
func DefaultConfig() Config {
	return Config{
		WriteDelay: 1500 * time.Millisecond,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Now: time.Now,
	}
}

// Engine performs sync runs against one external document service.
type Engine struct {
	storage service.Storage
	api     service.SheetAPI
	config  Config
}

// New creates a sync engine.
func New(storage service.Storage, api service.SheetAPI, config Config) *Engine {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Engine{storage: storage, api: api, config: config}
}

// rowIndex maps pipeline ids to their external rows for one run. The
// first-empty cursor is a per-run cache only: it is never persisted and never
// trusted across runs, since human editors move rows between runs.
type rowIndex struct {
	byID       map[string]int64
	firstEmpty int64
}

func (e *Engine) buildRowIndex(ctx context.Context, sheet *model.QuarterlySheet, cmap sheets.ColumnMap) (*rowIndex, error) {
	cells, err := e.api.ReadColumn(ctx, sheet.DocumentID, sheet.TabName, cmap.IDColumn())
	if err != nil {
		return nil, &common.ExternalServiceError{Op: "scan identifier column", Err: err}
	}

	index := &rowIndex{byID: make(map[string]int64), firstEmpty: firstDataRow}
	for i, cell := range cells {
		row := int64(i + 1)
		if row < firstDataRow || cell == "" {
			continue
		}
		index.byID[cell] = row
		if row >= index.firstEmpty {
			index.firstEmpty = row + 1
		}
	}
	return index, nil
}

// resolveRow finds or allocates the external row for a pipeline. Dry runs
// reserve the row in the run-local index only, leaving the store untouched.
func (e *Engine) resolveRow(ctx context.Context, index *rowIndex, p *model.Pipeline, dryRun bool) (int64, error) {
	if row, ok := index.byID[p.ID]; ok {
		return row, nil
	}

	row := index.firstEmpty
	index.firstEmpty++
	index.byID[p.ID] = row

	if !dryRun {
		if err := e.storage.SetSheetRowNumber(ctx, p.ID, row); err != nil {
			return 0, err
		}
	}
	p.SheetRowNumber = &row
	return row, nil
}

// Outbound writes the given pipelines to their sheet. Paused and archived
// sheets are skipped entirely. Per-pipeline failures are reported in the
// summary and never abort the run. With dryRun set, the engine reads current
// rows and reports per-cell diffs instead of writing.
func (e *Engine) Outbound(ctx context.Context, sheet *model.QuarterlySheet, pipelines []model.Pipeline, dryRun bool) (*service.SyncSummary, error) {
	summary := &service.SyncSummary{DryRun: dryRun}

	if sheet.SyncStatus != model.SyncActive {
		slog.Info("skipping sheet: sync not active",
			"sheet_id", sheet.ID, "sync_status", sheet.SyncStatus)
		summary.Skipped = len(pipelines)
		return summary, nil
	}

	cmap := sheets.MapForFlavor(sheets.FlavorForGroup(sheet.Group))
	index, err := e.buildRowIndex(ctx, sheet, cmap)
	if err != nil {
		return nil, err
	}

	for i := range pipelines {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		p := &pipelines[i]
		summary.Scanned++

		row, err := e.resolveRow(ctx, index, p, dryRun)
		if err != nil {
			summary.Failed++
			summary.Issues = append(summary.Issues, service.RowIssue{
				PipelineID: p.ID, Reason: err.Error(),
			})
			continue
		}

		if dryRun {
			diffs, diffErr := e.diffRow(ctx, sheet, cmap, p, row)
			if diffErr != nil {
				summary.Failed++
				summary.Issues = append(summary.Issues, service.RowIssue{
					Row: row, PipelineID: p.ID, Reason: diffErr.Error(),
				})
				continue
			}
			summary.Diffs = append(summary.Diffs, diffs...)
			continue
		}

		updates := sheets.EncodeRow(p, cmap, sheet.TabName, row)
		err = common.WithRetry(ctx, func() error {
			return e.api.UpdateCells(ctx, sheet.DocumentID, updates)
		}, e.config.Retry)
		if err != nil {
			summary.Failed++
			summary.Issues = append(summary.Issues, service.RowIssue{
				Row: row, PipelineID: p.ID, Reason: err.Error(),
			})
			slog.Error("outbound sync failed for pipeline",
				"pipeline_id", p.ID, "row", row, "error", err)
		} else {
			summary.Written++
		}

		// Fixed pacing between row writes keeps us under the external
		// request budget. Backfills are linear in wall-clock time on
		// purpose.
		if i < len(pipelines)-1 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(e.config.WriteDelay):
			}
		}
	}

	slog.Info("outbound sync finished",
		"sheet_id", sheet.ID,
		"scanned", summary.Scanned,
		"written", summary.Written,
		"failed", summary.Failed,
		"dry_run", dryRun)
	return summary, nil
}

// diffRow compares the would-be write against the row's current contents.
func (e *Engine) diffRow(ctx context.Context, sheet *model.QuarterlySheet, cmap sheets.ColumnMap, p *model.Pipeline, row int64) ([]service.CellDiff, error) {
	current, err := e.api.ReadRow(ctx, sheet.DocumentID, sheet.TabName, row)
	if err != nil {
		return nil, &common.ExternalServiceError{Op: "read row for diff", Err: err}
	}

	cells := sheets.EncodeCells(p, cmap)
	var diffs []service.CellDiff
	for field, value := range cells {
		column := cmap.Columns[field]
		idx := sheets.ColumnIndex(column)
		old := ""
		if idx < len(current) {
			old = current[idx]
		}
		next := sheets.CellString(value)
		if old != next {
			diffs = append(diffs, service.CellDiff{
				PipelineID: p.ID,
				Row:        row,
				Column:     column,
				Old:        old,
				New:        next,
			})
		}
	}
	return diffs, nil
}

// Inbound parses the sheet's rows back into pipeline records. Rows failing
// structural validation are reported individually; the batch continues.
// Excluded formula columns are recomputed locally, never read.
func (e *Engine) Inbound(ctx context.Context, sheet *model.QuarterlySheet) (*service.IngestSummary, error) {
	summary := &service.IngestSummary{}

	if sheet.SyncStatus == model.SyncPaused {
		slog.Info("skipping sheet: sync paused", "sheet_id", sheet.ID)
		return summary, nil
	}

	cmap := sheets.MapForFlavor(sheets.FlavorForGroup(sheet.Group))

	idCells, err := e.api.ReadColumn(ctx, sheet.DocumentID, sheet.TabName, cmap.IDColumn())
	if err != nil {
		return nil, &common.ExternalServiceError{Op: "scan identifier column", Err: err}
	}
	assigneeCells, err := e.api.ReadColumn(ctx, sheet.DocumentID, sheet.TabName, cmap.Columns[sheets.FieldAssignee])
	if err != nil {
		return nil, &common.ExternalServiceError{Op: "scan assignee column", Err: err}
	}

	lastRow := int64(len(idCells))
	if int64(len(assigneeCells)) > lastRow {
		lastRow = int64(len(assigneeCells))
	}

	for row := int64(firstDataRow); row <= lastRow; row++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		cells, err := e.api.ReadRow(ctx, sheet.DocumentID, sheet.TabName, row)
		if err != nil {
			summary.Rejected++
			summary.Issues = append(summary.Issues, service.RowIssue{
				Row: row, Reason: fmt.Sprintf("read failed: %v", err),
			})
			continue
		}
		if rowEmpty(cells) {
			continue
		}
		summary.Rows++

		parsed, err := sheets.DecodeRow(cells, cmap, sheet, row)
		if err != nil {
			summary.Rejected++
			summary.Issues = append(summary.Issues, service.RowIssue{
				Row: row, Reason: err.Error(),
			})
			continue
		}

		if err := e.upsertParsed(ctx, parsed); err != nil {
			summary.Rejected++
			summary.Issues = append(summary.Issues, service.RowIssue{
				Row: row, PipelineID: parsed.ID, Reason: err.Error(),
			})
			continue
		}
		summary.Imported++
	}

	slog.Info("inbound sync finished",
		"sheet_id", sheet.ID,
		"rows", summary.Rows,
		"imported", summary.Imported,
		"rejected", summary.Rejected)
	return summary, nil
}

// upsertParsed merges a parsed row into the store. External edits overwrite
// the mapped fields; everything else, including financial inputs the sheet
// derives by formula, keeps its stored value.
func (e *Engine) upsertParsed(ctx context.Context, parsed *model.Pipeline) error {
	now := e.config.Now()

	existing, err := e.storage.GetPipeline(ctx, parsed.ID)
	switch {
	case err == nil:
		existing.Assignee = parsed.Assignee
		existing.Publisher = parsed.Publisher
		existing.Zone = parsed.Zone
		existing.Status = parsed.Status
		existing.StartingDate = parsed.StartingDate
		existing.ActualStartingDate = parsed.ActualStartingDate
		existing.CloseWonDate = parsed.CloseWonDate
		existing.ProgressPercent = parsed.ProgressPercent
		existing.RevenueShare = parsed.RevenueShare
		existing.NextAction = parsed.NextAction
		existing.ActionNotes = parsed.ActionNotes
		existing.SheetRowNumber = parsed.SheetRowNumber
		existing.UpdatedBy = SyncActor

		result := e.recompute(existing, now)
		if err := e.storage.UpdatePipeline(ctx, existing); err != nil {
			return err
		}
		if err := e.storage.ReplaceForecasts(ctx, existing.ID,
			result.Forecasts(existing.ID, existing.StartingDate == nil)); err != nil {
			return err
		}
		return e.storage.AppendActivity(ctx, &model.ActivityLogEntry{
			PipelineID:   existing.ID,
			Type:         model.ActivityFieldUpdate,
			FieldChanged: "sheet_sync",
			Notes:        "updated from external sheet row",
			LoggedBy:     SyncActor,
			LoggedAt:     now,
		})

	case errors.Is(err, common.ErrNotFound):
		parsed.CreatedBy = SyncActor
		parsed.UpdatedBy = SyncActor

		result := e.recompute(parsed, now)
		if err := e.storage.CreatePipeline(ctx, parsed); err != nil {
			return err
		}
		if err := e.storage.ReplaceForecasts(ctx, parsed.ID,
			result.Forecasts(parsed.ID, parsed.StartingDate == nil)); err != nil {
			return err
		}
		return e.storage.AppendActivity(ctx, &model.ActivityLogEntry{
			PipelineID:   parsed.ID,
			Type:         model.ActivityFieldUpdate,
			FieldChanged: "sheet_sync",
			Notes:        "created from external sheet row",
			LoggedBy:     SyncActor,
			LoggedAt:     now,
		})

	default:
		return err
	}
}

func (e *Engine) recompute(p *model.Pipeline, now time.Time) revenue.Result {
	result := revenue.CalculateFromStart(revenue.Input{
		MaxGross:        p.MaxGross,
		RevenueShare:    p.RevenueShare,
		ProgressPercent: p.ProgressPercent,
		Status:          p.Status,
	}, p.StartingDate, now)
	result.ApplyTo(p)
	return result
}

// DeleteExternalRow removes a pipeline's row from its sheet. Best effort:
// the database is the source of truth for existence, so failures are for the
// caller to log, never to roll back.
func (e *Engine) DeleteExternalRow(ctx context.Context, sheet *model.QuarterlySheet, p *model.Pipeline) error {
	if p.SheetRowNumber == nil {
		return nil
	}
	if err := e.api.DeleteRow(ctx, sheet.DocumentID, sheet.TabName, *p.SheetRowNumber); err != nil {
		return &common.ExternalServiceError{Op: "delete external row", Err: err}
	}
	return nil
}

func rowEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
