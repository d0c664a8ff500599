package engine

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
)

// Selector names the pipelines a reconcile run covers. Exactly one of the
// three forms is set.
type Selector struct {
	All     bool
	IDs     []string
	SheetID *int64
}

// Validate rejects ambiguous or empty selectors.
func (s Selector) Validate() error {
	set := 0
	if s.All {
		set++
	}
	if len(s.IDs) > 0 {
		set++
	}
	if s.SheetID != nil {
		set++
	}
	if set != 1 {
		return common.NewValidationError("selector", "exactly one of all, ids, or sheet must be given")
	}
	return nil
}

// SheetReport is the outcome of reconciling one sheet.
type SheetReport struct {
	Sheet  model.QuarterlySheet   `json:"sheet"`
	Ingest *service.IngestSummary `json:"ingest,omitempty"`
	Sync   *service.SyncSummary   `json:"sync,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Report aggregates a full reconcile run.
type Report struct {
	DryRun bool          `json:"dry_run"`
	Sheets []SheetReport `json:"sheets"`
}

// Reconcile is the one synchronization entrypoint: for every selected sheet
// it ingests external edits first, then writes the refreshed records back
// out. Per-sheet failures are reported and never abort the run. With dryRun
// set the ingest is skipped and the outbound pass reports cell diffs only.
func (e *Engine) Reconcile(ctx context.Context, selector Selector, dryRun bool) (*Report, error) {
	if err := selector.Validate(); err != nil {
		return nil, err
	}

	targets, err := e.selectTargets(ctx, selector)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: dryRun}
	for sheetID, ids := range targets {
		sheet, err := e.storage.GetSheet(ctx, sheetID)
		if err != nil {
			report.Sheets = append(report.Sheets, SheetReport{
				Sheet: model.QuarterlySheet{ID: sheetID},
				Error: err.Error(),
			})
			continue
		}
		report.Sheets = append(report.Sheets, e.reconcileSheet(ctx, sheet, ids, dryRun))
	}

	slog.Info("reconcile finished", "sheets", len(report.Sheets), "dry_run", dryRun)
	return report, nil
}

// selectTargets resolves a selector to sheet ids and, for the id form, the
// subset of pipeline ids per sheet. A nil id slice means the whole sheet.
func (e *Engine) selectTargets(ctx context.Context, selector Selector) (map[int64][]string, error) {
	targets := make(map[int64][]string)

	switch {
	case selector.SheetID != nil:
		targets[*selector.SheetID] = nil

	case selector.All:
		sheets, err := e.storage.ListSheets(ctx)
		if err != nil {
			return nil, err
		}
		for _, sheet := range sheets {
			targets[sheet.ID] = nil
		}

	default:
		pipelines, err := e.storage.GetPipelines(ctx, service.PipelineFilter{IDs: selector.IDs})
		if err != nil {
			return nil, err
		}
		if len(pipelines) != len(selector.IDs) {
			return nil, fmt.Errorf("%w: %d of %d requested pipelines",
				common.ErrNotFound, len(pipelines), len(selector.IDs))
		}
		for _, p := range pipelines {
			targets[p.QuarterlySheetID] = append(targets[p.QuarterlySheetID], p.ID)
		}
	}
	return targets, nil
}

func (e *Engine) reconcileSheet(ctx context.Context, sheet *model.QuarterlySheet, ids []string, dryRun bool) SheetReport {
	result := SheetReport{Sheet: *sheet}

	if !dryRun {
		ingest, err := e.syncer.Inbound(ctx, sheet)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Ingest = ingest
	}

	filter := service.PipelineFilter{SheetID: &sheet.ID}
	if ids != nil {
		filter = service.PipelineFilter{IDs: ids}
	}
	pipelines, err := e.storage.GetPipelines(ctx, filter)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	sync, err := e.syncer.Outbound(ctx, sheet, pipelines, dryRun)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Sync = sync
	return result
}

// Ingest pulls external edits from one sheet without writing anything back.
// Webhook-triggered syncs use this path.
func (e *Engine) Ingest(ctx context.Context, sheetID int64) (*service.IngestSummary, error) {
	sheet, err := e.storage.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	return e.syncer.Inbound(ctx, sheet)
}

// RegisterSheet adds a quarterly sheet to the registry. The document
// reference may be a full URL or a bare id; a webhook token is minted when
// the caller supplies none.
func (e *Engine) RegisterSheet(ctx context.Context, sheet *model.QuarterlySheet) error {
	docID, err := model.ParseDocumentRef(sheet.DocumentID)
	if err != nil {
		return common.NewValidationError("document_id", err.Error())
	}
	sheet.DocumentID = docID

	if sheet.SyncStatus == "" {
		sheet.SyncStatus = model.SyncActive
	}
	if sheet.WebhookToken == "" {
		sheet.WebhookToken = model.NewWebhookToken()
	}
	if err := sheet.Validate(); err != nil {
		return common.NewValidationError("sheet", err.Error())
	}
	return e.storage.CreateSheet(ctx, sheet)
}

// ListSheets returns every registered sheet with its pipeline count.
func (e *Engine) ListSheets(ctx context.Context) ([]model.QuarterlySheet, error) {
	return e.storage.ListSheets(ctx)
}

// SetSheetStatus updates a sheet's sync status and drops the cached copy.
func (e *Engine) SetSheetStatus(ctx context.Context, id int64, status model.SyncStatus) error {
	if !status.IsValid() {
		return common.NewValidationError("sync_status", "unknown status")
	}
	if err := e.storage.UpdateSheetStatus(ctx, id, status); err != nil {
		return err
	}
	e.cache.Invalidate(sheetCacheKey(id))
	return nil
}

// DeleteSheet removes a sheet and, by cascade, everything recorded against it.
func (e *Engine) DeleteSheet(ctx context.Context, id int64) error {
	if err := e.storage.DeleteSheet(ctx, id); err != nil {
		return err
	}
	e.cache.Invalidate(sheetCacheKey(id))
	return nil
}

// VerifyWebhookToken checks an edit-webhook credential in constant time.
func (e *Engine) VerifyWebhookToken(ctx context.Context, sheetID int64, token string) error {
	sheet, err := e.storage.GetSheet(ctx, sheetID)
	if err != nil {
		return err
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(sheet.WebhookToken), []byte(token)) != 1 {
		return common.NewValidationError("webhook_token", "invalid token")
	}
	return nil
}
