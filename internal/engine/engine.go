// Package engine orchestrates the pipeline lifecycle: field edits with their
// audit trail, the gated Won confirmation, revenue recomputation, and the
// reconcile runs that keep records and external sheets aligned.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/cache"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/revenue"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/stage"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/syncer"
)

// Engine is the lifecycle orchestrator. Every mutation funnels through it so
// derived revenue, forecasts, and the activity log stay consistent.
type Engine struct {
	storage service.Storage
	syncer  *syncer.Engine
	cache   cache.Cache
	now     func() time.Time
}

// Config holds the engine's injectable collaborators.
type Config struct {
	Cache cache.Cache
	Now   func() time.Time
}

// New creates an engine with default collaborators.
func New(storage service.Storage, sync *syncer.Engine) *Engine {
	return NewWithConfig(storage, sync, Config{})
}

// NewWithConfig creates an engine with custom collaborators.
func NewWithConfig(storage service.Storage, sync *syncer.Engine, config Config) *Engine {
	if config.Cache == nil {
		config.Cache = cache.None{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Engine{
		storage: storage,
		syncer:  sync,
		cache:   config.Cache,
		now:     config.Now,
	}
}

func sheetCacheKey(id int64) string {
	return fmt.Sprintf("sheet:%d", id)
}

// sheetForPipeline resolves a pipeline's registered sheet, caching lookups:
// sync runs hit the same sheet for every row.
func (e *Engine) sheetForPipeline(ctx context.Context, p *model.Pipeline) (*model.QuarterlySheet, error) {
	key := sheetCacheKey(p.QuarterlySheetID)
	if cached, ok := e.cache.Get(key); ok {
		if sheet, ok := cached.(*model.QuarterlySheet); ok {
			return sheet, nil
		}
	}

	sheet, err := e.storage.GetSheet(ctx, p.QuarterlySheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sheet %d: %w", p.QuarterlySheetID, err)
	}
	e.cache.Set(key, sheet)
	return sheet, nil
}

// GetPipeline loads one pipeline with its forecasts attached.
func (e *Engine) GetPipeline(ctx context.Context, id string) (*model.Pipeline, []model.MonthlyForecast, error) {
	p, err := e.storage.GetPipeline(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	forecasts, err := e.storage.GetForecasts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, forecasts, nil
}

// ListPipelines returns pipelines matching the filter.
func (e *Engine) ListPipelines(ctx context.Context, filter service.PipelineFilter) ([]model.Pipeline, error) {
	return e.storage.GetPipelines(ctx, filter)
}

// recompute rederives the financial fields for the current fiscal quarter and
// persists pipeline plus forecasts.
func (e *Engine) recompute(ctx context.Context, p *model.Pipeline) error {
	result := revenue.CalculateFromStart(revenue.Input{
		MaxGross:        p.MaxGross,
		RevenueShare:    p.RevenueShare,
		ProgressPercent: p.ProgressPercent,
		Status:          p.Status,
	}, p.StartingDate, e.now())
	result.ApplyTo(p)

	if err := e.storage.UpdatePipeline(ctx, p); err != nil {
		return err
	}
	return e.storage.ReplaceForecasts(ctx, p.ID, result.Forecasts(p.ID, p.StartingDate == nil))
}

// ConfirmTransition resolves the Distribution-Started confirmation: confirm
// promotes to Won behind the dwell gate, decline records the refusal without
// changing the stage.
func (e *Engine) ConfirmTransition(ctx context.Context, id string, confirm bool, notes, actor string) (*model.Pipeline, error) {
	p, err := e.storage.GetPipeline(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var entry *model.ActivityLogEntry
	if confirm {
		entry, err = stage.Confirm(p, now, notes, actor)
	} else {
		entry, err = stage.Decline(p, now, notes, actor)
	}
	if err != nil {
		return nil, err
	}

	if err := e.recompute(ctx, p); err != nil {
		return nil, err
	}
	if err := e.storage.AppendActivity(ctx, entry); err != nil {
		return nil, err
	}

	slog.Info("confirmation resolved",
		"pipeline_id", p.ID,
		"confirmed", confirm,
		"status", p.Status,
		"actor", actor)
	return p, nil
}

// AppendNote adds a free-form note to a pipeline's activity log.
func (e *Engine) AppendNote(ctx context.Context, id, note, actor string) (*model.ActivityLogEntry, error) {
	if note == "" {
		return nil, common.NewValidationError("notes", "note text is required")
	}
	if _, err := e.storage.GetPipeline(ctx, id); err != nil {
		return nil, err
	}

	entry := &model.ActivityLogEntry{
		PipelineID: id,
		Type:       model.ActivityNote,
		Notes:      note,
		LoggedBy:   actor,
		LoggedAt:   e.now(),
	}
	if err := e.storage.AppendActivity(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetActivity returns a pipeline's audit trail page plus the total count.
func (e *Engine) GetActivity(ctx context.Context, id string, filter service.ActivityFilter) ([]model.ActivityLogEntry, int, error) {
	if _, err := e.storage.GetPipeline(ctx, id); err != nil {
		return nil, 0, err
	}
	return e.storage.GetActivity(ctx, id, filter)
}

// Delete removes a pipeline and its dependents, then clears the external row.
// The row delete is best effort: local deletion is the source of truth, and a
// failure there only warns.
func (e *Engine) Delete(ctx context.Context, id string) error {
	p, err := e.storage.GetPipeline(ctx, id)
	if err != nil {
		return err
	}
	sheet, err := e.sheetForPipeline(ctx, p)
	if err != nil {
		return err
	}

	if err := e.storage.DeletePipeline(ctx, id); err != nil {
		return err
	}

	if err := e.syncer.DeleteExternalRow(ctx, sheet, p); err != nil {
		slog.Warn("failed to delete external row, continuing",
			"pipeline_id", id, "error", err)
	}
	return nil
}
