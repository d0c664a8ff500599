// Package storage provides the data persistence layer backing the pipeline engine.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidEntity  = errors.New("invalid entity")
	ErrInvalidStage   = errors.New("invalid pipeline stage")
	ErrInvalidGroup   = errors.New("invalid business group")
	ErrInvalidSheet   = errors.New("invalid quarterly sheet")
	ErrInvalidEntry   = errors.New("invalid activity entry")
	ErrForecastsCount = errors.New("exactly three monthly forecasts are required")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePipeline validates a pipeline before it hits the database.
func validatePipeline(p *model.Pipeline) error {
	if p == nil {
		return fmt.Errorf("%w: pipeline", ErrNilParameter)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEntity)
	}
	if !p.Group.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidGroup, p.Group)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, p.Status)
	}
	if p.QuarterlySheetID == 0 {
		return fmt.Errorf("%w: missing quarterly sheet reference", ErrInvalidEntity)
	}
	return nil
}

// validateActivityEntry validates an activity-log entry before append.
func validateActivityEntry(entry *model.ActivityLogEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.PipelineID == "" {
		return fmt.Errorf("%w: missing pipeline ID", ErrInvalidEntry)
	}
	if !entry.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, entry.Type)
	}
	return nil
}
