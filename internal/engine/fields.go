package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/shopspring/decimal"
)

// FieldPatch carries a partial pipeline update. Nil pointers leave the field
// untouched; the Clear flags turn a date field back to null, which a nil
// pointer cannot express.
type FieldPatch struct {
	Assignee  *string
	Publisher *string
	Zone      *string

	Status *model.Stage

	StartingDate            *time.Time
	ClearStartingDate       bool
	ActualStartingDate      *time.Time
	ClearActualStartingDate bool

	MaxGross        *decimal.NullDecimal
	RevenueShare    *decimal.NullDecimal
	ProgressPercent *decimal.NullDecimal

	NextAction  *string
	ActionNotes *string
}

// fieldChange records one applied patch field for the audit trail.
type fieldChange struct {
	field    string
	oldValue string
	newValue string
}

// UpdateFields applies a patch to a pipeline, recomputes the derived revenue,
// and appends one field_update entry per changed field. Won may not be set
// through a plain edit; that transition belongs to the confirmation gate.
func (e *Engine) UpdateFields(ctx context.Context, id string, patch FieldPatch, actor string) (*model.Pipeline, error) {
	p, err := e.storage.GetPipeline(ctx, id)
	if err != nil {
		return nil, err
	}

	changes, err := applyPatch(p, patch, e.now())
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return p, nil
	}
	p.UpdatedBy = actor

	if err := e.recompute(ctx, p); err != nil {
		return nil, err
	}

	now := e.now()
	for _, change := range changes {
		entryType := model.ActivityFieldUpdate
		if change.field == "status" {
			entryType = model.ActivityStatusChange
		}
		entry := &model.ActivityLogEntry{
			PipelineID:   p.ID,
			Type:         entryType,
			FieldChanged: change.field,
			OldValue:     change.oldValue,
			NewValue:     change.newValue,
			LoggedBy:     actor,
			LoggedAt:     now,
		}
		if err := e.storage.AppendActivity(ctx, entry); err != nil {
			return nil, err
		}
	}

	slog.Info("pipeline updated",
		"pipeline_id", p.ID,
		"fields", len(changes),
		"actor", actor)
	return p, nil
}

func applyPatch(p *model.Pipeline, patch FieldPatch, now time.Time) ([]fieldChange, error) {
	var changes []fieldChange

	applyString := func(field string, target *string, value *string) {
		if value == nil || *value == *target {
			return
		}
		changes = append(changes, fieldChange{field, *target, *value})
		*target = *value
	}
	applyString("assignee", &p.Assignee, patch.Assignee)
	applyString("publisher", &p.Publisher, patch.Publisher)
	applyString("zone", &p.Zone, patch.Zone)
	applyString("next_action", &p.NextAction, patch.NextAction)
	applyString("action_notes", &p.ActionNotes, patch.ActionNotes)

	if patch.Status != nil && *patch.Status != p.Status {
		next := *patch.Status
		if !next.IsValid() {
			return nil, common.NewValidationError("status", "unknown stage")
		}
		if next == model.StageWon {
			return nil, common.NewValidationError("status",
				"won is only reachable through the confirmation endpoint")
		}
		changes = append(changes, fieldChange{"status", string(p.Status), string(next)})
		p.Status = next

		// Entering Distribution-Started opens a fresh confirmation window.
		if next == model.StageDistributionStarted {
			if p.ActualStartingDate == nil {
				today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
				p.ActualStartingDate = &today
				changes = append(changes, fieldChange{"actual_starting_date", "", formatDate(&today)})
			}
			p.ConfirmationStatus = model.ConfirmationPending
			p.ConfirmedAt = nil
			p.DeclinedAt = nil
		}
	}

	applyDate := func(field string, target **time.Time, value *time.Time, clear bool) {
		switch {
		case clear:
			if *target == nil {
				return
			}
			changes = append(changes, fieldChange{field, formatDate(*target), ""})
			*target = nil
		case value != nil:
			if *target != nil && (*target).Equal(*value) {
				return
			}
			changes = append(changes, fieldChange{field, formatDate(*target), formatDate(value)})
			*target = value
		}
	}
	applyDate("starting_date", &p.StartingDate, patch.StartingDate, patch.ClearStartingDate)
	applyDate("actual_starting_date", &p.ActualStartingDate, patch.ActualStartingDate, patch.ClearActualStartingDate)

	applyDecimal := func(field string, target *decimal.NullDecimal, value *decimal.NullDecimal) error {
		if value == nil {
			return nil
		}
		if value.Valid && value.Decimal.IsNegative() {
			return common.NewValidationError(field, "must not be negative")
		}
		if nullDecimalEqual(*target, *value) {
			return nil
		}
		changes = append(changes, fieldChange{field, formatDecimal(*target), formatDecimal(*value)})
		*target = *value
		return nil
	}
	if err := applyDecimal("max_gross", &p.MaxGross, patch.MaxGross); err != nil {
		return nil, err
	}
	if err := applyDecimal("revenue_share", &p.RevenueShare, patch.RevenueShare); err != nil {
		return nil, err
	}
	if err := applyDecimal("progress_percent", &p.ProgressPercent, patch.ProgressPercent); err != nil {
		return nil, err
	}

	return changes, nil
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
