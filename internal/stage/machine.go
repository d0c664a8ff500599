// Package stage enforces the gated portion of the pipeline stage machine.
// Only one transition is restricted: Distribution-Started may become Won
// solely through an explicit confirmation after a minimum dwell time. Every
// other stage change is a plain business edit handled by the caller.
package stage

import (
	"fmt"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
)

// MinDwellDays is the minimum number of whole days a pipeline must spend in
// Distribution-Started before it can be confirmed Won.
const MinDwellDays = 7

// elapsedDays returns the floor of (now - start) in days.
func elapsedDays(start, now time.Time) int {
	return int(now.Sub(start).Hours() / 24)
}

// Confirm promotes a Distribution-Started pipeline to Won. On success the
// close-won date is the actual confirmation date, never a projected one.
// Returns the activity entry the caller must append; on a GateError nothing
// is mutated.
func Confirm(p *model.Pipeline, now time.Time, notes, actor string) (*model.ActivityLogEntry, error) {
	if p.Status != model.StageDistributionStarted {
		return nil, &common.GateError{
			Reason: fmt.Sprintf("confirmation requires status %s, current status is %s",
				model.StageDistributionStarted, p.Status),
		}
	}
	if p.ActualStartingDate == nil {
		return nil, &common.GateError{Reason: "actual starting date is not set"}
	}
	if elapsed := elapsedDays(*p.ActualStartingDate, now); elapsed < MinDwellDays {
		return nil, &common.GateError{
			Reason:        "minimum waiting period not met",
			DaysRemaining: MinDwellDays - elapsed,
		}
	}

	oldStatus := p.Status
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	p.Status = model.StageWon
	p.CloseWonDate = &today
	p.ConfirmationStatus = model.ConfirmationConfirmed
	p.ConfirmedAt = &now
	if notes != "" {
		p.ConfirmationNotes = appendNotes(p.ConfirmationNotes, notes)
	}
	p.UpdatedBy = actor

	return &model.ActivityLogEntry{
		PipelineID:   p.ID,
		Type:         model.ActivityStatusChange,
		FieldChanged: "status",
		OldValue:     string(oldStatus),
		NewValue:     string(p.Status),
		Notes:        notes,
		LoggedBy:     actor,
		LoggedAt:     now,
	}, nil
}

// Decline records a declined confirmation. It is allowed at any time while
// the pipeline is in Distribution-Started and never changes the status.
func Decline(p *model.Pipeline, now time.Time, notes, actor string) (*model.ActivityLogEntry, error) {
	if p.Status != model.StageDistributionStarted {
		return nil, &common.GateError{
			Reason: fmt.Sprintf("decline requires status %s, current status is %s",
				model.StageDistributionStarted, p.Status),
		}
	}

	p.ConfirmationStatus = model.ConfirmationDeclined
	p.DeclinedAt = &now
	if notes != "" {
		p.ConfirmationNotes = appendNotes(p.ConfirmationNotes, notes)
	}
	p.UpdatedBy = actor

	return &model.ActivityLogEntry{
		PipelineID:   p.ID,
		Type:         model.ActivityFieldUpdate,
		FieldChanged: "s_confirmation_status",
		OldValue:     string(model.ConfirmationPending),
		NewValue:     string(model.ConfirmationDeclined),
		Notes:        notes,
		LoggedBy:     actor,
		LoggedAt:     now,
	}, nil
}

func appendNotes(existing, added string) string {
	if existing == "" {
		return added
	}
	return existing + "\n" + added
}
