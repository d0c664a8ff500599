package stage

import (
	"testing"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 20, 14, 30, 0, 0, time.UTC)

func distributionStarted(daysAgo int) *model.Pipeline {
	start := now.AddDate(0, 0, -daysAgo)
	return &model.Pipeline{
		ID:                 "PL-001",
		Status:             model.StageDistributionStarted,
		ActualStartingDate: &start,
	}
}

func TestConfirmBeforeDwellFails(t *testing.T) {
	p := distributionStarted(6)

	entry, err := Confirm(p, now, "", "admin")
	require.Nil(t, entry)

	var gerr *common.GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1, gerr.DaysRemaining)

	// Nothing mutated on rejection.
	assert.Equal(t, model.StageDistributionStarted, p.Status)
	assert.Nil(t, p.CloseWonDate)
	assert.Equal(t, model.ConfirmationPending, p.ConfirmationStatus)
}

func TestConfirmAfterDwellSucceeds(t *testing.T) {
	p := distributionStarted(7)

	entry, err := Confirm(p, now, "all live", "admin")
	require.NoError(t, err)

	assert.Equal(t, model.StageWon, p.Status)
	// Close date is the actual confirmation day, never start + dwell.
	require.NotNil(t, p.CloseWonDate)
	assert.Equal(t, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), *p.CloseWonDate)
	assert.Equal(t, model.ConfirmationConfirmed, p.ConfirmationStatus)
	require.NotNil(t, p.ConfirmedAt)
	assert.Equal(t, now, *p.ConfirmedAt)
	assert.Equal(t, "all live", p.ConfirmationNotes)

	require.NotNil(t, entry)
	assert.Equal(t, model.ActivityStatusChange, entry.Type)
	assert.Equal(t, string(model.StageDistributionStarted), entry.OldValue)
	assert.Equal(t, string(model.StageWon), entry.NewValue)
}

func TestConfirmRequiresDistributionStarted(t *testing.T) {
	p := &model.Pipeline{ID: "PL-001", Status: model.StageAgreement}

	_, err := Confirm(p, now, "", "admin")
	var gerr *common.GateError
	require.ErrorAs(t, err, &gerr)
	assert.Zero(t, gerr.DaysRemaining)
}

func TestConfirmRequiresActualStartingDate(t *testing.T) {
	p := &model.Pipeline{ID: "PL-001", Status: model.StageDistributionStarted}

	_, err := Confirm(p, now, "", "admin")
	var gerr *common.GateError
	require.ErrorAs(t, err, &gerr)
}

func TestDwellUsesWholeDays(t *testing.T) {
	// 6 days and 23 hours elapsed still floors to 6.
	start := now.Add(-(6*24 + 23) * time.Hour)
	p := &model.Pipeline{
		ID:                 "PL-001",
		Status:             model.StageDistributionStarted,
		ActualStartingDate: &start,
	}

	_, err := Confirm(p, now, "", "admin")
	var gerr *common.GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1, gerr.DaysRemaining)
}

func TestDeclineIsNeverGated(t *testing.T) {
	p := distributionStarted(1)

	entry, err := Decline(p, now, "publisher delayed launch", "admin")
	require.NoError(t, err)

	// Status never changes on decline.
	assert.Equal(t, model.StageDistributionStarted, p.Status)
	assert.Equal(t, model.ConfirmationDeclined, p.ConfirmationStatus)
	require.NotNil(t, p.DeclinedAt)
	assert.Equal(t, "publisher delayed launch", p.ConfirmationNotes)

	require.NotNil(t, entry)
	assert.Equal(t, model.ActivityFieldUpdate, entry.Type)
	assert.Equal(t, "s_confirmation_status", entry.FieldChanged)
}

func TestDeclineRequiresDistributionStarted(t *testing.T) {
	p := &model.Pipeline{ID: "PL-001", Status: model.StageWon}

	_, err := Decline(p, now, "", "admin")
	var gerr *common.GateError
	require.ErrorAs(t, err, &gerr)
}

func TestConfirmationNotesAccumulate(t *testing.T) {
	p := distributionStarted(2)
	p.ConfirmationNotes = "first decline"

	_, err := Decline(p, now, "second decline", "admin")
	require.NoError(t, err)
	assert.Equal(t, "first decline\nsecond decline", p.ConfirmationNotes)
}
