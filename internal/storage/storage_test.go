package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedSheet(t *testing.T, store *SQLiteStorage, year, quarter int, group model.Group) *model.QuarterlySheet {
	t.Helper()

	sheet := &model.QuarterlySheet{
		Year:         year,
		Quarter:      quarter,
		Group:        group,
		DocumentID:   "doc-1",
		TabName:      "Pipeline",
		WebhookToken: model.NewWebhookToken(),
		SyncStatus:   model.SyncActive,
	}
	require.NoError(t, store.CreateSheet(context.Background(), sheet))
	return sheet
}

func makePipeline(id string, sheetID int64) *model.Pipeline {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return &model.Pipeline{
		ID:                 id,
		Group:              model.GroupSales,
		QuarterlySheetID:   sheetID,
		Assignee:           "linh",
		Publisher:          "acme-games",
		Status:             model.StageAgreement,
		StartingDate:       &start,
		MaxGross:           decimal.NewNullDecimal(decimal.NewFromInt(3000)),
		RevenueShare:       decimal.NewNullDecimal(decimal.NewFromInt(50)),
		ProgressPercent:    decimal.NewNullDecimal(decimal.NewFromInt(100)),
		ConfirmationStatus: model.ConfirmationPending,
		CreatedBy:          "tester",
		UpdatedBy:          "tester",
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestPipelineRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)

	p := makePipeline("PL-001", sheet.ID)
	p.Breakdown = &model.QuarterlyBreakdown{
		Months: [3]model.MonthRevenue{
			{Year: 2025, Month: 4, DeliveryDays: 30, Gross: decimal.NewFromInt(3000), Net: decimal.NewFromInt(1500)},
			{Year: 2025, Month: 5, DeliveryDays: 31, Gross: decimal.NewFromInt(3100), Net: decimal.NewFromInt(1550)},
			{Year: 2025, Month: 6, DeliveryDays: 30, Gross: decimal.NewFromInt(3000), Net: decimal.NewFromInt(1500)},
		},
	}
	p.QGross = decimal.NewFromInt(9100)
	p.QNetRev = decimal.NewFromInt(4550)
	require.NoError(t, store.CreatePipeline(ctx, p))

	got, err := store.GetPipeline(ctx, "PL-001")
	require.NoError(t, err)

	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, model.GroupSales, got.Group)
	assert.Equal(t, sheet.ID, got.QuarterlySheetID)
	assert.Equal(t, "acme-games", got.Publisher)
	assert.Equal(t, model.StageAgreement, got.Status)
	assert.Equal(t, model.ConfirmationPending, got.ConfirmationStatus)
	require.NotNil(t, got.StartingDate)
	assert.True(t, got.StartingDate.Equal(*p.StartingDate))
	require.True(t, got.MaxGross.Valid)
	assert.True(t, got.MaxGross.Decimal.Equal(decimal.NewFromInt(3000)))
	assert.True(t, got.QGross.Equal(decimal.NewFromInt(9100)))
	assert.True(t, got.QNetRev.Equal(decimal.NewFromInt(4550)))
	require.NotNil(t, got.Breakdown)
	assert.Equal(t, 5, got.Breakdown.Months[1].Month)
	assert.True(t, got.Breakdown.Months[1].Gross.Equal(decimal.NewFromInt(3100)))
	assert.Nil(t, got.SheetRowNumber)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreatePipelineRejectsDuplicates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)

	require.NoError(t, store.CreatePipeline(ctx, makePipeline("PL-001", sheet.ID)))
	err := store.CreatePipeline(ctx, makePipeline("PL-001", sheet.ID))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestCreatePipelineValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.CreatePipeline(ctx, nil), ErrNilParameter)

	p := makePipeline("", 1)
	assert.ErrorIs(t, store.CreatePipeline(ctx, p), ErrInvalidEntity)

	p = makePipeline("PL-001", 1)
	p.Group = "finance"
	assert.ErrorIs(t, store.CreatePipeline(ctx, p), ErrInvalidGroup)

	p = makePipeline("PL-001", 1)
	p.Status = "BOGUS"
	assert.ErrorIs(t, store.CreatePipeline(ctx, p), ErrInvalidStage)

	p = makePipeline("PL-001", 0)
	assert.ErrorIs(t, store.CreatePipeline(ctx, p), ErrInvalidEntity)
}

func TestGetPipelineNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetPipeline(context.Background(), "PL-missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetPipelinesFilters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sales := seedSheet(t, store, 2025, 1, model.GroupSales)
	cs := seedSheet(t, store, 2025, 1, model.GroupCS)

	for _, id := range []string{"PL-001", "PL-002", "PL-003"} {
		require.NoError(t, store.CreatePipeline(ctx, makePipeline(id, sales.ID)))
	}
	other := makePipeline("PL-900", cs.ID)
	other.Group = model.GroupCS
	require.NoError(t, store.CreatePipeline(ctx, other))

	t.Run("by sheet", func(t *testing.T) {
		got, err := store.GetPipelines(ctx, service.PipelineFilter{SheetID: &sales.ID})
		require.NoError(t, err)
		require.Len(t, got, 3)
		// Same insert timestamp, so id breaks the tie, newest id first.
		assert.Equal(t, "PL-003", got[0].ID)
		assert.Equal(t, "PL-001", got[2].ID)
	})

	t.Run("by ids", func(t *testing.T) {
		got, err := store.GetPipelines(ctx, service.PipelineFilter{IDs: []string{"PL-001", "PL-900"}})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "PL-900", got[0].ID)
		assert.Equal(t, "PL-001", got[1].ID)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := store.GetPipelines(ctx, service.PipelineFilter{SheetID: &sales.ID, Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "PL-002", got[0].ID)
		assert.Equal(t, "PL-001", got[1].ID)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := store.GetPipelines(ctx, service.PipelineFilter{IDs: []string{"PL-nope"}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUpdatePipeline(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)

	p := makePipeline("PL-001", sheet.ID)
	require.NoError(t, store.CreatePipeline(ctx, p))

	p.Publisher = "new-publisher"
	p.Status = model.StageDistributionStarted
	p.UpdatedBy = "editor"
	require.NoError(t, store.UpdatePipeline(ctx, p))

	got, err := store.GetPipeline(ctx, "PL-001")
	require.NoError(t, err)
	assert.Equal(t, "new-publisher", got.Publisher)
	assert.Equal(t, model.StageDistributionStarted, got.Status)
	assert.Equal(t, "editor", got.UpdatedBy)

	missing := makePipeline("PL-missing", sheet.ID)
	assert.ErrorIs(t, store.UpdatePipeline(ctx, missing), common.ErrNotFound)
}

func TestSetSheetRowNumber(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)
	require.NoError(t, store.CreatePipeline(ctx, makePipeline("PL-001", sheet.ID)))

	require.NoError(t, store.SetSheetRowNumber(ctx, "PL-001", 7))

	got, err := store.GetPipeline(ctx, "PL-001")
	require.NoError(t, err)
	require.NotNil(t, got.SheetRowNumber)
	assert.Equal(t, int64(7), *got.SheetRowNumber)

	assert.ErrorIs(t, store.SetSheetRowNumber(ctx, "PL-missing", 7), common.ErrNotFound)
}

func TestDeletePipelineCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)
	require.NoError(t, store.CreatePipeline(ctx, makePipeline("PL-001", sheet.ID)))

	require.NoError(t, store.ReplaceForecasts(ctx, "PL-001", quarterForecasts("PL-001")))
	require.NoError(t, store.AppendActivity(ctx, &model.ActivityLogEntry{
		PipelineID: "PL-001",
		Type:       model.ActivityNote,
		Notes:      "kickoff call done",
		LoggedBy:   "tester",
	}))

	require.NoError(t, store.DeletePipeline(ctx, "PL-001"))

	_, err := store.GetPipeline(ctx, "PL-001")
	assert.ErrorIs(t, err, common.ErrNotFound)

	forecasts, err := store.GetForecasts(ctx, "PL-001")
	require.NoError(t, err)
	assert.Empty(t, forecasts)

	entries, total, err := store.GetActivity(ctx, "PL-001", service.ActivityFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, total)

	assert.ErrorIs(t, store.DeletePipeline(ctx, "PL-001"), common.ErrNotFound)
}

func quarterForecasts(pipelineID string) []model.MonthlyForecast {
	return []model.MonthlyForecast{
		{PipelineID: pipelineID, Year: 2025, Month: 4, DeliveryDays: 30,
			GrossRevenue: decimal.NewFromInt(3000), NetRevenue: decimal.NewFromInt(1500), ValidationFlag: true},
		{PipelineID: pipelineID, Year: 2025, Month: 5, DeliveryDays: 31,
			GrossRevenue: decimal.NewFromInt(3100), NetRevenue: decimal.NewFromInt(1550), ValidationFlag: true},
		{PipelineID: pipelineID, Year: 2025, Month: 6, DeliveryDays: 30,
			GrossRevenue: decimal.NewFromInt(3000), NetRevenue: decimal.NewFromInt(1500), ValidationFlag: true},
	}
}

func TestReplaceForecasts(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)
	require.NoError(t, store.CreatePipeline(ctx, makePipeline("PL-001", sheet.ID)))

	err := store.ReplaceForecasts(ctx, "PL-001", quarterForecasts("PL-001")[:2])
	assert.ErrorIs(t, err, ErrForecastsCount)

	require.NoError(t, store.ReplaceForecasts(ctx, "PL-001", quarterForecasts("PL-001")))

	// A second replace swaps the rows wholesale.
	updated := quarterForecasts("PL-001")
	for i := range updated {
		updated[i].GrossRevenue = decimal.Zero
		updated[i].NetRevenue = decimal.Zero
		updated[i].ValidationFlag = false
	}
	require.NoError(t, store.ReplaceForecasts(ctx, "PL-001", updated))

	got, err := store.GetForecasts(ctx, "PL-001")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, f := range got {
		assert.Equal(t, 4+i, f.Month, "calendar order")
		assert.True(t, f.GrossRevenue.IsZero())
		assert.False(t, f.ValidationFlag)
		assert.NotZero(t, f.ID)
	}
}

func TestActivityLog(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)
	require.NoError(t, store.CreatePipeline(ctx, makePipeline("PL-001", sheet.ID)))

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []*model.ActivityLogEntry{
		{PipelineID: "PL-001", Type: model.ActivityNote, Notes: "first contact", LoggedBy: "linh", LoggedAt: base},
		{PipelineID: "PL-001", Type: model.ActivityStatusChange, FieldChanged: "status",
			OldValue: "AGREEMENT", NewValue: "DISTRIBUTION_STARTED", LoggedBy: "linh", LoggedAt: base.Add(time.Hour)},
		{PipelineID: "PL-001", Type: model.ActivityNote, Notes: "launch confirmed", LoggedBy: "admin", LoggedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendActivity(ctx, e))
		assert.NotZero(t, e.ID)
	}

	t.Run("newest first with total", func(t *testing.T) {
		got, total, err := store.GetActivity(ctx, "PL-001", service.ActivityFilter{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, got, 3)
		assert.Equal(t, "launch confirmed", got[0].Notes)
		assert.Equal(t, "first contact", got[2].Notes)
	})

	t.Run("paged", func(t *testing.T) {
		got, total, err := store.GetActivity(ctx, "PL-001", service.ActivityFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, got, 1)
		assert.Equal(t, model.ActivityStatusChange, got[0].Type)
	})

	t.Run("filtered by type", func(t *testing.T) {
		noteType := model.ActivityNote
		got, total, err := store.GetActivity(ctx, "PL-001", service.ActivityFilter{Type: &noteType})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, got, 2)
	})

	t.Run("defaulted timestamp", func(t *testing.T) {
		e := &model.ActivityLogEntry{PipelineID: "PL-001", Type: model.ActivityNote, Notes: "no clock", LoggedBy: "linh"}
		require.NoError(t, store.AppendActivity(ctx, e))

		got, _, err := store.GetActivity(ctx, "PL-001", service.ActivityFilter{})
		require.NoError(t, err)
		for _, entry := range got {
			if entry.ID == e.ID {
				assert.False(t, entry.LoggedAt.IsZero())
				return
			}
		}
		t.Fatal("appended entry not returned")
	})

	t.Run("rejects invalid entries", func(t *testing.T) {
		err := store.AppendActivity(ctx, &model.ActivityLogEntry{PipelineID: "PL-001", Type: "shouted"})
		assert.ErrorIs(t, err, ErrInvalidEntry)
		err = store.AppendActivity(ctx, &model.ActivityLogEntry{Type: model.ActivityNote})
		assert.ErrorIs(t, err, ErrInvalidEntry)
	})
}

func TestSheetRegistry(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	sheet := seedSheet(t, store, 2025, 1, model.GroupSales)
	assert.NotZero(t, sheet.ID)

	t.Run("duplicate quarter rejected", func(t *testing.T) {
		dup := &model.QuarterlySheet{
			Year: 2025, Quarter: 1, Group: model.GroupSales,
			DocumentID: "doc-2", TabName: "Other",
			WebhookToken: model.NewWebhookToken(), SyncStatus: model.SyncActive,
		}
		assert.ErrorIs(t, store.CreateSheet(ctx, dup), common.ErrDuplicateEntry)
	})

	t.Run("invalid sheet rejected", func(t *testing.T) {
		bad := &model.QuarterlySheet{Year: 2025, Quarter: 9, Group: model.GroupSales,
			DocumentID: "doc", TabName: "tab", SyncStatus: model.SyncActive}
		assert.ErrorIs(t, store.CreateSheet(ctx, bad), ErrInvalidSheet)
		assert.ErrorIs(t, store.CreateSheet(ctx, nil), ErrNilParameter)
	})

	t.Run("get", func(t *testing.T) {
		got, err := store.GetSheet(ctx, sheet.ID)
		require.NoError(t, err)
		assert.Equal(t, sheet.WebhookToken, got.WebhookToken)
		assert.Equal(t, model.SyncActive, got.SyncStatus)

		_, err = store.GetSheet(ctx, 999)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("list with counts", func(t *testing.T) {
		older := seedSheet(t, store, 2024, 4, model.GroupSales)
		require.NoError(t, store.CreatePipeline(ctx, makePipeline("PL-001", sheet.ID)))
		require.NoError(t, store.CreatePipeline(ctx, makePipeline("PL-002", sheet.ID)))

		sheets, err := store.ListSheets(ctx)
		require.NoError(t, err)
		require.Len(t, sheets, 2)
		// Newest quarter first.
		assert.Equal(t, sheet.ID, sheets[0].ID)
		assert.Equal(t, 2, sheets[0].PipelineCount)
		assert.Equal(t, older.ID, sheets[1].ID)
		assert.Equal(t, 0, sheets[1].PipelineCount)
	})

	t.Run("status transitions", func(t *testing.T) {
		require.NoError(t, store.UpdateSheetStatus(ctx, sheet.ID, model.SyncPaused))
		got, err := store.GetSheet(ctx, sheet.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SyncPaused, got.SyncStatus)

		assert.ErrorIs(t, store.UpdateSheetStatus(ctx, sheet.ID, "stopped"), ErrInvalidSheet)
		assert.ErrorIs(t, store.UpdateSheetStatus(ctx, 999, model.SyncActive), common.ErrNotFound)
	})

	t.Run("delete cascades through pipelines", func(t *testing.T) {
		require.NoError(t, store.ReplaceForecasts(ctx, "PL-001", quarterForecasts("PL-001")))
		require.NoError(t, store.AppendActivity(ctx, &model.ActivityLogEntry{
			PipelineID: "PL-001", Type: model.ActivityNote, Notes: "note", LoggedBy: "linh"}))

		require.NoError(t, store.DeleteSheet(ctx, sheet.ID))

		_, err := store.GetSheet(ctx, sheet.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = store.GetPipeline(ctx, "PL-001")
		assert.ErrorIs(t, err, common.ErrNotFound)
		forecasts, err := store.GetForecasts(ctx, "PL-001")
		require.NoError(t, err)
		assert.Empty(t, forecasts)

		assert.ErrorIs(t, store.DeleteSheet(ctx, sheet.ID), common.ErrNotFound)
	})
}
