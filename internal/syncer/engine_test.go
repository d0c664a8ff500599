package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/sheets"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) (*Engine, *storage.SQLiteStorage, *sheets.MockAPI) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	api := sheets.NewMockAPI()
	config := DefaultConfig()
	config.WriteDelay = 0
	config.Now = func() time.Time {
		return time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	}
	return New(store, api, config), store, api
}

func testSheet(t *testing.T, store *storage.SQLiteStorage) *model.QuarterlySheet {
	t.Helper()
	sheet := &model.QuarterlySheet{
		Year:         2025,
		Quarter:      1,
		Group:        model.GroupSales,
		DocumentID:   "doc-fy25q1",
		TabName:      "Sales Q1",
		WebhookToken: model.NewWebhookToken(),
		SyncStatus:   model.SyncActive,
	}
	require.NoError(t, store.CreateSheet(context.Background(), sheet))
	return sheet
}

func testPipeline(t *testing.T, store *storage.SQLiteStorage, sheet *model.QuarterlySheet, id string) model.Pipeline {
	t.Helper()
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	p := model.Pipeline{
		ID:               id,
		Group:            sheet.Group,
		QuarterlySheetID: sheet.ID,
		Assignee:         "linh",
		Publisher:        "acme-games",
		Status:           model.StageAgreement,
		StartingDate:     &start,
		MaxGross:         decimal.NewNullDecimal(decimal.NewFromInt(3000)),
		RevenueShare:     decimal.NewNullDecimal(decimal.NewFromInt(50)),
		ProgressPercent:  decimal.NewNullDecimal(decimal.NewFromInt(100)),
		CreatedBy:        "test",
		UpdatedBy:        "test",
	}
	require.NoError(t, store.CreatePipeline(context.Background(), &p))
	return p
}

func seedHeader(api *sheets.MockAPI, sheet *model.QuarterlySheet) {
	api.SeedTab(sheet.DocumentID, sheet.TabName, [][]string{
		{"key", "ID", "Assignee", "Publisher", "Status"},
	})
}

func TestOutboundWritesAndAllocatesRows(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	seedHeader(api, sheet)
	p1 := testPipeline(t, store, sheet, "PL-001")
	p2 := testPipeline(t, store, sheet, "PL-002")

	summary, err := engine.Outbound(ctx, sheet, []model.Pipeline{p1, p2}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 0, summary.Failed)

	rows := api.Rows(sheet.DocumentID, sheet.TabName)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "PL-001", rows[1][sheets.ColumnIndex("B")])
	assert.Equal(t, "PL-002", rows[2][sheets.ColumnIndex("B")])
	assert.Equal(t, "[A] Agreement", rows[1][sheets.ColumnIndex("E")])

	// Allocation is persisted so later deletes can find the row.
	got, err := store.GetPipeline(ctx, "PL-001")
	require.NoError(t, err)
	require.NotNil(t, got.SheetRowNumber)
	assert.Equal(t, int64(2), *got.SheetRowNumber)
}

func TestOutboundIsIdempotent(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	seedHeader(api, sheet)
	p := testPipeline(t, store, sheet, "PL-001")

	_, err := engine.Outbound(ctx, sheet, []model.Pipeline{p}, false)
	require.NoError(t, err)
	api.ResetCounters()

	_, err = engine.Outbound(ctx, sheet, []model.Pipeline{p}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, api.ChangedCells, "unchanged pipeline must not change any cell")
}

func TestOutboundReusesExistingRow(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	// Human moved the pipeline's row down to 5 between runs.
	api.SeedTab(sheet.DocumentID, sheet.TabName, [][]string{
		{"key", "ID"},
		{},
		{},
		{},
		{"", "PL-001"},
	})
	p := testPipeline(t, store, sheet, "PL-001")

	summary, err := engine.Outbound(ctx, sheet, []model.Pipeline{p}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)

	rows := api.Rows(sheet.DocumentID, sheet.TabName)
	assert.Equal(t, "PL-001", rows[4][sheets.ColumnIndex("B")])
}

func TestOutboundSkipsInactiveSheets(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	seedHeader(api, sheet)
	p := testPipeline(t, store, sheet, "PL-001")

	for _, status := range []model.SyncStatus{model.SyncPaused, model.SyncArchived} {
		sheet.SyncStatus = status
		summary, err := engine.Outbound(ctx, sheet, []model.Pipeline{p}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 0, summary.Written)
		assert.Equal(t, 0, api.UpdateCalls)
	}
}

func TestOutboundDryRunReportsDiffsWithoutWriting(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	seedHeader(api, sheet)
	p := testPipeline(t, store, sheet, "PL-001")

	summary, err := engine.Outbound(ctx, sheet, []model.Pipeline{p}, true)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 0, summary.Written)
	assert.NotEmpty(t, summary.Diffs)
	assert.Equal(t, 0, api.UpdateCalls)

	// Dry runs must not reserve rows in the store either.
	got, err := store.GetPipeline(ctx, "PL-001")
	require.NoError(t, err)
	assert.Nil(t, got.SheetRowNumber)
}

func TestOutboundToleratesPerPipelineFailures(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	seedHeader(api, sheet)
	p := testPipeline(t, store, sheet, "PL-001")

	api.FailOnUpdate = assert.AnError
	engine.config.Retry.MaxAttempts = 1

	summary, err := engine.Outbound(ctx, sheet, []model.Pipeline{p}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Issues, 1)
	assert.Equal(t, "PL-001", summary.Issues[0].PipelineID)
}

func TestInboundImportsAndRejectsPerRow(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	good := make([]string, 20)
	good[sheets.ColumnIndex("B")] = "PL-100"
	good[sheets.ColumnIndex("C")] = "minh"
	good[sheets.ColumnIndex("D")] = "puzzle-co"
	good[sheets.ColumnIndex("E")] = "[I] Interest"
	good[sheets.ColumnIndex("I")] = "80"
	good[sheets.ColumnIndex("M")] = "45"

	missingPublisher := make([]string, 20)
	missingPublisher[sheets.ColumnIndex("B")] = "PL-101"
	missingPublisher[sheets.ColumnIndex("C")] = "minh"

	api.SeedTab(sheet.DocumentID, sheet.TabName, [][]string{
		{"key", "ID"},
		good,
		missingPublisher,
	})

	summary, err := engine.Inbound(ctx, sheet)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Rejected)
	require.Len(t, summary.Issues, 1)
	assert.Equal(t, int64(3), summary.Issues[0].Row)

	got, err := store.GetPipeline(ctx, "PL-100")
	require.NoError(t, err)
	assert.Equal(t, model.StageInterest, got.Status)
	assert.Equal(t, "minh", got.Assignee)
	assert.Equal(t, SyncActor, got.CreatedBy)

	forecasts, err := store.GetForecasts(ctx, "PL-100")
	require.NoError(t, err)
	assert.Len(t, forecasts, 3)

	_, err = store.GetPipeline(ctx, "PL-101")
	assert.Error(t, err)
}

func TestInboundMergePreservesStoredFinancials(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	existing := testPipeline(t, store, sheet, "PL-001")

	row := make([]string, 20)
	row[sheets.ColumnIndex("B")] = "PL-001"
	row[sheets.ColumnIndex("C")] = "new-owner"
	row[sheets.ColumnIndex("D")] = "acme-games"
	row[sheets.ColumnIndex("E")] = "[I+] Strong Interest"
	row[sheets.ColumnIndex("I")] = "60"
	row[sheets.ColumnIndex("M")] = "50"
	api.SeedTab(sheet.DocumentID, sheet.TabName, [][]string{
		{"key", "ID"},
		row,
	})

	summary, err := engine.Inbound(ctx, sheet)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)

	got, err := store.GetPipeline(ctx, "PL-001")
	require.NoError(t, err)
	assert.Equal(t, "new-owner", got.Assignee)
	assert.Equal(t, model.StageStrongInterest, got.Status)
	// Max gross lives behind an excluded formula column; the stored input
	// must survive the merge and drive the recompute.
	require.True(t, got.MaxGross.Valid)
	assert.True(t, existing.MaxGross.Decimal.Equal(got.MaxGross.Decimal))
	require.True(t, got.DayGross.Valid)
	assert.True(t, got.DayGross.Decimal.Equal(decimal.NewFromInt(100)))

	entries, total, err := store.GetActivity(ctx, "PL-001", service.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, SyncActor, entries[0].LoggedBy)
}

func TestInboundSkipsPausedSheet(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	seedHeader(api, sheet)
	sheet.SyncStatus = model.SyncPaused

	summary, err := engine.Inbound(ctx, sheet)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Rows)
}

func TestDeleteExternalRow(t *testing.T) {
	engine, store, api := testEngine(t)
	ctx := context.Background()

	sheet := testSheet(t, store)
	seedHeader(api, sheet)
	p := testPipeline(t, store, sheet, "PL-001")

	_, err := engine.Outbound(ctx, sheet, []model.Pipeline{p}, false)
	require.NoError(t, err)

	got, err := store.GetPipeline(ctx, "PL-001")
	require.NoError(t, err)
	require.NoError(t, engine.DeleteExternalRow(ctx, sheet, got))
	assert.Equal(t, 1, api.DeleteCalls)

	rows := api.Rows(sheet.DocumentID, sheet.TabName)
	for _, r := range rows {
		if sheets.ColumnIndex("B") < len(r) {
			assert.NotEqual(t, "PL-001", r[sheets.ColumnIndex("B")])
		}
	}
}
