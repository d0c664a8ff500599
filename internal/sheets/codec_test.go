package sheets

import (
	"testing"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateSerialRoundTrip(t *testing.T) {
	dates := []time.Time{
		time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		assert.Equal(t, d, DecodeDate(EncodeDate(d)), "date %s", d)
	}

	// Day one of the serial scheme.
	assert.Equal(t, int64(1), EncodeDate(time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)))
	// Serials are whole days regardless of time of day.
	noon := time.Date(2025, 4, 1, 12, 30, 0, 0, time.UTC)
	midnight := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, EncodeDate(midnight), EncodeDate(noon))
}

func testPipeline() *model.Pipeline {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	actual := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	return &model.Pipeline{
		ID:                 "PL-001",
		Group:              model.GroupSales,
		Assignee:           "linh",
		Publisher:          "acme-games",
		Status:             model.StageDistributionStarted,
		StartingDate:       &start,
		ActualStartingDate: &actual,
		MaxGross:           decimal.NewNullDecimal(decimal.NewFromInt(3000)),
		RevenueShare:       decimal.NewNullDecimal(decimal.NewFromInt(50)),
		ProgressPercent:    decimal.NewNullDecimal(decimal.NewFromInt(80)),
		NextAction:         "schedule QBR",
		ActionNotes:        "waiting on creative",
	}
}

// rowFromCells lays encoded cells out as the raw row the document would hold.
func rowFromCells(cells map[Field]any, cmap ColumnMap) []string {
	row := make([]string, 26)
	for field, value := range cells {
		row[ColumnIndex(cmap.Columns[field])] = CellString(value)
	}
	return row
}

func TestRowRoundTrip(t *testing.T) {
	for _, flavor := range []Flavor{FlavorSales, FlavorCS} {
		t.Run(string(flavor), func(t *testing.T) {
			cmap := MapForFlavor(flavor)
			p := testPipeline()
			if flavor == FlavorCS {
				p.Group = model.GroupCS
				p.Zone = "APAC"
			}

			sheet := &model.QuarterlySheet{ID: 7, Group: p.Group}
			row := rowFromCells(EncodeCells(p, cmap), cmap)

			decoded, err := DecodeRow(row, cmap, sheet, 4)
			require.NoError(t, err)

			assert.Equal(t, p.ID, decoded.ID)
			assert.Equal(t, p.Assignee, decoded.Assignee)
			assert.Equal(t, p.Publisher, decoded.Publisher)
			assert.Equal(t, p.Status, decoded.Status)
			assert.Equal(t, p.Zone, decoded.Zone)
			assert.Equal(t, p.NextAction, decoded.NextAction)
			assert.Equal(t, p.ActionNotes, decoded.ActionNotes)
			require.NotNil(t, decoded.StartingDate)
			assert.Equal(t, *p.StartingDate, *decoded.StartingDate)
			require.NotNil(t, decoded.ActualStartingDate)
			assert.Equal(t, *p.ActualStartingDate, *decoded.ActualStartingDate)
			assert.Nil(t, decoded.CloseWonDate)
			require.True(t, decoded.ProgressPercent.Valid)
			assert.True(t, decoded.ProgressPercent.Decimal.Equal(p.ProgressPercent.Decimal))
			require.True(t, decoded.RevenueShare.Valid)
			assert.True(t, decoded.RevenueShare.Decimal.Equal(p.RevenueShare.Decimal))

			// Formula columns are recomputed locally, never read back.
			assert.False(t, decoded.MaxGross.Valid)
			assert.Equal(t, int64(4), *decoded.SheetRowNumber)
			assert.Equal(t, int64(7), decoded.QuarterlySheetID)
		})
	}
}

func TestEncodeCellsExcludesFormulaColumns(t *testing.T) {
	cmap := MapForFlavor(FlavorSales)
	cells := EncodeCells(testPipeline(), cmap)

	for field := range cmap.Excluded {
		_, present := cells[field]
		assert.False(t, present, "excluded field %s must not be encoded", field)
	}
}

func TestEncodeRowIsOrderedAndAddressed(t *testing.T) {
	cmap := MapForFlavor(FlavorSales)
	updates := EncodeRow(testPipeline(), cmap, "Sales Q1", 4)

	require.Len(t, updates, len(cmap.Columns))
	assert.Equal(t, "Sales Q1!B4", updates[0].Range)
	for i := 1; i < len(updates); i++ {
		assert.Less(t, updates[i-1].Range, updates[i].Range, "updates must be column ordered")
	}
	for _, update := range updates {
		require.Len(t, update.Values, 1)
		require.Len(t, update.Values[0], 1)
	}
}

func TestDecodeRowValidation(t *testing.T) {
	cmap := MapForFlavor(FlavorSales)
	sheet := &model.QuarterlySheet{ID: 1, Group: model.GroupSales}

	base := func() []string {
		return rowFromCells(EncodeCells(testPipeline(), cmap), cmap)
	}

	t.Run("missing required column", func(t *testing.T) {
		row := base()
		row[ColumnIndex(cmap.Columns[FieldPublisher])] = ""
		_, err := DecodeRow(row, cmap, sheet, 2)
		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, string(FieldPublisher), verr.Field)
	})

	t.Run("empty status defaults to exploration", func(t *testing.T) {
		row := base()
		row[ColumnIndex(cmap.Columns[FieldStatus])] = ""
		decoded, err := DecodeRow(row, cmap, sheet, 2)
		require.NoError(t, err)
		assert.Equal(t, model.StageExploration, decoded.Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		row := base()
		row[ColumnIndex(cmap.Columns[FieldStatus])] = "[Z] Mystery"
		_, err := DecodeRow(row, cmap, sheet, 2)
		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("unparseable date rejected", func(t *testing.T) {
		row := base()
		row[ColumnIndex(cmap.Columns[FieldStartingDate])] = "next tuesday"
		_, err := DecodeRow(row, cmap, sheet, 2)
		assert.Error(t, err)
	})

	t.Run("iso date accepted", func(t *testing.T) {
		row := base()
		row[ColumnIndex(cmap.Columns[FieldStartingDate])] = "2025-04-01"
		decoded, err := DecodeRow(row, cmap, sheet, 2)
		require.NoError(t, err)
		require.NotNil(t, decoded.StartingDate)
		assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), *decoded.StartingDate)
	})

	t.Run("thousands separators tolerated", func(t *testing.T) {
		row := base()
		row[ColumnIndex(cmap.Columns[FieldRevenueShare])] = "1,250.5"
		decoded, err := DecodeRow(row, cmap, sheet, 2)
		require.NoError(t, err)
		require.True(t, decoded.RevenueShare.Valid)
		assert.Equal(t, "1250.5", decoded.RevenueShare.Decimal.String())
	})
}

func TestColumnIndex(t *testing.T) {
	assert.Equal(t, 0, ColumnIndex("A"))
	assert.Equal(t, 1, ColumnIndex("B"))
	assert.Equal(t, 25, ColumnIndex("Z"))
	assert.Equal(t, 26, ColumnIndex("AA"))
	assert.Equal(t, 27, ColumnIndex("AB"))
}

func TestColumnMapsAreConsistent(t *testing.T) {
	for _, flavor := range []Flavor{FlavorSales, FlavorCS} {
		cmap := MapForFlavor(flavor)

		seen := map[string]Field{}
		for field, column := range cmap.Columns {
			if prev, dup := seen[column]; dup {
				t.Errorf("%s: column %s mapped to both %s and %s", flavor, column, prev, field)
			}
			seen[column] = field
		}
		for field, column := range cmap.Excluded {
			if prev, dup := seen[column]; dup {
				t.Errorf("%s: excluded column %s collides with %s", flavor, column, prev)
			}
			seen[column] = field
		}
		for _, field := range cmap.Required {
			_, ok := cmap.Columns[field]
			assert.True(t, ok, "%s: required field %s must be mapped", flavor, field)
		}
	}
}
