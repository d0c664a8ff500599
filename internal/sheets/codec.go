package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/common"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"github.com/shopspring/decimal"
)

// sheetEpoch is day zero of the external document's native date encoding.
var sheetEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// EncodeDate converts a date to the document's day-serial integer.
func EncodeDate(t time.Time) int64 {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int64(day.Sub(sheetEpoch).Hours() / 24)
}

// DecodeDate converts a day-serial integer back to a date.
func DecodeDate(serial int64) time.Time {
	return sheetEpoch.AddDate(0, 0, int(serial))
}

// EncodeCells renders every writable field of a pipeline in external form:
// dates as day serials, money at 2 decimal places, integers whole, nil as the
// empty cell. Excluded formula columns never appear in the result.
func EncodeCells(p *model.Pipeline, cmap ColumnMap) map[Field]any {
	cells := map[Field]any{
		FieldID:          p.ID,
		FieldAssignee:    p.Assignee,
		FieldPublisher:   p.Publisher,
		FieldStatus:      p.Status.Label(),
		FieldNextAction:  p.NextAction,
		FieldActionNotes: p.ActionNotes,
	}

	if _, ok := cmap.Columns[FieldZone]; ok {
		cells[FieldZone] = p.Zone
	}

	encodeDatePtr := func(field Field, t *time.Time) {
		if t != nil {
			cells[field] = EncodeDate(*t)
		} else {
			cells[field] = ""
		}
	}
	encodeDatePtr(FieldStartingDate, p.StartingDate)
	encodeDatePtr(FieldActualStartingDate, p.ActualStartingDate)
	encodeDatePtr(FieldCloseWonDate, p.CloseWonDate)

	if p.ProgressPercent.Valid {
		cells[FieldProgressPercent] = p.ProgressPercent.Decimal.Round(0).IntPart()
	} else {
		cells[FieldProgressPercent] = ""
	}
	if p.RevenueShare.Valid {
		cells[FieldRevenueShare] = p.RevenueShare.Decimal.Round(2).InexactFloat64()
	} else {
		cells[FieldRevenueShare] = ""
	}

	monthly := [3]decimal.Decimal{}
	if p.Breakdown != nil {
		for i, m := range p.Breakdown.Months {
			monthly[i] = m.Gross
		}
	}
	cells[FieldMonth1Gross] = monthly[0].Round(2).InexactFloat64()
	cells[FieldMonth2Gross] = monthly[1].Round(2).InexactFloat64()
	cells[FieldMonth3Gross] = monthly[2].Round(2).InexactFloat64()
	cells[FieldQGross] = p.QGross.Round(2).InexactFloat64()

	return cells
}

// EncodeRow addresses the encoded cells for one external row as single-cell
// ranges, ready for one batched update.
func EncodeRow(p *model.Pipeline, cmap ColumnMap, tab string, row int64) []service.RangeValues {
	cells := EncodeCells(p, cmap)

	updates := make([]service.RangeValues, 0, len(cells))
	// Deterministic order keeps batches reproducible.
	for _, field := range orderedFields(cmap) {
		value, ok := cells[field]
		if !ok {
			continue
		}
		column := cmap.Columns[field]
		updates = append(updates, service.RangeValues{
			Range:  fmt.Sprintf("%s!%s%d", tab, column, row),
			Values: [][]any{{value}},
		})
	}
	return updates
}

// orderedFields returns the mapped fields sorted by column position.
func orderedFields(cmap ColumnMap) []Field {
	fields := make([]Field, 0, len(cmap.Columns))
	for field := range cmap.Columns {
		fields = append(fields, field)
	}
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && ColumnIndex(cmap.Columns[fields[j]]) < ColumnIndex(cmap.Columns[fields[j-1]]); j-- {
			fields[j], fields[j-1] = fields[j-1], fields[j]
		}
	}
	return fields
}

// CellString normalizes an encoded value for comparison against what the
// document currently holds.
func CellString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// cellAt returns the row cell under a column letter, or "" past the row end.
func cellAt(cells []string, column string) string {
	idx := ColumnIndex(column)
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// ValidateRow checks the structural minimum an inbound row must satisfy.
func ValidateRow(cells []string, cmap ColumnMap) error {
	for _, field := range cmap.Required {
		if cellAt(cells, cmap.Columns[field]) == "" {
			return common.NewValidationError(string(field), "required column is empty")
		}
	}
	return nil
}

// DecodeRow parses an external row into a pipeline record using the inverse
// of the column map. Excluded formula columns are skipped; their values are
// recomputed locally, never trusted from the sheet.
func DecodeRow(cells []string, cmap ColumnMap, sheet *model.QuarterlySheet, row int64) (*model.Pipeline, error) {
	if err := ValidateRow(cells, cmap); err != nil {
		return nil, err
	}

	p := &model.Pipeline{
		ID:               cellAt(cells, cmap.Columns[FieldID]),
		Group:            sheet.Group,
		QuarterlySheetID: sheet.ID,
		SheetRowNumber:   &row,
		Assignee:         cellAt(cells, cmap.Columns[FieldAssignee]),
		Publisher:        cellAt(cells, cmap.Columns[FieldPublisher]),
		NextAction:       cellAt(cells, cmap.Columns[FieldNextAction]),
		ActionNotes:      cellAt(cells, cmap.Columns[FieldActionNotes]),
	}
	if column, ok := cmap.Columns[FieldZone]; ok {
		p.Zone = cellAt(cells, column)
	}

	rawStatus := cellAt(cells, cmap.Columns[FieldStatus])
	if rawStatus == "" {
		p.Status = model.StageExploration
	} else {
		status, ok := model.ParseStage(rawStatus)
		if !ok {
			return nil, common.NewValidationError(string(FieldStatus),
				fmt.Sprintf("unrecognized stage %q", rawStatus))
		}
		p.Status = status
	}

	var err error
	if p.StartingDate, err = parseDateCell(cellAt(cells, cmap.Columns[FieldStartingDate])); err != nil {
		return nil, common.NewValidationError(string(FieldStartingDate), err.Error())
	}
	if p.ActualStartingDate, err = parseDateCell(cellAt(cells, cmap.Columns[FieldActualStartingDate])); err != nil {
		return nil, common.NewValidationError(string(FieldActualStartingDate), err.Error())
	}
	if p.CloseWonDate, err = parseDateCell(cellAt(cells, cmap.Columns[FieldCloseWonDate])); err != nil {
		return nil, common.NewValidationError(string(FieldCloseWonDate), err.Error())
	}

	if p.ProgressPercent, err = parseDecimalCell(cellAt(cells, cmap.Columns[FieldProgressPercent])); err != nil {
		return nil, common.NewValidationError(string(FieldProgressPercent), err.Error())
	}
	if p.RevenueShare, err = parseDecimalCell(cellAt(cells, cmap.Columns[FieldRevenueShare])); err != nil {
		return nil, common.NewValidationError(string(FieldRevenueShare), err.Error())
	}

	return p, nil
}

// parseDateCell accepts the native day-serial encoding or an ISO date.
func parseDateCell(cell string) (*time.Time, error) {
	if cell == "" {
		return nil, nil
	}
	if serial, err := strconv.ParseInt(cell, 10, 64); err == nil {
		t := DecodeDate(serial)
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", cell); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("unparseable date %q", cell)
}

// parseDecimalCell tolerates thousands separators in human-edited cells.
func parseDecimalCell(cell string) (decimal.NullDecimal, error) {
	if cell == "" {
		return decimal.NullDecimal{}, nil
	}
	cleaned := strings.ReplaceAll(cell, ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("unparseable number %q", cell)
	}
	return decimal.NewNullDecimal(d), nil
}
