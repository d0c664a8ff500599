package sheets

import (
	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/model"
)

// Flavor selects which column layout an external tab uses. The two business
// groups keep separate sheet templates that share most columns but diverge in
// a few places.
type Flavor string

// Supported flavors.
const (
	FlavorSales Flavor = "sales"
	FlavorCS    Flavor = "cs"
)

// FlavorForGroup maps a business group to its sheet flavor.
func FlavorForGroup(g model.Group) Flavor {
	if g == model.GroupCS {
		return FlavorCS
	}
	return FlavorSales
}

// Field names a pipeline attribute as the column map knows it. Fields are the
// single vocabulary both sync directions translate through.
type Field string

// Mapped fields.
const (
	FieldRowKey             Field = "row_key"
	FieldID                 Field = "id"
	FieldAssignee           Field = "assignee"
	FieldPublisher          Field = "publisher"
	FieldStatus             Field = "status"
	FieldStartingDate       Field = "starting_date"
	FieldActualStartingDate Field = "actual_starting_date"
	FieldCloseWonDate       Field = "close_won_date"
	FieldProgressPercent    Field = "progress_percent"
	FieldMaxGross           Field = "max_gross"
	FieldDayGross           Field = "day_gross"
	FieldDayNetRev          Field = "day_net_rev"
	FieldRevenueShare       Field = "revenue_share"
	FieldMonth1Gross        Field = "month1_gross"
	FieldMonth2Gross        Field = "month2_gross"
	FieldMonth3Gross        Field = "month3_gross"
	FieldQGross             Field = "q_gross"
	FieldZone               Field = "zone"
	FieldNextAction         Field = "next_action"
	FieldActionNotes        Field = "action_notes"
)

// ColumnMap is the versioned translation artifact for one flavor. It is the
// single source of truth for both sync directions; sheet template changes are
// made here, never in the sync logic.
type ColumnMap struct {
	Version int
	Flavor  Flavor
	// Columns maps writable fields to column letters.
	Columns map[Field]string
	// Excluded names the formula-bearing columns. They are located for
	// reading context but must never be written: the external document owns
	// their formulas, and their values are recomputed locally on ingest.
	Excluded map[Field]string
	// Required lists the columns a row must fill to be structurally valid.
	Required []Field
}

// salesColumnsV1 is the Sales tab layout. Column A carries the concatenated
// row key formula; J through L hold the sheet-side money formulas.
var salesColumnsV1 = ColumnMap{
	Version: 1,
	Flavor:  FlavorSales,
	Columns: map[Field]string{
		FieldID:                 "B",
		FieldAssignee:           "C",
		FieldPublisher:          "D",
		FieldStatus:             "E",
		FieldStartingDate:       "F",
		FieldActualStartingDate: "G",
		FieldCloseWonDate:       "H",
		FieldProgressPercent:    "I",
		FieldRevenueShare:       "M",
		FieldMonth1Gross:        "N",
		FieldMonth2Gross:        "O",
		FieldMonth3Gross:        "P",
		FieldQGross:             "Q",
		FieldNextAction:         "R",
		FieldActionNotes:        "S",
	},
	Excluded: map[Field]string{
		FieldRowKey:    "A",
		FieldMaxGross:  "J",
		FieldDayGross:  "K",
		FieldDayNetRev: "L",
	},
	Required: []Field{FieldID, FieldAssignee, FieldPublisher},
}

// csColumnsV1 is the CS tab layout. It swaps the two status-change date
// columns relative to Sales and carries a zone column where Sales starts its
// free-text action fields.
var csColumnsV1 = ColumnMap{
	Version: 1,
	Flavor:  FlavorCS,
	Columns: map[Field]string{
		FieldID:                 "B",
		FieldAssignee:           "C",
		FieldPublisher:          "D",
		FieldStatus:             "E",
		FieldStartingDate:       "F",
		FieldCloseWonDate:       "G",
		FieldActualStartingDate: "H",
		FieldProgressPercent:    "I",
		FieldRevenueShare:       "M",
		FieldMonth1Gross:        "N",
		FieldMonth2Gross:        "O",
		FieldMonth3Gross:        "P",
		FieldQGross:             "Q",
		FieldZone:               "R",
		FieldNextAction:         "S",
		FieldActionNotes:        "T",
	},
	Excluded: map[Field]string{
		FieldRowKey:    "A",
		FieldMaxGross:  "J",
		FieldDayGross:  "K",
		FieldDayNetRev: "L",
	},
	Required: []Field{FieldID, FieldAssignee, FieldPublisher},
}

// MapForFlavor returns the current column map for a flavor.
func MapForFlavor(f Flavor) ColumnMap {
	if f == FlavorCS {
		return csColumnsV1
	}
	return salesColumnsV1
}

// IDColumn is where the sync engine scans for pipeline identifiers.
func (m ColumnMap) IDColumn() string {
	return m.Columns[FieldID]
}

// ColumnIndex converts a column letter to its zero-based index.
func ColumnIndex(column string) int {
	index := 0
	for _, c := range column {
		index = index*26 + int(c-'A') + 1
	}
	return index - 1
}
