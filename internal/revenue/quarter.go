// Package revenue implements the calendar and money math that derives a
// pipeline's financial fields from its inputs. All functions here are total:
// missing or invalid inputs degrade to null or zero, never to an error.
package revenue

import "time"

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month int
}

// FiscalQuarter returns the fiscal year and quarter containing t. Quarters
// run Apr-Jun (1), Jul-Sep (2), Oct-Dec (3), Jan-Mar (4); January through
// March belong to the fiscal year that started the previous April.
func FiscalQuarter(t time.Time) (year, quarter int) {
	switch m := int(t.Month()); {
	case m >= 4 && m <= 6:
		return t.Year(), 1
	case m >= 7 && m <= 9:
		return t.Year(), 2
	case m >= 10:
		return t.Year(), 3
	default:
		return t.Year() - 1, 4
	}
}

// QuarterMonths returns the three calendar months of the given fiscal
// quarter. For quarter 4 the calendar year rolls past the fiscal year-end.
func QuarterMonths(fiscalYear, quarter int) [3]YearMonth {
	var first int
	year := fiscalYear
	switch quarter {
	case 1:
		first = 4
	case 2:
		first = 7
	case 3:
		first = 10
	default:
		first = 1
		year = fiscalYear + 1
	}
	return [3]YearMonth{
		{Year: year, Month: first},
		{Year: year, Month: first + 1},
		{Year: year, Month: first + 2},
	}
}
