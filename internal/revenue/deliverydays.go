package revenue

import "time"

// defaultDeliveryDays is the per-month day count used when a pipeline has no
// starting date. February is resolved at call time for leap years.
var defaultDeliveryDays = map[int]int{
	1: 31, 2: 28, 3: 31, 4: 30, 5: 31, 6: 30,
	7: 31, 8: 31, 9: 30, 10: 31, 11: 30, 12: 31,
}

// IsLeapYear implements the Gregorian leap rule.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DeliveryDays computes the number of chargeable delivery days a pipeline has
// in the given month. With no starting date the full default month is
// chargeable. A month that ends before the starting date yields zero. The
// effective end is always the last day of the month: each month is
// self-terminating, there is no external end date.
func DeliveryDays(startingDate *time.Time, year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if startingDate == nil {
		if month == 2 && IsLeapYear(year) {
			return 29
		}
		return defaultDeliveryDays[month]
	}

	start := time.Date(startingDate.Year(), startingDate.Month(), startingDate.Day(), 0, 0, 0, 0, time.UTC)
	firstOfMonth := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)

	if lastOfMonth.Before(start) {
		return 0
	}

	effectiveStart := firstOfMonth
	if start.After(firstOfMonth) {
		effectiveStart = start
	}
	return int(lastOfMonth.Sub(effectiveStart).Hours()/24) + 1
}
