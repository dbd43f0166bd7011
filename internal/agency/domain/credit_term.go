package domain

import (
	"regexp"
	"strconv"
	"time"
)

var creditTermNumber = regexp.MustCompile(`\d+`)

// DueDates holds the settlement deadlines of a consumption.
type DueDates struct {
	DueDate       time.Time
	RebateDueDate time.Time
}

// CreditTermDay returns the first integer between 1 and 31 found in term.
func CreditTermDay(term string) (int, bool) {
	for _, raw := range creditTermNumber.FindAllString(term, -1) {
		day, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		if day >= 1 && day <= 31 {
			return day, true
		}
	}
	return 0, false
}

// ComputeDueDates applies a credit term to a consumption date.
// Consumption is due on day N of the following month, or on its last day when the
// term carries no day. Quarterly rebates fall due on the same day of the month after
// the quarter closes.
func ComputeDueDates(term string, period RebatePeriod, consumedAt time.Time) DueDates {
	consumedAt = consumedAt.UTC()
	day, ok := CreditTermDay(term)

	year, month := consumedAt.Year(), consumedAt.Month()
	due := dayOfMonth(year, month+1, day, ok)

	rebateDue := due
	if period == RebatePeriodQuarterly {
		quarterEnd := ((int(month)-1)/3)*3 + 3
		rebateDue = dayOfMonth(year, time.Month(quarterEnd+1), day, ok)
	}

	return DueDates{DueDate: due, RebateDueDate: rebateDue}
}

func dayOfMonth(year int, month time.Month, day int, hasDay bool) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if !hasDay || day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
