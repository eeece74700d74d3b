package mora

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH KEY - Calendar-month identity ("YYYY-MM")
// =============================================================================

// MonthKey identifies a calendar month in "YYYY-MM" form. It is the lookup
// key for CCP-UDIS rate tables and the label on every ledger row.
type MonthKey string

// MonthKeyOf returns the MonthKey for the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// NewMonthKey builds a MonthKey from a year and month.
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// ParseMonthKey parses a "YYYY-MM" string into a MonthKey, validating it.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("invalid month key %q: %w", s, err)
	}
	return MonthKeyOf(t), nil
}

// Time returns the first day of the month, at UTC midnight.
func (mk MonthKey) Time() time.Time {
	t, err := time.Parse("2006-01", string(mk))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Prev returns the previous calendar month, rolling the year at January.
func (mk MonthKey) Prev() MonthKey {
	t := mk.Time()
	return MonthKeyOf(t.AddDate(0, -1, 0))
}

// Next returns the following calendar month.
func (mk MonthKey) Next() MonthKey {
	t := mk.Time()
	return MonthKeyOf(t.AddDate(0, 1, 0))
}

// Index returns year*12 + month, a total order usable for distance checks.
func (mk MonthKey) Index() int {
	t := mk.Time()
	return t.Year()*12 + int(t.Month())
}

func (mk MonthKey) String() string { return string(mk) }

// =============================================================================
// DATE UTILITIES
// =============================================================================

// Date builds a UTC day-granularity time. All engine dates are UTC midnights.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to a UTC midnight.
func DayOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// DaysInMonth returns the number of days in the given calendar month.
func DaysInMonth(year int, month time.Month) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}

// MonthStart returns the first day of the month containing t.
func MonthStart(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), 1)
}

// MonthEnd returns the last day of the month containing t.
func MonthEnd(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()))
}

// CountDays counts the days between two dates. With inclusive=true both
// endpoints count, so CountDays(d, d, true) == 1.
//
// Note: the monthly partitioner always counts inclusively; the exclusive
// variant exists for callers that need an open interval.
func CountDays(start, end time.Time, inclusive bool) int {
	days := int(DayOf(end).Sub(DayOf(start)).Hours() / 24)
	if inclusive {
		days++
	}
	return days
}
