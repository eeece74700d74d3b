/*
period.go - Calendar-month partitioning of a mora interval

PURPOSE:
  Splits the [t0, tf] mora interval into calendar-month segments. Each
  segment carries an inclusive day count; the accrual engine applies one
  CCP-UDIS rate per segment.

INVARIANTS:
  - Segments are contiguous, non-overlapping and ordered ascending.
  - The union of all segments is exactly [t0, tf].
  - Day counts are inclusive of both endpoints, so they sum to
    CountDays(t0, tf, true).

EXAMPLE:
  PartitionByMonth(2023-12-15, 2024-01-10) yields:
    {2023-12, 2023-12-15, 2023-12-31, 17 days}
    {2024-01, 2024-01-01, 2024-01-10, 10 days}

SEE ALSO:
  - engine.go: Consumes the partition, one growth factor per Period
  - time.go:   MonthKey and day-count helpers
*/
package mora

import "time"

// Period is one calendar-month segment of the mora interval.
// Created by PartitionByMonth and never mutated afterwards.
type Period struct {
	Month MonthKey
	Start time.Time
	End   time.Time
	Days  int
}

// PartitionByMonth splits [start, end] into calendar-month periods with
// inclusive day counts. Returns an InvalidRangeError if start is after end.
func PartitionByMonth(start, end time.Time) ([]Period, error) {
	start, end = DayOf(start), DayOf(end)
	if start.After(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}

	var periods []Period
	current := start
	for !current.After(end) {
		periodEnd := MonthEnd(current)
		if periodEnd.After(end) {
			periodEnd = end
		}

		periods = append(periods, Period{
			Month: MonthKeyOf(current),
			Start: current,
			End:   periodEnd,
			Days:  CountDays(current, periodEnd, true),
		})

		// First day of the next calendar month; rolls the year in December.
		current = MonthStart(current).AddDate(0, 1, 0)
	}

	return periods, nil
}
