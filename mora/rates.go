/*
rates.go - CCP-UDIS rate table and fallback resolution

PURPOSE:
  Maps a calendar month to the applicable CCP-UDIS percentage. Banxico
  publishes the series with a lag, so the table handed to the engine may
  not cover the most recent months of the mora interval. Resolution falls
  back to the most recent published month on the assumption that the last
  known rate continues to apply.

SEARCH BOUND:
  The backward search never regresses more than 12 months before the
  calculation's start month. That bound is a formula constant; going
  further back would apply a rate with no plausible claim to currency.

SEE ALSO:
  - engine.go: Resolves one rate per Period during accrual
  - banxico/:  Fetches the table from the SIE API
*/
package mora

import "github.com/shopspring/decimal"

// RateTable maps a month to its CCP-UDIS value, in percent (e.g. 10.00 for
// 10%). Tables may be sparse; RateResolver covers the gaps.
type RateTable map[MonthKey]decimal.Decimal

// RateResolver resolves the CCP-UDIS percentage for a month, searching
// backward through the table when the month itself is missing.
type RateResolver struct {
	Table RateTable
	Floor MonthKey // oldest month the search may reach: calc start month - 12
}

// NewRateResolver builds a resolver for a calculation starting in startMonth.
func NewRateResolver(table RateTable, startMonth MonthKey) RateResolver {
	floor := startMonth
	for i := 0; i < 12; i++ {
		floor = floor.Prev()
	}
	return RateResolver{Table: table, Floor: floor}
}

// Resolve returns the rate for month, or the nearest earlier month present
// in the table. Fails with a RateNotFoundError naming the original month
// once the search would pass the floor.
func (r RateResolver) Resolve(month MonthKey) (decimal.Decimal, error) {
	current := month
	for {
		if pct, ok := r.Table[current]; ok {
			return pct, nil
		}
		current = current.Prev()
		if current.Index() < r.Floor.Index() {
			return decimal.Decimal{}, &RateNotFoundError{Month: month, Floor: r.Floor}
		}
	}
}
