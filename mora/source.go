package mora

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATA SOURCES - External collaborators the engine's callers resolve inputs
// through. The engine itself only ever sees resolved values.
// =============================================================================

// IndexSource looks up the daily UDI value for a date.
// Implementations return ErrDataUnavailable when the series has no value.
type IndexSource interface {
	UDIValue(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

// RateSource fetches the monthly CCP-UDIS table covering [from, to].
// The returned table may be sparse; RateResolver covers the gaps.
type RateSource interface {
	CCPTable(ctx context.Context, from, to MonthKey) (RateTable, error)
}
