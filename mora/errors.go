/*
errors.go - Error types for the mora calculation engine

PURPOSE:
  All engine error kinds in one place. Callers match with errors.Is()
  against the sentinels; the structured types carry the context needed
  for a user-facing message.

ERROR CATEGORIES:
  1. Range errors  - t0 after tf
  2. Input errors  - non-positive principal or UDI values
  3. Rate errors   - CCP-UDIS value missing beyond the search floor
  4. Data errors   - upstream series data unavailable (raised by the
                     banxico client and the store, never by the engine)

USAGE:
  if errors.Is(err, mora.ErrRateNotFound) {
      var rnf *mora.RateNotFoundError
      errors.As(err, &rnf)
      // rnf.Month is the month that could not be resolved
  }
*/
package mora

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when the mora start date is after the
	// calculation date.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidInput is returned for a non-positive principal or UDI value.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateNotFound is returned when no CCP-UDIS value exists for a month
	// nor for any month within the 12-month backward search window.
	ErrRateNotFound = errors.New("ccp-udis rate not found")

	// ErrDataUnavailable is returned by data sources when the upstream
	// series has no value for a requested date or period. The engine itself
	// never produces it; it only ever sees already-resolved values.
	ErrDataUnavailable = errors.New("series data unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRangeError reports a start date after the end date.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %s is after end %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// InvalidInputError reports a non-positive numeric input.
type InvalidInputError struct {
	Field string // "principal", "udi_t0", "udi_tf"
	Value string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s must be positive, got %s", e.Field, e.Value)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// RateNotFoundError reports an unresolvable month. Month is the month
// originally requested, not the last month probed by the backward search.
type RateNotFoundError struct {
	Month MonthKey
	Floor MonthKey // oldest month the search was allowed to reach
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no CCP-UDIS value for %s nor any earlier month down to %s",
		e.Month, e.Floor)
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }
