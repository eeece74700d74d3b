/*
engine.go - Mora interest accrual engine (Art. 276 LISF)

PURPOSE:
  Computes the statutory late-payment indemnification on an MXN principal.
  The formula re-denominates the principal into UDIs at the mora start
  date, accrues interest month by month at 1.25x the CCP-UDIS reference
  rate, and converts back to pesos at the calculation date's UDI value.

FORMULA (per calendar-month segment j with d_j days in mora):
  r_a_j = 1.25 * CCP_j / 100         annual rate
  r_d_j = r_a_j / 365                daily rate (fixed 365-day year)
  F_j   = 1 + r_d_j * d_j            monthly growth factor
  I_j   = U0 * (F_j - 1)             segment interest, in UDIs
  Phi   = product of all F_j         cumulative factor

  Segment interest is always computed against the ORIGINAL UDI principal
  U0, not a running balance: the per-segment interest is simple, and only
  the cumulative factor compounds. That mirrors the regulatory formula.

PRECISION:
  All intermediate arithmetic uses shopspring decimals; divisions carry
  28 digits via DivRound. Peso amounts are rounded to 2 decimals exactly
  once, at the point where a value becomes a reported currency amount.

TOTALS:
  The authoritative total interest is the sum of the already-rounded
  per-segment peso amounts, so the totals always reconcile with the
  monthly breakdown a reviewer sees. The factor-derived figure
  (Ufin - U0) * UDI_tf is carried separately for reference.

CONCURRENCY:
  Calculate is a pure function of its input. No package state, no I/O.

SEE ALSO:
  - period.go: Calendar-month partitioning
  - rates.go:  CCP-UDIS resolution with backward fallback
*/
package mora

import (
	"time"

	"github.com/shopspring/decimal"
)

// divPrecision is the number of digits carried through divisions.
const divPrecision = 28

var (
	one         = decimal.NewFromInt(1)
	hundred     = decimal.NewFromInt(100)
	yearDays    = decimal.NewFromInt(365) // fixed divisor, no leap-year adjustment
	moraPremium = decimal.RequireFromString("1.25")
)

// roundMXN rounds a peso amount to 2 decimals, banker's rounding.
func roundMXN(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// CalculationInput is everything Calculate needs. UDI values and the rate
// table must already be resolved; the engine performs no I/O.
type CalculationInput struct {
	Principal decimal.Decimal // P0, in MXN
	Start     time.Time       // t0, first day in mora
	End       time.Time       // tf, calculation/payment date
	UDIStart  decimal.Decimal // UDI value at t0
	UDIEnd    decimal.Decimal // UDI value at tf
	Rates     RateTable       // CCP-UDIS by month, may be sparse

	// Inclusive selects the day-counting policy. The monthly partitioner
	// counts inclusive of both endpoints regardless; the flag is recorded
	// on the result for traceability.
	Inclusive bool
}

// SegmentResult is one row of the monthly breakdown. Every intermediate
// value is kept for auditability.
type SegmentResult struct {
	Month  MonthKey
	Start  time.Time
	End    time.Time
	Days   int
	CCPPct decimal.Decimal // resolved CCP-UDIS, percent

	AnnualRate       decimal.Decimal // 1.25 * CCP / 100
	DailyRate        decimal.Decimal // AnnualRate / 365
	GrowthFactor     decimal.Decimal // 1 + DailyRate * Days
	CumulativeFactor decimal.Decimal // running product through this segment

	InterestUDI decimal.Decimal // U0 * (GrowthFactor - 1)
	InterestMXN decimal.Decimal // InterestUDI * UDI_tf, rounded to 2 decimals
}

// CalculationResult is the complete outcome of one calculation. It is owned
// by the caller; the engine keeps no state after returning it.
type CalculationResult struct {
	PeriodCount int
	TotalDays   int
	Inclusive   bool

	CumulativeFactor decimal.Decimal // Phi
	InitialUDI       decimal.Decimal // U0  = P0 / UDI_t0
	FinalUDI         decimal.Decimal // Ufin = U0 * Phi

	UpdatedPrincipalMXN decimal.Decimal // round(U0 * UDI_tf, 2)
	TotalInterestMXN    decimal.Decimal // sum of rounded segment interest (authoritative)
	TotalMXN            decimal.Decimal // TotalInterestMXN + UpdatedPrincipalMXN

	// InterestFromFactorMXN is round((Ufin - U0) * UDI_tf, 2). It differs
	// from TotalInterestMXN by accumulated segment rounding and is reported
	// for reference only; TotalMXN is built from the segment sum.
	InterestFromFactorMXN decimal.Decimal

	Ledger []SegmentResult

	UDIStart decimal.Decimal
	UDIEnd   decimal.Decimal
}

// Calculate runs the full accrual: validation, partitioning, per-segment
// rate resolution and compounding, and aggregation.
func Calculate(in CalculationInput) (*CalculationResult, error) {
	if !in.Principal.IsPositive() {
		return nil, &InvalidInputError{Field: "principal", Value: in.Principal.String()}
	}
	if !in.UDIStart.IsPositive() {
		return nil, &InvalidInputError{Field: "udi_t0", Value: in.UDIStart.String()}
	}
	if !in.UDIEnd.IsPositive() {
		return nil, &InvalidInputError{Field: "udi_tf", Value: in.UDIEnd.String()}
	}

	periods, err := PartitionByMonth(in.Start, in.End)
	if err != nil {
		return nil, err
	}

	resolver := NewRateResolver(in.Rates, MonthKeyOf(DayOf(in.Start)))

	// U0: principal re-denominated in UDIs at t0.
	u0 := in.Principal.DivRound(in.UDIStart, divPrecision)

	ledger := make([]SegmentResult, 0, len(periods))
	phi := one
	totalDays := 0
	totalInterestMXN := decimal.Zero

	for _, p := range periods {
		ccp, err := resolver.Resolve(p.Month)
		if err != nil {
			return nil, err
		}

		annual := moraPremium.Mul(ccp).DivRound(hundred, divPrecision)
		daily := annual.DivRound(yearDays, divPrecision)
		factor := one.Add(daily.Mul(decimal.NewFromInt(int64(p.Days))))

		interestUDI := u0.Mul(factor.Sub(one))
		interestMXN := roundMXN(interestUDI.Mul(in.UDIEnd))

		phi = phi.Mul(factor)
		totalDays += p.Days
		totalInterestMXN = totalInterestMXN.Add(interestMXN)

		ledger = append(ledger, SegmentResult{
			Month:            p.Month,
			Start:            p.Start,
			End:              p.End,
			Days:             p.Days,
			CCPPct:           ccp,
			AnnualRate:       annual,
			DailyRate:        daily,
			GrowthFactor:     factor,
			CumulativeFactor: phi,
			InterestUDI:      interestUDI,
			InterestMXN:      interestMXN,
		})
	}

	ufin := u0.Mul(phi)
	updatedPrincipal := roundMXN(u0.Mul(in.UDIEnd))

	return &CalculationResult{
		PeriodCount:           len(ledger),
		TotalDays:             totalDays,
		Inclusive:             in.Inclusive,
		CumulativeFactor:      phi,
		InitialUDI:            u0,
		FinalUDI:              ufin,
		UpdatedPrincipalMXN:   updatedPrincipal,
		TotalInterestMXN:      totalInterestMXN,
		TotalMXN:              totalInterestMXN.Add(updatedPrincipal),
		InterestFromFactorMXN: roundMXN(ufin.Sub(u0).Mul(in.UDIEnd)),
		Ledger:                ledger,
		UDIStart:              in.UDIStart,
		UDIEnd:                in.UDIEnd,
	}, nil
}
