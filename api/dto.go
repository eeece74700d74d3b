/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the REST API. These decouple the engine's domain
  types from the wire contract. Field names follow the statutory formula's
  notation (d_j, r_a_j, F_j, phi) so responses read like the regulation's
  worked examples.

NAMING CONVENTION:
  - *Request: request body types from clients
  - *DTO:     response types returned to clients

VALIDATION:
  Done in handlers; DTOs are pure data carriers. Decimal fields accept
  both quoted and bare JSON numbers and marshal as quoted strings, so no
  precision is lost on the wire.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
	"github.com/guzmandam/indemnizacion-mora-lisf276/store/sqlite"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CalculateRequest is the body of POST /api/calculos. UDI values and the
// CCP-UDIS table are optional; omitted values are resolved through the
// configured data sources.
type CalculateRequest struct {
	PrincipalMXN decimal.Decimal `json:"principal_mxn"`
	T0           string          `json:"t0"` // YYYY-MM-DD
	TF           string          `json:"tf"` // YYYY-MM-DD

	UDIT0    *decimal.Decimal           `json:"udi_t0,omitempty"`
	UDITF    *decimal.Decimal           `json:"udi_tf,omitempty"`
	CCPTable map[string]decimal.Decimal `json:"ccp_table,omitempty"` // "YYYY-MM" -> pct

	// Exclusive requests open-interval day counting. The partitioner
	// currently counts inclusively either way; the choice is echoed back.
	Exclusive bool `json:"exclusive,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SegmentDTO is one row of the monthly breakdown.
type SegmentDTO struct {
	Month       string          `json:"month"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Days        int             `json:"d_j"`
	CCPPct      decimal.Decimal `json:"ccp_pct"`
	AnnualRate  decimal.Decimal `json:"r_a_j"`
	DailyRate   decimal.Decimal `json:"r_d_j"`
	Factor      decimal.Decimal `json:"f_j"`
	PhiCum      decimal.Decimal `json:"phi_cum"`
	InterestUDI decimal.Decimal `json:"interest_udi"`
	InterestMXN decimal.Decimal `json:"interest_mxn"`
}

// CalculationDTO is a full calculation result, stored or fresh.
type CalculationDTO struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`

	PrincipalMXN decimal.Decimal `json:"principal_mxn"`
	T0           string          `json:"t0"`
	TF           string          `json:"tf"`
	UDIT0        decimal.Decimal `json:"udi_t0"`
	UDITF        decimal.Decimal `json:"udi_tf"`

	NPeriods  int `json:"n_periods"`
	TotalDays int `json:"total_days"`

	Phi  decimal.Decimal `json:"phi"`
	U0   decimal.Decimal `json:"u0"`
	Ufin decimal.Decimal `json:"ufin"`

	PUpdMXN     decimal.Decimal `json:"p_upd_mxn"`
	InterestMXN decimal.Decimal `json:"interest_mxn"`
	TotalMXN    decimal.Decimal `json:"total_mxn"`

	MonthlyBreakdown []SegmentDTO `json:"monthly_breakdown"`
}

// UDIValueDTO is the response of GET /api/udis.
type UDIValueDTO struct {
	Fecha string          `json:"fecha"`
	Valor decimal.Decimal `json:"valor"`
}

// CCPRateDTO is one month of GET /api/ccp-udis.
type CCPRateDTO struct {
	Mes string          `json:"mes"`
	Pct decimal.Decimal `json:"pct"`
}

// ErrorDTO is the uniform error body.
type ErrorDTO struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toSegmentDTOs(ledger []mora.SegmentResult) []SegmentDTO {
	dtos := make([]SegmentDTO, len(ledger))
	for i, seg := range ledger {
		dtos[i] = SegmentDTO{
			Month:       seg.Month.String(),
			PeriodStart: seg.Start.Format("2006-01-02"),
			PeriodEnd:   seg.End.Format("2006-01-02"),
			Days:        seg.Days,
			CCPPct:      seg.CCPPct,
			AnnualRate:  seg.AnnualRate,
			DailyRate:   seg.DailyRate,
			Factor:      seg.GrowthFactor,
			PhiCum:      seg.CumulativeFactor,
			InterestUDI: seg.InterestUDI,
			InterestMXN: seg.InterestMXN,
		}
	}
	return dtos
}

func toCalculationDTO(rec sqlite.CalculationRecord) CalculationDTO {
	u0 := decimal.Decimal{}
	ufin := decimal.Decimal{}
	if rec.UDIStart.IsPositive() {
		u0 = rec.PrincipalMXN.DivRound(rec.UDIStart, 28)
		ufin = u0.Mul(rec.CumulativeFactor)
	}
	return CalculationDTO{
		ID:               rec.ID,
		CreatedAt:        rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		PrincipalMXN:     rec.PrincipalMXN,
		T0:               rec.T0.Format("2006-01-02"),
		TF:               rec.TF.Format("2006-01-02"),
		UDIT0:            rec.UDIStart,
		UDITF:            rec.UDIEnd,
		NPeriods:         rec.PeriodCount,
		TotalDays:        rec.TotalDays,
		Phi:              rec.CumulativeFactor,
		U0:               u0,
		Ufin:             ufin,
		PUpdMXN:          rec.UpdatedPrincipalMXN,
		InterestMXN:      rec.TotalInterestMXN,
		TotalMXN:         rec.TotalMXN,
		MonthlyBreakdown: toSegmentDTOs(rec.Breakdown),
	}
}
