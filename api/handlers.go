/*
handlers.go - HTTP API handlers for the mora indemnification service

PURPOSE:
  Exposes the mora calculation engine via REST API. Handles HTTP
  request/response, JSON serialization, input resolution through the
  Banxico data sources, and delegates the math to the mora package.

ENDPOINTS:
  Calculations:
    POST   /api/calculos           Run a calculation (persists to history)
    GET    /api/calculos           List calculation history
    GET    /api/calculos/{id}      Get one stored calculation
    GET    /api/calculos/{id}/csv  Download the monthly breakdown as CSV

  Series:
    GET    /api/udis?fecha=YYYY-MM-DD                UDI value for a date
    GET    /api/ccp-udis?inicio=YYYY-MM&fin=YYYY-MM  CCP-UDIS series

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve omitted inputs (UDI values, CCP table) via the sources
  3. Call mora.Calculate
  4. Persist and serialize the result

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input or date range
  - 404: Calculation not found
  - 422: CCP-UDIS rate unresolvable within the search window
  - 502: Upstream series data unavailable
  - 500: Internal errors

SEE ALSO:
  - dto.go:    Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
	"github.com/guzmandam/indemnizacion-mora-lisf276/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Index mora.IndexSource
	Rates mora.RateSource
}

// NewHandler creates a handler backed by the given store and data sources.
// In production both sources are the store's cached wrapper around the
// Banxico client.
func NewHandler(store *sqlite.Store, index mora.IndexSource, rates mora.RateSource) *Handler {
	return &Handler{Store: store, Index: index, Rates: rates}
}

// =============================================================================
// CALCULATIONS
// =============================================================================

// Calculate runs a mora calculation and stores it in the history.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t0, err := time.Parse("2006-01-02", req.T0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid t0 (use YYYY-MM-DD)", err)
		return
	}
	tf, err := time.Parse("2006-01-02", req.TF)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tf (use YYYY-MM-DD)", err)
		return
	}
	t0, tf = mora.DayOf(t0), mora.DayOf(tf)

	in := mora.CalculationInput{
		Principal: req.PrincipalMXN,
		Start:     t0,
		End:       tf,
		Inclusive: !req.Exclusive,
	}

	ctx := r.Context()

	// Resolve omitted inputs through the data sources.
	if req.UDIT0 != nil {
		in.UDIStart = *req.UDIT0
	} else {
		in.UDIStart, err = h.Index.UDIValue(ctx, t0)
		if err != nil {
			writeCalcError(w, err)
			return
		}
	}
	if req.UDITF != nil {
		in.UDIEnd = *req.UDITF
	} else {
		in.UDIEnd, err = h.Index.UDIValue(ctx, tf)
		if err != nil {
			writeCalcError(w, err)
			return
		}
	}
	if req.CCPTable != nil {
		in.Rates = make(mora.RateTable, len(req.CCPTable))
		for month, pct := range req.CCPTable {
			mk, err := mora.ParseMonthKey(month)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid ccp_table month key", err)
				return
			}
			in.Rates[mk] = pct
		}
	} else {
		in.Rates, err = h.Rates.CCPTable(ctx, mora.MonthKeyOf(t0), mora.MonthKeyOf(tf))
		if err != nil {
			writeCalcError(w, err)
			return
		}
	}

	res, err := mora.Calculate(in)
	if err != nil {
		writeCalcError(w, err)
		return
	}

	rec := sqlite.CalculationRecord{
		ID:                  uuid.NewString(),
		CreatedAt:           time.Now().UTC(),
		PrincipalMXN:        req.PrincipalMXN,
		T0:                  t0,
		TF:                  tf,
		UDIStart:            res.UDIStart,
		UDIEnd:              res.UDIEnd,
		PeriodCount:         res.PeriodCount,
		TotalDays:           res.TotalDays,
		CumulativeFactor:    res.CumulativeFactor,
		UpdatedPrincipalMXN: res.UpdatedPrincipalMXN,
		TotalInterestMXN:    res.TotalInterestMXN,
		TotalMXN:            res.TotalMXN,
		Breakdown:           res.Ledger,
	}
	if err := h.Store.SaveCalculation(ctx, rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store calculation", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCalculationDTO(rec))
}

// ListCalculations returns the calculation history, newest first.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	records, err := h.Store.ListCalculations(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}

	dtos := make([]CalculationDTO, len(records))
	for i, rec := range records {
		dtos[i] = toCalculationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalculation returns one stored calculation.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupCalculation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*rec))
}

// ExportCalculationCSV streams the monthly breakdown of a stored
// calculation as a CSV download.
func (h *Handler) ExportCalculationCSV(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupCalculation(w, r)
	if !ok {
		return
	}

	filename := fmt.Sprintf("indemnizacion_mora_%s_to_%s.csv",
		rec.T0.Format("2006-01-02"), rec.TF.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"month", "period_start", "period_end", "d_j",
		"ccp_pct", "r_a_j", "r_d_j", "f_j", "phi_cum",
		"interest_udi", "interest_mxn",
	})
	for _, seg := range rec.Breakdown {
		_ = cw.Write([]string{
			seg.Month.String(),
			seg.Start.Format("2006-01-02"),
			seg.End.Format("2006-01-02"),
			strconv.Itoa(seg.Days),
			seg.CCPPct.String(),
			seg.AnnualRate.String(),
			seg.DailyRate.String(),
			seg.GrowthFactor.String(),
			seg.CumulativeFactor.String(),
			seg.InterestUDI.String(),
			seg.InterestMXN.String(),
		})
	}
	cw.Flush()
}

func (h *Handler) lookupCalculation(w http.ResponseWriter, r *http.Request) (*sqlite.CalculationRecord, bool) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetCalculation(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get calculation", err)
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Calculation not found", nil)
		return nil, false
	}
	return rec, true
}

// =============================================================================
// SERIES LOOKUPS
// =============================================================================

// GetUDIValue returns the UDI value for a date.
func (h *Handler) GetUDIValue(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("fecha")
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid fecha (use YYYY-MM-DD)", err)
		return
	}

	value, err := h.Index.UDIValue(r.Context(), date)
	if err != nil {
		writeCalcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UDIValueDTO{Fecha: raw, Valor: value})
}

// GetCCPSeries returns the CCP-UDIS values for a month range.
func (h *Handler) GetCCPSeries(w http.ResponseWriter, r *http.Request) {
	from, err := mora.ParseMonthKey(r.URL.Query().Get("inicio"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid inicio (use YYYY-MM)", err)
		return
	}
	to, err := mora.ParseMonthKey(r.URL.Query().Get("fin"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid fin (use YYYY-MM)", err)
		return
	}
	if from.Index() > to.Index() {
		writeError(w, http.StatusBadRequest, "inicio must not be after fin", nil)
		return
	}

	table, err := h.Rates.CCPTable(r.Context(), from, to)
	if err != nil {
		writeCalcError(w, err)
		return
	}

	dtos := make([]CCPRateDTO, 0, len(table))
	for month, pct := range table {
		dtos = append(dtos, CCPRateDTO{Mes: month.String(), Pct: pct})
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Mes < dtos[j].Mes })
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := ErrorDTO{Error: message}
	if err != nil {
		body.Detail = err.Error()
	}
	writeJSON(w, status, body)
}

// writeCalcError maps engine and data-source errors to HTTP statuses.
func writeCalcError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mora.ErrInvalidRange), errors.Is(err, mora.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid calculation input", err)
	case errors.Is(err, mora.ErrRateNotFound):
		writeError(w, http.StatusUnprocessableEntity, "CCP-UDIS rate not found", err)
	case errors.Is(err, mora.ErrDataUnavailable):
		writeError(w, http.StatusBadGateway, "Series data unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "Calculation failed", err)
	}
}
