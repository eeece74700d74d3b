/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Running calculations with explicit and source-resolved inputs
- Error status mapping (400/404/422)
- History retrieval and CSV export
*/
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
	"github.com/guzmandam/indemnizacion-mora-lisf276/store/sqlite"
)

// stubSource serves fixed series values without any network.
type stubSource struct {
	udi   map[string]decimal.Decimal // "YYYY-MM-DD" -> value
	table mora.RateTable
}

func (s *stubSource) UDIValue(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	if v, ok := s.udi[mora.DayOf(date).Format("2006-01-02")]; ok {
		return v, nil
	}
	return decimal.Decimal{}, mora.ErrDataUnavailable
}

func (s *stubSource) CCPTable(ctx context.Context, from, to mora.MonthKey) (mora.RateTable, error) {
	if len(s.table) == 0 {
		return nil, mora.ErrDataUnavailable
	}
	return s.table, nil
}

func newTestServer(t *testing.T, src *stubSource) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(NewRouter(NewHandler(store, src, src)))
	t.Cleanup(srv.Close)
	return srv
}

func postCalculation(t *testing.T, srv *httptest.Server, body string) (*http.Response, CalculationDTO) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/calculos", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var dto CalculationDTO
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&dto))
	}
	return resp, dto
}

// =============================================================================
// CALCULATE
// =============================================================================

func TestCalculate_ExplicitInputs(t *testing.T) {
	// GIVEN: A request carrying its own UDI values and CCP table
	// THEN:  No source lookup is needed and the totals match the engine

	srv := newTestServer(t, &stubSource{})

	resp, dto := postCalculation(t, srv, `{
		"principal_mxn": "100000.00",
		"t0": "2023-01-01",
		"tf": "2023-01-31",
		"udi_t0": "7.500000",
		"udi_tf": "7.600000",
		"ccp_table": {"2023-01": "10.00"}
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, 1, dto.NPeriods)
	assert.Equal(t, 31, dto.TotalDays)
	require.Len(t, dto.MonthlyBreakdown, 1)
	assert.Equal(t, "2023-01", dto.MonthlyBreakdown[0].Month)
	assert.Equal(t, 31, dto.MonthlyBreakdown[0].Days)
	assert.True(t, dto.TotalMXN.Equal(dto.InterestMXN.Add(dto.PUpdMXN)))
}

func TestCalculate_ResolvesInputsFromSources(t *testing.T) {
	// GIVEN: A request with only principal and dates
	// THEN:  UDI values and the CCP table come from the data sources

	src := &stubSource{
		udi: map[string]decimal.Decimal{
			"2023-01-01": decimal.RequireFromString("7.500000"),
			"2023-02-15": decimal.RequireFromString("7.580000"),
		},
		table: mora.RateTable{
			"2023-01": decimal.RequireFromString("10.00"),
			"2023-02": decimal.RequireFromString("10.10"),
		},
	}
	srv := newTestServer(t, src)

	resp, dto := postCalculation(t, srv, `{
		"principal_mxn": "50000.00",
		"t0": "2023-01-01",
		"tf": "2023-02-15"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, 2, dto.NPeriods)
	assert.Equal(t, 31+15, dto.TotalDays)
	assert.True(t, dto.UDIT0.Equal(decimal.RequireFromString("7.5")))
	assert.True(t, dto.UDITF.Equal(decimal.RequireFromString("7.58")))
}

func TestCalculate_InvalidBody(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, _ := postCalculation(t, srv, `{"principal_mxn": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalculate_BadDate(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, _ := postCalculation(t, srv, `{
		"principal_mxn": "1000", "t0": "01/01/2023", "tf": "2023-01-31"
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalculate_NonPositivePrincipal(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, _ := postCalculation(t, srv, `{
		"principal_mxn": "0",
		"t0": "2023-01-01", "tf": "2023-01-31",
		"udi_t0": "7.5", "udi_tf": "7.6",
		"ccp_table": {"2023-01": "10.00"}
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalculate_RateNotFound_Unprocessable(t *testing.T) {
	// GIVEN: A CCP table whose only month is far older than the search floor
	srv := newTestServer(t, &stubSource{})

	resp, _ := postCalculation(t, srv, `{
		"principal_mxn": "1000",
		"t0": "2023-06-01", "tf": "2023-06-30",
		"udi_t0": "7.5", "udi_tf": "7.6",
		"ccp_table": {"2020-01": "8.00"}
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCalculate_SourceUnavailable_BadGateway(t *testing.T) {
	srv := newTestServer(t, &stubSource{}) // no data at all

	resp, _ := postCalculation(t, srv, `{
		"principal_mxn": "1000",
		"t0": "2023-01-01", "tf": "2023-01-31"
	}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// =============================================================================
// HISTORY + EXPORT
// =============================================================================

func calculationBody() string {
	return `{
		"principal_mxn": "100000.00",
		"t0": "2023-01-01",
		"tf": "2023-02-15",
		"udi_t0": "7.500000",
		"udi_tf": "7.600000",
		"ccp_table": {"2023-01": "10.00", "2023-02": "10.10"}
	}`
}

func TestGetCalculation_RoundTrip(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	_, created := postCalculation(t, srv, calculationBody())

	resp, err := http.Get(srv.URL + "/api/calculos/" + created.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got CalculationDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.TotalMXN.Equal(created.TotalMXN))
	assert.Len(t, got.MonthlyBreakdown, 2)
}

func TestGetCalculation_NotFound(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, err := http.Get(srv.URL + "/api/calculos/no-such-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListCalculations(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	postCalculation(t, srv, calculationBody())
	postCalculation(t, srv, calculationBody())

	resp, err := http.Get(srv.URL + "/api/calculos")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []CalculationDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestExportCalculationCSV(t *testing.T) {
	srv := newTestServer(t, &stubSource{})
	_, created := postCalculation(t, srv, calculationBody())

	resp, err := http.Get(srv.URL + "/api/calculos/" + created.ID + "/csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "indemnizacion_mora_2023-01-01_to_2023-02-15.csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3) // header + 2 months
	assert.Contains(t, lines[0], "phi_cum")
	assert.True(t, strings.HasPrefix(lines[1], "2023-01,"))
	assert.True(t, strings.HasPrefix(lines[2], "2023-02,"))
}

// =============================================================================
// SERIES LOOKUPS
// =============================================================================

func TestGetUDIValue(t *testing.T) {
	src := &stubSource{udi: map[string]decimal.Decimal{
		"2023-05-10": decimal.RequireFromString("7.654321"),
	}}
	srv := newTestServer(t, src)

	resp, err := http.Get(srv.URL + "/api/udis?fecha=2023-05-10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto UDIValueDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dto))
	assert.Equal(t, "2023-05-10", dto.Fecha)
	assert.True(t, dto.Valor.Equal(decimal.RequireFromString("7.654321")))
}

func TestGetCCPSeries_SortedByMonth(t *testing.T) {
	src := &stubSource{table: mora.RateTable{
		"2023-02": decimal.RequireFromString("10.02"),
		"2023-01": decimal.RequireFromString("9.85"),
	}}
	srv := newTestServer(t, src)

	resp, err := http.Get(srv.URL + "/api/ccp-udis?inicio=2023-01&fin=2023-02")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dtos []CCPRateDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dtos))
	require.Len(t, dtos, 2)
	assert.Equal(t, "2023-01", dtos[0].Mes)
	assert.Equal(t, "2023-02", dtos[1].Mes)
}

func TestGetCCPSeries_ReversedRange(t *testing.T) {
	srv := newTestServer(t, &stubSource{})

	resp, err := http.Get(srv.URL + "/api/ccp-udis?inicio=2023-05&fin=2023-01")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
