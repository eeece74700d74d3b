package banxico_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzmandam/indemnizacion-mora-lisf276/banxico"
	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
)

// newTestClient wires a client against a stubbed SIE endpoint.
func newTestClient(t *testing.T, handler http.HandlerFunc) *banxico.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := banxico.New("test-token")
	c.BaseURL = srv.URL
	return c
}

func sieBody(serie string, datos string) string {
	return fmt.Sprintf(`{"bmx":{"series":[{"idSerie":"%s","datos":[%s]}]}}`, serie, datos)
}

func TestClient_UDIValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// GIVEN: The SIE API answers with one daily observation
		assert.Equal(t, "test-token", r.Header.Get("Bmx-Token"))
		assert.Contains(t, r.URL.Path, "/series/SP68257/datos/2023-01-01/2023-01-01")
		fmt.Fprint(w, sieBody("SP68257", `{"fecha":"01/01/2023","dato":"7.500000"}`))
	})

	got, err := c.UDIValue(context.Background(), mora.Date(2023, time.January, 1))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("7.500000")))
}

func TestClient_UDIValue_NoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sieBody("SP68257", ``))
	})

	_, err := c.UDIValue(context.Background(), mora.Date(2023, time.January, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, mora.ErrDataUnavailable))
}

func TestClient_UDIValue_SkipsNEMarkers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sieBody("SP68257",
			`{"fecha":"01/01/2023","dato":"N/E"},{"fecha":"01/01/2023","dato":"7.512345"}`))
	})

	got, err := c.UDIValue(context.Background(), mora.Date(2023, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, "7.512345", got.String())
}

func TestClient_CCPTable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Monthly observations land on the first of each month.
		assert.Contains(t, r.URL.Path, "/series/SF3368/datos/2023-01-01/2023-03-31")
		fmt.Fprint(w, sieBody("SF3368",
			`{"fecha":"01/01/2023","dato":"9.85"},
			 {"fecha":"01/02/2023","dato":"10.02"},
			 {"fecha":"01/03/2023","dato":"10.20"}`))
	})

	table, err := c.CCPTable(context.Background(), "2023-01", "2023-03")
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.True(t, table["2023-02"].Equal(decimal.RequireFromString("10.02")))
}

func TestClient_CCPTable_SparseIsAllowed(t *testing.T) {
	// Banxico publishes with a lag: asking for Jan-Apr may only return Jan-Feb.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sieBody("SF3368",
			`{"fecha":"01/01/2023","dato":"9.85"},{"fecha":"01/02/2023","dato":"10.02"}`))
	})

	table, err := c.CCPTable(context.Background(), "2023-01", "2023-04")
	require.NoError(t, err)
	assert.Len(t, table, 2)
	_, ok := table["2023-04"]
	assert.False(t, ok)
}

func TestClient_UpstreamErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := c.UDIValue(context.Background(), mora.Date(2023, time.January, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
