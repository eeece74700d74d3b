/*
Package banxico is a client for Banco de México's SIE API, covering the two
series the mora calculation needs:

	SP68257  UDIS      daily UDI value in MXN
	SF3368   CCP-UDIS  monthly reference rate, in percent

The client implements mora.IndexSource and mora.RateSource. A missing value
for a requested date or period surfaces as mora.ErrDataUnavailable; the
calculation layer treats that as an input it cannot proceed without.

The SIE envelope looks like:

	{"bmx": {"series": [{"idSerie": "...", "datos": [
	    {"fecha": "01/01/2023", "dato": "7.500000"}, ...]}]}}

Dates are DD/MM/YYYY and values arrive as strings; "N/E" marks holes in the
series and is skipped.
*/
package banxico

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
)

const (
	// DefaultBaseURL is the production SIE REST endpoint.
	DefaultBaseURL = "https://www.banxico.org.mx/SieAPIRest/service/v1"

	// SeriesUDIS is the daily UDI value series.
	SeriesUDIS = "SP68257"

	// SeriesCCPUDIS is the monthly CCP-UDIS reference rate series.
	SeriesCCPUDIS = "SF3368"
)

// Client talks to the SIE API. The zero value is not usable; construct
// with New.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New creates a client with production defaults. The token is the SIE
// query token issued by Banxico.
func New(token string) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// seriesEnvelope mirrors the SIE response shape.
type seriesEnvelope struct {
	Bmx struct {
		Series []struct {
			IDSerie string `json:"idSerie"`
			Datos   []struct {
				Fecha string `json:"fecha"`
				Dato  string `json:"dato"`
			} `json:"datos"`
		} `json:"series"`
	} `json:"bmx"`
}

// datum is one parsed observation.
type datum struct {
	Date  time.Time
	Value decimal.Decimal
}

// fetchSeries retrieves and parses one series over [from, to].
func (c *Client) fetchSeries(ctx context.Context, serie string, from, to time.Time) ([]datum, error) {
	url := fmt.Sprintf("%s/series/%s/datos/%s/%s",
		c.BaseURL, serie, from.Format("2006-01-02"), to.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("banxico: build request: %w", err)
	}
	req.Header.Set("Bmx-Token", c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("banxico: fetch series %s: %w", serie, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("banxico: series %s: unexpected status %d", serie, resp.StatusCode)
	}

	var envelope seriesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("banxico: decode series %s: %w", serie, err)
	}
	if len(envelope.Bmx.Series) == 0 {
		return nil, fmt.Errorf("banxico: series %s: %w", serie, mora.ErrDataUnavailable)
	}

	var out []datum
	for _, d := range envelope.Bmx.Series[0].Datos {
		if d.Dato == "N/E" {
			continue // hole in the series
		}
		date, err := time.Parse("02/01/2006", d.Fecha)
		if err != nil {
			return nil, fmt.Errorf("banxico: series %s: bad date %q: %w", serie, d.Fecha, err)
		}
		value, err := decimal.NewFromString(d.Dato)
		if err != nil {
			return nil, fmt.Errorf("banxico: series %s: bad value %q: %w", serie, d.Dato, err)
		}
		out = append(out, datum{Date: mora.DayOf(date), Value: value})
	}
	return out, nil
}

// UDIValue returns the UDI value for the given date.
func (c *Client) UDIValue(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	day := mora.DayOf(date)
	data, err := c.fetchSeries(ctx, SeriesUDIS, day, day)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(data) == 0 {
		return decimal.Decimal{}, fmt.Errorf("banxico: no UDI value for %s: %w",
			day.Format("2006-01-02"), mora.ErrDataUnavailable)
	}
	// The API may answer with the closest prior observation; take the last.
	return data[len(data)-1].Value, nil
}

// CCPTable returns the CCP-UDIS table covering [from, to]. The table may be
// sparse when Banxico has not yet published recent months.
func (c *Client) CCPTable(ctx context.Context, from, to mora.MonthKey) (mora.RateTable, error) {
	start := from.Time()
	end := mora.MonthEnd(to.Time())

	data, err := c.fetchSeries(ctx, SeriesCCPUDIS, start, end)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("banxico: no CCP-UDIS data for %s..%s: %w", from, to, mora.ErrDataUnavailable)
	}

	table := make(mora.RateTable, len(data))
	for _, d := range data {
		table[mora.MonthKeyOf(d.Date)] = d.Value
	}
	return table, nil
}
