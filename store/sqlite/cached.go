package sqlite

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
)

// upstream is the combined source the cache fronts (in practice a
// *banxico.Client, but anything satisfying both interfaces works).
type upstream interface {
	mora.IndexSource
	mora.RateSource
}

// CachedSource serves UDI values and CCP-UDIS tables from the store,
// falling back to the upstream on a miss and persisting what it fetched.
// Series observations are immutable once published, so cached values never
// expire.
type CachedSource struct {
	Store    *Store
	Upstream upstream
}

// NewCachedSource wraps an upstream source with the store's cache.
func NewCachedSource(store *Store, up upstream) *CachedSource {
	return &CachedSource{Store: store, Upstream: up}
}

// UDIValue implements mora.IndexSource.
func (c *CachedSource) UDIValue(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	if value, ok, err := c.Store.GetUDIValue(ctx, date); err != nil {
		return decimal.Decimal{}, err
	} else if ok {
		return value, nil
	}

	value, err := c.Upstream.UDIValue(ctx, date)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := c.Store.SaveUDIValue(ctx, date, value); err != nil {
		return decimal.Decimal{}, err
	}
	return value, nil
}

// CCPTable implements mora.RateSource. The cache only answers when it holds
// a value for every month of the requested range; months Banxico has not
// published yet keep the range incomplete, so those requests go upstream
// until the publication lands.
func (c *CachedSource) CCPTable(ctx context.Context, from, to mora.MonthKey) (mora.RateTable, error) {
	cached, err := c.Store.GetCCPRates(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if coversRange(cached, from, to) {
		return cached, nil
	}

	table, err := c.Upstream.CCPTable(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if err := c.Store.SaveCCPRates(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

func coversRange(table mora.RateTable, from, to mora.MonthKey) bool {
	for mk := from; mk.Index() <= to.Index(); mk = mk.Next() {
		if _, ok := table[mk]; !ok {
			return false
		}
	}
	return true
}
