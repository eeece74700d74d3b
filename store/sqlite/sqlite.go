/*
Package sqlite persists the two things this service keeps on disk:

  1. A cache of Banxico series observations (daily UDI values and monthly
     CCP-UDIS rates). Series history never changes once published, so a
     cache hit fully replaces a network round trip.
  2. A history of performed calculations, including the complete monthly
     breakdown, so past results can be listed, re-read, and exported.

KEY TABLES:
  udi_values:   fecha (PK) -> valor        daily UDI cache
  ccp_rates:    mes (PK) -> pct            monthly CCP-UDIS cache
  calculations: id (PK, uuid) + inputs, totals, breakdown JSON, created_at

Decimals are stored as TEXT to keep their exact representation; SQLite
REAL would reintroduce the float rounding the engine avoids.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  Uses sync.RWMutex for thread-safety.

USAGE:
  store, err := sqlite.New("./data/mora.db")   // ":memory:" for tests
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - mora/source.go: Interfaces the cached source satisfies
  - banxico/client.go: The upstream the cache fronts
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/guzmandam/indemnizacion-mora-lisf276/mora"
)

// Store is the SQLite-backed cache and history store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS udi_values (
		fecha TEXT PRIMARY KEY,
		valor TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ccp_rates (
		mes TEXT PRIMARY KEY,
		pct TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calculations (
		id                    TEXT PRIMARY KEY,
		principal_mxn         TEXT NOT NULL,
		t0                    TEXT NOT NULL,
		tf                    TEXT NOT NULL,
		udi_t0                TEXT NOT NULL,
		udi_tf                TEXT NOT NULL,
		period_count          INTEGER NOT NULL,
		total_days            INTEGER NOT NULL,
		cumulative_factor     TEXT NOT NULL,
		updated_principal_mxn TEXT NOT NULL,
		total_interest_mxn    TEXT NOT NULL,
		total_mxn             TEXT NOT NULL,
		breakdown_json        TEXT NOT NULL,
		created_at            TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_created_at
		ON calculations(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SERIES CACHE
// =============================================================================

// GetUDIValue returns the cached UDI value for a date, if present.
func (s *Store) GetUDIValue(ctx context.Context, date time.Time) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT valor FROM udi_values WHERE fecha = ?`,
		mora.DayOf(date).Format("2006-01-02"),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("get udi value: %w", err)
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("corrupt udi value %q: %w", raw, err)
	}
	return value, true, nil
}

// SaveUDIValue caches a daily UDI observation. Rewriting the same date is
// harmless; published series values never change.
func (s *Store) SaveUDIValue(ctx context.Context, date time.Time, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO udi_values (fecha, valor) VALUES (?, ?)`,
		mora.DayOf(date).Format("2006-01-02"), value.String(),
	)
	if err != nil {
		return fmt.Errorf("save udi value: %w", err)
	}
	return nil
}

// GetCCPRates returns the cached CCP-UDIS values within [from, to]. The
// result may be sparse or empty; the caller decides whether coverage is
// sufficient.
func (s *Store) GetCCPRates(ctx context.Context, from, to mora.MonthKey) (mora.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT mes, pct FROM ccp_rates WHERE mes >= ? AND mes <= ?`,
		string(from), string(to),
	)
	if err != nil {
		return nil, fmt.Errorf("get ccp rates: %w", err)
	}
	defer rows.Close()

	table := make(mora.RateTable)
	for rows.Next() {
		var mes, raw string
		if err := rows.Scan(&mes, &raw); err != nil {
			return nil, fmt.Errorf("scan ccp rate: %w", err)
		}
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt ccp rate %q: %w", raw, err)
		}
		table[mora.MonthKey(mes)] = pct
	}
	return table, rows.Err()
}

// SaveCCPRates caches a batch of monthly rates.
func (s *Store) SaveCCPRates(ctx context.Context, table mora.RateTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save ccp rates: %w", err)
	}
	for month, pct := range table {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO ccp_rates (mes, pct) VALUES (?, ?)`,
			string(month), pct.String(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("save ccp rate %s: %w", month, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// CALCULATION HISTORY
// =============================================================================

// CalculationRecord is one stored calculation: the inputs, the headline
// totals, and the full monthly breakdown.
type CalculationRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PrincipalMXN decimal.Decimal `json:"principal_mxn"`
	T0           time.Time       `json:"t0"`
	TF           time.Time       `json:"tf"`
	UDIStart     decimal.Decimal `json:"udi_t0"`
	UDIEnd       decimal.Decimal `json:"udi_tf"`

	PeriodCount         int                  `json:"period_count"`
	TotalDays           int                  `json:"total_days"`
	CumulativeFactor    decimal.Decimal      `json:"cumulative_factor"`
	UpdatedPrincipalMXN decimal.Decimal      `json:"updated_principal_mxn"`
	TotalInterestMXN    decimal.Decimal      `json:"total_interest_mxn"`
	TotalMXN            decimal.Decimal      `json:"total_mxn"`
	Breakdown           []mora.SegmentResult `json:"breakdown"`
}

// SaveCalculation stores a finished calculation in the history.
func (s *Store) SaveCalculation(ctx context.Context, rec CalculationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	breakdown, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculations (
			id, principal_mxn, t0, tf, udi_t0, udi_tf,
			period_count, total_days, cumulative_factor,
			updated_principal_mxn, total_interest_mxn, total_mxn,
			breakdown_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.PrincipalMXN.String(),
		rec.T0.Format("2006-01-02"),
		rec.TF.Format("2006-01-02"),
		rec.UDIStart.String(),
		rec.UDIEnd.String(),
		rec.PeriodCount,
		rec.TotalDays,
		rec.CumulativeFactor.String(),
		rec.UpdatedPrincipalMXN.String(),
		rec.TotalInterestMXN.String(),
		rec.TotalMXN.String(),
		string(breakdown),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save calculation: %w", err)
	}
	return nil
}

// GetCalculation returns one stored calculation, or nil if not found.
func (s *Store) GetCalculation(ctx context.Context, id string) (*CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, principal_mxn, t0, tf, udi_t0, udi_tf,
		       period_count, total_days, cumulative_factor,
		       updated_principal_mxn, total_interest_mxn, total_mxn,
		       breakdown_json, created_at
		FROM calculations WHERE id = ?`, id)

	rec, err := scanCalculation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calculation: %w", err)
	}
	return rec, nil
}

// ListCalculations returns stored calculations, newest first.
func (s *Store) ListCalculations(ctx context.Context, limit int) ([]CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, principal_mxn, t0, tf, udi_t0, udi_tf,
		       period_count, total_days, cumulative_factor,
		       updated_principal_mxn, total_interest_mxn, total_mxn,
		       breakdown_json, created_at
		FROM calculations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	defer rows.Close()

	var records []CalculationRecord
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("list calculations: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row scanner) (*CalculationRecord, error) {
	var (
		rec                     CalculationRecord
		principal, udi0, udif   string
		t0, tf                  string
		phi, pupd, interest, tm string
		breakdown               string
	)
	err := row.Scan(
		&rec.ID, &principal, &t0, &tf, &udi0, &udif,
		&rec.PeriodCount, &rec.TotalDays, &phi,
		&pupd, &interest, &tm,
		&breakdown, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.PrincipalMXN, err = decimal.NewFromString(principal); err != nil {
		return nil, err
	}
	if rec.UDIStart, err = decimal.NewFromString(udi0); err != nil {
		return nil, err
	}
	if rec.UDIEnd, err = decimal.NewFromString(udif); err != nil {
		return nil, err
	}
	if rec.CumulativeFactor, err = decimal.NewFromString(phi); err != nil {
		return nil, err
	}
	if rec.UpdatedPrincipalMXN, err = decimal.NewFromString(pupd); err != nil {
		return nil, err
	}
	if rec.TotalInterestMXN, err = decimal.NewFromString(interest); err != nil {
		return nil, err
	}
	if rec.TotalMXN, err = decimal.NewFromString(tm); err != nil {
		return nil, err
	}
	if rec.T0, err = time.Parse("2006-01-02", t0); err != nil {
		return nil, err
	}
	if rec.TF, err = time.Parse("2006-01-02", tf); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(breakdown), &rec.Breakdown); err != nil {
		return nil, err
	}
	return &rec, nil
}
