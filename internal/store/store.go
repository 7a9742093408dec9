package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNoCycles indicates the monitoring table holds no rows yet
var ErrNoCycles = errors.New("no monitor cycles found")

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store provides relational access to the pipeline's monitoring and run
// tables. All methods apply a per-query timeout and are read-only except
// RecordRun.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to the relational store and verifies it is reachable.
// An unreachable store is a setup failure: callers should abort rather
// than degrade, since every check depends on it.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store DSN not configured")
	}

	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store unreachable: %w", err)
	}

	return &Store{db: db, timeout: timeout}, nil
}

// NewWithDB wraps an existing connection, used by tests
func NewWithDB(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// LatestCycle returns the most recent monitoring-cycle timestamp as the
// raw "date time" string recorded by the pipeline. Returns ErrNoCycles
// when the table is empty.
func (s *Store) LatestCycle(ctx context.Context, table string) (string, error) {
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name: %q", table)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row struct {
		RunDate string `db:"run_date"`
		RunTime string `db:"run_time"`
	}
	query := fmt.Sprintf(
		`SELECT run_date, run_time FROM %s ORDER BY run_date DESC, run_time DESC LIMIT 1`, table)
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoCycles
		}
		return "", fmt.Errorf("failed to query latest cycle: %w", err)
	}

	if row.RunTime == "" {
		return row.RunDate, nil
	}
	return row.RunDate + " " + row.RunTime, nil
}

// GapRows returns the raw data_gaps payloads recorded in table on or after
// the cutoff date. Payloads are JSON arrays of descriptor strings; parsing
// is left to the caller.
func (s *Store) GapRows(ctx context.Context, table string, since time.Time) ([]string, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf(
		`SELECT data_gaps FROM %s WHERE data_gaps IS NOT NULL AND run_date >= $1`, table)

	var rows []string
	if err := s.db.SelectContext(ctx, &rows, query, since.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to query %s gaps: %w", table, err)
	}
	return rows, nil
}

// AuditRow is one completed health run, appended to the audit table
type AuditRow struct {
	ID            string         `db:"id"`
	RunDate       string         `db:"run_date"`
	Status        string         `db:"status"`
	Summary       string         `db:"summary"`
	APIsOK        pq.StringArray `db:"apis_ok"`
	APIsDown      pq.StringArray `db:"apis_down"`
	RecurringGaps pq.StringArray `db:"recurring_gaps"`
	NewGaps       pq.StringArray `db:"new_gaps"`
	NewModels     pq.StringArray `db:"new_models"`
	CreatedAt     time.Time      `db:"created_at"`
}

// RecordRun appends one audit row for a completed health run
func (s *Store) RecordRun(ctx context.Context, table string, row AuditRow) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name: %q", table)
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, run_date, status, summary, apis_ok, apis_down, recurring_gaps, new_gaps, new_models)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, table)

	if _, err := s.db.ExecContext(ctx, query,
		row.ID, row.RunDate, row.Status, row.Summary,
		row.APIsOK, row.APIsDown, row.RecurringGaps, row.NewGaps, row.NewModels); err != nil {
		return fmt.Errorf("failed to insert audit row: %w", err)
	}
	return nil
}
