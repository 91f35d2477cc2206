package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/portagehq/portage/internal/db/driver"
)

// Querier is the common query surface shared by TrackerDB and TxOps.
// Entity helpers are written against it so the same code runs both
// directly and inside a transaction.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// TxRunner provides a transactional execution interface.
// This allows operations to run within a transaction context,
// ensuring atomicity of multi-table operations.
type TxRunner interface {
	// RunInTx executes the given function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	RunInTx(ctx context.Context, fn func(tx *TxOps) error) error
}

// TxOps provides database operations within a transaction.
// It wraps a driver.Tx to provide the same interface as TrackerDB
// but executes all operations within the transaction. The context is
// stored and used for all operations, enabling cancellation and
// timeout propagation through the entire transaction.
type TxOps struct {
	tx      driver.Tx
	dialect driver.Dialect
	ctx     context.Context
}

// Exec executes a query within the transaction.
func (t *TxOps) Exec(query string, args ...any) (sql.Result, error) {
	return t.tx.Exec(t.ctx, query, args...)
}

// Query executes a query that returns rows within the transaction.
func (t *TxOps) Query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.Query(t.ctx, query, args...)
}

// QueryRow executes a query that returns at most one row within the transaction.
func (t *TxOps) QueryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRow(t.ctx, query, args...)
}

// Context returns the context associated with this transaction.
func (t *TxOps) Context() context.Context {
	return t.ctx
}

// Dialect returns the database dialect.
func (t *TxOps) Dialect() driver.Dialect {
	return t.dialect
}

// TrackerDB provides operations on the tracker database (.portage/tracker.db).
type TrackerDB struct {
	*DB
}

// OpenTracker opens the tracker database at {root}/.portage/tracker.db using SQLite.
func OpenTracker(root string) (*TrackerDB, error) {
	path := filepath.Join(root, ".portage", "tracker.db")
	db, err := Open(path)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate("tracker"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &TrackerDB{DB: db}, nil
}

// OpenTrackerWithDialect opens the tracker database with a specific dialect.
// For SQLite, dsn is the file path. For PostgreSQL, dsn is the connection string.
func OpenTrackerWithDialect(dsn string, dialect driver.Dialect) (*TrackerDB, error) {
	db, err := OpenWithDialect(dsn, dialect)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate("tracker"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &TrackerDB{DB: db}, nil
}

// OpenTrackerInMemory opens an in-memory tracker database with migrations applied.
func OpenTrackerInMemory() (*TrackerDB, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, err
	}

	if err := db.Migrate("tracker"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &TrackerDB{DB: db}, nil
}

// RunInTx executes the given function within a database transaction.
// If fn returns an error, the transaction is rolled back.
// If fn returns nil, the transaction is committed.
// The context is propagated to all database operations within the
// transaction, enabling proper cancellation and timeout handling.
func (d *TrackerDB) RunInTx(ctx context.Context, fn func(tx *TxOps) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txOps := &TxOps{
		tx:      tx,
		dialect: d.Dialect(),
		ctx:     ctx,
	}

	if err := fn(txOps); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// parseTimestamp parses a stored timestamp, trying the formats the
// database may produce. Returns the zero time on failure.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// nullableString returns a pointer to s if non-empty, nil otherwise.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
