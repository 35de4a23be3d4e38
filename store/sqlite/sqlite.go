/*
Package sqlite provides a SQLite-backed implementation of inventory.Store.

PURPOSE:
  Persists the inventory ledger, sales and catalog in SQLite through
  database/sql and github.com/mattn/go-sqlite3. Every engine operation runs
  in WithTx; the *sql.Tx is the only concurrency control. There is no
  application lock around the database.

KEY TABLES:
  inventory_logs:  Ledger. Stock of a product = SUM(delta) of its rows
  sales:           Sale headers
  sales_details:   Sale lines, each owning at most one ledger row
  products, categories, customers, users: reference entities

CONSTRAINT NAMES:
  The schema names every integrity rule (see migrations/). Referential
  checks are BEFORE triggers that abort with the constraint name, so the
  store can report *which* reference failed. errors.go converts driver
  errors into *inventory.ConstraintError.

CONCURRENCY:
  The DSN enables WAL, a 5s busy timeout and BEGIN IMMEDIATE transactions.
  Writers queue on the database write lock instead of failing with
  SQLITE_BUSY on lock upgrade. ReadTx uses a second handle with deferred
  transactions, so readers see the last committed state without taking
  the write lock. An in-memory database is pinned to one connection and
  one handle, since every new connection would open an empty database.

USAGE:
  store, err := sqlite.New("./data/inventory.db", logger)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  sales := inventory.NewSales(store)

MIGRATION:
  Schema is migrated on New() with golang-migrate from the embedded
  migrations/ directory.

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/inventory"
)

const (
	dsnOptions     = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	readDSNOptions = "_foreign_keys=on&_busy_timeout=5000&_txlock=deferred"
)

// Store implements inventory.Store using SQLite.
type Store struct {
	db     *sql.DB
	readDB *sql.DB
	now    func() time.Time
}

// New opens the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?"+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	inMemory := strings.HasPrefix(dbPath, ":memory:")
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	migrator, err := NewMigrator(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store := NewWithDB(db)
	if !inMemory {
		readDB, err := sql.Open("sqlite3", dbPath+"?"+readDSNOptions)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open read handle: %w", err)
		}
		store.readDB = readDB
	}
	return store, nil
}

// NewWithDB wraps an already migrated database. Reads and writes share db.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, readDB: db, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the database connections.
func (s *Store) Close() error {
	if s.readDB != s.db {
		s.readDB.Close()
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SetClock replaces the time source used for ledger and sale timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, now: s.now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", constraintError(err))
	}
	return nil
}

// ReadTx executes fn within a read transaction on the read handle. The
// transaction is always rolled back.
func (s *Store) ReadTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	sqlTx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(&txStore{tx: sqlTx, now: s.now})
}

// txStore is the inventory.Tx view of one *sql.Tx.
type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

var (
	_ inventory.Store = (*Store)(nil)
	_ inventory.Tx    = (*txStore)(nil)
)

// insert runs an INSERT and returns the new row id.
func (ts *txStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := ts.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, constraintError(err)
	}
	return res.LastInsertId()
}

// execAffecting runs a statement that must touch at least one row.
func (ts *txStore) execAffecting(ctx context.Context, query string, args ...any) error {
	res, err := ts.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return constraintError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

// =============================================================================
// PATCH BUILDER
// =============================================================================

// update collects "column = ?" pairs for a partial UPDATE.
type update struct {
	sets []string
	args []any
}

func (u *update) set(column string, value any) {
	u.sets = append(u.sets, column+" = ?")
	u.args = append(u.args, value)
}

// exec applies the collected columns to the row with the given id.
// A row that does not exist yields inventory.ErrNotFound.
func (u *update) exec(ctx context.Context, ts *txStore, table string, id int64) error {
	if len(u.sets) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(u.sets, ", "))
	return ts.execAffecting(ctx, query, append(u.args, id)...)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64Ptr[T ~int64](v *T) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
