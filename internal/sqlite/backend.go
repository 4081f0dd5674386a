// Package sqlite implements the SQLite storage backend for insighthub: the
// star schema, generic tabular access for imports and exports, and the typed
// queries the analytics services read from.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/insighthub/internal/logging"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

// MemoryDB is the DBFile value that keeps the database in memory.
const MemoryDB = ":memory:"

// tsLayout is the stored timestamp format: fixed width, so text order is
// time order.
const tsLayout = "2006-01-02T15:04:05.000000Z07:00"

// Backend implements the Warehouse interface on a single SQLite file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*Table

	log *logging.Logger
	now func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// WithClock sets the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		tables: make(map[string]*Table),
		log:    logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetTable returns a Table interface for the specified table name.
// Returns ErrTableNotFound if the table name is not recognized.
// Returns ErrWarehouseDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrWarehouseDetached
	}

	table, ok := b.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, name)
	}
	return table, nil
}

// Attach opens (or creates) the database file under DataDir, creates any
// missing tables and indexes, and builds the table accessors. An existing
// database keeps its data.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return err
	}

	dbPath := config.DBFile
	if dbPath != MemoryDB {
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		dbPath = filepath.Join(dataDir, config.DBFile)
	}

	db, err := openDB(dbPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return err
	}
	tables, err := b.loadTables(ctx, db)
	if err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.tables = tables
	b.attached = true
	b.log.Info("warehouse attached", "path", dbPath, "tables", len(tables))
	return nil
}

// Detach releases all resources held by the backend.
// After Detach, all operations return ErrWarehouseDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]*Table)
	b.log.Debug("warehouse detached")
	return nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Reset drops every table and recreates the empty schema.
func (b *Backend) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrWarehouseDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for i := len(types.StandardTableNames) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+types.StandardTableNames[i]); err != nil {
			return fmt.Errorf("drop %s: %w", types.StandardTableNames[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	if err := ensureSchema(ctx, b.db); err != nil {
		return err
	}
	tables, err := b.loadTables(ctx, b.db)
	if err != nil {
		return err
	}
	b.tables = tables
	b.log.Warn("warehouse reset", "tables", len(tables))
	return nil
}

// openDB opens the database with a single connection, WAL journaling and a
// busy timeout so concurrent processes wait on the file lock.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// loadTables builds a Table accessor per standard table from the live
// column definitions.
func (b *Backend) loadTables(ctx context.Context, db *sql.DB) (map[string]*Table, error) {
	tables := make(map[string]*Table, len(types.StandardTableNames))
	for _, name := range types.StandardTableNames {
		cols, err := tableColumns(ctx, db, name)
		if err != nil {
			return nil, err
		}
		t := &Table{backend: b, name: name, cols: cols, prefix: idPrefixes[name]}
		for _, c := range cols {
			if c.pk {
				t.key = c.name
			}
		}
		tables[name] = t
	}
	return tables, nil
}

func tableColumns(ctx context.Context, db *sql.DB, name string) ([]column, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+name+")")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			cid     int
			c       column
			dflt    sql.NullString
			notNull int
			pk      int
		)
		if err := rows.Scan(&cid, &c.name, &c.sqlType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, err)
		}
		c.sqlType = strings.ToUpper(c.sqlType)
		c.notNull = notNull == 1
		c.pk = pk > 0
		c.dflt = dflt.String
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrTableNotFound, name)
	}
	return cols, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the open database and holds the read lock until release is
// called, so Detach cannot close the handle mid-query.
func (b *Backend) conn() (db *sql.DB, release func(), err error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, types.ErrWarehouseDetached
	}
	return b.db, b.mu.RUnlock, nil
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (b *Backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, release, err := b.conn()
	if err != nil {
		return err
	}
	defer release()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (b *Backend) timestamp() string {
	return b.now().UTC().Format(tsLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// newID generates a prefixed UUID v7 key.
func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		id = uuid.New()
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	if prefix == "" {
		return hex
	}
	return prefix + "_" + hex
}
