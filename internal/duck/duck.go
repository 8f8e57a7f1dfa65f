// Package duck wraps the embedded DuckDB engine behind a small facade:
// query execution, best-effort cancellation, schema introspection, and a
// staging area for registering in-memory file buffers the engine can read.
//
// The facade never retries. Retry policy belongs to callers; only the load
// orchestrator retries, ad hoc user queries do not.
package duck

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Connection is a live DuckDB session plus its file staging directory.
type Connection struct {
	db         *sql.DB
	stagingDir string
	ownStaging bool

	mu             sync.Mutex
	inflightGen    uint64
	cancelInflight context.CancelFunc
}

// ColumnInfo describes a single column returned by Describe.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

// Connect opens a DuckDB database at the given path. Use ":memory:" or the
// empty string for an in-memory database. A temporary staging directory is
// created for registered file buffers and removed on Close.
func Connect(ctx context.Context, path string) (*Connection, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	staging, err := os.MkdirTemp("", "sqlcockpit-staging-*")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return &Connection{db: db, stagingDir: staging, ownStaging: true}, nil
}

// NewWithDB wraps an existing database handle. The staging directory is not
// removed on Close. Intended for tests and embedding.
func NewWithDB(db *sql.DB, stagingDir string) *Connection {
	return &Connection{db: db, stagingDir: stagingDir}
}

// Close closes the database and removes the staging directory if owned.
func (c *Connection) Close() error {
	if c.ownStaging && c.stagingDir != "" {
		_ = os.RemoveAll(c.stagingDir)
	}
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the underlying handle for callers that need raw access.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Query executes a statement that returns rows. The in-flight statement's
// cancel func is retained so Cancel can interrupt it.
func (c *Connection) Query(ctx context.Context, sqlStr string) (*sql.Rows, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	qctx, cancel := context.WithCancel(ctx)
	gen := c.beginStatement(cancel)
	defer c.endStatement(gen)

	//nolint:rowserrcheck // rows.Err() must be checked by the caller after iteration
	rows, err := c.db.QueryContext(qctx, sqlStr)
	if err != nil {
		cancel()
		return nil, err
	}
	return rows, nil
}

// Exec executes a statement that returns no rows.
func (c *Connection) Exec(ctx context.Context, sqlStr string) error {
	if c.db == nil {
		return fmt.Errorf("database connection not established")
	}

	qctx, cancel := context.WithCancel(ctx)
	defer cancel()
	gen := c.beginStatement(cancel)
	defer c.endStatement(gen)

	if _, err := c.db.ExecContext(qctx, sqlStr); err != nil {
		return err
	}
	return nil
}

// Cancel interrupts the most recently started statement, if any. Best effort:
// a statement that already completed is unaffected.
func (c *Connection) Cancel() {
	c.mu.Lock()
	cancel := c.cancelInflight
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Connection) beginStatement(cancel context.CancelFunc) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflightGen++
	c.cancelInflight = cancel
	return c.inflightGen
}

// endStatement clears the cancel func only if no newer statement replaced it.
func (c *Connection) endStatement(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflightGen == gen {
		c.cancelInflight = nil
	}
}

// TableExists probes whether a relation is queryable. The probe is a plain
// select so it works for tables and views alike.
func (c *Connection) TableExists(ctx context.Context, table string) (bool, error) {
	if c.db == nil {
		return false, fmt.Errorf("database connection not established")
	}

	probe := fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", QuoteIdent(table))
	rows, err := c.db.QueryContext(ctx, probe)
	if err != nil {
		// DuckDB reports missing relations as a catalog error. Treat any
		// probe failure as absence and let the subsequent create surface
		// real problems.
		return false, nil
	}
	defer func() { _ = rows.Close() }()
	return true, rows.Err()
}

// Describe returns the column layout of a relation via DESCRIBE.
func (c *Connection) Describe(ctx context.Context, table string) ([]ColumnInfo, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("DESCRIBE %s", QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []ColumnInfo
	for rows.Next() {
		var name, colType, null string
		var key, defaultVal, extra sql.NullString
		if err := rows.Scan(&name, &colType, &null, &key, &defaultVal, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan describe row: %w", err)
		}
		cols = append(cols, ColumnInfo{
			Name:     name,
			Type:     colType,
			Nullable: strings.EqualFold(null, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating describe rows: %w", err)
	}
	return cols, nil
}

// RegisterFileBuffer writes bytes into the staging directory under the given
// name and returns the path the engine can read from. Names are flattened to
// their base name so callers cannot escape the staging directory.
func (c *Connection) RegisterFileBuffer(name string, data []byte) (string, error) {
	if c.stagingDir == "" {
		return "", fmt.Errorf("no staging directory configured")
	}
	path := filepath.Join(c.stagingDir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage file %s: %w", name, err)
	}
	return path, nil
}

// DropFile removes a previously registered file buffer.
func (c *Connection) DropFile(name string) error {
	if c.stagingDir == "" {
		return fmt.Errorf("no staging directory configured")
	}
	path := filepath.Join(c.stagingDir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to drop file %s: %w", name, err)
	}
	return nil
}

// QuoteIdent quotes an identifier for DuckDB, escaping embedded quotes.
// Dotted names are quoted per segment so schema-qualified tables work.
func QuoteIdent(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// QuotePath quotes a file path as a SQL string literal.
func QuotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}
