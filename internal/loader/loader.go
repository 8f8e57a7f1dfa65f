// Package loader reconciles the configured data-source list against the live
// database: it decides which sources need a load attempt, loads them one at a
// time with exponential backoff between items, and isolates failures so one
// bad import never aborts the batch.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockether/sqlcockpit/internal/source"
)

// Database is the slice of the connection facade the orchestrator needs.
type Database interface {
	Exec(ctx context.Context, sql string) error
	TableExists(ctx context.Context, table string) (bool, error)
	Describe(ctx context.Context, table string) ([]ColumnInfo, error)
	RegisterFileBuffer(name string, data []byte) (string, error)
	DropFile(name string) error
}

// ColumnInfo mirrors duck.ColumnInfo so the orchestrator does not depend on
// the concrete facade.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

// Fetcher retrieves the bytes behind a URL-backed source.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Handle identifies one orchestration run. A run stays valid until a newer
// run is started on the same orchestrator; every unit of work re-checks
// validity before mutating registry state or waiting.
type Handle struct {
	id  uint64
	cur *atomic.Uint64
}

// Invalidated reports whether a newer run has superseded this one.
func (h Handle) Invalidated() bool {
	return h.cur.Load() != h.id
}

// Orchestrator owns the reconcile loop between a source registry and a live
// database connection.
type Orchestrator struct {
	registry *source.Registry
	db       Database
	fetcher  Fetcher
	logger   *slog.Logger

	// sleep is swappable so tests can assert the backoff schedule without
	// real delays.
	sleep func(ctx context.Context, d time.Duration) error

	current atomic.Uint64
	loading atomic.Bool

	mu        sync.Mutex
	confirmed map[string]struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFetcher overrides the URL fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) { o.fetcher = f }
}

// WithSleep overrides the backoff sleep function.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// New creates an orchestrator bound to a registry and database connection.
func New(registry *source.Registry, db Database, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  registry,
		db:        db,
		fetcher:   NewHTTPFetcher(nil),
		logger:    logger,
		sleep:     sleepCtx,
		confirmed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Loading reports whether a batch is currently in flight.
func (o *Orchestrator) Loading() bool {
	return o.loading.Load()
}

// Reconcile runs one orchestration pass. Starting a pass immediately
// invalidates any in-flight pass; the superseded pass stops before its next
// status mutation or wait, leaving unprocessed sources untouched. Reconcile
// never returns per-source errors: every failure is recorded on the source
// itself.
func (o *Orchestrator) Reconcile(ctx context.Context) {
	handle := o.newHandle()

	pending := o.pendingSet()
	if len(pending) == 0 {
		// A superseded run leaves the flag for the run that replaced it;
		// if that run has nothing to do, the flag is now this run's to
		// clear.
		if !handle.Invalidated() {
			o.loading.Store(false)
		}
		return
	}

	o.loading.Store(true)
	defer func() {
		// A superseded run must not clear the flag out from under the run
		// that superseded it.
		if !handle.Invalidated() {
			o.loading.Store(false)
		}
	}()

	o.logger.Debug("reconciling data sources", "pending", len(pending), "run", handle.id)

	for i, ds := range pending {
		if handle.Invalidated() {
			o.logger.Debug("run superseded, aborting", "run", handle.id)
			return
		}
		o.registry.SetStatus(ds.ID, source.StatusLoading, "")

		if i > 0 {
			delay := time.Duration(1<<uint(i)) * time.Second
			if err := o.sleep(ctx, delay); err != nil {
				return
			}
			if handle.Invalidated() {
				o.logger.Debug("run superseded during backoff", "run", handle.id)
				return
			}
		}

		err := o.loadOne(ctx, ds)

		if handle.Invalidated() {
			// The work is done but the result belongs to a stale run; a
			// newer run owns all status writes from here on.
			return
		}

		if err != nil {
			o.logger.Warn("data source load failed", "table", ds.TableName, "error", err)
			o.registry.SetStatus(ds.ID, source.StatusFailed, err.Error())
			continue
		}

		o.confirm(ds.ID)
		o.registry.SetStatus(ds.ID, source.StatusLoaded, "")
		if cols, derr := o.db.Describe(ctx, ds.TableName); derr == nil {
			o.registry.SetSchema(ds.ID, toSourceColumns(cols))
		}
		o.logger.Debug("data source loaded", "table", ds.TableName)
	}
}

// pendingSet returns the sources that need a load attempt: everything except
// sources both confirmed loaded this session and currently reporting loaded.
func (o *Orchestrator) pendingSet() []source.DataSource {
	o.mu.Lock()
	defer o.mu.Unlock()

	var pending []source.DataSource
	for _, ds := range o.registry.Snapshot() {
		_, ok := o.confirmed[ds.ID]
		if ok && ds.LoadingStatus == source.StatusLoaded {
			continue
		}
		pending = append(pending, ds)
	}
	return pending
}

func (o *Orchestrator) newHandle() Handle {
	id := o.current.Add(1)
	return Handle{id: id, cur: &o.current}
}

func (o *Orchestrator) confirm(id string) {
	o.mu.Lock()
	o.confirmed[id] = struct{}{}
	o.mu.Unlock()
}

// Forget drops a source from the confirmed set, forcing a reload on the next
// pass. Called when a source is removed and re-added under the same id.
func (o *Orchestrator) Forget(id string) {
	o.mu.Lock()
	delete(o.confirmed, id)
	o.mu.Unlock()
}

// loadOne brings one source's table into existence. Resolution order: probe
// for an existing table first (making repeated passes idempotent and skipping
// fetches for already-present URL sources), then fall back to whichever
// origin the source carries.
func (o *Orchestrator) loadOne(ctx context.Context, ds source.DataSource) error {
	exists, err := o.db.TableExists(ctx, ds.TableName)
	if err != nil {
		return fmt.Errorf("failed to probe table %s: %w", ds.TableName, err)
	}
	if exists {
		return nil
	}

	switch {
	case ds.URL != "":
		body, err := o.fetcher.Fetch(ctx, ds.URL)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", ds.URL, err)
		}
		return o.importFile(ctx, fileNameFromURL(ds.URL), body, ds.TableName)

	case ds.FileData != nil:
		return o.importFile(ctx, ds.FileData.Name, ds.FileData.Bytes, ds.TableName)

	case ds.Data != nil:
		return o.importInline(ctx, ds)

	default:
		return fmt.Errorf("table %s does not exist and the source has no data to load it from", ds.TableName)
	}
}

// importFile stages the bytes as a file and creates the table from it, with
// the reader function chosen by file extension.
func (o *Orchestrator) importFile(ctx context.Context, fileName string, data []byte, tableName string) error {
	readFn, err := readerForFile(fileName)
	if err != nil {
		return err
	}

	path, err := o.db.RegisterFileBuffer(fileName, data)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", quoteIdent(tableName), readFn(path))
	if err := o.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return nil
}

// importInline serializes inline rows to CSV, registers the bytes as a
// virtual file, creates the table, and always drops the file afterwards.
func (o *Orchestrator) importInline(ctx context.Context, ds source.DataSource) error {
	csvData, err := marshalCSV(ds.Data)
	if err != nil {
		return fmt.Errorf("failed to serialize inline rows: %w", err)
	}

	fileName := ds.TableName + ".csv"
	path, err := o.db.RegisterFileBuffer(fileName, csvData)
	if err != nil {
		return err
	}
	defer func() { _ = o.db.DropFile(fileName) }()

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv(%s, AUTO_DETECT=TRUE)",
		quoteIdent(ds.TableName), quotePath(path))
	if err := o.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create table %s: %w", ds.TableName, err)
	}
	return nil
}

// readerForFile maps a file extension to the DuckDB table function that reads
// it. Unknown extensions are an explicit failure, not a silent skip.
func readerForFile(fileName string) (func(path string) string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return func(p string) string { return fmt.Sprintf("read_csv(%s, AUTO_DETECT=TRUE)", quotePath(p)) }, nil
	case ".parquet":
		return func(p string) string { return fmt.Sprintf("read_parquet(%s)", quotePath(p)) }, nil
	case ".json", ".jsonl":
		return func(p string) string { return fmt.Sprintf("read_json(%s, AUTO_DETECT=TRUE)", quotePath(p)) }, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q for %s", filepath.Ext(fileName), fileName)
	}
}

func fileNameFromURL(rawURL string) string {
	name := rawURL
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "download"
	}
	return name
}

func toSourceColumns(cols []ColumnInfo) []source.Column {
	out := make([]source.Column, len(cols))
	for i, c := range cols {
		out[i] = source.Column{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return out
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func quoteIdent(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func quotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}
