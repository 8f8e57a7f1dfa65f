// Package query provides handlers for executing SQL against the cockpit
// database and exporting result slices.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/blockether/sqlcockpit/internal/grid"
	"github.com/blockether/sqlcockpit/internal/result"
)

// Database is the part of the connection facade the query feature needs.
type Database interface {
	Query(ctx context.Context, sql string) (*sql.Rows, error)
	Cancel()
}

// Handlers provides HTTP handlers for the query feature.
type Handlers struct {
	db     Database
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db Database, logger *slog.Logger) *Handlers {
	return &Handlers{db: db, logger: logger}
}

// ExecuteSSE executes a SQL statement and patches the result (or the
// classified error) back into the page signals.
func (h *Handlers) ExecuteSSE(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body).
	var signals QuerySignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}

	sse := datastar.NewSSE(w, r)

	stmt := strings.TrimSpace(signals.SQL)
	if stmt == "" {
		h.patch(sse, ResultSignals{
			QueryError: &result.SQLError{Type: result.ErrSyntax, Message: "query cannot be empty"},
		})
		return
	}

	res, sqlErr := result.Run(r.Context(), h.db, stmt)
	if sqlErr != nil {
		h.logger.Debug("query failed", "type", sqlErr.Type, "error", sqlErr.Message)
		h.patch(sse, ResultSignals{QueryError: sqlErr})
		return
	}

	h.logger.Debug("query executed", "rows", res.RowCount, "ms", res.ExecutionTime)
	h.patch(sse, ResultSignals{Result: res})
}

// Cancel interrupts the in-flight statement, if any.
func (h *Handlers) Cancel(w http.ResponseWriter, _ *http.Request) {
	h.db.Cancel()
	w.WriteHeader(http.StatusOK)
}

// Export re-executes a statement and streams the selected slice of the
// result as a CSV or JSON download.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := datastar.ReadSignals(r, &req); err != nil {
		http.Error(w, "invalid export request: "+err.Error(), http.StatusBadRequest)
		return
	}

	stmt := strings.TrimSpace(req.SQL)
	if stmt == "" {
		http.Error(w, "query cannot be empty", http.StatusBadRequest)
		return
	}

	res, sqlErr := result.Run(r.Context(), h.db, stmt)
	if sqlErr != nil {
		http.Error(w, sqlErr.Error(), http.StatusBadRequest)
		return
	}

	sel := buildSelection(req.Mode, req.Indices)

	switch req.Format {
	case "json":
		payload, err := grid.ExportJSON(res, sel)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="query_results.json"`)
		_, _ = w.Write([]byte(payload))

	case "csv", "":
		payload, err := grid.ExportCSV(res, sel)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="query_results.csv"`)
		_, _ = w.Write([]byte(payload))

	default:
		http.Error(w, "unsupported export format: "+req.Format, http.StatusBadRequest)
	}
}

func (h *Handlers) patch(sse *datastar.ServerSentEventGenerator, signals ResultSignals) {
	if err := sse.MarshalAndPatchSignals(signals); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// buildSelection replays the requested indices into a grid selection. The
// first index acts as the initial click, the rest toggle in.
func buildSelection(mode string, indices []int) *grid.Selection {
	sel := &grid.Selection{}

	var m grid.Mode
	switch mode {
	case "rows":
		m = grid.ModeRow
	case "columns":
		m = grid.ModeColumn
	default:
		return sel
	}

	for i, idx := range indices {
		if i == 0 {
			sel.Click(m, idx)
			continue
		}
		sel.CtrlClick(m, idx)
	}
	return sel
}
