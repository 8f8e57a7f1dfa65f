// Package sources provides handlers for managing the cockpit's data sources:
// listing, uploads, url registration, removal, and a live status stream.
package sources

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/blockether/sqlcockpit/internal/source"
)

// maxUploadBytes caps in-memory multipart parsing for uploads.
const maxUploadBytes = 512 << 20

// Reconciler is the part of the load orchestrator the handlers drive.
type Reconciler interface {
	Reconcile(ctx context.Context)
	Loading() bool
	Forget(id string)
}

// Handlers provides HTTP handlers for the sources feature.
type Handlers struct {
	registry *source.Registry
	orch     Reconciler
	logger   *slog.Logger

	// baseCtx outlives individual requests so a reconcile pass started by an
	// upload keeps running after the response is written.
	baseCtx context.Context
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(baseCtx context.Context, registry *source.Registry, orch Reconciler, logger *slog.Logger) *Handlers {
	return &Handlers{
		registry: registry,
		orch:     orch,
		logger:   logger,
		baseCtx:  baseCtx,
	}
}

// List returns the current source list as JSON.
func (h *Handlers) List(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.snapshot())
}

// StreamSSE pushes the source list into the page signals on every registry
// change until the client disconnects.
func (h *Handlers) StreamSSE(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.registry.Subscribe()
	defer h.registry.Unsubscribe(updates)

	if err := sse.MarshalAndPatchSignals(h.signals()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-updates:
			if err := sse.MarshalAndPatchSignals(h.signals()); err != nil {
				return
			}
		}
	}
}

// Upload registers an uploaded file as a new source and kicks off a load.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	ds := source.NewFromFile(header.Filename, data, r.FormValue("table_name"))
	if err := h.registry.Add(ds); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	h.logger.Info("file source added", "table", ds.TableName, "bytes", len(data))
	h.kickReconcile()
	h.writeJSON(w, toView(ds))
}

// AddURL registers a url-backed source and kicks off a load.
func (h *Handlers) AddURL(w http.ResponseWriter, r *http.Request) {
	var req AddURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	ds := source.NewFromURL(rawURL, req.TableName)
	if err := h.registry.Add(ds); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	h.logger.Info("url source added", "table", ds.TableName, "url", rawURL)
	h.kickReconcile()
	h.writeJSON(w, toView(ds))
}

// Remove deletes a source. The orchestrator forgets its confirmation so
// re-adding the same source forces a fresh load.
func (h *Handlers) Remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.registry.Remove(id)
	h.orch.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

// Reload triggers a reconcile pass over all pending sources.
func (h *Handlers) Reload(w http.ResponseWriter, _ *http.Request) {
	h.kickReconcile()
	w.WriteHeader(http.StatusAccepted)
}

// kickReconcile starts a reconcile pass detached from the request lifetime.
func (h *Handlers) kickReconcile() {
	go h.orch.Reconcile(h.baseCtx)
}

func (h *Handlers) snapshot() []SourceView {
	snap := h.registry.Snapshot()
	views := make([]SourceView, len(snap))
	for i, ds := range snap {
		views[i] = toView(ds)
	}
	return views
}

func (h *Handlers) signals() SourceSignals {
	return SourceSignals{
		Sources: h.snapshot(),
		Loading: h.orch.Loading(),
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
