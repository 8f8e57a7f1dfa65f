// Package chat provides handlers for the assistant panel: agent listing,
// streamed run proxying, session persistence, and connectivity probing.
package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/blockether/sqlcockpit/internal/chat"
)

const (
	cookieName  = "sqlcockpit_session"
	userIDKey   = "user_id"
	maxRunBytes = 64 << 20
)

// Handlers provides HTTP handlers for the chat feature.
type Handlers struct {
	client       *chat.Client
	store        *chat.Store
	sessionStore sessions.Store
	defaultUser  string
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *chat.Client, store *chat.Store, sessionStore sessions.Store, defaultUser string, logger *slog.Logger) *Handlers {
	return &Handlers{
		client:       client,
		store:        store,
		sessionStore: sessionStore,
		defaultUser:  defaultUser,
		logger:       logger,
	}
}

// userID resolves the caller's identity from the cookie session, minting one
// on first contact. Falls back to the configured default user when the
// session cannot be written.
func (h *Handlers) userID(w http.ResponseWriter, r *http.Request) string {
	sess, _ := h.sessionStore.Get(r, cookieName)
	if id, ok := sess.Values[userIDKey].(string); ok && id != "" {
		return id
	}

	id := h.defaultUser
	if id == "" || id == "default" {
		id = uuid.New().String()
	}
	sess.Values[userIDKey] = id
	if err := sess.Save(r, w); err != nil {
		h.logger.Debug("failed to persist session cookie", "error", err)
		return h.defaultUser
	}
	return id
}

// Agents lists the agents the external API exposes.
func (h *Handlers) Agents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.client.ListAgents(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, agents)
}

// Teams lists the agent teams the external API exposes.
func (h *Handlers) Teams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.client.ListTeams(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, teams)
}

// Health probes agent API connectivity. Always returns 200; the payload
// carries the verdict so the panel can render a degraded state.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Healthy: true}
	if err := h.client.Health(r.Context()); err != nil {
		resp = HealthResponse{Healthy: false, Error: err.Error()}
	}
	h.writeJSON(w, resp)
}

// CreateRun starts an agent run and relays the event stream to the browser
// as server-sent events.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	if err := r.ParseMultipartForm(maxRunBytes); err != nil {
		http.Error(w, "invalid run request: "+err.Error(), http.StatusBadRequest)
		return
	}

	in := chat.RunInput{
		Message:   r.FormValue("message"),
		SessionID: r.FormValue("session_id"),
		UserID:    h.userID(w, r),
	}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, "failed to read attachment: "+err.Error(), http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				http.Error(w, "failed to read attachment: "+err.Error(), http.StatusBadRequest)
				return
			}
			in.Files = append(in.Files, chat.RunFile{Name: fh.Filename, Data: data})
		}
	}

	events, err := h.client.CreateRun(r.Context(), agentID, in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// CancelRun relays a cancel request to the agent API.
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	runID := chi.URLParam(r, "runID")
	if err := h.client.CancelRun(r.Context(), agentID, runID); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Sessions returns the caller's stored session list.
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions(h.userID(w, r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	h.writeJSON(w, sessions)
}

// SaveSessions replaces the caller's stored session list.
func (h *Handlers) SaveSessions(w http.ResponseWriter, r *http.Request) {
	var req SaveSessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.SaveSessions(h.userID(w, r), req.Sessions); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActiveSession returns the caller's active session id.
func (h *Handlers) ActiveSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.ActiveSession(h.userID(w, r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, ActiveSessionRequest{ID: id})
}

// SetActiveSession records the caller's active session id.
func (h *Handlers) SetActiveSession(w http.ResponseWriter, r *http.Request) {
	var req ActiveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.SetActiveSession(h.userID(w, r), req.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
