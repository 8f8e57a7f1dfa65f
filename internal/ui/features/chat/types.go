package chat

import "github.com/blockether/sqlcockpit/internal/chat"

// SaveSessionsRequest replaces the caller's stored session list.
type SaveSessionsRequest struct {
	Sessions []chat.Session `json:"sessions"`
}

// ActiveSessionRequest points the caller at a session.
type ActiveSessionRequest struct {
	ID string `json:"id"`
}

// HealthResponse reports agent API connectivity.
type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}
