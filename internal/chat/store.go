// Package chat integrates the cockpit's assistant panel: a client for the
// external agent HTTP API and a persistent store for chat sessions.
package chat

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// Session is one saved conversation with an agent.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AgentID   string    `json:"agent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists chat sessions in a SQLite key-value table. Values are JSON
// blobs keyed per user; writes are last-write-wins with no payload
// migration.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the session store at path. Use ":memory:"
// for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping session store: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate runs all pending schema migrations.
func (s *Store) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func sessionsKey(user string) string { return "chat:sessions:" + user }
func activeKey(user string) string   { return "chat:active:" + user }

// SaveSessions replaces the full session list for a user.
func (s *Store) SaveSessions(user string, sessions []Session) error {
	payload, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	return s.put(sessionsKey(user), string(payload))
}

// Sessions returns the saved session list for a user. A user with no saved
// sessions gets an empty list, not an error.
func (s *Store) Sessions(user string) ([]Session, error) {
	raw, err := s.get(sessionsKey(user))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sessions []Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// SetActiveSession records which session the user currently has open.
func (s *Store) SetActiveSession(user, sessionID string) error {
	return s.put(activeKey(user), sessionID)
}

// ActiveSession returns the active session id for a user, or empty when
// none is set.
func (s *Store) ActiveSession(user string) (string, error) {
	id, err := s.get(activeKey(user))
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (s *Store) put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	return value, err
}
