package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListAgents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"sql-helper","name":"SQL Helper","description":"answers SQL questions"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "sql-helper", agents[0].ID)
	assert.Equal(t, "SQL Helper", agents[0].Name)
}

func TestCreateRunStreamsEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/sql-helper/runs", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "explain this query", r.FormValue("message"))
		assert.Equal(t, "true", r.FormValue("stream"))
		assert.Equal(t, "sess-1", r.FormValue("session_id"))
		assert.Equal(t, "user-1", r.FormValue("user_id"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"event\":\"RunStarted\",\"run_id\":\"r1\"}\n")
		fmt.Fprint(w, "\n")
		fmt.Fprint(w, "data: not-json-keep-going\n")
		fmt.Fprint(w, "data: {\"event\":\"RunContent\",\"content\":\"SELECT ...\"}\n")
		fmt.Fprint(w, "data: {\"event\":\"RunCompleted\",\"run_id\":\"r1\"}\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	events, err := c.CreateRun(context.Background(), "sql-helper", RunInput{
		Message:   "explain this query",
		SessionID: "sess-1",
		UserID:    "user-1",
	})
	require.NoError(t, err)

	var got []RunEvent
	for ev := range events {
		got = append(got, ev)
	}

	// The malformed line is skipped silently.
	require.Len(t, got, 3)
	assert.Equal(t, "RunStarted", got[0].Event)
	assert.Equal(t, "r1", got[0].RunID)
	assert.Equal(t, "SELECT ...", got[1].Content)
	assert.Equal(t, "RunCompleted", got[2].Event)
}

func TestCreateRunSendsFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 1)
		assert.Equal(t, "schema.csv", files[0].Filename)

		f, err := files[0].Open()
		require.NoError(t, err)
		defer f.Close()
		content, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "a,b\n", string(content))

		fmt.Fprint(w, "data: {\"event\":\"RunCompleted\"}\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	events, err := c.CreateRun(context.Background(), "a1", RunInput{
		Message: "look at this",
		Files:   []RunFile{{Name: "schema.csv", Data: []byte("a,b\n")}},
	})
	require.NoError(t, err)
	for range events {
	}
}

func TestCreateRunRetriesWithBackoff(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "data: {\"event\":\"RunCompleted\"}\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	events, err := c.CreateRun(context.Background(), "a1", RunInput{Message: "hi"})
	require.NoError(t, err)
	for range events {
	}
	assert.Equal(t, 3, calls)
}

func TestCreateRunGivesUpAfterRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	_, err := c.CreateRun(context.Background(), "a1", RunInput{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, streamRetries, calls)
}

func TestCancelRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/agents/a1/runs/r9/cancel", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	require.NoError(t, c.CancelRun(context.Background(), "a1", "r9"))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	assert.NoError(t, c.Health(context.Background()))
}

func TestHealthTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(10 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Health(ctx)
	require.Error(t, err)
}
