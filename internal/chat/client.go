package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	healthTimeout = 3 * time.Second

	// Stream-open retries use jittered backoff. This is deliberately
	// separate from the data-source loader's backoff, which is exact and
	// jitter-free.
	streamRetries    = 3
	streamRetryBase  = 500 * time.Millisecond
	streamJitterSpan = 250 * time.Millisecond
)

// Agent describes one agent or team exposed by the agent API.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RunInput is the payload for starting an agent run.
type RunInput struct {
	Message   string
	SessionID string
	UserID    string
	Files     []RunFile
}

// RunFile is an attachment sent with a run.
type RunFile struct {
	Name string
	Data []byte
}

// RunEvent is one decoded chunk of a streamed agent response.
type RunEvent struct {
	Event     string          `json:"event"`
	RunID     string          `json:"run_id"`
	Content   string          `json:"content"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Client talks to the external agent API (agent listing, run creation and
// cancellation, streamed responses, connectivity probing).
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the agent API at baseURL. A nil http
// client uses http.DefaultClient.
func NewClient(baseURL string, httpc *http.Client, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		logger:  logger,
	}
}

// ListAgents returns the agents the API exposes.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	return c.list(ctx, "/agents")
}

// ListTeams returns the agent teams the API exposes.
func (c *Client) ListTeams(ctx context.Context) ([]Agent, error) {
	return c.list(ctx, "/teams")
}

func (c *Client) list(ctx context.Context, path string) ([]Agent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent API unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent API returned %s for %s", resp.Status, path)
	}

	var agents []Agent
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return nil, fmt.Errorf("failed to decode agent list: %w", err)
	}
	return agents, nil
}

// CreateRun starts a streamed run and delivers decoded events on the
// returned channel. The channel closes when the stream ends or the context
// is canceled. Lines that are not valid JSON chunks are skipped silently.
func (c *Client) CreateRun(ctx context.Context, agentID string, in RunInput) (<-chan RunEvent, error) {
	resp, err := c.openStream(ctx, agentID, in)
	if err != nil {
		return nil, err
	}

	events := make(chan RunEvent)
	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			line = strings.TrimPrefix(line, "data: ")
			if line == "" {
				continue
			}

			var ev RunEvent
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				// Partial or malformed chunks are expected on a live
				// stream; skip and keep reading.
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			c.logger.Warn("agent stream ended with error", "error", err)
		}
	}()
	return events, nil
}

// openStream posts the multipart run request, retrying transient failures
// with jittered backoff before giving up.
func (c *Client) openStream(ctx context.Context, agentID string, in RunInput) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < streamRetries; attempt++ {
		if attempt > 0 {
			delay := streamRetryBase<<uint(attempt-1) + time.Duration(rand.Int63n(int64(streamJitterSpan)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.postRun(ctx, agentID, in)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Debug("agent run request failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("failed to start agent run after %d attempts: %w", streamRetries, lastErr)
}

func (c *Client) postRun(ctx context.Context, agentID string, in RunInput) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"message":    in.Message,
		"stream":     "true",
		"session_id": in.SessionID,
		"user_id":    in.UserID,
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	for _, f := range in.Files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/agents/%s/runs", c.baseURL, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("agent API returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return resp, nil
}

// CancelRun asks the agent API to cancel an in-flight run.
func (c *Client) CancelRun(ctx context.Context, agentID, runID string) error {
	url := fmt.Sprintf("%s/agents/%s/runs/%s/cancel", c.baseURL, agentID, runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to cancel run: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent API returned %s canceling run %s", resp.Status, runID)
	}
	return nil
}

// Health probes agent API connectivity with a short explicit timeout. The
// probe is independent of the data-source loader.
func (c *Client) Health(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("agent API unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent API health returned %s", resp.Status)
	}
	return nil
}
