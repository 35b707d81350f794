// Package bufferapi provides an HTTP client speaking the session-buffer
// actor protocol, for deployments where the buffer runs out of process. It
// implements buffer.Adapter, so the use cases do not care which side of the
// wire the buffer lives on.
package bufferapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/firmly/dvr/internal/buffer"
	"github.com/firmly/dvr/internal/domain"
)

// Client calls a remote session buffer over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a buffer client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type appendResponse struct {
	Success    bool `json:"success"`
	Buffered   bool `json:"buffered"`
	EventCount int  `json:"eventCount"`
}

// Append forwards a batch to the remote buffer.
func (c *Client) Append(ctx context.Context, sessionID string, events []domain.Event) (*buffer.AppendResult, error) {
	req := map[string]interface{}{
		"sessionId": sessionID,
		"events":    events,
	}
	var resp appendResponse
	if err := c.post(ctx, "/append", req, &resp); err != nil {
		return nil, domain.NewBuffer("append", err)
	}
	if !resp.Success {
		return nil, domain.NewBuffer("append", fmt.Errorf("buffer returned success=false"))
	}
	return &buffer.AppendResult{EventCount: resp.EventCount}, nil
}

type finalizeResponse struct {
	Success     bool                `json:"success"`
	Finalized   bool                `json:"finalized"`
	SessionData *domain.SessionData `json:"sessionData"`
}

// Finalize closes the session on the remote buffer and returns its data.
func (c *Client) Finalize(ctx context.Context, sessionID string) (*domain.SessionData, error) {
	req := map[string]interface{}{"sessionId": sessionID}
	var resp finalizeResponse
	if err := c.post(ctx, "/finalize", req, &resp); err != nil {
		return nil, domain.NewBuffer("finalize", err)
	}
	if !resp.Success || resp.SessionData == nil {
		return nil, domain.NewBuffer("finalize", fmt.Errorf("buffer returned no session data"))
	}
	return resp.SessionData, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("buffer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("buffer returned status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
