// Package opa implements a thin HTTP client for the Open Policy Agent
// REST API: health probing, data document pushes, policy module management
// and query evaluation.
package opa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/infodir/opa-permission-api/internal/config"
)

const (
	defaultTimeout = 5 * time.Second

	healthAttempts = 3

	// healthBackoff is the delay before the second health attempt; the
	// delay doubles for each further attempt.
	healthBackoff = time.Second

	contentTypeJSON = "application/json"
	contentTypeText = "text/plain"
)

// Client talks to a single OPA server. All requests share one pooled
// http.Client with a uniform timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

// New creates a Client for the server configured in cfg. A zero timeout
// falls back to a 5 second default.
func New(cfg config.OPA) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		backoff:    healthBackoff,
	}
}

// HealthCheck probes GET /health. Transport failures are retried up to
// three times with increasing delays; a response with any status is
// accepted as an answer and never retried. It returns whether the server
// reported itself healthy, or an *UnreachableError when no attempt got a
// response at all.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	var lastErr error

	for attempt := 1; attempt <= healthAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoff * time.Duration(attempt-1)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false, &UnreachableError{Attempts: attempt - 1, Err: ctx.Err()}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			return false, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err

			log.Warn().Err(err).Int("attempt", attempt).Msg("OPA health probe failed")

			continue
		}

		drain(resp)

		if resp.StatusCode != http.StatusOK {
			log.Warn().Int("status", resp.StatusCode).Msg("OPA health check returned non-OK status")

			return false, nil
		}

		return true, nil
	}

	return false, &UnreachableError{Attempts: healthAttempts, Err: lastErr}
}

// PushData replaces the data document at /v1/data/<path> with data.
func (c *Client) PushData(ctx context.Context, path string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPut, "/v1/data/"+path, contentTypeJSON, bytes.NewReader(body))
	if err != nil {
		return &SyncError{Op: "push data", Path: path, Err: err}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &SyncError{Op: "push data", Path: path, Status: resp.StatusCode, Detail: readBody(resp)}
	}

	return nil
}

// UploadPolicy creates or replaces the Rego policy module with the given id.
func (c *Client) UploadPolicy(ctx context.Context, id, content string) error {
	resp, err := c.do(ctx, http.MethodPut, "/v1/policies/"+id, contentTypeText, strings.NewReader(content))
	if err != nil {
		return &SyncError{Op: "upload policy", Path: id, Err: err}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &SyncError{Op: "upload policy", Path: id, Status: resp.StatusCode, Detail: readBody(resp)}
	}

	return nil
}

// DeletePolicy removes the policy module with the given id.
func (c *Client) DeletePolicy(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/policies/"+id, "", nil)
	if err != nil {
		return &SyncError{Op: "delete policy", Path: id, Err: err}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return &SyncError{Op: "delete policy", Path: id, Status: resp.StatusCode, Detail: readBody(resp)}
	}

	return nil
}

// Evaluate queries the document at /v1/data/<path> with the given input
// and returns the raw result field of the response. An undefined document
// yields an empty result.
func (c *Client) Evaluate(ctx context.Context, path string, input any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/data/"+path, contentTypeJSON, bytes.NewReader(body))
	if err != nil {
		return nil, &SyncError{Op: "evaluate", Path: path, Err: err}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, &SyncError{Op: "evaluate", Path: path, Status: resp.StatusCode, Detail: readBody(resp)}
	}

	var result struct {
		Result json.RawMessage `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode evaluation response for %q: %w", path, err)
	}

	return result.Result, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

func readBody(resp *http.Response) string {
	const maxDetail = 4 << 10

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDetail))
	if err != nil {
		return ""
	}

	return string(body)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
