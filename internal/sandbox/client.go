// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sandbox provisions and manages ephemeral remote execution
// environments. A single bearer-authenticated RPC client carries every
// exec/file operation under one uniform retry policy; the lifecycle manager
// drives the provisioning state machine and guarantees teardown.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// rpcBaseDelay is the starting backoff for RPC retries. Tests override this
// to avoid real sleeps.
var rpcBaseDelay = 1500 * time.Millisecond

const (
	rpcTimeout       = 10 * time.Minute
	rpcMaxRetries    = 3
	createMaxRetries = 4
)

// CreateRequest asks for a new sandbox.
type CreateRequest struct {
	Priority    string `json:"priority"`
	Preemptable bool   `json:"preemptable"`
	Flavor      string `json:"flavor"`
}

// Session identifies one live sandbox.
type Session struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	WorkingDir string `json:"workingDirectory"`
}

// StatusResponse reports remote sandbox health.
type StatusResponse struct {
	Healthy bool   `json:"healthy"`
	Status  string `json:"status"`
}

// ExecRequest runs one command inside the sandbox.
type ExecRequest struct {
	Command   string            `json:"command"`
	Env       map[string]string `json:"env,omitempty"`
	TimeoutMs int               `json:"timeoutMs,omitempty"`
}

// ExecResult is the outcome of one exec call.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// RPC is the sandbox service surface. Implemented by Client; tests supply
// scripted fakes.
type RPC interface {
	Create(ctx context.Context, req CreateRequest) (Session, error)
	Status(ctx context.Context, id string) (StatusResponse, error)
	Exec(ctx context.Context, id string, req ExecRequest) (ExecResult, error)
	WriteFile(ctx context.Context, id, path, content string) error
	ReadFile(ctx context.Context, id, path string) (string, error)
	ListFiles(ctx context.Context, id, path string) ([]string, error)
	Terminate(ctx context.Context, id string) error
}

// RPCError is a non-2xx sandbox response. The body is consulted for retry
// classification.
type RPCError struct {
	Status int
	Body   string
}

func (e *RPCError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return fmt.Sprintf("sandbox RPC returned HTTP %d: %s", e.Status, msg)
}

// retryableRPC reports whether an RPC failure warrants a retry: any 5xx,
// 429, or an "upstream error" marker in the response body.
func retryableRPC(err error) bool {
	re, ok := err.(*RPCError)
	if !ok {
		return false
	}
	if re.Status >= 500 || re.Status == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(re.Body), "upstream error")
}

// Client is the production RPC implementation.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient builds a Client from the sandbox configuration.
func NewClient(cfg types.SandboxConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: rpcTimeout},
		log:     log,
	}
}

// Create provisions a new sandbox. Creation gets one extra retry over the
// uniform policy because a failed create leaves nothing to clean up.
func (c *Client) Create(ctx context.Context, req CreateRequest) (Session, error) {
	var s Session
	err := c.call(ctx, http.MethodPost, "/sandboxes", req, &s, createMaxRetries)
	return s, err
}

// Status reports the sandbox's remote health.
func (c *Client) Status(ctx context.Context, id string) (StatusResponse, error) {
	var s StatusResponse
	err := c.call(ctx, http.MethodGet, "/sandboxes/"+url.PathEscape(id)+"/status", nil, &s, rpcMaxRetries)
	return s, err
}

// Exec runs a command inside the sandbox.
func (c *Client) Exec(ctx context.Context, id string, req ExecRequest) (ExecResult, error) {
	var r ExecResult
	err := c.call(ctx, http.MethodPost, "/sandboxes/"+url.PathEscape(id)+"/exec", req, &r, rpcMaxRetries)
	return r, err
}

// WriteFile writes content to a path inside the sandbox.
func (c *Client) WriteFile(ctx context.Context, id, path, content string) error {
	body := map[string]string{"path": path, "content": content}
	return c.call(ctx, http.MethodPost, "/sandboxes/"+url.PathEscape(id)+"/files", body, nil, rpcMaxRetries)
}

// ReadFile reads a file from the sandbox.
func (c *Client) ReadFile(ctx context.Context, id, path string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	p := "/sandboxes/" + url.PathEscape(id) + "/files?path=" + url.QueryEscape(path)
	if err := c.call(ctx, http.MethodGet, p, nil, &out, rpcMaxRetries); err != nil {
		return "", err
	}
	return out.Content, nil
}

// ListFiles lists directory entries inside the sandbox.
func (c *Client) ListFiles(ctx context.Context, id, path string) ([]string, error) {
	var out struct {
		Names []string `json:"names"`
	}
	p := "/sandboxes/" + url.PathEscape(id) + "/files/list"
	if path != "" {
		p += "?path=" + url.QueryEscape(path)
	}
	if err := c.call(ctx, http.MethodGet, p, nil, &out, rpcMaxRetries); err != nil {
		return nil, err
	}
	return out.Names, nil
}

// Terminate destroys the sandbox.
func (c *Client) Terminate(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/sandboxes/"+url.PathEscape(id), nil, nil, rpcMaxRetries)
}

// call issues one RPC with the uniform retry policy: exponential backoff
// starting at rpcBaseDelay, retrying on 5xx, 429, or an upstream-error body
// marker.
func (c *Client) call(ctx context.Context, method, path string, body, out any, maxRetries int) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding RPC body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * rpcBaseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			c.log.Debug("retrying sandbox RPC",
				zap.String("path", path), zap.Int("attempt", attempt))
		}

		err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryableRPC(err) {
			return err
		}
	}
	return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating RPC request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return &RPCError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing RPC response: %w", err)
	}
	return nil
}
