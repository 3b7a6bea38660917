// Package agentclient talks to the remote verification agent over HTTP.
// The agent is slow (timeouts measured in minutes); the client bounds the
// total wait, retries transient failures with backoff, validates the
// response shape and synthesizes the human-readable verdict text.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"factrelay/internal/domain"
)

type Config struct {
	BaseURL string
	AppName string
	Token   string // optional bearer credential
	Timeout time.Duration
	Retry   RetryPolicy
	Logger  *slog.Logger

	// HTTPClient overrides the default pooled client, mainly for tests.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	appName string
	token   string
	timeout time.Duration
	retry   RetryPolicy
	client  *http.Client
	logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.Timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		appName: cfg.AppName,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
		client:  client,
		logger:  cfg.Logger,
	}
}

type runRequest struct {
	AppName string   `json:"app_name"`
	UserID  string   `json:"user_id"`
	Text    string   `json:"text"`
	Links   []string `json:"links,omitempty"`
}

type runResponse struct {
	Status     string            `json:"status"`
	Verdict    string            `json:"verdict,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"`
	Evidence   []domain.Evidence `json:"evidence,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Verify issues one logical verification call. A non-nil error is always
// a *domain.AgentError.
func (c *Client) Verify(ctx context.Context, req *domain.VerifyRequest) (*domain.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	body, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	verdict, err := parseVerdict(body)
	if err != nil {
		c.logger.Error("agent response malformed", "user", req.UserID, "err", err)
		return nil, &domain.AgentError{Kind: domain.AgentMalformedResponse, Err: err}
	}

	verdict.FormattedText = Format(verdict)
	c.logger.Info("agent verify ok",
		"user", req.UserID,
		"verdict", verdict.Verdict,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return verdict, nil
}

// doWithRetry posts the request, retrying transient failures with
// exponential backoff. Backoff sleeps are per-request and context-aware,
// so one slow call never stalls another.
func (c *Client) doWithRetry(ctx context.Context, req *domain.VerifyRequest) ([]byte, error) {
	payload, err := json.Marshal(runRequest{
		AppName: c.appName,
		UserID:  req.UserID,
		Text:    req.Text,
		Links:   req.Links,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.retry.Backoff(attempt - 1)
			c.logger.Warn("retrying agent call", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/run", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("agent call failed, will retry", "attempt", attempt, "err", err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		if retryableStatus(resp.StatusCode) {
			lastErr = &retryableStatusError{statusCode: resp.StatusCode, body: truncate(string(body), 300)}
			c.logger.Warn("agent server error, will retry", "attempt", attempt, "status", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			// 4xx: the agent rejected the request; retrying cannot succeed.
			return nil, &domain.AgentError{
				Kind: domain.AgentUpstreamRejected,
				Err:  fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 300)),
			}
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("agent unreachable after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// classify maps low-level failures onto the agent error taxonomy.
func (c *Client) classify(ctx context.Context, err error) *domain.AgentError {
	var agentErr *domain.AgentError
	if errors.As(err, &agentErr) {
		return agentErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.AgentError{Kind: domain.AgentTimeout, Err: err}
	}
	return &domain.AgentError{Kind: domain.AgentUnreachable, Err: err}
}

// parseVerdict validates the response shape. Anything structurally off is
// rejected instead of silently coerced.
func parseVerdict(body []byte) (*domain.Verdict, error) {
	var r runResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch domain.VerdictStatus(r.Status) {
	case domain.StatusOK:
		if strings.TrimSpace(r.Verdict) == "" {
			return nil, fmt.Errorf("status ok but verdict is missing")
		}
	case domain.StatusError:
		// agent-reported failure; verdict optional
	default:
		return nil, fmt.Errorf("unknown status %q", r.Status)
	}

	if r.Confidence != nil && (*r.Confidence < 0 || *r.Confidence > 1) {
		return nil, fmt.Errorf("confidence %v outside [0,1]", *r.Confidence)
	}

	evidence := r.Evidence
	if evidence == nil {
		evidence = []domain.Evidence{}
	}
	return &domain.Verdict{
		Status:     domain.VerdictStatus(r.Status),
		Verdict:    r.Verdict,
		Confidence: r.Confidence,
		Evidence:   evidence,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
