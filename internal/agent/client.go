package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"credon/internal/agent/metrics"
	dErrors "credon/pkg/domain-errors"
	"credon/pkg/platform/circuit"
)

// Client is a typed gateway over one credential agent's admin API. One
// instance per agent role (issuer, holder, verifier); the role only shows
// up in logs, metrics and error messages.
type Client struct {
	role       string
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics attaches shared gateway metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a gateway client for the agent at baseURL.
func New(role, baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		role:    role,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: circuit.New(role+"-agent",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2),
		),
		logger: logger.With("agent", role),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Role returns the agent role this client fronts.
func (c *Client) Role() string {
	return c.role
}

// Health probes the agent's status endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/status", nil, nil)
}

// do performs one round trip against the agent. A nil body sends no payload;
// a nil out discards the response body after status checking. All error paths
// come back as coded domain errors.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	if c.breaker.IsOpen() {
		return dErrors.New(dErrors.CodeAgentUnreachable,
			fmt.Sprintf("%s agent circuit open, request not attempted", c.role))
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to marshal agent request")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build agent request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.Requests.WithLabelValues(c.role, operation).Inc()
		c.metrics.RequestDurationMs.WithLabelValues(c.role, operation).
			Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		derr := classifyTransportError(ctx, c.role, err)
		c.recordFailure(operation, derr)
		return derr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		derr := dErrors.Wrap(err, dErrors.CodeAgentUnreachable,
			fmt.Sprintf("failed to read %s agent response", c.role))
		c.recordFailure(operation, derr)
		return derr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		derr := classifyStatusError(c.role, resp.StatusCode, raw)
		// A rejection is the agent answering; only transport-level trouble
		// feeds the breaker.
		if c.metrics != nil {
			c.metrics.Failures.WithLabelValues(c.role, operation, string(dErrors.CodeAgentRejected)).Inc()
		}
		c.breaker.RecordSuccess()
		return derr
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("agent circuit closed", "operation", operation)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return classifyDecodeError(c.role, err)
	}
	return nil
}

func (c *Client) recordFailure(operation string, derr error) {
	if c.metrics != nil {
		code := dErrors.CodeInternal
		var de *dErrors.Error
		if errors.As(derr, &de) {
			code = de.Code
		}
		c.metrics.Failures.WithLabelValues(c.role, operation, string(code)).Inc()
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("agent circuit opened", "operation", operation)
		if c.metrics != nil {
			c.metrics.BreakerOpens.WithLabelValues(c.role).Inc()
		}
	}
}
