// Package renderer is the HTTP client of the external document renderer
// that prints signed agreements. Calls are throttled client-side, retried
// on transient failures and guarded by a circuit breaker.
package renderer

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

	"golang.org/x/time/rate"

	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/pkg/circuitbreaker"
	"github.com/internhub/internhub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RenderPath is the renderer endpoint, relative to BaseURL.
const RenderPath = "/v1/agreements/render"

// ClientConfig contains configuration for the renderer client.
type ClientConfig struct {
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds one HTTP attempt.
	Timeout time.Duration

	// RequestsPerSecond and Burst throttle calls from this process.
	RequestsPerSecond float64
	Burst             int

	Logger *slog.Logger

	// OnBreakerStateChange is called when the circuit breaker changes state.
	OnBreakerStateChange func(name string, from, to circuitbreaker.State)
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           20 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// StatusError is a non-2xx answer from the renderer.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("renderer: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("renderer: status %d", e.StatusCode)
}

// Is maps statuses onto the shared error kinds so callers can use
// shared.IsRetryable.
func (e *StatusError) Is(target error) bool {
	switch target {
	case shared.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case shared.ErrServiceUnavailable:
		return e.StatusCode >= 500
	case shared.ErrInvalidInput:
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// ErrEmptyReference is returned when the renderer answers 2xx without a
// document reference.
var ErrEmptyReference = errors.New("renderer: response has no document reference")

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements agreement.DocumentRenderer over HTTP.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	logger     *slog.Logger
}

var _ agreement.DocumentRenderer = (*Client)(nil)

// NewClient creates a renderer client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	logger := config.Logger.With("component", "renderer_client")
	onChange := config.OnBreakerStateChange
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, config.Burst),
		breaker: circuitbreaker.RendererBreaker(shared.IsRetryable, func(name string, from, to circuitbreaker.State) {
			logger.Warn("renderer circuit breaker state changed", "from", from.String(), "to", to.String())
			if onChange != nil {
				onChange(name, from, to)
			}
		}),
		retrier: retry.RendererRetrier(shared.IsRetryable),
		logger:  logger,
	}
}

type renderRequest struct {
	Agreement agreement.Snapshot `json:"agreement"`
}

type renderResponse struct {
	DocumentRef string `json:"document_ref"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Render asks the renderer to print the agreement and returns the stored
// document reference.
func (c *Client) Render(ctx context.Context, snapshot agreement.Snapshot) (string, error) {
	body, err := json.Marshal(renderRequest{Agreement: snapshot})
	if err != nil {
		return "", fmt.Errorf("marshal render request: %w", err)
	}

	var ref string
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
			ref, err = c.doRender(ctx, body)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return "", shared.WrapError("renderer", "Render", shared.ErrServiceUnavailable, "renderer circuit is open", err)
		}
		return "", err
	}

	c.logger.DebugContext(ctx, "agreement rendered", "agreement_id", snapshot.AgreementID, "document_ref", ref)
	return ref, nil
}

// doRender performs a single HTTP attempt.
func (c *Client) doRender(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+RenderPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", shared.WrapError("renderer", "Render", shared.ErrTimeout, "renderer timed out", err)
		}
		return "", shared.WrapError("renderer", "Render", shared.ErrServiceUnavailable, "renderer unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", shared.WrapError("renderer", "Render", shared.ErrServiceUnavailable, "read response", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.Unmarshal(respBody, &apiErr)
		return "", &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	var out renderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if strings.TrimSpace(out.DocumentRef) == "" {
		return "", ErrEmptyReference
	}
	return out.DocumentRef, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status reports the breaker state for health endpoints.
type Status struct {
	BreakerState string `json:"breaker_state"`
	Healthy      bool   `json:"healthy"`
}

// HealthCheck fails while the circuit breaker is open.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.breaker.IsOpen() {
		return shared.WrapError("renderer", "HealthCheck", shared.ErrServiceUnavailable, "renderer circuit is open", circuitbreaker.ErrCircuitOpen)
	}
	return nil
}

// Status returns the current client status.
func (c *Client) Status() Status {
	state := c.breaker.State()
	return Status{BreakerState: state.String(), Healthy: state != circuitbreaker.StateOpen}
}
