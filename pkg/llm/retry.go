package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
	openai "github.com/sashabaranov/go-openai"
)

const retryLogPrefix = "llm:retry"

// RetryConfig controls retry behaviour for model calls.
type RetryConfig struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Delay before first retry
	MaxBackoff     time.Duration // Upper bound on backoff duration
	Multiplier     float64       // Backoff multiplier
}

// DefaultRetryConfig returns the retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	}
}

// Validate checks that all fields are within acceptable ranges.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("retry: MaxRetries must be >= 0")
	}
	if c.InitialBackoff <= 0 {
		return errors.New("retry: InitialBackoff must be > 0")
	}
	if c.MaxBackoff <= 0 {
		return errors.New("retry: MaxBackoff must be > 0")
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	return nil
}

var retryableStatusCodes = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true, 529: true}

var retryableStatusText = []string{"429", "500", "502", "503", "504", "529"}

// IsRetryable reports whether err is a transient provider failure (429, 5xx,
// timeout, refused connection, EOF). Context errors and malformed responses
// are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}

	if code, ok := statusCode(err); ok {
		return retryableStatusCodes[code]
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	for _, code := range retryableStatusText {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "EOF")
}

// statusCode extracts the HTTP status of a provider SDK error.
func statusCode(err error) (int, bool) {
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) && oaErr.HTTPStatusCode != 0 {
		return oaErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) && antErr.StatusCode != 0 {
		return antErr.StatusCode, true
	}
	return 0, false
}

// RetryingClient retries transient failures of one model round trip. It never
// repeats an orchestration iteration; only the failed request is re-sent.
type RetryingClient struct {
	inner    Client
	config   RetryConfig
	waitFunc func(ctx context.Context, d time.Duration) error
}

// waitBackoff sleeps for d or until ctx is done, whichever comes first.
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewRetryingClient wraps inner. inner must not be nil.
func NewRetryingClient(inner Client, cfg RetryConfig) *RetryingClient {
	if inner == nil {
		panic("llm: inner client must not be nil")
	}
	return &RetryingClient{inner: inner, config: cfg, waitFunc: waitBackoff}
}

// Complete implements Client.
func (c *RetryingClient) Complete(ctx context.Context, turns []conversation.Turn, tools []catalog.Descriptor) (*Response, error) {
	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		resp, err := c.inner.Complete(ctx, turns, tools)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == c.config.MaxRetries {
			break
		}

		slog.Warn(fmt.Sprintf("%s - attempt %d failed, retrying in %s: %v", retryLogPrefix, attempt+1, backoff, err))
		if err := c.waitFunc(ctx, backoff); err != nil {
			return nil, err
		}

		next := time.Duration(float64(backoff) * c.config.Multiplier)
		if next > c.config.MaxBackoff {
			next = c.config.MaxBackoff
		}
		backoff = next
	}

	return nil, fmt.Errorf("%s - retries exhausted after %d attempts: %w", retryLogPrefix, c.config.MaxRetries+1, lastErr)
}

var _ Client = (*RetryingClient)(nil)
