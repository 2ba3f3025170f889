// Package llm provides chat-completion clients for the model providers
// backing each role.
//
// Clients handle rate limiting, per-call timeouts, and retries with
// exponential backoff for transient errors. Retries live here, not in the
// run driver: a turn-loop failure that reaches the driver is terminal.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	// ErrUnknownProvider indicates a provider name the factory does not
	// recognize. This is a configuration error; it is surfaced before any
	// run starts.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrMissingAPIKey indicates a provider that requires an API key was
	// configured without one.
	ErrMissingAPIKey = errors.New("api key required")

	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("empty response from model")
)

// Message is one entry of a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a chat-completion client for one configured model.
type Client interface {
	// Complete sends the system instruction and conversation history and
	// returns the model's reply text.
	Complete(ctx context.Context, system string, messages []Message) (string, error)

	// Model returns the configured model identifier.
	Model() string
}

// Retry/backoff defaults shared by all providers.
const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultRateLimit   = 2.0 // requests per second
	defaultBurst       = 4
)

// retryableError marks an error as transient (rate limit, 5xx, network).
type retryableError struct {
	err error
}

func (r *retryableError) Error() string { return r.err.Error() }
func (r *retryableError) Unwrap() error { return r.err }

// isRetryableError reports whether err may succeed on retry.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// withRetries runs fn with exponential backoff on retryable errors.
func withRetries(ctx context.Context, maxRetries int, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := fn()
		if err == nil {
			return response, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
