// Package llm talks to external language-model providers. Each provider is
// an adapter behind the Provider interface; a Chain tries them in order and
// reports why each one failed.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrNotConfigured means the provider has no credentials or endpoint.
	ErrNotConfigured = errors.New("llm: provider not configured")
	// ErrRateLimited means the upstream API throttled the call.
	ErrRateLimited = errors.New("llm: upstream rate limit exceeded")
	// ErrUnavailable means the upstream API failed or could not be reached.
	ErrUnavailable = errors.New("llm: provider unavailable")
	// ErrEmptyResponse means the call succeeded but returned no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call. System is sent through the provider's
// native system-prompt slot.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response where supported.
	JSON bool
}

// Provider completes a request with raw model text. Implementations must be
// safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// FailureReason classifies why a provider attempt failed.
type FailureReason string

const (
	ReasonNotConfigured FailureReason = "not_configured"
	ReasonRateLimited   FailureReason = "rate_limited"
	ReasonTimeout       FailureReason = "timeout"
	ReasonUnavailable   FailureReason = "unavailable"
	ReasonEmptyResponse FailureReason = "empty_response"
)

// Classify maps a provider error to a FailureReason.
func Classify(err error) FailureReason {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrNotConfigured):
		return ReasonNotConfigured
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, ErrEmptyResponse):
		return ReasonEmptyResponse
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	default:
		return ReasonUnavailable
	}
}

func statusError(provider string, code int, detail string) error {
	base := ErrUnavailable
	if code == http.StatusTooManyRequests {
		base = ErrRateLimited
	}
	return &StatusError{Provider: provider, Code: code, Detail: detail, err: base}
}

// StatusError carries a non-2xx upstream status. It unwraps to
// ErrRateLimited for 429 and ErrUnavailable otherwise.
type StatusError struct {
	Provider string
	Code     int
	Detail   string
	err      error
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Provider, e.Code)
}

func (e *StatusError) Unwrap() error { return e.err }
