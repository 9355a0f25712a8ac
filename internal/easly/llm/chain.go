package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 15 * time.Second

// ErrNoProviders is returned by an empty chain. Callers treat it as the
// offline configuration.
var ErrNoProviders = errors.New("llm: no providers configured")

// Attempt records one failed provider call.
type Attempt struct {
	Provider string
	Reason   FailureReason
	Err      error
	Duration time.Duration
}

// ExhaustedError is returned when every provider in the chain failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Provider + "=" + string(a.Reason)
	}
	return "llm: all providers failed (" + strings.Join(parts, ", ") + ")"
}

// Chain tries providers in order until one returns text. Failed attempts
// are not retried.
type Chain struct {
	providers []Provider
	timeout   time.Duration

	// OnFailure, when set, is called for every failed attempt.
	OnFailure func(Attempt)
	// OnSuccess, when set, is called with the winning provider's latency.
	OnSuccess func(provider string, d time.Duration)
}

// NewChain returns a chain over providers. Nil entries are skipped. A
// non-positive timeout selects DefaultTimeout.
func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Chain{timeout: timeout}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Configured reports whether the chain has at least one provider.
func (c *Chain) Configured() bool { return c != nil && len(c.providers) > 0 }

// Names returns the provider names in order.
func (c *Chain) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Name()
	}
	return out
}

// Complete returns the first non-empty completion and the name of the
// provider that produced it.
func (c *Chain) Complete(ctx context.Context, req Request) (string, string, error) {
	if !c.Configured() {
		return "", "", ErrNoProviders
	}

	var attempts []Attempt
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", "", fmt.Errorf("llm: %w", err)
		}

		start := time.Now()
		text, err := c.call(ctx, p, req)
		elapsed := time.Since(start)
		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("%s: %w", p.Name(), ErrEmptyResponse)
		}
		if err == nil {
			if c.OnSuccess != nil {
				c.OnSuccess(p.Name(), elapsed)
			}
			return text, p.Name(), nil
		}

		a := Attempt{Provider: p.Name(), Reason: Classify(err), Err: err, Duration: elapsed}
		attempts = append(attempts, a)
		slog.Warn("llm provider failed", "provider", a.Provider, "reason", a.Reason, "err", err)
		if c.OnFailure != nil {
			c.OnFailure(a)
		}
	}
	return "", "", &ExhaustedError{Attempts: attempts}
}

func (c *Chain) call(ctx context.Context, p Provider, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return p.Complete(ctx, req)
}
