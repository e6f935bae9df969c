// Package provider implements LLM provider clients for benchmark execution.
// All clients speak to their APIs over plain HTTP and share the same retry
// and metrics semantics, so the benchmark core can treat them uniformly.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Provider is the interface benchmark runners use to call an LLM.
type Provider interface {
	// Generate sends a single prompt and returns the completion text with
	// call metrics. Implementations honor ctx cancellation, including while
	// sleeping between retries.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// Name identifies the provider ("openrouter", "gemini", ...).
	Name() string
}

// GenerateRequest describes one completion call.
type GenerateRequest struct {
	Prompt       string
	Model        string
	SystemPrompt string
	Temperature  *float64
	// MaxTokens limits the completion length. Zero omits the field from the
	// wire payload.
	MaxTokens int
	// Extra holds provider-specific payload fields merged into the request
	// body verbatim. Keys that would clobber fields the client owns
	// (model, messages, stream) are rejected.
	Extra map[string]any
	// Retry overrides the client's default retry config for this call only.
	Retry *RetryConfig
}

// GenerateResult is a completed call: the model output plus metrics.
type GenerateResult struct {
	Content string  `json:"content"`
	Metrics Metrics `json:"metrics"`
}

// Metrics captures per-call measurements. Token and cost fields are nil when
// the provider response carried no usage information.
type Metrics struct {
	LatencyMS        float64         `json:"latency_ms"`
	PromptTokens     *int            `json:"prompt_tokens,omitempty"`
	CompletionTokens *int            `json:"completion_tokens,omitempty"`
	TotalTokens      *int            `json:"total_tokens,omitempty"`
	CostUSD          *float64        `json:"cost_usd,omitempty"`
	RetryDelays      []time.Duration `json:"retry_delays,omitempty"`
}

// reservedPayloadKeys are owned by the clients and may not be set via Extra.
var reservedPayloadKeys = []string{"model", "messages", "stream"}

func (r GenerateRequest) validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	for _, key := range reservedPayloadKeys {
		if _, ok := r.Extra[key]; ok {
			return fmt.Errorf("extra field %q overrides a reserved payload field", key)
		}
	}
	return nil
}

// sleep blocks for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryableStatus reports whether an HTTP status is worth retrying.
// Rate limits and server-side failures are transient; other 4xx are not.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// retryableError marks a failure the retry loop may try again.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// retryable wraps a transient failure so generateWithRetry retries it.
func retryable(err error) error { return &retryableError{err: err} }

// generateWithRetry runs attempt until it succeeds, fails terminally, or the
// retry budget is exhausted. Failures wrapped via retryable are tried again
// after the configured delay; every delay slept is recorded in metrics.
// Exhaustion returns an error naming the attempt count and wrapping the last
// failure.
func generateWithRetry(ctx context.Context, name string, retry RetryConfig, logger *zap.Logger, metrics *Metrics, attempt func() (*GenerateResult, error)) (*GenerateResult, error) {
	var lastErr error
	for i := 0; i < retry.MaxAttempts; i++ {
		if i > 0 {
			delay := retry.DelayFor(i - 1)
			metrics.RetryDelays = append(metrics.RetryDelays, delay)
			logger.Debug(name+" retrying",
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		result, err := attempt()
		if err == nil {
			return result, nil
		}
		var re *retryableError
		if errors.As(err, &re) {
			lastErr = re.err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%s: request failed after %d attempts: %w", name, retry.MaxAttempts, lastErr)
}
