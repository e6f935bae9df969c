package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxResponseBytes = 10 * 1024 * 1024

// OpenRouterClient implements Provider for the OpenRouter API.
// OpenRouter fronts many upstream models behind a single OpenAI-compatible
// endpoint, which makes it the default provider for cross-model benchmarks.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	siteURL    string // Optional: attribution URL sent as HTTP-Referer
	siteName   string // Optional: attribution name sent as X-Title
	logger     *zap.Logger
}

// OpenRouterConfig configures an OpenRouterClient.
type OpenRouterConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	Retry    *RetryConfig
	SiteURL  string
	SiteName string
	Logger   *zap.Logger
}

// DefaultOpenRouterConfig returns sensible defaults.
func DefaultOpenRouterConfig(apiKey string) OpenRouterConfig {
	return OpenRouterConfig{
		APIKey:  apiKey,
		BaseURL: "https://openrouter.ai/api/v1",
		Timeout: 10 * time.Minute, // large-context models need extended timeouts
	}
}

// NewOpenRouterClient creates a client with default configuration.
func NewOpenRouterClient(apiKey string) *OpenRouterClient {
	return NewOpenRouterClientWithConfig(DefaultOpenRouterConfig(apiKey))
}

// NewOpenRouterClientWithConfig creates a client with custom configuration.
func NewOpenRouterClientWithConfig(config OpenRouterConfig) *OpenRouterClient {
	retry := DefaultRetryConfig()
	if config.Retry != nil {
		retry = config.Retry.withDefaults()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterClient{
		apiKey:   config.APIKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		retry:    retry,
		siteURL:  config.SiteURL,
		siteName: config.SiteName,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name implements Provider.
func (c *OpenRouterClient) Name() string { return "openrouter" }

// Generate implements Provider. Rate limits (429), server errors (5xx) and
// transport failures are retried per the retry config; every sleep taken is
// recorded in the returned metrics.
func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openrouter: API key not configured")
	}
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("openrouter: %w", err)
	}

	// Auto-apply timeout if context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	retry := c.retry
	if req.Retry != nil {
		retry = req.Retry.withDefaults()
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	for k, v := range req.Extra {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to marshal request: %w", err)
	}

	start := time.Now()
	var metrics Metrics

	c.logger.Debug("openrouter generate",
		zap.String("model", req.Model),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("max_attempts", retry.MaxAttempts))

	return generateWithRetry(ctx, "openrouter", retry, c.logger, &metrics, func() (*GenerateResult, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("openrouter: failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		if c.siteURL != "" {
			httpReq.Header.Set("HTTP-Referer", c.siteURL)
		}
		if c.siteName != "" {
			httpReq.Header.Set("X-Title", c.siteName)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, retryable(fmt.Errorf("request failed: %w", err))
		}
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		if err != nil {
			return nil, retryable(fmt.Errorf("failed to read response: %w", err))
		}

		if retryableStatus(resp.StatusCode) {
			return nil, retryable(fmt.Errorf("HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("openrouter: HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("openrouter: failed to parse response: %w", err)
		}
		if parsed.Error != nil {
			return nil, fmt.Errorf("openrouter: API error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
			return nil, fmt.Errorf("openrouter: invalid API response: no completion content")
		}

		metrics.LatencyMS = float64(time.Since(start)) / float64(time.Millisecond)
		if usage := parsed.Usage; usage != nil {
			metrics.PromptTokens = usage.PromptTokens
			metrics.CompletionTokens = usage.CompletionTokens
			metrics.TotalTokens = usage.TotalTokens
			metrics.CostUSD = usage.TotalCost
		}

		c.logger.Debug("openrouter completed",
			zap.String("model", req.Model),
			zap.Float64("latency_ms", metrics.LatencyMS),
			zap.Int("retries", len(metrics.RetryDelays)))

		return &GenerateResult{
			Content: parsed.Choices[0].Message.Content,
			Metrics: metrics,
		}, nil
	})
}
