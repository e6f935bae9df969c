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

// GeminiClient implements Provider against the Gemini generateContent REST
// API. The wire format differs from the OpenAI-compatible providers:
// the system prompt travels as system_instruction and sampling parameters
// live under generationConfig, so Extra fields are merged there.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	logger     *zap.Logger
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   *RetryConfig
	Logger  *zap.Logger
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:  apiKey,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Timeout: 10 * time.Minute,
	}
}

// NewGeminiClient creates a client with default configuration.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a client with custom configuration.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
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
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiClient{
		apiKey:  config.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   retry,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name implements Provider.
func (c *GeminiClient) Name() string { return "gemini" }

// Generate implements Provider.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	retry := c.retry
	if req.Retry != nil {
		retry = req.Retry.withDefaults()
	}

	generationConfig := map[string]any{}
	if req.Temperature != nil {
		generationConfig["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = req.MaxTokens
	}
	for k, v := range req.Extra {
		generationConfig[k] = v
	}

	payload := map[string]any{
		"contents": []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
	}
	if req.SystemPrompt != "" {
		payload["system_instruction"] = geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	if len(generationConfig) > 0 {
		payload["generationConfig"] = generationConfig
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, c.apiKey)

	start := time.Now()
	var metrics Metrics

	return generateWithRetry(ctx, "gemini", retry, c.logger, &metrics, func() (*GenerateResult, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gemini: failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

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
			return nil, fmt.Errorf("gemini: HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		var parsed geminiResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("gemini: failed to parse response: %w", err)
		}
		if parsed.Error != nil {
			return nil, fmt.Errorf("gemini: API error: %s", parsed.Error.Message)
		}
		content := collectGeminiText(parsed)
		if content == "" {
			return nil, fmt.Errorf("gemini: invalid API response: no completion content")
		}

		metrics.LatencyMS = float64(time.Since(start)) / float64(time.Millisecond)
		if usage := parsed.UsageMetadata; usage != nil {
			metrics.PromptTokens = usage.PromptTokenCount
			metrics.CompletionTokens = usage.CandidatesTokenCount
			metrics.TotalTokens = usage.TotalTokenCount
		}

		return &GenerateResult{Content: content, Metrics: metrics}, nil
	})
}

func collectGeminiText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}
