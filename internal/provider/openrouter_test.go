package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func successBody() string {
	return `{
		"choices": [{"message": {"role": "assistant", "content": "Hello, world!"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30, "total_cost": 0.001}
	}`
}

func fastRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     attempts,
		Strategy:        StrategyExponentialBackoff,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc, retry *RetryConfig) *OpenRouterClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenRouterClientWithConfig(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		Retry:   retry,
	})
}

func TestOpenRouter_Generate_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing bearer auth")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(successBody()))
	}, fastRetry(1))

	result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "test-model"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "Hello, world!" {
		t.Errorf("unexpected content %q", result.Content)
	}
	m := result.Metrics
	if m.LatencyMS <= 0 {
		t.Error("expected positive latency")
	}
	if m.PromptTokens == nil || *m.PromptTokens != 10 {
		t.Errorf("unexpected prompt tokens %v", m.PromptTokens)
	}
	if m.CompletionTokens == nil || *m.CompletionTokens != 20 {
		t.Errorf("unexpected completion tokens %v", m.CompletionTokens)
	}
	if m.TotalTokens == nil || *m.TotalTokens != 30 {
		t.Errorf("unexpected total tokens %v", m.TotalTokens)
	}
	if m.CostUSD == nil || *m.CostUSD != 0.001 {
		t.Errorf("unexpected cost %v", m.CostUSD)
	}
	if len(m.RetryDelays) != 0 {
		t.Errorf("expected no retry delays, got %v", m.RetryDelays)
	}
}

func TestOpenRouter_Generate_PayloadShape(t *testing.T) {
	temp := 0.7
	tests := []struct {
		name  string
		req   GenerateRequest
		check func(t *testing.T, payload map[string]any)
	}{
		{
			name: "system prompt first",
			req:  GenerateRequest{Prompt: "hello", Model: "m", SystemPrompt: "Be helpful"},
			check: func(t *testing.T, payload map[string]any) {
				messages := payload["messages"].([]any)
				if len(messages) != 2 {
					t.Fatalf("expected 2 messages, got %d", len(messages))
				}
				first := messages[0].(map[string]any)
				if first["role"] != "system" || first["content"] != "Be helpful" {
					t.Errorf("unexpected system message %v", first)
				}
				second := messages[1].(map[string]any)
				if second["role"] != "user" || second["content"] != "hello" {
					t.Errorf("unexpected user message %v", second)
				}
			},
		},
		{
			name: "no system prompt means single user message",
			req:  GenerateRequest{Prompt: "hello", Model: "m"},
			check: func(t *testing.T, payload map[string]any) {
				messages := payload["messages"].([]any)
				if len(messages) != 1 {
					t.Fatalf("expected 1 message, got %d", len(messages))
				}
				if messages[0].(map[string]any)["role"] != "user" {
					t.Error("expected user role")
				}
			},
		},
		{
			name: "max tokens included when set",
			req:  GenerateRequest{Prompt: "hello", Model: "m", MaxTokens: 512},
			check: func(t *testing.T, payload map[string]any) {
				if payload["max_tokens"] != float64(512) {
					t.Errorf("unexpected max_tokens %v", payload["max_tokens"])
				}
			},
		},
		{
			name: "max tokens omitted when zero",
			req:  GenerateRequest{Prompt: "hello", Model: "m"},
			check: func(t *testing.T, payload map[string]any) {
				if _, ok := payload["max_tokens"]; ok {
					t.Error("expected max_tokens to be omitted")
				}
			},
		},
		{
			name: "temperature and extra fields forwarded",
			req: GenerateRequest{
				Prompt:      "hello",
				Model:       "m",
				Temperature: &temp,
				Extra:       map[string]any{"top_p": 0.9, "frequency_penalty": 0.5},
			},
			check: func(t *testing.T, payload map[string]any) {
				if payload["temperature"] != 0.7 {
					t.Errorf("unexpected temperature %v", payload["temperature"])
				}
				if payload["top_p"] != 0.9 {
					t.Errorf("unexpected top_p %v", payload["top_p"])
				}
				if payload["frequency_penalty"] != 0.5 {
					t.Errorf("unexpected frequency_penalty %v", payload["frequency_penalty"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]any
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
					t.Errorf("failed to decode payload: %v", err)
				}
				w.Write([]byte(successBody()))
			}, fastRetry(1))

			if _, err := client.Generate(context.Background(), tt.req); err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			tt.check(t, payload)
		})
	}
}

func TestOpenRouter_Generate_MissingUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "Hello, world!"}}]}`))
	}, fastRetry(1))

	result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	m := result.Metrics
	if m.PromptTokens != nil || m.CompletionTokens != nil || m.TotalTokens != nil || m.CostUSD != nil {
		t.Errorf("expected nil usage metrics, got %+v", m)
	}
}

func TestOpenRouter_Generate_CostOnlyUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "hi"}}], "usage": {"total_cost": 0.05}}`))
	}, fastRetry(1))

	result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Metrics.CostUSD == nil || *result.Metrics.CostUSD != 0.05 {
		t.Errorf("expected cost 0.05, got %v", result.Metrics.CostUSD)
	}
	if result.Metrics.TotalTokens != nil {
		t.Errorf("expected nil total tokens, got %v", result.Metrics.TotalTokens)
	}
}

func TestOpenRouter_Generate_RejectsReservedExtraFields(t *testing.T) {
	client := NewOpenRouterClient("test-key")

	_, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "hello",
		Model:  "m",
		Extra:  map[string]any{"messages": []any{}},
	})
	if err == nil || !strings.Contains(err.Error(), "messages") {
		t.Fatalf("expected reserved-field error naming messages, got %v", err)
	}
}

func TestOpenRouter_Generate_MissingAPIKey(t *testing.T) {
	client := NewOpenRouterClient("")

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected API key error, got %v", err)
	}
}

func TestOpenRouter_Generate_InvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing choices", `{"data": "bad"}`},
		{"empty choices", `{"choices": []}`},
		{"missing content", `{"choices": [{"message": {}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}, fastRetry(1))

			_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
			if err == nil || !strings.Contains(err.Error(), "invalid API response") {
				t.Fatalf("expected invalid response error, got %v", err)
			}
		})
	}
}

func TestOpenRouter_Generate_RetriesThenSucceeds(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			attempts := 0
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				attempts++
				if attempts == 1 {
					w.WriteHeader(status)
					return
				}
				w.Write([]byte(successBody()))
			}, fastRetry(3))

			result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if result.Content != "Hello, world!" {
				t.Errorf("unexpected content %q", result.Content)
			}
			if attempts != 2 {
				t.Errorf("expected 2 attempts, got %d", attempts)
			}
		})
	}
}

func TestOpenRouter_Generate_ExhaustsRetries(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}, fastRetry(3))

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP error 500") {
		t.Errorf("expected exhaustion error to wrap the last failure, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestOpenRouter_Generate_APIErrorBody(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte(`{"error": {"message": "invalid model", "type": "invalid_request_error"}}`))
	}, fastRetry(3))

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "invalid model") {
		t.Fatalf("expected API error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected no retries for an API error body, got %d attempts", attempts)
	}
}

func TestOpenRouter_Generate_NonRetryableStatusFailsImmediately(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}, fastRetry(3))

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "HTTP error 403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected single attempt, got %d", attempts)
	}
}

func TestOpenRouter_Generate_RetryDelaysRecorded(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(successBody()))
	}, fastRetry(3))

	result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(result.Metrics.RetryDelays) != 2 {
		t.Fatalf("expected 2 retry delays, got %v", result.Metrics.RetryDelays)
	}
	for _, d := range result.Metrics.RetryDelays {
		if d <= 0 {
			t.Errorf("expected positive delay, got %v", d)
		}
	}
}

func TestOpenRouter_Generate_TransportErrorRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			// Hijack and drop the connection to simulate a transport failure.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack failed: %v", err)
			}
			conn.Close()
			return
		}
		w.Write([]byte(successBody()))
	}))
	defer server.Close()

	client := NewOpenRouterClientWithConfig(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		Retry:   fastRetry(3),
	})

	result, err := client.Generate(context.Background(), GenerateRequest{Prompt: "hello", Model: "m"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "Hello, world!" {
		t.Errorf("unexpected content %q", result.Content)
	}
	if len(result.Metrics.RetryDelays) != 1 {
		t.Errorf("expected 1 retry delay, got %v", result.Metrics.RetryDelays)
	}
}

func TestOpenRouter_Generate_PerCallRetryOverridesDefault(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(successBody()))
	}, fastRetry(1))

	result, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "hello",
		Model:  "m",
		Retry:  fastRetry(3),
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "Hello, world!" {
		t.Errorf("unexpected content %q", result.Content)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestOpenRouter_Generate_ContextCancelledDuringBackoff(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, &RetryConfig{MaxAttempts: 3, InitialDelay: time.Minute, MaxDelay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, GenerateRequest{Prompt: "hello", Model: "m"})
	if err == nil || ctx.Err() == nil {
		t.Fatalf("expected context error, got %v", err)
	}
}
