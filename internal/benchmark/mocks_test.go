package benchmark

import (
	"context"
	"sync"

	"promptum/internal/provider"
)

// fakeProvider records calls and delegates to a configurable generate func.
type fakeProvider struct {
	mu       sync.Mutex
	calls    []provider.GenerateRequest
	generate func(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResult, error)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		generate: func(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResult, error) {
			return &provider.GenerateResult{
				Content: "test response",
				Metrics: provider.Metrics{LatencyMS: 100},
			}, nil
		},
	}
}

func (f *fakeProvider) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.generate(ctx, req)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) call(i int) provider.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// recordingHook captures hook invocations in order.
type recordingHook struct {
	mu     sync.Mutex
	before []string
	after  []string
}

func (h *recordingHook) BeforeCase(c Case) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before = append(h.before, c.Name)
}

func (h *recordingHook) AfterCase(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.after = append(h.after, r.Case.Name)
}
