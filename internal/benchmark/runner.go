package benchmark

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"promptum/internal/provider"
)

// DefaultMaxConcurrent bounds in-flight provider calls when the runner is
// not configured otherwise.
const DefaultMaxConcurrent = 5

// ProgressFunc is called once per finished case, in completion order.
type ProgressFunc func(completed, total int, result Result)

// Runner executes cases against a provider with bounded concurrency.
// Provider errors are captured as failed Results; they never abort the run.
type Runner struct {
	Provider      provider.Provider
	MaxConcurrent int
	Progress      ProgressFunc
	Hooks         []Hook
	Logger        *zap.Logger
}

// Run executes all cases and returns results in case order. It returns an
// error only when ctx is cancelled before all cases were dispatched.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := r.MaxConcurrent
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}

	results := make([]Result, len(cases))
	total := len(cases)
	if total == 0 {
		return results, nil
	}

	logger.Debug("benchmark run starting",
		zap.Int("cases", total),
		zap.Int("max_concurrent", limit),
		zap.String("provider", r.Provider.Name()))

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup
	var completed atomic.Int64
	var progressMu sync.Mutex

	for i, c := range cases {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(i int, c Case) {
			defer wg.Done()
			defer sem.Release(1)

			result := r.runCase(ctx, c)
			results[i] = result

			done := int(completed.Add(1))
			if r.Progress != nil {
				progressMu.Lock()
				r.Progress(done, total, result)
				progressMu.Unlock()
			}
		}(i, c)
	}
	wg.Wait()

	return results, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) Result {
	for _, h := range r.Hooks {
		h.BeforeCase(c)
	}

	result := Result{Case: c}
	result.Case.ValidatorDescription = c.describeValidator()

	genResult, err := r.Provider.Generate(ctx, c.request())
	result.Timestamp = time.Now().UTC()

	if err != nil {
		result.ExecutionError = err.Error()
	} else {
		result.Response = genResult.Content
		result.Metrics = &genResult.Metrics
		if c.Validator != nil {
			outcome := c.Validator.Validate(genResult.Content)
			result.Passed = outcome.Passed
			result.ValidationDetails = outcome.Details
		} else {
			result.Passed = true
		}
	}

	for _, h := range r.Hooks {
		h.AfterCase(result)
	}
	return result
}
