package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promptum/internal/provider"
)

// Suite collects cases and runs them as one benchmark.
type Suite struct {
	Provider      provider.Provider
	MaxConcurrent int
	Progress      ProgressFunc
	Hooks         []Hook
	Logger        *zap.Logger

	cases []Case
}

// NewSuite creates an empty suite for the given provider.
func NewSuite(p provider.Provider) *Suite {
	return &Suite{Provider: p}
}

// Add appends one case.
func (s *Suite) Add(c Case) {
	s.cases = append(s.cases, c)
}

// AddAll appends a batch of cases.
func (s *Suite) AddAll(cases []Case) {
	s.cases = append(s.cases, cases...)
}

// Len reports the number of cases queued.
func (s *Suite) Len() int {
	return len(s.cases)
}

// Run executes all queued cases and returns a report. An empty suite yields
// an empty report.
func (s *Suite) Run(ctx context.Context) (*Report, error) {
	if s.Provider == nil {
		return nil, fmt.Errorf("suite has no provider")
	}

	runner := &Runner{
		Provider:      s.Provider,
		MaxConcurrent: s.MaxConcurrent,
		Progress:      s.Progress,
		Hooks:         s.Hooks,
		Logger:        s.Logger,
	}

	started := time.Now().UTC()
	results, err := runner.Run(ctx, s.cases)
	if err != nil {
		return nil, err
	}

	return &Report{
		RunID:      uuid.NewString(),
		Provider:   s.Provider.Name(),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Results:    results,
	}, nil
}
