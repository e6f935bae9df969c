package benchmark

import "go.uber.org/zap"

// Hook observes case execution. BeforeCase runs before the provider call,
// AfterCase after the result is recorded. Hooks for a given case run on the
// worker goroutine executing that case.
type Hook interface {
	BeforeCase(c Case)
	AfterCase(r Result)
}

// LogHook logs case lifecycle events.
type LogHook struct {
	logger *zap.Logger
}

// NewLogHook creates a hook writing to the given logger.
func NewLogHook(logger *zap.Logger) *LogHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHook{logger: logger}
}

func (h *LogHook) BeforeCase(c Case) {
	h.logger.Debug("case starting",
		zap.String("case", c.Name),
		zap.String("model", c.Model))
}

func (h *LogHook) AfterCase(r Result) {
	fields := []zap.Field{
		zap.String("case", r.Case.Name),
		zap.Bool("passed", r.Passed),
	}
	if r.Metrics != nil {
		fields = append(fields, zap.Float64("latency_ms", r.Metrics.LatencyMS))
	}
	if r.ExecutionError != "" {
		fields = append(fields, zap.String("execution_error", r.ExecutionError))
		h.logger.Warn("case errored", fields...)
		return
	}
	h.logger.Info("case finished", fields...)
}
