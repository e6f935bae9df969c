package benchmark

import (
	"time"

	"promptum/internal/provider"
)

// Result records the outcome of executing one case.
type Result struct {
	Case Case `json:"case"`
	// Response is the raw model output; empty when execution failed.
	Response string `json:"response,omitempty"`
	Passed   bool   `json:"passed"`
	// Metrics is nil when the provider call failed before producing any.
	Metrics           *provider.Metrics `json:"metrics,omitempty"`
	ValidationDetails map[string]any    `json:"validation_details,omitempty"`
	// ExecutionError holds the provider error text; empty when the call
	// succeeded (validation failures are not execution errors).
	ExecutionError string    `json:"execution_error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
