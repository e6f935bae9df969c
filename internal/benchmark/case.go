// Package benchmark contains the core benchmark types: cases, results,
// the concurrent runner, suites and reports.
package benchmark

import (
	"promptum/internal/provider"
	"promptum/internal/validation"
)

// Case is one prompt to benchmark against one model.
type Case struct {
	// Name identifies the case within a suite; names must be unique.
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	// Validator decides pass/fail for the response. A nil validator means
	// the case passes whenever generation succeeds.
	Validator validation.Validator `json:"-"`
	// ValidatorDescription is filled from Validator when results are
	// recorded, so serialized reports keep a human-readable expectation.
	ValidatorDescription string `json:"validator,omitempty"`

	SystemPrompt string                `json:"system_prompt,omitempty"`
	Temperature  *float64              `json:"temperature,omitempty"`
	MaxTokens    int                   `json:"max_tokens,omitempty"`
	Extra        map[string]any        `json:"extra,omitempty"`
	Retry        *provider.RetryConfig `json:"-"`
}

func (c Case) request() provider.GenerateRequest {
	return provider.GenerateRequest{
		Prompt:       c.Prompt,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		Temperature:  c.Temperature,
		MaxTokens:    c.MaxTokens,
		Extra:        c.Extra,
		Retry:        c.Retry,
	}
}

func (c Case) describeValidator() string {
	if c.ValidatorDescription != "" {
		return c.ValidatorDescription
	}
	if c.Validator != nil {
		return c.Validator.Describe()
	}
	return ""
}
