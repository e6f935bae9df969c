// Package validation contains the response validators benchmark cases use
// to decide pass or fail.
package validation

// Outcome is the result of validating one response. Details carries
// validator-specific context for the report (expected values, match
// positions, schema errors).
type Outcome struct {
	Passed  bool           `json:"passed"`
	Details map[string]any `json:"details,omitempty"`
}

// Validator checks a model response against an expectation.
type Validator interface {
	Validate(response string) Outcome
	// Describe returns a short human-readable description for reports.
	Describe() string
}
