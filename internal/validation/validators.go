package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// ExactMatch passes when the response equals Expected. Comparison is
// case-sensitive unless IgnoreCase is set; TrimSpace strips surrounding
// whitespace from the response first.
type ExactMatch struct {
	Expected   string
	IgnoreCase bool
	TrimSpace  bool
}

func (v ExactMatch) Validate(response string) Outcome {
	actual := response
	if v.TrimSpace {
		actual = strings.TrimSpace(actual)
	}
	passed := actual == v.Expected
	if v.IgnoreCase {
		passed = strings.EqualFold(actual, v.Expected)
	}
	return Outcome{
		Passed: passed,
		Details: map[string]any{
			"expected": v.Expected,
			"actual":   actual,
		},
	}
}

func (v ExactMatch) Describe() string {
	return fmt.Sprintf("exact match %q", v.Expected)
}

// Contains passes when the response contains Substring.
type Contains struct {
	Substring  string
	IgnoreCase bool
}

func (v Contains) Validate(response string) Outcome {
	haystack, needle := response, v.Substring
	if v.IgnoreCase {
		haystack = strings.ToLower(haystack)
		needle = strings.ToLower(needle)
	}
	found := strings.Contains(haystack, needle)
	return Outcome{
		Passed: found,
		Details: map[string]any{
			"substring": v.Substring,
			"found":     found,
		},
	}
}

func (v Contains) Describe() string {
	return fmt.Sprintf("contains %q", v.Substring)
}

// Regex passes when the response matches a compiled pattern.
type Regex struct {
	pattern *regexp.Regexp
}

// NewRegex compiles pattern; invalid patterns surface here rather than at
// validation time.
func NewRegex(pattern string) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return &Regex{pattern: re}, nil
}

func (v *Regex) Validate(response string) Outcome {
	match := v.pattern.FindString(response)
	matched := v.pattern.MatchString(response)
	details := map[string]any{
		"pattern": v.pattern.String(),
	}
	if matched {
		details["match"] = match
	}
	return Outcome{Passed: matched, Details: details}
}

func (v *Regex) Describe() string {
	return fmt.Sprintf("matches /%s/", v.pattern.String())
}

// Func adapts a plain function into a Validator.
type Func struct {
	Fn          func(response string) Outcome
	Description string
}

func (v Func) Validate(response string) Outcome {
	return v.Fn(response)
}

func (v Func) Describe() string {
	if v.Description == "" {
		return "custom validator"
	}
	return v.Description
}

// All passes when every child validator passes.
type All []Validator

func (v All) Validate(response string) Outcome {
	passed := true
	children := make([]map[string]any, 0, len(v))
	for _, child := range v {
		outcome := child.Validate(response)
		passed = passed && outcome.Passed
		children = append(children, map[string]any{
			"validator": child.Describe(),
			"passed":    outcome.Passed,
			"details":   outcome.Details,
		})
	}
	return Outcome{Passed: passed, Details: map[string]any{"all": children}}
}

func (v All) Describe() string {
	parts := make([]string, len(v))
	for i, child := range v {
		parts[i] = child.Describe()
	}
	return "all of: " + strings.Join(parts, "; ")
}

// Any passes when at least one child validator passes.
type Any []Validator

func (v Any) Validate(response string) Outcome {
	passed := false
	children := make([]map[string]any, 0, len(v))
	for _, child := range v {
		outcome := child.Validate(response)
		passed = passed || outcome.Passed
		children = append(children, map[string]any{
			"validator": child.Describe(),
			"passed":    outcome.Passed,
			"details":   outcome.Details,
		})
	}
	return Outcome{Passed: passed, Details: map[string]any{"any": children}}
}

func (v Any) Describe() string {
	parts := make([]string, len(v))
	for i, child := range v {
		parts[i] = child.Describe()
	}
	return "any of: " + strings.Join(parts, "; ")
}
