package config

import (
	"fmt"

	"promptum/internal/validation"
)

// ValidatorSpec is the YAML form of a validator. Type selects the kind;
// all/any nest child specs for combinators.
type ValidatorSpec struct {
	Type       string          `yaml:"type"`
	Value      string          `yaml:"value"`
	IgnoreCase bool            `yaml:"ignore_case"`
	TrimSpace  bool            `yaml:"trim_space"`
	Schema     string          `yaml:"schema"`
	All        []ValidatorSpec `yaml:"all"`
	Any        []ValidatorSpec `yaml:"any"`
}

// Build constructs the validator the spec describes.
func (s ValidatorSpec) Build() (validation.Validator, error) {
	switch s.Type {
	case "exact":
		if s.Value == "" {
			return nil, fmt.Errorf("exact validator requires a value")
		}
		return validation.ExactMatch{
			Expected:   s.Value,
			IgnoreCase: s.IgnoreCase,
			TrimSpace:  s.TrimSpace,
		}, nil
	case "contains":
		if s.Value == "" {
			return nil, fmt.Errorf("contains validator requires a value")
		}
		return validation.Contains{
			Substring:  s.Value,
			IgnoreCase: s.IgnoreCase,
		}, nil
	case "regex":
		if s.Value == "" {
			return nil, fmt.Errorf("regex validator requires a value")
		}
		return validation.NewRegex(s.Value)
	case "json_schema":
		if s.Schema == "" {
			return nil, fmt.Errorf("json_schema validator requires a schema")
		}
		return validation.NewJSONSchema(s.Schema)
	case "all":
		children, err := buildChildren(s.All)
		if err != nil {
			return nil, err
		}
		return validation.All(children), nil
	case "any":
		children, err := buildChildren(s.Any)
		if err != nil {
			return nil, err
		}
		return validation.Any(children), nil
	case "":
		return nil, fmt.Errorf("validator type is required")
	default:
		return nil, fmt.Errorf("unknown validator type %q", s.Type)
	}
}

func buildChildren(specs []ValidatorSpec) ([]validation.Validator, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("combinator validator requires child validators")
	}
	children := make([]validation.Validator, 0, len(specs))
	for i, spec := range specs {
		child, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		children = append(children, child)
	}
	return children, nil
}
