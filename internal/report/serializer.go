// Package report renders benchmark reports into output formats.
package report

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"promptum/internal/benchmark"
)

// Serializer renders a report into one output format.
type Serializer interface {
	Serialize(r *benchmark.Report) ([]byte, error)
	ContentType() string
}

// ForFormat returns the serializer for a format name ("json", "yaml",
// "html").
func ForFormat(format string) (Serializer, error) {
	switch format {
	case "json":
		return JSONSerializer{}, nil
	case "yaml", "yml":
		return YAMLSerializer{}, nil
	case "html":
		return HTMLSerializer{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// JSONSerializer renders an indented JSON document.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(r *benchmark.Report) ([]byte, error) {
	return json.MarshalIndent(reportDocument(r), "", "  ")
}

func (JSONSerializer) ContentType() string { return "application/json" }

// YAMLSerializer renders a YAML document.
type YAMLSerializer struct{}

func (YAMLSerializer) Serialize(r *benchmark.Report) ([]byte, error) {
	// Round-trip through JSON so the json struct tags define the YAML keys
	// and both formats stay consistent.
	raw, err := json.Marshal(reportDocument(r))
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func (YAMLSerializer) ContentType() string { return "application/yaml" }

// document pairs the report with its computed summary so every format
// carries both.
type document struct {
	Report  *benchmark.Report `json:"report"`
	Summary benchmark.Summary `json:"summary"`
}

func reportDocument(r *benchmark.Report) document {
	return document{Report: r, Summary: r.Summarize()}
}
