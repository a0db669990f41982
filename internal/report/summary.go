package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

// Summary formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Summary is the machine-readable form of a run
type Summary struct {
	types.RunResult `yaml:",inline"`
	Passed          bool                 `json:"passed" yaml:"passed"`
	Counts          map[types.Status]int `json:"counts" yaml:"counts"`
}

// NewSummary wraps run with its verdict and per-status counts
func NewSummary(run *types.RunResult) Summary {
	return Summary{RunResult: *run, Passed: run.Passed(), Counts: run.Counts()}
}

// SummaryFile is the file name of the summary in the given format
func SummaryFile(format string) string {
	return "summary." + normalize(format)
}

// WriteSummary encodes run to w as JSON or YAML
func WriteSummary(w io.Writer, run *types.RunResult, format string) error {
	s := NewSummary(run)
	switch normalize(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported summary format %q", format)
	}
}

// ReadSummary decodes a summary written by WriteSummary
func ReadSummary(r io.Reader, format string) (*Summary, error) {
	var s Summary
	switch normalize(format) {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&s); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported summary format %q", format)
	}
	return &s, nil
}

func normalize(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "yml" {
		return FormatYAML
	}
	return f
}
