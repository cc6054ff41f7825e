// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/plant-harvester/pkg/types"
)

// SummaryFile is written at the root of the output directory after a batch.
const SummaryFile = "run-summary.yaml"

// Summary is the on-disk record of a batch run. It is informational only;
// later runs never read it.
type Summary struct {
	RunID     string                `yaml:"run_id,omitempty"`
	Finished  time.Time             `yaml:"finished"`
	Total     int                   `yaml:"total"`
	Succeeded int                   `yaml:"succeeded"`
	Failed    int                   `yaml:"failed"`
	Failures  []types.SymbolOutcome `yaml:"failures,omitempty"`
}

// NewSummary builds a Summary from a batch result.
func NewSummary(runID string, r BatchResult, finished time.Time) Summary {
	s := Summary{
		RunID:     runID,
		Finished:  finished.UTC(),
		Total:     r.Total(),
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
	}
	for _, o := range r.Outcomes {
		if o.State == types.StateFailed {
			s.Failures = append(s.Failures, o)
		}
	}
	return s
}

// WriteSummary writes s as YAML to path.
func WriteSummary(path string, s Summary) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing run summary: %w", err)
	}
	return &s, nil
}
