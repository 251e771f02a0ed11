package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios set up thresholds and batches, submit a flow of readings and
// assert on the resulting compliance state and breach log.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Admin is the deployer identity. Defaults to "harness-admin".
	Admin string `yaml:"admin,omitempty"`

	// Thresholds to register before the flow runs.
	Thresholds []ThresholdStep `yaml:"thresholds"`

	// Batches to initialize before the flow runs, in order.
	Batches []BatchStep `yaml:"batches"`

	// Flow contains the reading submissions, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	// Supported types: compliance, reading_count, average, breach_count
	Assertions []Assertion `yaml:"assertions"`
}

// ThresholdStep registers one vaccine type.
type ThresholdStep struct {
	VaccineType string `yaml:"vaccine_type"`
	MinTemp     int64  `yaml:"min_temp"`
	MaxTemp     int64  `yaml:"max_temp"`
}

// BatchStep initializes one batch.
type BatchStep struct {
	BatchID     int64  `yaml:"batch_id"`
	VaccineType string `yaml:"vaccine_type"`
}

// FlowStep submits one reading.
type FlowStep struct {
	BatchID     int64  `yaml:"batch_id"`
	Temperature int64  `yaml:"temperature"`
	Submitter   string `yaml:"submitter,omitempty"`
	Metadata    string `yaml:"metadata,omitempty"`

	// Advance burns this many sequence units before the submission,
	// simulating unrelated activity between readings.
	Advance int64 `yaml:"advance,omitempty"`

	// Expect is "ok" or "breach". Empty means no validation.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	BatchID int64 `yaml:"batch_id"`

	// Compliance fields (subset match via pointers).
	Compliant      *bool  `yaml:"compliant,omitempty"`
	ExcursionCount *int64 `yaml:"excursion_count,omitempty"`
	FlaggedReason  string `yaml:"flagged_reason,omitempty"`

	// Count for reading_count and breach_count.
	Count int64 `yaml:"count,omitempty"`

	// Value for average.
	Value int64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertCompliance   = "compliance"
	AssertReadingCount = "reading_count"
	AssertAverage      = "average"
	AssertBreachCount  = "breach_count"
)

// Flow expectation constants.
const (
	ExpectOK     = "ok"
	ExpectBreach = "breach"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected to catch typos like "assertion:" for "assertions:".
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must contain at least one step")
	}
	for i, step := range s.Flow {
		if step.BatchID == 0 {
			return fmt.Errorf("flow step %d: batch_id is required", i)
		}
		switch step.Expect {
		case "", ExpectOK, ExpectBreach:
		default:
			return fmt.Errorf("flow step %d: unknown expect %q", i, step.Expect)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertCompliance, AssertReadingCount, AssertAverage, AssertBreachCount:
		default:
			return fmt.Errorf("assertion %d: unknown type %q", i, a.Type)
		}
	}
	return nil
}
