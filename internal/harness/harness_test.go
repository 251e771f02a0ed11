package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenariosAgainstGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunReportsFailedExpectation(t *testing.T) {
	scenario := &Scenario{
		Name: "wrong-expectation",
		Thresholds: []ThresholdStep{
			{VaccineType: "mRNA", MinTemp: 2, MaxTemp: 8},
		},
		Batches: []BatchStep{
			{BatchID: 1, VaccineType: "mRNA"},
		},
		Flow: []FlowStep{
			// In range, but the scenario claims it breaches.
			{BatchID: 1, Temperature: 5, Expect: ExpectBreach},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected breach")
}

func TestRunReportsFailedAssertion(t *testing.T) {
	scenario := &Scenario{
		Name: "wrong-assertion",
		Thresholds: []ThresholdStep{
			{VaccineType: "mRNA", MinTemp: 2, MaxTemp: 8},
		},
		Batches: []BatchStep{
			{BatchID: 1, VaccineType: "mRNA"},
		},
		Flow: []FlowStep{
			{BatchID: 1, Temperature: 5, Expect: ExpectOK},
		},
		Assertions: []Assertion{
			{Type: AssertReadingCount, BatchID: 1, Count: 7},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "reading count 1, want 7")
}

func TestRunFailsOnUnknownBatch(t *testing.T) {
	scenario := &Scenario{
		Name: "unknown-batch",
		Flow: []FlowStep{
			{BatchID: 42, Temperature: 5},
		},
	}

	_, err := Run(scenario)
	assert.Error(t, err, "submitting to an uninitialized batch is a scenario bug")
}

func writeScenarioFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := writeScenarioFile(t, `
name: typo
flow:
  - batch_id: 1
    temperature: 5
assertion:
  - type: reading_count
`)

	_, err := LoadScenario(path)
	assert.Error(t, err, "misspelled assertions key must be rejected")
}

func TestLoadScenarioRequiresName(t *testing.T) {
	path := writeScenarioFile(t, `
flow:
  - batch_id: 1
    temperature: 5
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadScenarioRejectsBadExpect(t *testing.T) {
	path := writeScenarioFile(t, `
name: bad-expect
flow:
  - batch_id: 1
    temperature: 5
    expect: maybe
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown expect")
}

func TestLoadScenarioRejectsBadAssertionType(t *testing.T) {
	path := writeScenarioFile(t, `
name: bad-assertion
flow:
  - batch_id: 1
    temperature: 5
assertions:
  - type: state_query
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}
