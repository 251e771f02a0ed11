// Package harness provides a conformance testing framework for the
// compliance engine.
//
// Scenarios run against the real engine over a fresh in-memory database
// with a fixed breach-event id generator, so every run of a scenario
// produces an identical trace. Traces are compared against golden files
// checked in under testdata/golden.
package harness

import (
	"context"
	"fmt"

	"github.com/coldtrace/coldtrace/internal/compliance"
	"github.com/coldtrace/coldtrace/internal/engine"
	"github.com/coldtrace/coldtrace/internal/store"
)

// DefaultAdmin is the deployer identity when a scenario does not set one.
const DefaultAdmin = "harness-admin"

// defaultSubmitter is the reading submitter when a flow step does not set one.
const defaultSubmitter = "harness"

// TraceEvent is one entry in a scenario's execution trace.
// Type is "reading" for ledger appends and "breach" for notified breach
// events.
type TraceEvent struct {
	Type        string `json:"type"`
	BatchID     int64  `json:"batch_id"`
	ReadingID   int64  `json:"reading_id,omitempty"`
	Temperature *int64 `json:"temperature,omitempty"`
	Seq         int64  `json:"seq"`
	EventID     string `json:"event_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Result holds the outcome of one scenario execution.
type Result struct {
	Trace  []TraceEvent
	Errors []string
}

// Passed reports whether every expectation and assertion held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// AddError records an expectation or assertion failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Run executes a scenario against a fresh in-memory database.
//
// Breach-event ids come from a FixedGenerator ("ev-1", "ev-2", ...), one id
// reserved per flow step, so traces are reproducible without UUID noise.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	admin := scenario.Admin
	if admin == "" {
		admin = DefaultAdmin
	}

	ids := make([]string, len(scenario.Flow))
	for i := range ids {
		ids[i] = fmt.Sprintf("ev-%d", i+1)
	}
	notifier := &engine.CollectNotifier{}

	ctx := context.Background()
	eng, err := engine.New(ctx, st, admin,
		engine.WithEventIDGenerator(engine.NewFixedGenerator(ids...)),
		engine.WithNotifier(notifier),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	for _, t := range scenario.Thresholds {
		if err := eng.SetVaccineThresholds(ctx, admin, t.VaccineType, t.MinTemp, t.MaxTemp); err != nil {
			return nil, fmt.Errorf("threshold %s: %w", t.VaccineType, err)
		}
	}
	for _, b := range scenario.Batches {
		if err := eng.InitializeBatch(ctx, b.BatchID, b.VaccineType); err != nil {
			return nil, fmt.Errorf("batch %d: %w", b.BatchID, err)
		}
	}

	result := &Result{}
	notified := 0

	for i, step := range scenario.Flow {
		for n := int64(0); n < step.Advance; n++ {
			eng.Clock().Next()
		}

		submitter := step.Submitter
		if submitter == "" {
			submitter = defaultSubmitter
		}

		reading, err := eng.SubmitReading(ctx, submitter, step.BatchID, step.Temperature, step.Metadata)
		if err != nil && !engine.IsInvalidTemperature(err) {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}

		temp := reading.Temperature
		result.Trace = append(result.Trace, TraceEvent{
			Type:        "reading",
			BatchID:     reading.BatchID,
			ReadingID:   reading.ReadingID,
			Temperature: &temp,
			Seq:         reading.Seq,
		})

		events := notifier.Events()
		for _, ev := range events[notified:] {
			result.Trace = append(result.Trace, TraceEvent{
				Type:    "breach",
				BatchID: ev.BatchID,
				Seq:     ev.Seq,
				EventID: ev.EventID,
				Reason:  ev.Reason,
			})
		}
		notified = len(events)

		switch step.Expect {
		case ExpectOK:
			if err != nil {
				result.AddError(fmt.Sprintf("flow step %d: expected ok, got %v", i, err))
			}
		case ExpectBreach:
			if err == nil {
				result.AddError(fmt.Sprintf("flow step %d: expected breach, got ok", i))
			}
		}
	}

	evaluateAssertions(ctx, eng, scenario.Assertions, result)
	return result, nil
}

func evaluateAssertions(ctx context.Context, eng *engine.Engine, assertions []Assertion, result *Result) {
	for i, a := range assertions {
		switch a.Type {
		case AssertCompliance:
			rec, ok, err := eng.BatchCompliance(ctx, a.BatchID)
			if err != nil || !ok {
				result.AddError(fmt.Sprintf("assertion %d: no record for batch %d", i, a.BatchID))
				continue
			}
			checkCompliance(i, a, rec, result)
		case AssertReadingCount:
			count, err := eng.ReadingCount(ctx, a.BatchID)
			if err != nil {
				result.AddError(fmt.Sprintf("assertion %d: %v", i, err))
				continue
			}
			if count != a.Count {
				result.AddError(fmt.Sprintf("assertion %d: reading count %d, want %d", i, count, a.Count))
			}
		case AssertAverage:
			avg, err := eng.AverageTemperature(ctx, a.BatchID)
			if err != nil {
				result.AddError(fmt.Sprintf("assertion %d: %v", i, err))
				continue
			}
			if avg != a.Value {
				result.AddError(fmt.Sprintf("assertion %d: average %d, want %d", i, avg, a.Value))
			}
		case AssertBreachCount:
			events, err := eng.Breaches(ctx, a.BatchID)
			if err != nil {
				result.AddError(fmt.Sprintf("assertion %d: %v", i, err))
				continue
			}
			if int64(len(events)) != a.Count {
				result.AddError(fmt.Sprintf("assertion %d: breach count %d, want %d", i, len(events), a.Count))
			}
		}
	}
}

func checkCompliance(i int, a Assertion, rec compliance.BatchRecord, result *Result) {
	if a.Compliant != nil && rec.Compliant != *a.Compliant {
		result.AddError(fmt.Sprintf("assertion %d: compliant %t, want %t", i, rec.Compliant, *a.Compliant))
	}
	if a.ExcursionCount != nil && rec.ExcursionCount != *a.ExcursionCount {
		result.AddError(fmt.Sprintf("assertion %d: excursion count %d, want %d", i, rec.ExcursionCount, *a.ExcursionCount))
	}
	if a.FlaggedReason != "" && rec.FlaggedReason != a.FlaggedReason {
		result.AddError(fmt.Sprintf("assertion %d: flagged reason %q, want %q", i, rec.FlaggedReason, a.FlaggedReason))
	}
}
