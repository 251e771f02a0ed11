package compliance

import "fmt"

// Domain limits. Sequence-unit and count values mirror the deployed
// cold-chain policy and are not configurable per batch.
const (
	// MaxExcursions is the excursion budget. The excursion that brings the
	// count to this value permanently flags the batch.
	MaxExcursions = 5

	// ExcursionWindow is the span, in logical sequence units, during which an
	// out-of-range reading continues the current excursion instead of
	// starting a new one.
	ExcursionWindow = 300

	// MaxVaccineTypeLen bounds the vaccine-type label.
	MaxVaccineTypeLen = 32

	// MaxMetadataLen bounds free-text metadata on a reading submission.
	MaxMetadataLen = 500

	// MaxReasonLen bounds the flagged-reason text on a batch record.
	MaxReasonLen = 256
)

// ReasonExcursionLimit is the flagged reason written when the excursion
// budget is exhausted.
const ReasonExcursionLimit = "Excursion limit exceeded"

// Threshold bounds sanity limits: a range must satisfy
// max > min, min <= ThresholdMinCeiling, max >= ThresholdMaxFloor.
const (
	ThresholdMinCeiling = 100
	ThresholdMaxFloor   = -50
)

// Thresholds is the admin-configured allowed temperature range for one
// vaccine type. Entries are upserted by label and never deleted.
type Thresholds struct {
	VaccineType string
	MinTemp     int64
	MaxTemp     int64
	UpdatedSeq  int64
}

// ValidateThresholds checks the numeric and label sanity invariants for a
// registry entry. The returned error is diagnostic text only; callers wrap
// it into their own error taxonomy.
func ValidateThresholds(vaccineType string, minTemp, maxTemp int64) error {
	if vaccineType == "" {
		return fmt.Errorf("vaccine type must not be empty")
	}
	if len(vaccineType) > MaxVaccineTypeLen {
		return fmt.Errorf("vaccine type %q exceeds %d characters", vaccineType, MaxVaccineTypeLen)
	}
	if maxTemp <= minTemp {
		return fmt.Errorf("max_temp %d must be greater than min_temp %d", maxTemp, minTemp)
	}
	if minTemp > ThresholdMinCeiling {
		return fmt.Errorf("min_temp %d exceeds ceiling %d", minTemp, ThresholdMinCeiling)
	}
	if maxTemp < ThresholdMaxFloor {
		return fmt.Errorf("max_temp %d below floor %d", maxTemp, ThresholdMaxFloor)
	}
	return nil
}

// BatchRecord is the current compliance state for one batch.
//
// Thresholds are copied from the registry at initialization so later registry
// updates never rewrite history for batches already in flight.
//
// LastExcursionAt == 0 means no excursion window is open; sequence numbers
// start at 1, so zero is never a valid window start.
type BatchRecord struct {
	BatchID         int64
	VaccineType     string
	Compliant       bool
	LastChecked     int64
	FlaggedReason   string
	ExcursionCount  int64
	LastExcursionAt int64
	MinTemp         int64
	MaxTemp         int64
}

// NewBatchRecord seeds a compliant record from registry thresholds.
func NewBatchRecord(batchID int64, t Thresholds, now int64) BatchRecord {
	return BatchRecord{
		BatchID:     batchID,
		VaccineType: t.VaccineType,
		Compliant:   true,
		LastChecked: now,
		MinTemp:     t.MinTemp,
		MaxTemp:     t.MaxTemp,
	}
}

// InRange reports whether a temperature is inside the record's allowed range
// (inclusive on both ends).
func (r BatchRecord) InRange(temperature int64) bool {
	return temperature >= r.MinTemp && temperature <= r.MaxTemp
}

// Reading is one append-only ledger entry. ReadingID is dense, 1-based, and
// strictly increasing per batch; it is assigned by the store and never
// mutated after creation.
type Reading struct {
	BatchID     int64
	ReadingID   int64
	Temperature int64
	Seq         int64
	Submitter   string
	Metadata    string
}

// BreachEvent is the observable notification emitted whenever a reading
// submission ends with a non-compliant batch.
type BreachEvent struct {
	EventID string
	BatchID int64
	Reason  string
	Seq     int64
}

// FloorDiv returns the floor of a/b (rounds toward negative infinity).
// Go's integer division truncates toward zero, which differs for negative
// sums; freezer-range temperatures make negative sums routine.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
