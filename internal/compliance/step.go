package compliance

// Outcome classifies what a single Step did to the record.
type Outcome int

const (
	// OutcomeInRange: temperature inside the allowed range. Closes any open
	// excursion window.
	OutcomeInRange Outcome = iota + 1

	// OutcomeExcursionOngoing: out of range, but inside the open window.
	// Continuation of the current excursion; nothing counted.
	OutcomeExcursionOngoing

	// OutcomeExcursionNew: out of range, new excursion episode counted,
	// batch still compliant.
	OutcomeExcursionNew

	// OutcomeFlagged: this excursion exhausted the budget; batch is now
	// permanently non-compliant.
	OutcomeFlagged

	// OutcomeAlreadyFlagged: the record was already terminal; only
	// LastChecked moves.
	OutcomeAlreadyFlagged
)

// String returns the snake_case name used in traces and logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeInRange:
		return "in_range"
	case OutcomeExcursionOngoing:
		return "excursion_ongoing"
	case OutcomeExcursionNew:
		return "excursion_new"
	case OutcomeFlagged:
		return "flagged"
	case OutcomeAlreadyFlagged:
		return "already_flagged"
	default:
		return "unknown"
	}
}

// Breached reports whether this outcome leaves the batch non-compliant.
func (o Outcome) Breached() bool {
	return o == OutcomeFlagged || o == OutcomeAlreadyFlagged
}

// Step is the excursion state-transition function.
//
// Given the current record, one temperature, and the logical clock value, it
// returns the updated record and the outcome. Non-compliance is terminal and
// short-circuits all range logic. LastChecked always advances to now.
//
// The excursion window exists so a sustained breach does not inflate the
// counter on every reading that arrives while the breach is still ongoing:
// only new breach episodes, separated by at least ExcursionWindow sequence
// units from the window start, count against the budget.
func Step(rec BatchRecord, temperature, now int64) (BatchRecord, Outcome) {
	rec.LastChecked = now

	if !rec.Compliant {
		return rec, OutcomeAlreadyFlagged
	}

	if rec.InRange(temperature) {
		// Close the window if one was open. Compliance is untouched.
		rec.LastExcursionAt = 0
		return rec, OutcomeInRange
	}

	if rec.LastExcursionAt != 0 && now-rec.LastExcursionAt < ExcursionWindow {
		// Same breach episode, not double-counted.
		return rec, OutcomeExcursionOngoing
	}

	// New excursion episode.
	rec.ExcursionCount++
	rec.LastExcursionAt = now

	if rec.ExcursionCount >= MaxExcursions {
		rec.Compliant = false
		rec.FlaggedReason = ReasonExcursionLimit
		return rec, OutcomeFlagged
	}

	return rec, OutcomeExcursionNew
}
