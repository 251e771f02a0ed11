// Package profile loads vaccine threshold profiles from CUE files.
//
// A profile file declares entries under a top-level "profiles" struct, keyed
// by vaccine type label:
//
//	profiles: {
//		"mRNA": {min_temp: 2, max_temp: 8}
//		"mRNA-frozen": {min_temp: -25, max_temp: -15}
//	}
//
// Compiled profiles carry the same validation rules the engine applies at
// registration time, so a profile that loads cleanly will also register
// cleanly.
package profile

import (
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

// Profile is one compiled threshold entry.
type Profile struct {
	VaccineType string
	MinTemp     int64
	MaxTemp     int64
}

// CompileError reports a malformed profile with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileProfile parses one CUE value into a Profile. The value is the entry
// struct; the vaccine type comes from its label in the enclosing "profiles"
// struct.
func CompileProfile(vaccineType string, v cue.Value) (*Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Profile{VaccineType: compliance.Normalize(vaccineType)}

	minVal := v.LookupPath(cue.ParsePath("min_temp"))
	if !minVal.Exists() {
		return nil, &CompileError{
			Field:   "min_temp",
			Message: "min_temp is required",
			Pos:     v.Pos(),
		}
	}
	minTemp, err := minVal.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	p.MinTemp = minTemp

	maxVal := v.LookupPath(cue.ParsePath("max_temp"))
	if !maxVal.Exists() {
		return nil, &CompileError{
			Field:   "max_temp",
			Message: "max_temp is required",
			Pos:     v.Pos(),
		}
	}
	maxTemp, err := maxVal.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	p.MaxTemp = maxTemp

	if err := compliance.ValidateThresholds(p.VaccineType, p.MinTemp, p.MaxTemp); err != nil {
		return nil, &CompileError{
			Field:   "thresholds",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	return p, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
