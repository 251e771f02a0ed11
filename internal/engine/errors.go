package engine

import (
	"errors"
	"fmt"
)

// OpError is the caller-visible result code for a failed operation.
//
// Every failure in this taxonomy is synchronous and recoverable by the
// caller (retry with corrected input); none is process-fatal, and the engine
// never retries on the caller's behalf.
//
// One code carries a side-effect caveat: CodeInvalidTemperature means the
// batch is (or just became) non-compliant, but the triggering reading was
// still durably appended to the ledger before the error was returned.
type OpError struct {
	// Code identifies the error category.
	Code OpErrorCode

	// Message is a human-readable description.
	Message string

	// Caller identifies the rejected identity (authorization errors).
	Caller string

	// BatchID identifies the affected batch, when one is involved.
	BatchID int64

	// VaccineType identifies the registry entry, when one is involved.
	VaccineType string
}

// OpErrorCode categorizes operation failures.
type OpErrorCode string

const (
	// ErrCodeUnauthorized - caller is not the current administrator.
	ErrCodeUnauthorized OpErrorCode = "UNAUTHORIZED"

	// ErrCodePaused - mutating operation attempted while paused.
	ErrCodePaused OpErrorCode = "PAUSED"

	// ErrCodeInvalidThreshold - threshold bounds violate the sanity invariant.
	ErrCodeInvalidThreshold OpErrorCode = "INVALID_THRESHOLD"

	// ErrCodeInvalidVaccineType - batch initialization referenced an
	// unregistered vaccine type.
	ErrCodeInvalidVaccineType OpErrorCode = "INVALID_VACCINE_TYPE"

	// ErrCodeBatchNotFound - operation referenced a batch with no record.
	ErrCodeBatchNotFound OpErrorCode = "BATCH_NOT_FOUND"

	// ErrCodeBatchExists - initialization of an already-initialized batch.
	ErrCodeBatchExists OpErrorCode = "BATCH_EXISTS"

	// ErrCodeMetadataTooLong - submitted metadata exceeds the length cap.
	ErrCodeMetadataTooLong OpErrorCode = "METADATA_TOO_LONG"

	// ErrCodeInvalidTemperature - the reading caused (or found) the batch
	// non-compliant. The reading IS recorded despite this failure return.
	ErrCodeInvalidTemperature OpErrorCode = "INVALID_TEMPERATURE"

	// ErrCodeNoReadings - average requested for a batch with no readings.
	ErrCodeNoReadings OpErrorCode = "NO_READINGS"
)

// Error implements the error interface.
func (e *OpError) Error() string {
	switch {
	case e.BatchID != 0 && e.Caller != "":
		return fmt.Sprintf("%s: %s (batch=%d, caller=%s)", e.Code, e.Message, e.BatchID, e.Caller)
	case e.BatchID != 0:
		return fmt.Sprintf("%s: %s (batch=%d)", e.Code, e.Message, e.BatchID)
	case e.VaccineType != "":
		return fmt.Sprintf("%s: %s (vaccine_type=%s)", e.Code, e.Message, e.VaccineType)
	case e.Caller != "":
		return fmt.Sprintf("%s: %s (caller=%s)", e.Code, e.Message, e.Caller)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf extracts the OpErrorCode from an error, or "" if the error is not
// an OpError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) OpErrorCode {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return CodeOf(err) == ErrCodeUnauthorized }

// IsPaused reports whether err is a paused rejection.
func IsPaused(err error) bool { return CodeOf(err) == ErrCodePaused }

// IsInvalidThreshold reports whether err is a threshold sanity failure.
func IsInvalidThreshold(err error) bool { return CodeOf(err) == ErrCodeInvalidThreshold }

// IsInvalidVaccineType reports whether err references an unregistered type.
func IsInvalidVaccineType(err error) bool { return CodeOf(err) == ErrCodeInvalidVaccineType }

// IsBatchNotFound reports whether err references a missing batch.
func IsBatchNotFound(err error) bool { return CodeOf(err) == ErrCodeBatchNotFound }

// IsBatchExists reports whether err is a duplicate initialization.
func IsBatchExists(err error) bool { return CodeOf(err) == ErrCodeBatchExists }

// IsMetadataTooLong reports whether err is a metadata length rejection.
func IsMetadataTooLong(err error) bool { return CodeOf(err) == ErrCodeMetadataTooLong }

// IsInvalidTemperature reports whether err is a non-compliance result.
// The triggering reading was still recorded.
func IsInvalidTemperature(err error) bool { return CodeOf(err) == ErrCodeInvalidTemperature }

// IsNoReadings reports whether err is an empty-ledger average request.
func IsNoReadings(err error) bool { return CodeOf(err) == ErrCodeNoReadings }

func errUnauthorized(caller string) *OpError {
	return &OpError{
		Code:    ErrCodeUnauthorized,
		Message: "caller is not the current administrator",
		Caller:  caller,
	}
}

func errPaused() *OpError {
	return &OpError{
		Code:    ErrCodePaused,
		Message: "system is paused",
	}
}

func errInvalidThreshold(vaccineType string, cause error) *OpError {
	return &OpError{
		Code:        ErrCodeInvalidThreshold,
		Message:     cause.Error(),
		VaccineType: vaccineType,
	}
}

func errInvalidVaccineType(vaccineType string) *OpError {
	return &OpError{
		Code:        ErrCodeInvalidVaccineType,
		Message:     "vaccine type is not registered",
		VaccineType: vaccineType,
	}
}

func errBatchNotFound(batchID int64) *OpError {
	return &OpError{
		Code:    ErrCodeBatchNotFound,
		Message: "no compliance record for batch",
		BatchID: batchID,
	}
}

func errBatchExists(batchID int64) *OpError {
	return &OpError{
		Code:    ErrCodeBatchExists,
		Message: "batch is already initialized",
		BatchID: batchID,
	}
}

func errMetadataTooLong(batchID int64, length int) *OpError {
	return &OpError{
		Code:    ErrCodeMetadataTooLong,
		Message: fmt.Sprintf("metadata length %d exceeds cap", length),
		BatchID: batchID,
	}
}

func errInvalidTemperature(batchID int64, reason string) *OpError {
	return &OpError{
		Code:    ErrCodeInvalidTemperature,
		Message: reason,
		BatchID: batchID,
	}
}

func errNoReadings(batchID int64) *OpError {
	return &OpError{
		Code:    ErrCodeNoReadings,
		Message: "no readings recorded for batch",
		BatchID: batchID,
	}
}
