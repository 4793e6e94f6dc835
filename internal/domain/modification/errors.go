package modification

import (
	"errors"
	"fmt"
)

// Sentinel kinds for rejected modifications.
var (
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrUnknownEditType = errors.New("unknown edit type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvertedRange   = errors.New("start_date after end_date")
	ErrNonFiniteValue  = errors.New("value is not a finite number")
	ErrInvalidPayload  = errors.New("invalid modification payload")
)

// Machine-readable rejection reasons.
const (
	ReasonUnknownMetric   = "unknown_metric"
	ReasonUnknownEditType = "unknown_edit_type"
	ReasonInvalidDate     = "invalid_date"
	ReasonInvertedRange   = "inverted_range"
	ReasonNonFiniteValue  = "non_finite_value"
	ReasonInvalidPayload  = "invalid_payload"
)

// RejectionError explains why a modification was rejected.
type RejectionError struct {
	Reason string
	Err    error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("modification rejected (%s): %v", e.Reason, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

func reject(reason string, err error) error {
	return &RejectionError{Reason: reason, Err: err}
}

// ReasonOf returns the rejection reason carried by err, or ReasonInvalidPayload
// when err is not a RejectionError.
func ReasonOf(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ReasonInvalidPayload
}
