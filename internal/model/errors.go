package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is matched by every *InvalidRangeError.
	ErrInvalidRange = errors.New("model: invalid date range")
	// ErrUnknownKind is returned for recurrence kinds outside the closed set.
	ErrUnknownKind = errors.New("model: unknown appointment kind")
	// ErrInvalidDate is returned when a date string is not yyyy-mm-dd.
	ErrInvalidDate = errors.New("model: invalid date")
)

// InvalidRangeError reports an appointment whose dates are missing or out
// of order.
type InvalidRangeError struct {
	// Field names the offending input: "start", "end" or "range".
	Field  string
	Reason string
	Start  Date
	End    Date
}

func (e *InvalidRangeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "range" {
		return fmt.Sprintf("invalid date range: %s (start %s, end %s)", e.Reason, e.Start, e.End)
	}
	return fmt.Sprintf("invalid date range: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidRange) match.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}
