package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is the recurrence pattern of an appointment. The set is closed.
type Kind int

const (
	// OneTime occurs on its start date only.
	OneTime Kind = iota + 1
	// Daily occurs on every day from start to end inclusive.
	Daily
	// Monthly occurs on start's day-of-month in every month of the range.
	Monthly
)

// Kinds lists every valid Kind in display order.
var Kinds = []Kind{OneTime, Daily, Monthly}

func (k Kind) String() string {
	switch k {
	case OneTime:
		return "One-time"
	case Daily:
		return "Daily"
	case Monthly:
		return "Monthly"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == OneTime || k == Daily || k == Monthly
}

// ParseKind accepts the display labels case-insensitively plus a few
// spellings of one-time.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one-time", "onetime", "one_time", "once":
		return OneTime, nil
	case "daily":
		return Daily, nil
	case "monthly":
		return Monthly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// MarshalText renders the lowercase token (one-time, daily, monthly).
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(strings.ToLower(k.String())), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Occurrence represents a single concrete dated instance of an appointment
// (after recurrence expansion).
type Occurrence struct {
	AppointmentID uuid.UUID

	// InstanceKey uniquely identifies one occurrence of a recurring
	// appointment: "<id>/<yyyy-mm-dd>".
	InstanceKey string

	Kind        Kind
	Description string
	Date        Date
}
