package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Appointment is an immutable occurrence pattern with a description.
// Build one with New; "updating" an appointment means building a new one
// and replacing the old value in the manager.
type Appointment struct {
	id          uuid.UUID
	kind        Kind
	start       Date
	end         Date
	description string
}

// New validates the inputs and returns an appointment with a fresh ID.
//
// Both dates must be set and end must not precede start. For OneTime the
// end date is kept for display but plays no part in matching.
func New(kind Kind, start, end Date, description string) (*Appointment, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if start.IsZero() {
		return nil, &InvalidRangeError{Field: "start", Reason: "date not selected", Start: start, End: end}
	}
	if end.IsZero() {
		return nil, &InvalidRangeError{Field: "end", Reason: "date not selected", Start: start, End: end}
	}
	if end.Before(start) {
		return nil, &InvalidRangeError{Field: "range", Reason: "end date is before start date", Start: start, End: end}
	}

	return &Appointment{
		id:          uuid.New(),
		kind:        kind,
		start:       start,
		end:         end,
		description: description,
	}, nil
}

func (a *Appointment) ID() uuid.UUID       { return a.id }
func (a *Appointment) Kind() Kind          { return a.kind }
func (a *Appointment) Start() Date         { return a.start }
func (a *Appointment) End() Date           { return a.end }
func (a *Appointment) Description() string { return a.description }

// OccursOn reports whether the appointment is active on d.
func (a *Appointment) OccursOn(d Date) bool {
	switch a.kind {
	case OneTime:
		return d == a.start
	case Daily:
		return a.inRange(d)
	case Monthly:
		return a.inRange(d) && d.Day == a.start.Day
	default:
		return false
	}
}

// OccursBetween reports whether OccursOn holds for at least one day in
// [from, to]. It returns false when from is after to.
func (a *Appointment) OccursBetween(from, to Date) bool {
	if from.After(to) {
		return false
	}

	switch a.kind {
	case OneTime:
		return !a.start.Before(from) && !a.start.After(to)
	case Daily:
		lo, hi := MaxDate(from, a.start), MinDate(to, a.end)
		return !lo.After(hi)
	case Monthly:
		lo, hi := MaxDate(from, a.start), MinDate(to, a.end)
		if lo.After(hi) {
			return false
		}
		// Walk the months of [lo, hi]; months shorter than the start
		// day-of-month have no occurrence.
		for m := NewDate(lo.Year, lo.Month, 1); !m.After(hi); m = m.AddMonths(1) {
			if a.start.Day > m.DaysIn() {
				continue
			}
			c := Date{Year: m.Year, Month: m.Month, Day: a.start.Day}
			if !c.Before(lo) && !c.After(hi) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Describe renders the appointment for list display.
func (a *Appointment) Describe() string {
	if a.kind == OneTime {
		return fmt.Sprintf("%s %s: %s", a.kind, a.start, a.description)
	}
	return fmt.Sprintf("%s %s to %s: %s", a.kind, a.start, a.end, a.description)
}

func (a *Appointment) String() string {
	return a.Describe()
}

func (a *Appointment) inRange(d Date) bool {
	return !d.Before(a.start) && !d.After(a.end)
}
