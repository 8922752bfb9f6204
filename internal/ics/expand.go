package ics

import (
	"errors"
	"fmt"
	"slices"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// RangeStart / RangeEnd define the inclusive date window.
	RangeStart model.Date
	RangeEnd   model.Date

	// MaxOccurrencesPerEvent is a safety cap for very long ranges. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of expanded occurrences and the appointments
// that hit the cap.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedEvents records appointment IDs that hit MaxOccurrencesPerEvent.
	TruncatedEvents []string
}

// ExpandOccurrences turns appointments into dated occurrences within the
// configured window. Occurrences are ordered by date; appointments on the
// same date keep the order they were passed in.
func ExpandOccurrences(appts []*model.Appointment, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeStart.IsZero() || cfg.RangeEnd.IsZero() {
		return result, errors.New("expand: range bounds must be set")
	}
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	all := make([]model.Occurrence, 0)

	for _, a := range appts {
		if a == nil {
			continue
		}
		// Cheap pre-check so appointments far outside the window never
		// reach the rrule iterator.
		if !a.OccursBetween(cfg.RangeStart, cfg.RangeEnd) {
			continue
		}

		occ, hitCap, err := expandAppointment(a, cfg)
		if err != nil {
			appLog.Error("expand: failed to build rule", err, "id", a.ID())
			continue
		}
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, a.ID().String())
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"id", a.ID(),
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
		all = append(all, occ...)
	}

	slices.SortStableFunc(all, func(x, y model.Occurrence) int {
		return x.Date.Compare(y.Date)
	})

	result.Occurrences = all
	return result, nil
}

func expandAppointment(a *model.Appointment, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	r, err := RuleFor(a)
	if err != nil {
		return nil, false, err
	}

	from, to := cfg.RangeStart.Time(), cfg.RangeEnd.Time()

	// Walk the iterator instead of Between so a long rule stops at the cap
	// rather than materializing every instance in the window.
	var out []model.Occurrence
	next := r.Iterator()
	for t, ok := next(); ok && !t.After(to); t, ok = next() {
		if t.Before(from) {
			continue
		}
		if len(out) == cfg.MaxOccurrencesPerEvent {
			return out, true, nil
		}
		out = append(out, makeOccurrence(a, model.DateOf(t)))
	}
	return out, false, nil
}

func makeOccurrence(a *model.Appointment, d model.Date) model.Occurrence {
	return model.Occurrence{
		AppointmentID: a.ID(),
		InstanceKey:   fmt.Sprintf("%s/%s", a.ID(), d),
		Kind:          a.Kind(),
		Description:   a.Description(),
		Date:          d,
	}
}
