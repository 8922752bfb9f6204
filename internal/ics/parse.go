package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

// ErrUnsupportedRule is returned for recurrences that have no appointment
// kind: unbounded rules, intervals, weekday filters, weekly/yearly
// frequencies.
var ErrUnsupportedRule = errors.New("ics: unsupported recurrence")

// ParsedEvent is the normalized representation of a VEVENT before it is
// mapped to an appointment.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string

	Start model.Date
	// End is the X-APPTCAL-END date when present.
	End model.Date

	RawRRule string
}

// ImportResult lists the appointments built from an ICS payload and the
// UIDs of events that could not be mapped.
type ImportResult struct {
	Appointments []*model.Appointment
	Skipped      []string
}

// ParseICS parses a single ICS payload into new appointments.
//
//   - Events without RRULE become one-time appointments.
//   - FREQ=DAILY and FREQ=MONTHLY rules bounded by UNTIL or COUNT become
//     daily/monthly appointments ending on the last instance.
//   - Anything else is logged and reported in Skipped.
func ParseICS(body []byte) (ImportResult, error) {
	var result ImportResult
	if len(bytes.TrimSpace(body)) == 0 {
		return result, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return result, fmt.Errorf("ics: parse calendar: %w", err)
	}

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr == nil {
			var a *model.Appointment
			a, perr = toAppointment(ev)
			if perr == nil {
				result.Appointments = append(result.Appointments, a)
				continue
			}
		}
		// Log and skip this event, but keep parsing others.
		appLog.Error("ics vevent skipped", perr, "uid", ev.UID)
		result.Skipped = append(result.Skipped, ev.UID)
	}

	appLog.Info("ics parse completed", "imported", len(result.Appointments), "skipped", len(result.Skipped))
	return result, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	// DTSTART may be DATE or DATE-TIME; only the calendar date matters.
	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil || dtStartProp.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	start, err := parseICSTime(dtStartProp.Value)
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = model.DateOf(start)

	if p := ve.GetProperty(propEnd); p != nil && p.Value != "" {
		if end, err := parseICSTime(p.Value); err == nil {
			out.End = model.DateOf(end)
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = strings.TrimSpace(p.Value)
	}

	return out, nil
}

func toAppointment(ev ParsedEvent) (*model.Appointment, error) {
	desc := ev.Summary
	if desc == "" {
		desc = ev.Description
	}

	if ev.RawRRule == "" {
		end := ev.End
		if end.IsZero() {
			end = ev.Start
		}
		return model.New(model.OneTime, ev.Start, end, desc)
	}

	opt, err := rrule.StrToROption(ev.RawRRule)
	if err != nil {
		return nil, fmt.Errorf("RRULE %q: %w", ev.RawRRule, err)
	}

	var kind model.Kind
	switch opt.Freq {
	case rrule.DAILY:
		kind = model.Daily
	case rrule.MONTHLY:
		kind = model.Monthly
	default:
		return nil, fmt.Errorf("%w: FREQ=%v", ErrUnsupportedRule, opt.Freq)
	}

	if err := checkFilters(opt, kind, ev.Start); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrUnsupportedRule, err, ev.RawRRule)
	}
	if opt.Until.IsZero() && opt.Count == 0 {
		return nil, fmt.Errorf("%w: unbounded rule", ErrUnsupportedRule)
	}

	var end model.Date
	if !opt.Until.IsZero() {
		end = model.DateOf(opt.Until)
	} else {
		opt.Dtstart = ev.Start.Time()
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return nil, fmt.Errorf("RRULE %q: %w", ev.RawRRule, err)
		}
		times := r.All()
		if len(times) == 0 {
			return nil, fmt.Errorf("%w: rule yields no instances", ErrUnsupportedRule)
		}
		end = model.DateOf(times[len(times)-1])
	}

	return model.New(kind, ev.Start, end, desc)
}

// checkFilters rejects BYxxx parts that would select a subset of the days
// the kind covers. A monthly rule may only restate its own day-of-month.
func checkFilters(opt *rrule.ROption, kind model.Kind, start model.Date) error {
	switch {
	case opt.Interval > 1:
		return errors.New("INTERVAL")
	case len(opt.Byweekday) > 0:
		return errors.New("BYDAY")
	case len(opt.Bymonth) > 0:
		return errors.New("BYMONTH")
	case len(opt.Bysetpos) > 0:
		return errors.New("BYSETPOS")
	case len(opt.Byyearday) > 0:
		return errors.New("BYYEARDAY")
	case len(opt.Byweekno) > 0:
		return errors.New("BYWEEKNO")
	case len(opt.Byeaster) > 0:
		return errors.New("BYEASTER")
	case len(opt.Byhour) > 0, len(opt.Byminute) > 0, len(opt.Bysecond) > 0:
		return errors.New("time-of-day filter")
	}

	if len(opt.Bymonthday) == 0 {
		return nil
	}
	if kind == model.Monthly && len(opt.Bymonthday) == 1 && opt.Bymonthday[0] == start.Day {
		return nil
	}
	return errors.New("BYMONTHDAY")
}

// parseICSTime parses a basic ICS date/date-time string into time.Time.
// Local date-times are read as UTC; callers only keep the calendar date.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, time.UTC)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation(icsDateLayout, v, time.UTC)
}
