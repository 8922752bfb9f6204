package ics

import (
	"fmt"

	"github.com/teambition/rrule-go"

	"apptcal/internal/model"
)

// ruleOption maps an appointment to its RFC 5545 recurrence. All dates are
// anchored at midnight UTC so the rule works on calendar days only.
//
//   - One-time: a single instance on the start date.
//   - Daily:    FREQ=DAILY until the end date.
//   - Monthly:  FREQ=MONTHLY;BYMONTHDAY=<start day> until the end date.
//     Months without that day produce no instance.
func ruleOption(a *model.Appointment) (rrule.ROption, error) {
	opt := rrule.ROption{
		Dtstart: a.Start().Time(),
	}

	switch a.Kind() {
	case model.OneTime:
		opt.Freq = rrule.DAILY
		opt.Count = 1
	case model.Daily:
		opt.Freq = rrule.DAILY
		opt.Until = a.End().Time()
	case model.Monthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{a.Start().Day}
		opt.Until = a.End().Time()
	default:
		return rrule.ROption{}, fmt.Errorf("%w: %s", model.ErrUnknownKind, a.Kind())
	}
	return opt, nil
}

// RuleFor builds the recurrence rule for a.
func RuleFor(a *model.Appointment) (*rrule.RRule, error) {
	opt, err := ruleOption(a)
	if err != nil {
		return nil, err
	}
	return rrule.NewRRule(opt)
}
