package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

const (
	productID = "-//apptcal//appointments//EN"

	// propEnd carries the appointment end date so that one-time
	// appointments (whose RRULE has no UNTIL) keep it across a round trip.
	propEnd = ical.ComponentProperty("X-APPTCAL-END")

	icsDateLayout = "20060102"
)

// Export renders appointments as an iCalendar document with one all-day
// VEVENT per appointment. stamp is written as DTSTAMP.
func Export(appts []*model.Appointment, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, a := range appts {
		if a == nil {
			continue
		}
		opt, err := ruleOption(a)
		if err != nil {
			appLog.Error("ics export: skipping appointment", err, "id", a.ID())
			continue
		}

		ev := cal.AddEvent(a.ID().String())
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(a.Description())
		ev.SetAllDayStartAt(a.Start().Time())
		ev.SetAllDayEndAt(a.Start().AddDays(1).Time())
		ev.SetProperty(propEnd, a.End().Time().Format(icsDateLayout))

		if a.Kind() != model.OneTime {
			ev.AddProperty(ical.ComponentPropertyRrule, opt.RRuleString())
		}
	}

	appLog.Debug("ics export completed", "event_count", len(appts))
	return cal.Serialize()
}
