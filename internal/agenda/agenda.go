// Package agenda runs the "what is on today" check on a cron schedule.
package agenda

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "apptcal/internal/log"
	"apptcal/internal/manager"
	"apptcal/internal/model"
)

// Job looks up the appointments active today and logs them.
type Job struct {
	book *manager.Locked
	loc  *time.Location
	now  func() time.Time
}

// NewJob builds a Job. A nil loc means time.Local; a nil now means time.Now.
func NewJob(book *manager.Locked, loc *time.Location, now func() time.Time) *Job {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Job{book: book, loc: loc, now: now}
}

// Today returns the current calendar date in the job's timezone.
func (j *Job) Today() model.Date {
	return model.DateOf(j.now().In(j.loc))
}

// Check returns today's appointments in storage order.
func (j *Job) Check() (model.Date, []*model.Appointment) {
	today := j.Today()
	var found []*model.Appointment
	j.book.View(func(m *manager.Manager) {
		found = m.AppointmentsOn(today, nil)
	})
	return today, found
}

// Run implements cron.Job.
func (j *Job) Run() {
	today, found := j.Check()
	if len(found) == 0 {
		appLog.Info("agenda: no appointments found", "date", today)
		return
	}
	appLog.Info("agenda: appointments found",
		"date", today,
		"count", len(found),
		"first", found[0].Description(),
	)
	for _, a := range found {
		appLog.Info("agenda: appointment", "date", today, "id", a.ID(), "display", a.Describe())
	}
}

// Start schedules job on spec (standard 5-field cron syntax) evaluated in
// loc and starts the scheduler. Callers stop it with Stop.
func Start(spec string, loc *time.Location, job cron.Job) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("agenda: schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("agenda scheduled", "spec", spec, "timezone", loc.String())
	return c, nil
}
