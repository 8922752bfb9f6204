package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptcal/internal/model"
)

func date(y int, m time.Month, d int) model.Date {
	return model.NewDate(y, m, d)
}

func appt(t *testing.T, kind model.Kind, start, end model.Date, desc string) *model.Appointment {
	t.Helper()
	a, err := model.New(kind, start, end, desc)
	require.NoError(t, err)
	return a
}

func ids(appts []*model.Appointment) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.ID())
	}
	return out
}

func TestAdd_KeepsDuplicates(t *testing.T) {
	t.Parallel()

	m := New()
	d := date(2024, time.January, 1)
	a := appt(t, model.OneTime, d, d, "lunch")
	b := appt(t, model.OneTime, d, d, "lunch")

	m.Add(a)
	m.Add(b)
	m.Add(nil)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []uuid.UUID{a.ID(), b.ID()}, ids(m.Appointments()))
}

func TestAppointments_ReturnsSnapshot(t *testing.T) {
	t.Parallel()

	m := New()
	d := date(2024, time.January, 1)
	a := appt(t, model.Daily, d, d.AddDays(3), "x")
	m.Add(a)

	snap := m.Appointments()
	snap[0] = nil

	require.Equal(t, 1, m.Len())
	got, ok := m.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	m := New()
	d := date(2024, time.January, 1)
	a := appt(t, model.OneTime, d, d, "a")
	b := appt(t, model.OneTime, d, d, "b")
	m.Add(a)
	m.Add(b)

	assert.True(t, m.Delete(a.ID()))
	assert.Equal(t, []uuid.UUID{b.ID()}, ids(m.Appointments()))

	assert.False(t, m.Delete(a.ID()), "second delete is a no-op")
	assert.False(t, m.Delete(uuid.New()))
	assert.Equal(t, 1, m.Len())
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	t.Parallel()

	m := New()
	d := date(2024, time.January, 1)
	first := appt(t, model.OneTime, d, d, "first")
	old := appt(t, model.Daily, d, d.AddDays(2), "old")
	last := appt(t, model.OneTime, d, d, "last")
	m.Add(first)
	m.Add(old)
	m.Add(last)

	next := appt(t, model.Monthly, d, d.AddDays(90), "new")
	require.True(t, m.Update(old.ID(), next))

	assert.Equal(t, []uuid.UUID{first.ID(), next.ID(), last.ID()}, ids(m.Appointments()))

	_, ok := m.Get(old.ID())
	assert.False(t, ok)
	assert.False(t, m.Delete(old.ID()), "old reference is stale")
	assert.False(t, m.Update(old.ID(), appt(t, model.OneTime, d, d, "again")))
	assert.False(t, m.Update(next.ID(), nil))
	assert.Equal(t, 3, m.Len())
}

func TestAppointmentsOn_SingleDate(t *testing.T) {
	t.Parallel()

	m := New()
	standup := appt(t, model.Daily, date(2024, time.January, 1), date(2024, time.January, 5), "standup")
	m.Add(standup)

	got := m.AppointmentsOn(date(2024, time.January, 3), nil)
	require.Len(t, got, 1)
	assert.Same(t, standup, got[0])

	empty := m.AppointmentsOn(date(2024, time.February, 1), nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAppointmentsOn_OnlyMatches(t *testing.T) {
	t.Parallel()

	m := New()
	rent := appt(t, model.Monthly, date(2024, time.January, 15), date(2024, time.April, 15), "rent due")
	standup := appt(t, model.Daily, date(2024, time.February, 10), date(2024, time.February, 20), "standup")
	dentist := appt(t, model.OneTime, date(2024, time.February, 15), date(2024, time.February, 15), "dentist")
	m.Add(rent)
	m.Add(standup)
	m.Add(dentist)

	for d := date(2024, time.January, 1); !d.After(date(2024, time.May, 31)); d = d.AddDays(1) {
		var want []uuid.UUID
		for _, a := range m.Appointments() {
			if a.OccursOn(d) {
				want = append(want, a.ID())
			}
		}
		got := m.AppointmentsOn(d, nil)
		if len(want) == 0 {
			assert.Empty(t, got, "date %s", d)
			continue
		}
		assert.Equal(t, want, ids(got), "date %s", d)
	}

	got := m.AppointmentsOn(date(2024, time.February, 15), nil)
	assert.Equal(t, []uuid.UUID{rent.ID(), standup.ID(), dentist.ID()}, ids(got), "storage order")
}

func TestAppointmentsOn_Range(t *testing.T) {
	t.Parallel()

	m := New()
	rent := appt(t, model.Monthly, date(2024, time.January, 15), date(2024, time.April, 15), "rent due")
	trip := appt(t, model.Daily, date(2024, time.March, 1), date(2024, time.March, 3), "trip")
	m.Add(rent)
	m.Add(trip)

	until := date(2024, time.February, 20)
	assert.Equal(t, []uuid.UUID{rent.ID()}, ids(m.AppointmentsOn(date(2024, time.February, 1), &until)))

	until = date(2024, time.March, 10)
	assert.Equal(t, []uuid.UUID{trip.ID()}, ids(m.AppointmentsOn(date(2024, time.March, 2), &until)))

	until = date(2024, time.March, 31)
	assert.Equal(t, []uuid.UUID{rent.ID(), trip.ID()}, ids(m.AppointmentsOn(date(2024, time.March, 1), &until)))

	until = date(2024, time.March, 1)
	inverted := m.AppointmentsOn(date(2024, time.March, 31), &until)
	assert.NotNil(t, inverted)
	assert.Empty(t, inverted)
}

func TestLocked_SerializesConcurrentUse(t *testing.T) {
	t.Parallel()

	l := NewLocked(nil)
	d := date(2024, time.January, 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a, err := model.New(model.OneTime, d, d, "x")
			if err != nil {
				return
			}
			l.Update(func(m *Manager) { m.Add(a) })
		}()
		go func() {
			defer wg.Done()
			l.View(func(m *Manager) { _ = m.AppointmentsOn(d, nil) })
		}()
	}
	wg.Wait()

	l.View(func(m *Manager) {
		assert.Equal(t, 20, m.Len())
	})
}
