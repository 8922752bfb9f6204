package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, kind Kind, start, end Date, desc string) *Appointment {
	t.Helper()
	a, err := New(kind, start, end, desc)
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	jan1 := NewDate(2024, time.January, 1)
	jan5 := NewDate(2024, time.January, 5)

	tests := []struct {
		name      string
		kind      Kind
		start     Date
		end       Date
		wantField string
		wantKind  bool
	}{
		{name: "missing start", kind: Daily, end: jan5, wantField: "start"},
		{name: "missing end", kind: Daily, start: jan1, wantField: "end"},
		{name: "end before start", kind: Monthly, start: jan5, end: jan1, wantField: "range"},
		{name: "one-time also checked", kind: OneTime, start: jan5, end: jan1, wantField: "range"},
		{name: "unknown kind", kind: Kind(42), start: jan1, end: jan5, wantKind: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := New(tt.kind, tt.start, tt.end, "x")
			require.Error(t, err)
			assert.Nil(t, a)

			if tt.wantKind {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRange)
			var rangeErr *InvalidRangeError
			require.True(t, errors.As(err, &rangeErr))
			assert.Equal(t, tt.wantField, rangeErr.Field)
		})
	}
}

func TestNew_AssignsDistinctIDs(t *testing.T) {
	t.Parallel()

	d := NewDate(2024, time.March, 3)
	a := mustNew(t, OneTime, d, d, "same")
	b := mustNew(t, OneTime, d, d, "same")

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, a.Describe(), b.Describe())
}

func TestOneTime_OccursOnlyOnStart(t *testing.T) {
	t.Parallel()

	start := NewDate(2024, time.June, 10)
	a := mustNew(t, OneTime, start, start.AddDays(20), "dentist")

	for i := -40; i <= 40; i++ {
		d := start.AddDays(i)
		assert.Equal(t, i == 0, a.OccursOn(d), "date %s", d)
	}
}

func TestDaily_OccursWithinRange(t *testing.T) {
	t.Parallel()

	s := NewDate(2024, time.February, 27)
	e := NewDate(2024, time.March, 2)
	a := mustNew(t, Daily, s, e, "standup")

	for d := s.AddDays(-10); !d.After(e.AddDays(10)); d = d.AddDays(1) {
		want := !d.Before(s) && !d.After(e)
		assert.Equal(t, want, a.OccursOn(d), "date %s", d)
	}
}

func TestMonthly_MatchesDayOfMonth(t *testing.T) {
	t.Parallel()

	s := NewDate(2024, time.January, 15)
	e := NewDate(2024, time.April, 15)
	a := mustNew(t, Monthly, s, e, "rent due")

	assert.True(t, a.OccursOn(NewDate(2024, time.February, 15)))
	assert.False(t, a.OccursOn(NewDate(2024, time.February, 20)))
	assert.False(t, a.OccursOn(NewDate(2024, time.May, 15)), "past end")
	assert.False(t, a.OccursOn(NewDate(2023, time.December, 15)), "before start")

	for d := s.AddDays(-40); !d.After(e.AddDays(40)); d = d.AddDays(1) {
		want := !d.Before(s) && !d.After(e) && d.Day == s.Day
		assert.Equal(t, want, a.OccursOn(d), "date %s", d)
	}
}

func TestMonthly_SkipsShortMonths(t *testing.T) {
	t.Parallel()

	a := mustNew(t, Monthly, NewDate(2024, time.January, 31), NewDate(2024, time.June, 30), "payroll")

	var hits []Date
	for d := a.Start(); !d.After(a.End()); d = d.AddDays(1) {
		if a.OccursOn(d) {
			hits = append(hits, d)
		}
	}

	assert.Equal(t, []Date{
		NewDate(2024, time.January, 31),
		NewDate(2024, time.March, 31),
		NewDate(2024, time.May, 31),
	}, hits)
	assert.False(t, a.OccursBetween(NewDate(2024, time.February, 1), NewDate(2024, time.February, 29)))
	assert.False(t, a.OccursBetween(NewDate(2024, time.April, 1), NewDate(2024, time.April, 30)))
}

func TestSingleDayRange_OneOccurrenceForEveryKind(t *testing.T) {
	t.Parallel()

	d := NewDate(2024, time.July, 4)
	for _, k := range Kinds {
		a := mustNew(t, k, d, d, "holiday")

		count := 0
		for x := d.AddDays(-62); !x.After(d.AddDays(62)); x = x.AddDays(1) {
			if a.OccursOn(x) {
				count++
				assert.Equal(t, d, x)
			}
		}
		assert.Equal(t, 1, count, "kind %s", k)
	}
}

func TestOccursBetween_AgreesWithDayByDay(t *testing.T) {
	t.Parallel()

	appts := []*Appointment{
		mustNew(t, OneTime, NewDate(2024, time.March, 10), NewDate(2024, time.March, 12), "a"),
		mustNew(t, Daily, NewDate(2024, time.March, 5), NewDate(2024, time.March, 20), "b"),
		mustNew(t, Monthly, NewDate(2024, time.January, 30), NewDate(2024, time.December, 31), "c"),
		mustNew(t, Monthly, NewDate(2024, time.March, 8), NewDate(2024, time.March, 8), "d"),
	}

	base := NewDate(2024, time.January, 1)
	for _, a := range appts {
		for off := 0; off < 120; off += 3 {
			from := base.AddDays(off)
			for span := -2; span < 45; span += 4 {
				to := from.AddDays(span)

				want := false
				for d := from; !d.After(to); d = d.AddDays(1) {
					if a.OccursOn(d) {
						want = true
						break
					}
				}
				require.Equal(t, want, a.OccursBetween(from, to), "%s in [%s, %s]", a, from, to)
			}
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	s := NewDate(2024, time.January, 1)
	e := NewDate(2024, time.January, 5)

	assert.Equal(t, "Daily 2024-01-01 to 2024-01-05: standup", mustNew(t, Daily, s, e, "standup").Describe())
	assert.Equal(t, "Monthly 2024-01-01 to 2024-01-05: rent", mustNew(t, Monthly, s, e, "rent").String())
	assert.Equal(t, "One-time 2024-01-01: ", mustNew(t, OneTime, s, e, "").Describe())
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Kind{
		"One-time": OneTime,
		"onetime":  OneTime,
		"DAILY":    Daily,
		" monthly": Monthly,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("weekly")
	assert.ErrorIs(t, err, ErrUnknownKind)

	text, err := OneTime.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "one-time", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("monthly")))
	assert.Equal(t, Monthly, k)
}
