package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appLog "apptcal/internal/log"
	"apptcal/internal/manager"
	"apptcal/internal/model"
)

func seeded(t *testing.T) *manager.Locked {
	t.Helper()

	m := manager.New()
	for _, spec := range []struct {
		kind       model.Kind
		start, end model.Date
		desc       string
	}{
		{model.Daily, model.NewDate(2024, time.January, 1), model.NewDate(2024, time.January, 5), "standup"},
		{model.Monthly, model.NewDate(2023, time.December, 3), model.NewDate(2024, time.June, 3), "review"},
	} {
		a, err := model.New(spec.kind, spec.start, spec.end, spec.desc)
		require.NoError(t, err)
		m.Add(a)
	}
	return manager.NewLocked(m)
}

func TestJob_TodayUsesConfiguredZone(t *testing.T) {
	t.Parallel()

	// 2024-01-02 20:00 UTC is already 2024-01-03 in Seoul.
	now := func() time.Time { return time.Date(2024, time.January, 2, 20, 0, 0, 0, time.UTC) }

	utc := NewJob(seeded(t), time.UTC, now)
	seoul := NewJob(seeded(t), time.FixedZone("KST", 9*60*60), now)

	assert.Equal(t, model.NewDate(2024, time.January, 2), utc.Today())
	assert.Equal(t, model.NewDate(2024, time.January, 3), seoul.Today())

	_, found := seoul.Check()
	require.Len(t, found, 2)
	assert.Equal(t, "standup", found[0].Description())
	assert.Equal(t, "review", found[1].Description())
}

func TestJob_RunLogsMatches(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	appLog.Use(zap.New(core))
	t.Cleanup(func() { appLog.Use(nil) })

	job := NewJob(seeded(t), time.UTC, func() time.Time {
		return time.Date(2024, time.January, 4, 8, 0, 0, 0, time.UTC)
	})
	job.Run()

	found := logs.FilterMessage("agenda: appointments found").All()
	require.Len(t, found, 1)
	assert.Equal(t, "standup", found[0].ContextMap()["first"])
	assert.EqualValues(t, 1, found[0].ContextMap()["count"])

	job = NewJob(seeded(t), time.UTC, func() time.Time {
		return time.Date(2024, time.February, 10, 8, 0, 0, 0, time.UTC)
	})
	job.Run()
	assert.Equal(t, 1, logs.FilterMessage("agenda: no appointments found").Len())
}

func TestStart_RejectsBadSpec(t *testing.T) {
	t.Parallel()

	_, err := Start("not a cron spec", time.UTC, NewJob(seeded(t), time.UTC, nil))
	assert.Error(t, err)
}

func TestStart_Schedules(t *testing.T) {
	t.Parallel()

	c, err := Start("0 8 * * *", time.UTC, NewJob(seeded(t), time.UTC, nil))
	require.NoError(t, err)
	defer c.Stop()

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 8, entries[0].Next.In(time.UTC).Hour())
}
