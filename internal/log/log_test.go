package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" ERROR ": LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestKeyValuesReachBackend(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))
	t.Cleanup(func() { Use(nil) })

	Info("appointment added", "id", "abc", "kind", "Daily")
	Error("import failed", errors.New("boom"), "uid", "x")
	Debug("query", "date", "2024-01-03")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "appointment added", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["id"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["err"])
	assert.Equal(t, "x", entries[1].ContextMap()["uid"])

	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
}
