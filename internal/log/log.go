package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
	// level gates the default stderr logger only; loggers passed to Use
	// carry their own level.
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// newDefault builds the console logger writing to stderr with timestamps.
func newDefault() *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core).Sugar()
}

// Use replaces the backing zap logger. Passing nil restores the default
// stderr logger.
func Use(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		sugar = nil
		return
	}
	sugar = l.Sugar()
}

func SetLevel(l Level) {
	level.SetLevel(l.zapLevel())
}

// ParseLevel maps a config string to a Level. Unknown values yield INFO.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	logger().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	logger().Infow(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger().Errorw(msg, extended...)
}

// Sync flushes buffered entries. Call it once before the process exits.
func Sync() {
	_ = logger().Sync()
}

func logger() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		return s
	}

	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		sugar = newDefault()
	}
	return sugar
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
