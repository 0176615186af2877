package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is a record severity. Values line up with log/slog so the two can be
// converted directly.
type Level int

const (
	LevelDebug    Level = Level(slog.LevelDebug)
	LevelInfo     Level = Level(slog.LevelInfo)
	LevelWarning  Level = Level(slog.LevelWarn)
	LevelError    Level = Level(slog.LevelError)
	LevelCritical Level = Level(slog.LevelError + 4)
)

// String returns the name of the nearest named level at or below l.
func (l Level) String() string {
	switch {
	case l >= LevelCritical:
		return "CRITICAL"
	case l >= LevelError:
		return "ERROR"
	case l >= LevelWarning:
		return "WARNING"
	case l >= LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
