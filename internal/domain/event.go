package domain

import (
	"fmt"
	"time"
)

type Level string

const (
	LevelLog   Level = "log"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelDebug Level = "debug"
)

func (l Level) Valid() bool {
	switch l {
	case LevelLog, LevelInfo, LevelWarn, LevelError, LevelDebug:
		return true
	}
	return false
}

func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown level %q", ErrInvalidInput, s)
	}
	return l, nil
}

// LogEvent is one entry of the dashboard event feed. ID is strictly
// increasing in publish order and doubles as a replay cursor.
type LogEvent struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}
