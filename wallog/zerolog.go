// Package wallog adapts github.com/rs/zerolog to wal.Logger. The default
// logger stays no-op; this is the opt-in adapter a host passes to
// Config.Logger when it wants structured output instead of writing its
// own.
package wallog

import (
	"github.com/rs/zerolog"

	"waldb/wal"
)

type zerologAdapter struct {
	logger zerolog.Logger
}

// NewZerolog wraps logger as a wal.Logger.
func NewZerolog(logger zerolog.Logger) wal.Logger {
	return &zerologAdapter{logger: logger}
}

func (a *zerologAdapter) Log(level wal.Level, msg string, attrs ...any) {
	var event *zerolog.Event
	switch level {
	case wal.LevelDebug:
		event = a.logger.Debug()
	case wal.LevelWarn:
		event = a.logger.Warn()
	case wal.LevelError:
		event = a.logger.Error()
	default:
		event = a.logger.Info()
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, attrs[i+1])
	}
	event.Msg(msg)
}
