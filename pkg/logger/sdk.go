package logger

import (
	"fmt"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog"
)

// SDKLogger writes the SDK's log output to a zerolog.Logger.
type SDKLogger struct {
	logger zerolog.Logger
}

var _ gocb.Logger = (*SDKLogger)(nil)

func NewSDKLogger(logger zerolog.Logger) *SDKLogger {
	return &SDKLogger{logger: logger.With().Str("component", "gocb").Logger()}
}

// Log implements gocb.Logger.
func (l *SDKLogger) Log(level gocb.LogLevel, offset int, format string, v ...interface{}) error {
	l.logger.WithLevel(sdkLevel(level)).Msg(fmt.Sprintf(format, v...))
	return nil
}

func sdkLevel(level gocb.LogLevel) zerolog.Level {
	switch level {
	case gocb.LogError:
		return zerolog.ErrorLevel
	case gocb.LogWarn:
		return zerolog.WarnLevel
	case gocb.LogInfo:
		return zerolog.InfoLevel
	case gocb.LogDebug:
		return zerolog.DebugLevel
	default:
		// trace, sched and anything more verbose
		return zerolog.TraceLevel
	}
}

// InstallSDKLogger makes the SDK log through logger for the rest of the
// process and returns the installed adapter.
func InstallSDKLogger(logger zerolog.Logger) *SDKLogger {
	l := NewSDKLogger(logger)
	gocb.SetLogger(l)
	return l
}
