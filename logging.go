package devguide

import (
	"fmt"
	"os"

	"github.com/couchbase/docs-sdk-go/pkg/logger"
)

// NewLogger builds the logger the example programs use: human readable
// output on stderr, or JSON appended to cfg.LogFile when it is set, at
// cfg.LogLevel. The SDK's own log output is routed through it as well.
func NewLogger(cfg *Config) (*logger.LogData, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	build := logger.New().WithLevel(level)
	if cfg.LogFile != "" {
		build = build.FromPath(cfg.LogFile)
	} else {
		build = build.FromBuffer(os.Stderr).Console()
	}

	logData, err := build.Make()
	if err != nil {
		return nil, err
	}
	logger.InstallSDKLogger(logData.Logger)
	return logData, nil
}

// MustNewLogger is NewLogger for example programs.
func MustNewLogger(cfg *Config) *logger.LogData {
	logData, err := NewLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	return logData
}
