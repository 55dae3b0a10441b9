// Package logging builds the hclog loggers used across the tool.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	levelEnv = "MAPRESCALER_LOG_LEVEL"
	jsonEnv  = "MAPRESCALER_JSON_LOG"
)

// NewLogger creates an hclog logger writing to output, or stderr when
// output is nil. MAPRESCALER_JSON_LOG=1 switches to JSON lines.
func NewLogger(name, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      ParseLevel(level),
		JSONFormat: os.Getenv(jsonEnv) == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// GetLogLevel returns the level from MAPRESCALER_LOG_LEVEL, or fallback
// when it is unset. An empty fallback means "warn".
func GetLogLevel(fallback string) string {
	if level := os.Getenv(levelEnv); level != "" {
		return level
	}
	if fallback == "" {
		return "warn"
	}
	return fallback
}

// ParseLevel maps a level name to an hclog level. Unknown names fall back
// to warn rather than hclog's NoLevel.
func ParseLevel(level string) hclog.Level {
	l := hclog.LevelFromString(strings.TrimSpace(level))
	if l == hclog.NoLevel {
		return hclog.Warn
	}
	return l
}
