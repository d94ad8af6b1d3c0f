package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ParseLevel parses a verbosity name into a zapcore.Level.
//
// Beyond the zap names it accepts the synonyms the legacy module recognized:
// "trace" is treated as debug, "warning" as warn, and "none" maps onto the
// nearest named level. Matching is case-insensitive.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return zapcore.DebugLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	case "none":
		return zapcore.FatalLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unrecognized log level %q", level)
	}
	return l, nil
}
