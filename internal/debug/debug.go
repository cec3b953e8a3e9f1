// Package debug traces individual wire messages when the WAYLAND_DEBUG
// environment variable is set to a positive integer.
package debug

import (
	"os"
	"strconv"

	"deedles.dev/cascade/internal/logger"
)

var enabled bool

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	enabled = debugLevel > 0
}

// Enabled reports whether wire tracing is on.
func Enabled() bool {
	return enabled
}

// Printf logs a trace line at debug level if tracing is on. Tracing
// does not change the logger's level, so LOG_LEVEL=debug is needed to
// see the output.
func Printf(str string, args ...any) {
	if enabled {
		logger.Debugf(str, args...)
	}
}
