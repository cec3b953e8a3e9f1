// Package logger configures the structured logger shared by every
// package in the module.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var Logger *log.Logger

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "cascade",
		ReportTimestamp: true,
	})
	Logger.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
}

// ParseLevel converts a string to a log level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return log.DebugLevel
	case "WARN", "WARNING":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "FATAL":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormat converts a string to a Format, returning FormatAuto for
// unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Setup reconfigures the shared logger to write to w. An empty level
// leaves the current level alone.
func Setup(w io.Writer, level string, format Format) {
	Logger.SetOutput(w)
	if level != "" {
		Logger.SetLevel(ParseLevel(level))
	}

	switch format {
	case FormatJSON:
		Logger.SetFormatter(log.JSONFormatter)
	case FormatText:
		Logger.SetFormatter(log.TextFormatter)
	default:
		if IsTTY(w) {
			Logger.SetFormatter(log.TextFormatter)
		} else {
			Logger.SetFormatter(log.LogfmtFormatter)
		}
	}
}

// With returns a child logger that always includes keyvals.
func With(keyvals ...any) *log.Logger {
	return Logger.With(keyvals...)
}

func Info(msg any, keyvals ...any) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg any, keyvals ...any) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg any, keyvals ...any) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg any, keyvals ...any) {
	Logger.Error(msg, keyvals...)
}

func Debugf(format string, args ...any) {
	Logger.Debugf(format, args...)
}
