// Package logger provides the leveled logging helpers used across eventgen.
// It exposes a small package-level API and delegates formatting and output to logrus.
package logger

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Fields is an alias for structured log fields.
type Fields = log.Fields

var base = log.New()

func init() {
	base.SetLevel(log.InfoLevel)
	base.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO and emit a warning.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		base.SetLevel(log.DebugLevel)
	case "INFO", "":
		base.SetLevel(log.InfoLevel)
	case "WARN":
		base.SetLevel(log.WarnLevel)
	case "ERROR":
		base.SetLevel(log.ErrorLevel)
	case "FATAL":
		base.SetLevel(log.FatalLevel)
	default:
		base.SetLevel(log.InfoLevel)
		base.Warnf("Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
}

// SetFormat switches between the "text" (default) and "json" formatters.
func SetFormat(format string) {
	if strings.EqualFold(format, "json") {
		base.SetFormatter(&log.JSONFormatter{})
		return
	}
	base.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// SetOutput redirects log output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// IsDebugEnabled reports whether DEBUG messages are currently emitted.
func IsDebugEnabled() bool {
	return base.IsLevelEnabled(log.DebugLevel)
}

// WithFields returns an entry carrying the given structured fields.
func WithFields(fields Fields) *log.Entry {
	return base.WithFields(fields)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	base.Infof(format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	base.Errorf(format, v...)
}

// Fatalf formats and outputs a FATAL level log message, then exits with status 1.
func Fatalf(format string, v ...interface{}) {
	base.Fatalf(format, v...)
}
