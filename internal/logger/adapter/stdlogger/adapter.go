// Package stdlogger adapts the global zerolog logger to printf style logging interfaces,
// such as the writer expected by gorm's SQL logger.
package stdlogger

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to the global zerolog logger.
type Logger struct {
	component string
}

// New creates a Logger tagging every entry with component "std".
func New() *Logger {
	return &Logger{component: "std"}
}

// NewComponent creates a Logger tagging every entry with the given component name.
func NewComponent(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	return log.WithLevel(level).Str("component", l.component)
}

// Printf implements gorm's logger.Writer. Gorm prefixes its messages with a level tag
// which is mapped back to a zerolog level.
func (l *Logger) Printf(format string, args ...interface{}) {
	level := zerolog.DebugLevel

	switch {
	case strings.Contains(format, "[error]"):
		level = zerolog.ErrorLevel
	case strings.Contains(format, "[warn]"):
		level = zerolog.WarnLevel
	case strings.Contains(format, "[info]"):
		level = zerolog.InfoLevel
	}

	l.event(level).Msgf(strings.TrimSpace(format), args...)
}

// Debugf logs on debug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.event(zerolog.DebugLevel).Msgf(format, args...)
}

// Infof logs on info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.event(zerolog.InfoLevel).Msgf(format, args...)
}

// Warningf logs on warn level.
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.event(zerolog.WarnLevel).Msgf(format, args...)
}

// Errorf logs on error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.event(zerolog.ErrorLevel).Msgf(format, args...)
}
