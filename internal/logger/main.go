// Package logger sets up the global zerolog logger of tenantadmin: console output for containers,
// level split rolling files for hosts and a Prometheus counter of log statements per level.
package logger

import (
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logDirMode = 0o750

// LevelWriter routes events by level. Trace, warn and error each get their own writer,
// debug and info share InfoWriter.
type LevelWriter struct {
	ErrorWriter io.Writer
	InfoWriter  io.Writer
	TraceWriter io.Writer
	WarnWriter  io.Writer
}

// Write writes events without a level to InfoWriter.
func (lw *LevelWriter) Write(p []byte) (int, error) {
	return lw.InfoWriter.Write(p) //nolint:wrapcheck
}

// WriteLevel implements zerolog.LevelWriter.
func (lw *LevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l == zerolog.Disabled {
		return 0, nil
	}

	return lw.writerFor(l).Write(p) //nolint:wrapcheck
}

func (lw *LevelWriter) writerFor(l zerolog.Level) io.Writer {
	switch {
	case l == zerolog.TraceLevel:
		return lw.TraceWriter
	case l == zerolog.WarnLevel:
		return lw.WarnWriter
	case l > zerolog.WarnLevel:
		return lw.ErrorWriter
	default:
		return lw.InfoWriter
	}
}

// Init replaces the global logger according to cfg. Without console or file output enabled
// every event is dropped.
func Init(cfg Log) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "log level %q is not supported", cfg.LogLevel)
	}

	if cfg.ServiceName == "" {
		return ErrServiceNameIsEmpty
	}

	if cfg.AppName == "" {
		return ErrAppNameIsEmpty
	}

	trace := level == zerolog.TraceLevel
	if trace {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
	}

	zerolog.SetGlobalLevel(level)
	zerolog.ErrorHandler = ErrorHandler //nolint:reassign

	var writers []io.Writer

	if cfg.Console.Enabled {
		writers = append(writers, NewConsoleWriter(cfg))
	}

	if cfg.File.Enabled {
		if w := newRollingFiles(cfg.File); w != nil {
			writers = append(writers, w)
		}
	}

	logCtx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Hook(NewLevelCounterHook(cfg.ServiceName)).
		With().Timestamp()

	switch {
	case cfg.ReportCaller && trace:
		logCtx = logCtx.Stack()
	case cfg.ReportCaller:
		logCtx = logCtx.Caller()
	}

	log.Logger = logCtx.Logger()

	return nil
}

// newRollingFiles writes one lumberjack rotated file per level group below f.Path.
func newRollingFiles(f LogFile) io.Writer {
	if err := os.MkdirAll(f.Path, logDirMode); err != nil {
		log.Error().Err(err).Str("path", f.Path).Msg("can't create log directory")
		return nil
	}

	rolling := func(name string, maxSize, maxAge, maxBackups int) io.Writer {
		return &lumberjack.Logger{
			Filename:   path.Join(f.Path, name),
			MaxSize:    maxSize,
			MaxAge:     maxAge,
			MaxBackups: maxBackups,
		}
	}

	return &LevelWriter{
		ErrorWriter: rolling(f.ErrorLog, f.ErrorMaxSize, f.ErrorMaxAge, f.ErrorMaxBackups),
		InfoWriter:  rolling(f.InfoLog, f.InfoMaxSize, f.InfoMaxAge, f.InfoMaxBackups),
		TraceWriter: rolling(f.TraceLog, f.TraceMaxSize, f.TraceMaxAge, f.TraceMaxBackups),
		WarnWriter:  rolling(f.WarnLog, f.WarnMaxSize, f.WarnMaxAge, f.WarnMaxBackups),
	}
}

// NewConsoleWriter sends info and debug to stdout and everything else to stderr, either as
// JSON lines or through zerolog's human readable ConsoleWriter.
func NewConsoleWriter(cfg Log) io.Writer {
	out := func(w io.Writer) io.Writer {
		if !cfg.Console.UseConsoleWriter {
			return w
		}

		return zerolog.ConsoleWriter{Out: w, TimeFormat: zerolog.TimeFieldFormat}
	}

	return &LevelWriter{
		ErrorWriter: out(os.Stderr),
		InfoWriter:  out(os.Stdout),
		TraceWriter: out(os.Stderr),
		WarnWriter:  out(os.Stderr),
	}
}
