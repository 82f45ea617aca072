// Package util provides low-level helpers shared by all other packages.
package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger is a levelled logger on top of logrus.  Verbose and Debug map
// to logrus' Debug and Trace levels so a single -v count selects them.
type Logger struct {
	level LogLevel
	log   *logrus.Logger
	fmt   *prefixFormatter
	entry *logrus.Entry
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	f := &prefixFormatter{timestamps: verbosity >= int(LogDebug)}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(f)
	l.SetLevel(logrusLevel(LogLevel(verbosity)))
	return &Logger{
		level: LogLevel(verbosity),
		log:   l,
		fmt:   f,
		entry: logrus.NewEntry(l),
	}
}

// With returns a child logger that tags every line with key=value.
func (l *Logger) With(key string, value interface{}) *Logger {
	child := *l
	child.entry = l.entry.WithField(key, value)
	return &child
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.fmt.timestamps = on }

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.log.SetOutput(w) }

// Output returns the current destination.
func (l *Logger) Output() io.Writer { return l.log.Out }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) { l.entry.Infof(format, args...) }

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func logrusLevel(v LogLevel) logrus.Level {
	switch {
	case v <= LogQuiet:
		return logrus.ErrorLevel
	case v == LogNormal:
		return logrus.InfoLevel
	case v == LogVerbose:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// ── formatter ────────────────────────────────────────────────────────

// prefixFormatter renders "[LVL] message k=v" lines, optionally led by
// an HH:MM:SS.mmm timestamp.
type prefixFormatter struct {
	timestamps bool
}

var levelTags = map[logrus.Level]string{
	logrus.PanicLevel: "ERR",
	logrus.FatalLevel: "ERR",
	logrus.ErrorLevel: "ERR",
	logrus.WarnLevel:  "WRN",
	logrus.InfoLevel:  "INF",
	logrus.DebugLevel: "VRB",
	logrus.TraceLevel: "DBG",
}

func (f *prefixFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if f.timestamps {
		b.WriteString(e.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[%s] %s", levelTags[e.Level], e.Message)
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
