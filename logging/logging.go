// Package logging builds the leveled loggers used across the pool ledger.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mborders/logmatic"
)

// ErrInvalidLevel indicates the level string is not one of debug, info, warn or error.
var ErrInvalidLevel = errors.New("logging: invalid log level")

// New returns a logmatic logger filtered at the given level.
func New(level string) (*logmatic.Logger, error) {
	l := logmatic.NewLogger()
	l.ExitOnFatal = false
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		l.SetLevel(logmatic.TRACE)
	case "debug":
		l.SetLevel(logmatic.DEBUG)
	case "", "info":
		l.SetLevel(logmatic.INFO)
	case "warn":
		l.SetLevel(logmatic.WARN)
	case "error":
		l.SetLevel(logmatic.ERROR)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	return l, nil
}

// MustNew is New for levels that were already validated.
func MustNew(level string) *logmatic.Logger {
	l, err := New(level)
	if err != nil {
		panic(err)
	}
	return l
}

// Nop discards everything.
type Nop struct{}

func (Nop) Trace(string, ...interface{}) {}
func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}

// Recorder keeps formatted lines in memory, keyed by level. Tests use it to
// assert on what the ledger reported.
type Recorder struct {
	Lines map[string][]string
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{Lines: make(map[string][]string)}
}

func (r *Recorder) add(level, format string, a ...interface{}) {
	r.Lines[level] = append(r.Lines[level], fmt.Sprintf(format, a...))
}

func (r *Recorder) Trace(format string, a ...interface{}) { r.add("trace", format, a...) }
func (r *Recorder) Debug(format string, a ...interface{}) { r.add("debug", format, a...) }
func (r *Recorder) Info(format string, a ...interface{})  { r.add("info", format, a...) }
func (r *Recorder) Warn(format string, a ...interface{})  { r.add("warn", format, a...) }
func (r *Recorder) Error(format string, a ...interface{}) { r.add("error", format, a...) }
