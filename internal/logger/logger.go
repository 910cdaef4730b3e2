/*
 * Copyright 2025 Chuck Atkins and CUDA Auto-Compat contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents a diagnostic verbosity level.
type Level int

// The ordered verbosity levels. Messages are emitted iff their level is at or
// below the logger's maximum level.
const (
	LevelOff Level = iota
	LevelError
	LevelWarning
	LevelInfo
	LevelVerbose
	LevelDebug
	LevelTrace
)

// VerboseEnvVar selects the maximum level as a single decimal digit added to
// the base warning level, clamped at trace.
const VerboseEnvVar = "CUDA_AUTOCOMPAT_VERBOSE"

var levelNames = [...]string{"OFF", "ERROR", "WARN", "INFO", "VERBOSE", "DEBUG", "TRACE"}

func (l Level) String() string {
	if l < LevelOff || l > LevelTrace {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// Interface is the logging surface passed between components.
type Interface interface {
	Errorf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Verbosef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
}

// Logger is a leveled diagnostic sink on top of logrus. Messages below the
// info level print flush; each level beyond info indents by two more spaces so
// nested diagnostics visually nest.
type Logger struct {
	log *logrus.Logger
	max Level
}

var _ Interface = (*Logger)(nil)

// Option configures a Logger.
type Option func(*Logger, *headerFormatter)

// WithName sets the process-scoped log name in the message header.
func WithName(name string) Option {
	return func(_ *Logger, f *headerFormatter) {
		f.name = name
	}
}

// WithLevel sets the maximum level.
func WithLevel(level Level) Option {
	return func(l *Logger, _ *headerFormatter) {
		l.max = level
	}
}

// WithOutput redirects output away from stderr.
func WithOutput(w io.Writer) Option {
	return func(l *Logger, _ *headerFormatter) {
		l.log.SetOutput(w)
	}
}

// WithHeaderFields toggles the timestamp, name, and level tag header fields.
func WithHeaderFields(timestamp, name, levelTag bool) Option {
	return func(_ *Logger, f *headerFormatter) {
		f.timestamp = timestamp
		f.useName = name
		f.levelTag = levelTag
	}
}

// New creates a Logger writing to stderr at the warning level.
func New(opts ...Option) *Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	// Filtering happens against Logger.max; logrus passes everything through.
	log.SetLevel(logrus.TraceLevel)

	formatter := &headerFormatter{
		name:      fmt.Sprintf("cuda_autocompat[%d]", os.Getpid()),
		timestamp: true,
		useName:   true,
		levelTag:  true,
	}

	l := &Logger{
		log: log,
		max: LevelWarning,
	}
	for _, opt := range opts {
		opt(l, formatter)
	}
	log.SetFormatter(formatter)

	return l
}

// NewFromEnv creates a Logger whose maximum level is selected by
// CUDA_AUTOCOMPAT_VERBOSE. A malformed value keeps the default and emits a
// warning through the returned logger.
func NewFromEnv(opts ...Option) *Logger {
	l := New(opts...)

	env, ok := os.LookupEnv(VerboseEnvVar)
	if !ok {
		return l
	}

	level, err := levelFromVerbosity(env)
	if err != nil {
		l.Warningf("%s: invalid value, using default %d", VerboseEnvVar, int(l.max))
		return l
	}
	l.max = level
	return l
}

// SetLevel replaces the maximum level.
func (l *Logger) SetLevel(level Level) {
	l.max = level
}

// levelFromVerbosity translates a single-digit verbosity string into a level
// at or above warn, clamped at trace.
func levelFromVerbosity(value string) (Level, error) {
	if len(value) != 1 || value[0] < '0' || value[0] > '9' {
		return LevelOff, fmt.Errorf("verbosity must be a single decimal digit: %q", value)
	}
	level := LevelWarning + Level(value[0]-'0')
	if level > LevelTrace {
		level = LevelTrace
	}
	return level, nil
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	if level > l.max {
		return
	}
	entry := l.log.WithField(levelField, level)
	entry.Logf(logrusLevel(level), "%s", fmt.Sprintf(format, args...))
}

// Errorf logs at the error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(LevelError, format, args...)
}

// Warningf logs at the warning level.
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.write(LevelWarning, format, args...)
}

// Infof logs at the info level.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(LevelInfo, format, args...)
}

// Verbosef logs at the verbose level.
func (l *Logger) Verbosef(format string, args ...interface{}) {
	l.write(LevelVerbose, format, args...)
}

// Debugf logs at the debug level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(LevelDebug, format, args...)
}

// Tracef logs at the trace level.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.write(LevelTrace, format, args...)
}

func logrusLevel(level Level) logrus.Level {
	switch level {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarning:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	case LevelTrace:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

const levelField = "autocompat.level"

// headerFormatter renders "<timestamp> <name> <level char> <indent><message>".
type headerFormatter struct {
	name      string
	timestamp bool
	useName   bool
	levelTag  bool
}

func (f *headerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := LevelInfo
	if v, ok := entry.Data[levelField].(Level); ok {
		level = v
	}

	var b strings.Builder
	if f.timestamp {
		b.WriteString(entry.Time.Format("2006-01-02T15:04:05"))
		b.WriteByte(' ')
	}
	if f.useName {
		b.WriteString(f.name)
		b.WriteByte(' ')
	}
	if f.levelTag {
		b.WriteByte(level.String()[0])
		b.WriteByte(' ')
	}
	for indent := level - LevelInfo; indent > 0; indent-- {
		b.WriteString("  ")
	}
	b.WriteString(entry.Message)
	b.WriteByte('\n')

	return []byte(b.String()), nil
}
