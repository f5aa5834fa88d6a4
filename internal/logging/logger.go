// Package logging wraps logrus with the formatter and level/output
// conventions used across the redo-log subsystem's background threads.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Log is the default, process-wide logger used by internal/logsys
	// and internal/checkpoint when no per-component logger
	// was configured explicitly.
	Log = New(Config{Level: "info"})
)

// Config controls where and how a Logger writes.
type Config struct {
	OutputPath string // empty means stderr
	Level      string // logrus level name, default "info"
}

// Logger is the subsystem's structured logger.
type Logger struct {
	*logrus.Logger
}

// formatter renders "[time] [LEVE] (caller) message" lines, matching the
// teacher's CustomFormatter register and density.
type formatter struct {
	TimestampFormat string
}

func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	caller := callerInfo()
	fields := ""
	if len(entry.Data) > 0 {
		for k, v := range entry.Data {
			fields += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	return []byte(fmt.Sprintf("[%s] [%s] (%s) %s%s\n", timestamp, level, caller, entry.Message, fields)), nil
}

func callerInfo() string {
	_, file, line, ok := runtime.Caller(8)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// New builds a Logger from cfg, defaulting to stderr and info level.
func New(cfg Config) *Logger {
	l := logrus.New()
	l.SetFormatter(&formatter{TimestampFormat: "15:04:05 2006/01/02"})

	var out io.Writer = os.Stderr
	if cfg.OutputPath != "" {
		if f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			out = f
		}
	}
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{Logger: l}
}

// Named returns a child entry tagging all subsequent log lines with the
// given component name, used by each background thread (writer, closer,
// checkpointer) to identify itself in shared log output.
func (l *Logger) Named(component string) *logrus.Entry {
	return l.WithField("component", component)
}
