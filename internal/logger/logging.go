// Package logger provides modifications to charmbracelet/log's default logger to be used in various files/packages.
//
// Loggers write to stderr: stdout carries the msgpack stream in server mode.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a new default charm log.
func New(prefix string) *log.Logger {
	return NewWithConfig(os.Stderr, prefix, log.GetLevel(), false, true, log.TextFormatter)
}

// NewWithConfig creates a new charm log with custom config
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// NewFile logs to path, for the TUI which owns the terminal. It also
// becomes the default logger so package level log calls land there too.
// The caller closes the returned file.
func NewFile(path, prefix string) (*log.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	l := NewWithConfig(f, prefix, log.GetLevel(), false, true, log.LogfmtFormatter)
	log.SetDefault(NewWithConfig(f, "", log.GetLevel(), false, true, log.LogfmtFormatter))
	return l, f, nil
}
