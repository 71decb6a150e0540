// SPDX-License-Identifier: MPL-2.0

// Package logging installs the process-wide slog logger. Library packages log
// through log/slog; this package decides where that output goes and how it
// looks (charmbracelet/log on stderr, warnings styled apart from command output).
package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

const (
	// LevelDefault shows warnings and errors.
	LevelDefault Level = iota
	// LevelVerbose adds debug and info output (--verbose).
	LevelVerbose
	// LevelSilent shows errors only (--silent).
	LevelSilent
)

// Level selects how chatty the CLI is.
type Level int

// New builds a slog.Logger backed by a charmbracelet/log handler writing to w.
func New(w io.Writer, level Level) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Prefix:          "modlink",
		ReportTimestamp: false,
		Level:           charmLevel(level),
	})
	return slog.New(handler)
}

// Install builds a logger with New and makes it the slog default.
func Install(w io.Writer, level Level) *slog.Logger {
	logger := New(w, level)
	slog.SetDefault(logger)
	return logger
}

// FromFlags maps the --verbose and --silent flags to a Level. Silent wins.
func FromFlags(verbose, silent bool) Level {
	switch {
	case silent:
		return LevelSilent
	case verbose:
		return LevelVerbose
	default:
		return LevelDefault
	}
}

func charmLevel(level Level) log.Level {
	switch level {
	case LevelVerbose:
		return log.DebugLevel
	case LevelSilent:
		return log.ErrorLevel
	default:
		return log.WarnLevel
	}
}
