// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package logging provides the [slog.Handler] implementations used by the
// functions host.
package logging

import (
	"context"
	"log/slog"
)

const (
	// CategoryKey is the attribute key holding the log category.
	CategoryKey = "category"

	// ErrorKey is the attribute key holding an error.
	ErrorKey = "error"
)

// Category returns an slog.Attr naming the category of a log line.
func Category(name string) slog.Attr {
	return slog.String(CategoryKey, name)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any(ErrorKey, err)
}

// Severity maps a slog level to the severity reported in structured logs.
func Severity(lvl slog.Level) string {
	switch {
	case lvl < slog.LevelInfo:
		return "DEBUG"
	case lvl < slog.LevelWarn:
		return "INFO"
	case lvl < slog.LevelError:
		return "WARNING"
	case lvl == slog.LevelError:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

// NoopHandler discards every record.
type NoopHandler struct{}

func (NoopHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (NoopHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (h NoopHandler) WithAttrs(_ []slog.Attr) slog.Handler        { return h }
func (h NoopHandler) WithGroup(name string) slog.Handler          { return h }
