// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"io"
	"log/slog"

	"github.com/z5labs/funcframework/logging"
)

// newLogHandler returns JSON lines when running on the platform and
// plain text otherwise. Startups may wrap the handler before it is made
// trace aware.
func newLogHandler(cfg Config, w io.Writer, ss startups) (slog.Handler, error) {
	lvl, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	var h slog.Handler
	if cfg.StructuredLogging() {
		opts := []logging.StructuredOption{logging.Level(lvl)}
		if cfg.Function.Target != "" {
			opts = append(opts, logging.DefaultCategory(cfg.Function.Target))
		}
		h = logging.NewStructuredHandler(w, opts...)
	} else {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	}

	h = ss.configureLogging(h)
	return logging.NewTraceHandler(h), nil
}
