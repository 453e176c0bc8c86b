// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package adapter

import (
	"log/slog"
	"net/http"

	"github.com/z5labs/funcframework/function"
	"github.com/z5labs/funcframework/logging"
)

// HTTPHandler adapts a [function.HTTPFunction]. The function is fully
// responsible for the response.
type HTTPHandler struct {
	log *slog.Logger
	f   function.HTTPFunction
}

// HTTP returns a [HTTPHandler] for f.
func HTTP(f function.HTTPFunction, opts ...Option) *HTTPHandler {
	o := newOptions(opts...)

	return &HTTPHandler{
		log: logging.New(o.logHandler),
		f:   f,
	}
}

// Handle implements the [Handler] interface.
func (h *HTTPHandler) Handle(w http.ResponseWriter, r *http.Request) error {
	ctx, span := startSpan(r, "HTTPHandler.Handle")
	defer span.End()

	h.log.DebugContext(ctx, "invoking http function", slog.String("method", r.Method), slog.String("path", r.URL.Path))
	return h.f.HandleHTTP(w, r.WithContext(ctx))
}
