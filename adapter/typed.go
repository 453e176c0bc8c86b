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

// Validator is implemented by requests which can check their own validity.
type Validator interface {
	Validate() error
}

// TypedHandler adapts a [function.TypedFunction] using a pluggable
// request reader and response writer.
type TypedHandler[Req, Resp any] struct {
	log    *slog.Logger
	reader RequestReader[Req]
	writer ResponseWriter[Resp]
	f      function.TypedFunction[Req, Resp]
}

// Typed returns a [TypedHandler] for f.
func Typed[Req, Resp any](f function.TypedFunction[Req, Resp], reader RequestReader[Req], writer ResponseWriter[Resp], opts ...Option) *TypedHandler[Req, Resp] {
	o := newOptions(opts...)

	return &TypedHandler[Req, Resp]{
		log:    logging.New(o.logHandler),
		reader: reader,
		writer: writer,
		f:      f,
	}
}

// Handle implements the [Handler] interface.
func (h *TypedHandler[Req, Resp]) Handle(w http.ResponseWriter, r *http.Request) error {
	ctx, span := startSpan(r, "TypedHandler.Handle")
	defer span.End()
	r = r.WithContext(ctx)

	req, err := h.reader.ReadRequest(r)
	if err != nil {
		reject(ctx, h.log, w, "failed to read request", err)
		return nil
	}

	if v, ok := any(req).(Validator); ok {
		err = v.Validate()
		if err != nil {
			reject(ctx, h.log, w, "received invalid request", err)
			return nil
		}
	}

	resp, err := h.f.Handle(ctx, req)
	if err != nil {
		return err
	}

	tw, started := TrackStarted(w)
	err = h.writer.WriteResponse(tw, resp)
	if err != nil {
		fail(ctx, h.log, w, *started, "failed to write response", err)
		return nil
	}
	return nil
}
