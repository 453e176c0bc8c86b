// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package adapter converts HTTP requests into the input of a user function
// and the function result back into an HTTP response.
//
// Every adapter follows the same pipeline: convert, validate, invoke and,
// for typed responses and replies, write or publish. Conversion and
// validation failures are answered with 400 without invoking the function.
// Write and publish failures are answered with 500. Errors returned by the
// function itself are returned from Handle untouched.
package adapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/z5labs/funcframework/formatter"
	"github.com/z5labs/funcframework/logging"
	"github.com/z5labs/funcframework/publish"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Handler serves a single request. A non-nil error is always an error
// returned by the user function.
type Handler interface {
	Handle(http.ResponseWriter, *http.Request) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as a [Handler].
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Services are the shared dependencies handed to adapters when they are built.
type Services struct {
	Log        slog.Handler
	Publisher  publish.Publisher
	Formatters *formatter.Cache
	Codecs     *Codecs
}

type options struct {
	logHandler slog.Handler
	publisher  publish.Publisher
}

// Option configures an adapter.
type Option func(*options)

// LogHandler configures the underlying [slog.Handler] used by the adapter.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// Publisher configures where reply events are published.
func Publisher(p publish.Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithServices applies the log handler and publisher of svcs.
func WithServices(svcs Services) Option {
	return func(o *options) {
		if svcs.Log != nil {
			o.logHandler = svcs.Log
		}
		if svcs.Publisher != nil {
			o.publisher = svcs.Publisher
		}
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		logHandler: logging.NoopHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.publisher == nil {
		o.publisher = publish.Discard(publish.LogHandler(o.logHandler))
	}
	return o
}

func startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	return otel.Tracer("adapter").Start(r.Context(), name)
}

func reject(ctx context.Context, log *slog.Logger, w http.ResponseWriter, msg string, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
	trace.SpanFromContext(ctx).SetStatus(codes.Error, msg)
	log.ErrorContext(ctx, msg, logging.Error(err))
	w.WriteHeader(http.StatusBadRequest)
}

func fail(ctx context.Context, log *slog.Logger, w http.ResponseWriter, started bool, msg string, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
	trace.SpanFromContext(ctx).SetStatus(codes.Error, msg)
	log.ErrorContext(ctx, msg, logging.Error(err))
	if started {
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

// TrackStarted wraps w so the caller can tell whether the status line
// has already been written.
func TrackStarted(w http.ResponseWriter) (http.ResponseWriter, *bool) {
	started := new(bool)
	tw := httpsnoop.Wrap(w, httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				*started = true
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				*started = true
				return next(b)
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				*started = true
				return next(src)
			}
		},
	})
	return tw, started
}
