// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/z5labs/funcframework/adapter"
	"github.com/z5labs/funcframework/internal/try"
	"github.com/z5labs/funcframework/logging"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// faultBoundary is the last stop for errors returned, or panics raised,
// by the user function. They are logged and, if the response has not
// started yet, answered with 500.
func faultBoundary(log *slog.Logger, h adapter.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw, started := adapter.TrackStarted(w)

		err := invoke(h, tw, r)
		if err == nil {
			return
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logging.Error(err),
		}
		var perr try.PanicError
		if errors.As(err, &perr) {
			attrs = append(attrs, slog.String("stack", string(perr.Stack)))
		}
		log.LogAttrs(r.Context(), slog.LevelError, "function failed", attrs...)
		if *started {
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})
}

func invoke(h adapter.Handler, w http.ResponseWriter, r *http.Request) (err error) {
	defer try.Recover(&err)

	return h.Handle(w, r)
}

// newRouter answers 404 for the two paths browsers request on their own and
// hands every other request, with its path untouched, to the function.
func newRouter(log *slog.Logger, h adapter.Handler) http.Handler {
	robots := otelhttp.WithRouteTag("/robots.txt", http.HandlerFunc(notFound))
	favicon := otelhttp.WithRouteTag("/favicon.ico", http.HandlerFunc(notFound))
	function := otelhttp.WithRouteTag("/", faultBoundary(log, h))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			robots.ServeHTTP(w, r)
		case "/favicon.ico":
			favicon.ServeHTTP(w, r)
		default:
			function.ServeHTTP(w, r)
		}
	})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
