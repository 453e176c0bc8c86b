// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/funcframework/logging"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

type server struct {
	addr   string
	listen func(string, string) (net.Listener, error)
	log    *slog.Logger
	h      http.Handler

	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
}

// Run implements the [funcframework.App] interface.
func (s *server) Run(ctx context.Context) error {
	ls, err := s.listen("tcp", s.addr)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to listen for connections", logging.Error(err))
		return err
	}

	hs := &http.Server{
		Handler: otelhttp.NewHandler(
			s.h,
			"function",
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		),
		ReadHeaderTimeout: s.readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		defer s.log.Info("shut down function host")

		s.log.Info("shutting down function host")
		return hs.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.log.Info("listening for requests", slog.String("address", ls.Addr().String()))
		return hs.Serve(ls)
	})

	err = g.Wait()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	s.log.Error("function host encountered unexpected error", logging.Error(err))
	return err
}
