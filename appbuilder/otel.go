// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package appbuilder

import (
	"context"
	"errors"
	"reflect"

	"github.com/z5labs/funcframework"
	"github.com/z5labs/funcframework/app"
	"github.com/z5labs/funcframework/lifecycle"

	"go.opentelemetry.io/otel"
)

// OTelInitializer represents anything which can initialize the OTel SDK.
type OTelInitializer interface {
	InitializeOTel(context.Context) error
}

// OTel is a [funcframework.AppBuilder] middleware which initializes the OTel SDK.
// It also ensures that the OTel SDK is properly shutdown when the built
// [funcframework.App] stops running.
func OTel[T OTelInitializer](builder funcframework.AppBuilder[T]) funcframework.AppBuilder[T] {
	return funcframework.AppBuilderFunc[T](func(ctx context.Context, cfg T) (funcframework.App, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		prevTP := otel.GetTracerProvider()
		prevMP := otel.GetMeterProvider()

		err := cfg.InitializeOTel(ctx)
		if err != nil {
			return nil, err
		}

		// Only providers installed by InitializeOTel are owned here.
		var hooks []lifecycle.Hook
		if tp := otel.GetTracerProvider(); !sameProvider(prevTP, tp) {
			hooks = append(hooks, tryShutdown(tp))
		}
		if mp := otel.GetMeterProvider(); !sameProvider(prevMP, mp) {
			hooks = append(hooks, tryShutdown(mp))
		}
		onPostRun := lifecycle.Named("otel", lifecycle.MultiHook(hooks...))

		base, err := builder.Build(ctx, cfg)
		if err != nil {
			shutdownErr := onPostRun.Run(ctx)
			if shutdownErr == nil {
				return nil, err
			}
			return nil, errors.Join(err, shutdownErr)
		}

		lc, ok := lifecycle.FromContext(ctx)
		if !ok {
			return app.PostRun(base, onPostRun), nil
		}

		lc.OnPostRun(onPostRun)
		return base, nil
	})
}

// sameProvider reports whether a and b are the same provider. Values of a
// type which can not be compared are never the same.
func sameProvider(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

type shutdowner interface {
	Shutdown(context.Context) error
}

func tryShutdown(v any) lifecycle.HookFunc {
	return func(ctx context.Context) error {
		if v == nil {
			return nil
		}

		s, ok := v.(shutdowner)
		if !ok {
			return nil
		}
		return s.Shutdown(ctx)
	}
}
