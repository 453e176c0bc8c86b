// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides middleware for [funcframework.App] implementations.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/funcframework"
	"github.com/z5labs/funcframework/internal/try"
	"github.com/z5labs/funcframework/lifecycle"
)

// Recover will wrap the give [funcframework.App] with panic recovery.
// A recovered panic is returned as a [try.PanicError] which unwraps
// to the panic value when that value is an error.
func Recover(app funcframework.App) funcframework.App {
	return funcframework.AppFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given [funcframework.App] in an implementation
// that cancels the [context.Context] that's passed to app.Run if an [os.Signal]
// is received by the running process.
func WithSignalNotifications(app funcframework.App, signals ...os.Signal) funcframework.App {
	return funcframework.AppFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// PostRun wraps a given [funcframework.App] so hook always runs after
// app.Run returns, even if it fails or panics. Failures from both are joined.
func PostRun(app funcframework.App, hook lifecycle.Hook) funcframework.App {
	return funcframework.AppFunc(func(ctx context.Context) (err error) {
		defer runPostRunHook(ctx, hook, &err)

		return app.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, hook lifecycle.Hook, err *error) {
	if hook == nil {
		return
	}

	hookErr := hook.Run(context.WithoutCancel(ctx))

	// errors.Join will not return an error if both
	// *err and hookErr are nil.
	*err = errors.Join(*err, hookErr)
}
