// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package appbuilder provides middleware for [funcframework.AppBuilder]s.
package appbuilder

import (
	"context"

	"github.com/z5labs/funcframework"
	"github.com/z5labs/funcframework/internal/try"
)

// Recover will wrap the given [funcframework.AppBuilder] with panic recovery.
func Recover[T any](builder funcframework.AppBuilder[T]) funcframework.AppBuilder[T] {
	return funcframework.AppBuilderFunc[T](func(ctx context.Context, cfg T) (_ funcframework.App, err error) {
		defer try.Recover(&err)

		return builder.Build(ctx, cfg)
	})
}
