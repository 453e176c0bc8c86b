// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lifecycle provides helpers for defining actions to execute
// relative to a [funcframework.App]s execution.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Hook represents functionality that needs to be performed
// at a specific "time" relative to the execution of [funcframework.App.Run].
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type multiHook []Hook

func (mh multiHook) Run(ctx context.Context) error {
	errs := make([]error, 0, len(mh))
	for _, h := range mh {
		err := h.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// MultiHook returns a [Hook] that's the logical concatenation
// of the provided [Hook]s. They're applied sequentially and every
// hook runs even if an earlier one fails.
func MultiHook(hooks ...Hook) Hook {
	return multiHook(hooks)
}

// HookError identifies which named [Hook] failed.
type HookError struct {
	Name  string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e HookError) Error() string {
	return fmt.Sprintf("%s hook failed: %s", e.Name, e.Cause)
}

// Unwrap implements the implicit interface for usage with [errors.Is] and [errors.As].
func (e HookError) Unwrap() error {
	return e.Cause
}

// Named wraps any failure of hook in a [HookError] carrying name.
func Named(name string, hook Hook) Hook {
	return HookFunc(func(ctx context.Context) error {
		err := hook.Run(ctx)
		if err == nil {
			return nil
		}
		return HookError{Name: name, Cause: err}
	})
}

// Context collects the hooks registered while an app is being built.
// The host runs them once the app stops serving, e.g. to flush
// telemetry exporters or close publisher clients. It is safe for
// concurrent use.
type Context struct {
	mu       sync.Mutex
	postRuns multiHook
}

// PostRun returns the [Hook] which is meant to be executed after
// a [funcframework.App] Run method returns. Hooks registered after
// PostRun is called are not part of the returned [Hook].
func (c *Context) PostRun() Hook {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(multiHook(nil), c.postRuns...)
}

// OnPostRun registers the given [Hook] to be executed after a [funcframework.App]
// Run method returns. Hooks run in registration order.
func (c *Context) OnPostRun(hook Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postRuns = append(c.postRuns, hook)
}

type key struct{}

var contextKey = &key{}

// NewContext returns a new [context.Context] containing the lifecycle [Context].
func NewContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey, c)
}

// FromContext tries to extract a lifecycle [Context] from the given [context.Context].
func FromContext(ctx context.Context) (*Context, bool) {
	lc, ok := ctx.Value(contextKey).(*Context)
	return lc, ok
}
