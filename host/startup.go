// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
)

// Startup is an entry in the host's ordered list of startup objects.
// Entries run in ascending Order; entries with the same Order run by Name.
//
// The Startup value may implement any of [ConfigConfigurer],
// [LoggingConfigurer], [ServicesConfigurer] and [MiddlewareConfigurer].
type Startup struct {
	Name    string
	Order   int
	Startup any
}

// ConfigConfigurer adjusts the host [Config] after it has been read
// and before anything is built from it.
type ConfigConfigurer interface {
	ConfigureConfig(*Config) error
}

// LoggingConfigurer wraps or replaces the host's log handler.
type LoggingConfigurer interface {
	ConfigureLogging(slog.Handler) slog.Handler
}

// ServicesConfigurer registers shared dependencies before the function is constructed.
type ServicesConfigurer interface {
	ConfigureServices(context.Context, *Services) error
}

// MiddlewareConfigurer wraps the HTTP handler serving the function.
type MiddlewareConfigurer interface {
	ConfigureMiddleware(http.Handler) http.Handler
}

// StartupError wraps a failure returned by a startup hook.
type StartupError struct {
	Name  string
	Stage string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e StartupError) Error() string {
	return fmt.Sprintf("startup %s failed to configure %s: %s", e.Name, e.Stage, e.Cause)
}

// Unwrap implements the implicit interface for usage with [errors.Is] and [errors.As].
func (e StartupError) Unwrap() error {
	return e.Cause
}

type startups []Startup

func sortStartups(entries []Startup) startups {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Startup) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return sorted
}

func (ss startups) configureConfig(cfg *Config) error {
	for _, s := range ss {
		c, ok := s.Startup.(ConfigConfigurer)
		if !ok {
			continue
		}
		err := c.ConfigureConfig(cfg)
		if err != nil {
			return StartupError{Name: s.Name, Stage: "config", Cause: err}
		}
	}
	return nil
}

func (ss startups) configureLogging(h slog.Handler) slog.Handler {
	for _, s := range ss {
		c, ok := s.Startup.(LoggingConfigurer)
		if !ok {
			continue
		}
		h = c.ConfigureLogging(h)
	}
	return h
}

func (ss startups) configureServices(ctx context.Context, svcs *Services) error {
	for _, s := range ss {
		c, ok := s.Startup.(ServicesConfigurer)
		if !ok {
			continue
		}
		err := c.ConfigureServices(ctx, svcs)
		if err != nil {
			return StartupError{Name: s.Name, Stage: "services", Cause: err}
		}
	}
	return nil
}

// configureMiddleware wraps h so the first startup is the outermost middleware.
func (ss startups) configureMiddleware(h http.Handler) http.Handler {
	for i := len(ss) - 1; i >= 0; i-- {
		c, ok := ss[i].Startup.(MiddlewareConfigurer)
		if !ok {
			continue
		}
		h = c.ConfigureMiddleware(h)
	}
	return h
}
