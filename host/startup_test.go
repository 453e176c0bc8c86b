// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/z5labs/funcframework/adapter"
	"github.com/z5labs/funcframework/target"

	"github.com/stretchr/testify/assert"
)

func TestSortStartups(t *testing.T) {
	t.Run("will order entries by Order then Name", func(t *testing.T) {
		entries := []Startup{
			{Name: "zeta", Order: 1},
			{Name: "beta", Order: 2},
			{Name: "alpha", Order: 2},
			{Name: "omega", Order: -1},
		}

		sorted := sortStartups(entries)

		names := make([]string, len(sorted))
		for i, s := range sorted {
			names[i] = s.Name
		}
		if !assert.Equal(t, []string{"omega", "zeta", "alpha", "beta"}, names) {
			return
		}
		if !assert.Equal(t, "zeta", entries[0].Name, "input must not be reordered") {
			return
		}
	})
}

type greeting string

type greetingStartup struct {
	configured *[]string
}

func (s greetingStartup) ConfigureConfig(cfg *Config) error {
	*s.configured = append(*s.configured, "config")
	cfg.Function.Target = "Configured"
	return nil
}

func (s greetingStartup) ConfigureLogging(h slog.Handler) slog.Handler {
	*s.configured = append(*s.configured, "logging")
	return h
}

func (s greetingStartup) ConfigureServices(ctx context.Context, svcs *Services) error {
	*s.configured = append(*s.configured, "services")
	Provide(svcs, greeting("howdy"))
	return nil
}

type headerMiddleware struct {
	value string
}

func (m headerMiddleware) ConfigureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-Middleware", m.value)
		next.ServeHTTP(w, r)
	})
}

type failingStartup struct{}

func (failingStartup) ConfigureServices(ctx context.Context, svcs *Services) error {
	return errors.New("database unreachable")
}

func TestStartups(t *testing.T) {
	configuredType := target.New("Configured", func(ctx context.Context) (*greeter, error) {
		svcs, ok := ServicesFromContext(ctx)
		if !ok {
			return nil, errors.New("missing services")
		}
		g, ok := Lookup[greeting](svcs)
		if !ok {
			return nil, errors.New("missing greeting")
		}
		return &greeter{greeting: string(g)}, nil
	})
	otherType := target.New("Other", func(ctx context.Context) (*farewell, error) {
		return &farewell{}, nil
	})

	t.Run("will apply every hook", func(t *testing.T) {
		t.Run("if the startup implements them", func(t *testing.T) {
			var configured []string
			r, err := serve(
				t,
				[]*target.Type{configuredType, otherType},
				nil,
				nil,
				Startups(
					Startup{Name: "inner", Order: 2, Startup: headerMiddleware{value: "inner"}},
					Startup{Name: "greeting", Order: 0, Startup: greetingStartup{configured: &configured}},
					Startup{Name: "outer", Order: 1, Startup: headerMiddleware{value: "outer"}},
				),
			)
			if !assert.Nil(t, err) {
				return
			}
			defer r.stop()

			resp, err := http.Get(r.base + "/")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			b, err := io.ReadAll(resp.Body)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "howdy", string(b)) {
				return
			}
			if !assert.Equal(t, []string{"outer", "inner"}, resp.Header.Values("X-Middleware")) {
				return
			}
			if !assert.Equal(t, []string{"config", "logging", "services"}, configured) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a startup fails to configure services", func(t *testing.T) {
			_, err := serve(
				t,
				[]*target.Type{otherType},
				nil,
				nil,
				Startups(Startup{Name: "db", Startup: failingStartup{}}),
			)

			var serr StartupError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			if !assert.Equal(t, "db", serr.Name) {
				return
			}
			if !assert.Equal(t, "services", serr.Stage) {
				return
			}
		})
	})
}

func TestServices(t *testing.T) {
	t.Run("will return false", func(t *testing.T) {
		t.Run("if nothing of the type was provided", func(t *testing.T) {
			svcs := newServices(adapter.Services{})

			_, ok := Lookup[greeting](svcs)
			if !assert.False(t, ok) {
				return
			}
		})
	})

	t.Run("will return the latest value", func(t *testing.T) {
		t.Run("if the type was provided more than once", func(t *testing.T) {
			svcs := newServices(adapter.Services{})
			Provide(svcs, greeting("hi"))
			Provide(svcs, greeting("hello"))

			g, ok := Lookup[greeting](svcs)
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, greeting("hello"), g) {
				return
			}
		})
	})
}
