// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"

	"github.com/z5labs/funcframework/config/key"
)

// EnvOption configures an [Env] source.
type EnvOption func(*Env)

// Bind maps the environment variable name onto the config key at path,
// e.g. Bind("PORT", "http.port"). A variable may be bound to several keys.
// Once any binding is registered only bound, non-empty variables are applied.
func Bind(name string, path string) EnvOption {
	return func(e *Env) {
		e.bindings[name] = append(e.bindings[name], key.Path(path))
	}
}

// Environ overrides where environment variables are read from.
// It defaults to [os.Environ].
func Environ(f func() []string) EnvOption {
	return func(e *Env) {
		e.environ = f
	}
}

// Env represents a Source where its underlying values
// are extracted from environment variables.
type Env struct {
	environ  func() []string
	bindings map[string][]key.Keyer
}

// FromEnv returns a Source which will apply its config
// from the environment variables available to the
// current process.
func FromEnv(opts ...EnvOption) Env {
	e := Env{
		environ:  os.Environ,
		bindings: make(map[string][]key.Keyer),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	for _, pair := range src.environ() {
		name, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if len(src.bindings) == 0 {
			err := store.Set(key.Name(name), v)
			if err != nil {
				return err
			}
			continue
		}

		if v == "" {
			continue
		}
		for _, k := range src.bindings[name] {
			err := store.Set(k, v)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
