// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/z5labs/funcframework/config/key"

	"github.com/stretchr/testify/assert"
)

type storeFunc func(key.Keyer, any) error

func (f storeFunc) Set(k key.Keyer, v any) error {
	return f(k, v)
}

type myKeyer string

func (myKeyer) Key() string {
	return "my key"
}

func TestRead(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a source fails to apply", func(t *testing.T) {
			srcErr := errors.New("failed to apply")
			src := SourceFunc(func(Store) error {
				return srcErr
			})

			_, err := Read(src)
			if !assert.ErrorIs(t, err, srcErr) {
				return
			}
		})

		t.Run("if the yaml is invalid", func(t *testing.T) {
			_, err := Read(FromYaml(strings.NewReader("port: [")))

			var derr DecodeError
			if !assert.ErrorAs(t, err, &derr) {
				return
			}
			if !assert.Equal(t, FormatYAML, derr.Format) {
				return
			}
		})

		t.Run("if the json is invalid", func(t *testing.T) {
			_, err := Read(FromJson(strings.NewReader("{")))

			var derr DecodeError
			if !assert.ErrorAs(t, err, &derr) {
				return
			}
			if !assert.Equal(t, FormatJSON, derr.Format) {
				return
			}
		})
	})

	t.Run("will override earlier sources", func(t *testing.T) {
		t.Run("if a later source sets the same key", func(t *testing.T) {
			m, err := Read(
				FromYaml(strings.NewReader("http:\n  port: 8080\n  host: 127.0.0.1\n")),
				FromEnv(
					Environ(func() []string { return []string{"PORT=9090"} }),
					Bind("PORT", "http.port"),
				),
			)
			if !assert.Nil(t, err) {
				return
			}

			var cfg struct {
				HTTP struct {
					Host string `config:"host"`
					Port uint   `config:"port"`
				} `config:"http"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, uint(9090), cfg.HTTP.Port) {
				return
			}
			if !assert.Equal(t, "127.0.0.1", cfg.HTTP.Host) {
				return
			}
		})
	})
}

func TestManager_Unmarshal(t *testing.T) {
	t.Run("will decode", func(t *testing.T) {
		t.Run("if the value is a duration string", func(t *testing.T) {
			m, err := Read(Map{"timeout": "5s"})
			if !assert.Nil(t, err) {
				return
			}

			var cfg struct {
				Timeout time.Duration `config:"timeout"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 5*time.Second, cfg.Timeout) {
				return
			}
		})

		t.Run("if a bool is provided as a string", func(t *testing.T) {
			m, err := Read(Map{"enabled": "true"})
			if !assert.Nil(t, err) {
				return
			}

			var cfg struct {
				Enabled bool `config:"enabled"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.True(t, cfg.Enabled) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the duration can not be parsed", func(t *testing.T) {
			m, err := Read(Map{"timeout": "soon"})
			if !assert.Nil(t, err) {
				return
			}

			var cfg struct {
				Timeout time.Duration `config:"timeout"`
			}
			err = m.Unmarshal(&cfg)

			var terr TypeCoercionError
			if !assert.ErrorAs(t, err, &terr) {
				return
			}
		})
	})
}

func TestEnv_Apply(t *testing.T) {
	t.Run("will set every variable", func(t *testing.T) {
		t.Run("if no bindings are registered", func(t *testing.T) {
			var keys []string
			store := storeFunc(func(k key.Keyer, v any) error {
				keys = append(keys, k.Key())
				return nil
			})

			env := FromEnv(Environ(func() []string {
				return []string{"A=1", "B=2", "malformed"}
			}))
			err := env.Apply(store)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, []string{"A", "B"}, keys) {
				return
			}
		})
	})

	t.Run("will only set bound variables", func(t *testing.T) {
		t.Run("if bindings are registered", func(t *testing.T) {
			values := make(map[string]any)
			store := storeFunc(func(k key.Keyer, v any) error {
				values[k.Key()] = v
				return nil
			})

			env := FromEnv(
				Environ(func() []string {
					return []string{"FUNCTION_TARGET=HelloWorld", "HOME=/root", "PORT=", "GOOGLE_CLOUD_PROJECT=my-project"}
				}),
				Bind("FUNCTION_TARGET", "function.target"),
				Bind("PORT", "http.port"),
				Bind("GOOGLE_CLOUD_PROJECT", "reply.pubsub.project"),
				Bind("GOOGLE_CLOUD_PROJECT", "otel.gcp.project_id"),
			)
			err := env.Apply(store)
			if !assert.Nil(t, err) {
				return
			}
			expected := map[string]any{
				"function.target":      "HelloWorld",
				"reply.pubsub.project": "my-project",
				"otel.gcp.project_id":  "my-project",
			}
			if !assert.Equal(t, expected, values) {
				return
			}
		})
	})
}

func TestMap_Apply(t *testing.T) {
	t.Run("will properly construct key.Chain for", func(t *testing.T) {
		testCases := []struct {
			Name   string
			M      Map
			Chains []string
		}{
			{
				Name:   "single top level key",
				M:      Map{"hello": "world"},
				Chains: []string{"hello"},
			},
			{
				Name: "sibling nested keys",
				M: Map{
					"a": map[string]any{
						"b": 1,
						"c": 2,
						"d": map[string]any{"e": 3},
					},
				},
				Chains: []string{"a.b", "a.c", "a.d.e"},
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				var chains []string
				store := storeFunc(func(k key.Keyer, v any) error {
					chains = append(chains, k.Key())
					return nil
				})

				err := testCase.M.Apply(store)
				if !assert.Nil(t, err) {
					return
				}

				slices.Sort(chains)
				if !assert.Equal(t, testCase.Chains, chains) {
					return
				}
			})
		}
	})
}

func TestInMemoryStore_Set(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if an unknown key.Keyer is used", func(t *testing.T) {
			store := make(inMemoryStore)
			err := store.Set(myKeyer("hello"), "world")

			var ierr UnknownKeyerError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotEmpty(t, ierr.Error()) {
				return
			}
		})

		t.Run("if an empty key.Chain is used", func(t *testing.T) {
			store := make(inMemoryStore)
			err := store.Set(key.Chain{}, "world")

			var ierr EmptyKeyChainError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotEmpty(t, ierr.Error()) {
				return
			}
		})

		t.Run("if a scalar key is later used as a parent", func(t *testing.T) {
			store := make(inMemoryStore)
			err := store.Set(key.Name("hello"), "world")
			if !assert.Nil(t, err) {
				return
			}

			err = store.Set(key.Chain{key.Name("hello"), key.Name("bob")}, "world")

			var ierr UnexpectedKeyValueTypeError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotEmpty(t, ierr.Error()) {
				return
			}
		})
	})
}

func TestPath(t *testing.T) {
	testCases := []struct {
		Name     string
		Path     string
		Expected key.Keyer
	}{
		{Name: "single name", Path: "port", Expected: key.Name("port")},
		{Name: "nested", Path: "http.port", Expected: key.Chain{key.Name("http"), key.Name("port")}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			k := key.Path(testCase.Path)
			if !assert.Equal(t, testCase.Expected, k) {
				return
			}
			if !assert.Equal(t, testCase.Path, k.Key()) {
				return
			}
		})
	}
}

func TestDecoded_Apply(t *testing.T) {
	t.Run("will leave the store untouched", func(t *testing.T) {
		t.Run("if the document is empty", func(t *testing.T) {
			m, err := Read(
				FromYaml(strings.NewReader("name: kept")),
				FromJson(strings.NewReader("")),
			)
			if !assert.Nil(t, err) {
				return
			}

			var cfg struct {
				Name string `config:"name"`
			}
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "kept", cfg.Name) {
				return
			}
		})
	})
}
