// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/z5labs/funcframework/internal/try"
	"gopkg.in/yaml.v3"
)

// Format names an encoding a [Decoded] source understands.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DecodeError is returned when a [Decoded] source holds malformed content.
type DecodeError struct {
	Format Format
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("invalid %s config: %s", e.Format, e.Cause)
}

// Unwrap implements the implicit interface for usage with [errors.Is] and [errors.As].
func (e DecodeError) Unwrap() error {
	return e.Cause
}

// Decoded is a [Source] which decodes a document into a nested map
// and applies it like a [Map]. If the reader is also an [io.Closer]
// it is closed once read.
type Decoded struct {
	format    Format
	r         io.Reader
	unmarshal func([]byte, any) error
}

// FromYaml returns a [Source] for the YAML document read from r.
func FromYaml(r io.Reader) Decoded {
	return Decoded{format: FormatYAML, r: r, unmarshal: yaml.Unmarshal}
}

// FromJson returns a [Source] for the JSON object read from r.
func FromJson(r io.Reader) Decoded {
	return Decoded{format: FormatJSON, r: r, unmarshal: json.Unmarshal}
}

// Apply implements the [Source] interface.
func (src Decoded) Apply(store Store) (err error) {
	c, _ := src.r.(io.Closer)
	defer try.Close(&err, c)

	b, err := io.ReadAll(src.r)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}

	m := make(map[string]any)
	err = src.unmarshal(b, &m)
	if err != nil {
		return DecodeError{Format: src.format, Cause: err}
	}
	return Map(m).Apply(store)
}
