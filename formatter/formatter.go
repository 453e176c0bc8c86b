// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package formatter resolves how the data of a CloudEvent is decoded
// into a typed payload.
package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/z5labs/funcframework/internal/typecache"

	"github.com/cloudevents/sdk-go/v2/event"
)

// Formatter decodes the data of a CloudEvent into a T.
type Formatter[T any] interface {
	Decode(event.Event) (T, error)
}

// FormatterFunc is an adapter to allow the use of ordinary functions as a [Formatter].
type FormatterFunc[T any] func(event.Event) (T, error)

// Decode implements the [Formatter] interface.
func (f FormatterFunc[T]) Decode(ev event.Event) (T, error) {
	return f(ev)
}

// Annotated is implemented by payload types which declare their own formatter.
type Annotated[T any] interface {
	CloudEventFormatter() Formatter[T]
}

// DecodeError is returned by a formatter when the event data can not be
// decoded into the payload type.
type DecodeError struct {
	Type  reflect.Type
	Cause error
}

// Error implements the [builtin.error] interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("failed to decode event data into %s: %s", e.Type, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e DecodeError) Unwrap() error {
	return e.Cause
}

// ErrNoData is the cause of a [DecodeError] when the event carries no data.
var ErrNoData = errors.New("event has no data")

// JSON returns a [Formatter] which unmarshals the event data as JSON.
func JSON[T any]() Formatter[T] {
	return FormatterFunc[T](func(ev event.Event) (T, error) {
		var v T
		b := ev.Data()
		if len(b) == 0 {
			return v, DecodeError{Type: typeOf[T](), Cause: ErrNoData}
		}
		err := json.Unmarshal(b, &v)
		if err != nil {
			return v, DecodeError{Type: typeOf[T](), Cause: err}
		}
		return v, nil
	})
}

// MissingFormatterError means no formatter was registered for a payload
// type and the type does not implement [Annotated].
type MissingFormatterError struct {
	Type reflect.Type
}

// Error implements the [builtin.error] interface.
func (e MissingFormatterError) Error() string {
	return fmt.Sprintf("no cloudevent formatter registered or declared for payload type: %s", e.Type)
}

// Cache holds explicitly registered formatters and memoizes resolved ones.
// The zero value is ready to use.
type Cache struct {
	registered typecache.Cache
	resolved   typecache.Cache
}

// NewCache returns an empty [Cache].
func NewCache() *Cache {
	return &Cache{}
}

// Register configures the formatter used for payloads of type T.
// A registered formatter takes precedence over the one declared by T.
func Register[T any](c *Cache, f Formatter[T]) {
	t := typeOf[T]()
	c.registered.Store(t, f)
	c.resolved.Delete(t)
}

// Resolve returns the formatter for payloads of type T.
func Resolve[T any](c *Cache) (Formatter[T], error) {
	t := typeOf[T]()
	v, err := c.resolved.GetOrCreate(t, func() (any, error) {
		if f, ok := c.registered.Load(t); ok {
			return f, nil
		}
		if f, ok := annotated[T](); ok {
			return f, nil
		}
		return nil, MissingFormatterError{Type: t}
	})
	if err != nil {
		return nil, err
	}
	return v.(Formatter[T]), nil
}

func annotated[T any]() (Formatter[T], bool) {
	var zero T
	if a, ok := any(zero).(Annotated[T]); ok {
		return a.CloudEventFormatter(), true
	}
	if a, ok := any(&zero).(Annotated[T]); ok {
		return a.CloudEventFormatter(), true
	}
	return nil, false
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
