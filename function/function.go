// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package function defines the shapes a user function may implement.
package function

import (
	"context"
	"net/http"

	"github.com/cloudevents/sdk-go/v2/event"
)

// HTTPFunction is fully responsible for the HTTP response.
type HTTPFunction interface {
	HandleHTTP(http.ResponseWriter, *http.Request) error
}

// HTTPFunctionFunc is an adapter to allow the use of ordinary functions as an [HTTPFunction].
type HTTPFunctionFunc func(http.ResponseWriter, *http.Request) error

// HandleHTTP implements the [HTTPFunction] interface.
func (f HTTPFunctionFunc) HandleHTTP(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// CloudEventFunction consumes a validated CloudEvent. A non-nil returned
// event is published as a reply.
type CloudEventFunction interface {
	HandleCloudEvent(context.Context, event.Event) (*event.Event, error)
}

// CloudEventFunctionFunc is an adapter to allow the use of ordinary functions as a [CloudEventFunction].
type CloudEventFunctionFunc func(context.Context, event.Event) (*event.Event, error)

// HandleCloudEvent implements the [CloudEventFunction] interface.
func (f CloudEventFunctionFunc) HandleCloudEvent(ctx context.Context, ev event.Event) (*event.Event, error) {
	return f(ctx, ev)
}

// TypedCloudEventFunction consumes a validated CloudEvent along with its
// data decoded into a T.
type TypedCloudEventFunction[T any] interface {
	HandleCloudEvent(context.Context, event.Event, T) error
}

// TypedCloudEventFunctionFunc is an adapter to allow the use of ordinary functions as a [TypedCloudEventFunction].
type TypedCloudEventFunctionFunc[T any] func(context.Context, event.Event, T) error

// HandleCloudEvent implements the [TypedCloudEventFunction] interface.
func (f TypedCloudEventFunctionFunc[T]) HandleCloudEvent(ctx context.Context, ev event.Event, data T) error {
	return f(ctx, ev, data)
}

// TypedFunction maps a decoded request to a response.
type TypedFunction[Req, Resp any] interface {
	Handle(context.Context, Req) (Resp, error)
}

// TypedFunctionFunc is an adapter to allow the use of ordinary functions as a [TypedFunction].
type TypedFunctionFunc[Req, Resp any] func(context.Context, Req) (Resp, error)

// Handle implements the [TypedFunction] interface.
func (f TypedFunctionFunc[Req, Resp]) Handle(ctx context.Context, req Req) (Resp, error) {
	return f(ctx, req)
}

// Shape identifies which function interface a function implements.
type Shape int

const (
	Unknown Shape = iota
	HTTP
	CloudEvent
	TypedCloudEvent
	TypedRequestResponse
)

// String implements the [fmt.Stringer] interface.
func (s Shape) String() string {
	switch s {
	case HTTP:
		return "http"
	case CloudEvent:
		return "cloudevent"
	case TypedCloudEvent:
		return "typed cloudevent"
	case TypedRequestResponse:
		return "typed request/response"
	default:
		return "unknown"
	}
}
