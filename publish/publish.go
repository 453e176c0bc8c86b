// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package publish delivers reply CloudEvents produced by functions.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/z5labs/funcframework/cloudevent"
	"github.com/z5labs/funcframework/logging"

	"github.com/cloudevents/sdk-go/v2/event"
)

// Publisher delivers a CloudEvent to some destination.
type Publisher interface {
	Publish(context.Context, event.Event) error
}

// PublisherFunc is an adapter to allow the use of ordinary functions as a [Publisher].
type PublisherFunc func(context.Context, event.Event) error

// Publish implements the [Publisher] interface.
func (f PublisherFunc) Publish(ctx context.Context, ev event.Event) error {
	return f(ctx, ev)
}

type options struct {
	logHandler slog.Handler
}

// Option configures a publisher.
type Option func(*options)

// LogHandler configures the underlying [slog.Handler] used by the publisher.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		logHandler: logging.NoopHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Discard returns a [Publisher] which drops every event after logging a warning.
func Discard(opts ...Option) Publisher {
	o := newOptions(opts...)
	log := logging.New(o.logHandler)

	return PublisherFunc(func(ctx context.Context, ev event.Event) error {
		log.WarnContext(
			ctx,
			"no reply destination configured, discarding reply event",
			slog.String("event_id", ev.ID()),
			slog.String("event_type", ev.Type()),
		)
		return nil
	})
}

// EncodeError is returned when an event can not be serialized for delivery.
type EncodeError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e EncodeError) Error() string {
	return fmt.Sprintf("failed to encode cloudevent: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e EncodeError) Unwrap() error {
	return e.Cause
}

func structured(ev event.Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, EncodeError{Cause: err}
	}
	return b, nil
}

// binaryAttributes maps the event context onto "ce-" prefixed attributes
// as done by the binary content mode of the CloudEvents protocol bindings.
func binaryAttributes(ev event.Event) map[string]string {
	attrs := map[string]string{
		"ce-specversion": ev.SpecVersion(),
		"ce-id":          ev.ID(),
		"ce-source":      ev.Source(),
		"ce-type":        ev.Type(),
	}
	if !ev.Time().IsZero() {
		attrs["ce-time"] = ev.Time().UTC().Format(time.RFC3339Nano)
	}
	if ev.Subject() != "" {
		attrs["ce-subject"] = ev.Subject()
	}
	if ev.DataSchema() != "" {
		attrs["ce-dataschema"] = ev.DataSchema()
	}
	if ev.DataContentType() != "" {
		attrs["content-type"] = ev.DataContentType()
	}
	for name, v := range ev.Extensions() {
		attrs["ce-"+strings.ToLower(name)] = fmt.Sprint(v)
	}
	return attrs
}

var structuredContentType = cloudevent.MediaTypeCloudEventsJSON
