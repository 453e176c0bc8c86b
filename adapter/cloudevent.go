// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package adapter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/z5labs/funcframework/cloudevent"
	"github.com/z5labs/funcframework/formatter"
	"github.com/z5labs/funcframework/function"
	"github.com/z5labs/funcframework/legacy"
	"github.com/z5labs/funcframework/logging"
	"github.com/z5labs/funcframework/publish"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
)

// CloudEventHandler adapts a [function.CloudEventFunction].
type CloudEventHandler struct {
	log       *slog.Logger
	publisher publish.Publisher
	f         function.CloudEventFunction
}

// CloudEvent returns a [CloudEventHandler] for f. Reply events returned
// by f are sent to the configured [Publisher].
func CloudEvent(f function.CloudEventFunction, opts ...Option) *CloudEventHandler {
	o := newOptions(opts...)

	return &CloudEventHandler{
		log:       logging.New(o.logHandler),
		publisher: o.publisher,
		f:         f,
	}
}

// Handle implements the [Handler] interface.
func (h *CloudEventHandler) Handle(w http.ResponseWriter, r *http.Request) error {
	ctx, span := startSpan(r, "CloudEventHandler.Handle")
	defer span.End()

	ev, ok := convert(ctx, h.log, w, r)
	if !ok {
		return nil
	}

	reply, err := h.f.HandleCloudEvent(ctx, ev)
	if err != nil {
		return err
	}
	if reply != nil {
		err = h.publish(ctx, r, *reply)
		if err != nil {
			fail(ctx, h.log, w, false, "failed to publish reply event", err)
			return nil
		}
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

func (h *CloudEventHandler) publish(ctx context.Context, r *http.Request, reply event.Event) error {
	if reply.ID() == "" {
		reply.SetID(uuid.NewString())
	}
	if reply.Source() == "" {
		reply.SetSource("//" + r.Host + r.URL.Path)
	}
	err := cloudevent.Validate(reply)
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, reply)
}

// TypedCloudEventHandler adapts a [function.TypedCloudEventFunction].
type TypedCloudEventHandler[T any] struct {
	log       *slog.Logger
	formatter formatter.Formatter[T]
	f         function.TypedCloudEventFunction[T]
}

// TypedCloudEvent returns a [TypedCloudEventHandler] which decodes the
// event data with fm before invoking f.
func TypedCloudEvent[T any](f function.TypedCloudEventFunction[T], fm formatter.Formatter[T], opts ...Option) *TypedCloudEventHandler[T] {
	o := newOptions(opts...)

	return &TypedCloudEventHandler[T]{
		log:       logging.New(o.logHandler),
		formatter: fm,
		f:         f,
	}
}

// Handle implements the [Handler] interface.
func (h *TypedCloudEventHandler[T]) Handle(w http.ResponseWriter, r *http.Request) error {
	ctx, span := startSpan(r, "TypedCloudEventHandler.Handle")
	defer span.End()

	ev, ok := convert(ctx, h.log, w, r)
	if !ok {
		return nil
	}

	typed, err := cloudevent.Decode(ev, h.formatter.Decode)
	if err != nil {
		reject(ctx, h.log, w, "failed to decode cloudevent data", err)
		return nil
	}

	err = h.f.HandleCloudEvent(ctx, typed.Event, typed.Data)
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

func convert(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request) (event.Event, bool) {
	ev, err := legacy.FromRequest(r.WithContext(ctx))
	if err != nil {
		reject(ctx, log, w, "failed to convert request to cloudevent", err)
		return ev, false
	}

	err = cloudevent.Validate(ev)
	if err != nil {
		reject(ctx, log, w, "received invalid cloudevent", err)
		return ev, false
	}

	log.DebugContext(
		ctx,
		"received cloudevent",
		slog.String("event_id", ev.ID()),
		slog.String("event_type", ev.Type()),
		slog.String("event_source", ev.Source()),
	)
	return ev, true
}
