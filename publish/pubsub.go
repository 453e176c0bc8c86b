// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package publish

import (
	"context"
	"log/slog"

	"github.com/z5labs/funcframework/logging"

	"cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubClient is the subset of the Pub/Sub publisher API client used by [PubSub].
type PubSubClient interface {
	Publish(context.Context, *pubsubpb.PublishRequest, ...gax.CallOption) (*pubsubpb.PublishResponse, error)
}

// PubSub publishes events to a Pub/Sub topic in binary content mode.
type PubSub struct {
	log    *slog.Logger
	client PubSubClient
	topic  string
}

// NewPubSub returns a [PubSub] publishing to topic, which must be of the
// form projects/{project}/topics/{topic}.
func NewPubSub(client PubSubClient, topic string, opts ...Option) *PubSub {
	o := newOptions(opts...)

	return &PubSub{
		log:    logging.New(o.logHandler),
		client: client,
		topic:  topic,
	}
}

// Publish implements the [Publisher] interface.
func (p *PubSub) Publish(ctx context.Context, ev event.Event) error {
	spanCtx, span := otel.Tracer("publish").Start(ctx, "PubSub.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("pubsub.topic", p.topic),
		attribute.String("cloudevents.event_id", ev.ID()),
	)

	resp, err := p.client.Publish(spanCtx, &pubsubpb.PublishRequest{
		Topic: p.topic,
		Messages: []*pubsubpb.PubsubMessage{
			{
				Data:       ev.Data(),
				Attributes: binaryAttributes(ev),
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish")
		p.log.ErrorContext(spanCtx, "failed to publish reply event", slog.String("topic", p.topic), logging.Error(err))
		return err
	}

	p.log.DebugContext(
		spanCtx,
		"published reply event",
		slog.String("topic", p.topic),
		slog.Any("message_ids", resp.GetMessageIds()),
	)
	return nil
}
