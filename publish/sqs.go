// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package publish

import (
	"context"
	"log/slog"

	"github.com/z5labs/funcframework/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cloudevents/sdk-go/v2/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SQSClient is the subset of the SQS API client used by [SQS].
type SQSClient interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQS publishes events to an SQS queue in structured content mode.
type SQS struct {
	log      *slog.Logger
	client   SQSClient
	queueURL string
}

// NewSQS returns a [SQS] publisher sending to the queue at queueURL.
func NewSQS(client SQSClient, queueURL string, opts ...Option) *SQS {
	o := newOptions(opts...)

	return &SQS{
		log:      logging.New(o.logHandler),
		client:   client,
		queueURL: queueURL,
	}
}

// Publish implements the [Publisher] interface.
func (p *SQS) Publish(ctx context.Context, ev event.Event) error {
	spanCtx, span := otel.Tracer("publish").Start(ctx, "SQS.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("sqs.queue_url", p.queueURL),
		attribute.String("cloudevents.event_id", ev.ID()),
	)

	body, err := structured(ev)
	if err != nil {
		span.RecordError(err)
		return err
	}

	out, err := p.client.SendMessage(spanCtx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"content-type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(structuredContentType),
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send message")
		p.log.ErrorContext(spanCtx, "failed to publish reply event", slog.String("queue_url", p.queueURL), logging.Error(err))
		return err
	}

	p.log.DebugContext(spanCtx, "published reply event", slog.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
