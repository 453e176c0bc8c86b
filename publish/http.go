// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package publish

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/z5labs/funcframework/logging"

	"github.com/cloudevents/sdk-go/v2/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HTTP publishes events to a sink URL in structured content mode.
type HTTP struct {
	log    *slog.Logger
	client *http.Client
	sink   string
}

// NewHTTP returns a [HTTP] publisher posting events to sink with client.
// A client built by [NewClient] adds retries and circuit breaking.
func NewHTTP(client *http.Client, sink string, opts ...Option) *HTTP {
	o := newOptions(opts...)

	return &HTTP{
		log:    logging.New(o.logHandler),
		client: client,
		sink:   sink,
	}
}

// Publish implements the [Publisher] interface.
func (p *HTTP) Publish(ctx context.Context, ev event.Event) error {
	spanCtx, span := otel.Tracer("publish").Start(ctx, "HTTP.Publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.url", p.sink),
		attribute.String("cloudevents.event_id", ev.ID()),
	)

	body, err := structured(ev)
	if err != nil {
		span.RecordError(err)
		return err
	}

	req, err := http.NewRequestWithContext(spanCtx, http.MethodPost, p.sink, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Content-Type", structuredContentType)

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send request")
		p.log.ErrorContext(spanCtx, "failed to publish reply event", slog.String("sink", p.sink), logging.Error(err))
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = StatusCodeError{StatusCode: resp.StatusCode}
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink rejected event")
		p.log.ErrorContext(spanCtx, "sink rejected reply event", slog.String("sink", p.sink), logging.Error(err))
		return err
	}
	return nil
}
