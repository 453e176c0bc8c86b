// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/z5labs/funcframework/internal/try"
	"github.com/z5labs/funcframework/lifecycle"
	"github.com/z5labs/funcframework/publish"

	pubsub "cloud.google.com/go/pubsub/apiv1"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// MissingProjectError is returned when a Pub/Sub reply topic is given
// by its short name and no Google Cloud project is configured.
type MissingProjectError struct {
	Topic string
}

// Error implements the [builtin.error] interface.
func (e MissingProjectError) Error() string {
	return fmt.Sprintf("pubsub reply topic %q needs %s to be set or must be a full topic name", e.Topic, EnvGoogleCloudProject)
}

// ReplyClientError wraps a failure to create a reply publisher client.
type ReplyClientError struct {
	Destination string
	Cause       error
}

// Error implements the [builtin.error] interface.
func (e ReplyClientError) Error() string {
	return fmt.Sprintf("failed to create %s reply client: %s", e.Destination, e.Cause)
}

// Unwrap implements the implicit interface for usage with [errors.Is] and [errors.As].
func (e ReplyClientError) Unwrap() error {
	return e.Cause
}

func defaultPubSubClient(ctx context.Context) (publish.PubSubClient, error) {
	return pubsub.NewPublisherClient(ctx)
}

func defaultSQSClient(ctx context.Context) (publish.SQSClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// newPublisher picks the reply destination in the order sink, Pub/Sub, SQS
// and falls back to discarding replies.
func newPublisher(ctx context.Context, cfg ReplyConfig, o *options, h slog.Handler) (publish.Publisher, error) {
	switch {
	case cfg.Sink != "":
		return newSinkPublisher(cfg, o, h), nil
	case cfg.PubSub.Topic != "":
		topic, err := pubSubTopic(cfg)
		if err != nil {
			return nil, err
		}

		client, err := o.newPubSubClient(ctx)
		if err != nil {
			return nil, ReplyClientError{Destination: "pubsub", Cause: err}
		}
		closeOnPostRun(ctx, "pubsub client", client)
		return publish.NewPubSub(client, topic, publish.LogHandler(h)), nil
	case cfg.SQS.QueueURL != "":
		client, err := o.newSQSClient(ctx)
		if err != nil {
			return nil, ReplyClientError{Destination: "sqs", Cause: err}
		}
		return publish.NewSQS(client, cfg.SQS.QueueURL, publish.LogHandler(h)), nil
	default:
		return publish.Discard(publish.LogHandler(h)), nil
	}
}

func newSinkPublisher(cfg ReplyConfig, o *options, h slog.Handler) publish.Publisher {
	circuitOpts := []publish.CircuitOption{
		publish.CircuitName("reply-sink"),
		publish.CircuitLogHandler(h),
		publish.CircuitTripCount(cfg.Circuit.TripCount),
		publish.CircuitTimeout(cfg.Circuit.Timeout),
		publish.CircuitMaxRequests(cfg.Circuit.MaxRequests),
		publish.CircuitInterval(cfg.Circuit.Interval),
		publish.CountCircuitErrorIf(countSinkFailure),
	}
	for _, code := range cfg.Circuit.StatusCodes {
		circuitOpts = append(circuitOpts, publish.CircuitErrorOnStatusCode(code))
	}
	transport := publish.RoundTripperWith(o.transport, publish.CircuitBreaker(circuitOpts...))
	client := publish.NewClient(
		publish.ClientTimeout(cfg.Timeout),
		publish.WithTransport(transport),
		publish.RetryRequests(
			publish.MaxRetries(cfg.Retry.MaxRetries),
			publish.MinWaitDuration(cfg.Retry.MinWait),
			publish.MaxWaitDuration(cfg.Retry.MaxWait),
			publish.RetryLogHandler(h),
		),
	)
	return publish.NewHTTP(client, cfg.Sink, publish.LogHandler(h))
}

// countSinkFailure reports a request as successful unless the sink answered
// with a failing status code or could not be reached. A request cancelled by
// the caller says nothing about the sink's health.
func countSinkFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return publish.NotStatusCodeError(err) && publish.NotConnError(err)
}

func pubSubTopic(cfg ReplyConfig) (string, error) {
	topic := cfg.PubSub.Topic
	if strings.HasPrefix(topic, "projects/") {
		return topic, nil
	}
	if cfg.PubSub.Project == "" {
		return "", MissingProjectError{Topic: topic}
	}
	return fmt.Sprintf("projects/%s/topics/%s", cfg.PubSub.Project, topic), nil
}

// closeOnPostRun closes v, if it is an io.Closer, once the app stops.
func closeOnPostRun(ctx context.Context, name string, v any) {
	lc, ok := lifecycle.FromContext(ctx)
	if !ok {
		return
	}
	lc.OnPostRun(lifecycle.Named(name, lifecycle.HookFunc(func(context.Context) (err error) {
		try.Close(&err, v)
		return err
	})))
}
