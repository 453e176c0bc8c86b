// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"log/slog"

	"github.com/z5labs/funcframework/host"
	"github.com/z5labs/funcframework/logging"
	"github.com/z5labs/funcframework/payload"
	"github.com/z5labs/funcframework/target"

	"github.com/cloudevents/sdk-go/v2/event"
)

type objectLogger struct {
	log *slog.Logger
}

func (l objectLogger) HandleCloudEvent(ctx context.Context, ev event.Event, obj payload.StorageObject) error {
	l.log.InfoContext(
		ctx,
		"object changed",
		slog.String("type", ev.Type()),
		slog.String("bucket", obj.Bucket),
		slog.String("name", obj.Name),
		slog.Int64("size", obj.Size.Int64()),
	)
	return nil
}

func main() {
	objectLoggerType := target.New("ObjectLogger", func(ctx context.Context) (objectLogger, error) {
		svcs, ok := host.ServicesFromContext(ctx)
		if !ok {
			return objectLogger{log: slog.Default()}, nil
		}
		return objectLogger{log: logging.New(svcs.Adapter.Log)}, nil
	})

	host.Main([]*target.Type{
		target.AcceptsCloudEvent[payload.StorageObject](objectLoggerType),
	})
}
