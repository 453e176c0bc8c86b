// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelconfig

import (
	"context"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

// GoogleCloudConfig exports spans to Cloud Trace.
type GoogleCloudConfig struct {
	Common

	// ProjectID is the project traces are written to. When empty the
	// exporter falls back to the metadata server or the application
	// default credentials.
	ProjectID string
}

// GoogleCloudOption configures [GoogleCloud].
type GoogleCloudOption interface {
	ApplyGCP(*GoogleCloudConfig)
}

type gcpOptionFunc func(*GoogleCloudConfig)

func (f gcpOptionFunc) ApplyGCP(cfg *GoogleCloudConfig) {
	f(cfg)
}

// GoogleCloudProjectID sets the Cloud Trace project.
func GoogleCloudProjectID(id string) GoogleCloudOption {
	return gcpOptionFunc(func(gcc *GoogleCloudConfig) {
		gcc.ProjectID = id
	})
}

// GoogleCloud returns an [Initializer] which exports spans to Cloud Trace.
// The Cloud Run or Cloud Functions resource the host runs on is detected
// and merged with the service name.
func GoogleCloud(opts ...GoogleCloudOption) Initializer {
	gc := GoogleCloudConfig{}
	for _, opt := range opts {
		opt.ApplyGCP(&gc)
	}
	return gc
}

// Init implements the [Initializer] interface.
func (cfg GoogleCloudConfig) Init(ctx context.Context) (trace.TracerProvider, error) {
	exporterOpts := []texporter.Option{
		texporter.WithTraceClientOptions([]option.ClientOption{option.WithTelemetryDisabled()}),
	}
	if cfg.ProjectID != "" {
		exporterOpts = append(exporterOpts, texporter.WithProjectID(cfg.ProjectID))
	}
	exporter, err := texporter.New(exporterOpts...)
	if err != nil {
		return nil, err
	}

	platform, err := resource.New(ctx, resource.WithDetectors(gcp.NewDetector()))
	if err != nil {
		return nil, err
	}
	svc, err := serviceResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(platform, svc)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}
