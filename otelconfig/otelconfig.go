// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig builds OpenTelemetry tracer providers for the
// exporters a function host can be configured with.
package otelconfig

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Exporter names accepted by [Config].
const (
	ExporterNone  = "none"
	ExporterLocal = "local"
	ExporterOTLP  = "otlp"
	ExporterGCP   = "gcp"
)

// Config selects and configures a trace exporter.
type Config struct {
	Exporter    string `config:"exporter"`
	ServiceName string `config:"service_name"`

	OTLP struct {
		Target string `config:"target"`
	} `config:"otlp"`

	GCP struct {
		ProjectID string `config:"project_id"`
	} `config:"gcp"`
}

// UnknownExporterError is returned for an unrecognized [Config.Exporter].
type UnknownExporterError struct {
	Exporter string
}

// Error implements the [builtin.error] interface.
func (e UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown trace exporter: %s", e.Exporter)
}

// Initializer returns the [Initializer] named by cfg.Exporter.
// An empty exporter is the same as [ExporterNone].
func (cfg Config) Initializer() (Initializer, error) {
	name := ServiceName(cfg.ServiceName)
	switch cfg.Exporter {
	case "", ExporterNone:
		return Noop, nil
	case ExporterLocal:
		return Local(name), nil
	case ExporterOTLP:
		return OTLP(name, OTLPTarget(cfg.OTLP.Target)), nil
	case ExporterGCP:
		return GoogleCloud(name, GoogleCloudProjectID(cfg.GCP.ProjectID)), nil
	default:
		return nil, UnknownExporterError{Exporter: cfg.Exporter}
	}
}

// Common holds the settings shared by every exporter.
type Common struct {
	ServiceName string
}

// CommonOption configures any of the exporters.
type CommonOption interface {
	GoogleCloudOption
	LocalOption
	OTLPOption
}

type commonOptionFunc func(*Common)

func (f commonOptionFunc) ApplyGCP(cfg *GoogleCloudConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(&cfg.Common)
}

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) CommonOption {
	return commonOptionFunc(func(c *Common) {
		c.ServiceName = name
	})
}

// Initializer creates the tracer provider a host registers globally.
type Initializer interface {
	Init(context.Context) (trace.TracerProvider, error)
}

// Noop keeps whichever tracer provider is already registered globally.
var Noop = noopConfiger{}

type noopConfiger struct{}

func (noopConfiger) Init(context.Context) (trace.TracerProvider, error) {
	return otel.GetTracerProvider(), nil
}

// LocalConfig writes spans to an [io.Writer].
type LocalConfig struct {
	Common

	Out io.Writer
}

// LocalOption configures [Local].
type LocalOption interface {
	ApplyLocal(*LocalConfig)
}

type localOptionFunc func(*LocalConfig)

func (f localOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(cfg)
}

// LocalWriter overrides where spans are written. It defaults to [os.Stdout].
func LocalWriter(w io.Writer) LocalOption {
	return localOptionFunc(func(lc *LocalConfig) {
		lc.Out = w
	})
}

// Local returns an Initializer which pretty prints spans.
func Local(opts ...LocalOption) Initializer {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyLocal(&cfg)
	}
	return cfg
}

// Init implements Initializer interface.
func (cfg LocalConfig) Init(ctx context.Context) (trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := serviceResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

func serviceResource(ctx context.Context, c Common) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(c.ServiceName),
		),
	)
}
