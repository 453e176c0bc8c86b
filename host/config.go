// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/z5labs/funcframework/config"
	"github.com/z5labs/funcframework/otelconfig"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

//go:embed default_config.yaml
var defaultConfig []byte

// Environment variables read by the host.
const (
	EnvFunctionTarget     = "FUNCTION_TARGET"
	EnvPort               = "PORT"
	EnvRunningInContainer = "RUNNING_IN_CONTAINER"
	EnvService            = "K_SERVICE"
	EnvLogLevel           = "LOG_LEVEL"
	EnvSink               = "K_SINK"
	EnvReplyPubSubTopic   = "REPLY_PUBSUB_TOPIC"
	EnvReplySQSQueueURL   = "REPLY_SQS_QUEUE_URL"
	EnvGoogleCloudProject = "GOOGLE_CLOUD_PROJECT"
	EnvOTLPEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTracesExporter     = "OTEL_TRACES_EXPORTER"
)

// Config is everything the host reads from its layered config sources:
// the embedded defaults, then [ConfigSource] and [ConfigFile] options,
// then environment variables, then flags.
type Config struct {
	Function struct {
		Target string `config:"target"`
	} `config:"function"`

	HTTP struct {
		// Port is kept as text so a malformed PORT can be reported
		// as an [InvalidPortError].
		Port               string        `config:"port"`
		RunningInContainer string        `config:"running_in_container"`
		ReadHeaderTimeout  time.Duration `config:"read_header_timeout"`
		ShutdownTimeout    time.Duration `config:"shutdown_timeout"`
	} `config:"http"`

	Logging struct {
		Level   string `config:"level"`
		Service string `config:"service"`
	} `config:"logging"`

	Reply ReplyConfig `config:"reply"`

	OTel otelconfig.Config `config:"otel"`
}

// ReplyConfig selects where CloudEvent replies are published. The first
// configured destination wins, in the order sink, Pub/Sub, SQS.
type ReplyConfig struct {
	Sink    string        `config:"sink"`
	Timeout time.Duration `config:"timeout"`

	Retry struct {
		MaxRetries int           `config:"max_retries"`
		MinWait    time.Duration `config:"min_wait"`
		MaxWait    time.Duration `config:"max_wait"`
	} `config:"retry"`

	Circuit struct {
		TripCount   uint32        `config:"trip_count"`
		Timeout     time.Duration `config:"timeout"`
		MaxRequests uint32        `config:"max_requests"`
		Interval    time.Duration `config:"interval"`
		StatusCodes []int         `config:"status_codes"`
	} `config:"circuit"`

	PubSub struct {
		Project string `config:"project"`
		Topic   string `config:"topic"`
	} `config:"pubsub"`

	SQS struct {
		QueueURL string `config:"queue_url"`
	} `config:"sqs"`
}

// InitializeOTel implements the [appbuilder.OTelInitializer] interface.
func (cfg Config) InitializeOTel(ctx context.Context) error {
	initializer, err := cfg.OTel.Initializer()
	if err != nil {
		return err
	}

	tp, err := initializer.Init(ctx)
	if err != nil {
		return err
	}
	if tp != otel.GetTracerProvider() {
		otel.SetTracerProvider(tp)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

// InvalidPortError is returned when the configured port is not a valid TCP port number.
type InvalidPortError struct {
	Value string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %q: %s", e.Value, e.Cause)
}

// Unwrap implements the implicit interface for usage with [errors.Is] and [errors.As].
func (e InvalidPortError) Unwrap() error {
	return e.Cause
}

// Port parses the configured port.
func (cfg Config) Port() (uint16, error) {
	port, err := strconv.ParseUint(strings.TrimSpace(cfg.HTTP.Port), 10, 16)
	if err != nil {
		return 0, InvalidPortError{Value: cfg.HTTP.Port, Cause: err}
	}
	return uint16(port), nil
}

// Address is the interface the server binds to. Inside a container every
// interface is used, otherwise only loopback.
func (cfg Config) Address() string {
	inContainer, _ := strconv.ParseBool(strings.TrimSpace(cfg.HTTP.RunningInContainer))
	if inContainer {
		return "0.0.0.0"
	}
	return "127.0.0.1"
}

// StructuredLogging reports whether logs should be emitted as JSON lines,
// which is the case whenever the platform service name is known.
func (cfg Config) StructuredLogging() bool {
	return cfg.Logging.Service != ""
}

// LogLevel parses the configured level, e.g. "DEBUG" or "warn".
// An empty level is [slog.LevelInfo].
func (cfg Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if cfg.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	err := lvl.UnmarshalText([]byte(cfg.Logging.Level))
	if err != nil {
		return 0, err
	}
	return lvl, nil
}

func defaultSource() config.Source {
	return config.FromYaml(bytes.NewReader(defaultConfig))
}

func envSource(environ func() []string) config.Source {
	return config.FromEnv(
		config.Environ(environ),
		config.Bind(EnvFunctionTarget, "function.target"),
		config.Bind(EnvPort, "http.port"),
		config.Bind(EnvRunningInContainer, "http.running_in_container"),
		config.Bind(EnvService, "logging.service"),
		config.Bind(EnvService, "otel.service_name"),
		config.Bind(EnvLogLevel, "logging.level"),
		config.Bind(EnvSink, "reply.sink"),
		config.Bind(EnvReplyPubSubTopic, "reply.pubsub.topic"),
		config.Bind(EnvReplySQSQueueURL, "reply.sqs.queue_url"),
		config.Bind(EnvGoogleCloudProject, "reply.pubsub.project"),
		config.Bind(EnvGoogleCloudProject, "otel.gcp.project_id"),
		config.Bind(EnvOTLPEndpoint, "otel.otlp.target"),
		config.Bind(EnvTracesExporter, "otel.exporter"),
	)
}
