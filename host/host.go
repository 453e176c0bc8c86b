// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"syscall"

	"github.com/z5labs/funcframework"
	"github.com/z5labs/funcframework/adapter"
	"github.com/z5labs/funcframework/app"
	"github.com/z5labs/funcframework/appbuilder"
	"github.com/z5labs/funcframework/config"
	"github.com/z5labs/funcframework/formatter"
	"github.com/z5labs/funcframework/logging"
	"github.com/z5labs/funcframework/publish"
	"github.com/z5labs/funcframework/target"
)

type options struct {
	startups  []Startup
	sources   []config.Source
	environ   func() []string
	logOutput io.Writer
	listen    func(string, string) (net.Listener, error)
	transport http.RoundTripper
	signals   []os.Signal

	formatters *formatter.Cache
	codecs     *adapter.Codecs

	newPubSubClient func(context.Context) (publish.PubSubClient, error)
	newSQSClient    func(context.Context) (publish.SQSClient, error)
}

// Option configures the host.
type Option func(*options)

// Startups appends entries to the host's startup list.
func Startups(entries ...Startup) Option {
	return func(o *options) {
		o.startups = append(o.startups, entries...)
	}
}

// ConfigSource layers src over the embedded defaults. Environment
// variables and command line flags still take precedence over it.
func ConfigSource(src config.Source) Option {
	return func(o *options) {
		o.sources = append(o.sources, src)
	}
}

// ConfigFile layers the YAML file at path within fsys over the embedded
// defaults, the same way as [ConfigSource].
func ConfigFile(fsys fs.FS, path string) Option {
	return ConfigSource(config.FromYamlFile(fsys, path))
}

// Environ overrides where environment variables are read from.
// It defaults to [os.Environ].
func Environ(f func() []string) Option {
	return func(o *options) {
		o.environ = f
	}
}

// LogOutput overrides where logs are written. It defaults to [os.Stdout].
func LogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// Listener overrides how the host listens for connections.
func Listener(f func(network, addr string) (net.Listener, error)) Option {
	return func(o *options) {
		o.listen = f
	}
}

// Signals overrides which signals stop the host.
// It defaults to [os.Interrupt] and [syscall.SIGTERM].
func Signals(signals ...os.Signal) Option {
	return func(o *options) {
		o.signals = signals
	}
}

// Formatters provides the cache used to resolve typed CloudEvent payload formatters.
func Formatters(c *formatter.Cache) Option {
	return func(o *options) {
		o.formatters = c
	}
}

// Codecs provides the registry used to resolve typed request readers and response writers.
func Codecs(c *adapter.Codecs) Option {
	return func(o *options) {
		o.codecs = c
	}
}

// PubSubClient uses c to publish replies to REPLY_PUBSUB_TOPIC
// instead of creating a client from the ambient credentials.
func PubSubClient(c publish.PubSubClient) Option {
	return func(o *options) {
		o.newPubSubClient = func(context.Context) (publish.PubSubClient, error) {
			return c, nil
		}
	}
}

// SQSClient uses c to publish replies to REPLY_SQS_QUEUE_URL
// instead of creating a client from the default AWS config.
func SQSClient(c publish.SQSClient) Option {
	return func(o *options) {
		o.newSQSClient = func(context.Context) (publish.SQSClient, error) {
			return c, nil
		}
	}
}

// SinkTransport overrides the transport used to post replies to K_SINK.
func SinkTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		environ:         os.Environ,
		logOutput:       os.Stdout,
		listen:          net.Listen,
		transport:       http.DefaultTransport,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
		newPubSubClient: defaultPubSubClient,
		newSQSClient:    defaultSQSClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.formatters == nil {
		o.formatters = formatter.NewCache()
	}
	if o.codecs == nil {
		o.codecs = adapter.NewCodecs()
	}
	return o
}

// run layers the config sources as embedded defaults, options, environment
// and finally flags, then builds and runs the host.
func run(ctx context.Context, types []*target.Type, o *options, flags ...config.Source) error {
	srcs := []config.Source{defaultSource()}
	srcs = append(srcs, o.sources...)
	srcs = append(srcs, envSource(o.environ))
	srcs = append(srcs, flags...)

	return funcframework.Run(ctx, newBuilder(types, o), srcs...)
}

func newBuilder(types []*target.Type, o *options) funcframework.AppBuilder[Config] {
	ss := sortStartups(o.startups)

	build := funcframework.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (funcframework.App, error) {
		return buildApp(ctx, types, ss, o, cfg)
	})

	return appbuilder.Recover(configure(ss, appbuilder.OTel(build)))
}

// configure lets startups adjust the config before telemetry is initialized.
func configure(ss startups, next funcframework.AppBuilder[Config]) funcframework.AppBuilder[Config] {
	return funcframework.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (funcframework.App, error) {
		err := ss.configureConfig(&cfg)
		if err != nil {
			return nil, err
		}
		return next.Build(ctx, cfg)
	})
}

func buildApp(ctx context.Context, types []*target.Type, ss startups, o *options, cfg Config) (funcframework.App, error) {
	port, err := cfg.Port()
	if err != nil {
		return nil, err
	}

	logHandler, err := newLogHandler(cfg, o.logOutput, ss)
	if err != nil {
		return nil, err
	}
	log := logging.New(logHandler).With(logging.Category("funcframework.host"))

	desc, err := target.Resolve(types, cfg.Function.Target)
	if err != nil {
		return nil, err
	}

	publisher, err := newPublisher(ctx, cfg.Reply, o, logHandler)
	if err != nil {
		return nil, err
	}

	svcs := newServices(adapter.Services{
		Log:        logHandler,
		Publisher:  publisher,
		Formatters: o.formatters,
		Codecs:     o.codecs,
	})
	err = ss.configureServices(ctx, svcs)
	if err != nil {
		return nil, err
	}

	h, err := desc.Build(NewServicesContext(ctx, svcs), svcs.Adapter)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Address(), strconv.Itoa(int(port)))
	log.InfoContext(
		ctx,
		"serving function",
		slog.String("target", desc.Name),
		slog.String("shape", desc.Shape.String()),
		slog.String("address", addr),
	)

	srv := &server{
		addr:              addr,
		listen:            o.listen,
		log:               log,
		h:                 ss.configureMiddleware(newRouter(log, h)),
		readHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		shutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}
	return app.Recover(app.WithSignalNotifications(srv, o.signals...)), nil
}
