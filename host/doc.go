// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package host serves a single user function over HTTP.
//
// At startup the host reads its [Config] from the embedded defaults,
// any [ConfigSource] or [ConfigFile] options, the environment and the
// command line, in increasing precedence. It then
// resolves which of the declared function types to serve, builds the adapter
// for its shape and listens until it receives SIGINT or SIGTERM.
//
//	func main() {
//	    host.Main([]*target.Type{
//	        target.New("HelloWorld", NewHelloWorld),
//	    })
//	}
//
// # Command line
//
// A single bare argument names the function type to serve. The --target
// and --port flags override FUNCTION_TARGET and PORT. Giving a flag twice,
// or both a bare argument and --target, is an error.
//
// # Environment
//
//   - FUNCTION_TARGET: the function type to serve. When unset the only
//     declared concrete function type is served.
//   - PORT: the port to listen on, 8080 by default.
//   - RUNNING_IN_CONTAINER: when true, listen on every interface instead
//     of loopback only.
//   - K_SERVICE: when set, logs are written as JSON lines.
//   - LOG_LEVEL: DEBUG, INFO, WARN or ERROR.
//   - K_SINK, REPLY_PUBSUB_TOPIC, REPLY_SQS_QUEUE_URL: where CloudEvent
//     replies are published, checked in that order.
//   - GOOGLE_CLOUD_PROJECT: project of a short REPLY_PUBSUB_TOPIC and of
//     Cloud Trace.
//   - OTEL_TRACES_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT: trace exporter
//     (none, local, otlp or gcp) and collector address.
//
// # Launch settings
//
// Some IDE launch profiles forward their arguments through the literal
// %LAUNCHER_ARGS%. If the profile does not substitute it the host refuses
// to start instead of looking for a function named after the placeholder.
// Replace the placeholder with the function type name, or remove it and
// set FUNCTION_TARGET in the profile environment instead.
//
// # Startups
//
// [Startups] registers values which adjust the host before it serves.
// Each may implement any of [ConfigConfigurer], [LoggingConfigurer],
// [ServicesConfigurer] and [MiddlewareConfigurer]. They run ordered by
// Order, then Name. Values registered with [Provide] during
// ConfigureServices are available to function constructors through
// [ServicesFromContext] and [Lookup].
//
// # Routes
//
// /robots.txt and /favicon.ico always answer 404. Every other request is
// handed to the function. Errors and panics from the function are logged
// and answered with 500 unless the function already started its response.
package host
