// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package funcframework hosts user defined functions behind an HTTP server.
//
// A function is one of four shapes, described in package [function]:
// a raw HTTP handler, an untyped CloudEvent handler (optionally returning
// a reply event), a typed CloudEvent handler whose payload is decoded by a
// [formatter.Formatter], or a typed request/response handler.
//
// Functions are declared to the host with [target.New], which the host
// resolves against the FUNCTION_TARGET environment variable or the
// --target flag, then wraps in the matching adapter from package [adapter].
// Inbound requests may be raw HTTP, CloudEvents in binary, structured or
// batch mode, or legacy platform events, which package [legacy] converts
// to CloudEvents.
//
// # Basic Usage
//
//	func main() {
//	    host.Main([]*target.Type{
//	        target.New("HelloWorld", func(ctx context.Context) (*HelloWorld, error) {
//	            return &HelloWorld{}, nil
//	        }),
//	    })
//	}
//
// This package itself only provides the small [App] and [AppBuilder]
// contract that [Run] drives: read config [config.Source]s, build an
// [App] and run it.
package funcframework
