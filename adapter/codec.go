// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/z5labs/funcframework/internal/typecache"
)

// RequestReader produces a Req from an HTTP request.
type RequestReader[Req any] interface {
	ReadRequest(*http.Request) (Req, error)
}

// RequestReaderFunc is an adapter to allow the use of ordinary functions as a [RequestReader].
type RequestReaderFunc[Req any] func(*http.Request) (Req, error)

// ReadRequest implements the [RequestReader] interface.
func (f RequestReaderFunc[Req]) ReadRequest(r *http.Request) (Req, error) {
	return f(r)
}

// ResponseWriter writes a Resp as the HTTP response, including its status code.
type ResponseWriter[Resp any] interface {
	WriteResponse(http.ResponseWriter, Resp) error
}

// ResponseWriterFunc is an adapter to allow the use of ordinary functions as a [ResponseWriter].
type ResponseWriterFunc[Resp any] func(http.ResponseWriter, Resp) error

// WriteResponse implements the [ResponseWriter] interface.
func (f ResponseWriterFunc[Resp]) WriteResponse(w http.ResponseWriter, resp Resp) error {
	return f(w, resp)
}

// ReadError is returned by [JSONReader] when the body can not be decoded.
type ReadError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e ReadError) Error() string {
	return fmt.Sprintf("failed to read request: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ReadError) Unwrap() error {
	return e.Cause
}

// JSONReader decodes the request body as JSON.
func JSONReader[Req any]() RequestReader[Req] {
	return RequestReaderFunc[Req](func(r *http.Request) (Req, error) {
		var req Req
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return req, ReadError{Cause: err}
		}
		err = json.Unmarshal(b, &req)
		if err != nil {
			return req, ReadError{Cause: err}
		}
		return req, nil
	})
}

// JSONWriter encodes the response as JSON with a 200 status code.
func JSONWriter[Resp any]() ResponseWriter[Resp] {
	return ResponseWriterFunc[Resp](func(w http.ResponseWriter, resp Resp) error {
		b, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, err = io.Copy(w, bytes.NewReader(b))
		return err
	})
}

// MissingCodecError is returned when no reader or writer is registered
// for a request or response type.
type MissingCodecError struct {
	Kind string
	Type reflect.Type
}

// Error implements the [builtin.error] interface.
func (e MissingCodecError) Error() string {
	return fmt.Sprintf("no %s registered for type: %s", e.Kind, e.Type)
}

// Codecs holds the request readers and response writers available to
// typed request/response functions. The zero value is ready to use.
type Codecs struct {
	readers typecache.Cache
	writers typecache.Cache
}

// NewCodecs returns an empty [Codecs].
func NewCodecs() *Codecs {
	return &Codecs{}
}

// RegisterReader configures the reader used for requests of type Req.
func RegisterReader[Req any](c *Codecs, r RequestReader[Req]) {
	c.readers.Store(typeOf[Req](), r)
}

// RegisterWriter configures the writer used for responses of type Resp.
func RegisterWriter[Resp any](c *Codecs, w ResponseWriter[Resp]) {
	c.writers.Store(typeOf[Resp](), w)
}

// ReaderFor returns the reader registered for Req.
func ReaderFor[Req any](c *Codecs) (RequestReader[Req], error) {
	t := typeOf[Req]()
	v, ok := c.readers.Load(t)
	if !ok {
		return nil, MissingCodecError{Kind: "request reader", Type: t}
	}
	return v.(RequestReader[Req]), nil
}

// WriterFor returns the writer registered for Resp.
func WriterFor[Resp any](c *Codecs) (ResponseWriter[Resp], error) {
	t := typeOf[Resp]()
	v, ok := c.writers.Load(t)
	if !ok {
		return nil, MissingCodecError{Kind: "response writer", Type: t}
	}
	return v.(ResponseWriter[Resp]), nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
