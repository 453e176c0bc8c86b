// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package publish

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/funcframework/logging"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
)

type circuitOptions struct {
	name         string
	logHandler   slog.Handler
	maxRequests  uint32
	interval     time.Duration
	timeout      time.Duration
	tripCount    uint32
	isSuccessful func(error) bool
	statusCodes  []int
}

// CircuitOption configures the circuit breaker of a sink client.
type CircuitOption func(*circuitOptions)

// CircuitName is the name of the circuit breaker. It is added to every
// log line about state changes.
func CircuitName(name string) CircuitOption {
	return func(co *circuitOptions) {
		co.name = name
	}
}

// CircuitLogHandler configures where circuit state changes are logged.
func CircuitLogHandler(h slog.Handler) CircuitOption {
	return func(co *circuitOptions) {
		co.logHandler = h
	}
}

// CircuitMaxRequests is the maximum number of requests allowed to pass through
// when the circuit is half-open.
func CircuitMaxRequests(maxRequests uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.maxRequests = maxRequests
	}
}

// CircuitInterval is the cyclic period of the closed state after which
// the failure counts are cleared. If 0, counts are never cleared while closed.
func CircuitInterval(interval time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.interval = interval
	}
}

// CircuitTimeout is the period of the open state, after which the circuit
// becomes half-open.
func CircuitTimeout(timeout time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.timeout = timeout
	}
}

// CircuitTripCount determines the number of consecutive failures required to trip the circuit.
func CircuitTripCount(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.tripCount = n
	}
}

// CircuitErrorOnStatusCode registers HTTP response status codes which
// should be counted as a failure by the circuit breaker.
//
// Default: 500, 502, 503, 504
func CircuitErrorOnStatusCode(n int) CircuitOption {
	return func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, n)
	}
}

// StatusCodeError is returned when a sink responds with a status code
// which is counted as a failure.
type StatusCodeError struct {
	StatusCode int
}

// Error implements the [builtin.error] interface.
func (e StatusCodeError) Error() string {
	return fmt.Sprintf("received unexpected http status code: %d", e.StatusCode)
}

// NotConnError reports whether err is not a network connection error.
func NotConnError(err error) bool {
	var addrErr *net.AddrError
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &addrErr), errors.As(err, &dnsErr), errors.As(err, &opErr):
		return false
	default:
		return true
	}
}

// NotStatusCodeError reports whether err is not a [StatusCodeError].
func NotStatusCodeError(err error) bool {
	var sce StatusCodeError
	return !errors.As(err, &sce)
}

func composeCircuitErrorCheckers(fs ...func(error) bool) func(error) bool {
	return func(err error) bool {
		for _, f := range fs {
			ok := f(err)
			if ok {
				continue
			}
			return false
		}
		return true
	}
}

// CountCircuitErrorIf overrides which errors are counted as successes.
func CountCircuitErrorIf(f func(error) bool) CircuitOption {
	return func(co *circuitOptions) {
		co.isSuccessful = f
	}
}

// RoundTripperOption decorates a [http.RoundTripper].
type RoundTripperOption func(http.RoundTripper) http.RoundTripper

// CircuitBreaker wraps a [http.RoundTripper] with a circuit breaker.
func CircuitBreaker(opts ...CircuitOption) RoundTripperOption {
	return func(rt http.RoundTripper) http.RoundTripper {
		co := &circuitOptions{
			logHandler:  logging.NoopHandler{},
			tripCount:   5,
			timeout:     60 * time.Second,
			maxRequests: 1,
			isSuccessful: composeCircuitErrorCheckers(
				NotStatusCodeError,
				NotConnError,
			),
		}
		for _, opt := range opts {
			opt(co)
		}

		if len(co.statusCodes) == 0 {
			co.statusCodes = append(
				co.statusCodes,
				http.StatusInternalServerError, // 500
				http.StatusBadGateway,          // 502
				http.StatusServiceUnavailable,  // 503
				http.StatusGatewayTimeout,      // 504
			)
		}
		codes := map[int]struct{}{}
		for _, code := range co.statusCodes {
			codes[code] = struct{}{}
		}

		log := logging.New(co.logHandler).With(slog.String("circuit", co.name))

		return &circuitRoundTripper{
			RoundTripper: rt,
			cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        co.name,
				MaxRequests: co.maxRequests,
				Interval:    co.interval,
				Timeout:     co.timeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= co.tripCount
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					switch to {
					case gobreaker.StateOpen:
						log.Error("circuit has been opened")
					case gobreaker.StateHalfOpen:
						log.Warn("circuit is now half open and letting some requests through", slog.Uint64("max_requests_allowed_through", uint64(co.maxRequests)))
					case gobreaker.StateClosed:
						log.Info("circuit has been closed")
					}
				},
				IsSuccessful: co.isSuccessful,
			}),
			isFailure: func(n int) bool {
				_, ok := codes[n]
				return ok
			},
		}
	}
}

// RoundTripperWith applies opts to rt in order.
func RoundTripperWith(rt http.RoundTripper, opts ...RoundTripperOption) http.RoundTripper {
	for _, opt := range opts {
		rt = opt(rt)
	}
	return rt
}

type retryOptions struct {
	logHandler slog.Handler
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

// RetryOption configures request retries.
type RetryOption func(*retryOptions)

// MinWaitDuration is the minimum time to wait between attempts.
func MinWaitDuration(min time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMin = min
	}
}

// MaxWaitDuration is the maximum time to wait between attempts.
func MaxWaitDuration(max time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMax = max
	}
}

// MaxRetries is the maximum number of retries after the first attempt.
func MaxRetries(n int) RetryOption {
	return func(ro *retryOptions) {
		ro.maxRetries = n
	}
}

// RetryLogHandler configures where request attempts are logged.
func RetryLogHandler(h slog.Handler) RetryOption {
	return func(ro *retryOptions) {
		ro.logHandler = h
	}
}

// RetryRequests adds request retry logic to an http.Client.
func RetryRequests(opts ...RetryOption) ClientOption {
	return func(co *clientOptions) {
		ro := &retryOptions{
			logHandler: logging.NoopHandler{},
			waitMin:    100 * time.Millisecond,
			waitMax:    5 * time.Second,
			maxRetries: 2,
		}
		for _, opt := range opts {
			opt(ro)
		}
		co.retryOptions = ro
	}
}

type clientOptions struct {
	timeout      time.Duration
	transport    http.RoundTripper
	retryOptions *retryOptions
}

// ClientOption configures the client built by [NewClient].
type ClientOption func(*clientOptions)

// ClientTimeout limits the total time spent on a request. When retries are
// enabled the limit covers every attempt and the waits between them.
func ClientTimeout(timeout time.Duration) ClientOption {
	return func(co *clientOptions) {
		co.timeout = timeout
	}
}

// WithTransport sets the underlying [http.RoundTripper].
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(co *clientOptions) {
		co.transport = transport
	}
}

// NewClient builds an [http.Client], optionally retrying failed requests.
func NewClient(opts ...ClientOption) *http.Client {
	co := &clientOptions{
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(co)
	}
	c := &http.Client{
		Transport: co.transport,
	}
	if co.retryOptions == nil {
		c.Timeout = co.timeout
		return c
	}

	log := logging.New(co.retryOptions.logHandler)
	rc := retryablehttp.Client{
		HTTPClient:   c,
		Logger:       nil,
		RetryWaitMin: co.retryOptions.waitMin,
		RetryWaitMax: co.retryOptions.waitMax,
		RetryMax:     co.retryOptions.maxRetries,
		RequestLogHook: func(l retryablehttp.Logger, req *http.Request, i int) {
			log.DebugContext(req.Context(), "sending http request", slog.String("url", req.URL.String()), slog.Int("request_attempt_count", i))
		},
		ResponseLogHook: func(l retryablehttp.Logger, resp *http.Response) {
			log.DebugContext(resp.Request.Context(), "received http response", slog.String("url", resp.Request.URL.String()), slog.Int("http_status_code", resp.StatusCode))
		},
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	sc := rc.StandardClient()
	sc.Timeout = co.timeout
	return sc
}

type circuitRoundTripper struct {
	http.RoundTripper
	cb        *gobreaker.CircuitBreaker
	isFailure func(int) bool
}

// The response is still returned for failing status codes so callers
// and retry policies can inspect it.
func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := rt.cb.Execute(func() (interface{}, error) {
		var err error
		resp, err = rt.RoundTripper.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if rt.isFailure(resp.StatusCode) {
			return nil, StatusCodeError{StatusCode: resp.StatusCode}
		}
		return nil, nil
	})
	var sce StatusCodeError
	if errors.As(err, &sce) {
		return resp, nil
	}
	if err != nil {
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}
