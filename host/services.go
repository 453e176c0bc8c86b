// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package host

import (
	"context"
	"reflect"
	"sync"

	"github.com/z5labs/funcframework/adapter"
)

// Services holds the dependencies shared by every request: the adapter
// services built by the host and any singletons registered by startups.
type Services struct {
	Adapter adapter.Services

	mu         sync.RWMutex
	singletons map[reflect.Type]any
}

func newServices(svcs adapter.Services) *Services {
	return &Services{
		Adapter:    svcs,
		singletons: make(map[reflect.Type]any),
	}
}

// Provide registers v as the singleton of type T, replacing any earlier one.
func Provide[T any](s *Services, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singletons[reflect.TypeOf((*T)(nil)).Elem()] = v
}

// Lookup returns the singleton of type T registered with [Provide].
func Lookup[T any](s *Services) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.singletons[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

type servicesKey struct{}

// NewServicesContext returns a copy of parent carrying svcs.
func NewServicesContext(parent context.Context, svcs *Services) context.Context {
	return context.WithValue(parent, servicesKey{}, svcs)
}

// ServicesFromContext returns the [Services] a function constructor was called with.
func ServicesFromContext(ctx context.Context) (*Services, bool) {
	svcs, ok := ctx.Value(servicesKey{}).(*Services)
	return svcs, ok
}
