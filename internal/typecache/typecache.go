// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package typecache provides a concurrency safe cache keyed by [reflect.Type].
package typecache

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache maps types to lazily created values. The zero value is ready to use.
type Cache struct {
	group  singleflight.Group
	values sync.Map
}

// Load returns the value cached for t, if any.
func (c *Cache) Load(t reflect.Type) (any, bool) {
	return c.values.Load(t)
}

// Store sets the value cached for t, replacing any existing value.
func (c *Cache) Store(t reflect.Type, v any) {
	c.values.Store(t, v)
}

// Delete removes any value cached for t.
func (c *Cache) Delete(t reflect.Type) {
	c.values.Delete(t)
}

// GetOrCreate returns the value cached for t or calls create to build it.
// Concurrent callers for the same type share a single call to create and
// all observe the same value. Errors are returned to every waiting caller
// but are not cached.
func (c *Cache) GetOrCreate(t reflect.Type, create func() (any, error)) (any, error) {
	if v, ok := c.values.Load(t); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key(t), func() (any, error) {
		if v, ok := c.values.Load(t); ok {
			return v, nil
		}
		v, err := create()
		if err != nil {
			return nil, err
		}
		actual, _ := c.values.LoadOrStore(t, v)
		return actual, nil
	})
	return v, err
}

// reflect.Type values are unique per type so the pointer disambiguates
// types which share a printed name.
func key(t reflect.Type) string {
	return fmt.Sprintf("%s@%p", t, t)
}
