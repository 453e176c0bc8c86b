// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cloudevent defines the canonical event representation every
// inbound wire format is normalized into before a function is invoked.
//
// The canonical event is the CloudEvents SDK [event.Event]. A canonical
// event is only ever handed to user code once it is [Valid].
package cloudevent

import (
	"fmt"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"
)

// Media types recognized while routing inbound requests.
const (
	MediaTypeJSON                 = "application/json"
	MediaTypeCloudEventsPrefix    = "application/cloudevents"
	MediaTypeCloudEventsJSON      = "application/cloudevents+json"
	MediaTypeCloudEventsBatchJSON = "application/cloudevents-batch+json"
)

// Valid reports whether the id, source and type attributes of e are all present.
func Valid(e event.Event) bool {
	return e.ID() != "" && e.Source() != "" && e.Type() != ""
}

// ValidationError occurs when a parsed event is missing required attributes.
type ValidationError struct {
	Missing []string
}

// Error implements the [builtin.error] interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("cloudevent is missing required attribute(s): %s", strings.Join(e.Missing, ", "))
}

// Validate returns a [ValidationError] naming every required attribute
// which is absent from e.
func Validate(e event.Event) error {
	var missing []string
	if e.ID() == "" {
		missing = append(missing, "id")
	}
	if e.Source() == "" {
		missing = append(missing, "source")
	}
	if e.Type() == "" {
		missing = append(missing, "type")
	}
	if len(missing) == 0 {
		return nil
	}
	return ValidationError{Missing: missing}
}

// Typed pairs a canonical event with its decoded payload.
type Typed[T any] struct {
	Event event.Event
	Data  T
}

// Decode turns ev into a [Typed] event using decode for its payload.
func Decode[T any](ev event.Event, decode func(event.Event) (T, error)) (Typed[T], error) {
	data, err := decode(ev)
	if err != nil {
		return Typed[T]{}, err
	}
	return Typed[T]{Event: ev, Data: data}, nil
}
