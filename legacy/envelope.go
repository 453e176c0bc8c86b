// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package legacy

import (
	"bytes"
	"encoding/json"
)

// Resource identifies the entity an event occurred on.
//
// Older event producers send the resource as a bare string. In that case
// only Name is populated and the service is inferred from the event type.
type Resource struct {
	Service string `json:"service,omitempty"`
	Name    string `json:"name,omitempty"`
	Type    string `json:"type,omitempty"`
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (r *Resource) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.Name)
	}

	type resource Resource
	var res resource
	err := json.Unmarshal(b, &res)
	if err != nil {
		return err
	}
	*r = Resource(res)
	return nil
}

// Context holds the metadata of a legacy background event.
type Context struct {
	EventID   string    `json:"eventId,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	EventType string    `json:"eventType,omitempty"`
	Resource  *Resource `json:"resource,omitempty"`
}

// Envelope is the JSON body of a legacy background event request.
//
// Besides the nested context, producers may send the context fields at
// the top level of the body. [Envelope.Normalize] folds them into Context.
type Envelope struct {
	Context *Context        `json:"context,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	EventID   string            `json:"eventId,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	EventType string            `json:"eventType,omitempty"`
	Resource  *Resource         `json:"resource,omitempty"`
	Params    map[string]string `json:"params,omitempty"`

	// Set when the body is a raw Pub/Sub push request.
	Message      json.RawMessage `json:"message,omitempty"`
	Subscription string          `json:"subscription,omitempty"`
}

// ParseEnvelope unmarshals a legacy event request body.
func ParseEnvelope(b []byte) (*Envelope, error) {
	var env Envelope
	err := json.Unmarshal(b, &env)
	if err != nil {
		return nil, conversionErrorf(err, "request body is not a valid legacy event")
	}
	return &env, nil
}

// Normalize merges the top-level convenience fields into the context.
// A context value always wins; a top-level value is only used when the
// corresponding context value is absent.
func (env *Envelope) Normalize() {
	if env.Context == nil {
		env.Context = &Context{}
	}
	c := env.Context
	if c.EventID == "" {
		c.EventID = env.EventID
	}
	if c.Timestamp == "" {
		c.Timestamp = env.Timestamp
	}
	if c.EventType == "" {
		c.EventType = env.EventType
	}
	if c.Resource == nil {
		c.Resource = env.Resource
	}
}

func (env *Envelope) isPubSubPush() bool {
	return env.Context == nil &&
		env.EventType == "" &&
		len(env.Message) > 0 &&
		!hasValue(env.Data)
}

func hasValue(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
