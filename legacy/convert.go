// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package legacy converts the historical event wire formats of the
// serverless event platform into canonical CloudEvents.
package legacy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/z5labs/funcframework/cloudevent"

	"github.com/cloudevents/sdk-go/v2/event"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
)

// IsCloudEvent reports whether r carries a native CloudEvent, either in
// structured/batched mode or in binary mode.
func IsCloudEvent(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), cloudevent.MediaTypeCloudEventsPrefix) {
		return true
	}
	return r.Header.Get("ce-id") != "" &&
		r.Header.Get("ce-source") != "" &&
		r.Header.Get("ce-type") != ""
}

// FromRequest converts r into a valid canonical event. Native CloudEvents
// are parsed with the CloudEvents SDK; everything else is treated as a
// legacy background event.
func FromRequest(r *http.Request) (event.Event, error) {
	if IsCloudEvent(r) {
		return FromCloudEventRequest(r)
	}

	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != cloudevent.MediaTypeJSON {
		return event.Event{}, conversionErrorf(nil, "unsupported content type for legacy event: %q", contentType)
	}

	b, err := io.ReadAll(r.Body)
	if err != nil {
		return event.Event{}, conversionErrorf(err, "failed to read request body")
	}

	env, err := ParseEnvelope(b)
	if err != nil {
		return event.Event{}, err
	}
	return FromEnvelope(env)
}

// FromCloudEventRequest parses a binary, structured or batched mode
// CloudEvents request. A batch must contain exactly one event.
func FromCloudEventRequest(r *http.Request) (event.Event, error) {
	var ev event.Event
	if strings.HasPrefix(r.Header.Get("Content-Type"), cloudevent.MediaTypeCloudEventsBatchJSON) {
		evs, err := cehttp.NewEventsFromHTTPRequest(r)
		if err != nil {
			return event.Event{}, conversionErrorf(err, "malformed cloudevents batch")
		}
		if len(evs) != 1 {
			return event.Event{}, conversionErrorf(nil, "cloudevents batch must contain exactly one event, got %d", len(evs))
		}
		ev = evs[0]
	} else {
		e, err := cehttp.NewEventFromHTTPRequest(r)
		if err != nil {
			return event.Event{}, conversionErrorf(err, "malformed cloudevent")
		}
		ev = *e
	}

	err := cloudevent.Validate(ev)
	if err != nil {
		return event.Event{}, conversionErrorf(err, "invalid cloudevent")
	}
	return ev, nil
}

// FromEnvelope converts a parsed legacy event into a canonical event.
func FromEnvelope(env *Envelope) (event.Event, error) {
	if env.isPubSubPush() {
		return fromPubSubPush(env)
	}

	env.Normalize()
	c := env.Context
	if !hasValue(env.Data) {
		return event.Event{}, conversionErrorf(nil, "legacy event is missing data")
	}
	if c.EventType == "" {
		return event.Event{}, conversionErrorf(nil, "legacy event is missing event type")
	}
	et, ok := eventTypes[c.EventType]
	if !ok {
		return event.Event{}, conversionErrorf(nil, "unknown legacy event type: %q", c.EventType)
	}
	if c.Resource == nil {
		return event.Event{}, conversionErrorf(nil, "legacy event is missing resource")
	}

	data, err := decodeObject(env.Data)
	if err != nil {
		return event.Event{}, err
	}

	res := *c.Resource
	if res.Service == "" && res.Name != "" && res.Type == "" {
		res.Service = et.service
	}
	if isFirestore(et.canonical) {
		// Firestore reports wildcard values out of band and its resource
		// service is not reliable, so both are fixed up here.
		if len(env.Params) > 0 {
			data["wildcards"] = env.Params
		}
		res.Service = firestoreService
	}
	c.Resource = &res
	if res.Service == "" {
		return event.Event{}, conversionErrorf(nil, "legacy event resource is missing service")
	}
	if res.Name == "" {
		return event.Event{}, conversionErrorf(nil, "legacy event resource is missing name")
	}

	if isPubSub(et.canonical) {
		setIfAbsent(data, "messageId", c.EventID)
		setIfAbsent(data, "publishTime", c.Timestamp)
		data = map[string]any{"message": data}
	}

	ev := event.New()
	ev.SetID(c.EventID)
	ev.SetSource("//" + res.Service + "/" + res.Name)
	ev.SetType(et.canonical)
	if isStorage(et.canonical) {
		if _, object, found := strings.Cut(res.Name, "/objects/"); found {
			ev.SetSubject("objects/" + object)
		}
	}
	if c.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, c.Timestamp)
		if err != nil {
			return event.Event{}, conversionErrorf(err, "legacy event timestamp is not RFC 3339: %q", c.Timestamp)
		}
		ev.SetTime(ts)
	}

	err = setJSONData(&ev, data)
	if err != nil {
		return event.Event{}, err
	}

	err = cloudevent.Validate(ev)
	if err != nil {
		return event.Event{}, conversionErrorf(err, "converted legacy event is invalid")
	}
	return ev, nil
}

type pushMessage struct {
	MessageID      string `json:"messageId"`
	MessageIDSnake string `json:"message_id"`
	PublishTime    string `json:"publishTime"`
	PublishSnake   string `json:"publish_time"`
}

func fromPubSubPush(env *Envelope) (event.Event, error) {
	if env.Subscription == "" {
		return event.Event{}, conversionErrorf(nil, "pubsub push request is missing subscription")
	}

	var msg pushMessage
	err := json.Unmarshal(env.Message, &msg)
	if err != nil {
		return event.Event{}, conversionErrorf(err, "pubsub push message is malformed")
	}
	id := firstNonEmpty(msg.MessageID, msg.MessageIDSnake)
	publishTime := firstNonEmpty(msg.PublishTime, msg.PublishSnake)
	if id == "" {
		return event.Event{}, conversionErrorf(nil, "pubsub push message is missing messageId")
	}

	ev := event.New()
	ev.SetID(id)
	ev.SetSource("//" + pubsubService + "/" + env.Subscription)
	ev.SetType(PubSubMessagePublished)
	if publishTime != "" {
		ts, err := time.Parse(time.RFC3339, publishTime)
		if err != nil {
			return event.Event{}, conversionErrorf(err, "pubsub push message publish time is not RFC 3339: %q", publishTime)
		}
		ev.SetTime(ts)
	}

	err = setJSONData(&ev, map[string]any{
		"message":      env.Message,
		"subscription": env.Subscription,
	})
	if err != nil {
		return event.Event{}, err
	}
	return ev, nil
}

var errNotObject = errors.New("expected a json object")

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	err := dec.Decode(&v)
	if err != nil {
		return nil, conversionErrorf(err, "legacy event data is malformed")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, conversionErrorf(errNotObject, "legacy event data must be an object")
	}
	return m, nil
}

func setJSONData(ev *event.Event, data map[string]any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return conversionErrorf(err, "failed to serialize event data")
	}
	err = ev.SetData(cloudevent.MediaTypeJSON, b)
	if err != nil {
		return conversionErrorf(err, "failed to set event data")
	}
	return nil
}

func setIfAbsent(m map[string]any, key, value string) {
	if value == "" {
		return
	}
	if _, ok := m[key]; ok {
		return
	}
	m[key] = value
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
