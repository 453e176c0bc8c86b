// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package payload

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/z5labs/funcframework/formatter"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(t *testing.T, data string) event.Event {
	t.Helper()

	ev := event.New()
	ev.SetID("1")
	ev.SetSource("//example.googleapis.com/x")
	ev.SetType("example")
	require.Nil(t, ev.SetData("application/json", []byte(data)))
	return ev
}

func TestStorageObject(t *testing.T) {
	t.Run("will decode through its declared formatter", func(t *testing.T) {
		f, err := formatter.Resolve[StorageObject](formatter.NewCache())
		if !assert.Nil(t, err) {
			return
		}

		obj, err := f.Decode(newEvent(t, `{
			"bucket": "b",
			"name": "folder/file.txt",
			"size": "5000000000",
			"generation": "1588778055917163",
			"metageneration": 1,
			"timeCreated": "2020-04-23T07:38:57.230Z",
			"metadata": {"k": "v"}
		}`))
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "folder/file.txt", obj.Name) {
			return
		}
		if !assert.Equal(t, int64(5000000000), obj.Size.Int64()) {
			return
		}
		if !assert.Equal(t, int64(1588778055917163), obj.Generation.Int64()) {
			return
		}
		if !assert.Equal(t, int64(1), obj.Metageneration.Int64()) {
			return
		}
		if !assert.Equal(t, "v", obj.Metadata["k"]) {
			return
		}
		if !assert.NotNil(t, obj.TimeCreated) {
			return
		}
	})

	t.Run("will fail to decode", func(t *testing.T) {
		t.Run("if a numeric field is not numeric", func(t *testing.T) {
			_, err := formatter.JSON[StorageObject]().Decode(newEvent(t, `{"size":"big"}`))

			var nerr NotNumericError
			if !assert.True(t, errors.As(err, &nerr)) {
				return
			}
		})
	})
}

func TestMessagePublishedData(t *testing.T) {
	t.Run("will convert to the pubsub api representation", func(t *testing.T) {
		f, err := formatter.Resolve[MessagePublishedData](formatter.NewCache())
		if !assert.Nil(t, err) {
			return
		}

		data, err := f.Decode(newEvent(t, `{
			"message": {
				"data": "aGVsbG8=",
				"attributes": {"k": "v"},
				"messageId": "42",
				"publishTime": "2021-01-02T03:04:05Z"
			},
			"subscription": "projects/p/subscriptions/s"
		}`))
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "projects/p/subscriptions/s", data.Subscription) {
			return
		}

		pm := data.Message.Proto()
		if !assert.Equal(t, []byte("hello"), pm.GetData()) {
			return
		}
		if !assert.Equal(t, "42", pm.GetMessageId()) {
			return
		}
		if !assert.Equal(t, "v", pm.GetAttributes()["k"]) {
			return
		}
		if !assert.True(t, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC).Equal(pm.GetPublishTime().AsTime())) {
			return
		}
	})
}

func TestValue_UnmarshalJSON(t *testing.T) {
	t.Run("will set exactly one case", func(t *testing.T) {
		testCases := []struct {
			Name   string
			JSON   string
			Kind   Kind
			Expect any
		}{
			{Name: "null", JSON: `{"nullValue": null}`, Kind: KindNull, Expect: nil},
			{Name: "boolean", JSON: `{"booleanValue": true}`, Kind: KindBoolean, Expect: true},
			{Name: "integer", JSON: `{"integerValue": "-9000000000"}`, Kind: KindInteger, Expect: int64(-9000000000)},
			{Name: "double", JSON: `{"doubleValue": 1.5}`, Kind: KindDouble, Expect: 1.5},
			{Name: "timestamp", JSON: `{"timestampValue": "2020-01-01T00:00:00Z"}`, Kind: KindTimestamp, Expect: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
			{Name: "string", JSON: `{"stringValue": "hi"}`, Kind: KindString, Expect: "hi"},
			{Name: "bytes", JSON: `{"bytesValue": "aGVsbG8="}`, Kind: KindBytes, Expect: []byte("hello")},
			{Name: "reference", JSON: `{"referenceValue": "projects/p/databases/(default)/documents/c/d"}`, Kind: KindReference, Expect: "projects/p/databases/(default)/documents/c/d"},
			{Name: "geo point", JSON: `{"geoPointValue": {"latitude": 1.5, "longitude": -2.5}}`, Kind: KindGeoPoint, Expect: GeoPoint{Latitude: 1.5, Longitude: -2.5}},
			{
				Name:   "array",
				JSON:   `{"arrayValue": {"values": [{"stringValue": "a"}, {"arrayValue": {"values": [{"integerValue": "1"}]}}]}}`,
				Kind:   KindArray,
				Expect: []any{"a", []any{int64(1)}},
			},
			{
				Name:   "map",
				JSON:   `{"mapValue": {"fields": {"a": {"mapValue": {"fields": {"b": {"booleanValue": false}}}}}}}`,
				Kind:   KindMap,
				Expect: map[string]any{"a": map[string]any{"b": false}},
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				var v Value
				err := json.Unmarshal([]byte(testCase.JSON), &v)
				if !assert.Nil(t, err) {
					return
				}
				if !assert.Equal(t, testCase.Kind, v.Kind) {
					return
				}
				if !assert.Equal(t, testCase.Expect, v.Interface()) {
					return
				}
			})
		}
	})

	t.Run("will return a ValueError", func(t *testing.T) {
		testCases := []struct {
			Name string
			JSON string
		}{
			{Name: "if there are two cases", JSON: `{"stringValue": "a", "booleanValue": true}`},
			{Name: "if there are no cases", JSON: `{}`},
			{Name: "if the case is unknown", JSON: `{"fooValue": 1}`},
			{Name: "if the integer is not numeric", JSON: `{"integerValue": "one"}`},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				var v Value
				err := json.Unmarshal([]byte(testCase.JSON), &v)

				var verr ValueError
				if !assert.True(t, errors.As(err, &verr)) {
					return
				}
			})
		}
	})
}

func TestFirestoreEvent(t *testing.T) {
	t.Run("will decode documents into plain values", func(t *testing.T) {
		f, err := formatter.Resolve[FirestoreEvent](formatter.NewCache())
		if !assert.Nil(t, err) {
			return
		}

		ev, err := f.Decode(newEvent(t, `{
			"oldValue": {"name": "projects/p/databases/(default)/documents/c/X", "fields": {"n": {"integerValue": "1"}}},
			"value": {
				"name": "projects/p/databases/(default)/documents/c/X",
				"fields": {"n": {"integerValue": "2"}, "tags": {"arrayValue": {"values": [{"stringValue": "t"}]}}},
				"updateTime": "2020-01-01T00:00:00Z"
			},
			"updateMask": {"fieldPaths": ["n"]},
			"wildcards": {"doc": "X"}
		}`))
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, map[string]any{"n": int64(1)}, ev.OldValue.Data()) {
			return
		}
		if !assert.Equal(t, map[string]any{"n": int64(2), "tags": []any{"t"}}, ev.Value.Data()) {
			return
		}
		if !assert.Equal(t, []string{"n"}, ev.UpdateMask.FieldPaths) {
			return
		}
		if !assert.Equal(t, "X", ev.Wildcards["doc"]) {
			return
		}
	})
}
