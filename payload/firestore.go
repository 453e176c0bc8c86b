// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/z5labs/funcframework/formatter"
)

// Kind identifies which case of a Firestore [Value] is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindDouble
	KindTimestamp
	KindString
	KindBytes
	KindReference
	KindGeoPoint
	KindArray
	KindMap
)

var kindNames = map[Kind]string{
	KindNull:      "nullValue",
	KindBoolean:   "booleanValue",
	KindInteger:   "integerValue",
	KindDouble:    "doubleValue",
	KindTimestamp: "timestampValue",
	KindString:    "stringValue",
	KindBytes:     "bytesValue",
	KindReference: "referenceValue",
	KindGeoPoint:  "geoPointValue",
	KindArray:     "arrayValue",
	KindMap:       "mapValue",
}

// String implements the [fmt.Stringer] interface.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Value is a single Firestore field value. Exactly one field matching
// Kind is populated. Arrays and maps hold plain Go values, the same ones
// returned by [Value.Interface], rather than nested Values.
type Value struct {
	Kind      Kind
	Boolean   bool
	Integer   int64
	Double    float64
	Timestamp time.Time
	String    string
	Bytes     []byte
	Reference string
	GeoPoint  GeoPoint
	Array     []any
	Map       map[string]any
}

// ValueError is returned when a JSON object is not a valid Firestore value.
type ValueError struct {
	Reason string
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e ValueError) Error() string {
	if e.Cause == nil {
		return "invalid firestore value: " + e.Reason
	}
	return fmt.Sprintf("invalid firestore value: %s: %s", e.Reason, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ValueError) Unwrap() error {
	return e.Cause
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (v *Value) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	err := json.Unmarshal(b, &m)
	if err != nil {
		return ValueError{Reason: "expected an object", Cause: err}
	}
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return ValueError{Reason: fmt.Sprintf("expected exactly one value case, got [%s]", strings.Join(keys, ", "))}
	}

	var val Value
	for name, raw := range m {
		err = val.decode(name, raw)
		if err != nil {
			return err
		}
	}
	*v = val
	return nil
}

func (v *Value) decode(name string, raw json.RawMessage) error {
	var err error
	switch name {
	case "nullValue":
		v.Kind = KindNull
	case "booleanValue":
		v.Kind = KindBoolean
		err = json.Unmarshal(raw, &v.Boolean)
	case "integerValue":
		v.Kind = KindInteger
		var n Int64String
		err = json.Unmarshal(raw, &n)
		v.Integer = n.Int64()
	case "doubleValue":
		v.Kind = KindDouble
		err = json.Unmarshal(raw, &v.Double)
	case "timestampValue":
		v.Kind = KindTimestamp
		err = json.Unmarshal(raw, &v.Timestamp)
	case "stringValue":
		v.Kind = KindString
		err = json.Unmarshal(raw, &v.String)
	case "bytesValue":
		v.Kind = KindBytes
		var s string
		err = json.Unmarshal(raw, &s)
		if err == nil {
			v.Bytes, err = base64.StdEncoding.DecodeString(s)
		}
	case "referenceValue":
		v.Kind = KindReference
		err = json.Unmarshal(raw, &v.Reference)
	case "geoPointValue":
		v.Kind = KindGeoPoint
		err = json.Unmarshal(raw, &v.GeoPoint)
	case "arrayValue":
		v.Kind = KindArray
		var arr struct {
			Values []Value `json:"values"`
		}
		err = json.Unmarshal(raw, &arr)
		if err == nil {
			v.Array = make([]any, len(arr.Values))
			for i, item := range arr.Values {
				v.Array[i] = item.Interface()
			}
		}
	case "mapValue":
		v.Kind = KindMap
		var mv struct {
			Fields map[string]Value `json:"fields"`
		}
		err = json.Unmarshal(raw, &mv)
		if err == nil {
			v.Map = plainFields(mv.Fields)
		}
	default:
		return ValueError{Reason: fmt.Sprintf("unknown value case: %q", name)}
	}
	if err != nil {
		return ValueError{Reason: "malformed " + name, Cause: err}
	}
	return nil
}

// Interface returns the plain Go value held by v.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBoolean:
		return v.Boolean
	case KindInteger:
		return v.Integer
	case KindDouble:
		return v.Double
	case KindTimestamp:
		return v.Timestamp
	case KindString:
		return v.String
	case KindBytes:
		return v.Bytes
	case KindReference:
		return v.Reference
	case KindGeoPoint:
		return v.GeoPoint
	case KindArray:
		return v.Array
	case KindMap:
		return v.Map
	default:
		return nil
	}
}

func plainFields(fields map[string]Value) map[string]any {
	m := make(map[string]any, len(fields))
	for k, fv := range fields {
		m[k] = fv.Interface()
	}
	return m
}

// Document is a Firestore document snapshot.
type Document struct {
	Name       string           `json:"name,omitempty"`
	Fields     map[string]Value `json:"fields,omitempty"`
	CreateTime *time.Time       `json:"createTime,omitempty"`
	UpdateTime *time.Time       `json:"updateTime,omitempty"`
}

// Data returns the document fields as plain Go values.
func (d Document) Data() map[string]any {
	return plainFields(d.Fields)
}

// UpdateMask lists the document fields changed by an update.
type UpdateMask struct {
	FieldPaths []string `json:"fieldPaths,omitempty"`
}

// FirestoreEvent is the payload of Firestore document events.
type FirestoreEvent struct {
	OldValue   *Document         `json:"oldValue,omitempty"`
	Value      *Document         `json:"value,omitempty"`
	UpdateMask *UpdateMask       `json:"updateMask,omitempty"`
	Wildcards  map[string]string `json:"wildcards,omitempty"`
}

// CloudEventFormatter implements the [formatter.Annotated] interface.
func (FirestoreEvent) CloudEventFormatter() formatter.Formatter[FirestoreEvent] {
	return formatter.JSON[FirestoreEvent]()
}
