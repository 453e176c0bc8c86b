// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type structuredOptions struct {
	level    slog.Leveler
	category string
}

// StructuredOption configures a [StructuredHandler].
type StructuredOption func(*structuredOptions)

// Level sets the minimum level which is written.
func Level(l slog.Leveler) StructuredOption {
	return func(so *structuredOptions) {
		so.level = l
	}
}

// DefaultCategory sets the category used when a record does not name one.
func DefaultCategory(name string) StructuredOption {
	return func(so *structuredOptions) {
		so.category = name
	}
}

// StructuredHandler writes one JSON object per record with the keys
// message, category, severity and, when present, exception,
// format_parameters and scopes.
//
// Record attributes are written under format_parameters. An error
// attribute is written as exception wherever it is nested. Attributes
// added with WithAttrs are written as one entry of scopes per call.
type StructuredHandler struct {
	mu  *sync.Mutex
	w   io.Writer
	enc zapcore.Encoder

	level    slog.Leveler
	category string
	groups   []string
	scopes   [][]slog.Attr
}

// NewStructuredHandler returns a [StructuredHandler] writing to w.
func NewStructuredHandler(w io.Writer, opts ...StructuredOption) *StructuredHandler {
	so := &structuredOptions{
		level:    slog.LevelInfo,
		category: "funcframework",
	}
	for _, opt := range opts {
		opt(so)
	}

	return &StructuredHandler{
		mu: &sync.Mutex{},
		w:  w,
		enc: zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			MessageKey:     "message",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		}),
		level:    so.level,
		category: so.category,
	}
}

// Enabled implements the slog.Handler interface.
func (h *StructuredHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

// Handle implements the slog.Handler interface.
func (h *StructuredHandler) Handle(_ context.Context, r slog.Record) error {
	category := h.category
	var exception string
	params := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		switch {
		case a.Key == CategoryKey && len(h.groups) == 0:
			category = a.Value.String()
		case a.Key == ErrorKey:
			exception = errorString(a.Value)
		default:
			a, ok := liftError(a, &exception)
			if ok {
				params = append(params, a)
			}
		}
		return true
	})

	fields := []zapcore.Field{
		zap.String("category", category),
		zap.String("severity", Severity(r.Level)),
	}
	if exception != "" {
		fields = append(fields, zap.String("exception", exception))
	}
	if len(params) > 0 {
		fields = append(fields, zap.Object("format_parameters", attrObject(nest(h.groups, params))))
	}
	if len(h.scopes) > 0 {
		fields = append(fields, zap.Array("scopes", scopeArray(h.scopes)))
	}

	buf, err := h.enc.EncodeEntry(zapcore.Entry{Message: r.Message, Time: r.Time}, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(buf.Bytes())
	return err
}

// liftError moves an error attribute nested in a group value into
// exception. It reports false when nothing is left of a.
func liftError(a slog.Attr, exception *string) (slog.Attr, bool) {
	if a.Value.Kind() != slog.KindGroup {
		return a, true
	}
	group := a.Value.Group()
	kept := make([]slog.Attr, 0, len(group))
	for _, ga := range group {
		if ga.Key == ErrorKey {
			*exception = errorString(ga.Value)
			continue
		}
		ga, ok := liftError(ga, exception)
		if ok {
			kept = append(kept, ga)
		}
	}
	if len(kept) == 0 {
		return slog.Attr{}, false
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(kept...)}, true
}

// WithAttrs implements the slog.Handler interface.
func (h *StructuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	scope := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == CategoryKey && len(h.groups) == 0 {
			h2.category = a.Value.String()
			continue
		}
		scope = append(scope, a)
	}
	if len(scope) > 0 {
		h2.scopes = append(h2.scopes, nest(h.groups, scope))
	}
	return h2
}

// WithGroup implements the slog.Handler interface.
func (h *StructuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *StructuredHandler) clone() *StructuredHandler {
	h2 := *h
	h2.groups = append([]string(nil), h.groups...)
	h2.scopes = append([][]slog.Attr(nil), h.scopes...)
	return &h2
}

func nest(groups []string, attrs []slog.Attr) []slog.Attr {
	for i := len(groups) - 1; i >= 0; i-- {
		attrs = []slog.Attr{{Key: groups[i], Value: slog.GroupValue(attrs...)}}
	}
	return attrs
}

func errorString(v slog.Value) string {
	v = v.Resolve()
	if err, ok := v.Any().(error); ok && err != nil {
		return err.Error()
	}
	return v.String()
}

type attrObject []slog.Attr

func (attrs attrObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, a := range attrs {
		addAttr(enc, a)
	}
	return nil
}

func addAttr(enc zapcore.ObjectEncoder, a slog.Attr) {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		enc.AddString(a.Key, v.String())
	case slog.KindInt64:
		enc.AddInt64(a.Key, v.Int64())
	case slog.KindUint64:
		enc.AddUint64(a.Key, v.Uint64())
	case slog.KindFloat64:
		enc.AddFloat64(a.Key, v.Float64())
	case slog.KindBool:
		enc.AddBool(a.Key, v.Bool())
	case slog.KindDuration:
		enc.AddDuration(a.Key, v.Duration())
	case slog.KindTime:
		enc.AddTime(a.Key, v.Time())
	case slog.KindGroup:
		group := v.Group()
		if len(group) == 0 {
			return
		}
		if a.Key == "" {
			for _, ga := range group {
				addAttr(enc, ga)
			}
			return
		}
		enc.AddObject(a.Key, attrObject(group))
	default:
		if a.Key == "" {
			return
		}
		if err, ok := v.Any().(error); ok {
			enc.AddString(a.Key, err.Error())
			return
		}
		err := enc.AddReflected(a.Key, v.Any())
		if err != nil {
			enc.AddString(a.Key, fmt.Sprint(v.Any()))
		}
	}
}

type scopeArray [][]slog.Attr

func (scopes scopeArray) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, scope := range scopes {
		err := enc.AppendObject(attrObject(scope))
		if err != nil {
			return err
		}
	}
	return nil
}
