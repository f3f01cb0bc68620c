package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field is one entry of a selection set.
type Field struct {
	Name string
	Sub  []Field
}

// Selection maps the fields of one GraphQL type onto a Go value.
//
// The decode closure is the only declaration: Select runs it once against a
// recording Fields to learn which fields to request, and Decode runs it
// against response objects. Closures must therefore not dereference the
// pointers returned by the Opt accessors or branch on field values.
type Selection[T any] struct {
	typeName string
	fields   []Field
	decode   func(*Fields) T
}

// Select builds a selection for typeName.
func Select[T any](typeName string, decode func(*Fields) T) Selection[T] {
	rec := &Fields{typeName: typeName, recording: true}
	decode(rec)
	return Selection[T]{typeName: typeName, fields: rec.recorded, decode: decode}
}

// TypeName returns the GraphQL type this selection applies to.
func (s Selection[T]) TypeName() string { return s.typeName }

// Fields returns the recorded selection set.
func (s Selection[T]) Fields() []Field { return s.fields }

// String renders the selection set, e.g. "{ id name }".
func (s Selection[T]) String() string {
	var b strings.Builder
	writeSet(&b, s.fields)
	return b.String()
}

// Decode decodes one JSON object.
func (s Selection[T]) Decode(raw json.RawMessage) (T, error) {
	var zero T
	if isNull(raw) {
		return zero, fmt.Errorf("graphql: %s: %w", s.typeName, ErrNullObject)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return zero, &FieldTypeError{Type: s.typeName, Want: "object", Err: err}
	}
	return s.decodeObject(obj)
}

// DecodeList decodes a JSON array of objects. A null element fails the decode.
func (s Selection[T]) DecodeList(raw json.RawMessage) ([]T, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("graphql: [%s]: %w", s.typeName, ErrNullObject)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &FieldTypeError{Type: s.typeName, Want: "list", Err: err}
	}
	out := make([]T, 0, len(elems))
	for _, el := range elems {
		v, err := s.Decode(el)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s Selection[T]) decodeObject(obj map[string]json.RawMessage) (T, error) {
	f := &Fields{typeName: s.typeName, obj: obj}
	v := s.decode(f)
	if f.err != nil {
		var zero T
		return zero, f.err
	}
	return v, nil
}

// Fields gives a decode closure access to one object. The first failure is
// kept and every later accessor returns a zero value.
type Fields struct {
	typeName  string
	obj       map[string]json.RawMessage
	recording bool
	recorded  []Field
	err       error
}

func (f *Fields) record(fl Field) {
	for _, existing := range f.recorded {
		if existing.Name == fl.Name {
			return
		}
	}
	f.recorded = append(f.recorded, fl)
}

func (f *Fields) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *Fields) lookup(name string, required bool) (json.RawMessage, bool) {
	if f.recording {
		f.record(Field{Name: name})
		return nil, false
	}
	if f.err != nil {
		return nil, false
	}
	raw, ok := f.obj[name]
	if !ok || isNull(raw) {
		if required {
			f.fail(&MissingFieldError{Type: f.typeName, Field: name})
		}
		return nil, false
	}
	return raw, true
}

func (f *Fields) unmarshal(name, want string, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		f.fail(&FieldTypeError{Type: f.typeName, Field: name, Want: want, Err: err})
		return false
	}
	return true
}

// ID reads a required ID. Numeric IDs are returned in their decimal form.
func (f *Fields) ID(name string) string {
	raw, ok := f.lookup(name, true)
	if !ok {
		return ""
	}
	if len(raw) > 0 && raw[0] != '"' {
		if _, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return string(raw)
		}
	}
	var s string
	f.unmarshal(name, "ID", raw, &s)
	return s
}

// String reads a required string.
func (f *Fields) String(name string) string {
	raw, ok := f.lookup(name, true)
	if !ok {
		return ""
	}
	var s string
	f.unmarshal(name, "String", raw, &s)
	return s
}

// OptString reads an optional string.
func (f *Fields) OptString(name string) *string {
	raw, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	var s string
	if !f.unmarshal(name, "String", raw, &s) {
		return nil
	}
	return &s
}

// Strings reads a required list of strings.
func (f *Fields) Strings(name string) []string {
	raw, ok := f.lookup(name, true)
	if !ok {
		return nil
	}
	var ss []string
	f.unmarshal(name, "[String]", raw, &ss)
	return ss
}

// Int reads a required integer.
func (f *Fields) Int(name string) int {
	raw, ok := f.lookup(name, true)
	if !ok {
		return 0
	}
	var n int
	f.unmarshal(name, "Int", raw, &n)
	return n
}

// OptInt reads an optional integer.
func (f *Fields) OptInt(name string) *int {
	raw, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	var n int
	if !f.unmarshal(name, "Int", raw, &n) {
		return nil
	}
	return &n
}

// Float reads a required float.
func (f *Fields) Float(name string) float64 {
	raw, ok := f.lookup(name, true)
	if !ok {
		return 0
	}
	var n float64
	f.unmarshal(name, "Float", raw, &n)
	return n
}

// Bool reads a required boolean.
func (f *Fields) Bool(name string) bool {
	raw, ok := f.lookup(name, true)
	if !ok {
		return false
	}
	var b bool
	f.unmarshal(name, "Boolean", raw, &b)
	return b
}

// Time reads a required Date scalar (RFC 3339).
func (f *Fields) Time(name string) time.Time {
	raw, ok := f.lookup(name, true)
	if !ok {
		return time.Time{}
	}
	t, ok := f.parseTime(name, raw)
	if !ok {
		return time.Time{}
	}
	return t
}

// OptTime reads an optional Date scalar.
func (f *Fields) OptTime(name string) *time.Time {
	raw, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	t, ok := f.parseTime(name, raw)
	if !ok {
		return nil
	}
	return &t
}

func (f *Fields) parseTime(name string, raw json.RawMessage) (time.Time, bool) {
	var s string
	if !f.unmarshal(name, "Date", raw, &s) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		f.fail(&FieldTypeError{Type: f.typeName, Field: name, Want: "Date", Err: err})
		return time.Time{}, false
	}
	return t, true
}

// One decodes a required nested object.
func One[T any](f *Fields, name string, sel Selection[T]) T {
	var zero T
	if f.recording {
		f.record(Field{Name: name, Sub: sel.fields})
		return zero
	}
	raw, ok := f.lookup(name, true)
	if !ok {
		return zero
	}
	v, err := sel.Decode(raw)
	if err != nil {
		f.fail(err)
		return zero
	}
	return v
}

// OptOne decodes an optional nested object.
func OptOne[T any](f *Fields, name string, sel Selection[T]) *T {
	if f.recording {
		f.record(Field{Name: name, Sub: sel.fields})
		return nil
	}
	raw, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	v, err := sel.Decode(raw)
	if err != nil {
		f.fail(err)
		return nil
	}
	return &v
}

// List decodes a nested list of objects. An absent or null list decodes
// as empty; a null element fails.
func List[T any](f *Fields, name string, sel Selection[T]) []T {
	if f.recording {
		f.record(Field{Name: name, Sub: sel.fields})
		return nil
	}
	raw, ok := f.lookup(name, false)
	if !ok {
		return nil
	}
	vs, err := sel.DecodeList(raw)
	if err != nil {
		f.fail(err)
		return nil
	}
	return vs
}

// On decodes an inline fragment. It returns nil unless the object's
// __typename matches the fragment's type.
func On[T any](f *Fields, sel Selection[T]) *T {
	if f.recording {
		f.record(Field{Name: "__typename"})
		f.record(Field{Name: "... on " + sel.typeName, Sub: sel.fields})
		return nil
	}
	if f.err != nil {
		return nil
	}
	var typename string
	if raw, ok := f.obj["__typename"]; ok {
		_ = json.Unmarshal(raw, &typename)
	}
	if typename != sel.typeName {
		return nil
	}
	v, err := sel.decodeObject(f.obj)
	if err != nil {
		f.fail(err)
		return nil
	}
	return &v
}

func writeSet(b *strings.Builder, fields []Field) {
	b.WriteString("{")
	for _, fl := range fields {
		b.WriteString(" ")
		b.WriteString(fl.Name)
		if len(fl.Sub) > 0 {
			b.WriteString(" ")
			writeSet(b, fl.Sub)
		}
	}
	b.WriteString(" }")
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
