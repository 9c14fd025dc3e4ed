// Package payload holds the JSON value model used for request bodies and the
// canonical form that request signatures are computed over.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a JSON value. The zero Value is null.
//
// Values are treated as immutable: constructors copy nothing, so callers must
// not mutate slices or maps after handing them over.
type Value struct {
	kind   Kind
	b      bool
	num    decimal.Decimal
	str    string
	items  []Value
	fields map[string]Value
}

// ErrUnsupported is returned by FromAny for Go values that have no JSON form.
var ErrUnsupported = errors.New("payload: unsupported value")

func Null() Value                    { return Value{} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Int(i int64) Value              { return Value{kind: KindNumber, num: decimal.NewFromInt(i)} }
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }
func String(s string) Value          { return Value{kind: KindString, str: s} }

// Float returns a number Value. NaN and infinities have no JSON form and
// become null.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, num: decimal.NewFromFloat(f)}
}

// Array returns an array Value holding items in order.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, items: items}
}

// Object returns an object Value. A nil map yields an empty object.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, fields: fields}
}

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) AsBool() bool     { return v.b }
func (v Value) AsString() string { return v.str }

// AsNumber returns the number held by v, or zero for other kinds.
func (v Value) AsNumber() decimal.Decimal { return v.num }

// Items returns the elements of an array Value.
func (v Value) Items() []Value { return v.items }

// Len returns the element count of an array or the field count of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.fields)
	}
	return 0
}

// Keys returns the object keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the field named key of an object Value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Text returns the plain string form of v: strings verbatim, numbers in
// decimal notation, booleans as true/false, null as the empty string, arrays
// comma-joined and objects as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return v.num.String()
	case KindString:
		return v.str
	case KindArray:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = item.Text()
		}
		return strings.Join(parts, ",")
	case KindObject:
		data, _ := v.MarshalJSON()
		return string(data)
	}
	return ""
}

// Equal reports whether v and o hold the same JSON value. Numbers compare by
// value, so 1 and 1.0 are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num.Equal(o.num)
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, f := range v.fields {
			g, ok := o.fields[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return true
}

// MarshalJSON implements json.Marshaler. Object keys are written in sorted
// order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.num.String())
	case KindString:
		return encodeString(buf, v.str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := v.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("payload: cannot encode %s", v.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a single JSON document into a Value without routing numbers
// through float64.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("payload: decoding json: %w", err)
	}
	if dec.More() {
		return Value{}, fmt.Errorf("payload: decoding json: trailing data")
	}
	return FromAny(raw)
}

// FromAny converts a Go value into a Value. Containers and structs it does not
// recognise directly are converted through an encoding/json round trip.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(fromUint(uint64(t))), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Number(fromUint(t)), nil
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case decimal.Decimal:
		return Number(t), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return Value{}, fmt.Errorf("payload: parsing number %q: %w", t, err)
		}
		return Number(d), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Array(items...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			conv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = conv
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			conv, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = conv
		}
		return Object(fields), nil
	case json.RawMessage:
		return Parse(t)
	}

	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %T: %v", ErrUnsupported, x, err)
	}
	return Parse(data)
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite number %v", ErrUnsupported, f)
	}
	return Float(f), nil
}
