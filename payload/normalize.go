package payload

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Normalize returns the canonical form of v that request signatures cover.
//
// Objects are rebuilt with every string property value stripped of spaces and
// every object or array property value normalized recursively. Array elements
// are normalized recursively, but a string that is itself an array element or
// the top-level value is returned unchanged. Key order is not part of the
// Value; it is fixed when the value is serialized.
//
// Normalize recurses once per nesting level and must not be given cyclic
// input.
func Normalize(v Value) Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = Normalize(item)
		}
		return Array(items...)
	case KindObject:
		fields := make(map[string]Value, len(v.fields))
		for k, f := range v.fields {
			switch f.kind {
			case KindObject, KindArray:
				fields[k] = Normalize(f)
			case KindString:
				fields[k] = String(strings.ReplaceAll(f.str, " ", ""))
			default:
				fields[k] = f
			}
		}
		return Object(fields)
	}
	return v
}

// CanonicalJSON serializes v the way the API reproduces it when checking a
// nonce: RFC 8785 (JCS) output, which sorts object keys, formats numbers the
// ECMAScript way and leaves HTML characters unescaped.
//
// Numbers beyond the float64 range have no ECMAScript form and are written as
// null, as JSON.stringify does for Infinity.
//
// CanonicalJSON does not normalize; callers pass Normalize(v) when signing.
func CanonicalJSON(v Value) ([]byte, error) {
	// The canonicalizer only accepts an object or array at the top level, so
	// scalars travel inside a one-element array that is peeled off afterwards.
	raw, err := Array(finite(v)).MarshalJSON()
	if err != nil {
		return nil, err
	}
	out, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("payload: canonicalizing json: %w", err)
	}
	if len(out) < 2 || out[0] != '[' || out[len(out)-1] != ']' {
		return nil, fmt.Errorf("payload: canonicalizing json: unexpected output %q", out)
	}
	return out[1 : len(out)-1], nil
}

// finite replaces numbers that overflow float64 with null.
func finite(v Value) Value {
	switch v.kind {
	case KindNumber:
		f, _ := strconv.ParseFloat(v.num.String(), 64)
		if math.IsInf(f, 0) {
			return Null()
		}
	case KindArray:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = finite(item)
		}
		return Array(items...)
	case KindObject:
		fields := make(map[string]Value, len(v.fields))
		for k, f := range v.fields {
			fields[k] = finite(f)
		}
		return Object(fields)
	}
	return v
}
