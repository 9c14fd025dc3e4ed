// Package query serializes list-endpoint parameters into the API's filter
// query-string dialect.
//
// A filter expression is a |-separated list of terms. Nested objects are
// traversed by joining keys with "__" and arrays become membership tests:
//
//	{"id": 10, "age": [20, 21], "hobby": {"id": 10}}
//	=> age__in=20,21|hobby__id=10|id=10
//
// Values are emitted verbatim, without percent-encoding.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rentdynamics/rd-client-go/payload"
)

const (
	termSeparator   = "|"
	pathSeparator   = "__"
	memberSuffix    = "__in"
	listSeparator   = ","
	clauseSeparator = "&"
)

// Params holds the optional parameters of a list request. Zero-valued fields
// are omitted from the query string; in particular Page 0 is never sent.
type Params struct {
	// Filters maps field names to a scalar, a slice of scalars, or a nested
	// map[string]any for related fields. Values of any type accepted by
	// payload.FromAny are allowed.
	Filters  map[string]any
	Include  []string
	Exclude  []string
	Fields   []string
	OrderBy  string
	Page     int
	PageSize int
	Distinct bool
}

// Encode is shorthand for Serialize(p).
func (p Params) Encode() string {
	return Serialize(p)
}

// IsZero reports whether p serializes to the empty string.
func (p Params) IsZero() bool {
	return Serialize(p) == ""
}

// Serialize returns the query string for p, including the leading '?', or ""
// when no parameter is set. Clauses appear in a fixed order: filters, include,
// exclude, fields, orderBy, page, pageSize, distinct.
func Serialize(p Params) string {
	var clauses []string

	if expr := FilterExpression(p.Filters); expr != "" {
		clauses = append(clauses, "filters="+expr)
	}
	if len(p.Include) > 0 {
		clauses = append(clauses, "include="+strings.Join(p.Include, listSeparator))
	}
	if len(p.Exclude) > 0 {
		clauses = append(clauses, "exclude="+strings.Join(p.Exclude, listSeparator))
	}
	if len(p.Fields) > 0 {
		clauses = append(clauses, "fields="+strings.Join(p.Fields, listSeparator))
	}
	if p.OrderBy != "" {
		clauses = append(clauses, "orderBy="+p.OrderBy)
	}
	if p.Page != 0 {
		clauses = append(clauses, "page="+strconv.Itoa(p.Page))
	}
	if p.PageSize != 0 {
		clauses = append(clauses, "pageSize="+strconv.Itoa(p.PageSize))
	}
	if p.Distinct {
		clauses = append(clauses, "distinct=true")
	}

	if len(clauses) == 0 {
		return ""
	}
	return "?" + strings.Join(clauses, clauseSeparator)
}

// FilterExpression renders filters in the filter grammar. Keys are visited in
// sorted order. Null values, empty strings, empty arrays and objects without
// any renderable value contribute nothing.
func FilterExpression(filters map[string]any) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var terms []string
	for _, k := range keys {
		terms = append(terms, filterTerms(k, toValue(filters[k]))...)
	}
	return strings.Join(terms, termSeparator)
}

// filterTerms returns the terms contributed by one filter value under key.
func filterTerms(key string, v payload.Value) []string {
	switch v.Kind() {
	case payload.KindNull:
		return nil
	case payload.KindArray:
		if v.Len() == 0 {
			return nil
		}
		return []string{key + memberSuffix + "=" + v.Text()}
	case payload.KindObject:
		var terms []string
		for _, sub := range v.Keys() {
			child, _ := v.Get(sub)
			terms = append(terms, filterTerms(key+pathSeparator+sub, child)...)
		}
		return terms
	case payload.KindString:
		if v.AsString() == "" {
			return nil
		}
	}
	return []string{key + "=" + v.Text()}
}

func toValue(x any) payload.Value {
	v, err := payload.FromAny(x)
	if err != nil {
		// Values without a JSON form still render as their Go string form.
		return payload.String(fmt.Sprint(x))
	}
	return v
}
