package normalize

import (
	"bytes"
	"encoding/json"
)

// Shape identifies which envelope convention a response used.
type Shape int

const (
	// ShapeUnknown means no known envelope matched.
	ShapeUnknown Shape = iota
	// ShapeNestedData is { "data": { "<field>": [...] } }.
	ShapeNestedData
	// ShapeData is { "data": [...] }.
	ShapeData
	// ShapeNamed is { "<field>": [...] }.
	ShapeNamed
	// ShapeBare is a top-level array (or object, for single records).
	ShapeBare
)

func (s Shape) String() string {
	switch s {
	case ShapeNestedData:
		return "nested_data"
	case ShapeData:
		return "data"
	case ShapeNamed:
		return "named"
	case ShapeBare:
		return "bare"
	default:
		return "unknown"
	}
}

// UnwrapList resolves a list payload. The envelopes are tried in a fixed
// priority order and the first match wins:
//
//  1. data is an object holding a <field> array
//  2. data is an array
//  3. <field> is an array
//  4. the payload itself is an array
//
// When nothing matches an empty, non-nil slice and ShapeUnknown are returned.
func UnwrapList(raw []byte, field string) ([]json.RawMessage, Shape) {
	if obj, ok := asObject(raw); ok {
		if data, ok := obj["data"]; ok {
			if inner, ok := asObject(data); ok {
				if items, ok := asArray(inner[field]); ok {
					return items, ShapeNestedData
				}
			}
			if items, ok := asArray(data); ok {
				return items, ShapeData
			}
		}
		if items, ok := asArray(obj[field]); ok {
			return items, ShapeNamed
		}
	}
	if items, ok := asArray(raw); ok {
		return items, ShapeBare
	}
	return []json.RawMessage{}, ShapeUnknown
}

// UnwrapRecord resolves a single-record payload using the same priority as
// UnwrapList: data.<field>, data, <field>, then the payload itself.
func UnwrapRecord(raw []byte, field string) (json.RawMessage, Shape) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, ShapeUnknown
	}
	if data, ok := obj["data"]; ok {
		if inner, ok := asObject(data); ok {
			if rec, ok := inner[field]; ok && isObject(rec) {
				return rec, ShapeNestedData
			}
			return data, ShapeData
		}
	}
	if rec, ok := obj[field]; ok && isObject(rec) {
		return rec, ShapeNamed
	}
	return json.RawMessage(raw), ShapeBare
}

func leading(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isObject(raw []byte) bool {
	return leading(raw) == '{'
}

func asObject(raw []byte) (map[string]json.RawMessage, bool) {
	if !isObject(raw) {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func asArray(raw []byte) ([]json.RawMessage, bool) {
	if leading(raw) != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, true
}

// totalKeys are where list envelopes report the full record count.
var totalKeys = []string{"total", "total_records", "count"}

// Total finds the total record count a paginated envelope reports, looking at
// the top level and under "meta" and "pagination".
func Total(raw []byte) (int, bool) {
	obj, ok := asObject(raw)
	if !ok {
		return 0, false
	}
	scopes := []map[string]json.RawMessage{obj}
	for _, name := range []string{"meta", "pagination"} {
		if inner, ok := asObject(obj[name]); ok {
			scopes = append(scopes, inner)
		}
	}
	if data, ok := asObject(obj["data"]); ok {
		scopes = append(scopes, data)
	}
	for _, scope := range scopes {
		for _, key := range totalKeys {
			var n int
			if v, ok := scope[key]; ok && json.Unmarshal(v, &n) == nil && n >= 0 {
				return n, true
			}
		}
	}
	return 0, false
}
