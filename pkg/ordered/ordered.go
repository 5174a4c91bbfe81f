// Package ordered decodes JSON into trees whose objects remember the key
// order of the source document.
package ordered

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that iterates and marshals in insertion order.
type Object = orderedmap.OrderedMap[string, any]

var ErrInvalidJSON = errors.New("invalid JSON document")

// NewObject returns an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Parse decodes data into a tree of *Object, []any, string, json.Number,
// bool and nil values.
func Parse(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, preview(data))
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseObject is Parse for documents whose root must be an object.
func ParseObject(data []byte) (*Object, error) {
	value, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: root is %s, not an object", ErrInvalidJSON, kindOf(value))
	}
	return obj, nil
}

// FromResult converts an already parsed gjson value.
func FromResult(r gjson.Result) any {
	return fromResult(r)
}

func fromResult(r gjson.Result) any {
	switch {
	case r.IsObject():
		obj := NewObject()
		r.ForEach(func(key, value gjson.Result) bool {
			obj.Set(key.String(), fromResult(value))
			return true
		})
		return obj
	case r.IsArray():
		items := make([]any, 0)
		r.ForEach(func(_, value gjson.Result) bool {
			items = append(items, fromResult(value))
			return true
		})
		return items
	}
	switch r.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.String()
	default:
		return nil
	}
}

// ObjectAt walks keys from root and returns the object found there.
func ObjectAt(root *Object, keys ...string) (*Object, bool) {
	current := root
	for _, key := range keys {
		if current == nil {
			return nil, false
		}
		value, ok := current.Get(key)
		if !ok {
			return nil, false
		}
		next, ok := value.(*Object)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// Keys lists the keys of obj in order.
func Keys(obj *Object) []string {
	if obj == nil {
		return nil
	}
	keys := make([]string, 0, obj.Len())
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// ToPlain converts a tree into plain maps and slices. Key order is lost.
func ToPlain(value any) any {
	switch v := value.(type) {
	case *Object:
		if v == nil {
			return nil
		}
		out := make(map[string]any, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = ToPlain(pair.Value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ToPlain(item)
		}
		return out
	default:
		return v
	}
}

func kindOf(value any) string {
	switch value.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func preview(data []byte) string {
	const limit = 120
	if len(data) == 0 {
		return "empty output"
	}
	if len(data) > limit {
		return fmt.Sprintf("%q...", data[:limit])
	}
	return fmt.Sprintf("%q", data)
}
