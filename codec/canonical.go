// Package codec converts registered entities to and from their wire
// representation: direct properties, canonical embedded blobs, and
// satellite nodes behind private relationships. Decoding an encoded
// entity restores every declared field.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/neogm"
)

// MarshalCanonical renders a value as canonical JSON: object keys sorted
// recursively, no insignificant whitespace. Two equal values always render
// to identical bytes, so blobs compare and hash stably across writers.
func MarshalCanonical(v any) (string, error) {
	tree, err := canonicalTree(reflect.ValueOf(v))
	if err != nil {
		return "", err
	}
	// encoding/json emits map keys sorted and compact by default.
	b, err := json.Marshal(tree)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// canonicalTree lowers a value into maps, slices, and scalars so the JSON
// encoder's sorted-key map rendering applies to every nesting level.
func canonicalTree(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	t := v.Type()
	switch t {
	case timeType:
		return v.Interface().(time.Time).UTC().Format(time.RFC3339Nano), nil
	case uuidType:
		return v.Interface().(uuid.UUID).String(), nil
	case decimalType:
		return v.Interface().(decimal.Decimal).String(), nil
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface(), nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return v.Interface(), nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			e, err := canonicalTree(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			e, err := canonicalTree(iter.Value())
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(iter.Key().Interface())] = e
		}
		return out, nil
	case reflect.Struct:
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			name := jsonName(sf)
			if name == "" {
				continue
			}
			e, err := canonicalTree(v.Field(i))
			if err != nil {
				return nil, err
			}
			out[name] = e
		}
		return out, nil
	default:
		return nil, &neogm.ConfigurationError{
			Type: t.String(),
			Msg:  fmt.Sprintf("kind %s cannot be embedded", v.Kind()),
		}
	}
}

// jsonName resolves the blob key for a struct field, honoring json tags.
// Fields tagged "-" return empty.
func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if tag != "" {
		if i := indexComma(tag); i >= 0 {
			tag = tag[:i]
		}
		if tag != "" {
			return tag
		}
	}
	return sf.Name
}

func indexComma(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			return i
		}
	}
	return -1
}

// UnmarshalCanonical parses a canonical blob back into dst, which must be
// a pointer.
func UnmarshalCanonical(blob string, dst any) error {
	return json.Unmarshal([]byte(blob), dst)
}

// sortedKeys returns a map's keys in ascending order, for deterministic
// iteration.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
