// Package query serializes request parameters into URL query strings.
//
// The format flattens nested objects into bracketed keys (parent[child]=v), expands lists into
// repeated key=v pairs, drops nil values and percent-encodes every key and value the way
// encodeURIComponent does. [Params] keeps insertion order so the output of a fixed input is stable.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Pair is a single parameter.
type Pair struct {
	Key   string
	Value any
}

// Params is an ordered parameter set.
type Params []Pair

// New builds Params from alternating key/value arguments. A trailing key without a value is ignored.
func New(kv ...any) Params {
	p := make(Params, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		p = p.Set(key, kv[i+1])
	}
	return p
}

// Set replaces the value of key in place, or appends it when absent.
func (p Params) Set(key string, value any) Params {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, Pair{Key: key, Value: value})
}

// Get returns the value stored under key.
func (p Params) Get(key string) (any, bool) {
	for _, pair := range p {
		if pair.Key == key {
			return pair.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in insertion order.
func (p Params) Keys() []string {
	keys := make([]string, len(p))
	for i, pair := range p {
		keys[i] = pair.Key
	}
	return keys
}

// Clone returns a shallow copy that can be modified without touching p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	return append(Params(nil), p...)
}

// MarshalJSON encodes p as a JSON object preserving key order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pair := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal param %q: %w", pair.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode serializes params into a query string with a leading "?", or "" when nothing survives filtering.
//
// params may be [Params], a map with string keys, or nil.
func Encode(params any) string {
	pairs := Pairs(params)
	if len(pairs) == 0 {
		return ""
	}
	return "?" + strings.Join(pairs, "&")
}

// Pairs returns the encoded key=value pairs of params in output order.
func Pairs(params any) []string {
	var out []string
	eachEntry(reflect.ValueOf(params), func(key string, value reflect.Value) {
		out = appendValue(out, key, value)
	})
	return out
}

// EncodeComponent percent-encodes s like JavaScript's encodeURIComponent.
func EncodeComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, r := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(r), r)
	}
	return escaped
}

func appendValue(out []string, key string, v reflect.Value) []string {
	v, ok := deref(v)
	if !ok {
		return out
	}

	if isObject(v) {
		eachEntry(v, func(child string, cv reflect.Value) {
			out = appendValue(out, key+"["+child+"]", cv)
		})
		return out
	}

	if isList(v) {
		for i := 0; i < v.Len(); i++ {
			item, ok := deref(v.Index(i))
			if !ok {
				continue
			}
			out = append(out, EncodeComponent(key)+"="+EncodeComponent(Scalar(item.Interface())))
		}
		return out
	}

	return append(out, EncodeComponent(key)+"="+EncodeComponent(Scalar(v.Interface())))
}

// eachEntry visits the members of an object value in a stable order:
// insertion order for Params, sorted keys for maps.
func eachEntry(v reflect.Value, fn func(key string, value reflect.Value)) {
	v, ok := deref(v)
	if !ok {
		return
	}

	if p, ok := v.Interface().(Params); ok {
		for _, pair := range p {
			fn(pair.Key, reflect.ValueOf(pair.Value))
		}
		return
	}

	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		fn(k.String(), v.MapIndex(k))
	}
}

var (
	paramsType   = reflect.TypeOf(Params(nil))
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

func isObject(v reflect.Value) bool {
	if v.Type() == paramsType {
		return true
	}
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

func isList(v reflect.Value) bool {
	if v.Type().Implements(stringerType) {
		return false
	}
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
		return false
	}
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

// deref unwraps interfaces and pointers, reporting false for nil values which are dropped from output.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return v, false
	}
	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return v, false
		}
	}
	return v, true
}

// Scalar renders a single value as it appears in a query string before encoding.
func Scalar(value any) string {
	switch x := value.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(value)
}
