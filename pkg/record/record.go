// Package record reads TFRecord files and exposes the features of each
// serialized tf.train.Example through the Record interface.
package record

import (
	"sort"
	"unicode/utf8"
)

// Kind identifies which value list a Feature carries
type Kind int

const (
	KindNone Kind = iota
	KindBytes
	KindFloat
	KindInt64
)

// Record is a read-only mapping from feature key to a typed value list
type Record interface {
	Bytes(key string) ([][]byte, bool)
	Floats(key string) ([]float32, bool)
	Ints(key string) ([]int64, bool)
	Keys() []string
}

// Feature is one entry of an Example. Only the list matching Kind is used.
type Feature struct {
	Kind   Kind
	Bytes  [][]byte
	Floats []float32
	Ints   []int64
}

// BytesFeature builds a byte-string list feature
func BytesFeature(values ...[]byte) Feature {
	return Feature{Kind: KindBytes, Bytes: values}
}

// StringFeature builds a byte-string list feature from strings
func StringFeature(values ...string) Feature {
	b := make([][]byte, len(values))
	for i, v := range values {
		b[i] = []byte(v)
	}
	return Feature{Kind: KindBytes, Bytes: b}
}

// FloatFeature builds a float list feature
func FloatFeature(values ...float32) Feature {
	return Feature{Kind: KindFloat, Floats: values}
}

// Int64Feature builds an int64 list feature
func Int64Feature(values ...int64) Feature {
	return Feature{Kind: KindInt64, Ints: values}
}

// Features is the in-memory form of an Example and implements Record
type Features map[string]Feature

var _ Record = Features(nil)

// Bytes returns the byte-string list stored under key
func (f Features) Bytes(key string) ([][]byte, bool) {
	v, ok := f[key]
	if !ok || v.Kind != KindBytes {
		return nil, false
	}
	return v.Bytes, true
}

// Floats returns the float list stored under key
func (f Features) Floats(key string) ([]float32, bool) {
	v, ok := f[key]
	if !ok || v.Kind != KindFloat {
		return nil, false
	}
	return v.Floats, true
}

// Ints returns the int64 list stored under key
func (f Features) Ints(key string) ([]int64, bool) {
	v, ok := f[key]
	if !ok || v.Kind != KindInt64 {
		return nil, false
	}
	return v.Ints, true
}

// Keys returns the feature keys in sorted order
func (f Features) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FirstBytes returns the first byte-string stored under key
func FirstBytes(rec Record, key string) ([]byte, bool) {
	values, ok := rec.Bytes(key)
	if !ok || len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// FirstString returns the first byte-string stored under key decoded as
// UTF-8. Invalid sequences are replaced with U+FFFD.
func FirstString(rec Record, key string) (string, bool) {
	b, ok := FirstBytes(rec, key)
	if !ok {
		return "", false
	}
	if utf8.Valid(b) {
		return string(b), true
	}
	return string([]rune(string(b))), true
}
