// Package document is a small hierarchical key/value store. A Document holds
// scalar fields, number arrays and named sub-documents, and can be read from
// and written to JSON, YAML or zstd compressed JSON.
package document

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrMissing is returned when a requested key does not exist.
var ErrMissing = errors.New("missing field")

// ErrType is returned when a key exists but holds a different kind of value.
var ErrType = errors.New("wrong field type")

// Document is one node of the tree. The zero value is not usable, use New.
type Document struct {
	fields map[string]any
	arrays map[string][]float64
	subs   map[string]*Document
}

// New returns an empty document.
func New() *Document {
	return &Document{
		fields: make(map[string]any),
		arrays: make(map[string][]float64),
		subs:   make(map[string]*Document),
	}
}

// Has reports whether key names a field, an array or a sub-document.
func (d *Document) Has(key string) bool {
	if _, ok := d.fields[key]; ok {
		return true
	}
	if _, ok := d.arrays[key]; ok {
		return true
	}
	_, ok := d.subs[key]
	return ok
}

// Delete removes key of whatever kind.
func (d *Document) Delete(key string) {
	delete(d.fields, key)
	delete(d.arrays, key)
	delete(d.subs, key)
}

func (d *Document) SetFloat(key string, v float64) {
	d.Delete(key)
	d.fields[key] = v
}

func (d *Document) SetInt(key string, v int64) {
	d.Delete(key)
	d.fields[key] = float64(v)
}

func (d *Document) SetBool(key string, v bool) {
	d.Delete(key)
	d.fields[key] = v
}

func (d *Document) SetText(key string, v string) {
	d.Delete(key)
	d.fields[key] = v
}

// Float returns the number stored under key.
func (d *Document) Float(key string) (float64, error) {
	v, ok := d.fields[key]
	if !ok {
		return 0, fmt.Errorf("%q: %w", key, ErrMissing)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%q is %T, want number: %w", key, v, ErrType)
	}
	return f, nil
}

// Int returns the number stored under key. The number must be integral.
func (d *Document) Int(key string) (int64, error) {
	f, err := d.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q = %v is not an integer: %w", key, f, ErrType)
	}
	return int64(f), nil
}

func (d *Document) Bool(key string) (bool, error) {
	v, ok := d.fields[key]
	if !ok {
		return false, fmt.Errorf("%q: %w", key, ErrMissing)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%q is %T, want bool: %w", key, v, ErrType)
	}
	return b, nil
}

// Text returns the string stored under key.
func (d *Document) Text(key string) (string, error) {
	v, ok := d.fields[key]
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrMissing)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q is %T, want string: %w", key, v, ErrType)
	}
	return s, nil
}

// SetArray stores a copy of values under key.
func (d *Document) SetArray(key string, values []float64) {
	d.Delete(key)
	d.arrays[key] = append([]float64(nil), values...)
}

// SetFloat32s stores values under key as a number array.
func (d *Document) SetFloat32s(key string, values []float32) {
	d.Delete(key)
	arr := make([]float64, len(values))
	for i, v := range values {
		arr[i] = float64(v)
	}
	d.arrays[key] = arr
}

// Array returns a copy of the array stored under key.
func (d *Document) Array(key string) ([]float64, error) {
	arr, ok := d.arrays[key]
	if !ok {
		if d.Has(key) {
			return nil, fmt.Errorf("%q is not an array: %w", key, ErrType)
		}
		return nil, fmt.Errorf("%q: %w", key, ErrMissing)
	}
	return append([]float64(nil), arr...), nil
}

// Float32s returns the array stored under key converted to float32.
func (d *Document) Float32s(key string) ([]float32, error) {
	arr, ok := d.arrays[key]
	if !ok {
		if d.Has(key) {
			return nil, fmt.Errorf("%q is not an array: %w", key, ErrType)
		}
		return nil, fmt.Errorf("%q: %w", key, ErrMissing)
	}
	out := make([]float32, len(arr))
	for i, v := range arr {
		out[i] = float32(v)
	}
	return out, nil
}

// Sub returns the sub-document named key, or nil.
func (d *Document) Sub(key string) *Document {
	return d.subs[key]
}

// Child is Sub with an error for a missing document.
func (d *Document) Child(key string) (*Document, error) {
	sub, ok := d.subs[key]
	if !ok {
		if d.Has(key) {
			return nil, fmt.Errorf("%q is not a document: %w", key, ErrType)
		}
		return nil, fmt.Errorf("%q: %w", key, ErrMissing)
	}
	return sub, nil
}

// Ensure returns the sub-document named key, creating it if needed.
func (d *Document) Ensure(key string) *Document {
	if sub, ok := d.subs[key]; ok {
		return sub
	}
	sub := New()
	d.SetSub(key, sub)
	return sub
}

// SetSub attaches sub under key, replacing any existing value.
func (d *Document) SetSub(key string, sub *Document) {
	d.Delete(key)
	d.subs[key] = sub
}

// Keys returns the scalar and array keys in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.fields)+len(d.arrays))
	for k := range d.fields {
		keys = append(keys, k)
	}
	for k := range d.arrays {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SubKeys returns the names of all sub-documents in sorted order.
func (d *Document) SubKeys() []string {
	keys := make([]string, 0, len(d.subs))
	for k := range d.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries of every kind.
func (d *Document) Len() int {
	return len(d.fields) + len(d.arrays) + len(d.subs)
}
