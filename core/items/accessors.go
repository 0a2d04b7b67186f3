/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Taxinomia Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package items

import (
	"fmt"
	"reflect"
)

// MapAccessor reads fields from map[string]any items. This is the item shape
// produced by the CSV and SQL loaders.
type MapAccessor struct{}

// Get implements Accessor.
func (MapAccessor) Get(item Item, field string) (any, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a map[string]any", ErrTypeMismatch, item)
	}
	v, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, field)
	}
	return v, nil
}

// Set implements Accessor.
func (MapAccessor) Set(item Item, field string, value any) error {
	m, ok := item.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %T is not a map[string]any", ErrTypeMismatch, item)
	}
	m[field] = value
	return nil
}

// StructAccessor reads exported struct fields by name using reflection.
// Field lookups are cached per (type, field name). Items may be structs or
// pointers to structs; only pointer items can be written.
type StructAccessor struct {
	fields map[structField][]int
}

type structField struct {
	t    reflect.Type
	name string
}

// NewStructAccessor creates a StructAccessor with an empty lookup cache.
func NewStructAccessor() *StructAccessor {
	return &StructAccessor{fields: make(map[structField][]int)}
}

func (a *StructAccessor) index(t reflect.Type, name string) ([]int, bool) {
	key := structField{t: t, name: name}
	if idx, ok := a.fields[key]; ok {
		return idx, idx != nil
	}
	sf, ok := t.FieldByName(name)
	if !ok || !sf.IsExported() {
		a.fields[key] = nil
		return nil, false
	}
	a.fields[key] = sf.Index
	return sf.Index, true
}

func structValue(item Item) (reflect.Value, bool) {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct
}

// Get implements Accessor.
func (a *StructAccessor) Get(item Item, field string) (any, error) {
	v, ok := structValue(item)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a struct", ErrTypeMismatch, item)
	}
	idx, ok := a.index(v.Type(), field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, v.Type().Name(), field)
	}
	f, err := v.FieldByIndexErr(idx)
	if err != nil {
		// Nil embedded pointer on the path.
		return nil, nil
	}
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return nil, nil
		}
		f = f.Elem()
	}
	return f.Interface(), nil
}

// Set implements Accessor.
func (a *StructAccessor) Set(item Item, field string, value any) error {
	rv := reflect.ValueOf(item)
	if rv.Kind() != reflect.Pointer {
		return fmt.Errorf("%w: %T is not addressable", ErrReadOnlyField, item)
	}
	v, ok := structValue(item)
	if !ok {
		return fmt.Errorf("%w: %T is not a struct", ErrTypeMismatch, item)
	}
	idx, ok := a.index(v.Type(), field)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrFieldNotFound, v.Type().Name(), field)
	}
	f, err := v.FieldByIndexErr(idx)
	if err != nil || !f.CanSet() {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, field)
	}
	if value == nil {
		switch f.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			f.Set(reflect.Zero(f.Type()))
			return nil
		}
		return fmt.Errorf("%w: nil for %s", ErrTypeMismatch, f.Type())
	}
	nv := reflect.ValueOf(value)
	switch {
	case nv.Type().AssignableTo(f.Type()):
		f.Set(nv)
	case isNumericKind(nv.Kind()) && isNumericKind(f.Kind()):
		f.Set(nv.Convert(f.Type()))
	default:
		return fmt.Errorf("%w: %T for %s", ErrTypeMismatch, value, f.Type())
	}
	return nil
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
