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

// Package items defines how the grid engine sees caller-owned records: an
// opaque Item, a field accessor that reads and writes named fields, and a
// Source that wraps the caller's collection and reports changes.
package items

import (
	"errors"
	"fmt"
	"reflect"
)

// Item is an opaque record from the caller's domain. The engine never owns
// items; it only reads fields through an Accessor.
//
// Items should be pointers, maps or comparable values so that they have a
// stable identity (see Key).
type Item = any

var (
	// ErrFieldNotFound is returned when an item has no field with the given name.
	ErrFieldNotFound = errors.New("field not found")
	// ErrReadOnlyField is returned when a field cannot be written.
	ErrReadOnlyField = errors.New("field is read-only")
	// ErrTypeMismatch is returned when a value cannot be assigned to a field.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Accessor reads and writes fields on items by name.
type Accessor interface {
	Get(item Item, field string) (any, error)
	Set(item Item, field string, value any) error
}

// Getter reads one pre-resolved field from an item.
type Getter func(item Item) (any, error)

// FieldResolver is implemented by accessors that can resolve a field name once
// and return a getter specialised for it.
type FieldResolver interface {
	Resolve(field string) Getter
}

// Resolver caches one Getter per field name on top of an Accessor.
// It is not safe for concurrent use; the engine is single-threaded.
type Resolver struct {
	accessor Accessor
	getters  map[string]Getter
}

// NewResolver wraps an accessor with a per-field getter cache.
func NewResolver(accessor Accessor) *Resolver {
	return &Resolver{
		accessor: accessor,
		getters:  make(map[string]Getter),
	}
}

// Accessor returns the underlying accessor.
func (r *Resolver) Accessor() Accessor {
	return r.accessor
}

// Getter returns the cached getter for field, resolving it on first use.
func (r *Resolver) Getter(field string) Getter {
	if g, ok := r.getters[field]; ok {
		return g
	}
	var g Getter
	if fr, ok := r.accessor.(FieldResolver); ok {
		g = fr.Resolve(field)
	}
	if g == nil {
		acc := r.accessor
		g = func(item Item) (any, error) {
			return acc.Get(item, field)
		}
	}
	r.getters[field] = g
	return g
}

// Value reads field from item. Panics raised by the accessor are converted to
// errors so a misbehaving accessor cannot take the view down.
func (r *Resolver) Value(item Item, field string) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = fmt.Errorf("reading %q: %v", field, p)
		}
	}()
	return r.Getter(field)(item)
}

// Set writes value to field on item through the underlying accessor.
func (r *Resolver) Set(item Item, field string, value any) error {
	return r.accessor.Set(item, field, value)
}

// Reset drops all cached getters. Call it when the accessor's view of the
// item type changes (for example after a Source reset with a new item type).
func (r *Resolver) Reset() {
	clear(r.getters)
}

// refKey identifies reference-like values (maps, slices, funcs, channels) by
// type and address, since they cannot be compared with ==.
type refKey struct {
	t reflect.Type
	p uintptr
}

// Key returns a comparable identity for item, suitable as a map key.
// Comparable values are their own key; maps, slices, funcs and channels are
// identified by address; anything else falls back to its Go-syntax rendering.
func Key(item Item) any {
	if item == nil {
		return nil
	}
	v := reflect.ValueOf(item)
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return refKey{t: v.Type(), p: v.Pointer()}
	}
	if v.Comparable() {
		return item
	}
	return fmt.Sprintf("%T:%#v", item, item)
}

// Same reports whether a and b are the same item.
func Same(a, b Item) bool {
	return Key(a) == Key(b)
}

// IndexOf returns the position of item in list, or -1.
func IndexOf(list []Item, item Item) int {
	k := Key(item)
	for i, it := range list {
		if Key(it) == k {
			return i
		}
	}
	return -1
}
