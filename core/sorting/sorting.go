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

// Package sorting orders items by an ordered list of sort keys.
//
// Ordering policy:
//   - keys are evaluated in list order, ties fall through to the next key and
//     a final tie keeps the input order (the sort is stable);
//   - strings compare naturally and case-insensitively ("Item 2" < "Item 10");
//   - nil sorts before every non-nil value ascending and after every non-nil
//     value descending;
//   - a value that cannot be read (accessor error) sorts last in both directions;
//   - NaN compares greater than every number.
package sorting

import (
	"fmt"
	"slices"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/items"
)

// Direction of a sort key.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortKey is one level of a multi-key sort.
type SortKey struct {
	Field     string
	Direction Direction
}

// Engine holds the ordered sort keys of a view and sorts item sequences.
type Engine struct {
	keys     []SortKey
	resolver *items.Resolver
	onChange func()
}

// NewEngine creates an Engine that reads fields through resolver.
func NewEngine(resolver *items.Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// OnChange registers fn to be called after every mutation of the sort keys.
func (e *Engine) OnChange(fn func()) {
	e.onChange = fn
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

func (e *Engine) indexOf(field string) int {
	return slices.IndexFunc(e.keys, func(k SortKey) bool { return k.Field == field })
}

// ToggleSort cycles the sort on field the way a header click does.
//
// Without an existing key the field becomes the only key (ascending), or is
// appended when multi is set. An ascending key flips to descending. A
// descending key is removed, or reset to ascending when multi is set.
func (e *Engine) ToggleSort(field string, multi bool) {
	if field == "" {
		return
	}
	i := e.indexOf(field)
	switch {
	case i < 0:
		if !multi {
			e.keys = e.keys[:0]
		}
		e.keys = append(e.keys, SortKey{Field: field, Direction: Ascending})
	case e.keys[i].Direction == Ascending:
		e.keys[i].Direction = Descending
	case multi:
		e.keys[i].Direction = Ascending
	default:
		e.keys = slices.Delete(e.keys, i, i+1)
	}
	e.changed()
}

// SetSort sets the direction of field, appending a key if it has none.
func (e *Engine) SetSort(field string, dir Direction) {
	if i := e.indexOf(field); i >= 0 {
		e.keys[i].Direction = dir
	} else {
		e.keys = append(e.keys, SortKey{Field: field, Direction: dir})
	}
	e.changed()
}

// SetKeys replaces all keys. Duplicate fields keep their first occurrence.
func (e *Engine) SetKeys(keys []SortKey) {
	e.keys = e.keys[:0]
	for _, k := range keys {
		if k.Field != "" && e.indexOf(k.Field) < 0 {
			e.keys = append(e.keys, k)
		}
	}
	e.changed()
}

// ClearSort removes the key on field.
func (e *Engine) ClearSort(field string) {
	if i := e.indexOf(field); i >= 0 {
		e.keys = slices.Delete(e.keys, i, i+1)
	}
	e.changed()
}

// ClearAll removes every key.
func (e *Engine) ClearAll() {
	e.keys = e.keys[:0]
	e.changed()
}

// Keys returns a copy of the current keys in priority order.
func (e *Engine) Keys() []SortKey {
	return slices.Clone(e.keys)
}

// Direction returns the direction of the key on field and whether one exists.
func (e *Engine) Direction(field string) (Direction, bool) {
	if i := e.indexOf(field); i >= 0 {
		return e.keys[i].Direction, true
	}
	return Ascending, false
}

// cell is a resolved sort value.
type cell struct {
	value any
	err   error
}

// compareCells applies the ordering policy for one key.
func compareCells(a, b cell, dir Direction) int {
	if a.err != nil || b.err != nil {
		if a.err != nil && b.err != nil {
			return 0
		}
		return columns.CompareErrors(a.err, b.err)
	}
	c := columns.CompareValues(a.value, b.value)
	if dir == Descending {
		return -c
	}
	return c
}

// decorated pairs an item with its resolved key values.
type decorated struct {
	item  items.Item
	cells []cell
	pos   int
}

func (e *Engine) decorate(in []items.Item) []decorated {
	getters := make([]items.Getter, len(e.keys))
	for k, key := range e.keys {
		getters[k] = e.resolver.Getter(key.Field)
	}
	out := make([]decorated, len(in))
	for i, it := range in {
		cells := make([]cell, len(e.keys))
		for k, g := range getters {
			v, err := safeGet(g, it)
			cells[k] = cell{value: v, err: err}
		}
		out[i] = decorated{item: it, cells: cells, pos: i}
	}
	return out
}

func (e *Engine) compareDecorated(a, b decorated) int {
	for k, key := range e.keys {
		if c := compareCells(a.cells[k], b.cells[k], key.Direction); c != 0 {
			return c
		}
	}
	return 0
}

// Sort returns a new slice holding in ordered by the current keys. Each
// field is read once per item. With no keys the input order is kept.
func (e *Engine) Sort(in []items.Item) []items.Item {
	if len(e.keys) == 0 {
		return slices.Clone(in)
	}
	dec := e.decorate(in)
	slices.SortStableFunc(dec, e.compareDecorated)
	out := make([]items.Item, len(dec))
	for i, d := range dec {
		out[i] = d.item
	}
	return out
}

// Compare compares two items by the current keys.
func (e *Engine) Compare(a, b items.Item) int {
	for _, key := range e.keys {
		g := e.resolver.Getter(key.Field)
		va, errA := safeGet(g, a)
		vb, errB := safeGet(g, b)
		if c := compareCells(cell{va, errA}, cell{vb, errB}, key.Direction); c != 0 {
			return c
		}
	}
	return 0
}

// CompareField compares two already resolved values of one key field with
// the engine's policy. Used by grouping to order partitions.
func CompareField(a, b any, dir Direction) int {
	return compareCells(cell{value: a}, cell{value: b}, dir)
}

func safeGet(g items.Getter, it items.Item) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("accessor panic: %v", p)
		}
	}()
	return g(it)
}
