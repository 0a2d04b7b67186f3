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

// Package selection tracks the selected items of a grid and the anchor used
// for range selection.
package selection

import (
	"fmt"
	"strings"

	"github.com/google/vgrid/core/items"
)

// Mode restricts how many items can be selected.
type Mode int

const (
	Single Mode = iota
	Multiple
	Extended // same behavior as Multiple
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Multiple:
		return "multiple"
	case Extended:
		return "extended"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return Single, nil
	case "multiple":
		return Multiple, nil
	case "extended", "":
		return Extended, nil
	}
	return Extended, fmt.Errorf("unknown selection mode %q", s)
}

// Status summarizes the selection for a select-all checkbox.
type Status int

const (
	None Status = iota
	Some
	All
)

func (s Status) String() string {
	switch s {
	case Some:
		return "some"
	case All:
		return "all"
	}
	return "none"
}

// Model is the set of selected items, kept in selection order, plus the
// anchor of range operations. Ranges are taken from the data-row order set
// with SetOrder.
type Model struct {
	mode     Mode
	selected []items.Item
	set      map[any]struct{}

	anchor    items.Item
	hasAnchor bool

	order    []items.Item
	position map[any]int

	onChange func()
}

// NewModel creates an empty Model in the given mode.
func NewModel(mode Mode) *Model {
	return &Model{
		mode:     mode,
		set:      make(map[any]struct{}),
		position: make(map[any]int),
	}
}

// OnChange registers fn to be called after every mutation.
func (m *Model) OnChange(fn func()) {
	m.onChange = fn
}

func (m *Model) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}

// Mode returns the selection mode.
func (m *Model) Mode() Mode {
	return m.mode
}

// SetMode changes the mode. Switching to Single keeps at most the anchor, or
// the first selected item when the anchor is not selected.
func (m *Model) SetMode(mode Mode) {
	m.mode = mode
	if mode != Single || len(m.selected) <= 1 {
		return
	}
	keep := m.selected[0]
	if m.hasAnchor && m.IsSelected(m.anchor) {
		keep = m.anchor
	}
	m.reset()
	m.add(keep)
	m.changed()
}

// SetOrder sets the flat data-row order used for range selection and for
// Status.
func (m *Model) SetOrder(order []items.Item) {
	m.order = order
	clear(m.position)
	for i, it := range order {
		k := items.Key(it)
		if _, dup := m.position[k]; !dup {
			m.position[k] = i
		}
	}
}

func (m *Model) reset() {
	m.selected = m.selected[:0]
	clear(m.set)
}

func (m *Model) add(it items.Item) {
	k := items.Key(it)
	if _, ok := m.set[k]; ok {
		return
	}
	m.set[k] = struct{}{}
	m.selected = append(m.selected, it)
}

func (m *Model) remove(it items.Item) bool {
	k := items.Key(it)
	if _, ok := m.set[k]; !ok {
		return false
	}
	delete(m.set, k)
	for i, s := range m.selected {
		if items.Key(s) == k {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			break
		}
	}
	return true
}

// SelectItem applies a click-like selection.
//
// With extend and an anchor (outside Single mode) the data rows between the
// anchor and item are selected, replacing the selection unless toggle is
// also set. The anchor does not move. With toggle alone the membership of
// item flips and item becomes the anchor. Otherwise the selection becomes
// item alone and item becomes the anchor.
func (m *Model) SelectItem(item items.Item, toggle, extend bool) {
	if m.mode == Single {
		if toggle && m.IsSelected(item) {
			m.reset()
		} else {
			m.reset()
			m.add(item)
		}
		m.setAnchor(item)
		m.changed()
		return
	}

	if extend && m.hasAnchor {
		from, okFrom := m.position[items.Key(m.anchor)]
		to, okTo := m.position[items.Key(item)]
		if okFrom && okTo {
			if !toggle {
				m.reset()
			}
			if from > to {
				from, to = to, from
			}
			for _, it := range m.order[from : to+1] {
				m.add(it)
			}
			m.changed()
			return
		}
	}

	if toggle {
		if !m.remove(item) {
			m.add(item)
		}
	} else {
		m.reset()
		m.add(item)
	}
	m.setAnchor(item)
	m.changed()
}

func (m *Model) setAnchor(it items.Item) {
	m.anchor = it
	m.hasAnchor = true
}

// SelectAll selects every item of the order. It does nothing in Single mode.
func (m *Model) SelectAll() {
	if m.mode == Single {
		return
	}
	m.reset()
	for _, it := range m.order {
		m.add(it)
	}
	m.changed()
}

// Clear deselects everything and drops the anchor.
func (m *Model) Clear() {
	m.reset()
	m.anchor, m.hasAnchor = nil, false
	m.changed()
}

// Deselect removes item from the selection.
func (m *Model) Deselect(item items.Item) {
	if m.remove(item) {
		m.changed()
	}
}

// Retain drops selected items, and the anchor, that are not in keep.
func (m *Model) Retain(keep []items.Item) {
	present := make(map[any]struct{}, len(keep))
	for _, it := range keep {
		present[items.Key(it)] = struct{}{}
	}
	changed := false
	kept := m.selected[:0]
	for _, it := range m.selected {
		k := items.Key(it)
		if _, ok := present[k]; ok {
			kept = append(kept, it)
			continue
		}
		delete(m.set, k)
		changed = true
	}
	clear(m.selected[len(kept):])
	m.selected = kept
	if m.hasAnchor {
		if _, ok := present[items.Key(m.anchor)]; !ok {
			m.anchor, m.hasAnchor = nil, false
		}
	}
	if changed {
		m.changed()
	}
}

// IsSelected reports whether item is selected.
func (m *Model) IsSelected(item items.Item) bool {
	_, ok := m.set[items.Key(item)]
	return ok
}

// Selected returns the selected items in the order they were selected.
func (m *Model) Selected() []items.Item {
	out := make([]items.Item, len(m.selected))
	copy(out, m.selected)
	return out
}

// Count returns the number of selected items.
func (m *Model) Count() int {
	return len(m.selected)
}

// Anchor returns the anchor of range selection.
func (m *Model) Anchor() (items.Item, bool) {
	return m.anchor, m.hasAnchor
}

// Status is None with nothing selected, All when at least as many items are
// selected as the order holds, and Some otherwise.
func (m *Model) Status() Status {
	switch n := len(m.selected); {
	case n == 0:
		return None
	case n >= len(m.order):
		return All
	}
	return Some
}
