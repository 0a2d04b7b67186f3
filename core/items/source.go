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

// ChangeKind describes what happened to a Source.
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota
	ChangeRemove
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeReset:
		return "reset"
	}
	return "unknown"
}

// Change is a notification emitted by a Source after it was mutated.
// Index is the position of the first affected item (-1 for resets).
type Change struct {
	Kind  ChangeKind
	Items []Item
	Index int
}

// Source wraps the caller's item collection. It hands out snapshots for
// iteration and notifies subscribers of every add/remove/reset.
// Observers are called synchronously, in subscription order.
type Source struct {
	items     []Item
	observers map[int]func(Change)
	order     []int
	nextID    int
}

// NewSource creates a Source over a copy of the given items.
func NewSource(items []Item) *Source {
	s := &Source{observers: make(map[int]func(Change))}
	s.items = append(s.items, items...)
	return s
}

// Len returns the number of items.
func (s *Source) Len() int {
	return len(s.items)
}

// At returns the item at position i.
func (s *Source) At(i int) Item {
	return s.items[i]
}

// Snapshot returns a copy of the current items, safe to keep across mutations.
func (s *Source) Snapshot() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Subscribe registers fn for change notifications and returns a function that
// unregisters it.
func (s *Source) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)
	return func() {
		delete(s.observers, id)
		for i, o := range s.order {
			if o == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *Source) notify(c Change) {
	for _, id := range append([]int(nil), s.order...) {
		if fn, ok := s.observers[id]; ok {
			fn(c)
		}
	}
}

// Add appends items and emits ChangeAdd.
func (s *Source) Add(items ...Item) {
	if len(items) == 0 {
		return
	}
	index := len(s.items)
	s.items = append(s.items, items...)
	s.notify(Change{Kind: ChangeAdd, Items: append([]Item(nil), items...), Index: index})
}

// Insert inserts item at position index (clamped) and emits ChangeAdd.
func (s *Source) Insert(index int, item Item) {
	index = max(0, min(index, len(s.items)))
	s.items = append(s.items, nil)
	copy(s.items[index+1:], s.items[index:])
	s.items[index] = item
	s.notify(Change{Kind: ChangeAdd, Items: []Item{item}, Index: index})
}

// Remove removes the first occurrence of item. It reports whether the item
// was present.
func (s *Source) Remove(item Item) bool {
	i := IndexOf(s.items, item)
	if i < 0 {
		return false
	}
	s.RemoveAt(i)
	return true
}

// RemoveAt removes the item at position i and emits ChangeRemove.
func (s *Source) RemoveAt(i int) {
	if i < 0 || i >= len(s.items) {
		return
	}
	item := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.notify(Change{Kind: ChangeRemove, Items: []Item{item}, Index: i})
}

// Reset replaces all items and emits ChangeReset.
func (s *Source) Reset(items []Item) {
	s.items = append(s.items[:0:0], items...)
	s.notify(Change{Kind: ChangeReset, Index: -1})
}
