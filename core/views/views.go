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

// Package views flattens the filtered, sorted and grouped items of a grid into
// the sequence of entries the virtualization window lays out, and builds the
// view model renderers consume.
package views

import (
	"github.com/google/vgrid/core/grouping"
	"github.com/google/vgrid/core/items"
)

// EntryKind tells group headers from data rows.
type EntryKind int

const (
	DataRow EntryKind = iota
	GroupHeader
)

func (k EntryKind) String() string {
	if k == GroupHeader {
		return "group"
	}
	return "row"
}

// Entry is one line of the flat view.
type Entry struct {
	Kind  EntryKind
	Item  items.Item     // set for data rows
	Group *grouping.Node // set for group headers
	Index int            // position in the sequence
	Level int            // nesting depth; data rows sit one level below their group
}

// IsGroup reports whether the entry is a group header.
func (e Entry) IsGroup() bool {
	return e.Kind == GroupHeader
}

// Compose builds the flat entry sequence.
//
// Without grouping every leaf becomes a data row. With grouping the tree is
// walked depth first: each node emits its header and, when expanded, its child
// groups or its items. A collapsed node emits only its header.
//
// Compose does not modify its inputs; equal inputs give equal sequences.
func Compose(leaves []items.Item, roots []*grouping.Node, grouped bool) []Entry {
	if !grouped {
		out := make([]Entry, len(leaves))
		for i, it := range leaves {
			out[i] = Entry{Kind: DataRow, Item: it, Index: i}
		}
		return out
	}
	n := 0
	for _, r := range roots {
		n += r.Height()
	}
	out := make([]Entry, 0, n)
	for _, r := range roots {
		out = appendNode(out, r)
	}
	return out
}

func appendNode(out []Entry, n *grouping.Node) []Entry {
	out = append(out, Entry{Kind: GroupHeader, Group: n, Index: len(out), Level: n.Level})
	if !n.Expanded {
		return out
	}
	if n.IsLeafGroup() {
		for _, it := range n.Items {
			out = append(out, Entry{Kind: DataRow, Item: it, Index: len(out), Level: n.Level + 1})
		}
		return out
	}
	for _, c := range n.Children {
		out = appendNode(out, c)
	}
	return out
}

// IndexOf returns the index of the data row holding item, or -1.
func IndexOf(entries []Entry, item items.Item) int {
	k := items.Key(item)
	for i, e := range entries {
		if e.Kind == DataRow && items.Key(e.Item) == k {
			return i
		}
	}
	return -1
}

// IndexOfGroup returns the index of the header of n, or -1.
func IndexOfGroup(entries []Entry, n *grouping.Node) int {
	for i, e := range entries {
		if e.Kind == GroupHeader && e.Group == n {
			return i
		}
	}
	return -1
}

// DataItems returns the items of the data rows in sequence order.
func DataItems(entries []Entry) []items.Item {
	out := make([]items.Item, 0, len(entries))
	for _, e := range entries {
		if e.Kind == DataRow {
			out = append(out, e.Item)
		}
	}
	return out
}
