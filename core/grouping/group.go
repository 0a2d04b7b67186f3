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

// Package grouping partitions a sorted item sequence into a tree of groups,
// at most MaxDepth levels deep.
//
// Terminology:
// * the fields that are part of the grouping hierarchy are called grouped fields
// * a node at the last grouped level is a leaf group; it holds items
// * every other node holds child groups
// The items of a leaf group share the value of every grouped field.
package grouping

import (
	"fmt"
	"strings"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/items"
)

// Node is one group of the tree. A node at level < depth-1 has Children and
// no Items; a node at the last level has Items and no Children.
type Node struct {
	Key      any
	Level    int
	Field    string
	Expanded bool
	Children []*Node
	Items    []items.Item
	Parent   *Node

	// Aggregates holds the summary requests evaluated over this group's items.
	Aggregates []aggregates.Result

	path  string
	state []*aggregates.State
}

// IsLeafGroup reports whether the node holds items rather than child groups.
func (n *Node) IsLeafGroup() bool {
	return n.Children == nil
}

// ItemCount returns the number of items under the node.
func (n *Node) ItemCount() int {
	if n.IsLeafGroup() {
		return len(n.Items)
	}
	count := 0
	for _, c := range n.Children {
		count += c.ItemCount()
	}
	return count
}

// Leaves returns every item under the node in tree order.
func (n *Node) Leaves() []items.Item {
	if n.IsLeafGroup() {
		return n.Items
	}
	out := make([]items.Item, 0, n.ItemCount())
	for _, c := range n.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// DisplayText is the header text of the group, "<field>: <key>", with nil
// keys shown as "(null)".
func (n *Node) DisplayText() string {
	return n.Field + ": " + columns.DisplayText(n.Key)
}

// Path identifies the node by the keys from the root down to it. It is stable
// across rebuilds as long as the grouped fields are unchanged.
func (n *Node) Path() string {
	return n.path
}

// Height is the number of entries the node contributes to a flat view: its
// header plus, when expanded, its children or items.
func (n *Node) Height() int {
	if !n.Expanded {
		return 1
	}
	if n.IsLeafGroup() {
		return 1 + len(n.Items)
	}
	height := 1
	for _, c := range n.Children {
		height += c.Height()
	}
	return height
}

// Walk calls fn for n and every descendant, depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("%s (%d)", n.DisplayText(), n.ItemCount())
}

// keyText renders a group key for use in a path. The type is included so
// that 1 and "1" are different groups.
func keyText(k any) string {
	if columns.IsNull(k) {
		return "\x00"
	}
	return fmt.Sprintf("%T=%s", k, strings.ReplaceAll(columns.FormatValue(k), "/", "//"))
}

func childPath(parent string, key any) string {
	if parent == "" {
		return keyText(key)
	}
	return parent + " / " + keyText(key)
}
