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

package grouping

import (
	"slices"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/sorting"
)

// MaxDepth is the maximum number of grouped fields. Longer configurations are
// truncated.
const MaxDepth = 3

// DirectionFunc reports the sort direction configured for a field, if any.
// Group partitions of a field with a direction are ordered by key.
type DirectionFunc func(field string) (sorting.Direction, bool)

// Engine holds the grouped fields of a view, builds the group tree and keeps
// the expand state of groups across rebuilds.
type Engine struct {
	resolver *items.Resolver
	fields   []string
	roots    []*Node
	byPath   map[string]*Node

	// Nodes with Level < expandLevel start expanded unless overridden.
	expandLevel int
	overrides   map[string]bool

	onChange func()
	onExpand func()
}

// NewEngine creates an Engine that reads fields through resolver. Groups
// start expanded.
func NewEngine(resolver *items.Resolver) *Engine {
	return &Engine{
		resolver:    resolver,
		expandLevel: MaxDepth,
		overrides:   make(map[string]bool),
		byPath:      make(map[string]*Node),
	}
}

// OnChange registers fn to be called when the grouped fields change.
func (e *Engine) OnChange(fn func()) {
	e.onChange = fn
}

// OnExpand registers fn to be called when the expand state of groups changes.
// The tree itself is unchanged in that case.
func (e *Engine) OnExpand(fn func()) {
	e.onExpand = fn
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

func (e *Engine) expanded() {
	if e.onExpand != nil {
		e.onExpand()
	}
}

// SetGrouping replaces the grouped fields. Empty and duplicate fields are
// dropped and the list is truncated to MaxDepth. Expand state is reset.
func (e *Engine) SetGrouping(fields ...string) {
	e.fields = e.fields[:0]
	for _, f := range fields {
		if f == "" || slices.Contains(e.fields, f) {
			continue
		}
		if len(e.fields) == MaxDepth {
			break
		}
		e.fields = append(e.fields, f)
	}
	e.resetTree()
	e.changed()
}

// AddGrouping appends a grouped field. It is ignored when the field is
// already grouped or MaxDepth is reached.
func (e *Engine) AddGrouping(field string) {
	if field == "" || len(e.fields) >= MaxDepth || slices.Contains(e.fields, field) {
		return
	}
	e.fields = append(e.fields, field)
	e.resetTree()
	e.changed()
}

// RemoveGrouping removes a grouped field.
func (e *Engine) RemoveGrouping(field string) {
	i := slices.Index(e.fields, field)
	if i < 0 {
		return
	}
	e.fields = slices.Delete(e.fields, i, i+1)
	e.resetTree()
	e.changed()
}

// ClearGrouping removes all grouped fields and discards the tree.
func (e *Engine) ClearGrouping() {
	e.fields = e.fields[:0]
	e.resetTree()
	e.changed()
}

func (e *Engine) resetTree() {
	e.roots = nil
	clear(e.byPath)
	clear(e.overrides)
	e.expandLevel = MaxDepth
}

// Fields returns the grouped fields, outermost first.
func (e *Engine) Fields() []string {
	return slices.Clone(e.fields)
}

// Active reports whether any field is grouped.
func (e *Engine) Active() bool {
	return len(e.fields) > 0
}

// Roots returns the top-level groups of the last build.
func (e *Engine) Roots() []*Node {
	return e.roots
}

// Find returns the node of the last build with the given path, or nil.
func (e *Engine) Find(path string) *Node {
	return e.byPath[path]
}

// Build partitions sorted into the group tree and returns its roots.
//
// Partitions appear in the order their first item appears in sorted, unless
// dir reports a direction for the grouped field, in which case partitions are
// ordered by key in that direction. Items keep their relative order.
func (e *Engine) Build(sorted []items.Item, dir DirectionFunc) []*Node {
	clear(e.byPath)
	if len(e.fields) == 0 {
		e.roots = nil
		return nil
	}
	e.roots = e.partition(sorted, 0, nil, dir)
	return e.roots
}

func (e *Engine) partition(in []items.Item, level int, parent *Node, dir DirectionFunc) []*Node {
	field := e.fields[level]
	getter := e.resolver.Getter(field)

	var nodes []*Node
	index := make(map[any]*Node)
	for _, it := range in {
		key := groupKey(getter, it)
		id := items.Key(key)
		n, ok := index[id]
		if !ok {
			n = &Node{Key: key, Level: level, Field: field, Parent: parent}
			index[id] = n
			nodes = append(nodes, n)
		}
		n.Items = append(n.Items, it)
	}

	if dir != nil {
		if d, ok := dir(field); ok {
			slices.SortStableFunc(nodes, func(a, b *Node) int {
				return sorting.CompareField(a.Key, b.Key, d)
			})
		}
	}

	parentPath := ""
	if parent != nil {
		parentPath = parent.path
	}
	last := level == len(e.fields)-1
	for _, n := range nodes {
		n.path = childPath(parentPath, n.Key)
		n.Expanded = e.expandedByDefault(n)
		e.byPath[n.path] = n
		if !last {
			n.Children = e.partition(n.Items, level+1, n, dir)
			n.Items = nil
		}
	}
	return nodes
}

// groupKey reads the grouping value. Unreadable and null values share the
// nil group.
func groupKey(g items.Getter, it items.Item) (key any) {
	defer func() {
		if recover() != nil {
			key = nil
		}
	}()
	v, err := g(it)
	if err != nil || columns.IsNull(v) {
		return nil
	}
	return v
}

func (e *Engine) expandedByDefault(n *Node) bool {
	if v, ok := e.overrides[n.path]; ok {
		return v
	}
	return n.Level < e.expandLevel
}

func (e *Engine) walk(fn func(*Node)) {
	for _, r := range e.roots {
		r.Walk(fn)
	}
}

// ExpandAll expands every group.
func (e *Engine) ExpandAll() {
	e.ExpandToLevel(MaxDepth)
}

// CollapseAll collapses every group.
func (e *Engine) CollapseAll() {
	e.ExpandToLevel(0)
}

// ExpandToLevel expands groups with Level < level and collapses the rest.
func (e *Engine) ExpandToLevel(level int) {
	e.expandLevel = max(0, min(level, MaxDepth))
	clear(e.overrides)
	e.walk(func(n *Node) { n.Expanded = n.Level < e.expandLevel })
	e.expanded()
}

// Toggle flips the expand state of n.
func (e *Engine) Toggle(n *Node) {
	e.SetExpanded(n, !n.Expanded)
}

// SetExpanded sets the expand state of n. The state is remembered by path
// and survives rebuilds of the tree.
func (e *Engine) SetExpanded(n *Node, expanded bool) {
	if n == nil {
		return
	}
	n.Expanded = expanded
	e.overrides[n.path] = expanded
	e.expanded()
}

// ComputeAggregates evaluates requests for every group. Leaf groups are
// accumulated from their items and parent groups combine their children.
func (e *Engine) ComputeAggregates(agg *aggregates.Engine, requests []aggregates.Request) {
	for _, r := range e.roots {
		e.computeNode(r, agg, requests)
	}
}

func (e *Engine) computeNode(n *Node, agg *aggregates.Engine, requests []aggregates.Request) []*aggregates.State {
	if n.IsLeafGroup() {
		n.state = agg.Accumulate(n.Items, requests)
	} else {
		n.state = make([]*aggregates.State, len(requests))
		for i := range n.state {
			n.state[i] = aggregates.NewState()
		}
		for _, c := range n.Children {
			for i, s := range e.computeNode(c, agg, requests) {
				n.state[i].Combine(s)
			}
		}
	}
	n.Aggregates = agg.Results(n.state, requests)
	return n.state
}
