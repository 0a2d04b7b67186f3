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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/sorting"
)

func sale(region, product string, amount float64) items.Item {
	return map[string]any{"region": region, "product": product, "amount": amount}
}

func testSales() []items.Item {
	return []items.Item{
		sale("West", "b", 1),
		sale("East", "a", 2),
		sale("West", "a", 3),
		map[string]any{"region": nil, "product": "a", "amount": 4.0},
		sale("East", "a", 5),
		sale("West", "b", 6),
	}
}

func newEngine() *Engine {
	return NewEngine(items.NewResolver(items.MapAccessor{}))
}

func keys(nodes []*Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}

func TestBuildFirstOccurrenceOrder(t *testing.T) {
	e := newEngine()
	e.SetGrouping("region", "product")
	roots := e.Build(testSales(), nil)

	require.Equal(t, []any{"West", "East", nil}, keys(roots))
	west := roots[0]
	assert.Equal(t, 0, west.Level)
	assert.False(t, west.IsLeafGroup())
	assert.Equal(t, []any{"b", "a"}, keys(west.Children))
	assert.Equal(t, 3, west.ItemCount())
	assert.Equal(t, "region: West", west.DisplayText())

	leaf := west.Children[0]
	assert.True(t, leaf.IsLeafGroup())
	assert.Same(t, west, leaf.Parent)
	assert.Len(t, leaf.Items, 2)
	assert.Equal(t, "region: (null)", roots[2].DisplayText())
}

func TestBuildOrdersBySortDirection(t *testing.T) {
	e := newEngine()
	e.SetGrouping("region")
	dir := func(field string) (sorting.Direction, bool) {
		return sorting.Ascending, field == "region"
	}
	roots := e.Build(testSales(), dir)
	assert.Equal(t, []any{nil, "East", "West"}, keys(roots))

	desc := func(string) (sorting.Direction, bool) { return sorting.Descending, true }
	roots = e.Build(testSales(), desc)
	assert.Equal(t, []any{"West", "East", nil}, keys(roots))
}

func TestRoundTripPreservesItems(t *testing.T) {
	e := newEngine()
	in := testSales()
	for _, fields := range [][]string{{"region"}, {"region", "product"}, {"product", "region", "amount"}} {
		e.SetGrouping(fields...)
		roots := e.Build(in, nil)

		var leaves []items.Item
		total := 0
		for _, r := range roots {
			leaves = append(leaves, r.Leaves()...)
			total += r.ItemCount()
		}
		assert.Equal(t, len(in), total, "fields %v", fields)
		assert.Len(t, leaves, len(in))
		seen := make(map[any]bool)
		for _, it := range leaves {
			seen[items.Key(it)] = true
		}
		for _, it := range in {
			assert.True(t, seen[items.Key(it)], "item lost when grouping by %v", fields)
		}
	}
}

func TestSetGroupingTruncates(t *testing.T) {
	e := newEngine()
	calls := 0
	e.OnChange(func() { calls++ })
	e.SetGrouping("a", "b", "a", "", "c", "d")
	assert.Equal(t, []string{"a", "b", "c"}, e.Fields())
	e.AddGrouping("d")
	assert.Len(t, e.Fields(), 3)
	e.RemoveGrouping("b")
	assert.Equal(t, []string{"a", "c"}, e.Fields())
	e.ClearGrouping()
	assert.False(t, e.Active())
	assert.Nil(t, e.Build(testSales(), nil))
	assert.Equal(t, 3, calls)
}

func TestExpandState(t *testing.T) {
	e := newEngine()
	expands := 0
	e.OnExpand(func() { expands++ })
	e.SetGrouping("region", "product")
	roots := e.Build(testSales(), nil)

	for _, r := range roots {
		assert.True(t, r.Expanded)
	}

	e.ExpandToLevel(1)
	assert.True(t, roots[0].Expanded)
	assert.False(t, roots[0].Children[0].Expanded)

	e.CollapseAll()
	assert.False(t, roots[0].Expanded)
	assert.Equal(t, 1, roots[0].Height())

	e.Toggle(roots[0])
	assert.True(t, roots[0].Expanded)
	assert.Equal(t, 3, expands)

	// Rebuilding keeps the toggled group open and the rest collapsed.
	roots = e.Build(testSales(), nil)
	assert.True(t, roots[0].Expanded)
	assert.False(t, roots[1].Expanded)
	assert.False(t, roots[0].Children[0].Expanded)
	assert.Same(t, roots[0], e.Find(roots[0].Path()))

	// Changing the grouped fields resets expand state.
	e.SetGrouping("product")
	roots = e.Build(testSales(), nil)
	for _, r := range roots {
		assert.True(t, r.Expanded)
	}
}

func TestComputeAggregatesCombinesUpward(t *testing.T) {
	resolver := items.NewResolver(items.MapAccessor{})
	e := NewEngine(resolver)
	agg := aggregates.NewEngine(resolver, language.English)
	reqs := []aggregates.Request{
		{Field: "amount", Function: aggregates.Sum},
		{Field: "amount", Function: aggregates.Max},
		{Field: "amount", Function: aggregates.Count},
	}

	e.SetGrouping("region", "product")
	roots := e.Build(testSales(), nil)
	e.ComputeAggregates(agg, reqs)

	for _, r := range roots {
		r.Walk(func(n *Node) {
			want := agg.Compute(n.Leaves(), reqs)
			assert.Equal(t, want, n.Aggregates, "group %s", n.Path())
		})
	}
	west := roots[0]
	require.Len(t, west.Aggregates, 3)
	assert.Equal(t, 10.0, west.Aggregates[0].Value)
	assert.Equal(t, 6.0, west.Aggregates[1].Value)
	assert.Equal(t, int64(3), west.Aggregates[2].Value)
}
