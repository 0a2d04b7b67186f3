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

package views

import (
	"fmt"
	"testing"

	"github.com/google/safehtml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/grouping"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/sorting"
)

func rows(n int) []items.Item {
	out := make([]items.Item, n)
	for i := range out {
		out[i] = map[string]any{
			"id":     i,
			"region": fmt.Sprintf("R%d", i%10),
			"tier":   fmt.Sprintf("T%d", i%3),
			"amount": float64(i),
		}
	}
	return out
}

func TestComposeFlat(t *testing.T) {
	in := rows(4)
	got := Compose(in, nil, false)
	require.Len(t, got, 4)
	for i, e := range got {
		assert.Equal(t, DataRow, e.Kind)
		assert.Equal(t, i, e.Index)
		assert.Equal(t, 0, e.Level)
		assert.True(t, items.Same(in[i], e.Item))
	}
	assert.Empty(t, Compose(nil, nil, false))
}

func TestComposeGrouped(t *testing.T) {
	g := grouping.NewEngine(items.NewResolver(items.MapAccessor{}))
	g.SetGrouping("region", "tier")
	roots := g.Build(rows(30), nil)

	got := Compose(nil, roots, true)
	want := 0
	for _, r := range roots {
		want += r.Height()
	}
	require.Len(t, got, want)
	assert.Equal(t, GroupHeader, got[0].Kind)
	assert.Equal(t, 0, got[0].Level)
	assert.Equal(t, GroupHeader, got[1].Kind)
	assert.Equal(t, 1, got[1].Level)
	assert.Equal(t, DataRow, got[2].Kind)
	assert.Equal(t, 2, got[2].Level)
	for i, e := range got {
		assert.Equal(t, i, e.Index)
	}
	assert.Len(t, DataItems(got), 30)
}

func TestComposeIsIdempotent(t *testing.T) {
	g := grouping.NewEngine(items.NewResolver(items.MapAccessor{}))
	g.SetGrouping("region")
	in := rows(50)
	roots := g.Build(in, nil)
	g.SetExpanded(roots[3], false)

	first := Compose(in, roots, true)
	second := Compose(in, roots, true)
	assert.Equal(t, first, second)
	assert.Equal(t, Compose(in, nil, false), Compose(in, nil, false))
}

func TestCollapseRemovesExactlyDescendants(t *testing.T) {
	g := grouping.NewEngine(items.NewResolver(items.MapAccessor{}))
	g.SetGrouping("region", "tier")
	roots := g.Build(rows(500), nil)
	before := Compose(nil, roots, true)

	target := roots[4]
	at := IndexOfGroup(before, target)
	require.GreaterOrEqual(t, at, 0)
	descendants := target.Height() - 1

	g.SetExpanded(target, false)
	after := Compose(nil, roots, true)

	require.Len(t, after, len(before)-descendants)
	for i := 0; i <= at; i++ {
		assert.Equal(t, before[i].Kind, after[i].Kind)
		assert.Equal(t, before[i].Item, after[i].Item)
		assert.Same(t, before[i].Group, after[i].Group)
	}
	for i := at + 1; i < len(after); i++ {
		old := before[i+descendants]
		assert.Equal(t, old.Kind, after[i].Kind)
		assert.Equal(t, old.Item, after[i].Item)
		assert.Same(t, old.Group, after[i].Group)
	}
}

func TestIndexOf(t *testing.T) {
	in := rows(5)
	entries := Compose(in, nil, false)
	assert.Equal(t, 3, IndexOf(entries, in[3]))
	assert.Equal(t, -1, IndexOf(entries, map[string]any{"id": 3}))
	assert.Equal(t, -1, IndexOfGroup(entries, &grouping.Node{}))
}

type fakeLinks struct{}

func (fakeLinks) SortURL(field string) safehtml.URL  { return safehtml.URLSanitized("/?sort=" + field) }
func (fakeLinks) GroupURL(field string) safehtml.URL { return safehtml.URLSanitized("/?grouped=" + field) }
func (fakeLinks) ToggleURL(p string) safehtml.URL    { return safehtml.URLSanitized("/?toggle=1") }

func TestBuildWindowViewModel(t *testing.T) {
	resolver := items.NewResolver(items.MapAccessor{})
	cols := columns.NewSet(
		columns.NewColumn("region", "Region"),
		columns.NewColumn("amount", "Amount"),
	)
	cols.ByField("amount").Format = "F1"
	cols.ByField("amount").Alignment = columns.AlignRight
	cols.SetFrozenCount(1)

	g := grouping.NewEngine(resolver)
	g.SetGrouping("region")
	in := rows(20)
	roots := g.Build(in, nil)
	agg := aggregates.NewEngine(resolver, language.English)
	reqs := []aggregates.Request{{Field: "amount", Function: aggregates.Sum}}
	g.ComputeAggregates(agg, reqs)
	entries := Compose(in, roots, true)

	vm := BuildWindowViewModel(WindowInput{
		Title:      "orders",
		Columns:    cols,
		Entries:    entries,
		First:      0,
		Last:       4,
		Resolver:   resolver,
		Sort:       []sorting.SortKey{{Field: "amount", Direction: sorting.Descending}},
		Grouped:    []string{"region"},
		Summary:    agg.Compute(in, reqs),
		IsSelected: func(it items.Item) bool { return items.Same(it, in[10]) },
		RowID:      func(i int) string { return fmt.Sprintf("row-%d", i) },
		Links:      fakeLinks{},
		Language:   language.English,
	})

	require.Len(t, vm.Columns, 2)
	assert.True(t, vm.Columns[0].Frozen)
	assert.True(t, vm.Columns[0].Grouped)
	assert.Equal(t, "desc", vm.Columns[1].SortDir)
	assert.Equal(t, 1, vm.Columns[1].SortPriority)
	assert.Equal(t, "/?sort=amount", vm.Columns[1].SortURL.String())

	require.Len(t, vm.Rows, 5)
	header := vm.Rows[0]
	assert.True(t, header.IsGroup)
	assert.Equal(t, "region: R0 (2)", header.Header)
	assert.Equal(t, "sum amount: 10", header.Aggregates)
	assert.Equal(t, "row-0", header.ID)

	data := vm.Rows[1]
	assert.False(t, data.IsGroup)
	assert.Equal(t, "R0", data.Cells[0].Text)
	assert.Equal(t, "0.0", data.Cells[1].Text)
	assert.Equal(t, "right", data.Cells[1].Alignment)
	assert.True(t, vm.Rows[2].Selected)

	require.True(t, vm.HasSummary)
	assert.Equal(t, "", vm.Summary[0].Text)
	assert.Equal(t, "190", vm.Summary[1].Text)
}

func TestBuildWindowViewModelEmpty(t *testing.T) {
	vm := BuildWindowViewModel(WindowInput{First: 0, Last: -1})
	assert.Equal(t, -1, vm.First)
	assert.Equal(t, -1, vm.Last)
	assert.Empty(t, vm.Rows)
	assert.False(t, vm.HasSummary)
}
