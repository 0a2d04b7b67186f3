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

package grid

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/filtering"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/selection"
	"github.com/google/vgrid/core/sorting"
	"github.com/google/vgrid/core/views"
	"github.com/google/vgrid/core/virtualization"
)

var regions = []string{"West", "East", "North", "South"}

func orders(n int) []items.Item {
	out := make([]items.Item, n)
	for i := range out {
		out[i] = map[string]any{
			"id":     i,
			"region": regions[i%len(regions)],
			"amount": float64((i * 37) % 101),
		}
	}
	return out
}

func testColumns() *columns.Set {
	return columns.NewSet(
		columns.NewColumn("id", "ID"),
		columns.NewColumn("region", "Region"),
		columns.NewColumn("amount", "Amount"),
	)
}

func newGrid(t *testing.T, n int, opts ...Option) *Grid {
	t.Helper()
	opts = append([]Option{WithColumns(testColumns()), WithViewportHeight(320)}, opts...)
	g := New(items.NewSource(orders(n)), items.MapAccessor{}, opts...)
	t.Cleanup(g.Close)
	return g
}

func ids(in []items.Item) []int {
	out := make([]int, len(in))
	for i, it := range in {
		out[i] = it.(map[string]any)["id"].(int)
	}
	return out
}

func TestInitialBuild(t *testing.T) {
	g := newGrid(t, 100)
	assert.Len(t, g.Items(), 100)
	assert.Len(t, g.Entries(), 100)
	assert.Equal(t, 1, g.Refreshes())
	start, end := g.Window().Range()
	assert.Equal(t, 0, start)
	assert.Equal(t, 14, end)
	assert.Len(t, g.Window().Realized(), 15)
}

func TestEngineChangesRebuild(t *testing.T) {
	g := newGrid(t, 100)

	g.Sorting().ToggleSort("amount", false)
	assert.Equal(t, 2, g.Refreshes())
	got := g.Items()
	for i := 1; i < len(got); i++ {
		prev := got[i-1].(map[string]any)["amount"].(float64)
		assert.LessOrEqual(t, prev, got[i].(map[string]any)["amount"].(float64))
	}

	g.Filtering().SetFilter(filtering.Predicate{Field: "region", Operator: filtering.Equals, Value: "west"})
	assert.Len(t, g.Items(), 25)
	assert.Equal(t, 3, g.Refreshes())

	g.Grouping().SetGrouping("region")
	require.Len(t, g.Entries(), 26)
	assert.True(t, g.Entries()[0].IsGroup())

	g.ToggleGroup(0)
	assert.Len(t, g.Entries(), 1)
	assert.Equal(t, 5, g.Refreshes())
}

func TestBatchRebuildsOnce(t *testing.T) {
	g := newGrid(t, 100)
	g.Batch(func() {
		g.Sorting().ToggleSort("amount", false)
		g.Filtering().SetGlobalSearch("East")
		g.Grouping().SetGrouping("region")
		g.Batch(func() { g.SetScrollOffset(10) })
		assert.Equal(t, 1, g.Refreshes())
	})
	assert.Equal(t, 2, g.Refreshes())
	assert.Len(t, g.Items(), 25)
	assert.Len(t, g.Entries(), 26)
}

type reentrantBinder struct {
	g     *Grid
	binds int
}

func (b *reentrantBinder) Bind(*virtualization.Row) {
	if b.g == nil {
		return
	}
	b.binds++
	b.g.Invalidate(ReasonSource)
	b.g.Sorting().ToggleSort("id", false)
}

func (b *reentrantBinder) Unbind(*virtualization.Row) {}

func TestNestedInvalidateRunsOneFollowUp(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	binder := &reentrantBinder{}
	g := New(items.NewSource(orders(50)), items.MapAccessor{},
		WithLogger(logger), WithViewportHeight(64), WithBinder(binder))
	binder.g = g
	assert.Equal(t, 1, g.Refreshes())

	g.SetScrollOffset(640)
	// The binds of the first rebuild defer a full rebuild; the binds of that
	// follow-up are dropped.
	assert.Equal(t, 3, g.Refreshes())
	assert.Equal(t, 24, binder.binds)
	assert.Contains(t, buf.String(), "nested invalidate deferred")
	assert.Contains(t, buf.String(), "nested invalidate ignored")
	assert.Contains(t, buf.String(), "follow_up=true")
}

type sortFlipper struct {
	g       *Grid
	flipped bool
}

func (b *sortFlipper) Bind(*virtualization.Row) {
	if b.g == nil || b.flipped {
		return
	}
	b.flipped = true
	b.g.Sorting().SetSort("amount", sorting.Descending)
}

func (b *sortFlipper) Unbind(*virtualization.Row) {}

func TestNestedSortChangeIsApplied(t *testing.T) {
	binder := &sortFlipper{}
	g := New(items.NewSource(orders(20)), items.MapAccessor{},
		WithViewportHeight(320), WithBinder(binder))
	binder.g = g

	g.SetScrollOffset(32)
	assert.Equal(t, 3, g.Refreshes())
	got := g.Items()
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].(map[string]any)["amount"].(float64), got[i].(map[string]any)["amount"].(float64))
	}
}

func TestSourceChanges(t *testing.T) {
	g := newGrid(t, 10)
	src := g.Source()
	g.Selection().SelectItem(src.At(3), false, false)

	src.Add(map[string]any{"id": 10, "region": "West", "amount": 5.0})
	assert.Len(t, g.Items(), 11)

	src.RemoveAt(3)
	assert.Len(t, g.Items(), 10)
	assert.Equal(t, 0, g.Selection().Count(), "removed items leave the selection")

	src.Reset(orders(3))
	assert.Len(t, g.Entries(), 3)
	assert.Equal(t, 4, g.Refreshes())

	g.Close()
	src.Add(map[string]any{"id": 99})
	assert.Len(t, g.Items(), 3)
}

func TestSummary(t *testing.T) {
	g := newGrid(t, 4)
	g.Aggregates().SetRequests([]aggregates.Request{
		{Field: "amount", Function: aggregates.Sum},
		{Field: "amount", Function: aggregates.Max},
		{Field: "id", Function: aggregates.Count},
	})
	// amounts: 0, 37, 74, 10
	require.Len(t, g.Summary(), 3)
	sum := g.SummaryFor("amount")
	require.Len(t, sum, 2)
	assert.Equal(t, 121.0, sum[0].Value)
	assert.Equal(t, 74.0, sum[1].Value)
	assert.Empty(t, g.SummaryFor("region"))

	g.Grouping().SetGrouping("region")
	west := g.Entries()[0].Group
	require.NotNil(t, west)
	require.Len(t, west.Aggregates, 3)
	assert.Equal(t, 0.0, west.Aggregates[0].Value)
}

// brokenAmount fails reading "amount" of the order with id 3.
type brokenAmount struct{ items.MapAccessor }

func (b brokenAmount) Get(item items.Item, field string) (any, error) {
	if field == "amount" && item.(map[string]any)["id"] == 3 {
		panic("amount unavailable")
	}
	return b.MapAccessor.Get(item, field)
}

func TestUnreadableFieldFailsOpen(t *testing.T) {
	g := New(items.NewSource(orders(8)), brokenAmount{},
		WithColumns(testColumns()), WithViewportHeight(320))
	t.Cleanup(g.Close)

	// amounts: 0, 37, 74, 10 (unreadable), 47, 84, 20, 57
	g.Filtering().SetFilter(filtering.Predicate{Field: "amount", Operator: filtering.Contains, Value: "7"})
	assert.Equal(t, []int{1, 2, 3, 4, 7}, ids(g.Items()), "unreadable item passes the filter")

	g.Aggregates().SetRequests([]aggregates.Request{
		{Field: "amount", Function: aggregates.Count},
		{Field: "amount", Function: aggregates.Min},
		{Field: "amount", Function: aggregates.Max},
	})
	sum := g.SummaryFor("amount")
	require.Len(t, sum, 3)
	assert.Equal(t, int64(5), sum[0].Value)
	assert.Equal(t, 37.0, sum[1].Value, "unreadable item is excluded from min")
	assert.Equal(t, 74.0, sum[2].Value)
}

func TestMove(t *testing.T) {
	g := newGrid(t, 100)

	first := g.Move(Down, false)
	assert.Equal(t, 0, ids([]items.Item{first})[0])
	g.Move(Down, false)
	g.Move(Down, true)
	assert.Equal(t, []int{1, 2}, ids(g.Selection().Selected()))

	last := g.Move(End, false)
	assert.Equal(t, 99, ids([]items.Item{last})[0])
	assert.Equal(t, 2880.0, g.Window().ScrollOffset())
	_, end := g.Window().Range()
	assert.Equal(t, 99, end)

	g.Move(PageUp, false)
	assert.Equal(t, 90, ids([]items.Item{g.Current()})[0])
	g.Move(Home, false)
	assert.Equal(t, 0.0, g.Window().ScrollOffset())
	assert.Equal(t, []int{0}, ids(g.Selection().Selected()))
}

func TestRangeSelectionSkipsCollapsedRows(t *testing.T) {
	g := newGrid(t, 12)
	g.Grouping().SetGrouping("region")
	require.True(t, g.Entries()[4].IsGroup())
	g.ToggleGroup(4) // collapse East

	rows := views.DataItems(g.Entries())
	require.Len(t, rows, 9)
	g.Selection().SelectItem(rows[0], false, false)
	g.Selection().SelectItem(rows[8], false, true)

	assert.Equal(t, 9, g.Selection().Count())
	for _, it := range g.Selection().Selected() {
		assert.NotEqual(t, "East", it.(map[string]any)["region"])
	}
	assert.Equal(t, selection.All, g.Selection().Status())

	g.ToggleGroup(4) // expand East
	assert.Equal(t, selection.Some, g.Selection().Status())
	g.Selection().SelectAll()
	assert.Equal(t, 12, g.Selection().Count())
}

func TestMoveSkipsCollapsedRows(t *testing.T) {
	g := newGrid(t, 8)
	g.Grouping().SetGrouping("region")
	g.ToggleGroup(0) // collapse West
	item := g.Move(Down, false)
	assert.Equal(t, "East", item.(map[string]any)["region"])
}

func TestSnapshot(t *testing.T) {
	g := newGrid(t, 100)
	g.Sorting().SetSort("amount", sorting.Descending)
	g.Filtering().SetFilter(filtering.Predicate{Field: "region", Operator: filtering.Equals, Value: "East"})

	visible := g.Snapshot(ExportOptions{VisibleRowsOnly: true, IncludeHeaders: true})
	assert.Equal(t, ids(g.Items()), ids(visible.Items))
	require.Len(t, visible.Columns, 3)
	assert.Equal(t, ExportColumn{Field: "region", Header: "Region"}, visible.Columns[1])
	assert.Nil(t, visible.Summary)

	visible.Items[0] = nil
	assert.NotNil(t, g.Items()[0], "snapshots do not alias grid state")

	all := g.Snapshot(ExportOptions{Limit: 7})
	full := g.Sorting().Sort(g.Source().Snapshot())
	assert.Equal(t, ids(full[:7]), ids(all.Items))

	g.Aggregates().SetRequests([]aggregates.Request{{Field: "amount", Function: aggregates.Sum}})
	limited := g.Snapshot(ExportOptions{VisibleRowsOnly: true, Limit: 3, IncludeSummary: true})
	assert.Len(t, limited.Items, 3)
	require.Len(t, limited.Summary, 1)
	assert.Equal(t, g.Summary(), limited.Summary)
}

func TestViewModel(t *testing.T) {
	g := newGrid(t, 100, WithTitle("orders"), WithSelectionMode(selection.Single))
	g.Move(Down, false)
	vm := g.ViewModel(nil)
	assert.Equal(t, "orders", vm.Title)
	assert.Len(t, vm.Rows, 15)
	assert.Len(t, vm.Columns, 3)
	assert.Equal(t, 100, vm.SourceItems)
	assert.True(t, vm.Rows[0].Selected)
	assert.True(t, vm.Rows[0].Current)
	assert.NotEmpty(t, vm.Rows[0].ID)
	assert.Equal(t, g.Window().RowAt(0).ID.String(), vm.Rows[0].ID)
}

func TestReasonString(t *testing.T) {
	for r := ReasonSource; r <= ReasonViewport; r++ {
		assert.NotEqual(t, "unknown", r.String())
	}
	m, err := ParseMovement("PageDown")
	require.NoError(t, err)
	assert.Equal(t, PageDown, m)
	_, err = ParseMovement("sideways")
	assert.Error(t, err)
}

func BenchmarkRefreshSorted(b *testing.B) {
	src := items.NewSource(orders(100_000))
	g := New(src, items.MapAccessor{}, WithViewportHeight(800))
	g.Sorting().ToggleSort("amount", false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Invalidate(ReasonSort)
	}
}

func ExampleGrid_Move() {
	src := items.NewSource([]items.Item{
		map[string]any{"name": "a"},
		map[string]any{"name": "b"},
	})
	g := New(src, items.MapAccessor{}, WithViewportHeight(100))
	g.Move(End, false)
	fmt.Println(strings.ToUpper(g.Current().(map[string]any)["name"].(string)))
	fmt.Println(len(views.DataItems(g.Entries())))
	// Output:
	// B
	// 2
}
