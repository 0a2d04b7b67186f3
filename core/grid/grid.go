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

// Package grid wires the engines of a view into one pipeline:
//
//	source -> filter -> sort -> group -> aggregate -> compose -> window
//
// Every change goes through Invalidate, which reruns the steps after the one
// that changed. A Grid is not safe for concurrent use.
package grid

import (
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/filtering"
	"github.com/google/vgrid/core/grouping"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/selection"
	"github.com/google/vgrid/core/sorting"
	"github.com/google/vgrid/core/views"
	"github.com/google/vgrid/core/virtualization"
)

// Grid is the materialized view of an item source.
type Grid struct {
	logger  *slog.Logger
	title   string
	lang    language.Tag
	source  *items.Source
	columns *columns.Set

	resolver  *items.Resolver
	sorter    *sorting.Engine
	filter    *filtering.Engine
	grouper   *grouping.Engine
	agg       *aggregates.Engine
	selection *selection.Model
	window    *virtualization.Window

	unsubscribe func()

	// Pipeline outputs.
	filtered []items.Item
	sorted   []items.Item
	summary  []aggregates.Result
	entries  []views.Entry
	current  items.Item

	dirty      stage
	refreshing bool
	followUp   bool
	batchDepth int
	refreshes  int
}

// New creates a Grid over source, reading fields through accessor, and
// builds the initial view.
func New(source *items.Source, accessor items.Accessor, opts ...Option) *Grid {
	cfg := config{
		logger:        slog.New(slog.DiscardHandler),
		lang:          language.English,
		selectionMode: selection.Extended,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.columns == nil {
		cfg.columns = columns.NewSet()
	}

	resolver := items.NewResolver(accessor)
	g := &Grid{
		logger:    cfg.logger,
		title:     cfg.title,
		lang:      cfg.lang,
		source:    source,
		columns:   cfg.columns,
		resolver:  resolver,
		sorter:    sorting.NewEngine(resolver),
		filter:    filtering.NewEngine(resolver),
		grouper:   grouping.NewEngine(resolver),
		agg:       aggregates.NewEngine(resolver, cfg.lang),
		selection: selection.NewModel(cfg.selectionMode),
		window:    virtualization.NewWindow(cfg.window...),
		dirty:     stageAll,
	}
	g.agg.SetDefaultFormat(cfg.numericFormat)
	g.filter.SetSearchFields(cfg.columns.Fields())

	g.sorter.OnChange(func() { g.Invalidate(ReasonSort) })
	g.filter.OnChange(func() { g.Invalidate(ReasonFilter) })
	g.grouper.OnChange(func() { g.Invalidate(ReasonGrouping) })
	g.grouper.OnExpand(func() { g.Invalidate(ReasonExpand) })
	g.agg.OnChange(func() { g.Invalidate(ReasonAggregates) })
	g.unsubscribe = source.Subscribe(g.onSourceChange)

	g.refresh(ReasonSource)
	return g
}

// Close stops listening to the source.
func (g *Grid) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
}

func (g *Grid) onSourceChange(c items.Change) {
	if c.Kind == items.ChangeReset {
		g.resolver.Reset()
	}
	g.logger.Debug("source changed", "kind", c.Kind, "items", len(c.Items))
	g.Invalidate(ReasonSource)
}

// Invalidate marks the steps affected by reason as stale and rebuilds them.
// Inside Batch the rebuild waits until the outermost Batch returns. An
// Invalidate issued while a rebuild is running does not rebuild; its steps
// run in one follow-up rebuild after the running one, and invalidations
// issued during that follow-up are dropped.
func (g *Grid) Invalidate(reason Reason) {
	if g.refreshing {
		if g.followUp {
			g.logger.Debug("nested invalidate ignored", "reason", reason)
			return
		}
		g.logger.Debug("nested invalidate deferred", "reason", reason)
		g.dirty |= reason.stages()
		return
	}
	g.dirty |= reason.stages()
	if g.batchDepth > 0 {
		return
	}
	g.refresh(reason)
}

// Refresh rebuilds the whole view.
func (g *Grid) Refresh() {
	g.Invalidate(ReasonSource)
}

// Batch runs fn and rebuilds once afterwards, however many changes fn made.
func (g *Grid) Batch(fn func()) {
	g.batchDepth++
	defer func() {
		g.batchDepth--
		if g.batchDepth == 0 && g.dirty != 0 {
			g.refresh(ReasonSource)
		}
	}()
	fn()
}

func (g *Grid) refresh(reason Reason) {
	if g.refreshing || g.dirty == 0 {
		return
	}
	g.refreshing = true
	defer func() {
		g.refreshing = false
		g.followUp = false
	}()

	g.rebuild(reason)
	if g.dirty != 0 {
		g.followUp = true
		g.rebuild(reason)
	}
}

func (g *Grid) rebuild(reason Reason) {
	start := time.Now()
	dirty := g.dirty
	g.dirty = 0

	if dirty.has(stageFilter) {
		all := g.source.Snapshot()
		g.filtered = g.filter.Apply(all)
		g.selection.Retain(all)
	}
	if dirty.has(stageSort) {
		g.sorted = g.sorter.Sort(g.filtered)
	}
	if dirty.has(stageGroup) {
		g.grouper.Build(g.sorted, g.sorter.Direction)
	}
	if dirty.has(stageAggregate) {
		reqs := g.agg.Requests()
		g.summary = g.agg.Compute(g.sorted, reqs)
		g.grouper.ComputeAggregates(g.agg, reqs)
	}
	if dirty.has(stageCompose) {
		g.entries = views.Compose(g.sorted, g.grouper.Roots(), g.grouper.Active())
		// Rows inside collapsed groups are out of range selection and Status.
		g.selection.SetOrder(views.DataItems(g.entries))
		g.window.SetEntries(g.entries)
	}
	if dirty.has(stageWindow) {
		g.window.Update()
	}
	g.refreshes++

	g.logger.Debug("refresh",
		"reason", reason,
		"follow_up", g.followUp,
		"items", len(g.filtered),
		"entries", len(g.entries),
		"realized", g.window.Stats().Realized,
		"elapsed", time.Since(start))
}

// Refreshes returns the number of rebuilds run so far.
func (g *Grid) Refreshes() int {
	return g.refreshes
}

// Title returns the grid title.
func (g *Grid) Title() string { return g.title }

// Source returns the item source.
func (g *Grid) Source() *items.Source { return g.source }

// Resolver returns the field resolver shared by the engines.
func (g *Grid) Resolver() *items.Resolver { return g.resolver }

// Columns returns the column model.
func (g *Grid) Columns() *columns.Set { return g.columns }

// Sorting returns the sort engine. Changes to it rebuild the view.
func (g *Grid) Sorting() *sorting.Engine { return g.sorter }

// Filtering returns the filter engine. Changes to it rebuild the view.
func (g *Grid) Filtering() *filtering.Engine { return g.filter }

// Grouping returns the group engine. Changes to it rebuild the view.
func (g *Grid) Grouping() *grouping.Engine { return g.grouper }

// Aggregates returns the aggregate engine. Changes to its requests recompute
// the summary and group aggregates.
func (g *Grid) Aggregates() *aggregates.Engine { return g.agg }

// Selection returns the selection model.
func (g *Grid) Selection() *selection.Model { return g.selection }

// Window returns the virtualization window.
func (g *Grid) Window() *virtualization.Window { return g.window }

// Items returns the filtered items in sort order.
func (g *Grid) Items() []items.Item { return g.sorted }

// Entries returns the flat entry sequence.
func (g *Grid) Entries() []views.Entry { return g.entries }

// Summary returns the aggregates over all filtered items.
func (g *Grid) Summary() []aggregates.Result { return g.summary }

// SummaryFor returns the summary results of field.
func (g *Grid) SummaryFor(field string) []aggregates.Result {
	var out []aggregates.Result
	for _, r := range g.summary {
		if r.Field == field {
			out = append(out, r)
		}
	}
	return out
}

// Current returns the item navigation last moved to, or nil.
func (g *Grid) Current() items.Item { return g.current }

// SetScrollOffset scrolls the window and realizes the rows now in range.
func (g *Grid) SetScrollOffset(y float64) {
	g.window.SetScrollOffset(y)
	g.Invalidate(ReasonViewport)
}

// SetViewportHeight resizes the window viewport.
func (g *Grid) SetViewportHeight(h float64) {
	g.window.SetViewportSize(h)
	g.Invalidate(ReasonViewport)
}

// ScrollBy scrolls the window by delta.
func (g *Grid) ScrollBy(delta float64) {
	g.window.ScrollBy(delta)
	g.Invalidate(ReasonViewport)
}

// ScrollTo scrolls the data row of item to the top of the viewport. It
// reports whether the item is shown.
func (g *Grid) ScrollTo(item items.Item) bool {
	if !g.window.ScrollTo(item) {
		return false
	}
	g.Invalidate(ReasonViewport)
	return true
}

// ToggleGroup flips the expand state of the group whose header is entry i.
func (g *Grid) ToggleGroup(i int) {
	if i < 0 || i >= len(g.entries) || !g.entries[i].IsGroup() {
		return
	}
	g.grouper.Toggle(g.entries[i].Group)
}

// ToggleGroupPath flips the expand state of the group with the given path.
func (g *Grid) ToggleGroupPath(path string) {
	if n := g.grouper.Find(path); n != nil {
		g.grouper.Toggle(n)
	}
}
