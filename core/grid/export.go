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
	"slices"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/views"
)

// ExportOptions selects what Snapshot copies.
type ExportOptions struct {
	// VisibleRowsOnly exports the filtered items in view order. Otherwise
	// every source item is exported, in sort order when a sort is set.
	VisibleRowsOnly bool
	IncludeHeaders  bool
	IncludeSummary  bool
	// Limit caps the number of items; 0 means no limit.
	Limit int
}

// ExportColumn describes one exported field.
type ExportColumn struct {
	Field  string
	Header string
	Format string
}

// Export is a copy of grid state that may be handed to another goroutine.
type Export struct {
	Columns []ExportColumn
	Items   []items.Item
	Summary []aggregates.Result
}

// Snapshot copies the items, column metadata and summary selected by opts.
// The returned slices are not shared with the grid.
func (g *Grid) Snapshot(opts ExportOptions) Export {
	var out Export
	if opts.VisibleRowsOnly {
		out.Items = slices.Clone(g.sorted)
		if opts.Limit > 0 && len(out.Items) > opts.Limit {
			out.Items = out.Items[:opts.Limit:opts.Limit]
		}
	} else {
		all := g.source.Snapshot()
		switch {
		case opts.Limit > 0 && len(g.sorter.Keys()) > 0:
			out.Items = g.sorter.TopK(all, opts.Limit)
		case len(g.sorter.Keys()) > 0:
			out.Items = g.sorter.Sort(all)
		default:
			out.Items = all
			if opts.Limit > 0 && len(all) > opts.Limit {
				out.Items = all[:opts.Limit:opts.Limit]
			}
		}
	}
	if out.Items == nil {
		out.Items = []items.Item{}
	}

	if opts.IncludeHeaders {
		for _, c := range g.columns.Visible() {
			out.Columns = append(out.Columns, ExportColumn{Field: c.Field, Header: c.Header, Format: c.Format})
		}
	}
	if opts.IncludeSummary {
		out.Summary = slices.Clone(g.summary)
	}
	g.logger.Debug("snapshot", "items", len(out.Items), "visible_only", opts.VisibleRowsOnly)
	return out
}

// ViewModel builds the view model of the realized rows. links may be nil.
func (g *Grid) ViewModel(links views.Links) views.WindowViewModel {
	start, end := g.window.Range()
	var filtered []string
	for _, p := range g.filter.Filters() {
		filtered = append(filtered, p.Field)
	}
	return views.BuildWindowViewModel(views.WindowInput{
		Title:      g.title,
		Columns:    g.columns,
		Entries:    g.entries,
		First:      start,
		Last:       end,
		Resolver:   g.resolver,
		Sort:       g.sorter.Keys(),
		Grouped:    g.grouper.Fields(),
		Filtered:   filtered,
		Search:     g.filter.GlobalSearch(),
		Summary:    g.summary,
		IsSelected: g.selection.IsSelected,
		Current:    g.current,
		RowID: func(i int) string {
			if r := g.window.RowAt(i); r != nil {
				return r.ID.String()
			}
			return ""
		},
		Links:          links,
		Language:       g.lang,
		SourceItems:    g.source.Len(),
		VisibleItems:   len(g.sorted),
		ScrollOffset:   g.window.ScrollOffset(),
		ViewportHeight: g.window.ViewportHeight(),
		Extent:         g.window.Extent(),
	})
}
