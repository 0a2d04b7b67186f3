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
	"slices"
	"strconv"
	"strings"

	"github.com/google/safehtml"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/google/vgrid/core/aggregates"
	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/grouping"
	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/sorting"
)

// Links builds the URLs a renderer attaches to headers and group rows.
// A nil Links leaves every URL empty.
type Links interface {
	SortURL(field string) safehtml.URL
	GroupURL(field string) safehtml.URL
	ToggleURL(groupPath string) safehtml.URL
}

// WindowViewModel contains the realized part of a grid formatted for template
// consumption.
type WindowViewModel struct {
	Title       string
	Columns     []ColumnHeader // Visible columns, frozen first
	FrozenCount int
	Rows        []RowViewModel // One per realized entry, in entry order
	Summary     []SummaryCell  // Aligned with Columns; empty cells have no text
	HasSummary  bool
	Search      string

	SourceItems  int // Items in the source
	VisibleItems int // Items passing the filters
	TotalEntries int // Headers plus data rows
	First        int // First realized entry, -1 when empty
	Last         int // Last realized entry, -1 when empty

	ScrollOffset   float64
	ViewportHeight float64
	Extent         float64
	TotalWidth     float64

	// Set by the page handler, not by BuildWindowViewModel.
	PrevURL      safehtml.URL
	NextURL      safehtml.URL
	HasPrev      bool
	HasNext      bool
	RenderTimeMs string
	Timing       []TimingEntry
}

// TimingEntry is one measured step of handling a request.
type TimingEntry struct {
	Operation  string
	DurationMs string
}

// ColumnHeader describes one visible column.
type ColumnHeader struct {
	Field        string
	Header       string
	Width        float64
	Alignment    string
	Frozen       bool
	SortDir      string // "asc", "desc" or empty
	SortPriority int    // 1-based position among sort keys, 0 when unsorted
	Grouped      bool
	Filtered     bool
	SortURL      safehtml.URL
	GroupURL     safehtml.URL
}

// RowViewModel is one realized entry.
type RowViewModel struct {
	Index    int
	ID       string // Row handle id
	IsGroup  bool
	Level    int
	Selected bool
	Current  bool
	Cells    []Cell // Data rows only

	// Group headers only
	Header     string
	Count      int
	Expanded   bool
	Aggregates string
	ToggleURL  safehtml.URL
}

// Cell is the display text of one field of a data row.
type Cell struct {
	Field     string
	Text      string
	Alignment string
}

// SummaryCell is the formatted summary of one column.
type SummaryCell struct {
	Field string
	Text  string
}

// WindowInput holds what BuildWindowViewModel reads. Entries is the whole
// flat sequence; only First..Last is rendered.
type WindowInput struct {
	Title    string
	Columns  *columns.Set
	Entries  []Entry
	First    int
	Last     int
	Resolver *items.Resolver

	Sort     []sorting.SortKey
	Grouped  []string
	Filtered []string
	Search   string
	Summary  []aggregates.Result

	IsSelected func(items.Item) bool
	Current    items.Item
	RowID      func(index int) string
	Links      Links
	Language   language.Tag

	SourceItems    int
	VisibleItems   int
	ScrollOffset   float64
	ViewportHeight float64
	Extent         float64
}

// BuildWindowViewModel creates a WindowViewModel from the state of a window.
func BuildWindowViewModel(in WindowInput) WindowViewModel {
	vm := WindowViewModel{
		Title:          in.Title,
		Search:         in.Search,
		SourceItems:    in.SourceItems,
		VisibleItems:   in.VisibleItems,
		TotalEntries:   len(in.Entries),
		First:          -1,
		Last:           -1,
		ScrollOffset:   in.ScrollOffset,
		ViewportHeight: in.ViewportHeight,
		Extent:         in.Extent,
	}
	printer := message.NewPrinter(in.Language)

	var visible []*columns.Column
	if in.Columns != nil {
		visible = in.Columns.Visible()
		vm.FrozenCount = len(in.Columns.Frozen())
		vm.TotalWidth = in.Columns.TotalWidth()
	}
	for i, c := range visible {
		h := ColumnHeader{
			Field:     c.Field,
			Header:    c.Header,
			Width:     c.ActualWidth(),
			Alignment: c.Alignment.String(),
			Frozen:    i < vm.FrozenCount,
			Grouped:   slices.Contains(in.Grouped, c.Field),
			Filtered:  slices.Contains(in.Filtered, c.Field),
		}
		for p, k := range in.Sort {
			if k.Field == c.Field {
				h.SortDir = k.Direction.String()
				h.SortPriority = p + 1
			}
		}
		if in.Links != nil {
			if c.CanSort {
				h.SortURL = in.Links.SortURL(c.Field)
			}
			h.GroupURL = in.Links.GroupURL(c.Field)
		}
		vm.Columns = append(vm.Columns, h)
	}

	if len(in.Entries) > 0 && in.First >= 0 && in.Last >= in.First {
		vm.First = in.First
		vm.Last = min(in.Last, len(in.Entries)-1)
		vm.Rows = make([]RowViewModel, 0, vm.Last-vm.First+1)
		for i := vm.First; i <= vm.Last; i++ {
			vm.Rows = append(vm.Rows, buildRow(in, printer, visible, in.Entries[i]))
		}
	}

	if len(in.Summary) > 0 {
		vm.HasSummary = true
		vm.Summary = make([]SummaryCell, len(visible))
		for i, c := range visible {
			vm.Summary[i].Field = c.Field
			var parts []string
			for _, r := range in.Summary {
				if r.Field == c.Field {
					parts = append(parts, r.Formatted)
				}
			}
			vm.Summary[i].Text = strings.Join(parts, " ")
		}
	}
	return vm
}

func buildRow(in WindowInput, p *message.Printer, visible []*columns.Column, e Entry) RowViewModel {
	row := RowViewModel{
		Index:   e.Index,
		IsGroup: e.IsGroup(),
		Level:   e.Level,
	}
	if in.RowID != nil {
		row.ID = in.RowID(e.Index)
	}
	if e.IsGroup() {
		fillGroupRow(&row, e.Group, in.Links)
		return row
	}
	if in.IsSelected != nil {
		row.Selected = in.IsSelected(e.Item)
	}
	if in.Current != nil {
		row.Current = items.Same(in.Current, e.Item)
	}
	row.Cells = make([]Cell, len(visible))
	for i, c := range visible {
		row.Cells[i] = Cell{
			Field:     c.Field,
			Text:      CellText(in.Resolver, p, c, e.Item),
			Alignment: c.Alignment.String(),
		}
	}
	return row
}

func fillGroupRow(row *RowViewModel, n *grouping.Node, links Links) {
	row.Count = n.ItemCount()
	row.Header = n.DisplayText() + " (" + strconv.Itoa(row.Count) + ")"
	row.Expanded = n.Expanded
	parts := make([]string, 0, len(n.Aggregates))
	for _, r := range n.Aggregates {
		parts = append(parts, r.Function.String()+" "+r.Field+": "+r.Formatted)
	}
	row.Aggregates = strings.Join(parts, ", ")
	if links != nil {
		row.ToggleURL = links.ToggleURL(n.Path())
	}
}

// CellText returns the display text of c for item. Numeric values use the
// column format when one is set; unreadable values render empty.
func CellText(r *items.Resolver, p *message.Printer, c *columns.Column, item items.Item) string {
	if r == nil {
		return ""
	}
	v, err := r.Value(item, c.Field)
	if err != nil || columns.IsNull(v) {
		return ""
	}
	if c.Format != "" {
		if f, ok := columns.ToFloat(v); ok {
			return aggregates.FormatWith(p, c.Format, f)
		}
	}
	return columns.FormatValue(v)
}
