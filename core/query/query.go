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

// Package query maps the view state of a grid to and from URL query
// parameters:
//
//	columns=id,region:120,amount   visible columns in order, optional widths
//	sort=amount:desc,id            sort keys, ascending unless ":desc"
//	grouped=region,status          grouped fields, outermost first
//	filter:region=eq:West          one predicate per field, "<op>:<value>"
//	search=text                    global search
//	toggle=<path>                  a group whose expand state was flipped; repeated
//	offset=640                     vertical scroll offset
//	viewport=480                   viewport height
package query

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/google/safehtml"

	"github.com/google/vgrid/core/sorting"
)

// Query represents the parsed state of a grid view URL
type Query struct {
	// Base path (e.g., "/view")
	Path string

	Source         string            // Name of the item source being viewed
	Columns        []string          // Ordered list of visible columns (reordered: filtered, grouped, then others)
	ColumnWidths   map[string]int    // Column widths in pixels (columnName -> width)
	GroupedColumns []string          // Ordered list of columns to group by
	Sort           []sorting.SortKey // Sort keys in priority order
	Filters        map[string]string // Column filters (columnName -> "<op>:<value>")
	Search         string            // Global search text
	Toggled        []string          // Group paths whose default expand state is flipped
	Offset         int               // Vertical scroll offset in pixels
	Viewport       int               // Viewport height in pixels, 0 for the server default
}

// NewQuery creates a Query from a URL
func NewQuery(u *url.URL) *Query {
	state := &Query{
		Path:         u.Path,
		Filters:      make(map[string]string),
		ColumnWidths: make(map[string]int),
	}

	q := u.Query()
	state.Source = q.Get("source")
	state.Search = q.Get("search")

	// Extract columns parameter (format: col1:width,col2,col3:width)
	state.Columns = []string{}
	if columnsStr := q.Get("columns"); columnsStr != "" {
		for _, part := range strings.Split(columnsStr, ",") {
			if colonIdx := strings.LastIndex(part, ":"); colonIdx != -1 {
				colName := part[:colonIdx]
				if width, err := strconv.Atoi(part[colonIdx+1:]); err == nil && width > 0 {
					state.Columns = append(state.Columns, colName)
					state.ColumnWidths[colName] = width
					continue
				}
			}
			// No or invalid width, treat the whole thing as column name
			state.Columns = append(state.Columns, part)
		}
	}

	state.GroupedColumns = splitList(q.Get("grouped"))
	state.Toggled = append([]string{}, q["toggle"]...)

	for _, part := range splitList(q.Get("sort")) {
		key := sorting.SortKey{Field: part, Direction: sorting.Ascending}
		if field, dir, ok := strings.Cut(part, ":"); ok {
			key.Field = field
			if dir == "desc" {
				key.Direction = sorting.Descending
			}
		}
		if key.Field != "" {
			state.Sort = append(state.Sort, key)
		}
	}

	state.Offset = atoiNonNegative(q.Get("offset"))
	state.Viewport = atoiNonNegative(q.Get("viewport"))

	// Extract filter parameters (format: filter:columnName=value)
	for key, values := range q {
		if strings.HasPrefix(key, "filter:") && len(values) > 0 {
			columnName := strings.TrimPrefix(key, "filter:")
			state.Filters[columnName] = values[0]
		}
	}

	// Reorder columns: filtered columns first, then grouped columns, then others
	state.reorderColumns()

	return state
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func atoiNonNegative(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Clone creates a deep copy of the Query
func (s *Query) Clone() *Query {
	clone := &Query{
		Path:           s.Path,
		Source:         s.Source,
		Columns:        slices.Clone(s.Columns),
		ColumnWidths:   make(map[string]int, len(s.ColumnWidths)),
		GroupedColumns: slices.Clone(s.GroupedColumns),
		Sort:           slices.Clone(s.Sort),
		Filters:        make(map[string]string, len(s.Filters)),
		Search:         s.Search,
		Toggled:        slices.Clone(s.Toggled),
		Offset:         s.Offset,
		Viewport:       s.Viewport,
	}
	for colName, width := range s.ColumnWidths {
		clone.ColumnWidths[colName] = width
	}
	for colName, filterValue := range s.Filters {
		clone.Filters[colName] = filterValue
	}
	return clone
}

// reorderColumns reorders the Columns slice to maintain:
// 1. Filtered columns (leftmost) - only columns that are filtered but NOT grouped
// 2. Grouped columns (middle) - in GroupedColumns order (the grouping hierarchy)
// 3. Other columns (rightmost)
// Note: A column can be both filtered and grouped simultaneously. In this case,
// it stays in the grouped section to preserve the grouping display position.
func (s *Query) reorderColumns() {
	if len(s.Columns) == 0 {
		return
	}

	visibleCols := make(map[string]bool)
	for _, colName := range s.Columns {
		visibleCols[colName] = true
	}

	var filtered, others []string
	for _, colName := range s.Columns {
		if slices.Contains(s.GroupedColumns, colName) {
			// Skip - will add from GroupedColumns in their order
			continue
		} else if _, ok := s.Filters[colName]; ok {
			filtered = append(filtered, colName)
		} else {
			others = append(others, colName)
		}
	}

	var grouped []string
	for _, colName := range s.GroupedColumns {
		if visibleCols[colName] {
			grouped = append(grouped, colName)
		}
	}

	s.Columns = make([]string, 0, len(filtered)+len(grouped)+len(others))
	s.Columns = append(s.Columns, filtered...)
	s.Columns = append(s.Columns, grouped...)
	s.Columns = append(s.Columns, others...)
}

// ToURL converts the Query back to a URL string
func (s *Query) ToURL() string {
	u := &url.URL{Path: s.Path}
	q := u.Query()

	if s.Source != "" {
		q.Set("source", s.Source)
	}

	// Add columns parameter (with widths if present)
	if len(s.Columns) > 0 {
		columnStrs := make([]string, 0, len(s.Columns))
		for _, col := range s.Columns {
			if width, hasWidth := s.ColumnWidths[col]; hasWidth {
				columnStrs = append(columnStrs, col+":"+strconv.Itoa(width))
			} else {
				columnStrs = append(columnStrs, col)
			}
		}
		q.Set("columns", strings.Join(columnStrs, ","))
	}

	if len(s.GroupedColumns) > 0 {
		q.Set("grouped", strings.Join(s.GroupedColumns, ","))
	}

	if len(s.Sort) > 0 {
		keys := make([]string, 0, len(s.Sort))
		for _, k := range s.Sort {
			if k.Direction == sorting.Descending {
				keys = append(keys, k.Field+":desc")
			} else {
				keys = append(keys, k.Field)
			}
		}
		q.Set("sort", strings.Join(keys, ","))
	}

	for colName, filterValue := range s.Filters {
		if filterValue != "" {
			q.Set("filter:"+colName, filterValue)
		}
	}

	if s.Search != "" {
		q.Set("search", s.Search)
	}
	for _, path := range s.Toggled {
		q.Add("toggle", path)
	}
	if s.Offset > 0 {
		q.Set("offset", strconv.Itoa(s.Offset))
	}
	if s.Viewport > 0 {
		q.Set("viewport", strconv.Itoa(s.Viewport))
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// ToSafeURL converts the Query to a safehtml.URL
func (s *Query) ToSafeURL() safehtml.URL {
	return safehtml.URLSanitized(s.ToURL())
}

// IsColumnVisible checks if a column is in the visible columns list
func (s *Query) IsColumnVisible(column string) bool {
	return slices.Contains(s.Columns, column)
}

// IsColumnGrouped checks if a column is in the grouped columns list
func (s *Query) IsColumnGrouped(column string) bool {
	return slices.Contains(s.GroupedColumns, column)
}

// WithColumnToggled returns a URL with the column toggled (added if not present, removed if present)
func (s *Query) WithColumnToggled(column string) safehtml.URL {
	newState := s.Clone()
	if i := slices.Index(newState.Columns, column); i >= 0 {
		newState.Columns = slices.Delete(newState.Columns, i, i+1)
	} else {
		newState.Columns = append(newState.Columns, column)
	}
	return newState.ToSafeURL()
}

// WithColumnWidth returns a URL with the width of column set.
func (s *Query) WithColumnWidth(column string, width int) safehtml.URL {
	newState := s.Clone()
	if width > 0 {
		newState.ColumnWidths[column] = width
	} else {
		delete(newState.ColumnWidths, column)
	}
	return newState.ToSafeURL()
}

// WithSortToggled returns a URL that cycles the sort of column through
// ascending, descending and unsorted. Other sort keys are dropped.
func (s *Query) WithSortToggled(column string) safehtml.URL {
	newState := s.Clone()
	var current *sorting.SortKey
	for i := range s.Sort {
		if s.Sort[i].Field == column {
			current = &s.Sort[i]
		}
	}
	switch {
	case current == nil:
		newState.Sort = []sorting.SortKey{{Field: column, Direction: sorting.Ascending}}
	case current.Direction == sorting.Ascending:
		newState.Sort = []sorting.SortKey{{Field: column, Direction: sorting.Descending}}
	default:
		newState.Sort = nil
	}
	newState.Offset = 0
	return newState.ToSafeURL()
}

// WithGroupedColumnToggled returns a URL with the grouped column toggled
// If the column is already grouped, it's removed from grouping
// If the column is not grouped, it's added to the end of the grouping order
// This method also reorders the Columns list to ensure grouped columns appear first
func (s *Query) WithGroupedColumnToggled(column string) safehtml.URL {
	newState := s.Clone()
	if i := slices.Index(newState.GroupedColumns, column); i >= 0 {
		newState.GroupedColumns = slices.Delete(newState.GroupedColumns, i, i+1)
	} else {
		newState.GroupedColumns = append(newState.GroupedColumns, column)
	}
	// Expand state belongs to the old grouping
	newState.Toggled = nil
	newState.Offset = 0
	newState.reorderColumns()
	return newState.ToSafeURL()
}

// WithFilter returns a URL with the filter of column set to value
// ("<op>:<value>"). An empty value removes the filter.
func (s *Query) WithFilter(column, value string) safehtml.URL {
	newState := s.Clone()
	if value == "" {
		delete(newState.Filters, column)
	} else {
		newState.Filters[column] = value
	}
	newState.Offset = 0
	newState.reorderColumns()
	return newState.ToSafeURL()
}

// WithFilterAndUngrouped returns a URL that adds a filter for the column and removes it from grouping
func (s *Query) WithFilterAndUngrouped(column, value string) safehtml.URL {
	newState := s.Clone()
	newState.Filters[column] = value
	if i := slices.Index(newState.GroupedColumns, column); i >= 0 {
		newState.GroupedColumns = slices.Delete(newState.GroupedColumns, i, i+1)
		newState.Toggled = nil
	}
	newState.Offset = 0
	newState.reorderColumns()
	return newState.ToSafeURL()
}

// WithSearch returns a URL with the global search text replaced.
func (s *Query) WithSearch(text string) safehtml.URL {
	newState := s.Clone()
	newState.Search = text
	newState.Offset = 0
	return newState.ToSafeURL()
}

// WithOffset returns a URL scrolled to offset.
func (s *Query) WithOffset(offset int) safehtml.URL {
	newState := s.Clone()
	newState.Offset = max(0, offset)
	return newState.ToSafeURL()
}

// WithToggled returns a URL with the expand state of the group at path
// flipped.
func (s *Query) WithToggled(path string) safehtml.URL {
	newState := s.Clone()
	if i := slices.Index(newState.Toggled, path); i >= 0 {
		newState.Toggled = slices.Delete(newState.Toggled, i, i+1)
	} else {
		newState.Toggled = append(newState.Toggled, path)
	}
	return newState.ToSafeURL()
}

// SortURL, GroupURL and ToggleURL let a Query serve as the links of a
// window view model.

func (s *Query) SortURL(field string) safehtml.URL {
	return s.WithSortToggled(field)
}

func (s *Query) GroupURL(field string) safehtml.URL {
	return s.WithGroupedColumnToggled(field)
}

func (s *Query) ToggleURL(path string) safehtml.URL {
	return s.WithToggled(path)
}
