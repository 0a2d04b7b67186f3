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

package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/filtering"
	"github.com/google/vgrid/core/grid"
	"github.com/google/vgrid/core/grouping"
)

// ErrUnknownOperator is returned for filters whose operator is not known.
var ErrUnknownOperator = errors.New("unknown filter operator")

// ParseFilter parses a filter value of the form "<op>:<value>". A value
// without a known operator prefix is a case-insensitive Contains filter.
// The In operator takes values separated by '|'.
func ParseFilter(field, value string) (filtering.Predicate, error) {
	p := filtering.Predicate{Field: field, Operator: filtering.Contains, Value: value}
	name, rest, found := strings.Cut(value, ":")
	if !found {
		switch op := filtering.ParseOperator(value); op {
		case filtering.IsNull, filtering.IsNotNull:
			p.Operator, p.Value = op, ""
		}
		return p, nil
	}
	op := filtering.ParseOperator(name)
	if op == filtering.OpUnknown {
		if isOperatorLike(name) {
			return p, fmt.Errorf("filter on %q: %w %q", field, ErrUnknownOperator, name)
		}
		return p, nil
	}
	p.Operator = op
	p.Value = rest
	if op == filtering.In {
		p.Value = ""
		p.Values = strings.Split(rest, "|")
	}
	return p, nil
}

// isOperatorLike reports whether s looks like an operator name rather than
// the start of a value such as "12:30".
func isOperatorLike(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// FormatFilter is the inverse of ParseFilter.
func FormatFilter(p filtering.Predicate) string {
	switch p.Operator {
	case filtering.IsNull, filtering.IsNotNull:
		return p.Operator.String()
	case filtering.In:
		return p.Operator.String() + ":" + strings.Join(p.Values, "|")
	}
	return p.Operator.String() + ":" + p.Value
}

// Apply replaces the view state of g with the state of the query, in one
// rebuild. Columns unknown to g are ignored. Filters that cannot be parsed
// are skipped and reported in the returned error.
func (s *Query) Apply(g *grid.Grid) error {
	var errs []error
	g.Batch(func() {
		cols := g.Columns()
		if len(s.Columns) > 0 {
			for _, c := range cols.All() {
				cols.SetVisible(c.Field, slices.Contains(s.Columns, c.Field))
			}
			at := 0
			for _, field := range s.Columns {
				if cols.Move(field, at) {
					at++
				}
			}
		}
		for field, width := range s.ColumnWidths {
			cols.SetWidth(field, float64(width))
		}

		g.Sorting().SetKeys(s.Sort)

		f := g.Filtering()
		f.ClearAll()
		fields := make([]string, 0, len(s.Filters))
		for field := range s.Filters {
			fields = append(fields, field)
		}
		slices.Sort(fields)
		for _, field := range fields {
			p, err := ParseFilter(field, s.Filters[field])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			f.SetFilter(p)
		}
		f.SetGlobalSearch(s.Search)

		if !slices.Equal(g.Grouping().Fields(), s.GroupedColumns) {
			g.Grouping().SetGrouping(s.GroupedColumns...)
		}
		if s.Viewport > 0 {
			g.SetViewportHeight(float64(s.Viewport))
		}
	})

	// Groups exist only after the rebuild above.
	g.Batch(func() {
		g.Grouping().ExpandAll()
		for _, path := range s.Toggled {
			g.ToggleGroupPath(path)
		}
		g.SetScrollOffset(float64(s.Offset))
	})
	return errors.Join(errs...)
}

// FromGrid captures the view state of g as a Query rooted at path.
func FromGrid(g *grid.Grid, path, source string) *Query {
	q := &Query{
		Path:         path,
		Source:       source,
		Columns:      []string{},
		ColumnWidths: make(map[string]int),
		Filters:      make(map[string]string),
		Sort:         g.Sorting().Keys(),
		Search:       g.Filtering().GlobalSearch(),
		Offset:       int(g.Window().ScrollOffset()),
	}
	for _, c := range g.Columns().Visible() {
		q.Columns = append(q.Columns, c.Field)
		if c.Width != columns.DefaultWidth {
			q.ColumnWidths[c.Field] = int(c.Width)
		}
	}
	q.GroupedColumns = g.Grouping().Fields()
	for _, p := range g.Filtering().Filters() {
		q.Filters[p.Field] = FormatFilter(p)
	}
	for _, r := range g.Grouping().Roots() {
		r.Walk(func(n *grouping.Node) {
			if !n.Expanded {
				q.Toggled = append(q.Toggled, n.Path())
			}
		})
	}
	return q
}
