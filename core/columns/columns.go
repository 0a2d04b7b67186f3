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

// Package columns holds the column model of a grid view and the value
// comparison and formatting rules shared by the sort, filter and group engines.
package columns

import (
	"math"
	"slices"
)

// Default column geometry.
const (
	DefaultWidth    = 100.0
	DefaultMinWidth = 30.0
)

// Alignment of cell content within a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return "left"
}

// ParseAlignment maps "left", "center" and "right" to an Alignment.
// Unknown names are left aligned.
func ParseAlignment(s string) Alignment {
	switch s {
	case "center":
		return AlignCenter
	case "right":
		return AlignRight
	}
	return AlignLeft
}

// Column describes one displayed field.
type Column struct {
	Field  string // must not contain any of the following characters: & = : ,
	Header string

	Width    float64
	MinWidth float64
	MaxWidth float64 // 0 means unbounded

	Visible     bool
	CanSort     bool
	CanFilter   bool
	ReadOnly    bool
	ShowSummary bool

	// Format is an optional display format for cell values and the summary.
	Format    string
	Alignment Alignment
}

// NewColumn creates a visible, sortable and filterable column with default width.
// An empty header defaults to the field name.
func NewColumn(field, header string) *Column {
	if header == "" {
		header = field
	}
	return &Column{
		Field:     field,
		Header:    header,
		Width:     DefaultWidth,
		MinWidth:  DefaultMinWidth,
		Visible:   true,
		CanSort:   true,
		CanFilter: true,
	}
}

// ActualWidth is the width clamped to [MinWidth, MaxWidth].
func (c *Column) ActualWidth() float64 {
	w := c.Width
	if math.IsNaN(w) || w < 0 {
		w = 0
	}
	maxW := c.MaxWidth
	if maxW <= 0 {
		maxW = math.Inf(1)
	}
	minW := math.Max(0, c.MinWidth)
	if minW > maxW {
		minW = maxW
	}
	return math.Min(math.Max(w, minW), maxW)
}

// Set is the ordered collection of columns of a view, with a count of
// leading frozen (non-scrolling) columns.
type Set struct {
	columns []*Column
	frozen  int
}

// NewSet creates a Set from the given columns, in order.
func NewSet(cols ...*Column) *Set {
	return &Set{columns: slices.Clone(cols)}
}

// Len returns the number of columns.
func (s *Set) Len() int {
	return len(s.columns)
}

// All returns the columns in display order.
func (s *Set) All() []*Column {
	return s.columns
}

// Add appends a column.
func (s *Set) Add(c *Column) {
	s.columns = append(s.columns, c)
}

// Remove removes the column bound to field. It reports whether one was removed.
func (s *Set) Remove(field string) bool {
	i := s.indexOf(field)
	if i < 0 {
		return false
	}
	s.columns = slices.Delete(s.columns, i, i+1)
	s.frozen = min(s.frozen, len(s.columns))
	return true
}

// Move moves the column bound to field to position to (clamped).
func (s *Set) Move(field string, to int) bool {
	i := s.indexOf(field)
	if i < 0 {
		return false
	}
	c := s.columns[i]
	s.columns = slices.Delete(s.columns, i, i+1)
	to = max(0, min(to, len(s.columns)))
	s.columns = slices.Insert(s.columns, to, c)
	return true
}

// ByField returns the column bound to field, or nil.
func (s *Set) ByField(field string) *Column {
	if i := s.indexOf(field); i >= 0 {
		return s.columns[i]
	}
	return nil
}

func (s *Set) indexOf(field string) int {
	return slices.IndexFunc(s.columns, func(c *Column) bool { return c.Field == field })
}

// SetVisible shows or hides a column.
func (s *Set) SetVisible(field string, visible bool) {
	if c := s.ByField(field); c != nil {
		c.Visible = visible
	}
}

// SetWidth sets a column's requested width. Negative widths become zero;
// ActualWidth applies the min/max clamp.
func (s *Set) SetWidth(field string, width float64) {
	if c := s.ByField(field); c != nil {
		c.Width = math.Max(0, width)
	}
}

// SetFrozenCount sets the number of leading frozen columns, clamped to
// [0, Len()].
func (s *Set) SetFrozenCount(n int) {
	s.frozen = max(0, min(n, len(s.columns)))
}

// FrozenCount returns the number of leading frozen columns.
func (s *Set) FrozenCount() int {
	return s.frozen
}

// Visible returns the visible columns in display order.
func (s *Set) Visible() []*Column {
	var out []*Column
	for _, c := range s.columns {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// Frozen returns the visible columns within the frozen prefix.
func (s *Set) Frozen() []*Column {
	var out []*Column
	for _, c := range s.columns[:s.frozen] {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// Scrollable returns the visible columns after the frozen prefix.
func (s *Set) Scrollable() []*Column {
	var out []*Column
	for _, c := range s.columns[s.frozen:] {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// TotalWidth sums the actual widths of the visible columns.
func (s *Set) TotalWidth() float64 {
	total := 0.0
	for _, c := range s.columns {
		if c.Visible {
			total += c.ActualWidth()
		}
	}
	return total
}

// Fields returns the fields of the visible columns in display order.
func (s *Set) Fields() []string {
	var out []string
	for _, c := range s.columns {
		if c.Visible {
			out = append(out, c.Field)
		}
	}
	return out
}
