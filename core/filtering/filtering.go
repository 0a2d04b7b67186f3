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

// Package filtering decides which items of a source are part of a view.
//
// An item passes when every per-column predicate matches and, if a global
// search text is set, at least one search field contains it. Filtering fails
// open: a field that cannot be read never excludes an item.
package filtering

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/items"
)

// Engine holds the per-column predicates and the global search of a view.
type Engine struct {
	resolver     *items.Resolver
	filters      map[string]Predicate
	order        []string
	search       string
	searchFields []string
	folder       cases.Caser
	onChange     func()
}

// NewEngine creates an Engine that reads fields through resolver.
func NewEngine(resolver *items.Resolver) *Engine {
	return &Engine{
		resolver: resolver,
		filters:  make(map[string]Predicate),
		folder:   cases.Fold(),
	}
}

// OnChange registers fn to be called after every mutation.
func (e *Engine) OnChange(fn func()) {
	e.onChange = fn
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

func (e *Engine) fold(s string) string {
	return e.folder.String(s)
}

// SetFilter installs p as the predicate of p.Field, replacing any previous one.
func (e *Engine) SetFilter(p Predicate) {
	if p.Field == "" {
		return
	}
	if _, ok := e.filters[p.Field]; !ok {
		e.order = append(e.order, p.Field)
	}
	p.Values = slices.Clone(p.Values)
	e.filters[p.Field] = p
	e.changed()
}

// ClearFilter removes the predicate on field.
func (e *Engine) ClearFilter(field string) {
	if _, ok := e.filters[field]; !ok {
		return
	}
	delete(e.filters, field)
	e.order = slices.DeleteFunc(e.order, func(f string) bool { return f == field })
	e.changed()
}

// ClearAll removes every per-column predicate. The global search is kept.
func (e *Engine) ClearAll() {
	clear(e.filters)
	e.order = e.order[:0]
	e.changed()
}

// HasFilter reports whether field has a predicate.
func (e *Engine) HasFilter(field string) bool {
	_, ok := e.filters[field]
	return ok
}

// Filter returns the predicate on field.
func (e *Engine) Filter(field string) (Predicate, bool) {
	p, ok := e.filters[field]
	return p, ok
}

// Filters returns the predicates in the order they were first set.
func (e *Engine) Filters() []Predicate {
	out := make([]Predicate, 0, len(e.order))
	for _, f := range e.order {
		out = append(out, e.filters[f])
	}
	return out
}

// SetGlobalSearch sets the search text. An empty text disables the search.
func (e *Engine) SetGlobalSearch(text string) {
	if text == e.search {
		return
	}
	e.search = text
	e.changed()
}

// GlobalSearch returns the current search text.
func (e *Engine) GlobalSearch() string {
	return e.search
}

// SetSearchFields sets the fields the global search looks at.
func (e *Engine) SetSearchFields(fields []string) {
	e.searchFields = slices.Clone(fields)
	if e.search != "" {
		e.changed()
	}
}

// Active reports whether any predicate or search is set.
func (e *Engine) Active() bool {
	return len(e.filters) > 0 || e.search != ""
}

// Evaluate reports whether item passes the filters.
func (e *Engine) Evaluate(item items.Item) bool {
	for _, f := range e.order {
		p := e.filters[f]
		v, err := e.resolver.Value(item, p.Field)
		if err != nil {
			continue
		}
		if !p.match(v, e.fold) {
			return false
		}
	}
	return e.matchesSearch(item)
}

// matchesSearch excludes an item only when at least one search field was
// read and none of them contains the search text.
func (e *Engine) matchesSearch(item items.Item) bool {
	if e.search == "" || len(e.searchFields) == 0 {
		return true
	}
	needle := e.fold(e.search)
	read := false
	for _, f := range e.searchFields {
		v, err := e.resolver.Value(item, f)
		if err != nil {
			continue
		}
		read = true
		if columns.IsNull(v) {
			continue
		}
		if strings.Contains(e.fold(columns.FormatValue(v)), needle) {
			return true
		}
	}
	return !read
}

// Apply returns the items of in that pass, in their original order.
func (e *Engine) Apply(in []items.Item) []items.Item {
	if !e.Active() {
		return slices.Clone(in)
	}
	out := make([]items.Item, 0, len(in))
	for _, it := range in {
		if e.Evaluate(it) {
			out = append(out, it)
		}
	}
	return out
}

// DistinctValues lists the distinct display values of field across source,
// for checklist style filters. Nil and missing values are listed as "(null)".
// The result is sorted naturally.
func (e *Engine) DistinctValues(source []items.Item, field string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range source {
		v, err := e.resolver.Value(it, field)
		var s string
		switch {
		case errors.Is(err, items.ErrFieldNotFound):
			s = columns.NullText
		case err != nil:
			continue
		default:
			s = columns.DisplayText(v)
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	slices.SortStableFunc(out, columns.NaturalCompare)
	return out
}
