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

package virtualization

import (
	"slices"

	"github.com/google/uuid"

	"github.com/google/vgrid/core/views"
)

// Row is a recyclable handle bound to at most one entry at a time. Its ID
// is stable for the lifetime of the handle, across rebinds.
type Row struct {
	ID         uuid.UUID
	Index      int
	Entry      views.Entry
	Top        float64
	Height     float64
	Generation uint64
	bound      bool
}

// Bound reports whether the row is currently bound to an entry.
func (r *Row) Bound() bool {
	return r.bound
}

// Binder is implemented by renderers. Bind is called after a row has been
// attached to an entry, Unbind before it is returned to the free list.
type Binder interface {
	Bind(row *Row)
	Unbind(row *Row)
}

// Stats counts row handles.
type Stats struct {
	Realized int // bound to an entry
	Free     int // waiting for reuse
	Created  int // allocated over the lifetime of the pool
	Reused   int // binds served from the free list
}

// pool owns every row handle of a window. Realized rows are keyed by entry
// index; released rows go to a free list and are rebound before any new row
// is allocated.
type pool struct {
	realized map[int]*Row
	free     []*Row
	created  int
	reused   int
}

func newPool() *pool {
	return &pool{realized: make(map[int]*Row)}
}

func (p *pool) acquire() *Row {
	if n := len(p.free); n > 0 {
		r := p.free[n-1]
		p.free = p.free[:n-1]
		p.reused++
		return r
	}
	p.created++
	return &Row{ID: uuid.New()}
}

func (p *pool) release(r *Row) {
	r.bound = false
	r.Entry = views.Entry{}
	r.Index = -1
	p.free = append(p.free, r)
}

// sorted returns the realized rows ordered by index.
func (p *pool) sorted() []*Row {
	out := make([]*Row, 0, len(p.realized))
	for _, r := range p.realized {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *Row) int { return a.Index - b.Index })
	return out
}

func (p *pool) stats() Stats {
	return Stats{
		Realized: len(p.realized),
		Free:     len(p.free),
		Created:  p.created,
		Reused:   p.reused,
	}
}
