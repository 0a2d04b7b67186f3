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

// Package virtualization computes which part of a flat entry sequence
// intersects the viewport and keeps row handles bound to exactly that part,
// plus a small buffer on each side.
//
// The number of live handles depends on the viewport size and the buffer,
// never on the number of entries.
package virtualization

import (
	"math"

	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/views"
)

const (
	DefaultBufferCount = 5
	DefaultRowHeight   = 32
)

// HeightFunc returns the height of the data row of item. Non-positive
// results fall back to the row height.
type HeightFunc func(item items.Item) float64

// Option configures a Window.
type Option func(*Window)

// WithBufferCount sets the number of entries realized beyond each edge of the
// viewport. Negative values are treated as 0.
func WithBufferCount(n int) Option {
	return func(w *Window) { w.buffer = max(0, n) }
}

// WithRowHeight sets the height of data rows.
func WithRowHeight(h float64) Option {
	return func(w *Window) {
		if validHeight(h) {
			w.rowHeight = h
		}
	}
}

// WithHeaderHeight sets the height of group headers. It defaults to the row
// height.
func WithHeaderHeight(h float64) Option {
	return func(w *Window) {
		if validHeight(h) {
			w.headerHeight = h
		}
	}
}

// WithHeightFunc gives data rows individual heights.
func WithHeightFunc(fn HeightFunc) Option {
	return func(w *Window) { w.heightFn = fn }
}

// WithBinder sets the renderer notified when rows are bound and unbound.
func WithBinder(b Binder) Option {
	return func(w *Window) { w.binder = b }
}

// WithViewport sets the initial viewport height.
func WithViewport(h float64) Option {
	return func(w *Window) { w.viewport = nonNegative(h) }
}

func validHeight(h float64) bool {
	return h > 0 && !math.IsInf(h, 0)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// Window is the virtualization state of one grid: the entry sequence, the
// scroll offset and viewport height, and the realized rows.
type Window struct {
	entries []views.Entry
	layout  layout

	offset   float64
	viewport float64

	buffer       int
	rowHeight    float64
	headerHeight float64
	heightFn     HeightFunc

	binder     Binder
	pool       *pool
	generation uint64
	start, end int
}

// NewWindow creates an empty Window.
func NewWindow(opts ...Option) *Window {
	w := &Window{
		buffer:    DefaultBufferCount,
		rowHeight: DefaultRowHeight,
		pool:      newPool(),
		end:       -1,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.headerHeight == 0 {
		w.headerHeight = w.rowHeight
	}
	w.layout = w.newLayout()
	return w
}

func (w *Window) newLayout() layout {
	if w.heightFn == nil && w.headerHeight == w.rowHeight {
		return fixedLayout{n: len(w.entries), h: w.rowHeight}
	}
	return newPrefixLayout(w.entries, w.entryHeight)
}

func (w *Window) entryHeight(e views.Entry) float64 {
	if e.Kind == views.GroupHeader {
		return w.headerHeight
	}
	if w.heightFn != nil {
		if h := w.heightFn(e.Item); validHeight(h) {
			return h
		}
	}
	return w.rowHeight
}

// SetEntries replaces the entry sequence and starts a new generation. Every
// realized row is unbound and returned to the free list; call Update to
// realize the new visible range. The scroll offset is clamped to the new
// extent.
func (w *Window) SetEntries(entries []views.Entry) {
	w.releaseAll()
	w.entries = entries
	w.generation++
	w.layout = w.newLayout()
	w.offset = w.clampOffset(w.offset)
}

func (w *Window) releaseAll() {
	for _, r := range w.pool.sorted() {
		w.unbind(r)
	}
	w.start, w.end = 0, -1
}

// Entries returns the current entry sequence.
func (w *Window) Entries() []views.Entry {
	return w.entries
}

// Len returns the number of entries.
func (w *Window) Len() int {
	return len(w.entries)
}

// Generation is incremented by every SetEntries.
func (w *Window) Generation() uint64 {
	return w.generation
}

// Extent is the total height of all entries.
func (w *Window) Extent() float64 {
	return w.layout.extent()
}

// ScrollOffset returns the current vertical scroll offset.
func (w *Window) ScrollOffset() float64 {
	return w.offset
}

// ViewportHeight returns the current viewport height.
func (w *Window) ViewportHeight() float64 {
	return w.viewport
}

// BufferCount returns the number of entries realized beyond each edge.
func (w *Window) BufferCount() int {
	return w.buffer
}

// RowHeight returns the data row height.
func (w *Window) RowHeight() float64 {
	return w.rowHeight
}

func (w *Window) maxOffset() float64 {
	return math.Max(0, w.layout.extent()-w.viewport)
}

func (w *Window) clampOffset(y float64) float64 {
	if math.IsNaN(y) {
		return 0
	}
	return math.Max(0, math.Min(y, w.maxOffset()))
}

// SetScrollOffset moves the viewport, clamped to [0, Extent()-viewport].
func (w *Window) SetScrollOffset(y float64) {
	w.offset = w.clampOffset(y)
}

// SetViewportSize sets the viewport height. Negative sizes are treated as 0.
func (w *Window) SetViewportSize(h float64) {
	w.viewport = nonNegative(h)
	w.offset = w.clampOffset(w.offset)
}

// ScrollBy moves the viewport by delta.
func (w *Window) ScrollBy(delta float64) {
	w.SetScrollOffset(w.offset + delta)
}

// LineUp scrolls up by one row height.
func (w *Window) LineUp() { w.ScrollBy(-w.rowHeight) }

// LineDown scrolls down by one row height.
func (w *Window) LineDown() { w.ScrollBy(w.rowHeight) }

// PageUp scrolls up by one viewport height.
func (w *Window) PageUp() { w.ScrollBy(-w.viewport) }

// PageDown scrolls down by one viewport height.
func (w *Window) PageDown() { w.ScrollBy(w.viewport) }

// ViewportRows is the maximum number of entries that can intersect the
// viewport at any offset.
func (w *Window) ViewportRows() int {
	h := w.layout.minHeight()
	if w.viewport <= 0 || math.IsInf(h, 0) || h <= 0 {
		return 1
	}
	return int(math.Ceil(w.viewport/h)) + 1
}

// VisibleRange returns the inclusive range of entries to realize: the first
// entry whose bottom edge is below the scroll offset through the last entry
// whose top edge is above the bottom of the viewport, widened by the buffer
// count and clamped to the sequence. An empty sequence gives (0, -1).
//
// The range ends at the last entry that starts above the viewport bottom,
// not at the first entry starting at or past it. An entry whose top equals
// offset+viewport has no visible pixel, so it is left to the buffer.
func (w *Window) VisibleRange() (start, end int) {
	n := w.layout.len()
	if n == 0 {
		return 0, -1
	}
	first := min(w.layout.first(w.offset), n-1)
	last := first
	if w.viewport > 0 {
		last = max(first, w.layout.last(w.offset+w.viewport))
	}
	return max(0, first-w.buffer), min(n-1, last+w.buffer)
}

// Reconcile makes the realized rows match [start, end]. Rows outside the
// range are unbound and freed; indices in the range without a row are bound,
// reusing freed rows before allocating new ones.
func (w *Window) Reconcile(start, end int) {
	n := len(w.entries)
	start = max(0, start)
	end = min(end, n-1)

	for idx, r := range w.pool.realized {
		if idx < start || idx > end {
			w.unbind(r)
		}
	}
	for i := start; i <= end; i++ {
		if _, ok := w.pool.realized[i]; ok {
			continue
		}
		w.bind(w.pool.acquire(), i)
	}
	w.start, w.end = start, end
	checkWindow(w)
}

func (w *Window) bind(r *Row, i int) {
	r.Index = i
	r.Entry = w.entries[i]
	r.Top = w.layout.top(i)
	r.Height = w.layout.height(i)
	r.Generation = w.generation
	r.bound = true
	w.pool.realized[i] = r
	if w.binder != nil {
		w.binder.Bind(r)
	}
}

func (w *Window) unbind(r *Row) {
	if w.binder != nil {
		w.binder.Unbind(r)
	}
	delete(w.pool.realized, r.Index)
	w.pool.release(r)
}

// Update reconciles the realized rows with VisibleRange and returns it.
func (w *Window) Update() (start, end int) {
	start, end = w.VisibleRange()
	w.Reconcile(start, end)
	return start, end
}

// Range returns the range of the last Reconcile.
func (w *Window) Range() (start, end int) {
	return w.start, w.end
}

// Realized returns the bound rows ordered by index.
func (w *Window) Realized() []*Row {
	return w.pool.sorted()
}

// RowAt returns the row bound to entry i, or nil.
func (w *Window) RowAt(i int) *Row {
	return w.pool.realized[i]
}

// Stats reports the handle counts of the pool.
func (w *Window) Stats() Stats {
	return w.pool.stats()
}

// Top returns the top edge of entry i.
func (w *Window) Top(i int) float64 {
	return w.layout.top(i)
}

// ScrollTo scrolls so that the data row of item is at the top of the
// viewport, as far as the extent allows. It reports whether the item was
// found.
func (w *Window) ScrollTo(item items.Item) bool {
	i := views.IndexOf(w.entries, item)
	if i < 0 {
		return false
	}
	w.SetScrollOffset(w.layout.top(i))
	return true
}

// EnsureVisible scrolls the least distance that brings entry i fully into
// the viewport.
func (w *Window) EnsureVisible(i int) {
	if i < 0 || i >= w.layout.len() {
		return
	}
	top := w.layout.top(i)
	bottom := top + w.layout.height(i)
	switch {
	case top < w.offset:
		w.SetScrollOffset(top)
	case bottom > w.offset+w.viewport:
		w.SetScrollOffset(bottom - w.viewport)
	}
}
