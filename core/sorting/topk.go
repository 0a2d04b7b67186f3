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

package sorting

import (
	"container/heap"
	"slices"

	"github.com/google/vgrid/core/items"
)

// topKHeap implements a max-heap for top-K selection.
// To keep the smallest K elements we keep the worst of them on top:
// a new element that beats the top replaces it.
type topKHeap struct {
	entries []decorated
	engine  *Engine
}

func (h *topKHeap) Len() int { return len(h.entries) }

// Less puts the worst element on top of the heap.
func (h *topKHeap) Less(i, j int) bool {
	return h.compare(h.entries[i], h.entries[j]) > 0
}

func (h *topKHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *topKHeap) Push(x any) {
	h.entries = append(h.entries, x.(decorated))
}

func (h *topKHeap) Pop() any {
	old := h.entries
	n := len(old)
	x := old[n-1]
	h.entries = old[0 : n-1]
	return x
}

// compare orders by the sort keys, then by input position so the result
// matches the stable full sort.
func (h *topKHeap) compare(a, b decorated) int {
	if c := h.engine.compareDecorated(a, b); c != 0 {
		return c
	}
	return a.pos - b.pos
}

// TopK returns the first k items of Sort(in) without sorting the whole input.
// Uses heap-based selection: O(n log k) instead of O(n log n).
func (e *Engine) TopK(in []items.Item, k int) []items.Item {
	if len(in) == 0 || k <= 0 {
		return []items.Item{}
	}
	if len(e.keys) == 0 {
		return slices.Clone(in[:min(k, len(in))])
	}
	if k >= len(in) {
		return e.Sort(in)
	}

	dec := e.decorate(in)
	h := &topKHeap{entries: make([]decorated, 0, k), engine: e}
	h.entries = append(h.entries, dec[:k]...)
	heap.Init(h)

	for _, d := range dec[k:] {
		if h.compare(d, h.entries[0]) < 0 {
			h.entries[0] = d
			heap.Fix(h, 0)
		}
	}

	result := h.entries
	slices.SortFunc(result, h.compare)
	out := make([]items.Item, len(result))
	for i, d := range result {
		out[i] = d.item
	}
	return out
}
