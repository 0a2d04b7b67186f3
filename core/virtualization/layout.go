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
	"math"
	"sort"

	"github.com/google/vgrid/core/views"
)

// layout maps entry indices to vertical positions.
type layout interface {
	len() int
	extent() float64
	top(i int) float64
	height(i int) float64
	minHeight() float64
	// first returns the first index whose bottom edge is below y.
	first(y float64) int
	// last returns the last index whose top edge is above y.
	last(y float64) int
}

// fixedLayout is used when every entry has the same height.
type fixedLayout struct {
	n int
	h float64
}

func (l fixedLayout) len() int { return l.n }
func (l fixedLayout) extent() float64 { return float64(l.n) * l.h }
func (l fixedLayout) top(i int) float64 { return float64(i) * l.h }
func (l fixedLayout) height(int) float64 { return l.h }
func (l fixedLayout) minHeight() float64 { return l.h }

func (l fixedLayout) first(y float64) int {
	if y < 0 {
		return 0
	}
	return min(int(math.Floor(y/l.h)), l.n)
}

func (l fixedLayout) last(y float64) int {
	if y <= 0 {
		return -1
	}
	return min(int(math.Ceil(y/l.h))-1, l.n-1)
}

// prefixLayout stores cumulative heights; prefix[i] is the top of entry i and
// prefix[n] the extent.
type prefixLayout struct {
	prefix []float64
	minH   float64
}

func newPrefixLayout(entries []views.Entry, heightOf func(views.Entry) float64) *prefixLayout {
	l := &prefixLayout{prefix: make([]float64, len(entries)+1), minH: math.Inf(1)}
	for i, e := range entries {
		h := heightOf(e)
		l.minH = math.Min(l.minH, h)
		l.prefix[i+1] = l.prefix[i] + h
	}
	return l
}

func (l *prefixLayout) len() int { return len(l.prefix) - 1 }
func (l *prefixLayout) extent() float64 { return l.prefix[len(l.prefix)-1] }
func (l *prefixLayout) top(i int) float64 { return l.prefix[i] }
func (l *prefixLayout) height(i int) float64 { return l.prefix[i+1] - l.prefix[i] }
func (l *prefixLayout) minHeight() float64 { return l.minH }

func (l *prefixLayout) first(y float64) int {
	n := l.len()
	return sort.Search(n, func(i int) bool { return l.prefix[i+1] > y })
}

func (l *prefixLayout) last(y float64) int {
	n := l.len()
	return sort.Search(n, func(i int) bool { return l.prefix[i] >= y }) - 1
}
