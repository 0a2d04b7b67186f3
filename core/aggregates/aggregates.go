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

// Package aggregates computes summary values (count, sum, average, min, max)
// over item sequences. Intermediate State values can be combined up a
// grouping hierarchy, so aggregates are computed once at leaf level and
// merged into parent groups.
package aggregates

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/vgrid/core/columns"
)

// Function is an aggregate function.
type Function int

const (
	Sum Function = iota
	Average
	Count
	Min
	Max
)

var functionNames = []string{"sum", "avg", "count", "min", "max"}

func (f Function) String() string {
	if int(f) >= 0 && int(f) < len(functionNames) {
		return functionNames[f]
	}
	return "unknown"
}

// ParseFunction maps "sum", "avg" (or "average"), "count", "min" and "max"
// to a Function.
func ParseFunction(s string) (Function, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "average" {
		return Average, nil
	}
	for i, name := range functionNames {
		if name == s {
			return Function(i), nil
		}
	}
	return Sum, fmt.Errorf("unknown aggregate function %q", s)
}

// State stores intermediate aggregate state for one field.
// Numeric text is parsed. Values that are missing or not numeric count as
// items (and as 0 for the sum) but are excluded from min and max.
type State struct {
	Count   int64   // Number of items
	Numeric int64   // Number of numeric values
	Sum     float64 // Sum of numeric values
	Min     float64 // Minimum numeric value
	Max     float64 // Maximum numeric value
}

// NewState creates a new empty aggregate state.
func NewState() *State {
	return &State{
		Min: math.Inf(1),
		Max: math.Inf(-1),
	}
}

// Add adds one field value to the state.
func (s *State) Add(value any) {
	s.Count++
	f, ok := columns.ParseNumber(value)
	if !ok || math.IsNaN(f) {
		return
	}
	s.Numeric++
	s.Sum += f
	if f < s.Min {
		s.Min = f
	}
	if f > s.Max {
		s.Max = f
	}
}

// AddMissing records an item whose field could not be read.
func (s *State) AddMissing() {
	s.Count++
}

// Combine merges another state into this one.
func (s *State) Combine(o *State) {
	if o == nil || o.Count == 0 {
		return
	}
	s.Count += o.Count
	s.Numeric += o.Numeric
	s.Sum += o.Sum
	if o.Min < s.Min {
		s.Min = o.Min
	}
	if o.Max > s.Max {
		s.Max = o.Max
	}
}

// Value returns the result of f, or false when f has no result for this
// state: Average on no items, Min and Max on no numeric values.
func (s *State) Value(f Function) (any, bool) {
	switch f {
	case Count:
		return s.Count, true
	case Sum:
		return s.Sum, true
	case Average:
		if s.Count == 0 {
			return nil, false
		}
		return s.Sum / float64(s.Count), true
	case Min:
		if s.Numeric == 0 {
			return nil, false
		}
		return s.Min, true
	case Max:
		if s.Numeric == 0 {
			return nil, false
		}
		return s.Max, true
	}
	return nil, false
}

// formatNumber formats a float64 for display, using appropriate precision.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	// Show up to 2 decimal places, trimming trailing zeros
	formatted := fmt.Sprintf("%.2f", v)
	formatted = strings.TrimRight(formatted, "0")
	return strings.TrimSuffix(formatted, ".")
}
