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

package filtering

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/vgrid/core/columns"
)

// Operator is the comparison a Predicate applies.
type Operator int

const (
	OpUnknown Operator = iota
	Equals
	NotEquals
	Contains
	StartsWith
	EndsWith
	GreaterThan
	LessThan
	GreaterOrEqual
	LessOrEqual
	IsNull
	IsNotNull
	In
)

var operatorNames = map[Operator]string{
	Equals:         "eq",
	NotEquals:      "ne",
	Contains:       "contains",
	StartsWith:     "prefix",
	EndsWith:       "suffix",
	GreaterThan:    "gt",
	LessThan:       "lt",
	GreaterOrEqual: "ge",
	LessOrEqual:    "le",
	IsNull:         "null",
	IsNotNull:      "notnull",
	In:             "in",
}

// String returns the short name used in URLs and config files.
func (op Operator) String() string {
	if s, ok := operatorNames[op]; ok {
		return s
	}
	return "unknown"
}

// ParseOperator maps a short name (or a symbol such as ">=") to an Operator.
// Unknown names map to OpUnknown, which never excludes an item.
func ParseOperator(s string) Operator {
	switch s {
	case "=", "==":
		return Equals
	case "!=", "<>":
		return NotEquals
	case ">":
		return GreaterThan
	case "<":
		return LessThan
	case ">=":
		return GreaterOrEqual
	case "<=":
		return LessOrEqual
	}
	for op, name := range operatorNames {
		if name == s {
			return op
		}
	}
	return OpUnknown
}

// Predicate is a per-column filter condition.
type Predicate struct {
	Field         string
	Operator      Operator
	Value         string
	Values        []string // In only; "(null)" matches nil values
	CaseSensitive bool
}

// match evaluates the predicate against a successfully read value.
// fold is applied to both sides of string comparisons unless the predicate
// is case sensitive.
func (p Predicate) match(v any, fold func(string) string) bool {
	switch p.Operator {
	case IsNull:
		return columns.IsNull(v)
	case IsNotNull:
		return !columns.IsNull(v)
	case In:
		if columns.IsNull(v) {
			return slices.Contains(p.Values, columns.NullText)
		}
		s := p.normalize(columns.FormatValue(v), fold)
		return slices.ContainsFunc(p.Values, func(c string) bool { return p.normalize(c, fold) == s })
	case OpUnknown:
		return true
	}

	if columns.IsNull(v) {
		return false
	}

	s := p.normalize(columns.FormatValue(v), fold)
	want := p.normalize(p.Value, fold)
	switch p.Operator {
	case Equals:
		return s == want
	case NotEquals:
		return s != want
	case Contains:
		return strings.Contains(s, want)
	case StartsWith:
		return strings.HasPrefix(s, want)
	case EndsWith:
		return strings.HasSuffix(s, want)
	}

	cmp, ok := compareTyped(v, p.Value)
	if !ok {
		cmp = strings.Compare(s, want)
	}
	switch p.Operator {
	case GreaterThan:
		return cmp > 0
	case LessThan:
		return cmp < 0
	case GreaterOrEqual:
		return cmp >= 0
	case LessOrEqual:
		return cmp <= 0
	}
	return true
}

func (p Predicate) normalize(s string, fold func(string) string) string {
	if p.CaseSensitive || fold == nil {
		return s
	}
	return fold(s)
}

// compareTyped compares v with the filter text parsed as v's runtime type.
// It reports false when v is not number, time, duration or bool typed, or
// when the text does not parse as that type.
func compareTyped(v any, text string) (int, bool) {
	text = strings.TrimSpace(text)
	switch columns.KindOf(v) {
	case columns.KindNumber:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, false
		}
		fv, _ := columns.ToFloat(v)
		return columns.CompareValues(fv, f), true
	case columns.KindTime:
		tv := v.(time.Time)
		t, err := columns.ParseDatetime(text, tv.Location())
		if err != nil {
			return 0, false
		}
		return columns.CompareValues(tv, t), true
	case columns.KindDuration:
		d, err := columns.ParseDuration(text)
		if err != nil {
			return 0, false
		}
		return columns.CompareValues(v, d), true
	case columns.KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return 0, false
		}
		return columns.CompareValues(v, b), true
	}
	return 0, false
}
