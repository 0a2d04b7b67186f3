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

package columns

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// CompareValues compares two field values.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
//
// Nil is smaller than every non-nil value. Values of the same kind compare by
// value: numbers numerically (NaN after all numbers), times chronologically,
// durations by length, bools false before true and strings naturally. Values
// of different kinds order by kind.
func CompareValues(a, b any) int {
	ka, kb := KindOf(a), KindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}
	switch ka {
	case KindNull:
		return 0
	case KindNumber:
		if ia, ok := toInt64(a); ok {
			if ib, ok := toInt64(b); ok {
				return compareInt64s(ia, ib)
			}
		}
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		return compareFloat64s(fa, fb)
	case KindTime:
		return compareTimes(a.(time.Time), b.(time.Time))
	case KindDuration:
		return compareDurations(a.(time.Duration), b.(time.Duration))
	case KindBool:
		ba, _ := a.(bool)
		bb, _ := b.(bool)
		return compareBools(ba, bb)
	case KindString:
		if sa, ok := a.(string); ok {
			if sb, ok := b.(string); ok {
				return NaturalCompare(sa, sb)
			}
		}
	}
	return NaturalCompare(FormatValue(a), FormatValue(b))
}

// NaturalCompare compares strings the way a person would: case-insensitively,
// with runs of digits compared by numeric value, so "Item 2" < "Item 10".
func NaturalCompare(a, b string) int {
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			da, restA := digitRun(a)
			db, restB := digitRun(b)
			if c := compareDigitRuns(da, db); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		ra, wa := utf8.DecodeRuneInString(a)
		rb, wb := utf8.DecodeRuneInString(b)
		if ra != rb {
			la, lb := unicode.ToLower(ra), unicode.ToLower(rb)
			if la < lb {
				return -1
			}
			if la > lb {
				return 1
			}
		}
		a, b = a[wa:], b[wb:]
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	}
	return 1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func digitRun(s string) (run, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// compareDigitRuns compares two digit strings by numeric value without
// converting them, so arbitrarily long runs work.
func compareDigitRuns(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func compareInt64s(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareTimes compares two time.Time values
func compareTimes(a, b time.Time) int {
	if a.Before(b) {
		return -1
	}
	if a.After(b) {
		return 1
	}
	return 0
}

// compareDurations compares two time.Duration values
func compareDurations(a, b time.Duration) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareBools compares two bool values (false < true)
func compareBools(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// compareFloat64s compares two float64 values with NaN handling.
// NaN values are considered greater than all other values (sort to end).
func compareFloat64s(a, b float64) int {
	aNaN := math.IsNaN(a)
	bNaN := math.IsNaN(b)

	if aNaN && bNaN {
		return 0
	}
	if aNaN {
		return 1
	}
	if bNaN {
		return -1
	}

	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// CompareErrors handles error cases in comparison.
// Errors sort to the end (after valid values).
func CompareErrors(errI, errJ error) int {
	if errI != nil && errJ != nil {
		return 0
	}
	if errI != nil {
		return 1
	}
	return -1
}
