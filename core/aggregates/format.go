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

package aggregates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var errAccessorPanic = errors.New("accessor panic")

const defaultShorthandDigits = 2

// format renders v for request r.
//
// An explicit request format wins and suppresses the caption. Otherwise the
// grid-wide default format is applied, or the raw value is printed, and the
// caption is prefixed.
func (e *Engine) format(r Request, v any) string {
	if r.Format != "" {
		return FormatWith(e.printer, r.Format, v)
	}
	var s string
	if e.defaultFormat != "" {
		s = FormatWith(e.printer, e.defaultFormat, v)
	} else {
		s = rawText(v)
	}
	if r.Caption != "" {
		return r.Caption + ": " + s
	}
	return s
}

func rawText(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatNumber(x)
	}
	return fmt.Sprint(v)
}

// FormatWith formats a numeric value with a format string:
//   - "N<d>": grouped decimal with d fraction digits ("1,234.50" for N2)
//   - "F<d>": fixed point with d fraction digits, no grouping
//   - "P<d>": percent with d fraction digits (0.25 is "25%" for P0)
//   - anything containing '%': a fmt format such as "%.1f" or "%d items"
//
// A missing digit count means 2. Unrecognized formats print the raw value.
func FormatWith(p *message.Printer, format string, v any) string {
	if kind, digits, ok := parseShorthand(format); ok {
		f := toFloat(v)
		switch kind {
		case 'N':
			return p.Sprintf("%v", number.Decimal(f, number.Scale(digits)))
		case 'F':
			return strconv.FormatFloat(f, 'f', digits, 64)
		case 'P':
			return p.Sprintf("%v", number.Percent(f, number.Scale(digits)))
		}
	}
	if strings.Contains(format, "%") {
		return fmt.Sprintf(format, fmtArg(format, v))
	}
	return rawText(v)
}

func parseShorthand(format string) (kind byte, digits int, ok bool) {
	if format == "" {
		return 0, 0, false
	}
	kind = format[0] &^ 0x20 // upper case
	switch kind {
	case 'N', 'F', 'P':
	default:
		return 0, 0, false
	}
	rest := format[1:]
	if rest == "" {
		return kind, defaultShorthandDigits, true
	}
	d, err := strconv.Atoi(rest)
	if err != nil || d < 0 || d > 15 {
		return 0, 0, false
	}
	return kind, d, true
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

// fmtArg converts integer results for floating point verbs and float results
// for integer verbs, so "%.2f" works on counts and "%d" on sums.
func fmtArg(format string, v any) any {
	verb := firstVerb(format)
	switch x := v.(type) {
	case int64:
		if strings.ContainsRune("eEfFgG", verb) {
			return float64(x)
		}
	case float64:
		if verb == 'd' {
			return int64(x)
		}
	}
	return v
}

// firstVerb returns the verb letter of the first formatting directive.
func firstVerb(format string) rune {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		for _, r := range format[i+1:] {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				return r
			}
		}
	}
	return 0
}
