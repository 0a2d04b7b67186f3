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
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Common datetime display formats
const (
	DatetimeFormatISO      = time.RFC3339          // 2006-01-02T15:04:05Z07:00
	DatetimeFormatDate     = "2006-01-02"          // Date only
	DatetimeFormatDateTime = "2006-01-02 15:04:05" // Date and time
	DatetimeFormatTime     = "15:04:05"            // Time only
)

// NullText is how a nil value is shown in group headers and distinct value lists.
const NullText = "(null)"

// dateParseFormats lists formats to try when parsing datetime strings, in order of preference.
var dateParseFormats = []string{
	time.RFC3339Nano,          // 2006-01-02T15:04:05.999999999Z07:00
	time.RFC3339,              // 2006-01-02T15:04:05Z07:00
	"2006-01-02T15:04:05",     // ISO without timezone
	"2006-01-02 15:04:05",     // Space separator
	"2006-01-02",              // Date only (midnight)
	"2006/01/02",              // YYYY/MM/DD
	"02-Jan-2006",             // DD-Mon-YYYY
	"Jan 2, 2006",             // Natural format
	"January 2, 2006",         // Full month name
	"2006-01-02T15:04:05.000", // ISO with milliseconds no TZ
	"2006-01-02 15:04:05.000", // Space with milliseconds
}

// ValueKind is the runtime category of a field value. It decides how two
// values are compared and how filter text is parsed against them.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindDuration
	KindTime
	KindString
	KindOther
)

// KindOf classifies v.
func KindOf(v any) ValueKind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case string:
		return KindString
	case time.Time:
		return KindTime
	case time.Duration:
		return KindDuration
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumber
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return KindNull
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	}
	return KindOther
}

// IsNull reports whether v is nil or a typed nil pointer, map, slice or interface.
func IsNull(v any) bool {
	return KindOf(v) == KindNull
}

// ParseNumber is ToFloat that also accepts strings holding a number, such as
// "12" or " 3.5 ".
func ParseNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return ToFloat(v)
}

// ToFloat converts numeric values (including named numeric types) to float64.
// Durations, bools and strings are not numeric.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case time.Duration:
		return 0, false
	}
	if KindOf(v) != KindNumber {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// toInt64 returns v as an int64 when it is a signed integer.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	}
	return 0, false
}

// FormatValue renders v as display text. Nil renders as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return formatTime(x)
	case time.Duration:
		return formatDurationCompact(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	}
	if IsNull(v) {
		return ""
	}
	return fmt.Sprint(v)
}

// DisplayText is FormatValue with nil rendered as NullText.
func DisplayText(v any) string {
	if IsNull(v) {
		return NullText
	}
	return FormatValue(v)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DatetimeFormatDate)
	}
	return t.Format(DatetimeFormatDateTime)
}

// formatDurationCompact returns a compact representation like "2h30m0s" or "3d4h0m0s".
func formatDurationCompact(d time.Duration) string {
	if d == 0 {
		return "0s"
	}

	var result strings.Builder
	if d < 0 {
		result.WriteString("-")
		d = -d
	}

	// Days are not part of the standard Go duration syntax.
	days := d / (24 * time.Hour)
	d = d % (24 * time.Hour)
	if days > 0 {
		result.WriteString(strconv.FormatInt(int64(days), 10))
		result.WriteString("d")
		if d == 0 {
			return result.String()
		}
	}
	result.WriteString(d.String())
	return result.String()
}

// ParseDatetime attempts to parse a string as a datetime value.
// Tries multiple formats and returns the first successful parse.
func ParseDatetime(s string, defaultLoc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}

	// Handle Unix timestamp (numeric)
	if isNumericString(s) {
		return parseUnixTimestamp(s)
	}

	for _, format := range dateParseFormats {
		if t, err := time.ParseInLocation(format, s, defaultLoc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime: %q", s)
}

// isNumericString checks if a string contains only digits and optional leading minus.
func isNumericString(s string) bool {
	if len(s) == 0 {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return start < len(s)
}

// parseUnixTimestamp parses a numeric string as Unix timestamp.
// Seconds, milliseconds and nanoseconds are told apart by magnitude.
func parseUnixTimestamp(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	absN := n
	if absN < 0 {
		absN = -absN
	}
	switch {
	case absN > 1e16:
		return time.Unix(0, n).UTC(), nil
	case absN > 1e11:
		return time.Unix(n/1000, (n%1000)*1e6).UTC(), nil
	default:
		return time.Unix(n, 0).UTC(), nil
	}
}

// ParseDuration parses a duration string, supporting Go format plus days ("3d2h30m").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	var total time.Duration
	if idx := strings.Index(s, "d"); idx != -1 {
		daysStr := s[:idx]
		days, err := strconv.ParseInt(daysStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid days in duration: %s", daysStr)
		}
		total = time.Duration(days) * 24 * time.Hour
		s = s[idx+1:]
	}

	if s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %w", err)
		}
		total += d
	}

	if negative {
		total = -total
	}
	return total, nil
}
