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

package datasources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/items"
)

// ErrEmptyCSV is returned for CSV input without any records.
var ErrEmptyCSV = errors.New("CSV file is empty")

// CSVOptions configures CSV import behavior
type CSVOptions struct {
	// HasHeader indicates whether the first row contains column headers
	HasHeader bool
	// Delimiter is the field delimiter (defaults to comma)
	Delimiter rune
	// SampleSize is the number of rows to sample for type detection (default: 100)
	SampleSize int
	// Types forces the type of columns by name instead of detecting it
	Types map[string]ColumnType
	// Location is used for datetimes without a zone (default: UTC)
	Location *time.Location
}

// DefaultCSVOptions returns default import options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		HasHeader:  true,
		Delimiter:  ',',
		SampleSize: 100,
	}
}

// LoadCSV reads CSV data into map items keyed by column name. Column types
// are detected from a sample of rows: integer, float, bool, datetime and
// duration columns hold typed values, everything else strings. Empty cells
// and cells that do not parse as their column type are nil.
func LoadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCSV
	}

	var headers []string
	dataRows := records
	if opts.HasHeader {
		headers = records[0]
		dataRows = records[1:]
	} else {
		// Generate column names if no header
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = 100
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	schema := &Schema{Columns: make([]*ColumnSchema, len(headers))}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		t, forced := opts.Types[h]
		if !forced {
			t = inferColumnType(i, dataRows, sampleSize, loc)
		}
		schema.Columns[i] = &ColumnSchema{Name: h, DisplayName: h, Type: t}
	}

	out := make([]items.Item, len(dataRows))
	for r, rec := range dataRows {
		row := make(map[string]any, len(headers))
		for i, cs := range schema.Columns {
			var v any
			if i < len(rec) {
				v = parseCell(rec[i], cs.Type, loc)
			}
			row[cs.Name] = v
		}
		out[r] = row
	}
	return &Dataset{Schema: schema, Items: out, Accessor: items.MapAccessor{}}, nil
}

// inferColumnType samples data to determine the column type.
func inferColumnType(colIdx int, records [][]string, sampleSize int, loc *time.Location) ColumnType {
	isInt := true
	isFloat := true
	isBool := true
	isDatetime := true
	isDuration := true
	hasNonEmpty := false

	for i := 0; i < len(records) && i < sampleSize; i++ {
		if colIdx >= len(records[i]) {
			continue
		}
		val := strings.TrimSpace(records[i][colIdx])
		if val == "" {
			continue // Skip empty values
		}
		hasNonEmpty = true

		if isInt {
			if _, err := strconv.ParseInt(val, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(val); !ok {
				isBool = false
			}
		}
		if isDatetime {
			if _, err := columns.ParseDatetime(val, loc); err != nil {
				isDatetime = false
			}
		}
		if isDuration {
			if _, err := columns.ParseDuration(val); err != nil {
				isDuration = false
			}
		}
	}

	switch {
	case !hasNonEmpty:
		return TypeString
	case isInt:
		return TypeInt64
	case isFloat:
		return TypeFloat64
	case isBool:
		return TypeBool
	case isDatetime:
		return TypeDatetime
	case isDuration:
		return TypeDuration
	}
	return TypeString
}

func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(s) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

// parseCell converts one CSV field to a value of type t.
func parseCell(s string, t ColumnType, loc *time.Location) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch t {
	case TypeInt64:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case TypeUint64:
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
	case TypeFloat64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case TypeBool:
		if b, ok := parseBool(s); ok {
			return b
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case TypeDatetime:
		if ts, err := columns.ParseDatetime(s, loc); err == nil {
			return ts
		}
	case TypeDuration:
		if d, err := columns.ParseDuration(s); err == nil {
			return d
		}
	default:
		return s
	}
	return nil
}

// CsvLoader implements Loader for CSV files.
//
// Required config keys:
//   - file_path: Path to the CSV file
//
// Optional config keys:
//   - has_header: "false" when the first row is data
//   - delimiter: field delimiter, first character used
//   - types: forced column types, "name:type,name:type"
type CsvLoader struct{}

// NewCsvLoader creates a new CSV loader.
func NewCsvLoader() *CsvLoader {
	return &CsvLoader{}
}

// SourceType returns "csv".
func (l *CsvLoader) SourceType() string {
	return "csv"
}

// Load loads a CSV file.
func (l *CsvLoader) Load(ctx context.Context, config map[string]string) (*Dataset, error) {
	filePath, err := requireKey(config, "file_path")
	if err != nil {
		return nil, err
	}
	opts := DefaultCSVOptions()
	if config["has_header"] == "false" {
		opts.HasHeader = false
	}
	if d := config["delimiter"]; d != "" {
		opts.Delimiter = []rune(d)[0]
	}
	if spec := config["types"]; spec != "" {
		opts.Types = make(map[string]ColumnType)
		for _, part := range strings.Split(spec, ",") {
			name, typeName, ok := strings.Cut(part, ":")
			if !ok {
				return nil, fmt.Errorf("invalid column type %q", part)
			}
			t, err := ParseColumnType(typeName)
			if err != nil {
				return nil, err
			}
			opts.Types[strings.TrimSpace(name)] = t
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return LoadCSV(file, opts)
}
