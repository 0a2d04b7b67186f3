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
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/google/vgrid/core/items"
)

// OpenSQLite opens the SQLite database at path and checks that it is
// reachable. Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

// LoadSQL runs query and returns one map item per result row, keyed by
// column name. Column types come from the declared database types, or from
// the first non-null value when the database does not declare one.
func LoadSQL(ctx context.Context, db *sql.DB, query string, args ...any) (*Dataset, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	schema := &Schema{Columns: make([]*ColumnSchema, len(colTypes))}
	declared := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		t, ok := sqlType(ct.DatabaseTypeName())
		declared[i] = ok
		schema.Columns[i] = &ColumnSchema{Name: ct.Name(), DisplayName: ct.Name(), Type: t}
	}

	var out []items.Item
	values := make([]any, len(colTypes))
	ptrs := make([]any, len(colTypes))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, cs := range schema.Columns {
			v := sqlValue(values[i], cs.Type)
			if !declared[i] && v != nil {
				cs.Type = typeOfValue(v)
				declared[i] = true
			}
			row[cs.Name] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if out == nil {
		out = []items.Item{}
	}
	return &Dataset{Schema: schema, Items: out, Accessor: items.MapAccessor{}}, nil
}

// sqlType maps a declared column type using SQLite's affinity rules.
func sqlType(name string) (ColumnType, bool) {
	name = strings.ToUpper(name)
	switch {
	case name == "":
		return TypeString, false
	case strings.Contains(name, "BOOL"):
		return TypeBool, true
	case strings.Contains(name, "INT"):
		return TypeInt64, true
	case strings.Contains(name, "DATE"), strings.Contains(name, "TIME"):
		return TypeDatetime, true
	case strings.Contains(name, "REAL"), strings.Contains(name, "FLOA"), strings.Contains(name, "DOUB"),
		strings.Contains(name, "NUMERIC"), strings.Contains(name, "DECIMAL"):
		return TypeFloat64, true
	}
	return TypeString, true
}

// sqlValue normalizes a scanned value for the grid engines.
func sqlValue(v any, t ColumnType) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int64:
		switch t {
		case TypeBool:
			return x != 0
		case TypeFloat64:
			return float64(x)
		}
		return x
	case string:
		if t == TypeDatetime {
			if ts, err := time.Parse(time.RFC3339Nano, x); err == nil {
				return ts
			}
		}
		return x
	}
	return v
}

func typeOfValue(v any) ColumnType {
	switch v.(type) {
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case bool:
		return TypeBool
	case time.Time:
		return TypeDatetime
	}
	return TypeString
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLiteLoader implements Loader for SQLite databases.
//
// Required config keys:
//   - file_path: Path to the database file
//   - query or table: the SELECT to run, or a table to read whole
type SQLiteLoader struct{}

// NewSQLiteLoader creates a new SQLite loader.
func NewSQLiteLoader() *SQLiteLoader {
	return &SQLiteLoader{}
}

// SourceType returns "sqlite".
func (l *SQLiteLoader) SourceType() string {
	return "sqlite"
}

// Load runs the configured query against the database.
func (l *SQLiteLoader) Load(ctx context.Context, config map[string]string) (*Dataset, error) {
	filePath, err := requireKey(config, "file_path")
	if err != nil {
		return nil, err
	}
	query := config["query"]
	if query == "" {
		table, err := requireKey(config, "table")
		if err != nil {
			return nil, fmt.Errorf("query or table is required")
		}
		query = "SELECT * FROM " + quoteIdent(table)
	}

	db, err := OpenSQLite(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return LoadSQL(ctx, db, query)
}
