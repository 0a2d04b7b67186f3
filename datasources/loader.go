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

// Package datasources loads item collections from CSV files, textproto
// files and SQLite databases. Loaders report a schema alongside the items
// so callers can build a column model, and a Manager caches loaded data by
// source name.
package datasources

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/items"
)

// ColumnType represents the data type of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt64
	TypeUint64
	TypeFloat64
	TypeBool
	TypeDatetime
	TypeDuration
)

// String returns the string representation of the column type.
func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt64:
		return "int64"
	case TypeUint64:
		return "uint64"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeDatetime:
		return "datetime"
	case TypeDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// ParseColumnType parses the names returned by ColumnType.String.
func ParseColumnType(s string) (ColumnType, error) {
	for t := TypeString; t <= TypeDuration; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return TypeString, fmt.Errorf("unknown column type %q", s)
}

// Numeric reports whether values of the type are numbers.
func (t ColumnType) Numeric() bool {
	return t == TypeInt64 || t == TypeUint64 || t == TypeFloat64
}

// ColumnSchema represents a single column's schema discovered from a data source.
type ColumnSchema struct {
	Name        string
	DisplayName string
	Type        ColumnType
}

// Schema represents the full schema discovered from a data source.
type Schema struct {
	Columns []*ColumnSchema
}

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the schema of the named column, or nil.
func (s *Schema) Column(name string) *ColumnSchema {
	for _, c := range s.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnAnnotation overrides how a discovered column is presented.
type ColumnAnnotation struct {
	Name        string  `mapstructure:"name"`
	DisplayName string  `mapstructure:"display_name"`
	Format      string  `mapstructure:"format"`
	Alignment   string  `mapstructure:"alignment"`
	Width       float64 `mapstructure:"width"`
	Hidden      bool    `mapstructure:"hidden"`
}

// Dataset is a loaded item collection with its schema.
type Dataset struct {
	Name     string
	Schema   *Schema
	Items    []items.Item
	Accessor items.Accessor
}

// Columns builds a column model for the dataset. Numeric columns are right
// aligned; annotations override display name, format, alignment, width and
// visibility.
func (d *Dataset) Columns(annotations []ColumnAnnotation) *columns.Set {
	byName := make(map[string]ColumnAnnotation, len(annotations))
	for _, a := range annotations {
		byName[a.Name] = a
	}
	set := columns.NewSet()
	for _, cs := range d.Schema.Columns {
		c := columns.NewColumn(cs.Name, cs.DisplayName)
		if cs.Type.Numeric() {
			c.Alignment = columns.AlignRight
		}
		if a, ok := byName[cs.Name]; ok {
			if a.DisplayName != "" {
				c.Header = a.DisplayName
			}
			if a.Alignment != "" {
				c.Alignment = columns.ParseAlignment(a.Alignment)
			}
			if a.Width > 0 {
				c.Width = a.Width
			}
			c.Format = a.Format
			c.Visible = !a.Hidden
		}
		set.Add(c)
	}
	return set
}

// Loader is the interface that all data source loaders must implement.
// vgrid provides built-in loaders for "csv", "textproto", "sqlite" and
// "generated".
type Loader interface {
	// SourceType returns the type identifier used in config (e.g., "csv").
	SourceType() string

	// Load reads the data source described by config.
	Load(ctx context.Context, config map[string]string) (*Dataset, error)
}

// requireKey returns config[key] or an error naming the missing key.
func requireKey(config map[string]string, key string) (string, error) {
	v := config[key]
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
