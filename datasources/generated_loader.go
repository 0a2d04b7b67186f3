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
	"fmt"
	"strconv"
	"time"

	"github.com/google/vgrid/core/items"
)

// Cardinalities of the generated transaction columns.
const (
	DefaultGeneratedRows = 10_000
	generatedUsers       = 800 // high cardinality
	generatedProducts    = 50
	generatedCategories  = 12 // low cardinality
)

var generatedStatuses = []string{"pending", "completed", "cancelled", "processing"}

// GenerateTransactions builds n deterministic transaction rows for demos and
// load tests. Category 0 is over-represented so grouping has skew.
func GenerateTransactions(n int) *Dataset {
	schema := &Schema{Columns: []*ColumnSchema{
		{Name: "txn_id", DisplayName: "Transaction ID", Type: TypeInt64},
		{Name: "user_id", DisplayName: "User ID", Type: TypeInt64},
		{Name: "product_id", DisplayName: "Product ID", Type: TypeInt64},
		{Name: "category_id", DisplayName: "Category ID", Type: TypeInt64},
		{Name: "amount", DisplayName: "Amount", Type: TypeFloat64},
		{Name: "status", DisplayName: "Status", Type: TypeString},
		{Name: "created", DisplayName: "Created", Type: TypeDatetime},
	}}
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := make([]items.Item, n)
	for i := range n {
		category := i % generatedCategories
		if i%7 == 0 {
			category = 0
		}
		var status any = generatedStatuses[i%len(generatedStatuses)]
		if i%97 == 0 {
			status = nil
		}
		rows[i] = map[string]any{
			"txn_id":      int64(i),
			"user_id":     int64(i % generatedUsers),
			"product_id":  int64(i % generatedProducts),
			"category_id": int64(category),
			"amount":      float64(10+i%1000) + float64(i%100)/100,
			"status":      status,
			"created":     epoch.Add(time.Duration(i) * 37 * time.Minute),
		}
	}
	return &Dataset{Schema: schema, Items: rows, Accessor: items.MapAccessor{}}
}

// GeneratedLoader produces synthetic transactions. The "rows" config key
// sets the row count.
type GeneratedLoader struct{}

// NewGeneratedLoader creates a loader for the "generated" source type.
func NewGeneratedLoader() *GeneratedLoader {
	return &GeneratedLoader{}
}

// SourceType returns "generated".
func (l *GeneratedLoader) SourceType() string {
	return "generated"
}

// Load generates the dataset.
func (l *GeneratedLoader) Load(ctx context.Context, config map[string]string) (*Dataset, error) {
	n := DefaultGeneratedRows
	if s := config["rows"]; s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid rows %q", s)
		}
		n = v
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GenerateTransactions(n), nil
}
