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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/google/vgrid/core/columns"
	"github.com/google/vgrid/core/items"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadCSVTypes(t *testing.T) {
	csvContent := `name,age,score,active,joined,tenure,note
Alice,30,95.5,true,2024-01-02,36h,x
Bob,25,88,no,2023-06-30,2d,
Charlie,,92.3,yes,2022-12-01,90m,12`

	ds, err := LoadCSV(strings.NewReader(csvContent), DefaultCSVOptions())
	require.NoError(t, err)
	require.Len(t, ds.Items, 3)

	want := map[string]ColumnType{
		"name":   TypeString,
		"age":    TypeInt64,
		"score":  TypeFloat64,
		"active": TypeBool,
		"joined": TypeDatetime,
		"tenure": TypeDuration,
		"note":   TypeString,
	}
	for name, typ := range want {
		if got := ds.Schema.Column(name).Type; got != typ {
			t.Errorf("column %s: got type %v, want %v", name, got, typ)
		}
	}

	bob := ds.Items[1].(map[string]any)
	assert.Equal(t, int64(25), bob["age"])
	assert.Equal(t, 88.0, bob["score"])
	assert.Equal(t, false, bob["active"])
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), bob["joined"])
	assert.Equal(t, 48*time.Hour, bob["tenure"])
	assert.Nil(t, bob["note"])
	assert.Nil(t, ds.Items[2].(map[string]any)["age"])

	v, err := ds.Accessor.Get(ds.Items[0], "name")
	require.NoError(t, err)
	assert.Equal(t, "Alice", v)
}

func TestLoadCSVOptions(t *testing.T) {
	t.Run("no header", func(t *testing.T) {
		opts := DefaultCSVOptions()
		opts.HasHeader = false
		opts.Delimiter = ';'
		ds, err := LoadCSV(strings.NewReader("a;1\nb;2\n"), opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"column_1", "column_2"}, ds.Schema.Names())
		assert.Len(t, ds.Items, 2)
	})

	t.Run("forced type", func(t *testing.T) {
		opts := DefaultCSVOptions()
		opts.Types = map[string]ColumnType{"zip": TypeString}
		ds, err := LoadCSV(strings.NewReader("zip\n01234\n"), opts)
		require.NoError(t, err)
		assert.Equal(t, "01234", ds.Items[0].(map[string]any)["zip"])
	})

	t.Run("short rows", func(t *testing.T) {
		ds, err := LoadCSV(strings.NewReader("a,b\n1\n"), DefaultCSVOptions())
		require.NoError(t, err)
		assert.Nil(t, ds.Items[0].(map[string]any)["b"])
	})

	t.Run("empty", func(t *testing.T) {
		_, err := LoadCSV(strings.NewReader(""), DefaultCSVOptions())
		assert.ErrorIs(t, err, ErrEmptyCSV)
	})

	t.Run("header only", func(t *testing.T) {
		ds, err := LoadCSV(strings.NewReader("a,b\n"), DefaultCSVOptions())
		require.NoError(t, err)
		assert.Empty(t, ds.Items)
	})
}

func TestDatasetColumns(t *testing.T) {
	ds, err := LoadCSV(strings.NewReader("name,amount\nx,1.5\n"), DefaultCSVOptions())
	require.NoError(t, err)

	set := ds.Columns([]ColumnAnnotation{{Name: "amount", DisplayName: "Amount", Format: "F2", Width: 80}})
	require.Equal(t, 2, set.Len())
	amount := set.ByField("amount")
	assert.Equal(t, "Amount", amount.Header)
	assert.Equal(t, "F2", amount.Format)
	assert.Equal(t, 80.0, amount.Width)
	assert.Equal(t, columns.AlignRight, amount.Alignment)
	assert.Equal(t, columns.AlignLeft, set.ByField("name").Alignment)

	hidden := ds.Columns([]ColumnAnnotation{{Name: "name", Hidden: true}})
	assert.Equal(t, []string{"amount"}, hidden.Fields())
}

func TestManagerCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "people.csv", []byte("name,age\nAlice,30\nBob,25\n"))

	m := NewManager()
	m.SetBaseDir(dir)
	m.AddAnnotations("people", []ColumnAnnotation{{Name: "name", DisplayName: "Full Name"}})
	require.NoError(t, m.AddSource(DataSource{
		Name:          "people",
		Type:          "csv",
		AnnotationsID: "people",
		Config:        map[string]string{"file_path": "people.csv", "types": "age:float64"},
		Columns:       []ColumnAnnotation{{Name: "age", Format: "F0"}},
	}))

	assert.False(t, m.IsLoaded("people"))
	assert.Equal(t, -1, m.LoadedCount("people"))

	ds, err := m.Load(context.Background(), "people")
	require.NoError(t, err)
	assert.Equal(t, "people", ds.Name)
	assert.Equal(t, 30.0, ds.Items[0].(map[string]any)["age"])
	assert.True(t, m.IsLoaded("people"))
	assert.Equal(t, 2, m.LoadedCount("people"))

	again, err := m.Load(context.Background(), "people")
	require.NoError(t, err)
	assert.Same(t, ds, again)

	set := ds.Columns(m.Annotations("people"))
	assert.Equal(t, "Full Name", set.ByField("name").Header)
	assert.Equal(t, "F0", set.ByField("age").Format)

	m.InvalidateCache("people")
	assert.False(t, m.IsLoaded("people"))
}

func TestManagerErrors(t *testing.T) {
	m := NewManager()
	_, err := m.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownSource)

	require.NoError(t, m.AddSource(DataSource{Name: "pg", Type: "postgres"}))
	_, err = m.Load(context.Background(), "pg")
	assert.ErrorIs(t, err, ErrNoLoader)

	require.NoError(t, m.AddSource(DataSource{Name: "nofile", Type: "csv"}))
	_, err = m.Load(context.Background(), "nofile")
	assert.ErrorContains(t, err, "file_path is required")

	assert.Error(t, m.AddSource(DataSource{Type: "csv"}))
	assert.Equal(t, []string{"pg", "nofile"}, m.SourceNames())
}

type staticLoader struct{ loads int }

func (l *staticLoader) SourceType() string { return "static" }

func (l *staticLoader) Load(ctx context.Context, config map[string]string) (*Dataset, error) {
	l.loads++
	return &Dataset{
		Schema:   &Schema{Columns: []*ColumnSchema{{Name: "v", Type: TypeString}}},
		Items:    []items.Item{map[string]any{"v": config["value"]}},
		Accessor: items.MapAccessor{},
	}, nil
}

func TestManagerCustomLoader(t *testing.T) {
	m := NewManager()
	loader := &staticLoader{}
	m.RegisterLoader(loader)
	require.NoError(t, m.AddSource(DataSource{Name: "s", Type: "static", Config: map[string]string{"value": "x"}}))

	for range 3 {
		_, err := m.Load(context.Background(), "s")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loader.loads)

	m.InvalidateAllCaches()
	_, err := m.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.loads)
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "shop.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		CREATE TABLE orders (id INTEGER, region TEXT, amount REAL, paid BOOLEAN, note);
		INSERT INTO orders VALUES (1, 'West', 10.5, 1, NULL), (2, 'East', 3, 0, 'rush'), (3, NULL, NULL, 1, 7);
	`)
	require.NoError(t, err)

	ds, err := LoadSQL(ctx, db, "SELECT * FROM orders WHERE id >= ? ORDER BY id", 2)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Len(t, ds.Items, 2)

	assert.Equal(t, TypeInt64, ds.Schema.Column("id").Type)
	assert.Equal(t, TypeString, ds.Schema.Column("region").Type)
	assert.Equal(t, TypeFloat64, ds.Schema.Column("amount").Type)
	assert.Equal(t, TypeBool, ds.Schema.Column("paid").Type)
	assert.Equal(t, TypeString, ds.Schema.Column("note").Type)

	east := ds.Items[0].(map[string]any)
	assert.Equal(t, int64(2), east["id"])
	assert.Equal(t, 3.0, east["amount"])
	assert.Equal(t, false, east["paid"])
	assert.Equal(t, "rush", east["note"])
	assert.Nil(t, ds.Items[1].(map[string]any)["region"])

	m := NewManager()
	require.NoError(t, m.AddSource(DataSource{Name: "orders", Type: "sqlite", Config: map[string]string{"file_path": path, "table": "orders"}}))
	all, err := m.Load(ctx, "orders")
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)
}

func protoField(name string, num int32, label descriptorpb.FieldDescriptorProto_Label, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(name),
		Number:   proto.Int32(num),
		Label:    label.Enum(),
		Type:     typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func TestManagerTextproto(t *testing.T) {
	const (
		opt = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
		rep = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	)
	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("fleet.proto"),
		Package: proto.String("fleet"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: proto.String("Host"), Field: []*descriptorpb.FieldDescriptorProto{
				protoField("name", 1, opt, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
				protoField("cores", 2, opt, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
			}},
			{Name: proto.String("Fleet"), Field: []*descriptorpb.FieldDescriptorProto{
				protoField("site", 1, opt, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
				protoField("hosts", 2, rep, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".fleet.Host"),
			}},
		},
	}
	set, err := proto.Marshal(&descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{file}})
	require.NoError(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "fleet.pb", set)
	writeFile(t, dir, "fleet.textproto", []byte(`site: "ams" hosts { name: "a" cores: 8 } hosts { name: "b" cores: 16 }`))

	m := NewManager()
	m.SetBaseDir(dir)
	config := map[string]string{"file_path": "fleet.textproto", "descriptor_set": "fleet.pb", "message_type": "fleet.Fleet"}
	require.NoError(t, m.AddSource(DataSource{Name: "hosts", Type: "textproto", Config: config}))

	flat := map[string]string{"flatten": "true"}
	for k, v := range config {
		flat[k] = v
	}
	require.NoError(t, m.AddSource(DataSource{Name: "flat", Type: "textproto", Config: flat}))

	hosts, err := m.Load(context.Background(), "hosts")
	require.NoError(t, err)
	require.Len(t, hosts.Items, 2)
	assert.Equal(t, []string{"name", "cores"}, hosts.Schema.Names())
	assert.Equal(t, TypeInt64, hosts.Schema.Column("cores").Type)
	cores, err := hosts.Accessor.Get(hosts.Items[1], "cores")
	require.NoError(t, err)
	assert.Equal(t, int64(16), cores)

	rows, err := m.Load(context.Background(), "flat")
	require.NoError(t, err)
	assert.Equal(t, []string{"site", "name", "cores"}, rows.Schema.Names())
	assert.Equal(t, map[string]any{"site": "ams", "name": "a", "cores": int64(8)}, rows.Items[0])
}

func TestGeneratedSource(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddSource(DataSource{Name: "txns", Type: "generated", Config: map[string]string{"rows": "200"}}))
	require.NoError(t, m.AddSource(DataSource{Name: "bad", Type: "generated", Config: map[string]string{"rows": "many"}}))

	ds, err := m.Load(context.Background(), "txns")
	require.NoError(t, err)
	require.Len(t, ds.Items, 200)
	assert.Equal(t, 200, m.LoadedCount("txns"))
	assert.Equal(t, TypeDatetime, ds.Schema.Column("created").Type)

	first := ds.Items[0].(map[string]any)
	assert.Equal(t, int64(0), first["category_id"])
	assert.Nil(t, first["status"], "every 97th status is missing")
	assert.Equal(t, "completed", ds.Items[1].(map[string]any)["status"])

	set := ds.Columns(nil)
	assert.Equal(t, columns.AlignRight, set.ByField("amount").Alignment)

	_, err = m.Load(context.Background(), "bad")
	assert.ErrorContains(t, err, "invalid rows")

	again := GenerateTransactions(200)
	assert.Equal(t, ds.Items, again.Items)
}
