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
	"os"
	"sync"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/google/vgrid/core/items"
	"github.com/google/vgrid/core/protoloader"
)

// ProtoLoader implements Loader for textproto files.
//
// Required config keys:
//   - file_path: Path to the textproto file
//   - message_type: Fully qualified proto message name of the file
//
// Optional config keys:
//   - descriptor_set: Path to the serialized FileDescriptorSet
//   - field: the repeated message field whose elements are the items
//     (defaults to the first repeated message field)
//   - flatten: "true" to denormalize the nested repeated fields into rows
type ProtoLoader struct {
	mu     sync.Mutex
	loader *protoloader.Loader

	// Track loaded descriptor sets to avoid duplicates
	loadedDescriptors map[string]bool
}

// NewProtoLoader creates a new proto loader.
func NewProtoLoader() *ProtoLoader {
	return &ProtoLoader{
		loader:            protoloader.NewLoader(nil),
		loadedDescriptors: make(map[string]bool),
	}
}

// SourceType returns "textproto".
func (l *ProtoLoader) SourceType() string {
	return "textproto"
}

// LoadDescriptorSet registers the descriptors of a FileDescriptorSet file.
func (l *ProtoLoader) LoadDescriptorSet(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loadedDescriptors[path] {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read descriptor set: %w", err)
	}
	if err := l.loader.AddDescriptorSet(data); err != nil {
		return err
	}
	l.loadedDescriptors[path] = true
	return nil
}

// Messages returns the registered message names.
func (l *ProtoLoader) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loader.Messages()
}

// Load parses a textproto file.
func (l *ProtoLoader) Load(ctx context.Context, config map[string]string) (*Dataset, error) {
	filePath, err := requireKey(config, "file_path")
	if err != nil {
		return nil, err
	}
	messageType, err := requireKey(config, "message_type")
	if err != nil {
		return nil, err
	}
	if descriptorSet := config["descriptor_set"]; descriptorSet != "" {
		if err := l.LoadDescriptorSet(descriptorSet); err != nil {
			return nil, fmt.Errorf("failed to load descriptor set: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read textproto file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return LoadTextproto(l.loader, data, messageType, config["field"], config["flatten"] == "true")
}

// LoadTextproto parses data as messageType. Unless flatten is set, the
// elements of the repeated message field named by field are the items, read
// with items.ProtoAccessor; their scalar fields form the schema. With flatten
// the nested repeated fields are denormalized into map items.
func LoadTextproto(loader *protoloader.Loader, data []byte, messageType, field string, flatten bool) (*Dataset, error) {
	msg, err := loader.ParseTextproto(data, messageType)
	if err != nil {
		return nil, err
	}

	if flatten {
		rb := protoloader.Flatten(msg)
		rows := rb.Items()
		schema := &Schema{}
		for _, name := range rb.Columns() {
			schema.Columns = append(schema.Columns, &ColumnSchema{
				Name:        name,
				DisplayName: name,
				Type:        typeOfValues(rows, name),
			})
		}
		return &Dataset{Schema: schema, Items: rows, Accessor: items.MapAccessor{}}, nil
	}

	list, err := protoloader.Items(msg, field)
	if err != nil {
		return nil, err
	}
	var md protoreflect.MessageDescriptor
	if len(list) > 0 {
		md = list[0].(protoreflect.Message).Descriptor()
	} else {
		for _, fd := range fieldsOf(msg.Descriptor()) {
			if fd.Kind() == protoreflect.MessageKind && fd.IsList() && (field == "" || string(fd.Name()) == field || fd.JSONName() == field) {
				md = fd.Message()
				break
			}
		}
	}
	return &Dataset{Schema: messageSchema(md), Items: list, Accessor: items.ProtoAccessor{}}, nil
}

func fieldsOf(md protoreflect.MessageDescriptor) []protoreflect.FieldDescriptor {
	fields := md.Fields()
	out := make([]protoreflect.FieldDescriptor, fields.Len())
	for i := range out {
		out[i] = fields.Get(i)
	}
	return out
}

// messageSchema lists the singular scalar fields of md, plus Timestamp and
// Duration fields.
func messageSchema(md protoreflect.MessageDescriptor) *Schema {
	schema := &Schema{}
	if md == nil {
		return schema
	}
	for _, fd := range fieldsOf(md) {
		if fd.IsList() || fd.IsMap() {
			continue
		}
		t, ok := protoKindType(fd)
		if !ok {
			continue
		}
		schema.Columns = append(schema.Columns, &ColumnSchema{
			Name:        string(fd.Name()),
			DisplayName: string(fd.Name()),
			Type:        t,
		})
	}
	return schema
}

func protoKindType(fd protoreflect.FieldDescriptor) (ColumnType, bool) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return TypeBool, true
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return TypeInt64, true
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return TypeUint64, true
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return TypeFloat64, true
	case protoreflect.StringKind, protoreflect.BytesKind, protoreflect.EnumKind:
		return TypeString, true
	case protoreflect.MessageKind:
		switch fd.Message().FullName() {
		case "google.protobuf.Timestamp":
			return TypeDatetime, true
		case "google.protobuf.Duration":
			return TypeDuration, true
		}
	}
	return TypeString, false
}

// typeOfValues reports the type of the first non-nil value of field.
func typeOfValues(rows []items.Item, field string) ColumnType {
	for _, r := range rows {
		switch r.(map[string]any)[field].(type) {
		case nil:
			continue
		case int64:
			return TypeInt64
		case uint64:
			return TypeUint64
		case float64:
			return TypeFloat64
		case bool:
			return TypeBool
		}
		return TypeString
	}
	return TypeString
}
