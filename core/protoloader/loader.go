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

// Package protoloader parses textproto data with a runtime descriptor
// registry and turns the resulting dynamic messages into grid items.
package protoloader

import (
	"fmt"
	"slices"
	"strings"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/google/vgrid/core/items"
)

// Loader parses textproto data using a registry of message descriptors.
type Loader struct {
	registry *protoregistry.Files
}

// NewLoader creates a new Loader with the given proto registry. A nil
// registry starts empty; descriptors can be added with AddDescriptorSet.
func NewLoader(registry *protoregistry.Files) *Loader {
	if registry == nil {
		registry = new(protoregistry.Files)
	}
	return &Loader{
		registry: registry,
	}
}

// AddDescriptorSet registers the files of a serialized FileDescriptorSet.
// Files already registered are skipped.
func (l *Loader) AddDescriptorSet(data []byte) error {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("failed to parse descriptor set: %w", err)
	}
	files, err := protodesc.NewFiles(&set)
	if err != nil {
		return fmt.Errorf("failed to build descriptors: %w", err)
	}
	var regErr error
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		if _, err := l.registry.FindFileByPath(fd.Path()); err == nil {
			return true
		}
		if err := l.registry.RegisterFile(fd); err != nil {
			regErr = fmt.Errorf("failed to register %s: %w", fd.Path(), err)
			return false
		}
		return true
	})
	return regErr
}

// ParseTextproto parses textproto data into a dynamic protobuf message.
func (l *Loader) ParseTextproto(data []byte, messageName string) (protoreflect.Message, error) {
	mt, err := l.FindMessageByName(protoreflect.FullName(messageName))
	if err != nil {
		return nil, fmt.Errorf("message %q not found in registry: %w", messageName, err)
	}
	msg := mt.New()

	// Use a resolver that can resolve types from our registry
	opts := prototext.UnmarshalOptions{
		Resolver: l,
	}
	if err := opts.Unmarshal(data, msg.Interface()); err != nil {
		return nil, fmt.Errorf("failed to parse textproto: %w", err)
	}
	return msg, nil
}

// FindMessageByName implements protoregistry.MessageTypeResolver
func (l *Loader) FindMessageByName(name protoreflect.FullName) (protoreflect.MessageType, error) {
	desc, err := l.registry.FindDescriptorByName(name)
	if err != nil {
		return nil, err
	}
	msgDesc, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%q is not a message type", name)
	}
	return dynamicpb.NewMessageType(msgDesc), nil
}

// FindMessageByURL implements protoregistry.MessageTypeResolver
func (l *Loader) FindMessageByURL(url string) (protoreflect.MessageType, error) {
	name := url
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		name = url[i+1:]
	}
	return l.FindMessageByName(protoreflect.FullName(name))
}

// FindExtensionByName implements protoregistry.ExtensionTypeResolver
func (l *Loader) FindExtensionByName(name protoreflect.FullName) (protoreflect.ExtensionType, error) {
	return nil, protoregistry.NotFound
}

// FindExtensionByNumber implements protoregistry.ExtensionTypeResolver
func (l *Loader) FindExtensionByNumber(message protoreflect.FullName, field protoreflect.FieldNumber) (protoreflect.ExtensionType, error) {
	return nil, protoregistry.NotFound
}

// Messages returns the names of all registered top-level messages, sorted.
func (l *Loader) Messages() []string {
	var messages []string
	l.registry.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		msgs := fd.Messages()
		for i := 0; i < msgs.Len(); i++ {
			messages = append(messages, string(msgs.Get(i).FullName()))
		}
		return true
	})
	slices.Sort(messages)
	return messages
}

// Items returns the elements of the repeated message field of msg as items,
// to be read with items.ProtoAccessor. An empty field name selects the first
// repeated message field.
func Items(msg protoreflect.Message, field string) ([]items.Item, error) {
	fd := repeatedField(msg.Descriptor(), field)
	if fd == nil {
		if field == "" {
			return nil, fmt.Errorf("%s has no repeated message field", msg.Descriptor().FullName())
		}
		return nil, fmt.Errorf("%s has no repeated message field %q", msg.Descriptor().FullName(), field)
	}
	list := msg.Get(fd).List()
	out := make([]items.Item, list.Len())
	for i := range out {
		out[i] = list.Get(i).Message()
	}
	return out, nil
}

func repeatedField(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.Kind() != protoreflect.MessageKind || !fd.IsList() {
			continue
		}
		if name == "" || string(fd.Name()) == name || fd.JSONName() == name {
			return fd
		}
	}
	return nil
}

// HierarchyLevel represents one level in a linear message hierarchy.
type HierarchyLevel struct {
	// FieldDesc is the repeated message field leading to the next level (nil for leaf)
	FieldDesc protoreflect.FieldDescriptor
	// ScalarFields are non-message, non-repeated fields at this level
	ScalarFields []protoreflect.FieldDescriptor
}

// FindLinearHierarchy walks a message descriptor to find a linear chain of
// nested repeated messages. The first repeated message field of each level
// leads to the next one. Returns the hierarchy levels from root to leaf.
func FindLinearHierarchy(msgDesc protoreflect.MessageDescriptor) []HierarchyLevel {
	var levels []HierarchyLevel
	seen := make(map[protoreflect.FullName]bool)
	current := msgDesc

	for current != nil && !seen[current.FullName()] {
		seen[current.FullName()] = true
		level := HierarchyLevel{}
		var nextLevel protoreflect.MessageDescriptor

		fields := current.Fields()
		for i := 0; i < fields.Len(); i++ {
			fd := fields.Get(i)
			switch {
			case fd.Kind() == protoreflect.MessageKind && fd.IsList():
				if level.FieldDesc == nil {
					level.FieldDesc = fd
					nextLevel = fd.Message()
				}
			case fd.Kind() != protoreflect.MessageKind && !fd.IsList() && !fd.IsMap():
				level.ScalarFields = append(level.ScalarFields, fd)
			}
		}

		levels = append(levels, level)
		current = nextLevel
	}

	return levels
}

// RowBuilder accumulates denormalized rows from a hierarchical message.
type RowBuilder struct {
	columns        []string         // Column names in order
	rows           []map[string]any // All extracted rows
	current        map[string]any   // Current row being built
	columnsByLevel [][]string       // Column names grouped by hierarchy level
}

// newRowBuilder creates a new RowBuilder with columns derived from hierarchy levels.
// A field name repeated at a deeper level is prefixed with its message name.
func newRowBuilder(hierarchy []HierarchyLevel) *RowBuilder {
	rb := &RowBuilder{
		current:        make(map[string]any),
		columnsByLevel: make([][]string, len(hierarchy)),
	}

	for i, level := range hierarchy {
		for _, fd := range level.ScalarFields {
			colName := string(fd.Name())
			if slices.Contains(rb.columns, colName) {
				colName = strings.ToLower(string(fd.ContainingMessage().Name())) + "_" + colName
			}
			rb.columns = append(rb.columns, colName)
			rb.columnsByLevel[i] = append(rb.columnsByLevel[i], colName)
		}
	}

	return rb
}

// Columns returns the column names in hierarchy order.
func (rb *RowBuilder) Columns() []string {
	return rb.columns
}

// Items returns the extracted rows; read them with items.MapAccessor.
func (rb *RowBuilder) Items() []items.Item {
	out := make([]items.Item, len(rb.rows))
	for i, r := range rb.rows {
		out[i] = r
	}
	return out
}

// clearFromLevel clears all column values at and below the given hierarchy level.
func (rb *RowBuilder) clearFromLevel(level int) {
	for i := level; i < len(rb.columnsByLevel); i++ {
		for _, col := range rb.columnsByLevel[i] {
			rb.current[col] = nil
		}
	}
}

// emitRow adds the current row state to the rows list.
func (rb *RowBuilder) emitRow() {
	row := make(map[string]any, len(rb.columns))
	for _, col := range rb.columns {
		row[col] = rb.current[col]
	}
	rb.rows = append(rb.rows, row)
}

// Flatten walks the linear hierarchy of msg and returns one row per leaf,
// carrying the scalar fields of every enclosing level. A level whose
// repeated field is empty still yields one row with the deeper columns nil.
func Flatten(msg protoreflect.Message) *RowBuilder {
	hierarchy := FindLinearHierarchy(msg.Descriptor())
	rb := newRowBuilder(hierarchy)
	walkHierarchy(msg, hierarchy, 0, rb)
	return rb
}

// walkHierarchy recursively walks the message hierarchy, extracting values.
func walkHierarchy(msg protoreflect.Message, hierarchy []HierarchyLevel, depth int, rb *RowBuilder) {
	if depth >= len(hierarchy) {
		return
	}

	level := hierarchy[depth]
	for i, fd := range level.ScalarFields {
		rb.current[rb.columnsByLevel[depth][i]] = scalarValue(msg, fd)
	}

	if level.FieldDesc == nil || depth == len(hierarchy)-1 {
		rb.emitRow()
		return
	}

	list := msg.Get(level.FieldDesc).List()
	if list.Len() == 0 {
		rb.clearFromLevel(depth + 1)
		rb.emitRow()
		return
	}

	for i := 0; i < list.Len(); i++ {
		// Clear child fields before each iteration to avoid stale data
		rb.clearFromLevel(depth + 1)
		walkHierarchy(list.Get(i).Message(), hierarchy, depth+1, rb)
	}
}

// scalarValue converts a field to the Go value grid engines compare natively.
// Unset fields with presence are nil.
func scalarValue(msg protoreflect.Message, fd protoreflect.FieldDescriptor) any {
	if fd.HasPresence() && !msg.Has(fd) {
		return nil
	}
	val := msg.Get(fd)
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return val.Bool()
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return val.Int()
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return val.Uint()
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return val.Float()
	case protoreflect.StringKind:
		return val.String()
	case protoreflect.BytesKind:
		return string(val.Bytes())
	case protoreflect.EnumKind:
		// Return enum name if available
		if enumVal := fd.Enum().Values().ByNumber(val.Enum()); enumVal != nil {
			return string(enumVal.Name())
		}
		return int64(val.Enum())
	}
	return val.String()
}
