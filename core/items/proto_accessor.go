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

package items

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ProtoAccessor reads and writes fields of protobuf messages by field name
// (or JSON name). It works with generated and dynamic (dynamicpb) messages.
//
// Scalars map to Go values: integers to int64/uint64, floats to float64, enums
// to their value name, google.protobuf.Timestamp to time.Time and
// google.protobuf.Duration to time.Duration. Unset fields with presence read as nil.
type ProtoAccessor struct{}

func protoMessage(item Item) (protoreflect.Message, bool) {
	switch m := item.(type) {
	case protoreflect.Message:
		return m, true
	case proto.Message:
		return m.ProtoReflect(), true
	}
	return nil, false
}

func fieldByName(md protoreflect.MessageDescriptor, field string) protoreflect.FieldDescriptor {
	fields := md.Fields()
	if fd := fields.ByName(protoreflect.Name(field)); fd != nil {
		return fd
	}
	return fields.ByJSONName(field)
}

// Get implements Accessor.
func (a ProtoAccessor) Get(item Item, field string) (any, error) {
	m, ok := protoMessage(item)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a proto message", ErrTypeMismatch, item)
	}
	fd := fieldByName(m.Descriptor(), field)
	if fd == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, m.Descriptor().FullName(), field)
	}
	return protoValue(m, fd), nil
}

// Resolve implements FieldResolver. Descriptors are cached per message type,
// so a source holding a single message type resolves the field exactly once.
func (a ProtoAccessor) Resolve(field string) Getter {
	cache := make(map[protoreflect.FullName]protoreflect.FieldDescriptor)
	return func(item Item) (any, error) {
		m, ok := protoMessage(item)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a proto message", ErrTypeMismatch, item)
		}
		md := m.Descriptor()
		fd, ok := cache[md.FullName()]
		if !ok {
			fd = fieldByName(md, field)
			cache[md.FullName()] = fd
		}
		if fd == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, md.FullName(), field)
		}
		return protoValue(m, fd), nil
	}
}

func protoValue(m protoreflect.Message, fd protoreflect.FieldDescriptor) any {
	if fd.HasPresence() && !m.Has(fd) {
		return nil
	}
	v := m.Get(fd)
	if fd.IsList() || fd.IsMap() {
		return v.Interface()
	}
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return v.Bool()
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return v.Int()
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return v.Uint()
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return v.Float()
	case protoreflect.StringKind:
		return v.String()
	case protoreflect.BytesKind:
		return v.Bytes()
	case protoreflect.EnumKind:
		n := v.Enum()
		if ev := fd.Enum().Values().ByNumber(n); ev != nil {
			return string(ev.Name())
		}
		return int64(n)
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return wellKnownValue(v.Message())
	}
	return v.Interface()
}

// wellKnownValue converts Timestamp and Duration messages without depending
// on their generated types, so dynamic messages work too.
func wellKnownValue(m protoreflect.Message) any {
	md := m.Descriptor()
	switch md.FullName() {
	case "google.protobuf.Timestamp":
		secs := m.Get(md.Fields().ByName("seconds")).Int()
		nanos := m.Get(md.Fields().ByName("nanos")).Int()
		return time.Unix(secs, nanos).UTC()
	case "google.protobuf.Duration":
		secs := m.Get(md.Fields().ByName("seconds")).Int()
		nanos := m.Get(md.Fields().ByName("nanos")).Int()
		return time.Duration(secs)*time.Second + time.Duration(nanos)
	}
	return m.Interface()
}

// Set implements Accessor. Repeated, map and message fields are read-only.
func (a ProtoAccessor) Set(item Item, field string, value any) error {
	m, ok := protoMessage(item)
	if !ok {
		return fmt.Errorf("%w: %T is not a proto message", ErrTypeMismatch, item)
	}
	fd := fieldByName(m.Descriptor(), field)
	if fd == nil {
		return fmt.Errorf("%w: %s.%s", ErrFieldNotFound, m.Descriptor().FullName(), field)
	}
	if fd.IsList() || fd.IsMap() || fd.Message() != nil {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, fd.FullName())
	}
	if value == nil {
		m.Clear(fd)
		return nil
	}
	pv, err := protoScalar(fd, value)
	if err != nil {
		return err
	}
	m.Set(fd, pv)
	return nil
}

func protoScalar(fd protoreflect.FieldDescriptor, value any) (protoreflect.Value, error) {
	mismatch := fmt.Errorf("%w: %T for %s (%s)", ErrTypeMismatch, value, fd.FullName(), fd.Kind())
	switch fd.Kind() {
	case protoreflect.BoolKind:
		if b, ok := value.(bool); ok {
			return protoreflect.ValueOfBool(b), nil
		}
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		if n, ok := asInt64(value); ok {
			return protoreflect.ValueOfInt32(int32(n)), nil
		}
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		if n, ok := asInt64(value); ok {
			return protoreflect.ValueOfInt64(n), nil
		}
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		if n, ok := asInt64(value); ok && n >= 0 {
			return protoreflect.ValueOfUint32(uint32(n)), nil
		}
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		if n, ok := asInt64(value); ok && n >= 0 {
			return protoreflect.ValueOfUint64(uint64(n)), nil
		}
	case protoreflect.FloatKind:
		if f, ok := asFloat64(value); ok {
			return protoreflect.ValueOfFloat32(float32(f)), nil
		}
	case protoreflect.DoubleKind:
		if f, ok := asFloat64(value); ok {
			return protoreflect.ValueOfFloat64(f), nil
		}
	case protoreflect.StringKind:
		if s, ok := value.(string); ok {
			return protoreflect.ValueOfString(s), nil
		}
	case protoreflect.BytesKind:
		if b, ok := value.([]byte); ok {
			return protoreflect.ValueOfBytes(b), nil
		}
	case protoreflect.EnumKind:
		switch v := value.(type) {
		case string:
			if ev := fd.Enum().Values().ByName(protoreflect.Name(v)); ev != nil {
				return protoreflect.ValueOfEnum(ev.Number()), nil
			}
		default:
			if n, ok := asInt64(value); ok {
				return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n)), nil
			}
		}
	}
	return protoreflect.Value{}, mismatch
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	}
	if n, ok := asInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}
