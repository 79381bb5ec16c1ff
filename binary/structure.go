/*
Copyright (c) The open62541-go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package binary

import (
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// Structure is the decoded representation of a generated structure type:
// field name to value, the value being whatever decodeScalar/decodeArray/
// Structure produces for that member's type. It exists so ExtensionObject
// bodies for registered types can be read without generating per-type Go
// structs; the member list is described by the caller at runtime, not
// compiled in.
type Structure struct {
	TypeID ua.NodeId
	Fields map[string]interface{}
}

// EncodeStructure writes s's fields in the order desc.Members lists them.
// Optional members present in s.Fields are still encoded (OPC UA's Optional
// fields are a DataTypeDefinition concept for generated code, not a wire
// presence bit outside of structures that carry their own encoding mask;
// this codec treats every listed member as present).
func (c *Context) EncodeStructure(e *Encoder, desc StructureDescription, s Structure) error {
	body, err := c.encodeStructureBody(desc, s.Fields)
	if err != nil {
		return err
	}
	return e.Write(body)
}

// DecodeStructure reads a structure body with no outer length prefix,
// consuming exactly the bytes desc.Members describes.
func (c *Context) DecodeStructure(d *Decoder, desc StructureDescription) (Structure, error) {
	fields, err := c.decodeStructureFields(d, desc)
	if err != nil {
		return Structure{}, err
	}
	return Structure{TypeID: desc.TypeID, Fields: fields}, nil
}

// encodeStructureBody renders fields into a standalone byte slice (for
// embedding as an ExtensionObject's ByteString body), growing a scratch
// buffer on BufferTooSmall rather than requiring the caller to size one.
func (c *Context) encodeStructureBody(desc StructureDescription, fields map[string]interface{}) ([]byte, error) {
	size := 64
	for {
		buf := make([]byte, size)
		e := NewEncoder(buf)
		err := c.encodeStructureFields(e, desc, fields)
		if err == nil {
			return e.Bytes(), nil
		}
		if !uaerrors.Is(err, uaerrors.BufferTooSmall) {
			return nil, err
		}
		size *= 2
	}
}

func (c *Context) encodeStructureFields(e *Encoder, desc StructureDescription, fields map[string]interface{}) error {
	for _, m := range desc.Members {
		v, present := fields[m.Name]
		if !present {
			return uaerrors.Wrap(uaerrors.TypeMismatch, "structure member %q missing", m.Name)
		}
		if m.Nested != nil {
			nested, ok := v.(Structure)
			if !ok {
				return uaerrors.Wrap(uaerrors.TypeMismatch, "structure member %q: expected nested structure", m.Name)
			}
			if err := c.encodeStructureFields(e, *m.Nested, nested.Fields); err != nil {
				return err
			}
			continue
		}
		if m.IsArray {
			elems, n, err := flattenArray(m.Type, v)
			if err != nil {
				return uaerrors.Wrap(uaerrors.TypeMismatch, "structure member %q: %v", m.Name, err)
			}
			if err := e.ArrayLength(n, true); err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				if err := c.encodeScalar(e, m.Type, elems(i)); err != nil {
					return err
				}
			}
			continue
		}
		if err := c.encodeScalar(e, m.Type, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) decodeStructureFields(d *Decoder, desc StructureDescription) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(desc.Members))
	for _, m := range desc.Members {
		if m.Nested != nil {
			nested, err := c.decodeStructureFields(d, *m.Nested)
			if err != nil {
				return nil, err
			}
			out[m.Name] = Structure{TypeID: m.Nested.TypeID, Fields: nested}
			continue
		}
		if m.IsArray {
			n, ok, err := d.ArrayLength()
			if err != nil {
				return nil, err
			}
			if !ok {
				out[m.Name] = nil
				continue
			}
			arr, err := c.decodeArray(d, m.Type, n)
			if err != nil {
				return nil, err
			}
			out[m.Name] = arr
			continue
		}
		v, err := c.decodeScalar(d, m.Type)
		if err != nil {
			return nil, err
		}
		out[m.Name] = v
	}
	return out, nil
}

// decodeStructureBody decodes a structure from a standalone byte slice (an
// ExtensionObject's Body), returning it as a Structure for the caller.
func (c *Context) decodeStructureBody(desc StructureDescription, body []byte) (Structure, error) {
	d := NewDecoder(body, c)
	return c.DecodeStructure(d, desc)
}
