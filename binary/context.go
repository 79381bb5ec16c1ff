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

// Package binary implements the OPC UA Binary encoding:
// every built-in scalar, array, structure, Variant, ExtensionObject,
// DataValue and DiagnosticInfo, bit-exact, little-endian, with a bounded
// decoding context checked against the available slice before any
// allocation happens.
package binary

import (
	"github.com/open62541-go/opcua-core/ua"
)

// DefaultMaxArrayLength caps array element counts absent an explicit
// context override; the protocol requires rejecting arrays that would
// exceed the context's messageSize cap, not an unconditional fixed count,
// but a default keeps a Context usable without wiring one up end-to-end.
const DefaultMaxArrayLength = 1 << 16

// DefaultMaxMessageSize is applied as a safety cap when a Context's
// MaxMessageSize is left at 0 ("unbounded"), per the protocol's note
// that an implementation applies a safety cap even when negotiated as 0.
const DefaultMaxMessageSize = 16 * 1024 * 1024

// StructureDescription describes a generated structure type for the
// member-list-driven structure codec.
type StructureDescription struct {
	TypeID  ua.NodeId
	Members []MemberDescription
}

// MemberDescription is one field of a StructureDescription: its Go-visible
// name (for error messages), its BuiltinType (or 0 if Nested is set), and
// whether it is an array and/or optional.
type MemberDescription struct {
	Name       string
	Type       ua.BuiltinType
	Nested     *StructureDescription
	IsArray    bool
	IsOptional bool
}

// TypeRegistry resolves an ExtensionObject's binary-encoding NodeId to a
// StructureDescription, modeling the NodeStore-adjacent DataType lookup
// named by the protocol. It is intentionally minimal: the NodeStore
// itself is out of scope and is addressed only through
// this narrow capability.
type TypeRegistry interface {
	Lookup(typeID ua.NodeId) (StructureDescription, bool)
}

// Context bounds a decode/encode operation: the namespace mapping isn't
// modeled here (it lives in the caller's NodeStore-adjacent layer). The
// Decoder enforces MaxArrayLength and never reads past its input slice.
// MaxMessageSize is carried for callers that size whole messages (the
// server caps encoded responses with it); the Decoder does not track its
// aggregate allocation against MaxMessageSize. The DiagnosticInfo nesting
// cap is the package constant MaxDiagnosticInfoDepth, not a Context field.
type Context struct {
	MaxArrayLength int
	MaxMessageSize int
	Types          TypeRegistry
}

// NewContext returns a Context with the package defaults.
func NewContext(types TypeRegistry) *Context {
	return &Context{
		MaxArrayLength: DefaultMaxArrayLength,
		MaxMessageSize: DefaultMaxMessageSize,
		Types:          types,
	}
}

func (c *Context) maxArrayLength() int {
	if c == nil || c.MaxArrayLength <= 0 {
		return DefaultMaxArrayLength
	}
	return c.MaxArrayLength
}

func (c *Context) maxMessageSize() int {
	if c == nil || c.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}
	return c.MaxMessageSize
}

func (c *Context) lookup(typeID ua.NodeId) (StructureDescription, bool) {
	if c == nil || c.Types == nil {
		return StructureDescription{}, false
	}
	return c.Types.Lookup(typeID)
}
