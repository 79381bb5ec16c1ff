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

package ua

import (
	"fmt"
	"hash/fnv"
)

// IdentifierType discriminates the four NodeId identifier shapes. The compact-wire-form selection in the binary codec is driven
// by this plus the numeric value and namespace, not by IdentifierType alone.
type IdentifierType uint8

// Identifier kinds.
const (
	IdentifierNumeric IdentifierType = iota
	IdentifierString
	IdentifierGUID
	IdentifierOpaque // ByteString identifier
)

func (t IdentifierType) String() string {
	switch t {
	case IdentifierNumeric:
		return "Numeric"
	case IdentifierString:
		return "String"
	case IdentifierGUID:
		return "Guid"
	case IdentifierOpaque:
		return "Opaque"
	default:
		return fmt.Sprintf("IdentifierType(%d)", uint8(t))
	}
}

// NodeId identifies a node: a variant of {numeric, string, GUID, opaque
// bytes} paired with a 16-bit namespace index. Exactly one
// of the Numeric/String/Guid/Opaque fields is meaningful, selected by Type.
type NodeId struct {
	Namespace uint16
	Type      IdentifierType

	Numeric  uint32
	StringID string
	Guid     Guid
	Opaque   []byte
}

// NewNumericNodeId builds a numeric NodeId, the common case used by
// NodeStore lookups and well-known namespace-zero type ids.
func NewNumericNodeId(namespace uint16, id uint32) NodeId {
	return NodeId{Namespace: namespace, Type: IdentifierNumeric, Numeric: id}
}

// NewStringNodeId builds a string NodeId.
func NewStringNodeId(namespace uint16, id string) NodeId {
	return NodeId{Namespace: namespace, Type: IdentifierString, StringID: id}
}

// NewGuidNodeId builds a GUID NodeId.
func NewGuidNodeId(namespace uint16, id Guid) NodeId {
	return NodeId{Namespace: namespace, Type: IdentifierGUID, Guid: id}
}

// NewOpaqueNodeId builds an opaque (ByteString) NodeId.
func NewOpaqueNodeId(namespace uint16, id []byte) NodeId {
	return NodeId{Namespace: namespace, Type: IdentifierOpaque, Opaque: append([]byte(nil), id...)}
}

// IsNull reports whether n is the null NodeId (namespace 0, numeric 0).
func (n NodeId) IsNull() bool {
	return n.Namespace == 0 && n.Type == IdentifierNumeric && n.Numeric == 0
}

// Equal defines NodeId equality: same namespace, same identifier type, same
// identifier value.
func (n NodeId) Equal(other NodeId) bool {
	if n.Namespace != other.Namespace || n.Type != other.Type {
		return false
	}
	switch n.Type {
	case IdentifierNumeric:
		return n.Numeric == other.Numeric
	case IdentifierString:
		return n.StringID == other.StringID
	case IdentifierGUID:
		return n.Guid.Equal(other.Guid)
	case IdentifierOpaque:
		return string(n.Opaque) == string(other.Opaque)
	default:
		return false
	}
}

// Less defines a total order over NodeId: namespace, then identifier type,
// then identifier value. It exists so NodeId can key a sorted structure
// (e.g. the continuation-point or retransmission indices) deterministically.
func (n NodeId) Less(other NodeId) bool {
	if n.Namespace != other.Namespace {
		return n.Namespace < other.Namespace
	}
	if n.Type != other.Type {
		return n.Type < other.Type
	}
	switch n.Type {
	case IdentifierNumeric:
		return n.Numeric < other.Numeric
	case IdentifierString:
		return n.StringID < other.StringID
	case IdentifierGUID:
		ab, bb := n.Guid.Bytes(), other.Guid.Bytes()
		for i := range ab {
			if ab[i] != bb[i] {
				return ab[i] < bb[i]
			}
		}
		return false
	case IdentifierOpaque:
		return string(n.Opaque) < string(other.Opaque)
	default:
		return false
	}
}

// Hash returns a deterministic hash usable as a map key surrogate when a
// NodeId itself can't be a map key (it holds a slice for the opaque case).
func (n NodeId) Hash() uint64 {
	h := fnv.New64a()
	var tmp [8]byte
	tmp[0] = byte(n.Namespace)
	tmp[1] = byte(n.Namespace >> 8)
	tmp[2] = byte(n.Type)
	h.Write(tmp[:3])
	switch n.Type {
	case IdentifierNumeric:
		tmp[0] = byte(n.Numeric)
		tmp[1] = byte(n.Numeric >> 8)
		tmp[2] = byte(n.Numeric >> 16)
		tmp[3] = byte(n.Numeric >> 24)
		h.Write(tmp[:4])
	case IdentifierString:
		h.Write([]byte(n.StringID))
	case IdentifierGUID:
		b := n.Guid.Bytes()
		h.Write(b[:])
	case IdentifierOpaque:
		h.Write(n.Opaque)
	}
	return h.Sum64()
}

// Key returns a comparable value suitable for use as a Go map key, since
// NodeId itself is not comparable (it embeds a []byte for the opaque case).
func (n NodeId) Key() NodeIdKey {
	return NodeIdKey{
		Namespace: n.Namespace,
		Type:      n.Type,
		Numeric:   n.Numeric,
		String:    n.StringID,
		Guid:      n.Guid,
		Opaque:    string(n.Opaque),
	}
}

// NodeIdKey is the comparable projection of a NodeId, for use as a map key.
type NodeIdKey struct {
	Namespace uint16
	Type      IdentifierType
	Numeric   uint32
	String    string
	Guid      Guid
	Opaque    string
}

// Text returns the standard OPC UA textual NodeId representation
// (e.g. "ns=2;i=1234").
func (n NodeId) Text() string {
	switch n.Type {
	case IdentifierNumeric:
		return fmt.Sprintf("ns=%d;i=%d", n.Namespace, n.Numeric)
	case IdentifierString:
		return fmt.Sprintf("ns=%d;s=%s", n.Namespace, n.StringID)
	case IdentifierGUID:
		return fmt.Sprintf("ns=%d;g=%s", n.Namespace, n.Guid)
	case IdentifierOpaque:
		return fmt.Sprintf("ns=%d;b=%x", n.Namespace, n.Opaque)
	default:
		return fmt.Sprintf("ns=%d;?=%v", n.Namespace, n.Type)
	}
}

// ExpandedNodeId is a NodeId plus an optional namespace URI and an optional
// server index. Equality considers the URI before the
// index: two ExpandedNodeIds with the same URI are equal regardless of
// ServerIndex differences introduced by local namespace-table remapping.
type ExpandedNodeId struct {
	NodeId
	NamespaceURI string
	ServerIndex  uint32
}

// Equal compares NamespaceURI first (when either side sets it), falling
// back to the embedded NodeId and ServerIndex.
func (e ExpandedNodeId) Equal(other ExpandedNodeId) bool {
	if e.NamespaceURI != "" || other.NamespaceURI != "" {
		return e.NamespaceURI == other.NamespaceURI && e.NodeId.Equal(other.NodeId)
	}
	return e.NodeId.Equal(other.NodeId) && e.ServerIndex == other.ServerIndex
}
