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

// Package server wires the layers implemented elsewhere in this module
// (binary, chunk, securechannel, session, subscription, pubsub, eventloop)
// into one Server object that owns the configuration, the event loop and
// every protocol-layer store together. The information model, transport
// and cryptographic primitives are deliberately NOT implemented here:
// they are consumed only through the capability interfaces this file
// declares.
package server

import (
	"github.com/open62541-go/opcua-core/ua"
)

// ReferenceDirection selects which end of a Reference a traversal walks
//.
type ReferenceDirection int

// Directions a NodeStore traversal can take.
const (
	ReferenceForward ReferenceDirection = iota
	ReferenceInverse
)

// AttributeMask selects which attributes of a node a NodeStore lookup
// returns, avoiding a full node copy when only a few fields are needed.
type AttributeMask uint32

// Node is the minimal shape the core needs back from a NodeStore lookup:
// enough to answer Read/Browse/Write without this module knowing anything
// about how nodes are stored.
type Node struct {
	NodeID     ua.NodeId
	Class      uint32
	Attributes map[uint32]ua.DataValue
	References []Reference
}

// Reference is one edge out of (or into) a node, named by a reference-type
// NodeId resolved through NodeStore's own index↔NodeId table.
type Reference struct {
	ReferenceTypeIndex uint16
	IsInverse          bool
	TargetID           ua.ExpandedNodeId
}

// NodeStore is the information-model capability:
// node lookup, reference traversal, and attribute read/write. The core
// treats it as an external collaborator reached only through this
// interface; it never owns or walks an address space representation
// itself.
type NodeStore interface {
	GetNode(id ua.NodeId, attrs AttributeMask, refType ua.NodeId, dir ReferenceDirection) (Node, error)
	GetNodeCopy(id ua.NodeId) (Node, error)
	NewNode(n Node) error
	InsertNode(n Node) error
	ReplaceNode(n Node) error
	RemoveNode(id ua.NodeId) error
	Iterate(visit func(Node) bool)
	ResolveReferenceType(index uint16) (ua.NodeId, bool)
	ReferenceTypeIndex(id ua.NodeId) (uint16, bool)
	ReadAttribute(id ua.NodeId, attributeID uint32) (ua.DataValue, error)
	WriteAttribute(id ua.NodeId, attributeID uint32, value ua.DataValue) error
}

// NodeStoreTypeHierarchy adapts a NodeStore's reference traversal into the
// subscription layer's TypeHierarchy capability: sub is a subtype of super
// when walking inverse HasSubtype references up from sub reaches super.
// MaxDepth bounds the walk against cyclic or hostile hierarchies.
type NodeStoreTypeHierarchy struct {
	Store          NodeStore
	HasSubtypeType ua.NodeId
	MaxDepth       int
}

// IsSubtypeOf implements subscription.TypeHierarchy.
func (h NodeStoreTypeHierarchy) IsSubtypeOf(sub, super ua.NodeId) bool {
	if h.Store == nil {
		return false
	}
	depth := h.MaxDepth
	if depth <= 0 {
		depth = 16
	}
	cur := sub
	for i := 0; i < depth; i++ {
		if cur.Equal(super) {
			return true
		}
		node, err := h.Store.GetNode(cur, 0, h.HasSubtypeType, ReferenceInverse)
		if err != nil {
			return false
		}
		advanced := false
		for _, ref := range node.References {
			if ref.IsInverse {
				cur = ref.TargetID.NodeId
				advanced = true
				break
			}
		}
		if !advanced {
			return false
		}
	}
	return false
}

// ByteStream is the TCP-shaped transport capability a SecureChannel sits
// on top of. It is intentionally narrower than
// net.Conn: the core never needs deadlines or addresses, only ordered
// bytes in and out plus a way to tear the connection down.
type ByteStream interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Datagram is the connectionless transport capability PubSub's UDP/
// Ethernet profiles use, mirrored by pubsub.Publisher for
// the send side.
type Datagram interface {
	Send(p []byte) error
	Recv() ([]byte, error)
	Close() error
}
