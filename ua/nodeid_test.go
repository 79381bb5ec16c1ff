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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeId_Equal(t *testing.T) {
	a := NewNumericNodeId(2, 1234)
	b := NewNumericNodeId(2, 1234)
	c := NewNumericNodeId(3, 1234)
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestNodeId_Less_TotalOrder(t *testing.T) {
	ids := []NodeId{
		NewNumericNodeId(1, 5),
		NewNumericNodeId(0, 10),
		NewStringNodeId(0, "z"),
		NewNumericNodeId(0, 1),
	}
	// namespace 0 numeric 1 < namespace 0 numeric 10 < namespace 0 string "z" < namespace 1 numeric 5
	assert.True(t, ids[3].Less(ids[1]))
	assert.True(t, ids[1].Less(ids[2]))
	assert.True(t, ids[2].Less(ids[0]))
}

func TestExpandedNodeId_EqualPrefersURI(t *testing.T) {
	a := ExpandedNodeId{NodeId: NewNumericNodeId(1, 1), NamespaceURI: "urn:a", ServerIndex: 1}
	b := ExpandedNodeId{NodeId: NewNumericNodeId(1, 1), NamespaceURI: "urn:a", ServerIndex: 2}
	require.True(t, a.Equal(b))

	c := ExpandedNodeId{NodeId: NewNumericNodeId(1, 1), NamespaceURI: "urn:b"}
	require.False(t, a.Equal(c))
}

func TestNodeId_KeyUsableAsMapKey(t *testing.T) {
	m := map[NodeIdKey]string{}
	m[NewOpaqueNodeId(0, []byte{1, 2, 3}).Key()] = "opaque"
	got, ok := m[NewOpaqueNodeId(0, []byte{1, 2, 3}).Key()]
	require.True(t, ok)
	assert.Equal(t, "opaque", got)
}
