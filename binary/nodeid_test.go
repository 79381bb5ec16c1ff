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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/ua"
)

// TestEncodeNodeId_CanonicalNumericForm pins the canonical numeric form byte
// for byte: namespaceIndex=2, numeric identifier 1234 encodes to
// 0x01, 02 00, D2 04 00 00.
func TestEncodeNodeId_CanonicalNumericForm(t *testing.T) {
	n := ua.NewNumericNodeId(2, 1234)
	buf := make([]byte, 16)
	e := NewEncoder(buf)
	require.NoError(t, EncodeNodeId(e, n))
	assert.Equal(t, []byte{0x01, 0x02, 0x00, 0xD2, 0x04, 0x00, 0x00}, e.Bytes())

	d := NewDecoder(e.Bytes(), nil)
	got, err := DecodeNodeId(d)
	require.NoError(t, err)
	assert.True(t, n.Equal(got))
	assert.Equal(t, 0, d.Remaining())
}

func TestNodeId_RoundTrip_TwoByte(t *testing.T) {
	n := ua.NewNumericNodeId(0, 5)
	buf := make([]byte, 16)
	e := NewEncoder(buf)
	require.NoError(t, EncodeNodeId(e, n))
	assert.Equal(t, []byte{0x00, 0x05}, e.Bytes())

	d := NewDecoder(e.Bytes(), nil)
	got, err := DecodeNodeId(d)
	require.NoError(t, err)
	assert.True(t, n.Equal(got))
}

func TestNodeId_RoundTrip_StringGuidByteString(t *testing.T) {
	cases := []ua.NodeId{
		ua.NewStringNodeId(3, "some.node"),
		ua.NewGuidNodeId(1, ua.Guid{Data1: 1, Data2: 2, Data3: 3, Data4: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}),
		ua.NewOpaqueNodeId(7, []byte{0xde, 0xad, 0xbe, 0xef}),
	}
	for _, n := range cases {
		buf := make([]byte, 64)
		e := NewEncoder(buf)
		require.NoError(t, EncodeNodeId(e, n))
		d := NewDecoder(e.Bytes(), nil)
		got, err := DecodeNodeId(d)
		require.NoError(t, err)
		assert.True(t, n.Equal(got), "round trip for %v", n)
		assert.Equal(t, 0, d.Remaining())
	}
}

func TestDecodeNodeId_FourByteCompactForm(t *testing.T) {
	// Not produced by the canonical encoder, but must still decode.
	raw := []byte{0x02, 0x05, 0xD2, 0x04}
	d := NewDecoder(raw, nil)
	got, err := DecodeNodeId(d)
	require.NoError(t, err)
	assert.Equal(t, ua.NewNumericNodeId(5, 1234), got)
}

func TestExpandedNodeId_RoundTripWithURIAndServerIndex(t *testing.T) {
	n := ua.ExpandedNodeId{
		NodeId:       ua.NewNumericNodeId(2, 1234),
		NamespaceURI: "urn:example:ns",
		ServerIndex:  7,
	}
	buf := make([]byte, 64)
	e := NewEncoder(buf)
	require.NoError(t, EncodeExpandedNodeId(e, n))

	d := NewDecoder(e.Bytes(), nil)
	got, err := DecodeExpandedNodeId(d)
	require.NoError(t, err)
	assert.True(t, n.Equal(got))
	assert.Equal(t, n.NamespaceURI, got.NamespaceURI)
	assert.Equal(t, n.ServerIndex, got.ServerIndex)
}

func TestDecodeNodeId_TooShort(t *testing.T) {
	d := NewDecoder([]byte{0x01, 0x02}, nil)
	_, err := DecodeNodeId(d)
	require.Error(t, err)
}
