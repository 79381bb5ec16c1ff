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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/ua"
)

// TestEncodeVariant_StringArray pins the array wire form: a 3-element
// String array Variant has encoding byte 0x80|12 = 0x8c, an array length
// of 3, then the three length-prefixed strings.
func TestEncodeVariant_StringArray(t *testing.T) {
	v := ua.NewArrayVariant(ua.TypeString, []string{"foo", "bar", "baz"})

	c := NewContext(nil)
	buf := make([]byte, 64)
	e := NewEncoder(buf)
	require.NoError(t, c.EncodeVariant(e, v))

	out := e.Bytes()
	require.NotEmpty(t, out)
	assert.Equal(t, byte(0x8c), out[0])
	assert.Equal(t, []byte{3, 0, 0, 0}, out[1:5])

	d := NewDecoder(out, c)
	got, err := c.DecodeVariant(d)
	require.NoError(t, err)
	assert.Equal(t, ua.TypeString, got.Type)
	assert.Equal(t, ua.StorageArray, got.Kind)
	assert.Equal(t, []string{"foo", "bar", "baz"}, got.Value)
	assert.Equal(t, 0, d.Remaining())
}

func TestEncodeVariant_EmptyIsSingleZeroByte(t *testing.T) {
	c := NewContext(nil)
	buf := make([]byte, 8)
	e := NewEncoder(buf)
	require.NoError(t, c.EncodeVariant(e, ua.Variant{}))
	assert.Equal(t, []byte{0}, e.Bytes())
}

func TestDataValue_RoundTrip(t *testing.T) {
	c := NewContext(nil)
	dv := ua.DataValue{
		Value:              ua.NewScalarVariant(ua.TypeInt32, int32(42)),
		HasValue:           true,
		HasStatus:          true,
		Status:             ua.Good,
		HasSourceTimestamp: true,
		SourceTimestamp:    ua.NewDateTime(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
	}
	buf := make([]byte, 64)
	e := NewEncoder(buf)
	require.NoError(t, c.EncodeDataValue(e, dv))

	d := NewDecoder(e.Bytes(), c)
	got, err := c.DecodeDataValue(d)
	require.NoError(t, err)
	assert.Equal(t, dv.HasValue, got.HasValue)
	assert.Equal(t, dv.Value.Value, got.Value.Value)
	assert.Equal(t, dv.Status, got.Status)
	assert.Equal(t, dv.SourceTimestamp, got.SourceTimestamp)
	assert.False(t, got.HasServerTimestamp)
	assert.Equal(t, 0, d.Remaining())
}

func TestExtensionObject_RoundTripNoDecoded(t *testing.T) {
	c := NewContext(nil)
	eo := ua.ExtensionObject{
		TypeID:   ua.NewNumericNodeId(1, 99),
		Encoding: ua.ExtensionBinary,
		Body:     []byte{0x01, 0x02, 0x03},
	}
	buf := make([]byte, 64)
	e := NewEncoder(buf)
	require.NoError(t, c.EncodeExtensionObject(e, eo))

	d := NewDecoder(e.Bytes(), c)
	got, err := c.DecodeExtensionObject(d)
	require.NoError(t, err)
	assert.True(t, eo.TypeID.Equal(got.TypeID))
	assert.Equal(t, eo.Encoding, got.Encoding)
	assert.Equal(t, eo.Body, []byte(got.Body))
	assert.Nil(t, got.Decoded)
}

func TestExtensionObject_NoneEncodingHasNoBody(t *testing.T) {
	c := NewContext(nil)
	eo := ua.ExtensionObject{TypeID: ua.NewNumericNodeId(0, 0), Encoding: ua.ExtensionNone}
	buf := make([]byte, 16)
	e := NewEncoder(buf)
	require.NoError(t, c.EncodeExtensionObject(e, eo))
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, e.Bytes())
}

func TestDiagnosticInfo_RoundTripWithInner(t *testing.T) {
	c := NewContext(nil)
	inner := ua.DiagnosticInfo{HasSymbolicID: true, SymbolicID: 7}
	v := ua.DiagnosticInfo{
		HasAdditionalInfo:      true,
		AdditionalInfo:         "context",
		HasInnerDiagnosticInfo: true,
		InnerDiagnosticInfo:    &inner,
	}
	buf := make([]byte, 64)
	e := NewEncoder(buf)
	require.NoError(t, c.EncodeDiagnosticInfo(e, v, 0))

	d := NewDecoder(e.Bytes(), c)
	got, err := c.DecodeDiagnosticInfo(d, 0)
	require.NoError(t, err)
	assert.Equal(t, v.AdditionalInfo, got.AdditionalInfo)
	require.NotNil(t, got.InnerDiagnosticInfo)
	assert.Equal(t, int32(7), got.InnerDiagnosticInfo.SymbolicID)
	assert.Equal(t, 0, d.Remaining())
}

func TestDiagnosticInfo_DepthExceeded(t *testing.T) {
	c := NewContext(nil)
	var v ua.DiagnosticInfo
	for i := 0; i <= ua.MaxDiagnosticInfoDepth; i++ {
		v = ua.DiagnosticInfo{HasInnerDiagnosticInfo: true, InnerDiagnosticInfo: cloneDiag(v)}
	}
	buf := make([]byte, 256)
	e := NewEncoder(buf)
	err := c.EncodeDiagnosticInfo(e, v, 0)
	require.Error(t, err)
}

func cloneDiag(v ua.DiagnosticInfo) *ua.DiagnosticInfo {
	out := v
	return &out
}
