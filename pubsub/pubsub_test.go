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

package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/ua"
)

type memTransport struct {
	sent [][]byte
}

func (m *memTransport) Publish(buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.sent = append(m.sent, cp)
	return nil
}

type staticSource struct {
	values map[uint16][]ua.DataValue
}

func (s *staticSource) Fields(id uint16) []ua.DataValue { return s.values[id] }

type recordingSink struct {
	delivered []DataSetMessage
}

func (r *recordingSink) Deliver(writerID uint16, msg DataSetMessage) {
	r.delivered = append(r.delivered, msg)
}

func TestWriterGroupReaderGroupRoundTrip(t *testing.T) {
	ctx := binary.NewContext(nil)
	source := &staticSource{values: map[uint16][]ua.DataValue{
		1: {ua.NewDataValue(ua.NewScalarVariant(ua.TypeInt32, int32(42)))},
	}}
	tr := &memTransport{}
	wg := NewWriterGroup(7, 0, PublisherID{Type: ua.TypeUInt16, Value: uint16(1)}, ctx, tr, source, nil)
	wg.AddWriter(&DataSetWriter{DataSetWriterID: 1, FieldNames: []string{"Temperature"}})

	require.NoError(t, wg.Publish(ua.DateTime(1000)))
	require.Len(t, tr.sent, 1)

	sink := &recordingSink{}
	rg := NewReaderGroup(7, ctx, sink, nil)
	rg.AddReader(&DataSetReader{DataSetWriterID: 1})

	require.NoError(t, rg.Receive(tr.sent[0]))
	require.Len(t, sink.delivered, 1)
	require.Equal(t, "Temperature", sink.delivered[0].FieldNames[0])
	require.Equal(t, int32(42), sink.delivered[0].Fields[0].Value.Value.(int32))
}

func TestWriterGroupPatchesSequenceNumbersWithoutRebuild(t *testing.T) {
	ctx := binary.NewContext(nil)
	source := &staticSource{values: map[uint16][]ua.DataValue{
		1: {ua.NewDataValue(ua.NewScalarVariant(ua.TypeInt32, int32(1)))},
	}}
	tr := &memTransport{}
	wg := NewWriterGroup(1, 0, PublisherID{Type: ua.TypeUInt16, Value: uint16(1)}, ctx, tr, source, nil)
	wg.AddWriter(&DataSetWriter{DataSetWriterID: 1, FieldNames: []string{"X"}})

	require.NoError(t, wg.Publish(ua.DateTime(0)))
	first := wg.table
	require.NoError(t, wg.Publish(ua.DateTime(1)))
	require.Same(t, first, wg.table)
	require.Len(t, tr.sent, 2)
}

// TestWriterGroupPatchesFieldValuesWithoutRebuild exercises the realtime
// path: after the first keyframe builds the template, later cycles patch
// fresh fixed-width field values and timestamps in place, and a receiver
// decodes the patched buffer to the new values.
func TestWriterGroupPatchesFieldValuesWithoutRebuild(t *testing.T) {
	ctx := binary.NewContext(nil)
	source := &staticSource{values: map[uint16][]ua.DataValue{
		1: {ua.NewDataValue(ua.NewScalarVariant(ua.TypeInt32, int32(1)))},
	}}
	tr := &memTransport{}
	wg := NewWriterGroup(3, 0, PublisherID{Type: ua.TypeUInt16, Value: uint16(1)}, ctx, tr, source, nil)
	wg.AddWriter(&DataSetWriter{DataSetWriterID: 1, FieldNames: []string{"X"}})

	require.NoError(t, wg.Publish(ua.DateTime(0)))
	first := wg.table

	source.values[1] = []ua.DataValue{ua.NewDataValue(ua.NewScalarVariant(ua.TypeInt32, int32(99)))}
	require.NoError(t, wg.Publish(ua.DateTime(5)))
	require.Same(t, first, wg.table)
	require.Len(t, tr.sent, 2)

	sink := &recordingSink{}
	rg := NewReaderGroup(3, ctx, sink, nil)
	rg.AddReader(&DataSetReader{DataSetWriterID: 1})
	require.NoError(t, rg.Receive(tr.sent[1]))
	require.Len(t, sink.delivered, 1)
	require.Equal(t, int32(99), sink.delivered[0].Fields[0].Value.Value.(int32))
	require.Equal(t, ua.DateTime(5), sink.delivered[0].Timestamp)
}

func TestSecurityGroupKeyWindow(t *testing.T) {
	g := NewSecurityGroup("http://opcfoundation.org/UA/SecurityPolicy#Aes256Sha256RsaPss", 1, 1)
	g.SetCurrentKey(SecurityKey{KeyID: 1})
	g.AddFutureKey(SecurityKey{KeyID: 2})

	_, err := g.Key(1)
	require.NoError(t, err)
	_, err = g.Key(2)
	require.NoError(t, err)

	g.SetCurrentKey(SecurityKey{KeyID: 2})
	_, err = g.Key(1)
	require.NoError(t, err)

	g.SetCurrentKey(SecurityKey{KeyID: 3})
	_, err = g.Key(1)
	require.Error(t, err)
}

func TestReaderGroupDropsUnknownWriter(t *testing.T) {
	ctx := binary.NewContext(nil)
	source := &staticSource{values: map[uint16][]ua.DataValue{
		1: {ua.NewDataValue(ua.NewScalarVariant(ua.TypeInt32, int32(1)))},
	}}
	tr := &memTransport{}
	wg := NewWriterGroup(2, 0, PublisherID{Type: ua.TypeUInt16, Value: uint16(1)}, ctx, tr, source, nil)
	wg.AddWriter(&DataSetWriter{DataSetWriterID: 1, FieldNames: []string{"X"}})
	require.NoError(t, wg.Publish(ua.DateTime(0)))

	sink := &recordingSink{}
	rg := NewReaderGroup(2, ctx, sink, nil)
	// no reader registered for writer id 1
	require.NoError(t, rg.Receive(tr.sent[0]))
	require.Empty(t, sink.delivered)
	require.Equal(t, 1, rg.DroppedUnknownWriter())
}
