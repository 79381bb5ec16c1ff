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

package pubsubjson

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/pubsub"
	"github.com/open62541-go/opcua-core/ua"
)

// TestEncodeCanonicalReversibleForm pins the canonical reversible document byte
// for byte.
func TestEncodeCanonicalReversibleForm(t *testing.T) {
	msg := pubsub.NetworkMessage{
		MessageID:      "ABCDEFGH",
		PublisherID:    pubsub.PublisherID{Type: ua.TypeUInt16, Value: uint16(65535)},
		DataSetClassID: ua.Guid{Data1: 1, Data2: 2, Data3: 3},
		Messages: []pubsub.DataSetMessage{
			{
				DataSetWriterID: 12345,
				SequenceNumber:  4711,
				MetaDataMajor:   42,
				MetaDataMinor:   7,
				Timestamp:       ua.DateTime(11111111111111),
				Status:          ua.StatusCode(12345),
				Type:            pubsub.DataSetKeyFrame,
				FieldNames:      []string{"Field1"},
				Fields:          []ua.DataValue{ua.NewDataValue(ua.NewScalarVariant(ua.TypeUInt32, uint32(27)))},
			},
		},
	}

	got, err := Encode(msg)
	require.NoError(t, err)
	want := `{"MessageId":"ABCDEFGH","MessageType":"ua-data","PublisherId":"65535","DataSetClassId":"00000001-0002-0003-0000-000000000000","Messages":[{"DataSetWriterId":12345,"SequenceNumber":4711,"MetaDataVersion":{"MajorVersion":42,"MinorVersion":7},"Timestamp":"1601-01-13T20:38:31.1111111Z","Status":12345,"MessageType":"ua-keyframe","Payload":{"Field1":{"UaType":7,"Value":27}}}]}`
	require.JSONEq(t, want, string(got))
	require.Equal(t, want, string(got))
}

func TestDecodeEnvelope(t *testing.T) {
	data := []byte(`{"MessageId":"X","MessageType":"ua-data","PublisherId":"1","DataSetClassId":"00000000-0000-0000-0000-000000000000","Messages":[{"DataSetWriterId":5,"SequenceNumber":1,"MetaDataVersion":{"MajorVersion":1,"MinorVersion":0},"Status":0,"MessageType":"ua-keyframe","Payload":{}}]}`)
	msg, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, "X", msg.MessageID)
	require.Len(t, msg.Messages, 1)
	require.Equal(t, uint16(5), msg.Messages[0].DataSetWriterID)
	require.Equal(t, ua.TypeByte, msg.PublisherID.Type)
	require.Equal(t, byte(1), msg.PublisherID.Value)
}

// TestDecodeRoundTripsEncode feeds Encode's own output back through Decode,
// checking Payload field order and PublisherId survive the round trip even
// without a DataSetMetaData lookup.
func TestDecodeRoundTripsEncode(t *testing.T) {
	msg := pubsub.NetworkMessage{
		MessageID:   "ABCDEFGH",
		PublisherID: pubsub.PublisherID{Type: ua.TypeUInt16, Value: uint16(65535)},
		Messages: []pubsub.DataSetMessage{
			{
				DataSetWriterID: 12345,
				FieldNames:      []string{"Bravo", "Alpha", "Charlie"},
				Fields: []ua.DataValue{
					ua.NewDataValue(ua.NewScalarVariant(ua.TypeUInt32, uint32(2))),
					ua.NewDataValue(ua.NewScalarVariant(ua.TypeUInt32, uint32(1))),
					ua.NewDataValue(ua.NewScalarVariant(ua.TypeUInt32, uint32(3))),
				},
			},
		},
	}

	encoded, err := Encode(msg)
	require.NoError(t, err)

	got, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGH", got.MessageID)
	require.Equal(t, ua.TypeUInt16, got.PublisherID.Type)
	require.Equal(t, uint16(65535), got.PublisherID.Value)
	require.Len(t, got.Messages, 1)
	require.Equal(t, []string{"Bravo", "Alpha", "Charlie"}, got.Messages[0].FieldNames)
	require.Len(t, got.Messages[0].Fields, 3)
	require.Equal(t, ua.TypeUInt32, got.Messages[0].Fields[0].Value.Type)
}

func TestParsePublisherIDGuidFallback(t *testing.T) {
	g := ua.Guid{Data1: 1, Data2: 2, Data3: 3}
	p := parsePublisherID(g.String())
	require.Equal(t, ua.TypeGuid, p.Type)
	require.Equal(t, g, p.Value)

	p = parsePublisherID("not-a-guid-or-number")
	require.Equal(t, ua.TypeString, p.Type)
	require.Equal(t, "not-a-guid-or-number", p.Value)
}
