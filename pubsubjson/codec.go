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

// Package pubsubjson implements the PubSub-JSON alternate encoding for
// NetworkMessages: the reversible form JSON-consuming clients use instead
// of UADP binary. Field order in the marshaled output follows the OPC UA
// JSON mapping's canonical member order, hand-shaped rather than left to
// map iteration order.
package pubsubjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/open62541-go/opcua-core/pubsub"
	"github.com/open62541-go/opcua-core/ua"
)

// formatDateTime renders an OPC UA DateTime as ISO 8601 with exactly 7
// fractional digits (100-ns resolution), the canonical reversible form -
// time.RFC3339Nano would instead trim trailing zeros and vary digit
// count, which breaks byte-exact comparison against a fixed reference
// string.
func formatDateTime(d ua.DateTime) string {
	const ticksPerSecond = 10000000
	whole := int64(d)
	frac := whole % ticksPerSecond
	if frac < 0 {
		frac += ticksPerSecond
	}
	t := d.Time()
	return fmt.Sprintf("%s.%07dZ", t.Format("2006-01-02T15:04:05"), frac)
}

// dataSetMessageTypeJSON renders a pubsub.DataSetMessageType as the
// PubSub-JSON MessageType discriminator string.
func dataSetMessageTypeJSON(t pubsub.DataSetMessageType) string {
	switch t {
	case pubsub.DataSetKeyFrame:
		return "ua-keyframe"
	case pubsub.DataSetDelta:
		return "ua-delta"
	case pubsub.DataSetKeepAlive:
		return "ua-keepalive"
	default:
		return "ua-keyframe"
	}
}

func parseDataSetMessageType(s string) pubsub.DataSetMessageType {
	switch s {
	case "ua-delta":
		return pubsub.DataSetDelta
	case "ua-keepalive":
		return pubsub.DataSetKeepAlive
	default:
		return pubsub.DataSetKeyFrame
	}
}

// parseDateTime reverses formatDateTime. RFC3339 parsing keeps the 100-ns
// fraction intact (seven digits is within nanosecond resolution); an
// unparseable or absent Timestamp decodes as the zero DateTime rather than
// failing the message.
func parseDateTime(s string) ua.DateTime {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0
	}
	return ua.NewDateTime(t)
}

// metaDataVersionJSON is the MetaDataVersion sub-object.
type metaDataVersionJSON struct {
	MajorVersion uint32 `json:"MajorVersion"`
	MinorVersion uint32 `json:"MinorVersion"`
}

// payloadFieldJSON is one Payload entry: {"UaType": <built-in type id>,
// "Value": <json-native value>}.
type payloadFieldJSON struct {
	UaType ua.BuiltinType `json:"UaType"`
	Value  interface{}    `json:"Value"`
}

// orderedPayload preserves DataSetMessage.FieldNames order on encode,
// instead of the alphabetical order encoding/json would give a plain Go
// map - OPC UA JSON does not mandate an order, but a deterministic one
// matches this codebase's determinism rule for encoded output.
type orderedPayload struct {
	names  []string
	fields []payloadFieldJSON
}

func (p orderedPayload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range p.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(p.fields[i])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON is Decode's best-effort Payload reconstruction: a subscriber with no DataSetMetaData still has to recover
// the field names and values in document order, so this walks the object
// token by token rather than through a map, which would discard order.
func (p *orderedPayload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("pubsubjson: Payload must be a JSON object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("pubsubjson: Payload field name must be a string")
		}
		var field payloadFieldJSON
		if err := dec.Decode(&field); err != nil {
			return err
		}
		p.names = append(p.names, key)
		p.fields = append(p.fields, field)
	}
	_, err = dec.Token()
	return err
}

// dataSetMessageJSON mirrors one pubsub.DataSetMessage in PubSub-JSON form.
type dataSetMessageJSON struct {
	DataSetWriterID uint16               `json:"DataSetWriterId"`
	SequenceNumber  uint16               `json:"SequenceNumber,omitempty"`
	MetaDataVersion metaDataVersionJSON  `json:"MetaDataVersion"`
	Timestamp       string               `json:"Timestamp,omitempty"`
	Status          uint32               `json:"Status,omitempty"`
	MessageType     string               `json:"MessageType"`
	Payload         orderedPayload       `json:"Payload"`
}

// networkMessageJSON mirrors one pubsub.NetworkMessage in PubSub-JSON form.
type networkMessageJSON struct {
	MessageID      string               `json:"MessageId"`
	MessageType    string               `json:"MessageType"`
	PublisherID    string               `json:"PublisherId"`
	DataSetClassID string               `json:"DataSetClassId"`
	Messages       []dataSetMessageJSON `json:"Messages"`
}

// scalarJSONValue extracts the plain JSON-native value for a scalar
// Variant.
func scalarJSONValue(v ua.Variant) interface{} {
	return v.Value
}

// Encode renders msg as canonical reversible PubSub-JSON.
func Encode(msg pubsub.NetworkMessage) ([]byte, error) {
	out := networkMessageJSON{
		MessageID:      msg.MessageID,
		MessageType:    "ua-data",
		PublisherID:    publisherIDString(msg.PublisherID),
		DataSetClassID: msg.DataSetClassID.String(),
	}
	for _, m := range msg.Messages {
		dj := dataSetMessageJSON{
			DataSetWriterID: m.DataSetWriterID,
			SequenceNumber:  m.SequenceNumber,
			MetaDataVersion: metaDataVersionJSON{MajorVersion: m.MetaDataMajor, MinorVersion: m.MetaDataMinor},
			Timestamp:       formatDateTime(m.Timestamp),
			Status:          uint32(m.Status),
			MessageType:     dataSetMessageTypeJSON(m.Type),
		}
		payload := orderedPayload{names: m.FieldNames}
		for _, f := range m.Fields {
			payload.fields = append(payload.fields, payloadFieldJSON{UaType: f.Value.Type, Value: scalarJSONValue(f.Value)})
		}
		dj.Payload = payload
		out.Messages = append(out.Messages, dj)
	}
	return json.Marshal(out)
}

// publisherIDString renders a PublisherID the way the reversible
// PubSub-JSON mapping requires: always a quoted string, regardless of the
// underlying numeric type.
func publisherIDString(p pubsub.PublisherID) string {
	switch v := p.Value.(type) {
	case string:
		return v
	case byte:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case ua.Guid:
		return v.String()
	default:
		return ""
	}
}

// parsePublisherID is publisherIDString's inverse: a PublisherId always
// arrives as a quoted string, so recovering the
// underlying Variant means trying the narrowest numeric form first, then a
// GUID, falling back to an opaque string - the same ambiguity publisherIDString
// introduces by rendering every numeric width the same way.
func parsePublisherID(s string) pubsub.PublisherID {
	if s == "" {
		return pubsub.PublisherID{}
	}
	if v, err := strconv.ParseUint(s, 10, 32); err == nil {
		switch {
		case v <= 0xFF:
			return pubsub.PublisherID{Type: ua.TypeByte, Value: byte(v)}
		case v <= 0xFFFF:
			return pubsub.PublisherID{Type: ua.TypeUInt16, Value: uint16(v)}
		default:
			return pubsub.PublisherID{Type: ua.TypeUInt32, Value: uint32(v)}
		}
	}
	if g, ok := ua.ParseGuid(s); ok {
		return pubsub.PublisherID{Type: ua.TypeGuid, Value: g}
	}
	return pubsub.PublisherID{Type: ua.TypeString, Value: s}
}

// Decode is the Encode inverse. Without a
// DataSetMetaData lookup it cannot recover a field's real BuiltinType when
// the sender omitted UaType, so Payload reconstruction is best-effort: each
// entry becomes a Variant carrying whatever JSON-native value the document
// held (json.Number for numerics, preserving Payload's field order as
// FieldNames/Fields), rather than failing the whole decode for lack of
// metadata.
func Decode(data []byte) (pubsub.NetworkMessage, error) {
	var in networkMessageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return pubsub.NetworkMessage{}, errors.Wrap(err, "pubsubjson: decode")
	}
	out := pubsub.NetworkMessage{
		MessageID:   in.MessageID,
		PublisherID: parsePublisherID(in.PublisherID),
	}
	if g, ok := ua.ParseGuid(in.DataSetClassID); ok {
		out.DataSetClassID = g
	}
	for _, m := range in.Messages {
		dm := pubsub.DataSetMessage{
			DataSetWriterID: m.DataSetWriterID,
			SequenceNumber:  m.SequenceNumber,
			MetaDataMajor:   m.MetaDataVersion.MajorVersion,
			MetaDataMinor:   m.MetaDataVersion.MinorVersion,
			Timestamp:       parseDateTime(m.Timestamp),
			Status:          ua.StatusCode(m.Status),
			Type:            parseDataSetMessageType(m.MessageType),
			FieldNames:      append([]string(nil), m.Payload.names...),
		}
		for _, f := range m.Payload.fields {
			dm.Fields = append(dm.Fields, ua.DataValue{
				HasValue: true,
				Value:    ua.Variant{Type: f.UaType, Value: f.Value},
			})
		}
		out.Messages = append(out.Messages, dm)
	}
	return out, nil
}
