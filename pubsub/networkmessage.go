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

// Package pubsub implements the OPC UA PubSub network message path: per-WriterGroup periodic NetworkMessage assembly via a
// pre-built buffer and OffsetTable, per-ReaderGroup demultiplexing and
// decode, and SecurityGroup key rotation. Transport fan-out (UDP multicast,
// Ethernet/VLAN) lives in the pubsub/transport subpackage.
package pubsub

import (
	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/ua"
)

// NetworkMessageFlags selects which optional header fields are present on
// the UADP wire form.
type NetworkMessageFlags uint8

// Flag bits (simplified subset of the UADP NetworkMessageHeader flags: this
// codebase carries PublisherId, GroupHeader and payload header presence,
// which is what WriterGroup/ReaderGroup need; extended/security flags are
// layered on top by SecurityGroup).
const (
	FlagPublisherID NetworkMessageFlags = 1 << iota
	FlagGroupHeader
	FlagPayloadHeader
	FlagSecurity
)

// GroupHeaderFlags selects which GroupHeader fields are present.
type GroupHeaderFlags uint8

// Group header flag bits.
const (
	GroupFlagWriterGroupID GroupHeaderFlags = 1 << iota
	GroupFlagGroupVersion
	GroupFlagNetworkMessageNumber
	GroupFlagSequenceNumber
)

// PublisherID is the UADP PublisherId field: a Variant-typed value, scoped
// here to the narrow numeric and string forms most deployments use.
type PublisherID struct {
	Type  ua.BuiltinType // TypeByte, TypeUInt16, TypeUInt32, TypeString, TypeGuid
	Value interface{}
}

// NetworkMessage is the PubSub transport-level envelope: a header plus one or more DataSetMessages. The wire layout is a
// fixed prefix (this struct) followed by each DataSetMessage's own payload,
// tracked by a WriterGroup's OffsetTable rather than re-encoded whole each
// cycle.
type NetworkMessage struct {
	// MessageID is a JSON-encoding-only identifier; the
	// UADP binary form carries no equivalent field.
	MessageID     string
	Version       uint8
	PublisherID   PublisherID
	DataSetClassID ua.Guid
	WriterGroupID uint16
	GroupVersion  uint32
	NetworkMessageNumber uint16
	SequenceNumber uint16
	DataSetWriterIDs []uint16
	Messages      []DataSetMessage
}

// DataSetMessageType distinguishes a keyframe (full snapshot) from a delta
// (changed fields only) DataSetMessage.
type DataSetMessageType uint8

// DataSetMessage types.
const (
	DataSetKeyFrame DataSetMessageType = iota
	DataSetDelta
	DataSetKeepAlive
)

// DataSetMessage carries one PublishedDataSet's fields for one
// DataSetWriter.
type DataSetMessage struct {
	DataSetWriterID uint16
	SequenceNumber  uint16
	Timestamp       ua.DateTime
	Status          ua.StatusCode
	MetaDataMajor   uint32
	MetaDataMinor   uint32
	Type            DataSetMessageType
	FieldNames      []string
	Fields          []ua.DataValue
}

// EncodeHeader writes the NetworkMessage's fixed header (everything ahead
// of the per-DataSetMessage payloads) to e. The payload itself is written
// separately by WriterGroup via the OffsetTable so repeat cycles can patch
// in place instead of re-encoding the whole message.
func (m NetworkMessage) EncodeHeader(e *binary.Encoder) error {
	if err := e.Byte(m.Version); err != nil {
		return err
	}
	if err := e.Byte(byte(m.publisherFlag())); err != nil {
		return err
	}
	// The PublisherId type byte lets the receive side decode the value
	// without out-of-band metadata.
	if err := e.Byte(byte(m.PublisherID.Type)); err != nil {
		return err
	}
	switch m.PublisherID.Type {
	case ua.TypeByte:
		if err := e.Byte(m.PublisherID.Value.(byte)); err != nil {
			return err
		}
	case ua.TypeUInt16:
		if err := e.Uint16(m.PublisherID.Value.(uint16)); err != nil {
			return err
		}
	case ua.TypeUInt32:
		if err := e.Uint32(m.PublisherID.Value.(uint32)); err != nil {
			return err
		}
	case ua.TypeString:
		if err := e.String(m.PublisherID.Value.(string), false); err != nil {
			return err
		}
	}
	if err := e.Uint16(m.WriterGroupID); err != nil {
		return err
	}
	if err := e.Uint32(m.GroupVersion); err != nil {
		return err
	}
	if err := e.Uint16(m.NetworkMessageNumber); err != nil {
		return err
	}
	return e.Uint16(m.SequenceNumber)
}

func (m NetworkMessage) publisherFlag() NetworkMessageFlags {
	f := FlagPublisherID | FlagGroupHeader
	if len(m.Messages) > 1 {
		f |= FlagPayloadHeader
	}
	return f
}

// EncodeDataSetMessage writes one DataSetMessage's payload to e: a header
// (writerId, seqNum, timestamp, status, metadata version, message type)
// followed by each field as a length-prefixed name and a DataValue. This
// is the shape WriterGroup's OffsetTable entries point into.
func EncodeDataSetMessage(ctx *binary.Context, e *binary.Encoder, m DataSetMessage) error {
	if err := e.Uint16(m.DataSetWriterID); err != nil {
		return err
	}
	if err := e.Uint16(m.SequenceNumber); err != nil {
		return err
	}
	if err := e.DateTime(m.Timestamp); err != nil {
		return err
	}
	if err := e.StatusCode(m.Status); err != nil {
		return err
	}
	if err := e.Uint32(m.MetaDataMajor); err != nil {
		return err
	}
	if err := e.Uint32(m.MetaDataMinor); err != nil {
		return err
	}
	if err := e.Byte(byte(m.Type)); err != nil {
		return err
	}
	if err := e.ArrayLength(len(m.Fields), true); err != nil {
		return err
	}
	for i, f := range m.Fields {
		if err := e.String(m.FieldNames[i], false); err != nil {
			return err
		}
		if err := ctx.EncodeDataValue(e, f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeDataSetMessage reads one DataSetMessage body from d.
func DecodeDataSetMessage(ctx *binary.Context, d *binary.Decoder) (DataSetMessage, error) {
	var m DataSetMessage
	var err error
	if m.DataSetWriterID, err = d.Uint16(); err != nil {
		return m, err
	}
	if m.SequenceNumber, err = d.Uint16(); err != nil {
		return m, err
	}
	if m.Timestamp, err = d.DateTime(); err != nil {
		return m, err
	}
	if m.Status, err = d.StatusCode(); err != nil {
		return m, err
	}
	if m.MetaDataMajor, err = d.Uint32(); err != nil {
		return m, err
	}
	if m.MetaDataMinor, err = d.Uint32(); err != nil {
		return m, err
	}
	typ, err := d.Byte()
	if err != nil {
		return m, err
	}
	m.Type = DataSetMessageType(typ)
	n, _, err := d.ArrayLength()
	if err != nil {
		return m, err
	}
	m.FieldNames = make([]string, n)
	m.Fields = make([]ua.DataValue, n)
	for i := 0; i < n; i++ {
		name, _, err := d.String()
		if err != nil {
			return m, err
		}
		m.FieldNames[i] = name
		fv, err := ctx.DecodeDataValue(d)
		if err != nil {
			return m, err
		}
		m.Fields[i] = fv
	}
	return m, nil
}
