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
	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// FieldSink receives a decoded DataSetMessage's fields, the mirror of
// FieldSource on the writer side.
type FieldSink interface {
	Deliver(dataSetWriterID uint16, msg DataSetMessage)
}

// DataSetReader binds one expected DataSetWriterID to a FieldSink: "a ReaderGroup demultiplexes an inbound NetworkMessage's
// DataSetMessages by DataSetWriterId to the matching DataSetReader".
type DataSetReader struct {
	DataSetWriterID uint16
	lastSeqNum      uint16
	haveSeqNum      bool
}

// ReaderGroup is the receive-side counterpart of WriterGroup: it decodes an
// inbound buffer's NetworkMessage header plus every DataSetMessage body and
// routes each to the reader registered for its DataSetWriterId, dropping
// anything unrecognized rather than failing the whole message.
type ReaderGroup struct {
	ID      uint16
	readers map[uint16]*DataSetReader
	ctx     *binary.Context
	sink    FieldSink
	log     *corelog.Logger

	droppedUnknownWriter int
	outOfOrder           int
}

// NewReaderGroup constructs an empty ReaderGroup.
func NewReaderGroup(id uint16, ctx *binary.Context, sink FieldSink, log *corelog.Logger) *ReaderGroup {
	return &ReaderGroup{
		ID:      id,
		readers: make(map[uint16]*DataSetReader),
		ctx:     ctx,
		sink:    sink,
		log:     log,
	}
}

// AddReader registers r.
func (g *ReaderGroup) AddReader(r *DataSetReader) {
	g.readers[r.DataSetWriterID] = r
}

// RemoveReader drops the reader bound to writerID.
func (g *ReaderGroup) RemoveReader(writerID uint16) {
	delete(g.readers, writerID)
}

// networkMessageHeader mirrors NetworkMessage's fixed prefix, decoded
// without assuming the number of DataSetMessages that follow: that count
// is not on the wire (EncodeHeader writes no PayloadHeader body, only the
// FlagPayloadHeader bit - see NetworkMessage.publisherFlag), so Receive
// reads DataSetMessages until the buffer is exhausted.
type networkMessageHeader struct {
	version       uint8
	flags         NetworkMessageFlags
	publisherID   PublisherID
	writerGroupID uint16
	groupVersion  uint32
	msgNumber     uint16
	seqNumber     uint16
}

func decodeHeader(d *binary.Decoder) (networkMessageHeader, error) {
	var h networkMessageHeader
	var err error
	version, err := d.Byte()
	if err != nil {
		return h, err
	}
	h.version = version
	flagByte, err := d.Byte()
	if err != nil {
		return h, err
	}
	h.flags = NetworkMessageFlags(flagByte)
	typeByte, err := d.Byte()
	if err != nil {
		return h, err
	}
	if h.flags&FlagPublisherID != 0 {
		h.publisherID.Type = ua.BuiltinType(typeByte)
		switch h.publisherID.Type {
		case ua.TypeByte:
			v, err := d.Byte()
			if err != nil {
				return h, err
			}
			h.publisherID.Value = v
		case ua.TypeUInt16:
			v, err := d.Uint16()
			if err != nil {
				return h, err
			}
			h.publisherID.Value = v
		case ua.TypeUInt32:
			v, err := d.Uint32()
			if err != nil {
				return h, err
			}
			h.publisherID.Value = v
		case ua.TypeString:
			v, _, err := d.String()
			if err != nil {
				return h, err
			}
			h.publisherID.Value = v
		}
	}
	if h.writerGroupID, err = d.Uint16(); err != nil {
		return h, err
	}
	if h.groupVersion, err = d.Uint32(); err != nil {
		return h, err
	}
	if h.msgNumber, err = d.Uint16(); err != nil {
		return h, err
	}
	if h.seqNumber, err = d.Uint16(); err != nil {
		return h, err
	}
	return h, nil
}

// Receive decodes buf as one NetworkMessage and dispatches each
// DataSetMessage to its registered DataSetReader. A
// decode failure on the header is fatal for this buffer; a failure
// decoding an individual DataSetMessage body stops processing further
// messages in the same buffer (the framing is sequential, unlike
// ChunkFramer's length-delimited chunks) but does not panic or crash the
// caller.
func (g *ReaderGroup) Receive(buf []byte) error {
	d := binary.NewDecoder(buf, g.ctx)
	h, err := decodeHeader(d)
	if err != nil {
		return uaerrors.Wrap(uaerrors.MalformedChunk, "pubsub: network message header: %v", err)
	}
	if h.writerGroupID != g.ID {
		return nil
	}
	for d.Remaining() > 0 {
		dsm, err := DecodeDataSetMessage(g.ctx, d)
		if err != nil {
			return uaerrors.Wrap(uaerrors.MalformedChunk, "pubsub: data set message: %v", err)
		}
		r, ok := g.readers[dsm.DataSetWriterID]
		if !ok {
			g.droppedUnknownWriter++
			continue
		}
		if r.haveSeqNum && !seq16After(dsm.SequenceNumber, r.lastSeqNum) {
			g.outOfOrder++
			continue
		}
		r.lastSeqNum = dsm.SequenceNumber
		r.haveSeqNum = true
		if g.sink != nil {
			g.sink.Deliver(dsm.DataSetWriterID, dsm)
		}
	}
	return nil
}

// seq16After reports whether a strictly follows b under 16-bit wraparound
// arithmetic. A repeated sequence number does
// not follow, so replays are dropped.
func seq16After(a, b uint16) bool {
	return int16(a-b) > 0
}

// DroppedUnknownWriter reports how many DataSetMessages were discarded for
// naming a DataSetWriterId with no registered reader.
func (g *ReaderGroup) DroppedUnknownWriter() int { return g.droppedUnknownWriter }

// OutOfOrder reports how many DataSetMessages were discarded for arriving
// with a sequence number at or behind the last one accepted.
func (g *ReaderGroup) OutOfOrder() int { return g.outOfOrder }
