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
	"time"

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// Publisher is the transport capability a WriterGroup sends finished
// NetworkMessage buffers through.
type Publisher interface {
	Publish(buf []byte) error
}

// FieldSource supplies a DataSetWriter's current field values each publish
// cycle.
type FieldSource interface {
	Fields(dataSetWriterID uint16) []ua.DataValue
}

// DataSetWriter maps one PublishedDataSet onto the wire as part of a
// WriterGroup's NetworkMessage.
type DataSetWriter struct {
	DataSetWriterID uint16
	FieldNames      []string
	KeyFrameCount   uint32 // 0 disables periodic keyframes (delta-only)

	seqNum        uint16
	cyclesSinceKF uint32
}

func (w *DataSetWriter) nextSeqNum() uint16 {
	w.seqNum++
	return w.seqNum
}

func (w *DataSetWriter) dueForKeyFrame() bool {
	if w.KeyFrameCount == 0 {
		return false
	}
	return w.cyclesSinceKF >= w.KeyFrameCount
}

// WriterGroup owns a set of DataSetWriters publishing together on one
// PublishingInterval. It rebuilds its OffsetTable
// whenever its writer set changes and otherwise only patches sequence
// numbers, timestamps and field values into the existing buffer each
// cycle - the fast path PubSub is built around, as opposed to
// Subscription's re-encode-every-cycle path.
type WriterGroup struct {
	ID                 uint16
	PublishingInterval time.Duration
	PublisherID        PublisherID
	Security           *SecurityGroup
	GroupVersion       uint32

	writers map[uint16]*DataSetWriter
	order   []uint16

	table *OffsetTable
	ctx   *binary.Context

	transport Publisher
	source    FieldSource
	log       *corelog.Logger

	networkSeq uint16
}

// NewWriterGroup constructs an empty WriterGroup bound to transport and
// source.
func NewWriterGroup(id uint16, interval time.Duration, publisherID PublisherID, ctx *binary.Context, transport Publisher, source FieldSource, log *corelog.Logger) *WriterGroup {
	return &WriterGroup{
		ID:                 id,
		PublishingInterval: interval,
		PublisherID:        publisherID,
		writers:            make(map[uint16]*DataSetWriter),
		ctx:                ctx,
		transport:          transport,
		source:             source,
		log:                log,
	}
}

// AddWriter registers w and invalidates the cached OffsetTable so it is
// rebuilt on the next Publish.
func (g *WriterGroup) AddWriter(w *DataSetWriter) {
	g.writers[w.DataSetWriterID] = w
	g.order = append(g.order, w.DataSetWriterID)
	g.table = nil
}

// RemoveWriter drops writer id and invalidates the cached OffsetTable.
func (g *WriterGroup) RemoveWriter(id uint16) {
	delete(g.writers, id)
	for i, wid := range g.order {
		if wid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.table = nil
}

// SetGroupVersion updates the group's GroupVersion. If a buffer already
// exists it is patched in place through the OffsetTable, the same
// arena-rewrite path sequence numbers and timestamps use, instead of
// forcing a full rebuild the way AddWriter/RemoveWriter do; a fresh build
// picks up the new value regardless since build() always stamps the
// current GroupVersion into the header.
func (g *WriterGroup) SetGroupVersion(version uint32) {
	g.GroupVersion = version
	if g.table != nil {
		g.table.PatchGroupVersion(version)
	}
}

// build assembles a fresh keyframe NetworkMessage and OffsetTable, tracking
// every patchable position. The buffer starts small and
// retries once at the datagram-sized cap when the template doesn't fit.
func (g *WriterGroup) build(now ua.DateTime) error {
	var lastErr error
	for _, size := range []int{2048, 64 * 1024} {
		if lastErr = g.buildInto(make([]byte, size), now); lastErr == nil {
			return nil
		}
		if !uaerrors.Is(lastErr, uaerrors.BufferTooSmall) {
			return lastErr
		}
	}
	return lastErr
}

func (g *WriterGroup) buildInto(buf []byte, now ua.DateTime) error {
	e := binary.NewEncoder(buf)
	msg := NetworkMessage{
		Version:     1,
		PublisherID: g.PublisherID,
		WriterGroupID: g.ID,
		GroupVersion: g.GroupVersion,
		NetworkMessageNumber: 1,
	}
	for _, id := range g.order {
		msg.DataSetWriterIDs = append(msg.DataSetWriterIDs, id)
	}
	if err := msg.EncodeHeader(e); err != nil {
		return err
	}
	table := NewOffsetTable(nil)
	table.AddOffset(OffsetGroupVersion, e.Pos()-8, 0, 0)
	table.AddOffset(OffsetSequenceNumber, e.Pos()-2, 0, 0)

	for _, id := range g.order {
		w := g.writers[id]
		fields := g.source.Fields(id)
		dsm := DataSetMessage{
			DataSetWriterID: id,
			SequenceNumber:  w.nextSeqNum(),
			Timestamp:       now,
			FieldNames:      w.FieldNames,
			Fields:          fields,
			Type:            DataSetKeyFrame,
		}
		if err := g.encodeTrackedDataSetMessage(e, dsm, table); err != nil {
			return err
		}
		w.cyclesSinceKF = 0
	}

	table.Buffer = e.Bytes()
	g.table = table
	return nil
}

// encodeTrackedDataSetMessage mirrors EncodeDataSetMessage while recording
// every patchable position into table: the DataSetMessage sequence number,
// its timestamp, and each fixed-width scalar field value.
func (g *WriterGroup) encodeTrackedDataSetMessage(e *binary.Encoder, m DataSetMessage, table *OffsetTable) error {
	start := e.Pos()
	if err := e.Uint16(m.DataSetWriterID); err != nil {
		return err
	}
	if err := e.Uint16(m.SequenceNumber); err != nil {
		return err
	}
	table.AddOffset(OffsetDataSetSequenceNumber, start+2, 0, m.DataSetWriterID)
	table.AddOffset(OffsetPublishTime, e.Pos(), 0, m.DataSetWriterID)
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
		valuePos := e.Pos() + 2 // mask byte, then the variant's encoding byte
		if err := g.ctx.EncodeDataValue(e, f); err != nil {
			return err
		}
		if f.HasValue && f.Value.Kind == ua.StorageScalar && fixedWidthType(f.Value.Type) {
			table.AddFieldOffset(valuePos, f.Value.Type, m.DataSetWriterID, i)
		}
	}
	return nil
}

// Publish runs one WriterGroup publish cycle: build the
// template on first use or after a configuration change, otherwise patch
// sequence numbers and field values in place, then hand the buffer to the
// transport. now is stamped into PublishTime/DataSetMessage timestamps.
func (g *WriterGroup) Publish(now ua.DateTime) error {
	if len(g.writers) == 0 {
		return nil
	}
	needKeyFrame := g.table == nil
	for _, id := range g.order {
		if g.writers[id].dueForKeyFrame() {
			needKeyFrame = true
		}
	}
	if needKeyFrame {
		if err := g.build(now); err != nil {
			return err
		}
	} else {
		g.networkSeq++
		perWriter := make(map[uint16]uint16, len(g.order))
		for _, id := range g.order {
			w := g.writers[id]
			perWriter[id] = w.nextSeqNum()
			w.cyclesSinceKF++
		}
		g.table.PatchSequenceNumbers(g.networkSeq, perWriter)
		g.table.PatchPublishTime(now)
		for _, id := range g.order {
			g.table.PatchFieldValues(id, g.source.Fields(id))
		}
	}

	buf := g.table.Snapshot()
	if g.Security != nil {
		key, err := g.Security.CurrentKey()
		if err == nil && g.log != nil {
			g.log.Log(corelog.Debug, corelog.CategoryPubSub, "writer group %d signing with key %d", g.ID, key.KeyID)
		}
		// Signing/encrypting the assembled buffer with SecurityGroup's
		// current key is delegated to the same chunk-layer MAC/AEAD
		// primitives SecureChannel uses; omitted here since PubSub security
		// policies are out of this module's non-goals beyond key lifecycle.
	}
	if g.transport != nil {
		return g.transport.Publish(buf)
	}
	return nil
}

// WriterIDs returns the DataSetWriter ids currently in the group, in
// publish order.
func (g *WriterGroup) WriterIDs() []uint16 {
	out := make([]uint16, len(g.order))
	copy(out, g.order)
	return out
}
