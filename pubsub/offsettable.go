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
	"encoding/binary"
	"math"

	"github.com/open62541-go/opcua-core/ua"
)

// OffsetKind names what an OffsetTable entry patches in place between
// publish cycles.
type OffsetKind int

// Offset kinds.
const (
	OffsetPublishTime OffsetKind = iota
	OffsetSequenceNumber
	OffsetDataSetSequenceNumber
	OffsetFieldValue
	OffsetGroupVersion
)

// Offset is one patchable location in a WriterGroup's pre-built buffer.
type Offset struct {
	Kind           OffsetKind
	Position       int
	FieldType      ua.BuiltinType // meaningful for OffsetFieldValue
	DataSetWriterID uint16        // meaningful for OffsetDataSetSequenceNumber/OffsetFieldValue
	FieldIndex     int            // meaningful for OffsetFieldValue
}

// OffsetTable is the arena a WriterGroup builds once per configuration
// change (add/remove DataSetWriter, field set change) and then reuses every
// publishing cycle, patching only the positions that actually vary. Positions are byte offsets into Buffer.
type OffsetTable struct {
	Buffer  []byte
	Offsets []Offset
}

// NewOffsetTable allocates an empty table over buf (the fully-encoded
// "template" NetworkMessage for a keyframe cycle).
func NewOffsetTable(buf []byte) *OffsetTable {
	return &OffsetTable{Buffer: append([]byte(nil), buf...)}
}

// AddOffset registers a patchable location at pos, the byte offset in the
// encoder output where the value was written the first time.
func (t *OffsetTable) AddOffset(kind OffsetKind, pos int, fieldType ua.BuiltinType, writerID uint16) {
	t.Offsets = append(t.Offsets, Offset{Kind: kind, Position: pos, FieldType: fieldType, DataSetWriterID: writerID})
}

// PatchUint32 overwrites a 4-byte little-endian field at pos (used for
// GroupVersion and Int32/UInt32/Float/StatusCode scalar fields).
func (t *OffsetTable) PatchUint32(pos int, v uint32) {
	if pos < 0 || pos+4 > len(t.Buffer) {
		return
	}
	binary.LittleEndian.PutUint32(t.Buffer[pos:], v)
}

// PatchUint16 overwrites a 2-byte little-endian field at pos (UInt16
// sequence numbers).
func (t *OffsetTable) PatchUint16(pos int, v uint16) {
	if pos < 0 || pos+2 > len(t.Buffer) {
		return
	}
	binary.LittleEndian.PutUint16(t.Buffer[pos:], v)
}

// PatchUint64 overwrites an 8-byte little-endian field at pos (DateTime,
// Int64/UInt64/Float64 scalar fields).
func (t *OffsetTable) PatchUint64(pos int, v uint64) {
	if pos < 0 || pos+8 > len(t.Buffer) {
		return
	}
	binary.LittleEndian.PutUint64(t.Buffer[pos:], v)
}

// PatchSequenceNumbers updates every OffsetSequenceNumber /
// OffsetDataSetSequenceNumber entry in place for the next cycle's
// NetworkMessage/DataSetMessage sequence numbers.
func (t *OffsetTable) PatchSequenceNumbers(networkSeq uint16, perWriterSeq map[uint16]uint16) {
	for _, off := range t.Offsets {
		switch off.Kind {
		case OffsetSequenceNumber:
			t.PatchUint16(off.Position, networkSeq)
		case OffsetDataSetSequenceNumber:
			if seq, ok := perWriterSeq[off.DataSetWriterID]; ok {
				t.PatchUint16(off.Position, seq)
			}
		}
	}
}

// PatchGroupVersion updates every OffsetGroupVersion entry in place, so a
// WriterGroup reconfiguration can refresh GroupVersion
// through the same arena-rewrite path as sequence numbers and timestamps
// instead of only at initial buffer construction.
func (t *OffsetTable) PatchGroupVersion(version uint32) {
	for _, off := range t.Offsets {
		if off.Kind == OffsetGroupVersion {
			t.PatchUint32(off.Position, version)
		}
	}
}

// PatchPublishTime updates every OffsetPublishTime entry with now.
func (t *OffsetTable) PatchPublishTime(now ua.DateTime) {
	for _, off := range t.Offsets {
		if off.Kind == OffsetPublishTime {
			t.PatchUint64(off.Position, uint64(now))
		}
	}
}

// AddFieldOffset registers a fixed-width scalar field value's position so
// later cycles can patch it without re-encoding the DataSetMessage.
// Variable-width values (strings, arrays) never get an entry; they require
// a rebuild when they change, per the realtime-path restriction.
func (t *OffsetTable) AddFieldOffset(pos int, fieldType ua.BuiltinType, writerID uint16, fieldIndex int) {
	t.Offsets = append(t.Offsets, Offset{
		Kind:            OffsetFieldValue,
		Position:        pos,
		FieldType:       fieldType,
		DataSetWriterID: writerID,
		FieldIndex:      fieldIndex,
	})
}

// FieldOffsets returns the OffsetFieldValue entries belonging to writerID,
// in table order, for the caller to patch with fresh field values.
func (t *OffsetTable) FieldOffsets(writerID uint16) []Offset {
	var out []Offset
	for _, off := range t.Offsets {
		if off.Kind == OffsetFieldValue && off.DataSetWriterID == writerID {
			out = append(out, off)
		}
	}
	return out
}

// PatchFieldValues overwrites writerID's registered fixed-width field
// values in place with the current cycle's values.
func (t *OffsetTable) PatchFieldValues(writerID uint16, fields []ua.DataValue) {
	for _, off := range t.Offsets {
		if off.Kind != OffsetFieldValue || off.DataSetWriterID != writerID || off.FieldIndex >= len(fields) {
			continue
		}
		f := fields[off.FieldIndex]
		if !f.HasValue {
			continue
		}
		t.patchScalar(off, f.Value.Value)
	}
}

func (t *OffsetTable) patchScalar(off Offset, v interface{}) {
	switch off.FieldType {
	case ua.TypeBoolean:
		if b, ok := v.(bool); ok && off.Position < len(t.Buffer) {
			if b {
				t.Buffer[off.Position] = 1
			} else {
				t.Buffer[off.Position] = 0
			}
		}
	case ua.TypeSByte:
		if x, ok := v.(int8); ok && off.Position < len(t.Buffer) {
			t.Buffer[off.Position] = byte(x)
		}
	case ua.TypeByte:
		if x, ok := v.(byte); ok && off.Position < len(t.Buffer) {
			t.Buffer[off.Position] = x
		}
	case ua.TypeInt16:
		if x, ok := v.(int16); ok {
			t.PatchUint16(off.Position, uint16(x))
		}
	case ua.TypeUInt16:
		if x, ok := v.(uint16); ok {
			t.PatchUint16(off.Position, x)
		}
	case ua.TypeInt32:
		if x, ok := v.(int32); ok {
			t.PatchUint32(off.Position, uint32(x))
		}
	case ua.TypeUInt32:
		if x, ok := v.(uint32); ok {
			t.PatchUint32(off.Position, x)
		}
	case ua.TypeStatusCode:
		if x, ok := v.(ua.StatusCode); ok {
			t.PatchUint32(off.Position, uint32(x))
		}
	case ua.TypeFloat:
		if x, ok := v.(float32); ok {
			t.PatchUint32(off.Position, math.Float32bits(x))
		}
	case ua.TypeInt64:
		if x, ok := v.(int64); ok {
			t.PatchUint64(off.Position, uint64(x))
		}
	case ua.TypeUInt64:
		if x, ok := v.(uint64); ok {
			t.PatchUint64(off.Position, x)
		}
	case ua.TypeDouble:
		if x, ok := v.(float64); ok {
			t.PatchUint64(off.Position, math.Float64bits(x))
		}
	case ua.TypeDateTime:
		if x, ok := v.(ua.DateTime); ok {
			t.PatchUint64(off.Position, uint64(x))
		}
	}
}

// fixedWidthType reports whether t's wire form has a constant byte size, so
// its value can be patched in place between cycles.
func fixedWidthType(t ua.BuiltinType) bool {
	switch t {
	case ua.TypeBoolean, ua.TypeSByte, ua.TypeByte, ua.TypeInt16, ua.TypeUInt16,
		ua.TypeInt32, ua.TypeUInt32, ua.TypeInt64, ua.TypeUInt64,
		ua.TypeFloat, ua.TypeDouble, ua.TypeDateTime, ua.TypeStatusCode:
		return true
	default:
		return false
	}
}

// Snapshot returns a copy of the current buffer contents, safe for handing
// to a transport send call that may retain the slice past this cycle.
func (t *OffsetTable) Snapshot() []byte {
	out := make([]byte, len(t.Buffer))
	copy(out, t.Buffer)
	return out
}
