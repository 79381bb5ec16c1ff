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

// DataValueMask bits select which optional fields of a DataValue are
// present on the wire.
type DataValueMask uint8

// Mask bits, in the order the wire mask byte lists them.
const (
	MaskValue DataValueMask = 1 << iota
	MaskStatus
	MaskSourceTimestamp
	MaskServerTimestamp
	MaskSourcePicoseconds
	MaskServerPicoseconds
)

// DataValue is a Variant plus optional timestamps/status/picoseconds, each
// with an independent presence bit.
type DataValue struct {
	Value Variant

	HasValue  bool
	HasStatus bool
	Status    StatusCode

	HasSourceTimestamp bool
	SourceTimestamp    DateTime
	HasServerTimestamp bool
	ServerTimestamp    DateTime

	HasSourcePicoseconds bool
	SourcePicoseconds    uint16
	HasServerPicoseconds bool
	ServerPicoseconds    uint16
}

// Mask computes the wire presence mask for v.
func (v DataValue) Mask() DataValueMask {
	var m DataValueMask
	if v.HasValue {
		m |= MaskValue
	}
	if v.HasStatus {
		m |= MaskStatus
	}
	if v.HasSourceTimestamp {
		m |= MaskSourceTimestamp
	}
	if v.HasServerTimestamp {
		m |= MaskServerTimestamp
	}
	if v.HasSourcePicoseconds {
		m |= MaskSourcePicoseconds
	}
	if v.HasServerPicoseconds {
		m |= MaskServerPicoseconds
	}
	return m
}

// NewDataValue builds a DataValue carrying only a value, the common case
// for a MonitoredItem sample.
func NewDataValue(v Variant) DataValue {
	return DataValue{Value: v, HasValue: true}
}

// Copy returns a deep copy of v.
func (v DataValue) Copy() DataValue {
	out := v
	out.Value = v.Value.Copy()
	return out
}
