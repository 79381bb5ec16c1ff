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

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Guid is the OPC UA GUID carrier: Data1 (uint32), Data2 (uint16), Data3
// (uint16), Data4 (8 bytes), each field little-endian on the wire except
// Data4 which is transmitted byte-for-byte.
type Guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Bytes renders the GUID in its 16-byte wire layout.
func (g Guid) Bytes() [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint32(out[0:4], g.Data1)
	binary.LittleEndian.PutUint16(out[4:6], g.Data2)
	binary.LittleEndian.PutUint16(out[6:8], g.Data3)
	copy(out[8:16], g.Data4[:])
	return out
}

// GuidFromBytes reconstructs a Guid from its 16-byte wire layout.
func GuidFromBytes(b [16]byte) Guid {
	var g Guid
	g.Data1 = binary.LittleEndian.Uint32(b[0:4])
	g.Data2 = binary.LittleEndian.Uint16(b[4:6])
	g.Data3 = binary.LittleEndian.Uint16(b[6:8])
	copy(g.Data4[:], b[8:16])
	return g
}

// String renders the GUID in the canonical 8-4-4-4-12 hex form.
func (g Guid) String() string {
	return fmt.Sprintf("%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3], g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// ParseGuid parses the canonical 8-4-4-4-12 hex form produced by String.
// It reports false rather than an error since callers (pubsubjson's
// PublisherId reconstruction) treat a failed parse as "not a GUID" and fall
// through to another representation.
func ParseGuid(s string) (Guid, bool) {
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return Guid{}, false
	}
	hexPart := s[0:8] + s[9:13] + s[14:18] + s[19:23] + s[24:36]
	raw, err := hex.DecodeString(hexPart)
	if err != nil || len(raw) != 16 {
		return Guid{}, false
	}
	var g Guid
	g.Data1 = binary.BigEndian.Uint32(raw[0:4])
	g.Data2 = binary.BigEndian.Uint16(raw[4:6])
	g.Data3 = binary.BigEndian.Uint16(raw[6:8])
	copy(g.Data4[:], raw[8:16])
	return g, true
}

// Equal reports whether two Guids carry the same value.
func (g Guid) Equal(other Guid) bool {
	return g.Bytes() == other.Bytes()
}
