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

// ExtensionEncoding discriminates how an ExtensionObject's body is carried
//.
type ExtensionEncoding uint8

// Encoding kinds, matching the ExtensionObject encoding byte.
const (
	ExtensionNone ExtensionEncoding = iota
	ExtensionBinary
	ExtensionXML
)

// Decodable is an interface for generated structure types that decode
// their own ExtensionObject body. The binary codec does not call it; it
// resolves ExtensionObject bodies through binary.TypeRegistry.
type Decodable interface {
	DecodeBody(d interface {
		Read(n int) ([]byte, error)
	}) error
}

// ExtensionObject is a typed opaque container: either a
// decoded value carrying its DataType NodeId, or an encoded-bytestring/XML
// form carrying the type's binary/XML encoding id and raw bytes. Decoding
// preserves whichever form was chosen on the wire; the
// UnknownExtensionType recovery path relies on this round-trip.
type ExtensionObject struct {
	TypeID   NodeId
	Encoding ExtensionEncoding

	// Decoded holds the structure value when Encoding == ExtensionNone is
	// not applicable; set when the codec recognized TypeID and decoded the
	// body into a concrete Go value.
	Decoded interface{}

	// Body holds the raw encoded bytes for ExtensionBinary/ExtensionXML,
	// or for ExtensionBinary bodies whose type was not recognized
	// (UnknownExtensionType, preserved verbatim per the protocol).
	Body []byte
}

// IsNull reports whether the ExtensionObject carries no value at all (a
// null TypeId and no body - the wire form with just the NodeId and encoding
// byte 0).
func (e ExtensionObject) IsNull() bool {
	return e.TypeID.IsNull() && e.Decoded == nil && e.Body == nil
}

// Copy returns a deep copy of e.
func (e ExtensionObject) Copy() ExtensionObject {
	out := e
	out.Body = append([]byte(nil), e.Body...)
	if cp, ok := e.Decoded.(interface{ Copy() interface{} }); ok {
		out.Decoded = cp.Copy()
	}
	return out
}
