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

package binary

import (
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// nodeIDForm is the 6-bit form selector occupying bits 0-5 of a NodeId's
// encoding byte.
type nodeIDForm byte

const (
	formTwoByte    nodeIDForm = 0x00 // namespace 0 implied, identifier is a single byte
	formNumeric    nodeIDForm = 0x01 // namespace UInt16, identifier UInt32 (canonical full numeric form)
	formFourByte   nodeIDForm = 0x02 // namespace Byte, identifier UInt16 (compact alternate; decodable, not produced canonically)
	formString     nodeIDForm = 0x03
	formGUID       nodeIDForm = 0x04
	formByteString nodeIDForm = 0x05

	flagHasNamespaceURI byte = 1 << 6
	flagHasServerIndex  byte = 1 << 7
	formMask            byte = 0x3f
)

// EncodeNodeId writes n's canonical compact form. The canonical form is:
// TwoByte when namespace is 0 and the identifier fits a byte, otherwise the
// full Numeric form for numeric identifiers, otherwise String/Guid/ByteString
// as dictated by the identifier's type. FourByte is never produced by this
// encoder (see DecodeNodeId) - only TwoByte and Numeric compete for small
// numeric ids, and this package always prefers TwoByte when it applies and
// Numeric otherwise.
func EncodeNodeId(e *Encoder, n ua.NodeId) error {
	return encodeNodeIdWithFlags(e, n, 0)
}

// encodeNodeIdWithFlags writes n's form byte OR'd with extraFlags (the
// ExpandedNodeId presence bits), then the form's body. Splitting the flag
// byte out lets EncodeExpandedNodeId avoid a scratch buffer.
func encodeNodeIdWithFlags(e *Encoder, n ua.NodeId, extraFlags byte) error {
	switch n.Type {
	case ua.IdentifierNumeric:
		if n.Namespace == 0 && n.Numeric <= 0xFF {
			if err := e.Byte(byte(formTwoByte) | extraFlags); err != nil {
				return err
			}
			return e.Byte(byte(n.Numeric))
		}
		if err := e.Byte(byte(formNumeric) | extraFlags); err != nil {
			return err
		}
		if err := e.Uint16(n.Namespace); err != nil {
			return err
		}
		return e.Uint32(n.Numeric)
	case ua.IdentifierString:
		if err := e.Byte(byte(formString) | extraFlags); err != nil {
			return err
		}
		if err := e.Uint16(n.Namespace); err != nil {
			return err
		}
		return e.String(n.String, false)
	case ua.IdentifierGUID:
		if err := e.Byte(byte(formGUID) | extraFlags); err != nil {
			return err
		}
		if err := e.Uint16(n.Namespace); err != nil {
			return err
		}
		gb := n.Guid.Bytes()
		return e.Write(gb[:])
	case ua.IdentifierOpaque:
		if err := e.Byte(byte(formByteString) | extraFlags); err != nil {
			return err
		}
		if err := e.Uint16(n.Namespace); err != nil {
			return err
		}
		return e.ByteString(ua.ByteString(n.Opaque))
	default:
		return uaerrors.Wrap(uaerrors.Overflow, "unknown NodeId identifier type %v", n.Type)
	}
}

// DecodeNodeId reads a NodeId in any of the six compact forms.
func DecodeNodeId(d *Decoder) (ua.NodeId, error) {
	b, err := d.Byte()
	if err != nil {
		return ua.NodeId{}, err
	}
	switch nodeIDForm(b & formMask) {
	case formTwoByte:
		id, err := d.Byte()
		if err != nil {
			return ua.NodeId{}, err
		}
		return ua.NewNumericNodeId(0, uint32(id)), nil
	case formFourByte:
		ns, err := d.Byte()
		if err != nil {
			return ua.NodeId{}, err
		}
		id, err := d.Uint16()
		if err != nil {
			return ua.NodeId{}, err
		}
		return ua.NewNumericNodeId(uint16(ns), uint32(id)), nil
	case formNumeric:
		ns, err := d.Uint16()
		if err != nil {
			return ua.NodeId{}, err
		}
		id, err := d.Uint32()
		if err != nil {
			return ua.NodeId{}, err
		}
		return ua.NewNumericNodeId(ns, id), nil
	case formString:
		ns, err := d.Uint16()
		if err != nil {
			return ua.NodeId{}, err
		}
		s, _, err := d.String()
		if err != nil {
			return ua.NodeId{}, err
		}
		return ua.NewStringNodeId(ns, s), nil
	case formGUID:
		ns, err := d.Uint16()
		if err != nil {
			return ua.NodeId{}, err
		}
		raw, err := d.Read(16)
		if err != nil {
			return ua.NodeId{}, err
		}
		var arr [16]byte
		copy(arr[:], raw)
		return ua.NewGuidNodeId(ns, ua.GuidFromBytes(arr)), nil
	case formByteString:
		ns, err := d.Uint16()
		if err != nil {
			return ua.NodeId{}, err
		}
		bs, err := d.ByteString()
		if err != nil {
			return ua.NodeId{}, err
		}
		return ua.NewOpaqueNodeId(ns, bs), nil
	default:
		return ua.NodeId{}, uaerrors.Wrap(uaerrors.Overflow, "unrecognized NodeId encoding form 0x%02x", b&formMask)
	}
}

// EncodeExpandedNodeId writes an ExpandedNodeId: the embedded NodeId's form
// byte with bit 6/7 set when NamespaceURI/ServerIndex are present, the
// NodeId body, then the optional URI and server index.
func EncodeExpandedNodeId(e *Encoder, n ua.ExpandedNodeId) error {
	hasURI := n.NamespaceURI != ""
	hasIdx := n.ServerIndex != 0

	flags := byte(0)
	if hasURI {
		flags |= flagHasNamespaceURI
	}
	if hasIdx {
		flags |= flagHasServerIndex
	}
	if err := encodeNodeIdWithFlags(e, n.NodeId, flags); err != nil {
		return err
	}
	if hasURI {
		if err := e.String(n.NamespaceURI, false); err != nil {
			return err
		}
	}
	if hasIdx {
		if err := e.Uint32(n.ServerIndex); err != nil {
			return err
		}
	}
	return nil
}

// DecodeExpandedNodeId reads an ExpandedNodeId.
func DecodeExpandedNodeId(d *Decoder) (ua.ExpandedNodeId, error) {
	if d.Remaining() == 0 {
		return ua.ExpandedNodeId{}, uaerrors.Wrap(uaerrors.TooShort, "expanded node id: no bytes")
	}
	flagByte := d.buf[d.pos]
	hasURI := flagByte&flagHasNamespaceURI != 0
	hasIdx := flagByte&flagHasServerIndex != 0

	nodeID, err := DecodeNodeId(d)
	if err != nil {
		return ua.ExpandedNodeId{}, err
	}
	out := ua.ExpandedNodeId{NodeId: nodeID}
	if hasURI {
		uri, _, err := d.String()
		if err != nil {
			return ua.ExpandedNodeId{}, err
		}
		out.NamespaceURI = uri
	}
	if hasIdx {
		idx, err := d.Uint32()
		if err != nil {
			return ua.ExpandedNodeId{}, err
		}
		out.ServerIndex = idx
	}
	return out, nil
}
