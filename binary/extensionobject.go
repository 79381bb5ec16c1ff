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

// EncodeExtensionObject writes the NodeId of the type's binary encoding,
// an encoding byte (0 none, 1 bytestring, 2 xml), then the body. The decoded/encoded-bytestring distinction the value was
// decoded with is preserved: a value with Encoding == ExtensionBinary
// re-encodes from Body verbatim even if Decoded was also populated.
func (c *Context) EncodeExtensionObject(e *Encoder, eo ua.ExtensionObject) error {
	if err := EncodeNodeId(e, eo.TypeID); err != nil {
		return err
	}
	switch eo.Encoding {
	case ua.ExtensionNone:
		return e.Byte(0)
	case ua.ExtensionXML:
		if err := e.Byte(2); err != nil {
			return err
		}
		return e.ByteString(eo.Body)
	case ua.ExtensionBinary:
		if err := e.Byte(1); err != nil {
			return err
		}
		if eo.Body != nil {
			return e.ByteString(eo.Body)
		}
		if desc, ok := c.lookup(eo.TypeID); ok && eo.Decoded != nil {
			if decoded, ok := eo.Decoded.(Structure); ok {
				body, err := c.encodeStructureBody(desc, decoded.Fields)
				if err != nil {
					return err
				}
				return e.ByteString(body)
			}
		}
		return e.ByteString(nil)
	default:
		return uaerrors.Wrap(uaerrors.Overflow, "unknown extension object encoding %v", eo.Encoding)
	}
}

// DecodeExtensionObject reads an ExtensionObject. An unrecognized binary
// type id is not an error: the body is preserved as-is, and Decoded is left nil.
func (c *Context) DecodeExtensionObject(d *Decoder) (ua.ExtensionObject, error) {
	typeID, err := DecodeNodeId(d)
	if err != nil {
		return ua.ExtensionObject{}, err
	}
	encByte, err := d.Byte()
	if err != nil {
		return ua.ExtensionObject{}, err
	}
	switch encByte {
	case 0:
		return ua.ExtensionObject{TypeID: typeID, Encoding: ua.ExtensionNone}, nil
	case 1:
		body, err := d.ByteString()
		if err != nil {
			return ua.ExtensionObject{}, err
		}
		eo := ua.ExtensionObject{TypeID: typeID, Encoding: ua.ExtensionBinary, Body: body}
		if desc, ok := c.lookup(typeID); ok {
			decoded, err := c.decodeStructureBody(desc, body)
			if err == nil {
				eo.Decoded = decoded
			}
			// A structure that fails to decode against its own registered
			// description still round-trips via Body: not fatal here, per
			// the protocol's UnknownExtensionType recovery intent.
		}
		return eo, nil
	case 2:
		body, err := d.ByteString()
		if err != nil {
			return ua.ExtensionObject{}, err
		}
		return ua.ExtensionObject{TypeID: typeID, Encoding: ua.ExtensionXML, Body: body}, nil
	default:
		return ua.ExtensionObject{}, uaerrors.Wrap(uaerrors.Overflow, "unknown extension object encoding byte 0x%02x", encByte)
	}
}
