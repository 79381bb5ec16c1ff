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

const (
	variantTypeMask   byte = 0x3f
	variantDimsFlag   byte = 1 << 6
	variantArrayFlag  byte = 1 << 7
)

// EncodeVariant writes v's encoding byte (bits 0-5 datatype, bit 6 has
// dimensions, bit 7 is array) followed by its payload.
func (c *Context) EncodeVariant(e *Encoder, v ua.Variant) error {
	if v.IsEmpty() {
		return e.Byte(0)
	}
	encByte := byte(v.Type) & variantTypeMask
	if v.Kind == ua.StorageArray {
		encByte |= variantArrayFlag
		if v.HasDimensions() {
			encByte |= variantDimsFlag
		}
	}
	if err := e.Byte(encByte); err != nil {
		return err
	}

	if v.Kind == ua.StorageScalar {
		return c.encodeScalar(e, v.Type, v.Value)
	}

	elems, n, err := flattenArray(v.Type, v.Value)
	if err != nil {
		return err
	}
	if err := e.ArrayLength(n, true); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := c.encodeScalar(e, v.Type, elems(i)); err != nil {
			return err
		}
	}
	if v.HasDimensions() {
		if err := e.ArrayLength(len(v.Dimensions), true); err != nil {
			return err
		}
		for _, d := range v.Dimensions {
			if err := e.Int32(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeVariant reads a Variant.
func (c *Context) DecodeVariant(d *Decoder) (ua.Variant, error) {
	encByte, err := d.Byte()
	if err != nil {
		return ua.Variant{}, err
	}
	if encByte == 0 {
		return ua.Variant{}, nil
	}
	t := ua.BuiltinType(encByte & variantTypeMask)
	isArray := encByte&variantArrayFlag != 0
	hasDims := encByte&variantDimsFlag != 0

	if !isArray {
		val, err := c.decodeScalar(d, t)
		if err != nil {
			return ua.Variant{}, err
		}
		return ua.NewScalarVariant(t, val), nil
	}

	n, ok, err := d.ArrayLength()
	if err != nil {
		return ua.Variant{}, err
	}
	if !ok {
		return ua.Variant{Type: t, Kind: ua.StorageArray, Ownership: ua.Owned}, nil
	}
	arr, err := c.decodeArray(d, t, n)
	if err != nil {
		return ua.Variant{}, err
	}
	out := ua.Variant{Type: t, Kind: ua.StorageArray, Value: arr, Ownership: ua.Owned}
	if hasDims {
		dimN, ok, err := d.ArrayLength()
		if err != nil {
			return ua.Variant{}, err
		}
		if ok {
			dims := make([]int32, dimN)
			product := 1
			for i := range dims {
				dims[i], err = d.Int32()
				if err != nil {
					return ua.Variant{}, err
				}
				if dims[i] < 0 {
					return ua.Variant{}, uaerrors.Wrap(uaerrors.Overflow, "negative array dimension %d", dims[i])
				}
				product *= int(dims[i])
			}
			// The product of the shape must equal the flat length.
			if product != n {
				return ua.Variant{}, uaerrors.Wrap(uaerrors.Overflow, "dimension product %d does not match array length %d", product, n)
			}
			out.Dimensions = dims
		}
	}
	return out, nil
}

func (c *Context) encodeScalar(e *Encoder, t ua.BuiltinType, v interface{}) error {
	switch t {
	case ua.TypeBoolean:
		return e.Bool(v.(bool))
	case ua.TypeSByte:
		return e.SByte(v.(int8))
	case ua.TypeByte:
		return e.Byte(v.(byte))
	case ua.TypeInt16:
		return e.Int16(v.(int16))
	case ua.TypeUInt16:
		return e.Uint16(v.(uint16))
	case ua.TypeInt32:
		return e.Int32(v.(int32))
	case ua.TypeUInt32:
		return e.Uint32(v.(uint32))
	case ua.TypeInt64:
		return e.Int64(v.(int64))
	case ua.TypeUInt64:
		return e.Uint64(v.(uint64))
	case ua.TypeFloat:
		return e.Float32(v.(float32))
	case ua.TypeDouble:
		return e.Float64(v.(float64))
	case ua.TypeString:
		return e.String(v.(string), false)
	case ua.TypeDateTime:
		return e.DateTime(v.(ua.DateTime))
	case ua.TypeGuid:
		g := v.(ua.Guid).Bytes()
		return e.Write(g[:])
	case ua.TypeByteString, ua.TypeXMLElement:
		return e.ByteString(v.(ua.ByteString))
	case ua.TypeNodeID:
		return EncodeNodeId(e, v.(ua.NodeId))
	case ua.TypeExpandedNodeID:
		return EncodeExpandedNodeId(e, v.(ua.ExpandedNodeId))
	case ua.TypeStatusCode:
		return e.StatusCode(v.(ua.StatusCode))
	case ua.TypeQualifiedName:
		qn := v.(ua.QualifiedName)
		if err := e.Uint16(qn.NamespaceIndex); err != nil {
			return err
		}
		return e.String(qn.Name, false)
	case ua.TypeLocalizedText:
		return c.encodeLocalizedText(e, v.(ua.LocalizedText))
	case ua.TypeExtensionObject:
		return c.EncodeExtensionObject(e, v.(ua.ExtensionObject))
	case ua.TypeDataValue:
		return c.EncodeDataValue(e, v.(ua.DataValue))
	case ua.TypeDiagnosticInfo:
		return c.EncodeDiagnosticInfo(e, v.(ua.DiagnosticInfo), 0)
	default:
		return uaerrors.Wrap(uaerrors.Overflow, "unsupported variant scalar type %v", t)
	}
}

func (c *Context) decodeScalar(d *Decoder, t ua.BuiltinType) (interface{}, error) {
	switch t {
	case ua.TypeBoolean:
		return d.Bool()
	case ua.TypeSByte:
		return d.SByte()
	case ua.TypeByte:
		return d.Byte()
	case ua.TypeInt16:
		return d.Int16()
	case ua.TypeUInt16:
		return d.Uint16()
	case ua.TypeInt32:
		return d.Int32()
	case ua.TypeUInt32:
		return d.Uint32()
	case ua.TypeInt64:
		return d.Int64()
	case ua.TypeUInt64:
		return d.Uint64()
	case ua.TypeFloat:
		return d.Float32()
	case ua.TypeDouble:
		return d.Float64()
	case ua.TypeString:
		s, _, err := d.String()
		return s, err
	case ua.TypeDateTime:
		return d.DateTime()
	case ua.TypeGuid:
		raw, err := d.Read(16)
		if err != nil {
			return nil, err
		}
		var arr [16]byte
		copy(arr[:], raw)
		return ua.GuidFromBytes(arr), nil
	case ua.TypeByteString, ua.TypeXMLElement:
		return d.ByteString()
	case ua.TypeNodeID:
		return DecodeNodeId(d)
	case ua.TypeExpandedNodeID:
		return DecodeExpandedNodeId(d)
	case ua.TypeStatusCode:
		return d.StatusCode()
	case ua.TypeQualifiedName:
		ns, err := d.Uint16()
		if err != nil {
			return nil, err
		}
		name, _, err := d.String()
		if err != nil {
			return nil, err
		}
		return ua.QualifiedName{NamespaceIndex: ns, Name: name}, nil
	case ua.TypeLocalizedText:
		return c.decodeLocalizedText(d)
	case ua.TypeExtensionObject:
		return c.DecodeExtensionObject(d)
	case ua.TypeDataValue:
		return c.DecodeDataValue(d)
	case ua.TypeDiagnosticInfo:
		return c.DecodeDiagnosticInfo(d, 0)
	default:
		return nil, uaerrors.Wrap(uaerrors.Overflow, "unsupported variant scalar type %v", t)
	}
}

func (c *Context) encodeLocalizedText(e *Encoder, lt ua.LocalizedText) error {
	mask := byte(0)
	if lt.HasLocale {
		mask |= 1
	}
	if lt.HasText {
		mask |= 2
	}
	if err := e.Byte(mask); err != nil {
		return err
	}
	if lt.HasLocale {
		if err := e.String(lt.Locale, false); err != nil {
			return err
		}
	}
	if lt.HasText {
		if err := e.String(lt.Text, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) decodeLocalizedText(d *Decoder) (ua.LocalizedText, error) {
	mask, err := d.Byte()
	if err != nil {
		return ua.LocalizedText{}, err
	}
	var lt ua.LocalizedText
	if mask&1 != 0 {
		lt.HasLocale = true
		lt.Locale, _, err = d.String()
		if err != nil {
			return ua.LocalizedText{}, err
		}
	}
	if mask&2 != 0 {
		lt.HasText = true
		lt.Text, _, err = d.String()
		if err != nil {
			return ua.LocalizedText{}, err
		}
	}
	return lt, nil
}
