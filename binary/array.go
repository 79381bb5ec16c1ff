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

// flattenArray returns an indexer over v's elements (v must be the Go slice
// type matching t) and the element count, so the Variant array encoder can
// stay generic over element type.
func flattenArray(t ua.BuiltinType, v interface{}) (func(i int) interface{}, int, error) {
	switch t {
	case ua.TypeBoolean:
		s := v.([]bool)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeSByte:
		s := v.([]int8)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeByte:
		s := v.([]byte)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeInt16:
		s := v.([]int16)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeUInt16:
		s := v.([]uint16)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeInt32:
		s := v.([]int32)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeUInt32:
		s := v.([]uint32)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeInt64:
		s := v.([]int64)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeUInt64:
		s := v.([]uint64)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeFloat:
		s := v.([]float32)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeDouble:
		s := v.([]float64)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeString:
		s := v.([]string)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeDateTime:
		s := v.([]ua.DateTime)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeGuid:
		s := v.([]ua.Guid)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeByteString, ua.TypeXMLElement:
		s := v.([]ua.ByteString)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeNodeID:
		s := v.([]ua.NodeId)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeExpandedNodeID:
		s := v.([]ua.ExpandedNodeId)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeStatusCode:
		s := v.([]ua.StatusCode)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeQualifiedName:
		s := v.([]ua.QualifiedName)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeLocalizedText:
		s := v.([]ua.LocalizedText)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeExtensionObject:
		s := v.([]ua.ExtensionObject)
		return func(i int) interface{} { return s[i] }, len(s), nil
	case ua.TypeDataValue:
		s := v.([]ua.DataValue)
		return func(i int) interface{} { return s[i] }, len(s), nil
	default:
		return nil, 0, uaerrors.Wrap(uaerrors.Overflow, "unsupported array element type %v", t)
	}
}

func (c *Context) decodeArray(d *Decoder, t ua.BuiltinType, n int) (interface{}, error) {
	switch t {
	case ua.TypeBoolean:
		return decodeArrayOf(c, d, t, n, func(v interface{}) bool { return v.(bool) })
	case ua.TypeSByte:
		return decodeArrayOf(c, d, t, n, func(v interface{}) int8 { return v.(int8) })
	case ua.TypeByte:
		return decodeArrayOf(c, d, t, n, func(v interface{}) byte { return v.(byte) })
	case ua.TypeInt16:
		return decodeArrayOf(c, d, t, n, func(v interface{}) int16 { return v.(int16) })
	case ua.TypeUInt16:
		return decodeArrayOf(c, d, t, n, func(v interface{}) uint16 { return v.(uint16) })
	case ua.TypeInt32:
		return decodeArrayOf(c, d, t, n, func(v interface{}) int32 { return v.(int32) })
	case ua.TypeUInt32:
		return decodeArrayOf(c, d, t, n, func(v interface{}) uint32 { return v.(uint32) })
	case ua.TypeInt64:
		return decodeArrayOf(c, d, t, n, func(v interface{}) int64 { return v.(int64) })
	case ua.TypeUInt64:
		return decodeArrayOf(c, d, t, n, func(v interface{}) uint64 { return v.(uint64) })
	case ua.TypeFloat:
		return decodeArrayOf(c, d, t, n, func(v interface{}) float32 { return v.(float32) })
	case ua.TypeDouble:
		return decodeArrayOf(c, d, t, n, func(v interface{}) float64 { return v.(float64) })
	case ua.TypeString:
		return decodeArrayOf(c, d, t, n, func(v interface{}) string { return v.(string) })
	case ua.TypeDateTime:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.DateTime { return v.(ua.DateTime) })
	case ua.TypeGuid:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.Guid { return v.(ua.Guid) })
	case ua.TypeByteString, ua.TypeXMLElement:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.ByteString { return v.(ua.ByteString) })
	case ua.TypeNodeID:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.NodeId { return v.(ua.NodeId) })
	case ua.TypeExpandedNodeID:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.ExpandedNodeId { return v.(ua.ExpandedNodeId) })
	case ua.TypeStatusCode:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.StatusCode { return v.(ua.StatusCode) })
	case ua.TypeQualifiedName:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.QualifiedName { return v.(ua.QualifiedName) })
	case ua.TypeLocalizedText:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.LocalizedText { return v.(ua.LocalizedText) })
	case ua.TypeExtensionObject:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.ExtensionObject { return v.(ua.ExtensionObject) })
	case ua.TypeDataValue:
		return decodeArrayOf(c, d, t, n, func(v interface{}) ua.DataValue { return v.(ua.DataValue) })
	default:
		return nil, uaerrors.Wrap(uaerrors.Overflow, "unsupported array element type %v", t)
	}
}

func decodeArrayOf[T any](c *Context, d *Decoder, t ua.BuiltinType, n int, cast func(interface{}) T) ([]T, error) {
	out := make([]T, n)
	for i := 0; i < n; i++ {
		v, err := c.decodeScalar(d, t)
		if err != nil {
			return nil, err
		}
		out[i] = cast(v)
	}
	return out, nil
}
