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
	"github.com/open62541-go/opcua-core/ua"
)

// EncodeDataValue writes v's mask byte followed by whichever fields the
// mask marks present, in the fixed field order the protocol defines:
// Value, Status, SourceTimestamp, ServerTimestamp, SourcePicoseconds,
// ServerPicoseconds.
func (c *Context) EncodeDataValue(e *Encoder, v ua.DataValue) error {
	mask := v.Mask()
	if err := e.Byte(byte(mask)); err != nil {
		return err
	}
	if v.HasValue {
		if err := c.EncodeVariant(e, v.Value); err != nil {
			return err
		}
	}
	if v.HasStatus {
		if err := e.StatusCode(v.Status); err != nil {
			return err
		}
	}
	if v.HasSourceTimestamp {
		if err := e.DateTime(v.SourceTimestamp); err != nil {
			return err
		}
	}
	if v.HasServerTimestamp {
		if err := e.DateTime(v.ServerTimestamp); err != nil {
			return err
		}
	}
	if v.HasSourcePicoseconds {
		if err := e.Uint16(v.SourcePicoseconds); err != nil {
			return err
		}
	}
	if v.HasServerPicoseconds {
		if err := e.Uint16(v.ServerPicoseconds); err != nil {
			return err
		}
	}
	return nil
}

// DecodeDataValue reads a DataValue.
func (c *Context) DecodeDataValue(d *Decoder) (ua.DataValue, error) {
	maskByte, err := d.Byte()
	if err != nil {
		return ua.DataValue{}, err
	}
	mask := ua.DataValueMask(maskByte)
	var v ua.DataValue

	if mask&ua.MaskValue != 0 {
		v.HasValue = true
		v.Value, err = c.DecodeVariant(d)
		if err != nil {
			return ua.DataValue{}, err
		}
	}
	if mask&ua.MaskStatus != 0 {
		v.HasStatus = true
		v.Status, err = d.StatusCode()
		if err != nil {
			return ua.DataValue{}, err
		}
	}
	if mask&ua.MaskSourceTimestamp != 0 {
		v.HasSourceTimestamp = true
		v.SourceTimestamp, err = d.DateTime()
		if err != nil {
			return ua.DataValue{}, err
		}
	}
	if mask&ua.MaskServerTimestamp != 0 {
		v.HasServerTimestamp = true
		v.ServerTimestamp, err = d.DateTime()
		if err != nil {
			return ua.DataValue{}, err
		}
	}
	if mask&ua.MaskSourcePicoseconds != 0 {
		v.HasSourcePicoseconds = true
		v.SourcePicoseconds, err = d.Uint16()
		if err != nil {
			return ua.DataValue{}, err
		}
	}
	if mask&ua.MaskServerPicoseconds != 0 {
		v.HasServerPicoseconds = true
		v.ServerPicoseconds, err = d.Uint16()
		if err != nil {
			return ua.DataValue{}, err
		}
	}
	return v, nil
}
