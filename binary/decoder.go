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
	"encoding/binary"
	"math"

	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// Decoder reads OPC UA Binary values from a bounded byte slice. It never
// reads past the slice it was given
// and reports TooShort rather than panicking on truncated input.
type Decoder struct {
	buf []byte
	pos int
	ctx *Context
}

// NewDecoder wraps b for decoding under ctx. ctx may be nil, in which case
// package defaults apply.
func NewDecoder(b []byte, ctx *Context) *Decoder {
	return &Decoder{buf: b, ctx: ctx}
}

// Pos returns the current read offset, useful for BufferTooSmall-style
// "how much did we consume" diagnostics and for chunk reassembly bookkeeping.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Read returns the next n bytes without copying and advances the cursor.
// It never returns a slice shorter than n; on shortage it returns TooShort.
func (d *Decoder) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, uaerrors.Wrap(uaerrors.Overflow, "negative read length %d", n)
	}
	if d.Remaining() < n {
		return nil, uaerrors.Wrap(uaerrors.TooShort, "need %d bytes, have %d", n, d.Remaining())
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// Byte reads one byte.
func (d *Decoder) Byte() (byte, error) {
	b, err := d.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool reads one byte, treating any non-zero as true per the protocol.
func (d *Decoder) Bool() (bool, error) {
	b, err := d.Byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// SByte reads a signed 8-bit int.
func (d *Decoder) SByte() (int8, error) {
	b, err := d.Byte()
	return int8(b), err
}

// Uint16 reads a little-endian uint16.
func (d *Decoder) Uint16() (uint16, error) {
	b, err := d.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Int16 reads a little-endian int16.
func (d *Decoder) Int16() (int16, error) {
	v, err := d.Uint16()
	return int16(v), err
}

// Uint32 reads a little-endian uint32.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a little-endian int32.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Uint64 reads a little-endian uint64.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Int64 reads a little-endian int64.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err
}

// Float32 reads an IEEE-754 little-endian 32-bit float.
func (d *Decoder) Float32() (float32, error) {
	v, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Float64 reads an IEEE-754 little-endian 64-bit float.
func (d *Decoder) Float64() (float64, error) {
	v, err := d.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// DateTime reads a DateTime (signed 64-bit 100ns tick count).
func (d *Decoder) DateTime() (ua.DateTime, error) {
	v, err := d.Int64()
	return ua.DateTime(v), err
}

// StatusCode reads a StatusCode (uint32).
func (d *Decoder) StatusCode() (ua.StatusCode, error) {
	v, err := d.Uint32()
	return ua.StatusCode(v), err
}

// ByteString reads a length-prefixed ByteString: signed 32-bit length, then
// that many bytes. Length -1 is null (returned as a nil ByteString),
// length 0 is empty (returned as a non-nil zero-length ByteString) - the
// two must round-trip to the wire form they were decoded from.
func (d *Decoder) ByteString() (ua.ByteString, error) {
	n, err := d.Int32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	if err := d.checkArrayBound(int(n)); err != nil {
		return nil, err
	}
	b, err := d.Read(int(n))
	if err != nil {
		return nil, err
	}
	out := make(ua.ByteString, len(b))
	copy(out, b)
	return out, nil
}

// String reads a length-prefixed UTF-8 string with the same null/empty
// wire rule as ByteString.
func (d *Decoder) String() (string, bool, error) {
	bs, err := d.ByteString()
	if err != nil {
		return "", false, err
	}
	if bs == nil {
		return "", true, nil
	}
	return string(bs), false, nil
}

// checkArrayBound enforces LengthExceedsContext: a declared length that
// would blow the array-length cap or that can't possibly fit in the
// remaining bytes is rejected before any allocation happens.
func (d *Decoder) checkArrayBound(n int) error {
	if n > d.ctx.maxArrayLength() {
		return uaerrors.Wrap(uaerrors.LengthExceedsContext, "array length %d exceeds max %d", n, d.ctx.maxArrayLength())
	}
	if n > d.Remaining() {
		return uaerrors.Wrap(uaerrors.TooShort, "declared length %d exceeds remaining %d bytes", n, d.Remaining())
	}
	return nil
}

// ArrayLength reads and validates a signed 32-bit array length header,
// returning ok=false for a null array (length -1).
func (d *Decoder) ArrayLength() (n int, ok bool, err error) {
	raw, err := d.Int32()
	if err != nil {
		return 0, false, err
	}
	if raw < 0 {
		return 0, false, nil
	}
	if err := d.checkArrayBound(int(raw)); err != nil {
		return 0, false, err
	}
	return int(raw), true, nil
}
