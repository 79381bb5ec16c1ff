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

// Encoder writes OPC UA Binary values to a caller-supplied buffer. It never
// grows the buffer itself - callers that can tolerate reallocation retry with a larger
// buffer after checking the error against uaerrors.BufferTooSmall.
type Encoder struct {
	buf []byte
	pos int
}

// NewEncoder wraps buf, writing starting at offset 0.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Bytes returns the written prefix of the buffer.
func (e *Encoder) Bytes() []byte { return e.buf[:e.pos] }

// Pos returns the number of bytes written so far.
func (e *Encoder) Pos() int { return e.pos }

func (e *Encoder) reserve(n int) ([]byte, error) {
	if e.pos+n > len(e.buf) {
		return nil, uaerrors.Wrap(uaerrors.BufferTooSmall, "need %d more bytes, have %d", n, len(e.buf)-e.pos)
	}
	b := e.buf[e.pos : e.pos+n]
	e.pos += n
	return b, nil
}

// Write appends raw bytes.
func (e *Encoder) Write(b []byte) error {
	dst, err := e.reserve(len(b))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// Byte writes one byte.
func (e *Encoder) Byte(v byte) error {
	dst, err := e.reserve(1)
	if err != nil {
		return err
	}
	dst[0] = v
	return nil
}

// Bool writes one byte, 0 or 1.
func (e *Encoder) Bool(v bool) error {
	if v {
		return e.Byte(1)
	}
	return e.Byte(0)
}

// SByte writes a signed 8-bit int.
func (e *Encoder) SByte(v int8) error { return e.Byte(byte(v)) }

// Uint16 writes a little-endian uint16.
func (e *Encoder) Uint16(v uint16) error {
	dst, err := e.reserve(2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(dst, v)
	return nil
}

// Int16 writes a little-endian int16.
func (e *Encoder) Int16(v int16) error { return e.Uint16(uint16(v)) }

// Uint32 writes a little-endian uint32.
func (e *Encoder) Uint32(v uint32) error {
	dst, err := e.reserve(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(dst, v)
	return nil
}

// Int32 writes a little-endian int32.
func (e *Encoder) Int32(v int32) error { return e.Uint32(uint32(v)) }

// Uint64 writes a little-endian uint64.
func (e *Encoder) Uint64(v uint64) error {
	dst, err := e.reserve(8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(dst, v)
	return nil
}

// Int64 writes a little-endian int64.
func (e *Encoder) Int64(v int64) error { return e.Uint64(uint64(v)) }

// Float32 writes an IEEE-754 little-endian 32-bit float.
func (e *Encoder) Float32(v float32) error { return e.Uint32(math.Float32bits(v)) }

// Float64 writes an IEEE-754 little-endian 64-bit float.
func (e *Encoder) Float64(v float64) error { return e.Uint64(math.Float64bits(v)) }

// DateTime writes a DateTime.
func (e *Encoder) DateTime(v ua.DateTime) error { return e.Int64(int64(v)) }

// StatusCode writes a StatusCode.
func (e *Encoder) StatusCode(v ua.StatusCode) error { return e.Uint32(uint32(v)) }

// ByteString writes a length-prefixed ByteString. A nil ByteString encodes
// as length -1 (null); a non-nil, zero-length one encodes as length 0
// (empty) - preserving the null/empty distinction symmetrically with
// Decoder.ByteString.
func (e *Encoder) ByteString(v ua.ByteString) error {
	if v == nil {
		return e.Int32(-1)
	}
	if err := e.Int32(int32(len(v))); err != nil {
		return err
	}
	return e.Write(v)
}

// String writes a length-prefixed UTF-8 string. null selects the -1-length
// wire form regardless of s's content.
func (e *Encoder) String(s string, null bool) error {
	if null {
		return e.Int32(-1)
	}
	return e.ByteString(ua.ByteString(s))
}

// ArrayLength writes a signed 32-bit array length header; ok=false writes
// the null-array form (-1).
func (e *Encoder) ArrayLength(n int, ok bool) error {
	if !ok {
		return e.Int32(-1)
	}
	return e.Int32(int32(n))
}

// RequiredSize reports how many more bytes would be needed to write n more
// bytes without error, or 0 if the buffer already has room. It lets a
// caller that got BufferTooSmall retry with a bigger buffer without
// guessing, matching the protocol's "returns BufferTooSmall with the
// required size" contract when paired with the returned error's context.
func (e *Encoder) RequiredSize(n int) int {
	need := e.pos + n - len(e.buf)
	if need < 0 {
		return 0
	}
	return need
}
