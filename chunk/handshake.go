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

package chunk

import (
	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/ua"
)

// Hello is the HEL handshake body: the client's proposed
// buffer/message/chunk limits and the endpoint URL it wants to connect to.
type Hello struct {
	Version           uint32
	ReceiveBufferSize uint32
	SendBufferSize    uint32
	MaxMessageSize    uint32
	MaxChunkCount     uint32
	EndpointURL       string
}

// Encode writes h's body (not the chunk header) to e.
func (h Hello) Encode(e *binary.Encoder) error {
	if err := e.Uint32(h.Version); err != nil {
		return err
	}
	if err := e.Uint32(h.ReceiveBufferSize); err != nil {
		return err
	}
	if err := e.Uint32(h.SendBufferSize); err != nil {
		return err
	}
	if err := e.Uint32(h.MaxMessageSize); err != nil {
		return err
	}
	if err := e.Uint32(h.MaxChunkCount); err != nil {
		return err
	}
	return e.String(h.EndpointURL, false)
}

// DecodeHello reads a Hello body from d.
func DecodeHello(d *binary.Decoder) (Hello, error) {
	var h Hello
	var err error
	if h.Version, err = d.Uint32(); err != nil {
		return Hello{}, err
	}
	if h.ReceiveBufferSize, err = d.Uint32(); err != nil {
		return Hello{}, err
	}
	if h.SendBufferSize, err = d.Uint32(); err != nil {
		return Hello{}, err
	}
	if h.MaxMessageSize, err = d.Uint32(); err != nil {
		return Hello{}, err
	}
	if h.MaxChunkCount, err = d.Uint32(); err != nil {
		return Hello{}, err
	}
	h.EndpointURL, _, err = d.String()
	return h, err
}

// Acknowledge is the ACK handshake body: the server's accepted limits,
// which become the negotiated limits for the rest of the channel's life
//.
type Acknowledge struct {
	Version           uint32
	ReceiveBufferSize uint32
	SendBufferSize    uint32
	MaxMessageSize    uint32
	MaxChunkCount     uint32
}

// Encode writes a's body to e.
func (a Acknowledge) Encode(e *binary.Encoder) error {
	if err := e.Uint32(a.Version); err != nil {
		return err
	}
	if err := e.Uint32(a.ReceiveBufferSize); err != nil {
		return err
	}
	if err := e.Uint32(a.SendBufferSize); err != nil {
		return err
	}
	if err := e.Uint32(a.MaxMessageSize); err != nil {
		return err
	}
	return e.Uint32(a.MaxChunkCount)
}

// DecodeAcknowledge reads an Acknowledge body from d.
func DecodeAcknowledge(d *binary.Decoder) (Acknowledge, error) {
	var a Acknowledge
	var err error
	if a.Version, err = d.Uint32(); err != nil {
		return Acknowledge{}, err
	}
	if a.ReceiveBufferSize, err = d.Uint32(); err != nil {
		return Acknowledge{}, err
	}
	if a.SendBufferSize, err = d.Uint32(); err != nil {
		return Acknowledge{}, err
	}
	if a.MaxMessageSize, err = d.Uint32(); err != nil {
		return Acknowledge{}, err
	}
	a.MaxChunkCount, err = d.Uint32()
	return a, err
}

// ErrorMessage is the ERR handshake/channel-abort body.
type ErrorMessage struct {
	Error  ua.StatusCode
	Reason string
}

// Encode writes m's body to e.
func (m ErrorMessage) Encode(e *binary.Encoder) error {
	if err := e.StatusCode(m.Error); err != nil {
		return err
	}
	return e.String(m.Reason, false)
}

// DecodeErrorMessage reads an ErrorMessage body from d.
func DecodeErrorMessage(d *binary.Decoder) (ErrorMessage, error) {
	var m ErrorMessage
	var err error
	if m.Error, err = d.StatusCode(); err != nil {
		return ErrorMessage{}, err
	}
	m.Reason, _, err = d.String()
	return m, err
}

// Limits is the negotiated set of caps an Assembler and outgoing Splitter
// enforce, set from the ACK handshake.
type Limits struct {
	MaxChunkSize   uint32
	MaxMessageSize uint32 // 0 means unbounded, subject to a safety cap
	MaxChunkCount  uint32
}

// EffectiveMaxMessageSize applies the safety cap the protocol requires
// even when MaxMessageSize was negotiated as 0.
func (l Limits) EffectiveMaxMessageSize() uint32 {
	if l.MaxMessageSize == 0 {
		return binary.DefaultMaxMessageSize
	}
	return l.MaxMessageSize
}
