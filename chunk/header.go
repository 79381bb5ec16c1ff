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

// Package chunk implements OPC UA Secure Conversation chunk framing: the 12-byte chunk header, the HEL/ACK/ERR handshake, and
// reassembly of a multi-chunk message into the bytes a higher layer
// (securechannel) decrypts and decodes. The header itself is never secured;
// everything past it is opaque to this package except for the security
// header fields needed to route a chunk.
package chunk

import (
	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
)

// MessageType is the 3-byte ASCII message type prefix of a chunk header.
type MessageType string

// Message types named by the protocol.
const (
	MessageHello        MessageType = "HEL"
	MessageAcknowledge  MessageType = "ACK"
	MessageError        MessageType = "ERR"
	MessageOpenChannel  MessageType = "OPN"
	MessageCloseChannel MessageType = "CLO"
	MessageConversation MessageType = "MSG"
)

func (t MessageType) valid() bool {
	switch t {
	case MessageHello, MessageAcknowledge, MessageError, MessageOpenChannel, MessageCloseChannel, MessageConversation:
		return true
	default:
		return false
	}
}

// ChunkType is the 1-byte chunk type.
type ChunkType byte

// Chunk types named by the protocol.
const (
	ChunkFinal        ChunkType = 'F'
	ChunkContinuation ChunkType = 'C'
	ChunkAbort        ChunkType = 'A'
)

func (t ChunkType) valid() bool {
	switch t {
	case ChunkFinal, ChunkContinuation, ChunkAbort:
		return true
	default:
		return false
	}
}

// HeaderSize is the fixed size of a chunk header in bytes.
const HeaderSize = 12

// Header is the common 12-byte chunk header shared by every message type.
type Header struct {
	MessageType MessageType
	ChunkType   ChunkType
	MessageSize uint32 // total size of this chunk, header included
	ChannelID   uint32
}

// Encode writes h to e.
func (h Header) Encode(e *binary.Encoder) error {
	if err := e.Write([]byte(h.MessageType)); err != nil {
		return err
	}
	if err := e.Byte(byte(h.ChunkType)); err != nil {
		return err
	}
	if err := e.Uint32(h.MessageSize); err != nil {
		return err
	}
	return e.Uint32(h.ChannelID)
}

// DecodeHeader reads a Header from d, rejecting unrecognized message or
// chunk type bytes rather than passing them on.
func DecodeHeader(d *binary.Decoder) (Header, error) {
	raw, err := d.Read(3)
	if err != nil {
		return Header{}, err
	}
	mt := MessageType(raw)
	if !mt.valid() {
		return Header{}, uaerrors.Wrap(uaerrors.TCPMessageTypeInvalid, "unrecognized message type %q", raw)
	}
	ctByte, err := d.Byte()
	if err != nil {
		return Header{}, err
	}
	ct := ChunkType(ctByte)
	if !ct.valid() {
		return Header{}, uaerrors.Wrap(uaerrors.MalformedChunk, "unrecognized chunk type %q", ctByte)
	}
	size, err := d.Uint32()
	if err != nil {
		return Header{}, err
	}
	channelID, err := d.Uint32()
	if err != nil {
		return Header{}, err
	}
	return Header{MessageType: mt, ChunkType: ct, MessageSize: size, ChannelID: channelID}, nil
}
