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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/binary"
)

func TestHeader_RoundTrip(t *testing.T) {
	h := Header{MessageType: MessageConversation, ChunkType: ChunkFinal, MessageSize: 42, ChannelID: 7}
	buf := make([]byte, HeaderSize)
	e := binary.NewEncoder(buf)
	require.NoError(t, h.Encode(e))
	assert.Equal(t, HeaderSize, e.Pos())

	d := binary.NewDecoder(e.Bytes(), nil)
	got, err := DecodeHeader(d)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestDecodeHeader_RejectsUnknownMessageType(t *testing.T) {
	raw := []byte("XYZ")
	raw = append(raw, byte(ChunkFinal), 0, 0, 0, 0, 0, 0, 0, 0)
	d := binary.NewDecoder(raw, nil)
	_, err := DecodeHeader(d)
	require.Error(t, err)
}

func TestHello_RoundTrip(t *testing.T) {
	h := Hello{Version: 0, ReceiveBufferSize: 65536, SendBufferSize: 65536, MaxMessageSize: 1 << 20, MaxChunkCount: 16, EndpointURL: "opc.tcp://localhost:4840"}
	buf := make([]byte, 256)
	e := binary.NewEncoder(buf)
	require.NoError(t, h.Encode(e))

	d := binary.NewDecoder(e.Bytes(), nil)
	got, err := DecodeHello(d)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestSplitAndAssembler_MultiChunkRoundTrip(t *testing.T) {
	limits := Limits{MaxChunkSize: 32, MaxMessageSize: 4096, MaxChunkCount: 16}
	body := make([]byte, 100)
	for i := range body {
		body[i] = byte(i)
	}
	chunks, err := Split(MessageConversation, 7, body, limits)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	asm := NewAssembler(limits, RoleServer)
	var assembled []byte
	var done bool
	for _, raw := range chunks {
		d := binary.NewDecoder(raw, nil)
		h, err := DecodeHeader(d)
		require.NoError(t, err)
		assembled, done, err = asm.Feed(h, 1, raw[HeaderSize:])
		require.NoError(t, err)
	}
	assert.True(t, done)
	assert.Equal(t, body, assembled)
	assert.Equal(t, 0, asm.Pending())
}

func TestAssembler_AbortDiscardsBufferedChunks(t *testing.T) {
	limits := Limits{MaxChunkSize: 32, MaxMessageSize: 4096, MaxChunkCount: 16}
	asm := NewAssembler(limits, RoleServer)

	h := Header{MessageType: MessageConversation, ChunkType: ChunkContinuation, MessageSize: 20, ChannelID: 1}
	_, done, err := asm.Feed(h, 5, []byte("partial-body-bytes"))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, asm.Pending())

	abortHeader := Header{MessageType: MessageConversation, ChunkType: ChunkAbort, MessageSize: 12, ChannelID: 1}
	_, done, err = asm.Feed(abortHeader, 5, nil)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 0, asm.Pending())
}

func TestAssembler_RejectsOversizeMessage(t *testing.T) {
	limits := Limits{MaxChunkSize: 1024, MaxMessageSize: 16, MaxChunkCount: 16}
	asm := NewAssembler(limits, RoleServer)
	h := Header{MessageType: MessageConversation, ChunkType: ChunkFinal, MessageSize: 1024, ChannelID: 1}
	_, _, err := asm.Feed(h, 9, make([]byte, 32))
	require.Error(t, err)
}

func TestAssembler_RejectsTooManyChunks(t *testing.T) {
	limits := Limits{MaxChunkSize: 1024, MaxMessageSize: 65536, MaxChunkCount: 2}
	asm := NewAssembler(limits, RoleServer)
	cont := Header{MessageType: MessageConversation, ChunkType: ChunkContinuation, MessageSize: 20, ChannelID: 1}
	_, _, err := asm.Feed(cont, 3, make([]byte, 8))
	require.NoError(t, err)
	_, _, err = asm.Feed(cont, 3, make([]byte, 8))
	require.NoError(t, err)
	_, _, err = asm.Feed(cont, 3, make([]byte, 8))
	require.Error(t, err)
}
