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
	"github.com/open62541-go/opcua-core/internal/uaerrors"
)

// Split divides body (the security header, sequence header and payload
// already concatenated by the caller - this package never looks inside it)
// into one or more chunks of at most limits.MaxChunkSize total size
// (header included), the last one marked ChunkFinal. It returns the full bytes of each
// chunk - header plus its slice of body - ready to write to the wire.
func Split(messageType MessageType, channelID uint32, body []byte, limits Limits) ([][]byte, error) {
	maxChunk := limits.MaxChunkSize
	if maxChunk == 0 {
		maxChunk = binaryDefaultMaxChunkSize
	}
	if maxChunk <= HeaderSize {
		return nil, uaerrors.Wrap(uaerrors.TCPMessageTooLarge, "max chunk size %d too small to carry a header", maxChunk)
	}
	perChunkBody := int(maxChunk) - HeaderSize

	var chunks [][]byte
	for off := 0; off == 0 || off < len(body); off += perChunkBody {
		end := off + perChunkBody
		if end > len(body) {
			end = len(body)
		}
		final := end >= len(body)
		ct := ChunkContinuation
		if final {
			ct = ChunkFinal
		}
		h := Header{
			MessageType: messageType,
			ChunkType:   ct,
			MessageSize: uint32(HeaderSize + (end - off)),
			ChannelID:   channelID,
		}
		buf := make([]byte, h.MessageSize)
		e := binary.NewEncoder(buf)
		if err := h.Encode(e); err != nil {
			return nil, err
		}
		copy(buf[HeaderSize:], body[off:end])
		chunks = append(chunks, buf)

		if limits.MaxChunkCount != 0 && uint32(len(chunks)) > limits.MaxChunkCount {
			return nil, uaerrors.Wrap(uaerrors.ChunkCountExceeded, "message requires more than max %d chunks", limits.MaxChunkCount)
		}
		if len(body) == 0 {
			break
		}
	}
	return chunks, nil
}

// binaryDefaultMaxChunkSize mirrors binary.DefaultMaxMessageSize's role for
// chunk-size negotiation: applied only when a Limits was never populated
// from an ACK handshake.
const binaryDefaultMaxChunkSize = 64 * 1024
