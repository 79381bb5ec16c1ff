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
	"github.com/open62541-go/opcua-core/internal/uaerrors"
)

// pending accumulates the chunks of one in-flight message, keyed by
// requestId.
type pending struct {
	messageType MessageType
	chunks      [][]byte
	totalBytes  int
}

// Role distinguishes which side of a channel an Assembler sits on, since
// that decides which oversize status code an assembled message that
// exceeds limits gets reported with.
type Role int

// Roles an Assembler can be configured with.
const (
	RoleServer Role = iota
	RoleClient
)

// Assembler reassembles MSG/OPN/CLO chunks into complete messages. HEL/ACK/
// ERR never span more than one chunk and so never pass
// through it.
type Assembler struct {
	limits Limits
	role   Role
	byReq  map[uint32]*pending
}

// NewAssembler returns an Assembler enforcing limits for the given role.
func NewAssembler(limits Limits, role Role) *Assembler {
	return &Assembler{limits: limits, role: role, byReq: make(map[uint32]*pending)}
}

// Feed adds one chunk's body (the bytes after the 12-byte header, still
// including the security/sequence headers - opaque to this layer) to the
// in-flight message for requestID. On a final chunk it returns the
// concatenated message body and clears the in-flight state; on a
// continuation chunk it returns (nil, false, nil); on an abort chunk it
// discards the buffered chunks and returns (nil, false, nil) as well, since
// there is no message to deliver.
func (a *Assembler) Feed(h Header, requestID uint32, body []byte) (msg []byte, done bool, err error) {
	if h.ChunkType == ChunkAbort {
		delete(a.byReq, requestID)
		return nil, false, nil
	}

	p, ok := a.byReq[requestID]
	if !ok {
		p = &pending{messageType: h.MessageType}
		a.byReq[requestID] = p
	} else if p.messageType != h.MessageType {
		delete(a.byReq, requestID)
		return nil, false, uaerrors.Wrap(uaerrors.MalformedChunk, "request %d: message type changed mid-assembly", requestID)
	}

	if a.limits.MaxChunkSize != 0 && h.MessageSize > a.limits.MaxChunkSize {
		delete(a.byReq, requestID)
		return nil, false, uaerrors.Wrap(uaerrors.TCPMessageTooLarge, "chunk size %d exceeds max %d", h.MessageSize, a.limits.MaxChunkSize)
	}

	p.chunks = append(p.chunks, body)
	p.totalBytes += len(body)

	if a.limits.MaxChunkCount != 0 && uint32(len(p.chunks)) > a.limits.MaxChunkCount {
		delete(a.byReq, requestID)
		return nil, false, uaerrors.Wrap(uaerrors.ChunkCountExceeded, "request %d exceeds max chunk count %d", requestID, a.limits.MaxChunkCount)
	}
	if maxSize := a.limits.EffectiveMaxMessageSize(); uint32(p.totalBytes) > maxSize {
		delete(a.byReq, requestID)
		kind := uaerrors.ResponseTooLarge
		if a.role == RoleServer {
			kind = uaerrors.RequestTooLarge
		}
		return nil, false, uaerrors.Wrap(kind, "request %d assembled size %d exceeds max %d", requestID, p.totalBytes, maxSize)
	}

	if h.ChunkType != ChunkFinal {
		return nil, false, nil
	}

	out := make([]byte, 0, p.totalBytes)
	for _, c := range p.chunks {
		out = append(out, c...)
	}
	delete(a.byReq, requestID)
	return out, true, nil
}

// Abort discards any buffered chunks for requestID without assembling a
// message, releasing their memory.
func (a *Assembler) Abort(requestID uint32) {
	delete(a.byReq, requestID)
}

// Pending reports how many requestIds currently have buffered, incomplete
// chunks - exposed so a channel close can account for leaked assembly
// state.
func (a *Assembler) Pending() int {
	return len(a.byReq)
}
