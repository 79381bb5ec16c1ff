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

package server

import (
	"crypto/sha256"
	"io"
	"time"

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/chunk"
	"github.com/open62541-go/opcua-core/internal/config"
	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// maxRequestTimestampSkew is how far a RequestHeader.Timestamp may deviate
// from server time before the VerifyRequestTimestamp modes react.
const maxRequestTimestampSkew = 10 * time.Minute

// OpenChannelRequest is the body an OPN chunk carries after the asymmetric
// security header and the sequence header: issue-or-renew, the requested
// token lifetime, and the client nonce the key schedule derives from.
// Asymmetric protection of this body is the SecurityPolicy capability's
// concern (certificates and private keys live outside this module); the
// pipeline here performs the state-machine and key-derivation steps on
// the plaintext the policy hands it.
type OpenChannelRequest struct {
	IsRenew           bool
	RequestedLifetime time.Duration
	ClientNonce       []byte
}

// OpenChannelResponse answers an OPN: the allocated channel and token ids,
// the revised (possibly clamped) lifetime, and the server nonce.
type OpenChannelResponse struct {
	ChannelID       uint32
	TokenID         uint32
	RevisedLifetime time.Duration
	ServerNonce     []byte
}

func decodeOpenChannelRequest(d *binary.Decoder) (OpenChannelRequest, error) {
	var r OpenChannelRequest
	var err error
	if r.IsRenew, err = d.Bool(); err != nil {
		return r, err
	}
	if r.RequestedLifetime, err = decodeDuration(d); err != nil {
		return r, err
	}
	r.ClientNonce, err = d.ByteString()
	return r, err
}

func (r OpenChannelResponse) encode(e *binary.Encoder) error {
	if err := e.Uint32(r.ChannelID); err != nil {
		return err
	}
	if err := e.Uint32(r.TokenID); err != nil {
		return err
	}
	if err := encodeDuration(e, r.RevisedLifetime); err != nil {
		return err
	}
	return e.ByteString(r.ServerNonce)
}

// ServeConn runs the whole inbound pipeline for one transport
// connection: bytes -> ChunkFramer -> SecureChannel -> BinaryCodec ->
// Session lookup -> dispatch -> response back down the same path. It
// returns when the peer disconnects, the channel is torn down after a
// protocol violation, or CLO closes it cleanly. Handlers run via
// Loop.Post-free direct calls here for simplicity of the read loop; a
// deployment that multiplexes many connections posts each frame to the
// loop the way AddReaderGroup does for datagrams.
func (s *Server) ServeConn(stream ByteStream) error {
	defer stream.Close()
	var bound *Channel
	limits := chunk.Limits{
		MaxChunkSize:   uint32(s.Config.MaxChunkSize),
		MaxMessageSize: uint32(s.Config.MaxMessageSize),
		MaxChunkCount:  uint32(s.Config.MaxChunkCount),
	}

	for {
		h, body, err := readFrame(stream)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if uaerrors.Is(err, uaerrors.TCPMessageTypeInvalid) || uaerrors.Is(err, uaerrors.MalformedChunk) {
				s.sendError(stream, 0, statusFor(err), err.Error())
			}
			return err
		}

		switch h.MessageType {
		case chunk.MessageHello:
			if limits, err = s.handleHello(stream, body, limits); err != nil {
				s.sendError(stream, 0, ua.BadTCPEndpointURLInvalid, err.Error())
				return err
			}

		case chunk.MessageOpenChannel:
			if bound, err = s.handleOpenChannel(stream, bound, limits, body); err != nil {
				s.sendError(stream, h.ChannelID, statusFor(err), err.Error())
				return err
			}

		case chunk.MessageConversation, chunk.MessageCloseChannel:
			ch, ok := s.Channel(h.ChannelID)
			if !ok {
				// Unknown channelId: dropped silently in the server role.
				continue
			}
			closed, err := s.handleSecured(stream, ch, h, body)
			if err != nil {
				s.sendError(stream, h.ChannelID, statusFor(err), err.Error())
				_ = s.CloseChannel(h.ChannelID)
				return err
			}
			if closed {
				return nil
			}

		default:
			s.sendError(stream, h.ChannelID, ua.BadTCPMessageTypeInvalid, "unexpected message type")
			return uaerrors.Wrap(uaerrors.TCPMessageTypeInvalid, "unexpected %s from client", h.MessageType)
		}
	}
}

// readFrame reads one chunk off the wire: the fixed header, then the rest
// of the declared MessageSize.
func readFrame(stream ByteStream) (chunk.Header, []byte, error) {
	hdr := make([]byte, chunk.HeaderSize)
	if _, err := io.ReadFull(stream, hdr); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return chunk.Header{}, nil, err
	}
	h, err := chunk.DecodeHeader(binary.NewDecoder(hdr, nil))
	if err != nil {
		return chunk.Header{}, nil, err
	}
	if h.MessageSize < chunk.HeaderSize {
		return chunk.Header{}, nil, uaerrors.Wrap(uaerrors.MalformedChunk, "declared size %d below header size", h.MessageSize)
	}
	body := make([]byte, h.MessageSize-chunk.HeaderSize)
	if _, err := io.ReadFull(stream, body); err != nil {
		return chunk.Header{}, nil, err
	}
	return h, body, nil
}

// handleHello negotiates limits from the client's HEL proposal and answers ACK. The server never grants more than its own
// configured caps; a client proposal of 0 means "no preference" and gets
// the server value.
func (s *Server) handleHello(stream ByteStream, body []byte, limits chunk.Limits) (chunk.Limits, error) {
	hello, err := chunk.DecodeHello(binary.NewDecoder(body, s.codecCtx))
	if err != nil {
		return limits, err
	}
	if hello.EndpointURL == "" {
		return limits, uaerrors.Wrap(uaerrors.TCPEndpointURLInvalid, "empty endpoint url in HEL")
	}
	negotiate := func(client, server uint32) uint32 {
		if client == 0 || client > server {
			return server
		}
		return client
	}
	limits.MaxMessageSize = negotiate(hello.MaxMessageSize, uint32(s.Config.MaxMessageSize))
	limits.MaxChunkCount = negotiate(hello.MaxChunkCount, uint32(s.Config.MaxChunkCount))
	limits.MaxChunkSize = negotiate(hello.ReceiveBufferSize, uint32(s.Config.MaxChunkSize))

	ack := chunk.Acknowledge{
		Version:           hello.Version,
		ReceiveBufferSize: limits.MaxChunkSize,
		SendBufferSize:    limits.MaxChunkSize,
		MaxMessageSize:    limits.MaxMessageSize,
		MaxChunkCount:     limits.MaxChunkCount,
	}
	ackBody := make([]byte, 20)
	e := binary.NewEncoder(ackBody)
	if err := ack.Encode(e); err != nil {
		return limits, err
	}
	return limits, writeFrame(stream, chunk.MessageAcknowledge, 0, e.Bytes())
}

// handleOpenChannel processes an OPN: first contact opens a fresh channel,
// a later one renews the token. The requested lifetime
// is clamped by MaxSecurityTokenLifetime from the configuration.
func (s *Server) handleOpenChannel(stream ByteStream, bound *Channel, limits chunk.Limits, body []byte) (*Channel, error) {
	d := binary.NewDecoder(body, s.codecCtx)
	asym, err := chunk.DecodeAsymmetricSecurityHeader(d)
	if err != nil {
		return bound, err
	}
	policy, ok := s.Policies.Lookup(asym.SecurityPolicyURI)
	if !ok {
		return bound, uaerrors.Wrap(uaerrors.SecurityPolicyRejected, "no policy for uri %q", asym.SecurityPolicyURI)
	}
	seq, err := chunk.DecodeSequenceHeader(d)
	if err != nil {
		return bound, err
	}
	req, err := decodeOpenChannelRequest(d)
	if err != nil {
		return bound, err
	}

	if bound == nil {
		bound = s.OpenChannel(policy, stream)
		bound.Limits = limits
		bound.Assembler = chunk.NewAssembler(limits, chunk.RoleServer)
	}
	if err := bound.Secure.ValidateInboundSequence(seq.SequenceNumber); err != nil {
		return bound, err
	}

	lifetime := req.RequestedLifetime
	if maxLife := s.Config.MaxSecurityTokenLifetime; lifetime <= 0 || (maxLife > 0 && lifetime > maxLife) {
		lifetime = maxLife
	}
	serverNonce, err := randomNonce(len(req.ClientNonce))
	if err != nil {
		return bound, err
	}

	tokenID := uint32(1)
	if cur := bound.Secure.CurrentToken; cur != nil {
		tokenID = cur.TokenID + 1
	}
	// Any OPN on an already-open channel is a renewal, whatever the
	// request says.
	keyLen := policy.SymmetricKeyLength()
	ivLen := policy.SymmetricBlockSize()
	if bound.Secure.CurrentToken != nil {
		err = bound.Secure.Renew(tokenID, req.ClientNonce, serverNonce, lifetime, sha256.New, keyLen, ivLen)
	} else {
		err = bound.Secure.Open(tokenID, req.ClientNonce, serverNonce, lifetime, sha256.New, keyLen, ivLen)
	}
	if err != nil {
		return bound, err
	}
	if s.Log != nil {
		s.Log.Log(corelog.Info, corelog.CategorySecureChannel, "channel %d: token %d issued, lifetime %s", bound.Secure.ChannelID, tokenID, lifetime)
	}

	resp := OpenChannelResponse{
		ChannelID:       bound.Secure.ChannelID,
		TokenID:         tokenID,
		RevisedLifetime: lifetime,
		ServerNonce:     serverNonce,
	}
	respBuf := make([]byte, 64+len(asym.SecurityPolicyURI)+len(serverNonce))
	e := binary.NewEncoder(respBuf)
	respHdr := chunk.AsymmetricSecurityHeader{SecurityPolicyURI: asym.SecurityPolicyURI}
	if err := respHdr.Encode(e); err != nil {
		return bound, err
	}
	outSeq := chunk.SequenceHeader{
		SequenceNumber: bound.Secure.NextOutboundSequenceNumber(),
		RequestID:      seq.RequestID,
	}
	if err := outSeq.Encode(e); err != nil {
		return bound, err
	}
	if err := resp.encode(e); err != nil {
		return bound, err
	}
	return bound, writeFrame(stream, chunk.MessageOpenChannel, bound.Secure.ChannelID, e.Bytes())
}

// handleSecured processes one MSG or CLO chunk: symmetric verify/decrypt,
// sequence validation, reassembly, dispatch, and the secured response.
// The returned bool is true when the channel was closed by a CLO.
func (s *Server) handleSecured(stream ByteStream, ch *Channel, h chunk.Header, body []byte) (bool, error) {
	if !ch.Secure.State().CanCarryMSG() {
		return false, uaerrors.Wrap(uaerrors.InvalidChannelState, "channel %d in state %s cannot carry %s", ch.Secure.ChannelID, ch.Secure.State(), h.MessageType)
	}
	d := binary.NewDecoder(body, s.codecCtx)
	sym, err := chunk.DecodeSymmetricSecurityHeader(d)
	if err != nil {
		return false, err
	}
	ciphertext := body[d.Pos():]

	// The signature covers the chunk header and the symmetric security
	// header, everything ahead of the encrypted region.
	prefix := make([]byte, chunk.HeaderSize+4)
	pe := binary.NewEncoder(prefix)
	if err := h.Encode(pe); err != nil {
		return false, err
	}
	if err := pe.Uint32(sym.TokenID); err != nil {
		return false, err
	}

	plaintext, err := ch.Secure.VerifyInbound(sym.TokenID, prefix, ciphertext)
	if err != nil {
		s.Stats.SecurityFailure()
		return false, err
	}
	if next := ch.Secure.NextToken; next != nil && next.TokenID == sym.TokenID {
		if err := ch.Secure.PromoteToken(); err != nil {
			return false, err
		}
	}

	pd := binary.NewDecoder(plaintext, s.codecCtx)
	seq, err := chunk.DecodeSequenceHeader(pd)
	if err != nil {
		return false, err
	}
	if err := ch.Secure.ValidateInboundSequence(seq.SequenceNumber); err != nil {
		return false, err
	}

	if h.MessageType == chunk.MessageCloseChannel {
		_ = s.CloseChannel(h.ChannelID)
		return true, nil
	}

	ch.Secure.TrackInboundRequest(seq.RequestID)
	msg, done, err := ch.Assembler.Feed(h, seq.RequestID, plaintext[pd.Pos():])
	if err != nil {
		return false, err
	}
	if !done {
		return false, nil
	}

	respBody := s.handleRequest(seq.RequestID, msg)
	ch.Secure.CompleteRequest(seq.RequestID)
	return false, s.sendSecured(stream, ch, seq.RequestID, respBody)
}

// handleRequest decodes one reassembled request body (type id, request
// header, payload), routes it through the session dispatch table, and
// encodes the response - or a ServiceFault when anything along the way
// fails.
func (s *Server) handleRequest(requestID uint32, body []byte) []byte {
	d := binary.NewDecoder(body, s.codecCtx)
	typeID, err := binary.DecodeNodeId(d)
	if err != nil {
		return s.serviceFault(0, statusFor(err))
	}
	reqHdr, err := decodeRequestHeader(d)
	if err != nil {
		return s.serviceFault(0, statusFor(err))
	}
	if err := s.checkRequestTimestamp(reqHdr.Timestamp); err != nil {
		return s.serviceFault(reqHdr.RequestHandle, statusFor(err))
	}

	req, err := decodeRequestBody(s.codecCtx, typeID, d)
	if err != nil {
		return s.serviceFault(reqHdr.RequestHandle, statusFor(err))
	}
	if pr, ok := req.(PublishRequestBody); ok {
		pr.RequestID = requestID
		req = pr
	}

	var resp interface{}
	if typeID.Equal(TypeCreateSessionRequest) {
		resp, err = s.handleCreateSession(nil, req)
	} else {
		sess, lerr := s.Sessions.Lookup(reqHdr.AuthenticationToken)
		if lerr != nil {
			return s.serviceFault(reqHdr.RequestHandle, statusFor(lerr))
		}
		resp, err = s.Dispatch.Dispatch(sess, typeID, req)
	}
	if err != nil {
		return s.serviceFault(reqHdr.RequestHandle, statusFor(err))
	}

	respTypeID, err := responseTypeID(resp)
	if err != nil {
		return s.serviceFault(reqHdr.RequestHandle, ua.BadEncodingError)
	}
	respHdr := ResponseHeader{
		Timestamp:     ua.NewDateTime(time.Now()),
		RequestHandle: reqHdr.RequestHandle,
		ServiceResult: ua.Good,
	}
	for _, size := range []int{4096, s.maxResponseSize()} {
		buf := make([]byte, size)
		e := binary.NewEncoder(buf)
		if err = binary.EncodeNodeId(e, respTypeID); err == nil {
			if err = encodeResponseHeader(e, respHdr); err == nil {
				err = encodeResponseBody(s.codecCtx, e, resp)
			}
		}
		if err == nil {
			return e.Bytes()
		}
		if !uaerrors.Is(err, uaerrors.BufferTooSmall) {
			break
		}
	}
	return s.serviceFault(reqHdr.RequestHandle, ua.BadEncodingError)
}

// maxResponseSize is the hard cap on one encoded response, from the
// codec context's message cap.
func (s *Server) maxResponseSize() int {
	if n := s.codecCtx.MaxMessageSize; n > 0 {
		return n
	}
	return binary.DefaultMaxMessageSize
}

// checkRequestTimestamp applies the VerifyRequestTimestamp config mode
// to a RequestHeader timestamp.
func (s *Server) checkRequestTimestamp(ts ua.DateTime) error {
	mode := s.Config.VerifyRequestTimestamp
	if mode == "" || mode == config.TimestampCheckDefault {
		return nil
	}
	skew := time.Now().Sub(ts.Time())
	if skew < 0 {
		skew = -skew
	}
	if ts != 0 && skew <= maxRequestTimestampSkew {
		return nil
	}
	if mode == config.TimestampCheckWarn {
		if s.Log != nil {
			s.Log.Log(corelog.Warning, corelog.CategorySession, "request timestamp off by %s", skew)
		}
		return nil
	}
	return uaerrors.Wrap(uaerrors.InvalidTimestamp, "request timestamp off by %s", skew)
}

// serviceFault encodes a ServiceFault envelope carrying status.
func (s *Server) serviceFault(requestHandle uint32, status ua.StatusCode) []byte {
	buf := make([]byte, 64)
	e := binary.NewEncoder(buf)
	if err := binary.EncodeNodeId(e, TypeServiceFault); err != nil {
		return nil
	}
	hdr := ResponseHeader{
		Timestamp:     ua.NewDateTime(time.Now()),
		RequestHandle: requestHandle,
		ServiceResult: status,
	}
	if err := encodeResponseHeader(e, hdr); err != nil {
		return nil
	}
	return e.Bytes()
}

// sendSecured splits body into MSG chunks that each fit the negotiated
// MaxChunkSize once the sequence header, padding and signature are added,
// securing and writing each one.
func (s *Server) sendSecured(stream ByteStream, ch *Channel, requestID uint32, body []byte) error {
	policy := ch.Secure.Policy
	sigSize := policy.SymmetricSignatureSize()
	blockSize := policy.SymmetricBlockSize()

	maxChunk := int(ch.Limits.MaxChunkSize)
	if maxChunk == 0 {
		maxChunk = 64 * 1024
	}
	overhead := chunk.HeaderSize + 4 + 8 + sigSize + blockSize
	perChunk := maxChunk - overhead
	if perChunk <= 0 {
		return uaerrors.Wrap(uaerrors.TCPMessageTooLarge, "chunk size %d cannot carry security overhead %d", maxChunk, overhead)
	}

	for off := 0; off == 0 || off < len(body); off += perChunk {
		end := off + perChunk
		if end > len(body) {
			end = len(body)
		}
		ct := chunk.ChunkContinuation
		if end >= len(body) {
			ct = chunk.ChunkFinal
		}

		plaintext := make([]byte, 8+(end-off))
		pe := binary.NewEncoder(plaintext)
		seq := chunk.SequenceHeader{
			SequenceNumber: ch.Secure.NextOutboundSequenceNumber(),
			RequestID:      requestID,
		}
		if err := seq.Encode(pe); err != nil {
			return err
		}
		copy(plaintext[8:], body[off:end])

		padded := len(plaintext)
		if blockSize > 1 {
			padded += blockSize - len(plaintext)%blockSize
		}
		h := chunk.Header{
			MessageType: chunk.MessageConversation,
			ChunkType:   ct,
			MessageSize: uint32(chunk.HeaderSize + 4 + padded + sigSize),
			ChannelID:   ch.Secure.ChannelID,
		}
		prefix := make([]byte, chunk.HeaderSize+4)
		he := binary.NewEncoder(prefix)
		if err := h.Encode(he); err != nil {
			return err
		}
		tokenID := uint32(0)
		if tok := ch.Secure.CurrentToken; tok != nil {
			tokenID = tok.TokenID
		}
		if err := he.Uint32(tokenID); err != nil {
			return err
		}

		ciphertext, err := ch.Secure.SecureOutbound(prefix, plaintext)
		if err != nil {
			return err
		}
		frame := append(append([]byte(nil), prefix...), ciphertext...)
		if _, err := stream.Write(frame); err != nil {
			return err
		}
		if len(body) == 0 {
			break
		}
	}
	return nil
}

// writeFrame writes one unsecured chunk (HEL/ACK/ERR/OPN in the None
// policy's plaintext form) with a final chunk marker.
func writeFrame(stream ByteStream, mt chunk.MessageType, channelID uint32, body []byte) error {
	buf := make([]byte, chunk.HeaderSize+len(body))
	e := binary.NewEncoder(buf)
	h := chunk.Header{
		MessageType: mt,
		ChunkType:   chunk.ChunkFinal,
		MessageSize: uint32(len(buf)),
		ChannelID:   channelID,
	}
	if err := h.Encode(e); err != nil {
		return err
	}
	copy(buf[chunk.HeaderSize:], body)
	_, err := stream.Write(buf)
	return err
}

// sendError emits an ERR chunk; the connection is closed by the caller
// right after.
func (s *Server) sendError(stream ByteStream, channelID uint32, status ua.StatusCode, reason string) {
	body := make([]byte, 8+len(reason))
	e := binary.NewEncoder(body)
	msg := chunk.ErrorMessage{Error: status, Reason: reason}
	if err := msg.Encode(e); err != nil {
		return
	}
	_ = writeFrame(stream, chunk.MessageError, channelID, e.Bytes())
}
