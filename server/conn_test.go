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
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/chunk"
	"github.com/open62541-go/opcua-core/securechannel"
	"github.com/open62541-go/opcua-core/ua"
)

// connSymmetric is a real AES-256-CBC + HMAC-SHA256 symmetric module so the
// pipeline test exercises actual sign/encrypt round trips, mirroring the
// securechannel package's own test module.
type connSymmetric struct{}

func (connSymmetric) GenerateKey(secret, seed []byte, length int) []byte {
	return securechannel.DeriveKeys(sha256.New, secret, seed, length, 0, 0).SigningKey
}
func (connSymmetric) GenerateNonce(length int) ([]byte, error) { return make([]byte, length), nil }
func (connSymmetric) Sign(key, data []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}
func (connSymmetric) Verify(key, data, sig []byte) error {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return errors.New("signature mismatch")
	}
	return nil
}
func (connSymmetric) Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}
func (connSymmetric) Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}
func (connSymmetric) BlockSize() int     { return aes.BlockSize }
func (connSymmetric) SignatureSize() int { return sha256.Size }
func (connSymmetric) KeyLength() int     { return 32 }

type connPolicy struct{}

func (connPolicy) URI() string                                  { return "conn-test-policy" }
func (connPolicy) Asymmetric() securechannel.AsymmetricModule    { return nil }
func (connPolicy) Symmetric() securechannel.SymmetricModule      { return connSymmetric{} }
func (connPolicy) NewChannelModule() securechannel.ChannelModule { return nil }
func (connPolicy) SymmetricKeyLength() int                       { return 32 }
func (connPolicy) SymmetricBlockSize() int                       { return aes.BlockSize }
func (connPolicy) SymmetricSignatureSize() int                   { return sha256.Size }

type connRegistry struct{}

func (connRegistry) Lookup(string) (securechannel.SecurityPolicy, bool) { return connPolicy{}, true }

// testClient drives the client side of the wire protocol against ServeConn
// over a net.Pipe.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	secure *securechannel.Channel
	chanID uint32
	nextSeq uint32
	nextReq uint32
}

func (c *testClient) handshake() {
	c.t.Helper()
	hello := chunk.Hello{
		Version:           0,
		ReceiveBufferSize: 64 * 1024,
		SendBufferSize:    64 * 1024,
		EndpointURL:       "opc.tcp://test:4840",
	}
	buf := make([]byte, 64)
	e := binary.NewEncoder(buf)
	require.NoError(c.t, hello.Encode(e))
	require.NoError(c.t, writeFrame(c.conn, chunk.MessageHello, 0, e.Bytes()))

	h, body, err := readFrame(c.conn)
	require.NoError(c.t, err)
	require.Equal(c.t, chunk.MessageAcknowledge, h.MessageType)
	ack, err := chunk.DecodeAcknowledge(binary.NewDecoder(body, nil))
	require.NoError(c.t, err)
	require.NotZero(c.t, ack.MaxMessageSize)
}

func (c *testClient) openChannel() {
	c.t.Helper()
	clientNonce := []byte("client-nonce-bytes-0123456789ab!")

	buf := make([]byte, 256)
	e := binary.NewEncoder(buf)
	asym := chunk.AsymmetricSecurityHeader{SecurityPolicyURI: "conn-test-policy"}
	require.NoError(c.t, asym.Encode(e))
	c.nextSeq++
	c.nextReq++
	seq := chunk.SequenceHeader{SequenceNumber: c.nextSeq, RequestID: c.nextReq}
	require.NoError(c.t, seq.Encode(e))
	require.NoError(c.t, e.Bool(false))
	require.NoError(c.t, e.Float64(0))
	require.NoError(c.t, e.ByteString(clientNonce))
	require.NoError(c.t, writeFrame(c.conn, chunk.MessageOpenChannel, 0, e.Bytes()))

	h, body, err := readFrame(c.conn)
	require.NoError(c.t, err)
	require.Equal(c.t, chunk.MessageOpenChannel, h.MessageType)
	d := binary.NewDecoder(body, nil)
	_, err = chunk.DecodeAsymmetricSecurityHeader(d)
	require.NoError(c.t, err)
	_, err = chunk.DecodeSequenceHeader(d)
	require.NoError(c.t, err)
	var resp OpenChannelResponse
	require.NoError(c.t, decodeOpenChannelResponse(d, &resp))

	c.chanID = resp.ChannelID
	c.secure = securechannel.NewChannel(resp.ChannelID, securechannel.RoleClient, connPolicy{}, nil)
	require.NoError(c.t, c.secure.Open(resp.TokenID, clientNonce, resp.ServerNonce, resp.RevisedLifetime, sha256.New, 32, aes.BlockSize))
}

func decodeOpenChannelResponse(d *binary.Decoder, r *OpenChannelResponse) error {
	var err error
	if r.ChannelID, err = d.Uint32(); err != nil {
		return err
	}
	if r.TokenID, err = d.Uint32(); err != nil {
		return err
	}
	if r.RevisedLifetime, err = decodeDuration(d); err != nil {
		return err
	}
	r.ServerNonce, err = d.ByteString()
	return err
}

// request secures and sends one single-chunk service request and returns
// the decoded response type id, header and a decoder positioned at the
// response payload.
func (c *testClient) request(body []byte) (ua.NodeId, ResponseHeader, *binary.Decoder) {
	c.t.Helper()
	c.nextReq++
	require.NoError(c.t, c.sendSecuredChunk(c.nextReq, body, c.chanID))

	h, frame, err := readFrame(c.conn)
	require.NoError(c.t, err)
	require.Equal(c.t, chunk.MessageConversation, h.MessageType)

	d := binary.NewDecoder(frame, nil)
	sym, err := chunk.DecodeSymmetricSecurityHeader(d)
	require.NoError(c.t, err)

	prefix := make([]byte, chunk.HeaderSize+4)
	pe := binary.NewEncoder(prefix)
	require.NoError(c.t, h.Encode(pe))
	require.NoError(c.t, pe.Uint32(sym.TokenID))

	plaintext, err := c.secure.VerifyInbound(sym.TokenID, prefix, frame[d.Pos():])
	require.NoError(c.t, err)

	pd := binary.NewDecoder(plaintext, nil)
	_, err = chunk.DecodeSequenceHeader(pd)
	require.NoError(c.t, err)
	typeID, err := binary.DecodeNodeId(pd)
	require.NoError(c.t, err)
	respHdr, err := decodeResponseHeader(pd)
	require.NoError(c.t, err)
	return typeID, respHdr, pd
}

func (c *testClient) sendSecuredChunk(requestID uint32, body []byte, channelID uint32) error {
	plaintext := make([]byte, 8+len(body))
	pe := binary.NewEncoder(plaintext)
	c.nextSeq++
	seq := chunk.SequenceHeader{SequenceNumber: c.nextSeq, RequestID: requestID}
	if err := seq.Encode(pe); err != nil {
		return err
	}
	copy(plaintext[8:], body)

	padded := len(plaintext) + aes.BlockSize - len(plaintext)%aes.BlockSize
	h := chunk.Header{
		MessageType: chunk.MessageConversation,
		ChunkType:   chunk.ChunkFinal,
		MessageSize: uint32(chunk.HeaderSize + 4 + padded + sha256.Size),
		ChannelID:   channelID,
	}
	prefix := make([]byte, chunk.HeaderSize+4)
	he := binary.NewEncoder(prefix)
	if err := h.Encode(he); err != nil {
		return err
	}
	if err := he.Uint32(c.secure.CurrentToken.TokenID); err != nil {
		return err
	}
	ciphertext, err := c.secure.SecureOutbound(prefix, plaintext)
	if err != nil {
		return err
	}
	frame := append(append([]byte(nil), prefix...), ciphertext...)
	_, err = c.conn.Write(frame)
	return err
}

// createSessionBody builds the wire form of a CreateSession request.
func createSessionBody(t *testing.T, handle uint32) []byte {
	buf := make([]byte, 128)
	e := binary.NewEncoder(buf)
	require.NoError(t, binary.EncodeNodeId(e, TypeCreateSessionRequest))
	require.NoError(t, encodeRequestHeader(e, RequestHeader{
		Timestamp:     ua.NewDateTime(time.Now()),
		RequestHandle: handle,
	}))
	require.NoError(t, e.ByteString([]byte("0123456789abcdef")))
	require.NoError(t, e.Float64(30000))
	require.NoError(t, e.Uint32(1))
	return e.Bytes()
}

func newPipeServer(t *testing.T) (*Server, *testClient) {
	t.Helper()
	srv := New(testConfig(), nil, nil, nil, connRegistry{}, nil)
	serverConn, clientConn := net.Pipe()
	go func() { _ = srv.ServeConn(serverConn) }()
	t.Cleanup(func() { _ = clientConn.Close() })
	return srv, &testClient{t: t, conn: clientConn}
}

// TestServeConnFullPipeline walks the protocol's inbound data flow end to end:
// HEL/ACK, OPN with key derivation, then a secured CreateSession request
// whose response decrypts and decodes on the client side.
func TestServeConnFullPipeline(t *testing.T) {
	srv, client := newPipeServer(t)

	client.handshake()
	client.openChannel()

	typeID, respHdr, pd := client.request(createSessionBody(t, 7))
	assert.True(t, TypeCreateSessionResponse.Equal(typeID))
	assert.Equal(t, uint32(7), respHdr.RequestHandle)
	assert.Equal(t, ua.Good, respHdr.ServiceResult)

	sessionID, err := binary.DecodeNodeId(pd)
	require.NoError(t, err)
	authToken, err := binary.DecodeNodeId(pd)
	require.NoError(t, err)
	serverNonce, err := pd.ByteString()
	require.NoError(t, err)
	assert.Len(t, []byte(serverNonce), 16)
	assert.False(t, sessionID.IsNull())

	sess, err := srv.Sessions.Lookup(authToken)
	require.NoError(t, err)
	require.NotNil(t, sess)
}

// TestServeConnDropsUnknownChannel sends a MSG for a channel id the server
// never allocated; the chunk must be dropped silently and the connection
// stay usable for the next, valid request.
func TestServeConnDropsUnknownChannel(t *testing.T) {
	_, client := newPipeServer(t)
	client.handshake()
	client.openChannel()

	require.NoError(t, client.sendSecuredChunk(99, createSessionBody(t, 1), client.chanID+100))

	typeID, respHdr, _ := client.request(createSessionBody(t, 2))
	assert.True(t, TypeCreateSessionResponse.Equal(typeID))
	assert.Equal(t, uint32(2), respHdr.RequestHandle)
}

// TestServeConnFaultsUnknownSession routes a request whose authentication
// token matches no session into a ServiceFault envelope.
func TestServeConnFaultsUnknownSession(t *testing.T) {
	_, client := newPipeServer(t)
	client.handshake()
	client.openChannel()

	buf := make([]byte, 128)
	e := binary.NewEncoder(buf)
	require.NoError(t, binary.EncodeNodeId(e, TypeRepublishRequest))
	require.NoError(t, encodeRequestHeader(e, RequestHeader{
		AuthenticationToken: ua.NewNumericNodeId(0, 424242),
		Timestamp:           ua.NewDateTime(time.Now()),
		RequestHandle:       3,
	}))
	require.NoError(t, e.Uint32(1))
	require.NoError(t, e.Uint32(1))

	typeID, respHdr, _ := client.request(e.Bytes())
	assert.True(t, TypeServiceFault.Equal(typeID))
	assert.Equal(t, uint32(3), respHdr.RequestHandle)
	assert.Equal(t, ua.BadSessionIDInvalid, respHdr.ServiceResult)
}

// TestServeConnRejectsReplay replays a secured chunk byte for byte; the
// server must reject it for sequence regression and answer ERR before
// closing the transport.
func TestServeConnRejectsReplay(t *testing.T) {
	_, client := newPipeServer(t)
	client.handshake()
	client.openChannel()

	// Capture one valid frame by building it manually without sending.
	body := createSessionBody(t, 1)
	plaintext := make([]byte, 8+len(body))
	pe := binary.NewEncoder(plaintext)
	client.nextSeq++
	seq := chunk.SequenceHeader{SequenceNumber: client.nextSeq, RequestID: 50}
	require.NoError(t, seq.Encode(pe))
	copy(plaintext[8:], body)
	padded := len(plaintext) + aes.BlockSize - len(plaintext)%aes.BlockSize
	h := chunk.Header{
		MessageType: chunk.MessageConversation,
		ChunkType:   chunk.ChunkFinal,
		MessageSize: uint32(chunk.HeaderSize + 4 + padded + sha256.Size),
		ChannelID:   client.chanID,
	}
	prefix := make([]byte, chunk.HeaderSize+4)
	he := binary.NewEncoder(prefix)
	require.NoError(t, h.Encode(he))
	require.NoError(t, he.Uint32(client.secure.CurrentToken.TokenID))
	ciphertext, err := client.secure.SecureOutbound(prefix, plaintext)
	require.NoError(t, err)
	frame := append(append([]byte(nil), prefix...), ciphertext...)

	_, err = client.conn.Write(frame)
	require.NoError(t, err)
	respHdr, _, err := readFrame(client.conn)
	require.NoError(t, err)
	require.Equal(t, chunk.MessageConversation, respHdr.MessageType)

	// Replay the identical bytes: same sequence number, same signature.
	_, err = client.conn.Write(frame)
	require.NoError(t, err)
	errHdr, errBody, err := readFrame(client.conn)
	require.NoError(t, err)
	require.Equal(t, chunk.MessageError, errHdr.MessageType)
	msg, err := chunk.DecodeErrorMessage(binary.NewDecoder(errBody, nil))
	require.NoError(t, err)
	assert.Equal(t, ua.BadSequenceNumberInvalid, msg.Error)
}
