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

package securechannel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeSymmetric is a minimal, real (AES-256-CBC + HMAC-SHA256) symmetric
// module sized for tests, standing in for a security policy's aes256Sha256
// module without depending on one being registered.
type fakeSymmetric struct{}

func (fakeSymmetric) GenerateKey(secret, seed []byte, length int) []byte {
	return DeriveKeys(sha256.New, secret, seed, length, 0, 0).SigningKey
}
func (fakeSymmetric) GenerateNonce(length int) ([]byte, error) { return make([]byte, length), nil }
func (fakeSymmetric) Sign(key, data []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}
func (fakeSymmetric) Verify(key, data, sig []byte) error {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return assertErr("signature mismatch")
	}
	return nil
}
func (fakeSymmetric) Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}
func (fakeSymmetric) Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}
func (fakeSymmetric) BlockSize() int     { return aes.BlockSize }
func (fakeSymmetric) SignatureSize() int { return sha256.Size }
func (fakeSymmetric) KeyLength() int     { return 32 }

type assertErr string

func (e assertErr) Error() string { return string(e) }

// newMockPolicy builds a MockSecurityPolicy standing in for a registered
// aes256Sha256-shaped policy, its Symmetric() backed by the real
// fakeSymmetric module so key-derivation/sign/encrypt round trips still
// exercise actual crypto rather than canned bytes.
func newMockPolicy(t *testing.T) SecurityPolicy {
	t.Helper()
	ctrl := gomock.NewController(t)
	p := NewMockSecurityPolicy(ctrl)
	p.EXPECT().URI().Return("http://opcfoundation.org/UA/SecurityPolicy#Fake256").AnyTimes()
	p.EXPECT().Asymmetric().Return(nil).AnyTimes()
	p.EXPECT().Symmetric().Return(fakeSymmetric{}).AnyTimes()
	p.EXPECT().NewChannelModule().Return(nil).AnyTimes()
	p.EXPECT().SymmetricKeyLength().Return(32).AnyTimes()
	p.EXPECT().SymmetricBlockSize().Return(aes.BlockSize).AnyTimes()
	p.EXPECT().SymmetricSignatureSize().Return(sha256.Size).AnyTimes()
	return p
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestChannel_OpenDerivesKeysAndTransitions(t *testing.T) {
	clk := fixedClock{t: time.Unix(1000, 0)}
	server := NewChannel(1, RoleServer, newMockPolicy(t), clk)
	client := NewChannel(1, RoleClient, newMockPolicy(t), clk)

	clientNonce := []byte("client-nonce-bytes-0123456789ab")
	serverNonce := []byte("server-nonce-bytes-0123456789ab")

	require.NoError(t, server.Open(5, clientNonce, serverNonce, time.Minute, sha256.New, 32, aes.BlockSize))
	require.NoError(t, client.Open(5, clientNonce, serverNonce, time.Minute, sha256.New, 32, aes.BlockSize))

	assert.Equal(t, Open, server.State())
	assert.Equal(t, Open, client.State())
	// The server's outbound (Local) keys must equal the client's inbound
	// (Remote) keys, and vice versa.
	assert.Equal(t, server.CurrentToken.Local, client.CurrentToken.Remote)
	assert.Equal(t, client.CurrentToken.Local, server.CurrentToken.Remote)
}

func TestChannel_SecureRoundTrip(t *testing.T) {
	clk := fixedClock{t: time.Unix(1000, 0)}
	server := NewChannel(1, RoleServer, newMockPolicy(t), clk)
	client := NewChannel(1, RoleClient, newMockPolicy(t), clk)
	clientNonce := []byte("client-nonce-bytes-0123456789ab")
	serverNonce := []byte("server-nonce-bytes-0123456789ab")
	require.NoError(t, server.Open(5, clientNonce, serverNonce, time.Minute, sha256.New, 32, aes.BlockSize))
	require.NoError(t, client.Open(5, clientNonce, serverNonce, time.Minute, sha256.New, 32, aes.BlockSize))

	header := []byte("MSGF\x00\x00\x00\x00\x01\x00\x00\x00")
	body := []byte("hello secure world")

	ciphertext, err := client.SecureOutbound(header, body)
	require.NoError(t, err)

	got, err := server.VerifyInbound(5, header, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestChannel_SequenceNumberWrapAndRegression(t *testing.T) {
	c := NewChannel(1, RoleServer, newMockPolicy(t), fixedClock{t: time.Unix(0, 0)})
	require.NoError(t, c.ValidateInboundSequence(1))
	require.NoError(t, c.ValidateInboundSequence(2))
	require.Error(t, c.ValidateInboundSequence(2))

	c2 := NewChannel(2, RoleServer, newMockPolicy(t), fixedClock{t: time.Unix(0, 0)})
	require.NoError(t, c2.ValidateInboundSequence(SequenceNumberWrapAt))
	require.NoError(t, c2.ValidateInboundSequence(1))
}

func TestChannel_TokenRenewalPromotion(t *testing.T) {
	clk := fixedClock{t: time.Unix(1000, 0)}
	c := NewChannel(1, RoleServer, newMockPolicy(t), clk)
	nonceA := []byte("client-nonce-bytes-0123456789ab")
	nonceB := []byte("server-nonce-bytes-0123456789ab")
	require.NoError(t, c.Open(1, nonceA, nonceB, time.Minute, sha256.New, 32, aes.BlockSize))

	require.NoError(t, c.Renew(2, nonceA, nonceB, time.Minute, sha256.New, 32, aes.BlockSize))
	assert.Equal(t, Renewing, c.State())

	tok, err := c.TokenForID(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tok.TokenID)
	tok, err = c.TokenForID(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tok.TokenID)

	require.NoError(t, c.PromoteToken())
	assert.Equal(t, Open, c.State())
	assert.Equal(t, uint32(2), c.CurrentToken.TokenID)
	assert.Nil(t, c.NextToken)

	// The superseded token stays usable for inbound traffic within the
	// grace window.
	tok, err = c.TokenForID(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), tok.TokenID)
}

type movingClock struct{ t *time.Time }

func (c movingClock) Now() time.Time { return *c.t }

func TestChannel_OldTokenRejectedBeyondGraceWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	clk := movingClock{t: &now}
	c := NewChannel(1, RoleServer, newMockPolicy(t), clk)
	nonceA := []byte("client-nonce-bytes-0123456789ab")
	nonceB := []byte("server-nonce-bytes-0123456789ab")
	lifetime := time.Minute
	require.NoError(t, c.Open(1, nonceA, nonceB, lifetime, sha256.New, 32, aes.BlockSize))
	require.NoError(t, c.Renew(2, nonceA, nonceB, lifetime, sha256.New, 32, aes.BlockSize))
	require.NoError(t, c.PromoteToken())

	// Inside the grace window (25% of the lifetime): accepted.
	now = now.Add(GraceWindow(lifetime, c.RoundTripEstimate) - time.Second)
	_, err := c.TokenForID(1)
	require.NoError(t, err)

	// Past it: rejected, and only the current token remains.
	now = now.Add(2 * time.Second)
	_, err = c.TokenForID(1)
	require.Error(t, err)
	_, err = c.TokenForID(2)
	require.NoError(t, err)
}

func TestChannel_CloseCancelsExchanges(t *testing.T) {
	c := NewChannel(1, RoleServer, newMockPolicy(t), SystemClock{})
	id := c.NextRequestID()
	assert.True(t, c.HasOpenExchange(id))
	require.NoError(t, c.Close())
	assert.False(t, c.HasOpenExchange(id))
	assert.Equal(t, Closed, c.State())
}
