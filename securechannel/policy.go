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

// Package securechannel implements the OPC UA SecureChannel state machine
//: OPN handshake, P_SHA key derivation, per-chunk
// sign/verify/encrypt/decrypt dispatch, sequence number tracking and token
// renewal. Every cryptographic primitive is reached through the
// SecurityPolicy capability - this package never picks an
// algorithm itself.
package securechannel

// AsymmetricModule is the asymmetric half of a SecurityPolicy, used only
// during the OPN handshake.
type AsymmetricModule interface {
	Verify(certificate, data, signature []byte) error
	Sign(privateKey, data []byte) ([]byte, error)
	Encrypt(publicKey, plaintext []byte) ([]byte, error)
	Decrypt(privateKey, ciphertext []byte) ([]byte, error)
	LocalSignatureSize() int
	RemoteSignatureSize(remoteCertificate []byte) int
	LocalKeyLength() int
	RemoteKeyLength(remoteCertificate []byte) int
	MakeCertificateThumbprint(certificate []byte) ([]byte, error)
	CompareCertificateThumbprint(certificate, thumbprint []byte) bool
}

// SymmetricModule is the symmetric half of a SecurityPolicy, used for every
// MSG/CLO chunk once a channel is Open.
type SymmetricModule interface {
	GenerateKey(secret, seed []byte, length int) []byte
	GenerateNonce(length int) ([]byte, error)
	Sign(signingKey, data []byte) ([]byte, error)
	Verify(signingKey, data, signature []byte) error
	Encrypt(encryptingKey, iv, plaintext []byte) ([]byte, error)
	Decrypt(encryptingKey, iv, ciphertext []byte) ([]byte, error)
	BlockSize() int
	SignatureSize() int
	KeyLength() int
}

// ChannelModule binds derived key material into whatever the underlying
// crypto implementation needs as working context - a set of setters the
// policy can act on however it likes; this package only calls them in the
// prescribed order.
type ChannelModule interface {
	NewContext() error
	SetLocalSymSigningKey(key []byte) error
	SetLocalSymEncryptingKey(key []byte) error
	SetLocalSymIv(iv []byte) error
	SetRemoteSymSigningKey(key []byte) error
	SetRemoteSymEncryptingKey(key []byte) error
	SetRemoteSymIv(iv []byte) error
	CompareCertificate(certificate []byte) bool
}

// SecurityPolicy is the pluggable crypto capability: a bundle of
// asymmetric and symmetric algorithms plus the URI identifying them on the
// wire.
type SecurityPolicy interface {
	URI() string
	Asymmetric() AsymmetricModule
	Symmetric() SymmetricModule
	NewChannelModule() ChannelModule
	SymmetricKeyLength() int
	SymmetricBlockSize() int
	SymmetricSignatureSize() int
}

// Registry resolves a security policy URI to an implementation, the way a
// NodeStore resolves a NodeId to a node - both are pluggable lookups the
// core consumes without owning.
type Registry interface {
	Lookup(uri string) (SecurityPolicy, bool)
}
