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
	"github.com/open62541-go/opcua-core/internal/uaerrors"
)

// SecureOutbound pads body to the policy's symmetric block size, signs
// header||paddedBody, then encrypts paddedBody||signature
// (sign-then-encrypt). header is never itself encrypted; the caller
// prepends it, unmodified, to the returned ciphertext before sending.
func (c *Channel) SecureOutbound(header, body []byte) ([]byte, error) {
	token := c.CurrentToken
	if token == nil {
		return nil, uaerrors.Wrap(uaerrors.InvalidChannelState, "channel %d: no active token", c.ChannelID)
	}
	sym := c.Policy.Symmetric()

	padded := padToBlockSize(body, sym.BlockSize())
	toSign := concat(header, padded)
	sig, err := sym.Sign(token.Local.SigningKey, toSign)
	if err != nil {
		return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "sign: %v", err)
	}
	toEncrypt := concat(padded, sig)
	ciphertext, err := sym.Encrypt(token.Local.EncryptingKey, token.Local.IV, toEncrypt)
	if err != nil {
		return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "encrypt: %v", err)
	}
	return ciphertext, nil
}

// VerifyInbound decrypts ciphertext with tokenID's remote keys, checks
// padding, verifies the signature over header||paddedBody, and returns the
// original body with padding and signature stripped. tokenID lets the
// caller pass whichever of CurrentToken/NextToken matched the chunk's
// symmetric security header.
func (c *Channel) VerifyInbound(tokenID uint32, header, ciphertext []byte) ([]byte, error) {
	token, err := c.TokenForID(tokenID)
	if err != nil {
		return nil, err
	}
	sym := c.Policy.Symmetric()

	plaintext, err := sym.Decrypt(token.Remote.EncryptingKey, token.Remote.IV, ciphertext)
	if err != nil {
		return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "decrypt: %v", err)
	}
	sigSize := sym.SignatureSize()
	if len(plaintext) < sigSize {
		return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "decrypted chunk shorter than signature")
	}
	paddedBody, sig := plaintext[:len(plaintext)-sigSize], plaintext[len(plaintext)-sigSize:]

	toVerify := concat(header, paddedBody)
	if err := sym.Verify(token.Remote.SigningKey, toVerify, sig); err != nil {
		return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "verify: %v", err)
	}

	body, err := stripPadding(paddedBody, sym.BlockSize())
	if err != nil {
		return nil, err
	}
	return body, nil
}

// padToBlockSize appends OPC UA-style padding: if blockSize > 1, pad with
// (padCount-1) repeated padCount times so the total length is a multiple
// of blockSize; a length already aligned still gets one full block of
// padding so the padding is always unambiguously removable. blockSize <= 1
// (stream ciphers, or policies with no symmetric encryption) adds nothing.
func padToBlockSize(body []byte, blockSize int) []byte {
	if blockSize <= 1 {
		return append([]byte(nil), body...)
	}
	padCount := blockSize - (len(body) % blockSize)
	out := make([]byte, len(body)+padCount)
	copy(out, body)
	for i := len(body); i < len(out); i++ {
		out[i] = byte(padCount - 1)
	}
	return out
}

// stripPadding reverses padToBlockSize, validating every padding byte
// matches the declared count rather than trusting only the last byte.
func stripPadding(padded []byte, blockSize int) ([]byte, error) {
	if blockSize <= 1 {
		return padded, nil
	}
	if len(padded) == 0 {
		return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "empty padded body")
	}
	padCount := int(padded[len(padded)-1]) + 1
	if padCount > len(padded) || padCount > blockSize {
		return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "invalid padding count %d", padCount)
	}
	for i := len(padded) - padCount; i < len(padded); i++ {
		if int(padded[i]) != padCount-1 {
			return nil, uaerrors.Wrap(uaerrors.SecurityChecksFailed, "corrupt padding byte at offset %d", i)
		}
	}
	return padded[:len(padded)-padCount], nil
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
