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
	"crypto/hmac"
	"hash"
)

// PSHA implements the P_SHA pseudo-random function used
// for deriving symmetric key material from the OPN handshake's client and
// server nonces: P_SHA(secret, seed) = HMAC_hash(secret, A(1) || seed) ||
// HMAC_hash(secret, A(2) || seed) || ..., where A(0) = seed and
// A(i) = HMAC_hash(secret, A(i-1)). newHash selects the policy's digest
// (e.g. sha1.New for Basic256Sha256's legacy PRF, sha256.New for the
// Aes256Sha256RsaPss family); this package never hardcodes one.
// HashFunc constructs a digest, e.g. sha1.New or sha256.New.
type HashFunc func() hash.Hash

func PSHA(newHash HashFunc, secret, seed []byte, length int) []byte {
	out := make([]byte, 0, length)
	a := seed
	for len(out) < length {
		mac := hmac.New(newHash, secret)
		mac.Write(a)
		a = mac.Sum(nil)

		mac = hmac.New(newHash, secret)
		mac.Write(a)
		mac.Write(seed)
		out = append(out, mac.Sum(nil)...)
	}
	return out[:length]
}

// DerivedKeys is the per-direction key material a security policy produces
// from PSHA: a signing key, an encrypting key, and an IV.
type DerivedKeys struct {
	SigningKey    []byte
	EncryptingKey []byte
	IV            []byte
}

// DeriveKeys splits PSHA(secret, seed, ...) output into the three key
// parts, each sized by the policy (signingKeyLen, encryptingKeyLen, ivLen).
func DeriveKeys(newHash HashFunc, secret, seed []byte, signingKeyLen, encryptingKeyLen, ivLen int) DerivedKeys {
	total := signingKeyLen + encryptingKeyLen + ivLen
	raw := PSHA(newHash, secret, seed, total)
	return DerivedKeys{
		SigningKey:    raw[:signingKeyLen],
		EncryptingKey: raw[signingKeyLen : signingKeyLen+encryptingKeyLen],
		IV:            raw[signingKeyLen+encryptingKeyLen:],
	}
}
