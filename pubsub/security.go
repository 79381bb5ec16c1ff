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

package pubsub

import (
	"github.com/open62541-go/opcua-core/internal/uaerrors"
)

// SecurityKey is one entry of a SecurityGroup's rotating key schedule,
// identified the way a SecurityTokenManager identifies
// SecureChannel tokens: by a monotonically increasing id rather than by
// value, so past and future keys can be referenced without copying them
// around.
type SecurityKey struct {
	KeyID          uint32
	SigningKey     []byte
	EncryptingKey  []byte
	KeyNonce       []byte
}

// SecurityGroup holds the rotating symmetric key set a WriterGroup/
// ReaderGroup pair uses to sign/encrypt NetworkMessages. It keeps a bounded window of past and future
// keys so readers that fall behind or receivers that get ahead of a
// publisher's rotation can still validate a message.
type SecurityGroup struct {
	SecurityPolicyURI string
	MaxPastKeys       int
	MaxFutureKeys     int

	currentKeyID uint32
	keys         map[uint32]SecurityKey
}

// NewSecurityGroup returns an empty SecurityGroup. maxPastKeys/maxFutureKeys
// <= 0 fall back to 1.
func NewSecurityGroup(policyURI string, maxPastKeys, maxFutureKeys int) *SecurityGroup {
	if maxPastKeys <= 0 {
		maxPastKeys = 1
	}
	if maxFutureKeys <= 0 {
		maxFutureKeys = 1
	}
	return &SecurityGroup{
		SecurityPolicyURI: policyURI,
		MaxPastKeys:       maxPastKeys,
		MaxFutureKeys:     maxFutureKeys,
		keys:              make(map[uint32]SecurityKey),
	}
}

// SetCurrentKey installs key as the active signing/encrypting key and
// evicts any retained key more than MaxPastKeys behind it.
func (g *SecurityGroup) SetCurrentKey(key SecurityKey) {
	g.keys[key.KeyID] = key
	g.currentKeyID = key.KeyID
	g.evictOutOfWindow()
}

// AddFutureKey installs a key ahead of the current one (pre-distributed so
// readers can validate messages the moment a publisher rotates to it).
func (g *SecurityGroup) AddFutureKey(key SecurityKey) {
	if key.KeyID <= g.currentKeyID {
		return
	}
	if int(key.KeyID-g.currentKeyID) > g.MaxFutureKeys {
		return
	}
	g.keys[key.KeyID] = key
}

func (g *SecurityGroup) evictOutOfWindow() {
	for id := range g.keys {
		if id < g.currentKeyID && int(g.currentKeyID-id) > g.MaxPastKeys {
			delete(g.keys, id)
		}
		if id > g.currentKeyID && int(id-g.currentKeyID) > g.MaxFutureKeys {
			delete(g.keys, id)
		}
	}
}

// CurrentKey returns the active key used to sign/encrypt outgoing
// NetworkMessages.
func (g *SecurityGroup) CurrentKey() (SecurityKey, error) {
	k, ok := g.keys[g.currentKeyID]
	if !ok {
		return SecurityKey{}, uaerrors.Wrap(uaerrors.SecurityPolicyRejected, "security group %q has no current key", g.SecurityPolicyURI)
	}
	return k, nil
}

// Key resolves a specific key id for validating an inbound message whose
// NetworkMessageHeader names the key it was produced with. Keys outside the retained past/future window return
// BadSecurityPolicyRejected, matching CloseSecureChannel-adjacent security
// failures elsewhere in this codebase.
func (g *SecurityGroup) Key(keyID uint32) (SecurityKey, error) {
	k, ok := g.keys[keyID]
	if !ok {
		return SecurityKey{}, uaerrors.Wrap(uaerrors.SecurityPolicyRejected, "security group %q: key %d not in retained window", g.SecurityPolicyURI, keyID)
	}
	return k, nil
}

// CurrentKeyID reports the active key's id, embedded in outgoing
// NetworkMessage security headers so receivers know which key to use.
func (g *SecurityGroup) CurrentKeyID() uint32 { return g.currentKeyID }

// KeyCount reports how many keys are currently retained, for diagnostics.
func (g *SecurityGroup) KeyCount() int { return len(g.keys) }
