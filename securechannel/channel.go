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
	"time"

	"github.com/open62541-go/opcua-core/internal/uaerrors"
)

// SequenceNumberWrapAt is the sequence number at which the next increment
// restarts at 1 instead of continuing to UINT32_MAX.
const SequenceNumberWrapAt uint32 = 4294966271

// Channel is one SecureChannel: the state machine plus the key schedule and
// sequence-number bookkeeping of the protocol.
type Channel struct {
	ChannelID uint32
	Role      Role
	Policy    SecurityPolicy
	Clock     Clock

	state State

	CurrentToken *Token
	NextToken    *Token // populated during Renewing, not yet used for outbound

	// previousToken is the token a completed renewal superseded; it stays
	// valid for inbound traffic until previousExpires, then is dropped.
	previousToken   *Token
	previousExpires time.Time

	SequenceNumberOut    uint32
	lastSequenceNumberIn uint32
	seenFirstInbound     bool

	requestIDCounter uint32
	openExchanges    map[uint32]struct{}

	RemoteCertThumbprint []byte
	RoundTripEstimate    time.Duration
}

// NewChannel returns a fresh Channel in state Fresh.
func NewChannel(channelID uint32, role Role, policy SecurityPolicy, clk Clock) *Channel {
	if clk == nil {
		clk = SystemClock{}
	}
	return &Channel{
		ChannelID:         channelID,
		Role:              role,
		Policy:            policy,
		Clock:             clk,
		state:             Fresh,
		openExchanges:     make(map[uint32]struct{}),
		RoundTripEstimate: 50 * time.Millisecond,
	}
}

// State returns the channel's current state.
func (c *Channel) State() State { return c.state }

func (c *Channel) setState(to State) error {
	if !transition(c.state, to) {
		return uaerrors.Wrap(uaerrors.InvalidChannelState, "channel %d: illegal transition %s -> %s", c.ChannelID, c.state, to)
	}
	c.state = to
	return nil
}

// Open performs the first OPN handshake: derives key material from the two
// nonces and the negotiated lifetime, and moves Fresh -> Opening -> Open.
func (c *Channel) Open(tokenID uint32, clientNonce, serverNonce []byte, lifetime time.Duration, newHash HashFunc, keyLen, ivLen int) error {
	if c.state == Fresh {
		if err := c.setState(Opening); err != nil {
			return err
		}
	}
	local, remote := deriveChannelKeys(c.Policy, clientNonce, serverNonce, c.Role, newHash, keyLen, ivLen)
	c.CurrentToken = &Token{
		TokenID:   tokenID,
		CreatedAt: c.Clock.Now(),
		Lifetime:  lifetime,
		Local:     local,
		Remote:    remote,
	}
	return c.setState(Open)
}

// Renew processes a new OPN that arrives while Open: it derives the next generation of keys but does not yet
// make them active for outbound traffic - both old and new tokens are
// accepted inbound until the remote end is first observed using the new
// tokenId (see PromoteToken).
func (c *Channel) Renew(tokenID uint32, clientNonce, serverNonce []byte, lifetime time.Duration, newHash HashFunc, keyLen, ivLen int) error {
	if c.state != Open {
		return uaerrors.Wrap(uaerrors.InvalidChannelState, "channel %d: renew requires Open, have %s", c.ChannelID, c.state)
	}
	local, remote := deriveChannelKeys(c.Policy, clientNonce, serverNonce, c.Role, newHash, keyLen, ivLen)
	c.NextToken = &Token{
		TokenID:   tokenID,
		CreatedAt: c.Clock.Now(),
		Lifetime:  lifetime,
		Local:     local,
		Remote:    remote,
	}
	return c.setState(Renewing)
}

// PromoteToken is called when an inbound MSG is observed using
// NextToken.TokenID: it atomically promotes NextToken to CurrentToken
// (exactly one of the two is ever active for outbound traffic) and
// returns to Open. The superseded token is retained for inbound-only
// traffic until its grace deadline: the renewal grace window measured
// from promotion, but never past the token's own ExpiresAt.
func (c *Channel) PromoteToken() error {
	if c.state != Renewing || c.NextToken == nil {
		return uaerrors.Wrap(uaerrors.InvalidChannelState, "channel %d: no pending token to promote", c.ChannelID)
	}
	old := c.CurrentToken
	c.CurrentToken = c.NextToken
	c.NextToken = nil
	if old != nil {
		deadline := c.Clock.Now().Add(GraceWindow(old.Lifetime, c.RoundTripEstimate))
		if hard := old.ExpiresAt(c.RoundTripEstimate); hard.Before(deadline) {
			deadline = hard
		}
		c.previousToken = old
		c.previousExpires = deadline
	}
	return c.setState(Open)
}

// TokenForID returns the token matching tokenID: CurrentToken, NextToken,
// or the just-superseded token while its grace deadline has not passed.
// Anything else - including the superseded token once the grace window
// has elapsed - is SecureChannelTokenUnknown.
func (c *Channel) TokenForID(tokenID uint32) (*Token, error) {
	if c.CurrentToken != nil && c.CurrentToken.TokenID == tokenID {
		return c.CurrentToken, nil
	}
	if c.NextToken != nil && c.NextToken.TokenID == tokenID {
		return c.NextToken, nil
	}
	if c.previousToken != nil && c.previousToken.TokenID == tokenID {
		if c.Clock.Now().Before(c.previousExpires) {
			return c.previousToken, nil
		}
		c.previousToken = nil
	}
	return nil, uaerrors.Wrap(uaerrors.SecureChannelTokenUnknown, "channel %d: token %d not recognized", c.ChannelID, tokenID)
}

// NextOutboundSequenceNumber returns the next sequence number to stamp on
// an outgoing chunk, wrapping per SequenceNumberWrapAt.
func (c *Channel) NextOutboundSequenceNumber() uint32 {
	if c.SequenceNumberOut >= SequenceNumberWrapAt {
		c.SequenceNumberOut = 1
	} else {
		c.SequenceNumberOut++
	}
	return c.SequenceNumberOut
}

// ValidateInboundSequence enforces strictly-increasing sequence numbers
// within a token, honoring the wrap rule: once the previous value was at or
// past SequenceNumberWrapAt, a small next value is accepted as the
// post-wrap continuation rather than rejected as a regression.
func (c *Channel) ValidateInboundSequence(seq uint32) error {
	if !c.seenFirstInbound {
		c.seenFirstInbound = true
		c.lastSequenceNumberIn = seq
		return nil
	}
	if seq > c.lastSequenceNumberIn {
		c.lastSequenceNumberIn = seq
		return nil
	}
	if c.lastSequenceNumberIn >= SequenceNumberWrapAt {
		c.lastSequenceNumberIn = seq
		return nil
	}
	return uaerrors.Wrap(uaerrors.SequenceNumberInvalid, "channel %d: sequence number %d did not increase past %d", c.ChannelID, seq, c.lastSequenceNumberIn)
}

// NextRequestID allocates a new outbound requestId and tracks it as an open
// exchange until CompleteRequest is called.
func (c *Channel) NextRequestID() uint32 {
	c.requestIDCounter++
	c.openExchanges[c.requestIDCounter] = struct{}{}
	return c.requestIDCounter
}

// HasOpenExchange reports whether requestID corresponds to an exchange
// this channel is still waiting on a response for.
func (c *Channel) HasOpenExchange(requestID uint32) bool {
	_, ok := c.openExchanges[requestID]
	return ok
}

// CompleteRequest marks requestID's exchange as closed.
func (c *Channel) CompleteRequest(requestID uint32) {
	delete(c.openExchanges, requestID)
}

// TrackInboundRequest registers requestID as an open exchange from the
// receiving end (the server side tracking a client's in-flight request so
// a later response can be matched and so CLO/abort can cancel it).
func (c *Channel) TrackInboundRequest(requestID uint32) {
	c.openExchanges[requestID] = struct{}{}
}

// Close transitions the channel toward Closed, cancelling every open
// exchange.
func (c *Channel) Close() error {
	if c.state == Closed {
		return nil
	}
	if c.state != Closing {
		if err := c.setState(Closing); err != nil {
			return err
		}
	}
	c.openExchanges = make(map[uint32]struct{})
	return c.setState(Closed)
}
