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

// Package session implements the OPC UA Session layer:
// user identity, session timeout, and service dispatch by the NodeId of
// the request's type description. A Session is bound to at most one
// SecureChannel at a time; ActivateSession may transfer it to another.
package session

import (
	"sync"
	"time"

	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// State is the lifecycle state of a Session.
type State int

// States a Session moves through.
const (
	Created State = iota
	Activated
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Activated:
		return "Activated"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Identity is a validated user identity, the result of checking an identity
// token against the SecurityPolicy's user-token policy.
type Identity struct {
	Kind     IdentityKind
	UserName string // set for IdentityUserName
}

// IdentityKind names the supported identity token kinds.
type IdentityKind int

// Identity kinds.
const (
	IdentityAnonymous IdentityKind = iota
	IdentityUserName
	IdentityX509
	IdentityIssued
)

// Session is the authenticated context for service invocations: bound to at most one SecureChannel at a time, holding its
// own subscription-id set, continuation points and activation nonce.
type Session struct {
	mu sync.Mutex

	SessionID           ua.NodeId
	AuthenticationToken ua.NodeId
	User                Identity
	Timeout             time.Duration
	Nonce               []byte

	state         State
	lastActivity  time.Time
	channelID     uint32
	channelBound  bool
	subscriptions map[uint32]struct{}
	continuation  map[string][]byte
	opCounts      map[OperationKind]int
	clock         Clock
}

// Clock is the monotonic time source a Session uses for lastActivity and
// timeout comparisons, the same capability securechannel.Clock names -
// kept as its own interface here so session doesn't import securechannel
// for a one-method contract.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now().
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// OperationKind names the service categories the per-session
// quotas are tracked against.
type OperationKind int

// Operation kinds with independently enforced quotas.
const (
	OpRead OperationKind = iota
	OpWrite
	OpBrowse
	OpHistoryRead
	OpCall
)

// New creates a Session bound to channelID, in state Created.
func New(sessionID, authToken ua.NodeId, timeout time.Duration, nonce []byte, channelID uint32, clk Clock) *Session {
	if clk == nil {
		clk = SystemClock{}
	}
	return &Session{
		SessionID:           sessionID,
		AuthenticationToken: authToken,
		Timeout:             timeout,
		Nonce:               nonce,
		state:               Created,
		lastActivity:        clk.Now(),
		channelID:           channelID,
		channelBound:        true,
		subscriptions:       make(map[uint32]struct{}),
		continuation:        make(map[string][]byte),
		opCounts:            make(map[OperationKind]int),
		clock:               clk,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate validates identity against policy and moves the session to
// Activated, binding it to channelID. Activate is used both for the first
// activation and for a later transfer to a different channel, since both
// are "bind this session to this channel after validating an identity
// token".
func (s *Session) Activate(policy PolicyValidator, token IdentityToken, channelID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return uaerrors.Wrap(uaerrors.SessionClosed, "session %s is closed", s.SessionID)
	}
	identity, err := policy.ValidateIdentity(token)
	if err != nil {
		return uaerrors.Wrap(uaerrors.UserAccessDenied, "identity validation failed: %v", err)
	}
	s.User = identity
	s.state = Activated
	s.channelID = channelID
	s.channelBound = true
	s.lastActivity = s.clock.Now()
	return nil
}

// PolicyValidator validates an identity token against a SecurityPolicy's
// user-token policy.
type PolicyValidator interface {
	ValidateIdentity(token IdentityToken) (Identity, error)
}

// IdentityToken is the wire identity token carried by ActivateSession:
// anonymous, username/password, X.509 certificate, or an issued token
//. Exactly one of the fields beyond Kind is meaningful.
type IdentityToken struct {
	Kind     IdentityKind
	UserName string
	Password []byte
	Certificate []byte
	IssuedData  []byte
}

// BoundChannel returns the channel id this session is currently bound to
// and whether it is bound at all (a newly-created but never-activated
// session is bound to its CreateSession channel).
func (s *Session) BoundChannel() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID, s.channelBound
}

// Touch records activity at the current time; the dispatcher calls it
// ahead of every handled request.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.clock.Now()
}

// TimedOut reports whether the session has been inactive longer than
// Timeout.
func (s *Session) TimedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return false
	}
	return s.clock.Now().Sub(s.lastActivity) > s.Timeout
}

// CheckQuota enforces the protocol's per-session operation quotas: it
// increments the counter for kind and returns TooManyOperations if max is
// exceeded. max <= 0 means unbounded.
func (s *Session) CheckQuota(kind OperationKind, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opCounts[kind]++
	if max > 0 && s.opCounts[kind] > max {
		return uaerrors.Wrap(uaerrors.TooManyOperations, "session %s: quota exceeded for operation %d", s.SessionID, kind)
	}
	return nil
}

// AddSubscription records ownership of a subscription id.
func (s *Session) AddSubscription(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[id] = struct{}{}
}

// RemoveSubscription drops ownership of a subscription id (deletion, or
// transfer away to another session).
func (s *Session) RemoveSubscription(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, id)
}

// Subscriptions returns the ids of every subscription this session owns.
func (s *Session) Subscriptions() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint32, 0, len(s.subscriptions))
	for id := range s.subscriptions {
		out = append(out, id)
	}
	return out
}

// SetContinuationPoint stores a Browse/HistoryRead continuation point's
// opaque resume state, keyed by the point's wire identifier.
func (s *Session) SetContinuationPoint(id string, state []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continuation[id] = state
}

// ContinuationPoint retrieves and clears a previously stored continuation
// point (a continuation point is consumed on use, per the OPC UA Browse
// semantics this session layer assumes of its caller).
func (s *Session) ContinuationPoint(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.continuation[id]
	delete(s.continuation, id)
	return v, ok
}

// Close transitions the session to Closed and returns the ids of the
// subscriptions it owned, leaving the caller (the Manager) to decide
// whether they are deleted outright or detached for possible transfer.
func (s *Session) Close() (ownedSubscriptions []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Closed
	s.channelBound = false
	out := make([]uint32, 0, len(s.subscriptions))
	for id := range s.subscriptions {
		out = append(out, id)
	}
	s.subscriptions = make(map[uint32]struct{})
	return out
}
