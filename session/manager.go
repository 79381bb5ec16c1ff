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

package session

import (
	"sync"
	"time"

	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// Manager owns every live Session, keyed by authenticationToken (the value
// every subsequent service request carries to identify its session, per
// the OPC UA RequestHeader). It is driven by the EventLoop: CreateSession,
// Close and SweepExpired are the entry points that change the sessions map.
type Manager struct {
	mu       sync.Mutex
	sessions map[ua.NodeIdKey]*Session
	log      *corelog.Logger
	nextNum  uint32
}

// NewManager returns an empty Manager.
func NewManager(log *corelog.Logger) *Manager {
	return &Manager{
		sessions: make(map[ua.NodeIdKey]*Session),
		log:      log,
	}
}

// CreateSession allocates a new Session bound to channelID. namespace is the server's own namespace index, used to
// mint the sessionId/authenticationToken NodeIds.
func (m *Manager) CreateSession(namespace uint16, timeout time.Duration, nonce []byte, channelID uint32, clk Clock) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNum++
	sessionID := ua.NewNumericNodeId(namespace, m.nextNum)
	m.nextNum++
	authToken := ua.NewNumericNodeId(namespace, m.nextNum)

	s := New(sessionID, authToken, timeout, nonce, channelID, clk)
	m.sessions[authToken.Key()] = s
	if m.log != nil {
		m.log.Log(corelog.Info, corelog.CategorySession, "created session %s on channel %d", sessionID, channelID)
	}
	return s
}

// Lookup finds the session owning authToken.
func (m *Manager) Lookup(authToken ua.NodeId) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[authToken.Key()]
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.SessionIDInvalid, "no session for authentication token %s", authToken)
	}
	return s, nil
}

// Close removes a session from the manager and returns the subscription
// ids it owned, per the protocol's CloseSession. If deleteSubscriptions
// is false the caller is expected to leave the owned subscriptions in
// place for a later TransferSubscriptions rather than deleting them; this
// Manager only tracks ownership, so both cases return the same id list and
// the distinction is acted on by whoever owns the SubscriptionEngine.
func (m *Manager) Close(authToken ua.NodeId, deleteSubscriptions bool) ([]uint32, error) {
	m.mu.Lock()
	s, ok := m.sessions[authToken.Key()]
	if ok {
		delete(m.sessions, authToken.Key())
	}
	m.mu.Unlock()
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.SessionIDInvalid, "no session for authentication token %s", authToken)
	}
	owned := s.Close()
	if m.log != nil {
		m.log.Log(corelog.Info, corelog.CategorySession, "closed session %s (delete subscriptions: %v)", s.SessionID, deleteSubscriptions)
	}
	return owned, nil
}

// SweepExpired closes every session inactive beyond its timeout and
// returns, per session, the authentication token and the subscription ids
// it owned.
func (m *Manager) SweepExpired() []ExpiredSession {
	m.mu.Lock()
	var expired []ua.NodeId
	for _, s := range m.sessions {
		if s.TimedOut() {
			expired = append(expired, s.AuthenticationToken)
		}
	}
	m.mu.Unlock()

	out := make([]ExpiredSession, 0, len(expired))
	for _, tok := range expired {
		owned, err := m.Close(tok, false)
		if err != nil {
			continue
		}
		out = append(out, ExpiredSession{AuthenticationToken: tok, Subscriptions: owned})
	}
	return out
}

// ExpiredSession describes a session purged by SweepExpired.
type ExpiredSession struct {
	AuthenticationToken ua.NodeId
	Subscriptions       []uint32
}

// ChannelClosed detaches every session currently bound to channelID without
// closing them, so a later ActivateSession-based transfer can rebind them
//.
func (m *Manager) ChannelClosed(channelID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if bound, ok := s.BoundChannel(); ok && bound == channelID {
			s.mu.Lock()
			s.channelBound = false
			s.mu.Unlock()
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
