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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

type allowAllPolicy struct{}

func (allowAllPolicy) ValidateIdentity(token IdentityToken) (Identity, error) {
	return Identity{Kind: token.Kind, UserName: token.UserName}, nil
}

func TestSessionActivateBindsChannel(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	mgr := NewManager(nil)
	s := mgr.CreateSession(1, 10*time.Second, []byte("nonce"), 7, clk)

	require.Equal(t, Created, s.State())
	err := s.Activate(allowAllPolicy{}, IdentityToken{Kind: IdentityUserName, UserName: "alice"}, 9)
	require.NoError(t, err)
	require.Equal(t, Activated, s.State())

	ch, bound := s.BoundChannel()
	require.True(t, bound)
	require.Equal(t, uint32(9), ch)
}

func TestSessionTimeout(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	mgr := NewManager(nil)
	s := mgr.CreateSession(1, 5*time.Second, nil, 1, clk)
	require.False(t, s.TimedOut())

	clk.now = clk.now.Add(6 * time.Second)
	require.True(t, s.TimedOut())

	s.AddSubscription(42)
	expired := mgr.SweepExpired()
	require.Len(t, expired, 1)
	require.Equal(t, []uint32{42}, expired[0].Subscriptions)
	require.Equal(t, Closed, s.State())
}

func TestSessionQuotaEnforced(t *testing.T) {
	s := New(ua.NodeId{}, ua.NodeId{}, time.Minute, nil, 1, nil)
	require.NoError(t, s.CheckQuota(OpRead, 2))
	require.NoError(t, s.CheckQuota(OpRead, 2))
	err := s.CheckQuota(OpRead, 2)
	require.Error(t, err)
	require.True(t, uaerrors.Is(err, uaerrors.TooManyOperations))
}

func TestDispatchRequiresActivation(t *testing.T) {
	s := New(ua.NodeId{}, ua.NodeId{}, time.Minute, nil, 1, nil)
	d := NewDispatcher()
	typeID := ua.NewNumericNodeId(0, 1)
	d.Register(typeID, Entry{
		RequiresActivation: true,
		Handler: func(s *Session, req interface{}) (interface{}, error) {
			return "ok", nil
		},
	})

	_, err := d.Dispatch(s, typeID, nil)
	require.Error(t, err)
	require.True(t, uaerrors.Is(err, uaerrors.SessionNotActivated))

	err2 := s.Activate(allowAllPolicy{}, IdentityToken{Kind: IdentityAnonymous}, 1)
	require.NoError(t, err2)

	resp, err := d.Dispatch(s, typeID, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
}
