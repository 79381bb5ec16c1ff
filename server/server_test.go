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
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/internal/config"
	"github.com/open62541-go/opcua-core/internal/stats"
	"github.com/open62541-go/opcua-core/pubsub"
	"github.com/open62541-go/opcua-core/securechannel"
	"github.com/open62541-go/opcua-core/session"
)

// stubPolicy is a SecurityPolicy whose methods are never exercised by these
// tests - OpenChannel only needs something satisfying the interface to hand
// to securechannel.NewChannel, which doesn't touch it until Open().
type stubPolicy struct{}

func (stubPolicy) URI() string                                   { return "stub" }
func (stubPolicy) Asymmetric() securechannel.AsymmetricModule     { return nil }
func (stubPolicy) Symmetric() securechannel.SymmetricModule       { return nil }
func (stubPolicy) NewChannelModule() securechannel.ChannelModule  { return nil }
func (stubPolicy) SymmetricKeyLength() int                        { return 32 }
func (stubPolicy) SymmetricBlockSize() int                        { return 16 }
func (stubPolicy) SymmetricSignatureSize() int                    { return 32 }

type stubRegistry struct{}

func (stubRegistry) Lookup(string) (securechannel.SecurityPolicy, bool) { return stubPolicy{}, true }

type fakeStream struct{}

func (fakeStream) Write(p []byte) (int, error) { return len(p), nil }
func (fakeStream) Read(p []byte) (int, error)   { return 0, nil }
func (fakeStream) Close() error                 { return nil }

func testConfig() config.Config {
	return config.Config{
		StaticConfig: config.StaticConfig{
			EndpointURL:      "opc.tcp://test:4840",
			EventLoopWorkers: 0,
		},
		DynamicConfig: config.Default(),
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(testConfig(), nil, stats.New(), nil, stubRegistry{}, nil)
}

func TestNewWiresEveryCollaborator(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s.Loop)
	require.NotNil(t, s.Sessions)
	require.NotNil(t, s.Dispatch)
	require.NotNil(t, s.Engine)
	require.NotNil(t, s.CodecContext())
}

func TestOpenAndCloseChannel(t *testing.T) {
	s := newTestServer(t)
	ch := s.OpenChannel(stubPolicy{}, fakeStream{})
	require.NotNil(t, ch)

	got, ok := s.Channel(ch.Secure.ChannelID)
	require.True(t, ok)
	require.Same(t, ch, got)

	require.NoError(t, s.CloseChannel(ch.Secure.ChannelID))
	_, ok = s.Channel(ch.Secure.ChannelID)
	require.False(t, ok)

	require.Error(t, s.CloseChannel(ch.Secure.ChannelID))
}

func TestCreateActivateAndCloseSessionFlow(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleCreateSession(nil, CreateSessionRequest{
		ClientNonce:    []byte("0123456789abcdef"),
		SessionTimeout: 30 * time.Second,
		ChannelID:      1,
	})
	require.NoError(t, err)
	created := resp.(CreateSessionResponse)
	require.NotEmpty(t, created.ServerNonce)

	sess, err := s.Sessions.Lookup(created.AuthenticationToken)
	require.NoError(t, err)
	require.Equal(t, session.Created, sess.State())

	_, err = s.handleActivateSession(sess, ActivateSessionRequest{
		Identity:  session.IdentityToken{Kind: session.IdentityAnonymous},
		ChannelID: 1,
	})
	require.NoError(t, err)
	require.Equal(t, session.Activated, sess.State())

	subResp, err := s.handleCreateSubscription(sess, CreateSubscriptionRequest{
		PublishingInterval: 10 * time.Millisecond,
		MaxKeepAliveCount:  3,
		LifetimeCount:      10,
		Priority:           0,
	})
	require.NoError(t, err)
	sub := subResp.(CreateSubscriptionResponse)
	require.Equal(t, s.Config.MinPublishingInterval, sub.PublishingInterval)
	require.Equal(t, 1, s.Engine.Count())

	_, err = s.handleCloseSession(sess, CloseSessionRequest{DeleteSubscriptions: true})
	require.NoError(t, err)
	require.Equal(t, 0, s.Engine.Count())
}

func TestAnonymousOnlyValidatorRejectsUserName(t *testing.T) {
	v := anonymousOnlyValidator{}
	_, err := v.ValidateIdentity(session.IdentityToken{Kind: session.IdentityAnonymous})
	require.NoError(t, err)

	_, err = v.ValidateIdentity(session.IdentityToken{Kind: session.IdentityUserName, UserName: "alice"})
	require.Error(t, err)
}

// blockingDatagram blocks in Recv until Close unblocks it, the shape a
// real multicast socket presents to AddReaderGroup's receive goroutine.
type blockingDatagram struct {
	closed chan struct{}
	once   sync.Once
}

func newBlockingDatagram() *blockingDatagram {
	return &blockingDatagram{closed: make(chan struct{})}
}

func (d *blockingDatagram) Send([]byte) error { return nil }
func (d *blockingDatagram) Recv() ([]byte, error) {
	<-d.closed
	return nil, io.EOF
}
func (d *blockingDatagram) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func TestAddReaderGroupStopsOnContextCancel(t *testing.T) {
	s := newTestServer(t)
	dg := newBlockingDatagram()
	ctx, cancel := context.WithCancel(context.Background())

	g := pubsub.NewReaderGroup(1, s.CodecContext(), nil, nil)
	s.AddReaderGroup(ctx, g, dg)

	cancel()
	select {
	case <-dg.closed:
	case <-time.After(time.Second):
		t.Fatal("datagram was not closed after context cancel")
	}
}

func TestShutdownTearsDownLeavesFirst(t *testing.T) {
	s := newTestServer(t)
	ch := s.OpenChannel(stubPolicy{}, fakeStream{})
	sub, err := s.Engine.CreateSubscription(10*time.Millisecond, 3, 10, 0, 10)
	require.NoError(t, err)

	s.Shutdown()

	require.Equal(t, 0, s.Engine.Count())
	_, ok := s.Channel(ch.Secure.ChannelID)
	require.False(t, ok)
	_, err = s.Engine.Republish(sub.ID, 1)
	require.Error(t, err)
}
