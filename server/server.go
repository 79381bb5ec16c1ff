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
	"sync"
	"time"

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/chunk"
	"github.com/open62541-go/opcua-core/eventloop"
	"github.com/open62541-go/opcua-core/internal/config"
	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/stats"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/pubsub"
	"github.com/open62541-go/opcua-core/securechannel"
	"github.com/open62541-go/opcua-core/session"
	"github.com/open62541-go/opcua-core/subscription"
	"github.com/open62541-go/opcua-core/ua"
)

// Server is the top-level owner of everything: the Server object owns
// channels, sessions, subscriptions and PubSub groups, and is itself
// driven by the EventLoop. One struct glues the config, the loop, the
// worker pool and every protocol layer's store together.
type Server struct {
	Config config.Config
	Log    *corelog.Logger
	Stats  *stats.Metrics

	NodeStore NodeStore
	Policies  securechannel.Registry
	Types     binary.TypeRegistry

	Loop *eventloop.Loop

	mu       sync.Mutex
	channels map[uint32]*Channel
	nextChID uint32

	Sessions   *session.Manager
	Dispatch   *session.Dispatcher
	Engine     *subscription.Engine
	codecCtx   *binary.Context

	writerGroups map[uint16]*pubsub.WriterGroup
	readerGroups map[uint16]*pubsub.ReaderGroup

	sweepTimer eventloop.TimerID
}

// Channel pairs a securechannel.Channel with the chunk-layer state
// (Assembler, negotiated Limits) and the transport it rides on; the
// inbound data flow treats them as one unit per connection.
type Channel struct {
	Secure    *securechannel.Channel
	Assembler *chunk.Assembler
	Limits    chunk.Limits
	Transport ByteStream
}

// New constructs a Server. typeRegistry resolves ExtensionObject binary
// encodings for the codec; nodeStore and policies are
// the external capabilities the protocol carves out of this module's
// scope.
func New(cfg config.Config, log *corelog.Logger, metrics *stats.Metrics, nodeStore NodeStore, policies securechannel.Registry, typeRegistry binary.TypeRegistry) *Server {
	if metrics == nil {
		metrics = stats.New()
	}
	codecCtx := &binary.Context{
		MaxArrayLength: binary.DefaultMaxArrayLength,
		MaxMessageSize: cfg.MaxMessageSize,
		Types:          typeRegistry,
	}
	s := &Server{
		Config:       cfg,
		Log:          log,
		Stats:        metrics,
		NodeStore:    nodeStore,
		Policies:     policies,
		Types:        typeRegistry,
		channels:     make(map[uint32]*Channel),
		Sessions:     session.NewManager(log),
		Dispatch:     session.NewDispatcher(),
		writerGroups: make(map[uint16]*pubsub.WriterGroup),
		readerGroups: make(map[uint16]*pubsub.ReaderGroup),
		codecCtx:     codecCtx,
	}
	s.Engine = subscription.NewEngine(log, s.Stats, cfg.MaxSubscriptionsPerSession)
	s.Loop = eventloop.New(log, 256, cfg.EventLoopWorkers)
	registerHandlers(s)
	return s
}

// CodecContext returns the shared binary.Context every decode/encode on
// this server uses, so request/response handling and PubSub field encoding
// agree on array/message caps.
func (s *Server) CodecContext() *binary.Context { return s.codecCtx }

// Run starts the EventLoop goroutine, the periodic session sweep, and the
// signal handlers for graceful shutdown, blocking until ctx is canceled
//.
func (s *Server) Run(ctx context.Context) {
	s.Loop.Interrupts().Start()
	s.sweepTimer = s.Loop.Every(s.Config.SessionTimeout/4+time.Second, s.sweepExpiredSessions)
	if s.Log != nil {
		s.Log.Log(corelog.Info, corelog.CategoryEventLoop, "server starting, endpoint=%s", s.Config.EndpointURL)
	}
	s.Loop.Run(ctx)
}

// sweepExpiredSessions runs on the loop goroutine.
func (s *Server) sweepExpiredSessions() {
	for _, exp := range s.Sessions.SweepExpired() {
		s.Engine.DeleteAllForSession(exp.Subscriptions)
		s.Stats.SessionExpired()
		if s.Log != nil {
			s.Log.Log(corelog.Info, corelog.CategorySession, "session %s timed out, closed %d subscriptions", exp.AuthenticationToken, len(exp.Subscriptions))
		}
	}
}

// OpenChannel allocates a fresh SecureChannel bound to transport, assigning
// it the next channelId.
func (s *Server) OpenChannel(policy securechannel.SecurityPolicy, transport ByteStream) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextChID++
	id := s.nextChID
	ch := &Channel{
		Secure: securechannel.NewChannel(id, securechannel.RoleServer, policy, securechannel.SystemClock{}),
		Limits: chunk.Limits{
			MaxChunkSize:   uint32(s.Config.MaxChunkSize),
			MaxMessageSize: uint32(s.Config.MaxMessageSize),
			MaxChunkCount:  uint32(s.Config.MaxChunkCount),
		},
		Transport: transport,
	}
	ch.Assembler = chunk.NewAssembler(ch.Limits, chunk.RoleServer)
	s.channels[id] = ch
	s.Stats.ChannelOpened()
	return ch
}

// Channel looks up a previously opened channel by id; chunks for an
// unknown channelId are dropped silently by the caller,
// signaled here by the ok return.
func (s *Server) Channel(id uint32) (*Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	return ch, ok
}

// CloseChannel closes and forgets channel id, detaching every session
// bound to it rather than deleting their subscriptions
// outright.
func (s *Server) CloseChannel(id uint32) error {
	s.mu.Lock()
	ch, ok := s.channels[id]
	if ok {
		delete(s.channels, id)
	}
	s.mu.Unlock()
	if !ok {
		return uaerrors.Wrap(uaerrors.SecureChannelIDInvalid, "channel %d not open", id)
	}
	if err := ch.Secure.Close(); err != nil {
		return err
	}
	s.Sessions.ChannelClosed(id)
	s.Stats.ChannelClosed()
	if s.Log != nil {
		s.Log.Log(corelog.Info, corelog.CategoryChannel, "channel %d closed", id)
	}
	return nil
}

// AddWriterGroup registers g for PubSub publishing, scheduling its publish
// cycle on the loop at its PublishingInterval.
func (s *Server) AddWriterGroup(g *pubsub.WriterGroup) eventloop.TimerID {
	s.mu.Lock()
	s.writerGroups[g.ID] = g
	s.mu.Unlock()
	return s.Loop.Every(g.PublishingInterval, func() {
		if err := g.Publish(ua.NewDateTime(time.Now())); err != nil && s.Log != nil {
			s.Log.Log(corelog.Warning, corelog.CategoryPubSub, "writer group %d publish failed: %v", g.ID, err)
			return
		}
		s.Stats.IncWriterGroupPublish()
	})
}

// AddReaderGroup registers g to receive datagrams via dg, posting each
// receive onto the loop goroutine so ReaderGroup.Receive's field write-back
// runs under the same single-writer guarantee as everything else. The
// receive goroutine lives only as long as ctx: cancellation closes dg,
// which unblocks any in-flight Recv, and PostCtx refuses to wedge on a
// work queue nothing will drain after the loop exits.
func (s *Server) AddReaderGroup(ctx context.Context, g *pubsub.ReaderGroup, dg Datagram) {
	s.mu.Lock()
	s.readerGroups[g.ID] = g
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = dg.Close()
	}()
	go func() {
		defer dg.Close()
		for {
			buf, err := dg.Recv()
			if err != nil {
				return
			}
			b := buf
			err = s.Loop.PostCtx(ctx, func() {
				before := g.DroppedUnknownWriter() + g.OutOfOrder()
				if err := g.Receive(b); err != nil && s.Log != nil {
					s.Log.Log(corelog.Warning, corelog.CategoryPubSub, "reader group %d: %v", g.ID, err)
					return
				}
				s.Stats.IncReaderGroupReceive()
				after := g.DroppedUnknownWriter() + g.OutOfOrder()
				s.Stats.IncReaderGroupDropped(after - before)
			})
			if err != nil {
				return
			}
		}
	}()
}

// ScheduleSubscription arms the EventLoop timer that drives one
// subscription's publish cycle every PublishingInterval. CreateSubscription handlers call this after the
// Engine has allocated the Subscription.
func (s *Server) ScheduleSubscription(subID uint32, interval time.Duration) eventloop.TimerID {
	return s.Loop.Every(interval, func() {
		msg, sent, err := s.Engine.Publish(subID, ua.NewDateTime(time.Now()))
		if err != nil {
			return
		}
		if sent && s.Log != nil {
			s.Log.Log(corelog.Debug, corelog.CategorySubscription, "subscription %d sent message seq=%d notifications=%d", subID, msg.SequenceNumber, len(msg.Notifications))
		}
	})
}

// Shutdown tears the server down leaves-first. Monitored items are owned
// by Subscriptions and freed along with them by Engine.Delete, so this
// deletes every subscription, then closes every channel, then stops the
// loop itself. Sessions are not closed: CloseChannel only detaches the
// sessions bound to a channel, and they remain in s.Sessions.
func (s *Server) Shutdown() {
	s.Loop.Cancel(s.sweepTimer)
	for _, sub := range s.Engine.All() {
		_ = s.Engine.Delete(sub.ID)
	}
	s.mu.Lock()
	chanIDs := make([]uint32, 0, len(s.channels))
	for id := range s.channels {
		chanIDs = append(chanIDs, id)
	}
	s.mu.Unlock()
	for _, id := range chanIDs {
		_ = s.CloseChannel(id)
	}
	s.Loop.Interrupts().Stop()
	s.Loop.Stop()
	if s.Log != nil {
		s.Log.Log(corelog.Info, corelog.CategoryEventLoop, "server shutdown complete")
	}
}
