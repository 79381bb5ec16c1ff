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
	"time"

	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/session"
	"github.com/open62541-go/opcua-core/subscription"
	"github.com/open62541-go/opcua-core/ua"
)

// Service request/response type-description NodeIds, namespace zero. These
// stand in for the real OPC UA-registered binary-encoding ids - this module doesn't carry the full
// services registry, only the dispatch mechanism and the handlers the
// SubscriptionEngine and Session layers need exercised.
var (
	TypeCreateSessionRequest     = ua.NewNumericNodeId(0, 461)
	TypeActivateSessionRequest   = ua.NewNumericNodeId(0, 467)
	TypeCloseSessionRequest      = ua.NewNumericNodeId(0, 473)
	TypeCreateSubscriptionRequest = ua.NewNumericNodeId(0, 787)
	TypeDeleteSubscriptionsRequest = ua.NewNumericNodeId(0, 849)
	TypePublishRequest           = ua.NewNumericNodeId(0, 827)
	TypeRepublishRequest         = ua.NewNumericNodeId(0, 833)
)

// CreateSessionRequest/Response carry just what CreateSession needs:
// "returns sessionId + authenticationToken; channel binding set".
type CreateSessionRequest struct {
	ClientNonce     []byte
	SessionTimeout  time.Duration
	ChannelID       uint32
}

// CreateSessionResponse is returned by CreateSession.
type CreateSessionResponse struct {
	SessionID           ua.NodeId
	AuthenticationToken ua.NodeId
	ServerNonce         []byte
}

// ActivateSessionRequest carries the identity token to validate.
type ActivateSessionRequest struct {
	Identity  session.IdentityToken
	ChannelID uint32
}

// ActivateSessionResponse carries a fresh server nonce, per the OPC UA
// ActivateSession service.
type ActivateSessionResponse struct {
	ServerNonce []byte
}

// CloseSessionRequest carries the optional delete-subscriptions flag.
type CloseSessionRequest struct {
	DeleteSubscriptions bool
}

// CreateSubscriptionRequest mirrors the OPC UA service's fields.
type CreateSubscriptionRequest struct {
	PublishingInterval time.Duration
	MaxKeepAliveCount  uint32
	LifetimeCount      uint32
	Priority           byte
}

// CreateSubscriptionResponse returns the allocated id plus the server's
// revised (possibly clamped) interval/counts.
type CreateSubscriptionResponse struct {
	SubscriptionID     uint32
	PublishingInterval time.Duration
	MaxKeepAliveCount  uint32
	LifetimeCount      uint32
}

// PublishRequestBody is a client's standing offer to carry a
// NotificationMessage, naming the subscription
// being acknowledged for.
type PublishRequestBody struct {
	RequestID          uint32
	SubscriptionID     uint32
	AcknowledgeSeqNums []uint32
}

// PublishResponseBody is what comes back once the Engine has something to
// send, or an immediate BadNoSubscription-style error if sub doesn't exist.
type PublishResponseBody struct {
	SubscriptionID uint32
	Message        subscription.NotificationMessage
	MoreNotifications bool
}

// RepublishRequestBody/Response implement the Republish
// service.
type RepublishRequestBody struct {
	SubscriptionID uint32
	SequenceNumber uint32
}

// RepublishResponseBody carries the retained message.
type RepublishResponseBody struct {
	Message subscription.NotificationMessage
}

// DeleteSubscriptionsRequestBody names the subscriptions to delete.
type DeleteSubscriptionsRequestBody struct {
	SubscriptionIDs []uint32
}

// registerHandlers wires the built-in services this module implements
// into s.Dispatch. CreateSession is deliberately absent
// from this table: every other service is looked up by the Session bound
// to the request's authenticationToken before Dispatch.Dispatch runs, but
// CreateSession is the one request that precedes any Session existing, so
// the server's inbound pipeline (handleRequest in conn.go) calls
// handleCreateSession directly instead
// of routing it through the per-session table. ActivateSession still
// goes through Dispatch because by then a Created-but-not-yet-Activated
// Session already exists.
func registerHandlers(s *Server) {
	s.Dispatch.Register(TypeActivateSessionRequest, session.Entry{
		Handler:            s.handleActivateSession,
		RequiresActivation: false,
	})
	s.Dispatch.Register(TypeCloseSessionRequest, session.Entry{
		Handler:            s.handleCloseSession,
		RequiresActivation: true,
	})
	s.Dispatch.Register(TypeCreateSubscriptionRequest, session.Entry{
		Handler:            s.handleCreateSubscription,
		RequiresActivation: true,
	})
	s.Dispatch.Register(TypeDeleteSubscriptionsRequest, session.Entry{
		Handler:            s.handleDeleteSubscriptions,
		RequiresActivation: true,
	})
	s.Dispatch.Register(TypePublishRequest, session.Entry{
		Handler:            s.handlePublish,
		RequiresActivation: true,
		Quota:              session.OpRead,
	})
	s.Dispatch.Register(TypeRepublishRequest, session.Entry{
		Handler:            s.handleRepublish,
		RequiresActivation: true,
	})
}

func (s *Server) handleCreateSession(_ *session.Session, req interface{}) (interface{}, error) {
	r, ok := req.(CreateSessionRequest)
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.TypeMismatch, "CreateSession: unexpected request type %T", req)
	}
	timeout := r.SessionTimeout
	if timeout <= 0 {
		timeout = s.Config.SessionTimeout
	}
	serverNonce, err := randomNonce(len(r.ClientNonce))
	if err != nil {
		return nil, err
	}
	sess := s.Sessions.CreateSession(0, timeout, serverNonce, r.ChannelID, session.SystemClock{})
	s.Stats.SessionCreated()
	return CreateSessionResponse{
		SessionID:           sess.SessionID,
		AuthenticationToken: sess.AuthenticationToken,
		ServerNonce:         serverNonce,
	}, nil
}

func (s *Server) handleActivateSession(sess *session.Session, req interface{}) (interface{}, error) {
	r, ok := req.(ActivateSessionRequest)
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.TypeMismatch, "ActivateSession: unexpected request type %T", req)
	}
	policy, ok := s.Policies.(identityValidatorLookup)
	var validator session.PolicyValidator
	if ok {
		validator = policy.IdentityValidator()
	} else {
		validator = anonymousOnlyValidator{}
	}
	if err := sess.Activate(validator, r.Identity, r.ChannelID); err != nil {
		return nil, err
	}
	nonce, err := randomNonce(len(sess.Nonce))
	if err != nil {
		return nil, err
	}
	return ActivateSessionResponse{ServerNonce: nonce}, nil
}

func (s *Server) handleCloseSession(sess *session.Session, req interface{}) (interface{}, error) {
	r, _ := req.(CloseSessionRequest)
	owned, err := s.Sessions.Close(sess.AuthenticationToken, r.DeleteSubscriptions)
	if err != nil {
		return nil, err
	}
	if r.DeleteSubscriptions {
		s.Engine.DeleteAllForSession(owned)
	}
	s.Stats.SessionClosed()
	return struct{}{}, nil
}

func (s *Server) handleCreateSubscription(sess *session.Session, req interface{}) (interface{}, error) {
	r, ok := req.(CreateSubscriptionRequest)
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.TypeMismatch, "CreateSubscription: unexpected request type %T", req)
	}
	interval := r.PublishingInterval
	if interval < s.Config.MinPublishingInterval {
		interval = s.Config.MinPublishingInterval
	}
	sub, err := s.Engine.CreateSubscription(interval, r.MaxKeepAliveCount, r.LifetimeCount, r.Priority, 100)
	if err != nil {
		return nil, err
	}
	sess.AddSubscription(sub.ID)
	s.ScheduleSubscription(sub.ID, interval)
	s.Stats.SubscriptionCreated()
	return CreateSubscriptionResponse{
		SubscriptionID:     sub.ID,
		PublishingInterval: interval,
		MaxKeepAliveCount:  r.MaxKeepAliveCount,
		LifetimeCount:      r.LifetimeCount,
	}, nil
}

func (s *Server) handleDeleteSubscriptions(sess *session.Session, req interface{}) (interface{}, error) {
	r, ok := req.(DeleteSubscriptionsRequestBody)
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.TypeMismatch, "DeleteSubscriptions: unexpected request type %T", req)
	}
	results := make([]ua.StatusCode, len(r.SubscriptionIDs))
	for i, id := range r.SubscriptionIDs {
		if err := s.Engine.Delete(id); err != nil {
			results[i] = ua.BadSubscriptionIDInvalid
			continue
		}
		sess.RemoveSubscription(id)
		s.Stats.SubscriptionDeleted()
		results[i] = ua.Good
	}
	return results, nil
}

func (s *Server) handlePublish(sess *session.Session, req interface{}) (interface{}, error) {
	r, ok := req.(PublishRequestBody)
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.TypeMismatch, "Publish: unexpected request type %T", req)
	}
	if err := s.Engine.EnqueuePublishRequest(r.SubscriptionID, subscription.PublishRequest{
		RequestID:          r.RequestID,
		AcknowledgeSeqNums: r.AcknowledgeSeqNums,
	}); err != nil {
		return nil, err
	}
	if s.Log != nil {
		s.Log.Log(corelog.Debug, corelog.CategorySubscription, "session %s: publish request %d queued for subscription %d", sess.SessionID, r.RequestID, r.SubscriptionID)
	}
	return PublishResponseBody{SubscriptionID: r.SubscriptionID}, nil
}

func (s *Server) handleRepublish(_ *session.Session, req interface{}) (interface{}, error) {
	r, ok := req.(RepublishRequestBody)
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.TypeMismatch, "Republish: unexpected request type %T", req)
	}
	msg, err := s.Engine.Republish(r.SubscriptionID, r.SequenceNumber)
	if err != nil {
		return nil, err
	}
	return RepublishResponseBody{Message: msg}, nil
}

// identityValidatorLookup is implemented by a securechannel.Registry that
// can also hand back a user-token validator, keeping session's
// PolicyValidator decoupled from securechannel's SecurityPolicy.
type identityValidatorLookup interface {
	IdentityValidator() session.PolicyValidator
}

// anonymousOnlyValidator is the fallback used when the configured registry
// doesn't implement identityValidatorLookup: it accepts only the
// Anonymous identity kind, refusing everything else with
// BadUserAccessDenied via session.Session.Activate's error wrapping.
type anonymousOnlyValidator struct{}

func (anonymousOnlyValidator) ValidateIdentity(token session.IdentityToken) (session.Identity, error) {
	if token.Kind != session.IdentityAnonymous {
		return session.Identity{}, uaerrors.Wrap(uaerrors.UserAccessDenied, "only anonymous identity accepted")
	}
	return session.Identity{Kind: session.IdentityAnonymous}, nil
}
