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

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/session"
	"github.com/open62541-go/opcua-core/subscription"
	"github.com/open62541-go/opcua-core/ua"
)

// Response type-description NodeIds: each is its request's id + 3,
// following the namespace-zero binary-encoding id spacing.
var (
	TypeCreateSessionResponse       = ua.NewNumericNodeId(0, 464)
	TypeActivateSessionResponse     = ua.NewNumericNodeId(0, 470)
	TypeCloseSessionResponse        = ua.NewNumericNodeId(0, 476)
	TypeCreateSubscriptionResponse  = ua.NewNumericNodeId(0, 790)
	TypeDeleteSubscriptionsResponse = ua.NewNumericNodeId(0, 852)
	TypePublishResponse             = ua.NewNumericNodeId(0, 830)
	TypeRepublishResponse           = ua.NewNumericNodeId(0, 836)
	TypeServiceFault                = ua.NewNumericNodeId(0, 397)
)

// RequestHeader is the common prefix of every service request body: the
// session's authenticationToken, the client's timestamp (checked per the
// VerifyRequestTimestamp config mode) and the client-chosen handle echoed
// back in the response.
type RequestHeader struct {
	AuthenticationToken ua.NodeId
	Timestamp           ua.DateTime
	RequestHandle       uint32
}

// ResponseHeader is the common prefix of every service response body.
type ResponseHeader struct {
	Timestamp     ua.DateTime
	RequestHandle uint32
	ServiceResult ua.StatusCode
}

func encodeRequestHeader(e *binary.Encoder, h RequestHeader) error {
	if err := binary.EncodeNodeId(e, h.AuthenticationToken); err != nil {
		return err
	}
	if err := e.DateTime(h.Timestamp); err != nil {
		return err
	}
	return e.Uint32(h.RequestHandle)
}

func decodeRequestHeader(d *binary.Decoder) (RequestHeader, error) {
	var h RequestHeader
	var err error
	if h.AuthenticationToken, err = binary.DecodeNodeId(d); err != nil {
		return h, err
	}
	if h.Timestamp, err = d.DateTime(); err != nil {
		return h, err
	}
	h.RequestHandle, err = d.Uint32()
	return h, err
}

func encodeResponseHeader(e *binary.Encoder, h ResponseHeader) error {
	if err := e.DateTime(h.Timestamp); err != nil {
		return err
	}
	if err := e.Uint32(h.RequestHandle); err != nil {
		return err
	}
	return e.StatusCode(h.ServiceResult)
}

func decodeResponseHeader(d *binary.Decoder) (ResponseHeader, error) {
	var h ResponseHeader
	var err error
	if h.Timestamp, err = d.DateTime(); err != nil {
		return h, err
	}
	if h.RequestHandle, err = d.Uint32(); err != nil {
		return h, err
	}
	h.ServiceResult, err = d.StatusCode()
	return h, err
}

// Durations ride the wire as IEEE-754 doubles counting milliseconds, the
// OPC UA Duration convention.
func encodeDuration(e *binary.Encoder, d time.Duration) error {
	return e.Float64(float64(d) / float64(time.Millisecond))
}

func decodeDuration(d *binary.Decoder) (time.Duration, error) {
	ms, err := d.Float64()
	if err != nil {
		return 0, err
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func encodeUint32Array(e *binary.Encoder, v []uint32) error {
	if err := e.ArrayLength(len(v), v != nil); err != nil {
		return err
	}
	for _, x := range v {
		if err := e.Uint32(x); err != nil {
			return err
		}
	}
	return nil
}

func decodeUint32Array(d *binary.Decoder) ([]uint32, error) {
	n, ok, err := d.ArrayLength()
	if err != nil || !ok {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = d.Uint32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeRequestBody decodes the service payload following the RequestHeader
// for every request type the dispatch table knows, returning the Go struct
// the registered handler expects.
func decodeRequestBody(ctx *binary.Context, typeID ua.NodeId, d *binary.Decoder) (interface{}, error) {
	switch {
	case typeID.Equal(TypeCreateSessionRequest):
		var r CreateSessionRequest
		nonce, err := d.ByteString()
		if err != nil {
			return nil, err
		}
		r.ClientNonce = nonce
		if r.SessionTimeout, err = decodeDuration(d); err != nil {
			return nil, err
		}
		if r.ChannelID, err = d.Uint32(); err != nil {
			return nil, err
		}
		return r, nil

	case typeID.Equal(TypeActivateSessionRequest):
		var r ActivateSessionRequest
		kind, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		r.Identity.Kind = session.IdentityKind(kind)
		if r.Identity.UserName, _, err = d.String(); err != nil {
			return nil, err
		}
		if r.Identity.Password, err = d.ByteString(); err != nil {
			return nil, err
		}
		if r.Identity.Certificate, err = d.ByteString(); err != nil {
			return nil, err
		}
		if r.Identity.IssuedData, err = d.ByteString(); err != nil {
			return nil, err
		}
		if r.ChannelID, err = d.Uint32(); err != nil {
			return nil, err
		}
		return r, nil

	case typeID.Equal(TypeCloseSessionRequest):
		del, err := d.Bool()
		if err != nil {
			return nil, err
		}
		return CloseSessionRequest{DeleteSubscriptions: del}, nil

	case typeID.Equal(TypeCreateSubscriptionRequest):
		var r CreateSubscriptionRequest
		var err error
		if r.PublishingInterval, err = decodeDuration(d); err != nil {
			return nil, err
		}
		if r.MaxKeepAliveCount, err = d.Uint32(); err != nil {
			return nil, err
		}
		if r.LifetimeCount, err = d.Uint32(); err != nil {
			return nil, err
		}
		if r.Priority, err = d.Byte(); err != nil {
			return nil, err
		}
		return r, nil

	case typeID.Equal(TypeDeleteSubscriptionsRequest):
		ids, err := decodeUint32Array(d)
		if err != nil {
			return nil, err
		}
		return DeleteSubscriptionsRequestBody{SubscriptionIDs: ids}, nil

	case typeID.Equal(TypePublishRequest):
		var r PublishRequestBody
		var err error
		if r.SubscriptionID, err = d.Uint32(); err != nil {
			return nil, err
		}
		if r.AcknowledgeSeqNums, err = decodeUint32Array(d); err != nil {
			return nil, err
		}
		return r, nil

	case typeID.Equal(TypeRepublishRequest):
		var r RepublishRequestBody
		var err error
		if r.SubscriptionID, err = d.Uint32(); err != nil {
			return nil, err
		}
		if r.SequenceNumber, err = d.Uint32(); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, uaerrors.Wrap(uaerrors.NodeIDUnknown, "no request decoder for type %s", typeID)
}

// responseTypeID maps a handler's response value to its type-description
// NodeId, without encoding anything.
func responseTypeID(resp interface{}) (ua.NodeId, error) {
	switch resp.(type) {
	case CreateSessionResponse:
		return TypeCreateSessionResponse, nil
	case ActivateSessionResponse:
		return TypeActivateSessionResponse, nil
	case struct{}:
		return TypeCloseSessionResponse, nil
	case CreateSubscriptionResponse:
		return TypeCreateSubscriptionResponse, nil
	case []ua.StatusCode:
		return TypeDeleteSubscriptionsResponse, nil
	case PublishResponseBody:
		return TypePublishResponse, nil
	case RepublishResponseBody:
		return TypeRepublishResponse, nil
	}
	return ua.NodeId{}, uaerrors.Wrap(uaerrors.TypeMismatch, "no response encoder for %T", resp)
}

// encodeResponseBody writes the service payload for every response type a
// registered handler can produce. The type id and ResponseHeader are
// written by the caller ahead of it, since they carry per-request state
// (handle, timestamp) the codec doesn't own.
func encodeResponseBody(ctx *binary.Context, e *binary.Encoder, resp interface{}) error {
	switch r := resp.(type) {
	case CreateSessionResponse:
		if err := binary.EncodeNodeId(e, r.SessionID); err != nil {
			return err
		}
		if err := binary.EncodeNodeId(e, r.AuthenticationToken); err != nil {
			return err
		}
		return e.ByteString(r.ServerNonce)

	case ActivateSessionResponse:
		return e.ByteString(r.ServerNonce)

	case struct{}:
		return nil

	case CreateSubscriptionResponse:
		if err := e.Uint32(r.SubscriptionID); err != nil {
			return err
		}
		if err := encodeDuration(e, r.PublishingInterval); err != nil {
			return err
		}
		if err := e.Uint32(r.MaxKeepAliveCount); err != nil {
			return err
		}
		return e.Uint32(r.LifetimeCount)

	case []ua.StatusCode:
		if err := e.ArrayLength(len(r), true); err != nil {
			return err
		}
		for _, sc := range r {
			if err := e.StatusCode(sc); err != nil {
				return err
			}
		}
		return nil

	case PublishResponseBody:
		if err := e.Uint32(r.SubscriptionID); err != nil {
			return err
		}
		if err := encodeNotificationMessage(ctx, e, r.Message); err != nil {
			return err
		}
		return e.Bool(r.MoreNotifications)

	case RepublishResponseBody:
		return encodeNotificationMessage(ctx, e, r.Message)
	}
	return uaerrors.Wrap(uaerrors.TypeMismatch, "no response encoder for %T", resp)
}

func encodeNotificationMessage(ctx *binary.Context, e *binary.Encoder, m subscription.NotificationMessage) error {
	if err := e.Uint32(m.SequenceNumber); err != nil {
		return err
	}
	if err := e.DateTime(m.PublishTime); err != nil {
		return err
	}
	if err := e.Bool(m.HasStatusChange); err != nil {
		return err
	}
	if m.HasStatusChange {
		if err := e.StatusCode(m.StatusChange); err != nil {
			return err
		}
	}
	if err := e.ArrayLength(len(m.Notifications), true); err != nil {
		return err
	}
	for _, n := range m.Notifications {
		if err := e.Uint32(n.MonitoredItemID); err != nil {
			return err
		}
		if err := e.Bool(n.IsEvent); err != nil {
			return err
		}
		if n.IsEvent {
			if err := e.ArrayLength(len(n.EventFields), true); err != nil {
				return err
			}
			for _, f := range n.EventFields {
				if err := ctx.EncodeVariant(e, f); err != nil {
					return err
				}
			}
			continue
		}
		if err := ctx.EncodeDataValue(e, n.Value); err != nil {
			return err
		}
	}
	return nil
}

func decodeNotificationMessage(ctx *binary.Context, d *binary.Decoder) (subscription.NotificationMessage, error) {
	var m subscription.NotificationMessage
	var err error
	if m.SequenceNumber, err = d.Uint32(); err != nil {
		return m, err
	}
	if m.PublishTime, err = d.DateTime(); err != nil {
		return m, err
	}
	if m.HasStatusChange, err = d.Bool(); err != nil {
		return m, err
	}
	if m.HasStatusChange {
		if m.StatusChange, err = d.StatusCode(); err != nil {
			return m, err
		}
	}
	n, ok, err := d.ArrayLength()
	if err != nil || !ok {
		return m, err
	}
	m.Notifications = make([]subscription.Notification, n)
	for i := range m.Notifications {
		var nt subscription.Notification
		if nt.MonitoredItemID, err = d.Uint32(); err != nil {
			return m, err
		}
		if nt.IsEvent, err = d.Bool(); err != nil {
			return m, err
		}
		if nt.IsEvent {
			fn, fok, ferr := d.ArrayLength()
			if ferr != nil {
				return m, ferr
			}
			if fok {
				nt.EventFields = make([]ua.Variant, fn)
				for j := range nt.EventFields {
					if nt.EventFields[j], err = ctx.DecodeVariant(d); err != nil {
						return m, err
					}
				}
			}
		} else {
			if nt.Value, err = ctx.DecodeDataValue(d); err != nil {
				return m, err
			}
		}
		m.Notifications[i] = nt
	}
	return m, nil
}

// statusFor maps a wrapped uaerrors.Kind onto the StatusCode a ServiceFault
// carries, per the protocol's error-kind list.
func statusFor(err error) ua.StatusCode {
	for _, pair := range statusTable {
		if uaerrors.Is(err, pair.kind) {
			return pair.status
		}
	}
	return ua.BadDecodingError
}

var statusTable = []struct {
	kind   uaerrors.Kind
	status ua.StatusCode
}{
	{uaerrors.SessionIDInvalid, ua.BadSessionIDInvalid},
	{uaerrors.SessionClosed, ua.BadSessionClosed},
	{uaerrors.SessionNotActivated, ua.BadSessionNotActivated},
	{uaerrors.UserAccessDenied, ua.BadUserAccessDenied},
	{uaerrors.NodeIDUnknown, ua.BadNodeIDUnknown},
	{uaerrors.TypeMismatch, ua.BadTypeMismatch},
	{uaerrors.TooManyOperations, ua.BadTooManyOperations},
	{uaerrors.SubscriptionIDInvalid, ua.BadSubscriptionIDInvalid},
	{uaerrors.MessageNotAvailable, ua.BadMessageNotAvailable},
	{uaerrors.NoSubscription, ua.BadNoSubscription},
	{uaerrors.TooManyPublishRequests, ua.BadTooManyPublishRequests},
	{uaerrors.ResourceUnavailable, ua.BadResourceUnavailable},
	{uaerrors.InvalidTimestamp, ua.BadInvalidTimestamp},
	{uaerrors.SecurityChecksFailed, ua.BadSecurityChecksFailed},
	{uaerrors.SecurityPolicyRejected, ua.BadSecurityPolicyRejected},
	{uaerrors.SecureChannelIDInvalid, ua.BadSecureChannelIDInvalid},
	{uaerrors.SecureChannelTokenUnknown, ua.BadSecureChannelTokenUnknown},
	{uaerrors.SequenceNumberInvalid, ua.BadSequenceNumberInvalid},
	{uaerrors.TooShort, ua.BadDecodingError},
	{uaerrors.Overflow, ua.BadDecodingError},
	{uaerrors.LengthExceedsContext, ua.BadDecodingError},
	{uaerrors.TCPEndpointURLInvalid, ua.BadTCPEndpointURLInvalid},
	{uaerrors.TCPMessageTypeInvalid, ua.BadTCPMessageTypeInvalid},
	{uaerrors.TCPMessageTooLarge, ua.BadTCPMessageTooLarge},
	{uaerrors.MalformedChunk, ua.BadTCPMessageTypeInvalid},
	{uaerrors.ChunkCountExceeded, ua.BadTCPMessageTooLarge},
	{uaerrors.RequestTooLarge, ua.BadRequestTooLarge},
	{uaerrors.ResponseTooLarge, ua.BadResponseTooLarge},
	{uaerrors.InvalidChannelState, ua.BadSecureChannelIDInvalid},
}
