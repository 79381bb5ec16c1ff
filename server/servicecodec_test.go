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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/subscription"
	"github.com/open62541-go/opcua-core/ua"
)

func TestNotificationMessageRoundTrip(t *testing.T) {
	ctx := binary.NewContext(nil)
	msg := subscription.NotificationMessage{
		SequenceNumber: 9,
		PublishTime:    ua.DateTime(11111111111111),
		Notifications: []subscription.Notification{
			{
				MonitoredItemID: 4,
				Value:           ua.NewDataValue(ua.NewScalarVariant(ua.TypeUInt32, uint32(27))),
			},
			{
				MonitoredItemID: 5,
				IsEvent:         true,
				EventFields: []ua.Variant{
					ua.NewScalarVariant(ua.TypeInt32, int32(-3)),
				},
			},
		},
	}

	buf := make([]byte, 256)
	e := binary.NewEncoder(buf)
	require.NoError(t, encodeNotificationMessage(ctx, e, msg))

	got, err := decodeNotificationMessage(ctx, binary.NewDecoder(e.Bytes(), ctx))
	require.NoError(t, err)
	assert.Equal(t, msg.SequenceNumber, got.SequenceNumber)
	assert.Equal(t, msg.PublishTime, got.PublishTime)
	require.Len(t, got.Notifications, 2)
	assert.Equal(t, uint32(27), got.Notifications[0].Value.Value.Value)
	assert.True(t, got.Notifications[1].IsEvent)
	require.Len(t, got.Notifications[1].EventFields, 1)
	assert.Equal(t, int32(-3), got.Notifications[1].EventFields[0].Value)
}

func TestStatusForMapsErrorKinds(t *testing.T) {
	cases := []struct {
		kind   uaerrors.Kind
		status ua.StatusCode
	}{
		{uaerrors.SessionIDInvalid, ua.BadSessionIDInvalid},
		{uaerrors.SubscriptionIDInvalid, ua.BadSubscriptionIDInvalid},
		{uaerrors.MessageNotAvailable, ua.BadMessageNotAvailable},
		{uaerrors.InvalidTimestamp, ua.BadInvalidTimestamp},
		{uaerrors.TooShort, ua.BadDecodingError},
	}
	for _, tc := range cases {
		err := uaerrors.Wrap(tc.kind, "context")
		assert.Equal(t, tc.status, statusFor(err), "kind %q", tc.kind)
	}
}

func TestDecodeRequestBodyRejectsUnknownType(t *testing.T) {
	ctx := binary.NewContext(nil)
	_, err := decodeRequestBody(ctx, ua.NewNumericNodeId(0, 12345), binary.NewDecoder(nil, ctx))
	require.Error(t, err)
	require.True(t, uaerrors.Is(err, uaerrors.NodeIDUnknown))
}
