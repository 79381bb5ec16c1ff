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

package subscription

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// TestKeepaliveAndRepublish drives the keepalive and republish paths:
// a subscription with one static monitored item, maxKeepAliveCount=3,
// produces its first NotificationMessage (an empty keepalive) on the 3rd
// empty publishing cycle, and Republish of that seqNum succeeds while the
// next seqNum does not.
func TestKeepaliveAndRepublish(t *testing.T) {
	sub := New(1, 0, 3, 15, 0, 10)
	sub.Activate()
	item := NewDataItem(1, ua.NewNumericNodeId(1, 100), 13, 0, 1, DiscardOldest, nil)
	sub.AddMonitoredItem(item)

	sub.EnqueuePublishRequest(PublishRequest{RequestID: 1})

	// cycles 1 and 2: no notifications, keepAliveCounter below threshold.
	_, sent := sub.Tick(ua.DateTime(0))
	require.False(t, sent)
	_, sent = sub.Tick(ua.DateTime(0))
	require.False(t, sent)

	// the PublishRequest is still queued (nothing was sent to consume it).
	require.Equal(t, 1, sub.PendingPublishRequests())

	// cycle 3: keepalive fires.
	msg, sent := sub.Tick(ua.DateTime(0))
	require.True(t, sent)
	require.True(t, msg.IsKeepalive())
	require.Equal(t, uint32(1), msg.SequenceNumber)
	require.Equal(t, 1, sub.RetransmissionQueueLen())
	require.Equal(t, 0, sub.PendingPublishRequests())

	got, err := sub.Republish(1)
	require.NoError(t, err)
	require.True(t, got.IsKeepalive())

	_, err = sub.Republish(2)
	require.Error(t, err)
	require.True(t, uaerrors.Is(err, uaerrors.MessageNotAvailable))
}

func TestSubscriptionGoesLateWithoutPublishRequest(t *testing.T) {
	sub := New(1, 0, 3, 2, 0, 10)
	sub.Activate()
	item := NewDataItem(1, ua.NewNumericNodeId(1, 100), 13, 0, 10, DiscardOldest, nil)
	sub.AddMonitoredItem(item)
	item.Sample(ua.NewDataValue(ua.NewScalarVariant(ua.TypeInt32, int32(42))))

	_, sent := sub.Tick(ua.DateTime(0))
	require.False(t, sent)
	require.Equal(t, Late, sub.State())
}

func TestDiscardOldestKeepsSuffix(t *testing.T) {
	item := NewDataItem(1, ua.NodeId{}, 13, 0, 2, DiscardOldest, nil)
	for i := int32(0); i < 5; i++ {
		item.Sample(ua.DataValue{HasValue: true, Value: ua.NewScalarVariant(ua.TypeInt32, i)})
	}
	drained := item.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, int32(3), drained[0].Value.Value.Value.(int32))
	require.Equal(t, int32(4), drained[1].Value.Value.Value.(int32))
}

func TestDeleteSubscriptionIdempotence(t *testing.T) {
	e := NewEngine(nil, nil, 0)
	s, err := e.CreateSubscription(0, 3, 10, 0, 5)
	require.NoError(t, err)

	require.NoError(t, e.Delete(s.ID))
	err = e.Delete(s.ID)
	require.Error(t, err)
	require.True(t, uaerrors.Is(err, uaerrors.SubscriptionIDInvalid))
}

func TestActivateIsIdempotent(t *testing.T) {
	sub := New(1, 0, 3, 10, 0, 5)
	sub.Activate()
	require.Equal(t, Normal, sub.State())
	sub.Activate()
	require.Equal(t, Normal, sub.State())
}

func TestContentFilterLike(t *testing.T) {
	require.True(t, likeMatch("hello world", "hello%"))
	require.True(t, likeMatch("hello world", "h_llo%"))
	require.False(t, likeMatch("hello world", "bye%"))
}

type fakeEvent struct {
	typeID ua.NodeId
}

func (e fakeEvent) Resolve(SimpleAttributeOperand) ua.Variant { return ua.Variant{} }
func (e fakeEvent) EventTypeID() ua.NodeId                    { return e.typeID }

type fakeHierarchy struct{ parent map[ua.NodeIdKey]ua.NodeId }

func (h fakeHierarchy) IsSubtypeOf(sub, super ua.NodeId) bool {
	cur := sub
	for i := 0; i < 8; i++ {
		if cur.Equal(super) {
			return true
		}
		next, ok := h.parent[cur.Key()]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

func TestContentFilterOfType(t *testing.T) {
	baseType := ua.NewNumericNodeId(0, 2041)
	alarmType := ua.NewNumericNodeId(0, 10751)
	types := fakeHierarchy{parent: map[ua.NodeIdKey]ua.NodeId{alarmType.Key(): baseType}}

	target := ua.NewScalarVariant(ua.TypeNodeID, baseType)
	ofType := &ContentFilterElement{Op: OpOfType, Operands: []ContentFilterOperand{{Literal: &target}}}

	sub := fakeEvent{typeID: alarmType}
	require.True(t, ofType.EvaluateWith(sub, types), "subtype must match through the hierarchy")
	require.False(t, ofType.Evaluate(sub), "without a hierarchy only exact matches pass")
	require.True(t, ofType.Evaluate(fakeEvent{typeID: baseType}), "exact type matches without a hierarchy")

	// Composed under NOT the operator excludes matching events instead of
	// admitting everything.
	notOf := &ContentFilterElement{Op: OpNot, Children: []*ContentFilterElement{ofType}}
	require.True(t, notOf.EvaluateWith(fakeEvent{typeID: ua.NewNumericNodeId(1, 7)}, types))
	require.False(t, notOf.EvaluateWith(sub, types))
}
