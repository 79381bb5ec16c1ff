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
	"time"

	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// Metrics is the counters the stats layer exposes for
// the SubscriptionEngine (publish cycles, late subscriptions, queue
// evictions); a nil Metrics disables counting.
type Metrics interface {
	IncPublishCycle()
	IncLate()
	IncKeepalive()
	IncEviction()
}

// Engine is the subscription engine: it owns every live Subscription,
// keyed by id, the way server.Server owns the engine itself. Every method
// is meant to run on the EventLoop goroutine.
type Engine struct {
	subscriptions map[uint32]*Subscription
	nextID        uint32
	log           *corelog.Logger
	metrics       Metrics
	maxSubscriptions int
}

// NewEngine returns an empty Engine. maxSubscriptions <= 0 means unbounded.
func NewEngine(log *corelog.Logger, metrics Metrics, maxSubscriptions int) *Engine {
	return &Engine{
		subscriptions:    make(map[uint32]*Subscription),
		log:              log,
		metrics:          metrics,
		maxSubscriptions: maxSubscriptions,
	}
}

// CreateSubscription allocates a new Subscription.
func (e *Engine) CreateSubscription(publishingInterval time.Duration, maxKeepAliveCount, lifetimeCount uint32, priority byte, retransmissionCap int) (*Subscription, error) {
	if e.maxSubscriptions > 0 && len(e.subscriptions) >= e.maxSubscriptions {
		return nil, uaerrors.Wrap(uaerrors.ResourceUnavailable, "subscription limit %d reached", e.maxSubscriptions)
	}
	e.nextID++
	s := New(e.nextID, publishingInterval, maxKeepAliveCount, lifetimeCount, priority, retransmissionCap)
	e.subscriptions[s.ID] = s
	if e.log != nil {
		e.log.Log(corelog.Info, corelog.CategorySubscription, "created subscription %d (interval=%s, keepalive=%d, lifetime=%d)", s.ID, publishingInterval, maxKeepAliveCount, lifetimeCount)
	}
	return s, nil
}

// Get returns subscription id, or NoSubscription if it doesn't exist.
func (e *Engine) Get(id uint32) (*Subscription, error) {
	s, ok := e.subscriptions[id]
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.NoSubscription, "no subscription %d", id)
	}
	return s, nil
}

// Delete removes subscription id. Deleting a deleted (or never-existing)
// subscription returns BadSubscriptionIdInvalid, per the protocol's
// idempotence law explicitly calling that case out (unlike Activate,
// Delete is NOT idempotent).
func (e *Engine) Delete(id uint32) error {
	s, ok := e.subscriptions[id]
	if !ok {
		return uaerrors.Wrap(uaerrors.SubscriptionIDInvalid, "subscription %d does not exist", id)
	}
	s.Close()
	delete(e.subscriptions, id)
	if e.log != nil {
		e.log.Log(corelog.Info, corelog.CategorySubscription, "deleted subscription %d", id)
	}
	return nil
}

// All returns every live subscription, for EventLoop scheduling.
func (e *Engine) All() []*Subscription {
	out := make([]*Subscription, 0, len(e.subscriptions))
	for _, s := range e.subscriptions {
		out = append(out, s)
	}
	return out
}

// Count reports the number of live subscriptions.
func (e *Engine) Count() int { return len(e.subscriptions) }

// SampleDataItem feeds a freshly read value to a data-change MonitoredItem
// of subscription id, if both exist. It does not check whether the item is
// due; the caller decides that (see MonitoredItem.DueForSampling).
func (e *Engine) SampleDataItem(subID, itemID uint32, value ua.DataValue) error {
	s, err := e.Get(subID)
	if err != nil {
		return err
	}
	item, ok := s.MonitoredItems[itemID]
	if !ok {
		return uaerrors.Wrap(uaerrors.NodeIDUnknown, "subscription %d has no monitored item %d", subID, itemID)
	}
	item.Sample(value)
	return nil
}

// SampleEvent feeds an event to every event MonitoredItem of subscription
// id.
func (e *Engine) SampleEvent(subID uint32, event EventFields) error {
	s, err := e.Get(subID)
	if err != nil {
		return err
	}
	for _, item := range s.MonitoredItems {
		if item.EventFilter != nil {
			item.SampleEvent(event)
		}
	}
	return nil
}

// EnqueuePublishRequest binds a PublishRequest to subscription id, for the
// next Tick to consume.
func (e *Engine) EnqueuePublishRequest(subID uint32, req PublishRequest) error {
	s, err := e.Get(subID)
	if err != nil {
		return err
	}
	s.EnqueuePublishRequest(req)
	return nil
}

// Publish runs subscription id's publish cycle (Subscription.Tick) and
// records metrics for the outcome.
func (e *Engine) Publish(subID uint32, now ua.DateTime) (NotificationMessage, bool, error) {
	s, err := e.Get(subID)
	if err != nil {
		return NotificationMessage{}, false, err
	}
	before := s.RetransmissionQueueLen()
	msg, sent := s.Tick(now)
	if e.metrics != nil {
		e.metrics.IncPublishCycle()
		if s.State() == Late {
			e.metrics.IncLate()
		}
		if sent && msg.IsKeepalive() {
			e.metrics.IncKeepalive()
		}
		if s.RetransmissionQueueLen() < before+1 && sent {
			e.metrics.IncEviction()
		}
	}
	return msg, sent, nil
}

// Republish returns the retained message for subscription id's sequence
// number seqNum.
func (e *Engine) Republish(subID, seqNum uint32) (NotificationMessage, error) {
	s, err := e.Get(subID)
	if err != nil {
		return NotificationMessage{}, err
	}
	return s.Republish(seqNum)
}

// DeleteAllForSession deletes every subscription id in ids, used by Session
// timeout/close handling when the caller has decided on outright deletion rather than
// TransferSubscriptions.
func (e *Engine) DeleteAllForSession(ids []uint32) {
	for _, id := range ids {
		_ = e.Delete(id)
	}
}
