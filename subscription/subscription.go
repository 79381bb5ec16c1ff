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

	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// State is one node of a Subscription's lifecycle:
// Creating -> Normal -> (Late <-> KeepAlive) -> Closed.
type State int

// States.
const (
	Creating State = iota
	Normal
	Late
	KeepAlive
	Closed
)

func (s State) String() string {
	switch s {
	case Creating:
		return "Creating"
	case Normal:
		return "Normal"
	case Late:
		return "Late"
	case KeepAlive:
		return "KeepAlive"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// PublishRequest is a client's standing offer to carry one NotificationMessage,
// queued by the Engine until a publish cycle has something to send.
type PublishRequest struct {
	RequestID         uint32
	AcknowledgeSeqNums []uint32
}

// retransmissionEntry is one message held for possible Republish, evicted
// oldest-first once RetransmissionQueueCap is exceeded.
type retransmissionEntry struct {
	message NotificationMessage
}

// Subscription holds one client's monitored items and publish-cycle state.
// Its Tick is driven by Engine.Publish; nothing here
// is safe for concurrent use from more than one goroutine, matching the
// EventLoop's single-threaded ownership model.
type Subscription struct {
	ID                 uint32
	PublishingInterval time.Duration
	MaxKeepAliveCount  uint32
	LifetimeCount      uint32
	Priority           byte

	RetransmissionQueueCap int

	MonitoredItems map[uint32]*MonitoredItem

	state            State
	seqNum           uint32
	keepAliveCounter uint32
	lifetimeCounter  uint32

	pendingRequests []PublishRequest
	retransmission  []retransmissionEntry
	pendingStatusChange *ua.StatusCode
}

// New constructs a Subscription in state Creating.
func New(id uint32, publishingInterval time.Duration, maxKeepAliveCount, lifetimeCount uint32, priority byte, retransmissionCap int) *Subscription {
	if retransmissionCap < 1 {
		retransmissionCap = 1
	}
	return &Subscription{
		ID:                     id,
		PublishingInterval:     publishingInterval,
		MaxKeepAliveCount:      maxKeepAliveCount,
		LifetimeCount:          lifetimeCount,
		Priority:               priority,
		RetransmissionQueueCap: retransmissionCap,
		MonitoredItems:         make(map[uint32]*MonitoredItem),
		state:                  Creating,
	}
}

// State returns the subscription's current state.
func (s *Subscription) State() State { return s.state }

// Activate moves a Creating subscription to Normal. Activating an
// already-active subscription is a no-op, matching CreateMonitoredItems/ModifyMonitoredItems being usable
// before the first publish cycle without forcing a state reset.
func (s *Subscription) Activate() {
	if s.state == Creating {
		s.state = Normal
	}
}

// AddMonitoredItem registers m under the subscription.
func (s *Subscription) AddMonitoredItem(m *MonitoredItem) {
	s.MonitoredItems[m.ID] = m
}

// RemoveMonitoredItem drops item id.
func (s *Subscription) RemoveMonitoredItem(id uint32) {
	delete(s.MonitoredItems, id)
}

// EnqueuePublishRequest appends req to the FIFO of publish requests waiting
// to carry a NotificationMessage and clears the retransmission entries it
// acknowledges. It does not run a publish cycle: a Late subscription
// consumes the request on its next Tick, not on arrival.
func (s *Subscription) EnqueuePublishRequest(req PublishRequest) {
	s.pendingRequests = append(s.pendingRequests, req)
	if len(req.AcknowledgeSeqNums) > 0 {
		s.acknowledge(req.AcknowledgeSeqNums)
	}
}

// PendingPublishRequests reports how many publish requests are queued.
func (s *Subscription) PendingPublishRequests() int {
	return len(s.pendingRequests)
}

func (s *Subscription) popPublishRequest() (PublishRequest, bool) {
	if len(s.pendingRequests) == 0 {
		return PublishRequest{}, false
	}
	req := s.pendingRequests[0]
	s.pendingRequests = s.pendingRequests[1:]
	return req, true
}

// acknowledge clears retransmission entries named by seqNums.
func (s *Subscription) acknowledge(seqNums []uint32) {
	if len(seqNums) == 0 || len(s.retransmission) == 0 {
		return
	}
	ack := make(map[uint32]struct{}, len(seqNums))
	for _, sn := range seqNums {
		ack[sn] = struct{}{}
	}
	out := s.retransmission[:0]
	for _, e := range s.retransmission {
		if _, matched := ack[e.message.SequenceNumber]; matched {
			continue
		}
		out = append(out, e)
	}
	s.retransmission = out
}

// nextSeqNum allocates the next strictly-monotonic NotificationMessage
// sequence number.
func (s *Subscription) nextSeqNum() uint32 {
	s.seqNum++
	return s.seqNum
}

// pushRetransmission appends msg and evicts the oldest entry once the cap
// is exceeded.
func (s *Subscription) pushRetransmission(msg NotificationMessage) {
	s.retransmission = append(s.retransmission, retransmissionEntry{message: msg})
	if len(s.retransmission) > s.RetransmissionQueueCap {
		s.retransmission = s.retransmission[len(s.retransmission)-s.RetransmissionQueueCap:]
	}
}

// Republish returns the retained message with the given sequence number,
// or BadMessageNotAvailable if it was never sent or has since been
// evicted/acknowledged - the protocol leaves the two cases
// indistinguishable on purpose, and this implementation returns the same
// error for both.
func (s *Subscription) Republish(seqNum uint32) (NotificationMessage, error) {
	for _, e := range s.retransmission {
		if e.message.SequenceNumber == seqNum {
			return e.message, nil
		}
	}
	return NotificationMessage{}, uaerrors.Wrap(uaerrors.MessageNotAvailable, "subscription %d: sequence number %d not available", s.ID, seqNum)
}

// RequestStatusChange arranges for the next available PublishRequest to
// carry a StatusChangeNotification instead of ordinary data.
func (s *Subscription) RequestStatusChange(status ua.StatusCode) {
	st := status
	s.pendingStatusChange = &st
}

// drainItems gathers every MonitoredItem's queued notifications into one
// flat, stable-ordered slice. Item iteration
// order is by ascending MonitoredItem id so two ticks with the same
// underlying samples produce the same NotificationMessage, which keeps the
// deterministic-encoding law meaningful one layer up.
func (s *Subscription) drainItems() []Notification {
	ids := make([]uint32, 0, len(s.MonitoredItems))
	for id := range s.MonitoredItems {
		ids = append(ids, id)
	}
	sortUint32(ids)

	var out []Notification
	for _, id := range ids {
		out = append(out, s.MonitoredItems[id].Drain()...)
	}
	return out
}

func sortUint32(ids []uint32) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// Tick runs one publishing cycle. Sampling
// (steps 1-2) happens on the MonitoredItems themselves, driven by the
// Engine before Tick is called, so Tick only drains, decides keepalive vs.
// publish, and manages lifetime accounting. now is stamped onto any
// message actually sent.
//
// It returns the message that was sent and true, or (zero value, false) if
// nothing was sent this cycle (no pending PublishRequest, or nothing due
// and no keepalive needed).
func (s *Subscription) Tick(now ua.DateTime) (NotificationMessage, bool) {
	if s.state == Closed || s.state == Creating {
		return NotificationMessage{}, false
	}

	notifications := s.drainItems()
	hasStatusChange := s.pendingStatusChange != nil
	needKeepalive := false

	if len(notifications) == 0 && !hasStatusChange {
		s.keepAliveCounter++
		if s.keepAliveCounter >= s.MaxKeepAliveCount {
			needKeepalive = true
		}
	} else {
		s.keepAliveCounter = 0
	}

	if len(notifications) == 0 && !hasStatusChange && !needKeepalive {
		return NotificationMessage{}, false
	}

	req, ok := s.popPublishRequest()
	if !ok {
		s.state = Late
		s.lifetimeCounter++
		if s.lifetimeCounter >= s.LifetimeCount {
			s.RequestStatusChange(ua.BadTimeout)
		}
		return NotificationMessage{}, false
	}
	_ = req

	msg := NotificationMessage{
		SequenceNumber: s.nextSeqNum(),
		PublishTime:    now,
		Notifications:  notifications,
	}
	if hasStatusChange {
		msg.HasStatusChange = true
		msg.StatusChange = *s.pendingStatusChange
		s.pendingStatusChange = nil
	}

	s.pushRetransmission(msg)
	s.lifetimeCounter = 0
	if needKeepalive {
		s.keepAliveCounter = 0
		s.state = KeepAlive
	} else {
		s.state = Normal
	}
	return msg, true
}

// RetransmissionQueueLen reports how many messages are retained for
// Republish, exposed for tests and diagnostics.
func (s *Subscription) RetransmissionQueueLen() int { return len(s.retransmission) }

// SeqNum reports the last sequence number allocated.
func (s *Subscription) SeqNum() uint32 { return s.seqNum }

// Close transitions the subscription to Closed, dropping all pending
// publish requests (the Engine is responsible for responding
// BadNoSubscription/BadSessionClosed to them, per the protocol).
func (s *Subscription) Close() {
	s.state = Closed
	s.pendingRequests = nil
}
