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

	"github.com/open62541-go/opcua-core/ua"
)

// DiscardPolicy decides which queued sample to drop when a MonitoredItem's
// queue is full and a new one arrives.
type DiscardPolicy int

// Discard policies.
const (
	DiscardOldest DiscardPolicy = iota
	DiscardNewest
)

// DeadbandType selects how DataChangeFilter's deadband is interpreted.
type DeadbandType int

// Deadband types.
const (
	DeadbandNone DeadbandType = iota
	DeadbandAbsolute
	DeadbandPercent
)

// DataChangeFilter decides whether a newly sampled value differs enough
// from LastSampledValue to be worth enqueueing.
type DataChangeFilter struct {
	Deadband     DeadbandType
	DeadbandValue float64
	// EURange bounds a Percent deadband's range; ignored for Absolute/None.
	EURangeLow, EURangeHigh float64
}

// Passes reports whether newValue differs from oldValue by more than the
// filter's deadband. A nil filter, or DeadbandNone, always passes.
func (f *DataChangeFilter) Passes(oldValue, newValue ua.DataValue) bool {
	if f == nil || f.Deadband == DeadbandNone {
		return true
	}
	if !oldValue.HasValue || !newValue.HasValue {
		return true
	}
	o, ok1 := asFloat(oldValue.Value.Value)
	n, ok2 := asFloat(newValue.Value.Value)
	if !ok1 || !ok2 {
		return true
	}
	diff := n - o
	if diff < 0 {
		diff = -diff
	}
	switch f.Deadband {
	case DeadbandAbsolute:
		return diff > f.DeadbandValue
	case DeadbandPercent:
		span := f.EURangeHigh - f.EURangeLow
		if span <= 0 {
			return true
		}
		return (diff/span)*100 > f.DeadbandValue
	default:
		return true
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int32:
		return float64(x), true
	case uint32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint16:
		return float64(x), true
	default:
		return 0, false
	}
}

// MonitoredItem observes one node attribute or event notifier: it samples at SamplingInterval, applies a filter, and enqueues
// passing samples for its owning Subscription to drain each publish cycle.
type MonitoredItem struct {
	ID               uint32
	TargetNodeID     ua.NodeId
	AttributeID      uint32
	SamplingInterval time.Duration
	QueueSize        int
	DiscardPolicy    DiscardPolicy

	DataFilter  *DataChangeFilter
	EventFilter *EventFilter // nil unless this item monitors an EventNotifier

	lastSampledValue ua.DataValue
	hasLastSample    bool
	queue            []Notification
	msSinceSample    time.Duration
}

// NewDataItem constructs a data-change MonitoredItem.
func NewDataItem(id uint32, target ua.NodeId, attr uint32, sampling time.Duration, queueSize int, discard DiscardPolicy, filter *DataChangeFilter) *MonitoredItem {
	if queueSize < 1 {
		queueSize = 1
	}
	return &MonitoredItem{
		ID:               id,
		TargetNodeID:     target,
		AttributeID:      attr,
		SamplingInterval: sampling,
		QueueSize:        queueSize,
		DiscardPolicy:    discard,
		DataFilter:       filter,
	}
}

// NewEventItem constructs an event MonitoredItem.
func NewEventItem(id uint32, target ua.NodeId, sampling time.Duration, queueSize int, discard DiscardPolicy, filter *EventFilter) *MonitoredItem {
	if queueSize < 1 {
		queueSize = 1
	}
	return &MonitoredItem{
		ID:               id,
		TargetNodeID:     target,
		AttributeID:      eventNotifierAttribute,
		SamplingInterval: sampling,
		QueueSize:        queueSize,
		DiscardPolicy:    discard,
		EventFilter:      filter,
	}
}

// eventNotifierAttribute is a placeholder attribute id distinguishing an
// event MonitoredItem from a data-change one; the NodeStore capability
// interprets the real EventNotifier attribute id per the protocol.
const eventNotifierAttribute = 0

// Sample applies the item's filter to a freshly read value and enqueues a
// Notification if it passes, evicting per DiscardPolicy if the queue is
// already at QueueSize.
func (m *MonitoredItem) Sample(value ua.DataValue) {
	if m.hasLastSample && !m.DataFilter.Passes(m.lastSampledValue, value) {
		return
	}
	m.lastSampledValue = value
	m.hasLastSample = true
	m.enqueue(Notification{MonitoredItemID: m.ID, Value: value})
}

// SampleEvent evaluates the item's EventFilter against fields and, if the
// WhereClause passes, enqueues a Notification carrying the evaluated
// SelectClauses.
func (m *MonitoredItem) SampleEvent(event EventFields) {
	if m.EventFilter == nil {
		return
	}
	if m.EventFilter.Where != nil && !m.EventFilter.Where.EvaluateWith(event, m.EventFilter.Types) {
		return
	}
	fields := make([]ua.Variant, len(m.EventFilter.Select))
	for i, op := range m.EventFilter.Select {
		fields[i] = event.Resolve(op)
	}
	m.enqueue(Notification{MonitoredItemID: m.ID, EventFields: fields, IsEvent: true})
}

func (m *MonitoredItem) enqueue(n Notification) {
	if len(m.queue) >= m.QueueSize {
		switch m.DiscardPolicy {
		case DiscardOldest:
			m.queue = append(m.queue[1:], n)
		case DiscardNewest:
			// drop the incoming sample, keep the queue as-is.
		}
		return
	}
	m.queue = append(m.queue, n)
}

// Drain removes and returns every queued Notification, in FIFO order.
// Under DiscardOldest the retained queue is always the suffix of samples
// whose length fits queueSize, since enqueue only ever evicts the head.
func (m *MonitoredItem) Drain() []Notification {
	if len(m.queue) == 0 {
		return nil
	}
	out := m.queue
	m.queue = nil
	return out
}

// DueForSampling advances the item's internal clock by elapsed and reports
// whether a sample is due, resetting the clock when it fires.
func (m *MonitoredItem) DueForSampling(elapsed time.Duration) bool {
	m.msSinceSample += elapsed
	if m.msSinceSample >= m.SamplingInterval {
		m.msSinceSample = 0
		return true
	}
	return false
}
