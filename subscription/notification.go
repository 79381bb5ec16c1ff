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

// Package subscription implements the OPC UA SubscriptionEngine: monitored items, sampling, notification queueing,
// publish-request matching and keepalive. It is the most intricate layer
// of the core; every mutation happens on the single EventLoop goroutine
// that drives Engine.Publish, so nothing here takes a lock.
package subscription

import (
	"github.com/open62541-go/opcua-core/ua"
)

// Notification is one sampled value or event queued for delivery, carrying
// the MonitoredItem id it came from so DataChangeNotification/
// EventNotificationList grouping can happen at drain time.
type Notification struct {
	MonitoredItemID uint32
	Value           ua.DataValue // set for a data-change notification
	EventFields     []ua.Variant // set for an event notification
	IsEvent         bool
}

// NotificationMessage is the delivery envelope: a
// per-subscription strictly-increasing SequenceNumber plus zero or more
// Notifications (empty for a keepalive).
type NotificationMessage struct {
	SequenceNumber uint32
	PublishTime    ua.DateTime
	Notifications  []Notification
	// StatusChange is set when this message carries a
	// StatusChangeNotification rather than ordinary data, the
	// lifetime-expiry delivery path.
	StatusChange ua.StatusCode
	HasStatusChange bool
}

// IsKeepalive reports whether m carries no notifications and no status
// change - an empty NotificationMessage sent solely to keep the
// subscription alive.
func (m NotificationMessage) IsKeepalive() bool {
	return len(m.Notifications) == 0 && !m.HasStatusChange
}
