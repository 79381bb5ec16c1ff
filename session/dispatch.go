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

package session

import (
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// Handler processes one decoded service request and returns the response
// value to encode, or an error that the caller translates into a
// ServiceFault. req is the already-decoded request body; resp is whatever
// concrete type the handler produces.
type Handler func(s *Session, req interface{}) (resp interface{}, err error)

// Entry pairs a Handler with whether it may run before the session is
// activated; every service except CreateSession and ActivateSession
// requires an activated session.
type Entry struct {
	Handler           Handler
	RequiresActivation bool
	Quota             OperationKind
	QuotaMax          int
}

// Dispatcher is the service dispatch table keyed by the NodeId of the
// request's type description.
type Dispatcher struct {
	table map[ua.NodeIdKey]Entry
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{table: make(map[ua.NodeIdKey]Entry)}
}

// Register binds typeID (the request's binary-encoding NodeId) to e.
func (d *Dispatcher) Register(typeID ua.NodeId, e Entry) {
	d.table[typeID.Key()] = e
}

// Dispatch looks up typeID, enforces activation and quota requirements,
// touches the session's lastActivity, and invokes the handler.
func (d *Dispatcher) Dispatch(s *Session, typeID ua.NodeId, req interface{}) (interface{}, error) {
	e, ok := d.table[typeID.Key()]
	if !ok {
		return nil, uaerrors.Wrap(uaerrors.NodeIDUnknown, "no service registered for type %s", typeID)
	}
	if e.RequiresActivation && s.State() != Activated {
		return nil, uaerrors.Wrap(uaerrors.SessionNotActivated, "session %s not activated", s.SessionID)
	}
	if s.State() == Closed {
		return nil, uaerrors.Wrap(uaerrors.SessionClosed, "session %s is closed", s.SessionID)
	}
	if e.QuotaMax > 0 {
		if err := s.CheckQuota(e.Quota, e.QuotaMax); err != nil {
			return nil, err
		}
	}
	s.Touch()
	return e.Handler(s, req)
}
