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

package eventloop

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalDispatcher delivers an OS signal notification, real or
// substituted.
type SignalDispatcher interface {
	// Notify arranges for sig to be delivered to ch.
	Notify(ch chan<- os.Signal, sig ...os.Signal)
	// Stop cancels a prior Notify registration.
	Stop(ch chan<- os.Signal)
}

// osSignalDispatcher is the real dispatcher, backed by os/signal.
type osSignalDispatcher struct{}

func (osSignalDispatcher) Notify(ch chan<- os.Signal, sig ...os.Signal) { signal.Notify(ch, sig...) }
func (osSignalDispatcher) Stop(ch chan<- os.Signal)                    { signal.Stop(ch) }

// InterruptManager routes OS signals into the event loop as ordinary
// posted work, so handlers run under the loop's single-writer guarantee
// instead of on the runtime's dedicated signal-delivery goroutine.
type InterruptManager struct {
	loop       *Loop
	dispatcher SignalDispatcher

	mu       sync.Mutex
	handlers map[os.Signal][]func()
	ch       chan os.Signal
	stop     chan struct{}
}

// NewInterruptManager constructs a manager bound to loop, using the real
// OS signal dispatcher. Tests needing determinism call SetDispatcher with
// a synchronous stand-in instead of sending real signals.
func NewInterruptManager(loop *Loop) *InterruptManager {
	return &InterruptManager{
		loop:       loop,
		dispatcher: osSignalDispatcher{},
		handlers:   make(map[os.Signal][]func()),
	}
}

// SetDispatcher overrides the signal source, for tests.
func (m *InterruptManager) SetDispatcher(d SignalDispatcher) {
	m.dispatcher = d
}

// On registers fn to run on the loop goroutine when sig is received.
// Multiple handlers for the same signal all run, in registration order.
func (m *InterruptManager) On(sig os.Signal, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[sig] = append(m.handlers[sig], fn)
}

// Start begins listening for every signal that has a registered handler
// (SIGINT, SIGTERM and SIGHUP when none is registered yet) and posts
// matching handlers onto the loop.
func (m *InterruptManager) Start() {
	m.mu.Lock()
	if m.ch != nil {
		m.mu.Unlock()
		return
	}
	m.ch = make(chan os.Signal, 4)
	m.stop = make(chan struct{})
	sigs := make([]os.Signal, 0, len(m.handlers))
	for s := range m.handlers {
		sigs = append(sigs, s)
	}
	m.mu.Unlock()

	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
	}
	m.dispatcher.Notify(m.ch, sigs...)

	go func() {
		for {
			select {
			case sig := <-m.ch:
				m.dispatch(sig)
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *InterruptManager) dispatch(sig os.Signal) {
	m.mu.Lock()
	fns := append([]func(){}, m.handlers[sig]...)
	m.mu.Unlock()
	for _, fn := range fns {
		f := fn
		m.loop.Post(f)
	}
}

// Stop cancels signal delivery.
func (m *InterruptManager) Stop() {
	m.mu.Lock()
	ch := m.ch
	stop := m.stop
	m.ch = nil
	m.mu.Unlock()
	if ch == nil {
		return
	}
	m.dispatcher.Stop(ch)
	close(stop)
}

// Dispatch delivers sig synchronously, bypassing the real OS signal path -
// for tests exercising handler wiring without sending a process signal.
func (m *InterruptManager) Dispatch(sig os.Signal) {
	m.dispatch(sig)
}
