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

// Package eventloop implements the single-threaded cooperative scheduler
// every other layer of this stack runs on: channels,
// sessions, subscriptions and PubSub writer/reader groups all have their
// mutable state touched only from the goroutine that runs Loop.Run.
// Blocking work (crypto, DNS, disk) is handed to a bounded worker pool
// instead of running inline, keeping the state-owning goroutine free of
// long operations.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/open62541-go/opcua-core/internal/corelog"
)

// TimerID identifies a scheduled callback for later cancellation.
type TimerID uint64

// timerEntry is one scheduled callback, ordered by Deadline in the heap.
type timerEntry struct {
	id       TimerID
	deadline time.Time
	interval time.Duration // 0 means one-shot
	fn       func()
	index    int
	canceled bool
}

// timerHeap implements container/heap.Interface, the same pattern a timer
// wheel needs regardless of domain; this codebase uses a plain binary heap
// rather than a wheel since PubSub/Subscription timer counts stay in the
// hundreds, not the millions a wheel is built to amortize.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// workItem is a deferred callback posted from another goroutine (e.g. a
// worker-pool completion, or an external Publish call) to run on the loop
// goroutine.
type workItem func()

// Loop is the cooperative scheduler: one goroutine runs timers and drains
// a work queue; everything it calls is expected to run to completion
// without blocking.
type Loop struct {
	log *corelog.Logger

	mu       sync.Mutex
	timers   timerHeap
	nextID   TimerID
	workCh   chan workItem
	wake     chan struct{}

	interrupts *InterruptManager
	pool       *WorkerPool

	stop chan struct{}
	done chan struct{}
}

// New constructs a Loop. workQueueSize bounds how many deferred callbacks
// can be pending before Post blocks; poolSize is the bounded worker pool
// size for Offload (0 disables offloading, running work inline - useful
// for tests).
func New(log *corelog.Logger, workQueueSize, poolSize int) *Loop {
	if workQueueSize <= 0 {
		workQueueSize = 256
	}
	l := &Loop{
		log:    log,
		workCh: make(chan workItem, workQueueSize),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	l.interrupts = NewInterruptManager(l)
	if poolSize > 0 {
		l.pool = NewWorkerPool(poolSize, l)
	}
	return l
}

// Interrupts returns the loop's InterruptManager.
func (l *Loop) Interrupts() *InterruptManager { return l.interrupts }

// After schedules fn to run once after d, returning a cancellable id.
func (l *Loop) After(d time.Duration, fn func()) TimerID {
	return l.schedule(d, 0, fn)
}

// Every schedules fn to run repeatedly every d, starting after the first
// interval elapses.
func (l *Loop) Every(d time.Duration, fn func()) TimerID {
	return l.schedule(d, d, fn)
}

func (l *Loop) schedule(d, interval time.Duration, fn func()) TimerID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	e := &timerEntry{id: l.nextID, deadline: time.Now().Add(d), interval: interval, fn: fn}
	heap.Push(&l.timers, e)
	l.signalWake()
	return e.id
}

// Cancel removes a scheduled timer. Canceling an unknown or already-fired
// one-shot id is a no-op.
func (l *Loop) Cancel(id TimerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.timers {
		if e.id == id {
			e.canceled = true
			return
		}
	}
}

// ErrLoopStopped is returned by PostCtx once the loop has been stopped and
// will never drain its work queue again.
var ErrLoopStopped = errors.New("event loop stopped")

// Post queues fn to run on the loop goroutine, for use by other goroutines
// (a worker pool completion, a transport's receive goroutine) that must
// not touch loop-owned state directly.
func (l *Loop) Post(fn func()) {
	l.workCh <- workItem(fn)
	l.signalWake()
}

// PostCtx queues fn like Post but gives up once ctx is canceled or the
// loop has stopped, so a producer goroutine can never wedge on a full work
// queue that nothing will drain again after shutdown.
func (l *Loop) PostCtx(ctx context.Context, fn func()) error {
	select {
	case l.workCh <- workItem(fn):
		l.signalWake()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrLoopStopped
	}
}

func (l *Loop) signalWake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Offload runs fn on the bounded worker pool (or inline if no pool is
// configured) and posts its result back to the loop goroutine via done,
// which runs with the loop's exclusivity guarantee.
func (l *Loop) Offload(fn func() interface{}, done func(interface{})) {
	if l.pool == nil {
		res := fn()
		l.Post(func() { done(res) })
		return
	}
	l.pool.Submit(fn, func(res interface{}) {
		l.Post(func() { done(res) })
	})
}

// Run executes the loop until ctx is canceled or Stop is called. It is
// meant to be called once, from the one goroutine that owns every piece of
// mutable state in the server. On the way out it stops the loop (so a
// ctx-cancel exit closes the stop channel too) and waits for the worker
// pool's errgroup to drain before Done is signaled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	defer func() {
		l.Stop()
		if l.pool != nil {
			_ = l.pool.Wait()
		}
	}()
	for {
		l.mu.Lock()
		var timeout <-chan time.Time
		var nextTimer *time.Timer
		if len(l.timers) > 0 {
			d := time.Until(l.timers[0].deadline)
			if d < 0 {
				d = 0
			}
			nextTimer = time.NewTimer(d)
			timeout = nextTimer.C
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			if nextTimer != nil {
				nextTimer.Stop()
			}
			return
		case <-l.stop:
			if nextTimer != nil {
				nextTimer.Stop()
			}
			return
		case item := <-l.workCh:
			if nextTimer != nil {
				nextTimer.Stop()
			}
			item()
			l.drainWork()
		case <-l.wake:
			if nextTimer != nil {
				nextTimer.Stop()
			}
			l.drainWork()
		case <-timeoutOrNever(timeout):
			l.fireDueTimers()
		}
	}
}

func timeoutOrNever(c <-chan time.Time) <-chan time.Time {
	if c == nil {
		return make(chan time.Time) // never fires; select blocks on other cases
	}
	return c
}

func (l *Loop) drainWork() {
	for {
		select {
		case item := <-l.workCh:
			item()
		default:
			return
		}
	}
}

func (l *Loop) fireDueTimers() {
	now := time.Now()
	var due []*timerEntry
	l.mu.Lock()
	for len(l.timers) > 0 && !l.timers[0].deadline.After(now) {
		e := heap.Pop(&l.timers).(*timerEntry)
		if e.canceled {
			continue
		}
		due = append(due, e)
		if e.interval > 0 {
			e.deadline = now.Add(e.interval)
			heap.Push(&l.timers, e)
		}
	}
	l.mu.Unlock()

	for _, e := range due {
		e.fn()
	}
}

// Stop requests the loop to exit; it is safe to call from any goroutine.
func (l *Loop) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// Done returns a channel closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }
