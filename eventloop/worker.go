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
	"golang.org/x/sync/errgroup"
)

// WorkerPool is the bounded pool Loop.Offload hands blocking work to:
// N workers draining a shared job channel, each job paired with a
// completion callback. The workers run under one errgroup sharing the
// loop's lifetime - they exit when the loop stops, and Wait blocks until
// every worker has drained out, so a stopped loop never leaves crypto
// jobs running against torn-down channel state. A shared channel suffices
// because PubSub and SecureChannel jobs are stateless requests, not
// long-lived per-client bindings.
type WorkerPool struct {
	jobs chan poolJob
	loop *Loop
	grp  errgroup.Group
}

type poolJob struct {
	fn   func() interface{}
	done func(interface{})
}

// NewWorkerPool starts n worker goroutines draining a shared job queue.
func NewWorkerPool(n int, loop *Loop) *WorkerPool {
	if n <= 0 {
		n = 1
	}
	p := &WorkerPool{jobs: make(chan poolJob, n*4), loop: loop}
	for i := 0; i < n; i++ {
		p.grp.Go(p.run)
	}
	return p
}

func (p *WorkerPool) run() error {
	for {
		select {
		case job := <-p.jobs:
			job.done(job.fn())
		case <-p.loop.stop:
			return nil
		}
	}
}

// Submit enqueues fn to run on a pool worker; done is invoked with its
// result from that same worker goroutine (the caller, typically
// Loop.Offload, is responsible for posting the result back onto the loop
// goroutine before touching any loop-owned state).
func (p *WorkerPool) Submit(fn func() interface{}, done func(interface{})) {
	p.jobs <- poolJob{fn: fn, done: done}
}

// Wait blocks until every worker goroutine has exited; it returns only
// after the loop's stop channel closes.
func (p *WorkerPool) Wait() error {
	return p.grp.Wait()
}
