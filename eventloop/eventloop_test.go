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
	"context"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopFiresTimerOnce(t *testing.T) {
	l := New(nil, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Stop()

	var mu sync.Mutex
	fired := 0
	l.After(10*time.Millisecond, func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, fired)
}

func TestLoopPostRunsOnLoopGoroutine(t *testing.T) {
	l := New(nil, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Stop()

	done := make(chan struct{})
	l.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted work never ran")
	}
}

func TestLoopCancelPreventsTimer(t *testing.T) {
	l := New(nil, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Stop()

	var mu sync.Mutex
	fired := false
	id := l.After(20*time.Millisecond, func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	l.Cancel(id)

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.False(t, fired)
}

func TestWorkerPoolOffload(t *testing.T) {
	l := New(nil, 0, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Stop()

	resultCh := make(chan interface{}, 1)
	l.Offload(func() interface{} {
		return 21 * 2
	}, func(res interface{}) {
		resultCh <- res
	})

	select {
	case res := <-resultCh:
		require.Equal(t, 42, res)
	case <-time.After(time.Second):
		t.Fatal("offload never completed")
	}
}

type fakeDispatcher struct{}

func (fakeDispatcher) Notify(ch chan<- os.Signal, sig ...os.Signal) {}
func (fakeDispatcher) Stop(ch chan<- os.Signal)                     {}

func TestInterruptManagerDispatchesToLoop(t *testing.T) {
	l := New(nil, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	defer l.Stop()

	im := l.Interrupts()
	im.SetDispatcher(fakeDispatcher{})
	im.Start()
	defer im.Stop()

	done := make(chan struct{})
	im.On(syscall.SIGTERM, func() { close(done) })
	im.Dispatch(syscall.SIGTERM)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("signal handler never ran")
	}
}

func TestPostCtxGivesUpOnceStopped(t *testing.T) {
	l := New(nil, 1, 0)
	l.Post(func() {}) // fills the one-slot queue; nothing is draining it
	l.Stop()
	err := l.PostCtx(context.Background(), func() {})
	require.ErrorIs(t, err, ErrLoopStopped)
}

func TestRunWaitsForWorkerPool(t *testing.T) {
	l := New(nil, 0, 2)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not drain its worker pool after cancel")
	}
}
