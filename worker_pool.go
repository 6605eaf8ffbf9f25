// Copyright 2026 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pagesnake

import (
	"context"
	"sync"
)

// workerPool runs submitted jobs on a fixed number of goroutines. The
// batch fetch path is the only consumer: pagination crawls are strictly
// sequential and never touch the pool.
type workerPool struct {
	queue chan func()
	wg    sync.WaitGroup
	ctx   context.Context
}

// newWorkerPool starts maxWorkers goroutines draining a queue of the
// given size. Submit blocks when the queue is full, providing
// backpressure.
func newWorkerPool(ctx context.Context, maxWorkers, queueSize int) *workerPool {
	wp := &workerPool{
		queue: make(chan func(), queueSize),
		ctx:   ctx,
	}
	for i := 0; i < maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
	return wp
}

func (wp *workerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case job, ok := <-wp.queue:
			if !ok {
				return
			}
			job()
		case <-wp.ctx.Done():
			return
		}
	}
}

// submit queues a job, blocking until there is room or the pool's
// context is cancelled.
func (wp *workerPool) submit(job func()) error {
	select {
	case wp.queue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// close stops intake and waits for in-flight jobs to finish.
func (wp *workerPool) close() {
	close(wp.queue)
	wp.wg.Wait()
}

// domainLimiter caps in-flight requests per host so one slow domain
// cannot be hammered by the whole pool at once.
type domainLimiter struct {
	mu       sync.Mutex
	perHost  int
	inFlight map[string]chan struct{}
}

func newDomainLimiter(perHost int) *domainLimiter {
	if perHost <= 0 {
		perHost = 2
	}
	return &domainLimiter{
		perHost:  perHost,
		inFlight: make(map[string]chan struct{}),
	}
}

// acquire blocks until the host has a free slot or ctx is cancelled.
// The returned release must be called exactly once.
func (dl *domainLimiter) acquire(ctx context.Context, host string) (release func(), err error) {
	dl.mu.Lock()
	slots, ok := dl.inFlight[host]
	if !ok {
		slots = make(chan struct{}, dl.perHost)
		dl.inFlight[host] = slots
	}
	dl.mu.Unlock()

	select {
	case slots <- struct{}{}:
		return func() { <-slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
