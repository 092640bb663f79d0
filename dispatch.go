// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package rconn

import (
	"sync"
	"sync/atomic"
	"time"

	"rconn/internal/future"
	"rconn/internal/wire"
)

// request is one in-flight command: its encoded bytes, the sink that will
// accumulate its reply, the completion delivered to the caller, and the
// two-phase budget a transaction-scoped command needs (spec.md §3, §4.G).
//
// Two sinks are distinguished because a transaction child's reply arrives
// in two separate decoder passes: sink receives whatever token the
// decoder delivers while the request sits at the head of the pending
// queue (for a plain command, its real reply; for a transaction child,
// only the "+QUEUED" acknowledgement), while realSink is what finish
// ultimately reads once the budget reaches zero. Outside a transaction
// the two fields are the same sink.
type request struct {
	name      string // command name, for logging only
	bytes     []byte // fully wire-encoded request, ready to write verbatim
	sink      wire.Sink
	realSink  wire.Sink
	fut       *future.Future
	budget    atomic.Int32
	cancelled atomic.Bool
	dispatch  time.Time
	metrics   *Metrics
}

func newRequest(name string, bytes []byte, sink wire.Sink, metrics *Metrics) *request {
	r := &request{name: name, bytes: bytes, sink: sink, realSink: sink, dispatch: time.Now(), metrics: metrics}
	r.fut = future.NewWithCancel(func() { r.cancelled.Store(true) })
	r.budget.Store(1)
	return r
}

// decrementBudget reduces the completion budget by one and reports whether
// this call drove it to zero — i.e. whether the caller should now
// complete the request's future.
func (r *request) decrementBudget() bool {
	return r.budget.Add(-1) == 0
}

// finish resolves or rejects the request's future from its realSink,
// exactly once. Called after the budget reaches zero.
func (r *request) finish() {
	if r.cancelled.Load() {
		return
	}
	r.metrics.observeLatency(time.Since(r.dispatch))
	v, err := r.realSink.Result()
	if err != nil {
		r.fut.Reject(err)
		return
	}
	r.fut.Resolve(v)
}

// pendingQueue is the mutex-guarded FIFO shared between the dispatcher and
// the reply decoder. A plain slice with a head index mirrors the teacher's
// preference for concrete, unexciting containers (core.Store's sync.Map)
// over a generic linked structure — container/list would add a layer of
// interface{} boxing this queue does not need.
type pendingQueue struct {
	mu   sync.Mutex
	buf  []*request
	head int
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{buf: make([]*request, 0, 64)}
}

// push appends a new request to the tail.
func (q *pendingQueue) push(r *request) {
	q.mu.Lock()
	q.buf = append(q.buf, r)
	q.mu.Unlock()
}

// HeadSink implements wire.Queue: it returns the sink of the oldest
// pending request, or nil if the queue is empty. Called only from the
// transport's single reader goroutine, so no lock is needed to read a
// slice index that the dispatcher only ever appends to — but the
// dispatcher's append can reallocate the backing array concurrently, so
// this still takes the mutex.
func (q *pendingQueue) HeadSink() wire.Sink {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.buf) {
		return nil
	}
	return q.buf[q.head].sink
}

// PopHead implements wire.Queue: retires the oldest pending request once
// its reply has been fully decoded, completing it if its budget reaches
// zero (always true outside a transaction; inside one, see transaction.go
// for how the aggregate's children instead reach zero via their own
// nested PopHead-equivalent dispatch).
func (q *pendingQueue) PopHead() {
	q.mu.Lock()
	r := q.buf[q.head]
	q.buf[q.head] = nil
	q.head++
	if q.head > 256 && q.head*2 > len(q.buf) {
		q.buf = append(q.buf[:0], q.buf[q.head:]...)
		q.head = 0
	}
	q.mu.Unlock()

	if r.decrementBudget() {
		r.finish()
	}
}

// depth reports the number of requests written but not yet answered.
func (q *pendingQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}

// drainAll removes every still-pending request (used on channel_inactive
// when the client is closed, and on final Close), rejecting each one with
// err.
func (q *pendingQueue) drainAll(err error) []*request {
	q.mu.Lock()
	rest := q.buf[q.head:]
	drained := make([]*request, len(rest))
	copy(drained, rest)
	q.buf = q.buf[:0]
	q.head = 0
	q.mu.Unlock()

	for _, r := range drained {
		r.sink.SetError(err.Error())
		r.fut.Reject(err)
	}
	return drained
}

// snapshotAndClear atomically copies out every pending request (for
// reconnection replay) and empties the queue so the supervisor can
// re-enqueue them in the exact order the dispatch protocol expects.
func (q *pendingQueue) snapshotAndClear() []*request {
	q.mu.Lock()
	defer q.mu.Unlock()
	rest := q.buf[q.head:]
	snap := make([]*request, len(rest))
	copy(snap, rest)
	q.buf = q.buf[:0]
	q.head = 0
	return snap
}
