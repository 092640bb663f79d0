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
	"context"

	"rconn/internal/future"
	"rconn/internal/wire"
)

// txnScope tracks an active MULTI batch: the ordered list of commands
// queued so far and the aggregate sink that will receive EXEC's reply.
// Only one txnScope is ever active on a Client at a time; it is advisory
// state the dispatcher consults (spec.md §2, "Control").
type txnScope struct {
	agg *txnAggregateSink
}

// Multi begins a transaction. Every request dispatched after this call and
// before the matching Exec or Discard is queued server-side instead of
// executed immediately.
func (c *Client) Multi(ctx context.Context) error {
	fut := c.dispatchMulti()
	_, err := fut.Await(ctx)
	return err
}

// dispatchMulti performs the non-blocking half of Multi: open the scope
// and write the command, without waiting for its reply. Split out so
// tests can drive dispatch and decode deterministically on one goroutine
// instead of racing a blocking Await against a synthetic server reply.
func (c *Client) dispatchMulti() *future.Future {
	c.txnMu.Lock()
	if c.txn != nil {
		c.txnMu.Unlock()
		already := future.New()
		already.Resolve("OK") // already in a transaction; MULTI is idempotent here
		return already
	}
	c.txn = &txnScope{agg: newTxnAggregateSink()}
	c.txnMu.Unlock()

	return c.dispatch("MULTI", wire.NewArgWriter([]byte("MULTI")).Bytes(), wire.NewStatusSink())
}

// activeTxn returns the currently open transaction scope, or nil if none
// is active. commands.go's per-command entry points never call this
// directly; they go through dispatchInScope below.
func (c *Client) activeTxn() *txnScope {
	c.txnMu.Lock()
	defer c.txnMu.Unlock()
	return c.txn
}

// dispatchInScope is the §4.E dispatch protocol's step 1: attach a
// would-be request to the active transaction (if any) instead of
// dispatching it for immediate, independent completion.
func (c *Client) dispatchInScope(name string, bytes []byte, sink wire.Sink) *future.Future {
	scope := c.activeTxn()
	if scope == nil {
		return c.dispatch(name, bytes, sink)
	}

	// The pending-queue-visible sink only ever needs to accept the
	// "+QUEUED" status reply; the caller's real sink is parked on the
	// aggregate until EXEC's reply arrives.
	r := newRequest(name, bytes, wire.NewStatusSink(), c.metrics)
	r.realSink = sink
	r.budget.Store(2)

	scope.agg.addChild(r)
	c.enqueueAndWrite(r)
	return r.fut
}

// Exec dispatches EXEC, whose reply is an array carrying every queued
// child's real result in order. The aggregate sink decodes that array,
// forwarding each element to its owning child and completing it; EXEC's
// own completion resolves to the ordered list of child results once every
// child has resolved.
func (c *Client) Exec(ctx context.Context) ([]any, error) {
	fut := c.dispatchExec()
	if fut == nil {
		return nil, nil
	}
	v, err := fut.Await(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.([]any), nil
}

// dispatchExec is Exec's non-blocking half; see dispatchMulti.
func (c *Client) dispatchExec() *future.Future {
	c.txnMu.Lock()
	scope := c.txn
	c.txn = nil
	c.txnMu.Unlock()
	if scope == nil {
		return nil
	}
	return c.dispatch("EXEC", wire.NewArgWriter([]byte("EXEC")).Bytes(), scope.agg)
}

// Discard cancels the active transaction: queued commands' completions
// are rejected, and a plain DISCARD is dispatched. Per spec.md's Open
// Question resolution, calling Discard with no active MULTI is silently
// ignored.
func (c *Client) Discard(ctx context.Context) error {
	fut := c.dispatchDiscard()
	if fut == nil {
		return nil
	}
	_, err := fut.Await(ctx)
	return err
}

// dispatchDiscard is Discard's non-blocking half; see dispatchMulti.
func (c *Client) dispatchDiscard() *future.Future {
	c.txnMu.Lock()
	scope := c.txn
	c.txn = nil
	c.txnMu.Unlock()
	if scope == nil {
		return nil
	}

	scope.agg.cancelAll()
	return c.dispatch("DISCARD", wire.NewArgWriter([]byte("DISCARD")).Bytes(), wire.NewStatusSink())
}

// txnAggregateSink is the "transaction aggregate" output sink from
// spec.md §3/§4.G. It implements wire.Sink so the decoder drives it
// exactly like any other reply, but every Set*/Multi call after the
// opening Multi(n) is forwarded to whichever child is currently active,
// using the same push-a-frame/pop-on-exhaustion discipline the decoder
// itself uses for array nesting (internal/wire/decoder.go's collapse) —
// here applied one layer deeper, per child subtree instead of per array
// token.
type txnAggregateSink struct {
	children []*request
	idx      int
	started  bool
	expected int
	depth    []int // remaining counts for nested structure within children[idx]'s own subtree
	results  []any
	errMsg   string
	hasErr   bool
}

func newTxnAggregateSink() *txnAggregateSink {
	return &txnAggregateSink{}
}

func (a *txnAggregateSink) addChild(r *request) {
	a.children = append(a.children, r)
}

// cancelAll marks every queued child cancelled and resolves its future
// immediately with a discard error — used by DISCARD.
func (a *txnAggregateSink) cancelAll() {
	for _, r := range a.children {
		r.cancelled.Store(true)
		r.fut.Reject(errDiscarded)
	}
}

// SetError forwards an error element of EXEC's array to the active child,
// like any other leaf; an error before the opening Multi(n) (e.g.
// EXECABORT) is recorded on the aggregate itself.
func (a *txnAggregateSink) SetError(msg string) {
	if a.started && a.idx < len(a.children) {
		a.children[a.idx].realSink.SetError(msg)
		a.advanceLeaf()
		return
	}
	a.errMsg = msg
	a.hasErr = true
}
func (a *txnAggregateSink) HasError() bool { return a.hasErr }

func (a *txnAggregateSink) SetBytes(b []byte) {
	if a.idx >= len(a.children) {
		return
	}
	a.children[a.idx].realSink.SetBytes(b)
	a.advanceLeaf()
}

func (a *txnAggregateSink) SetInt(i int64) {
	if a.idx >= len(a.children) {
		return
	}
	a.children[a.idx].realSink.SetInt(i)
	a.advanceLeaf()
}

func (a *txnAggregateSink) Multi(n int) {
	if !a.started {
		a.started = true
		a.expected = n
		return
	}
	if a.idx >= len(a.children) {
		return
	}
	a.children[a.idx].realSink.Multi(n)
	if n > 0 {
		a.depth = append(a.depth, n)
		return
	}
	a.advanceLeaf()
}

// advanceLeaf accounts for one more value having been delivered to the
// currently active child (children[idx]): either a true leaf, or a nested
// array that just closed. It cascades through the child's own open
// frames exactly like decoder.collapse, and once they are all exhausted,
// completes that child and moves on to the next one.
func (a *txnAggregateSink) advanceLeaf() {
	for len(a.depth) > 0 {
		top := len(a.depth) - 1
		a.depth[top]--
		if a.depth[top] > 0 {
			return
		}
		a.depth = a.depth[:top]
	}
	a.completeChild()
}

func (a *txnAggregateSink) completeChild() {
	if a.idx >= len(a.children) {
		return
	}
	r := a.children[a.idx]
	if r.decrementBudget() {
		r.finish()
	}
	a.idx++
}

func (a *txnAggregateSink) Complete() {}

func (a *txnAggregateSink) Result() (any, error) {
	if a.hasErr {
		return nil, ServerError(a.errMsg)
	}
	if a.expected < 0 {
		return nil, nil
	}
	results := make([]any, len(a.children))
	for i, r := range a.children {
		v, _ := r.realSink.Result()
		results[i] = v
	}
	return results, nil
}
