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
	"log"
	"sync"
	"sync/atomic"
	"time"

	"rconn/codec"
	"rconn/internal/future"
	"rconn/internal/wire"
)

// Client is a single, reusable connection core. It multiplexes
// concurrently dispatched commands over one physical link, matching
// replies to requests in FIFO order, and transparently resumes pending
// work across transient disconnections. A Client is safe for concurrent
// use by multiple goroutines.
type Client struct {
	codec          codec.Codec
	logger         *log.Logger
	metrics        *Metrics
	commandTimeout time.Duration

	queue   *pendingQueue
	decoder *wire.Decoder
	tr      transport

	// writeMu is the "connection mutex" of spec.md §5: it protects the
	// active flag and remembered session state, and serializes every
	// enqueue-and-write. The txn pointer is guarded by txnMu.
	writeMu      sync.Mutex
	active       bool
	authPassword string
	hasAuth      bool
	selectedDB   int

	txnMu sync.Mutex
	txn   *txnScope

	closed atomic.Bool
}

// NewClient constructs a Client and starts it dialing opts.Addr in the
// background — mirroring the reference clients' NewClient, which returns
// immediately and launches its connect loop as a goroutine rather than
// blocking construction on the first successful dial.
func NewClient(opts ...Option) *Client {
	o := NewOptions(opts...)
	c := &Client{
		codec:          o.Codec,
		logger:         o.Logger,
		metrics:        o.Metrics,
		commandTimeout: o.CommandTimeout,
		queue:          newPendingQueue(),
		decoder:        wire.NewDecoder(),
	}
	if o.Password != "" {
		c.authPassword = o.Password
		c.hasAuth = true
	}
	c.selectedDB = o.DB

	c.tr = newTCPTransport(o.Addr, o.DialTimeout, transportCallbacks{
		onActive:   c.onChannelActive,
		onInactive: c.onChannelInactive,
		onRead:     c.onRead,
	})
	return c
}

// dispatch implements the non-transactional path of spec.md §4.E: wrap
// name/bytes/sink into a request with budget 1 and hand it to
// enqueueAndWrite.
func (c *Client) dispatch(name string, bytes []byte, sink wire.Sink) *future.Future {
	return c.enqueueAndWrite(newRequest(name, bytes, sink, c.metrics))
}

// enqueueAndWrite performs steps 2-4 of the §4.E dispatch protocol:
// enqueue onto the pending queue, write-and-flush if the channel is
// currently active, or reject outright if the client is closed.
func (c *Client) enqueueAndWrite(r *request) *future.Future {
	if c.closed.Load() {
		r.fut.Reject(ErrClosed)
		return r.fut
	}

	// Enqueue and write under writeMu so that the order of requests on the
	// wire always equals their order in the pending queue.
	c.writeMu.Lock()
	c.queue.push(r)
	var werr error
	if c.active {
		werr = c.tr.write(r.bytes)
	}
	c.writeMu.Unlock()
	c.metrics.setPendingDepth(c.queue.depth())

	if werr != nil {
		// The write raced a connection drop. Leave the request
		// queued — onChannelInactive/onChannelActive will replay it
		// once the transport redials, per the supervisor protocol.
		c.tr.dropConnection()
	}
	return r.fut
}

// withCommandTimeout applies commandTimeout as ctx's deadline when ctx
// doesn't already carry one of its own (config.go's WithCommandTimeout,
// spec.md §3's "default timeout" field on the connection context). The
// returned cancel is always safe to defer, even when it's a no-op.
func (c *Client) withCommandTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.commandTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.commandTimeout)
}

// Auth is the synchronous AUTH variant from spec.md §4.H: it awaits the
// result and, on "OK", remembers the password so the supervisor replays
// it on every future reconnect.
func (c *Client) Auth(ctx context.Context, password string) error {
	ctx, cancel := c.withCommandTimeout(ctx)
	defer cancel()

	fut := c.dispatch("AUTH", wire.NewArgWriter([]byte("AUTH")).Value([]byte(password)).Bytes(), wire.NewStatusSink())
	v, err := fut.Await(ctx)
	if err != nil {
		return err
	}
	if s, _ := v.(string); s == "OK" {
		c.writeMu.Lock()
		c.authPassword = password
		c.hasAuth = true
		c.writeMu.Unlock()
	}
	return nil
}

// Select is the synchronous SELECT variant from spec.md §4.H: it awaits
// the result and, on "OK", remembers the database number for replay.
func (c *Client) Select(ctx context.Context, db int) error {
	ctx, cancel := c.withCommandTimeout(ctx)
	defer cancel()

	fut := c.dispatch("SELECT", wire.NewArgWriter([]byte("SELECT")).Int64(int64(db)).Bytes(), wire.NewStatusSink())
	v, err := fut.Await(ctx)
	if err != nil {
		return err
	}
	if s, _ := v.(string); s == "OK" {
		c.writeMu.Lock()
		c.selectedDB = db
		c.writeMu.Unlock()
	}
	return nil
}

// Close idempotently tears down the physical connection and fails every
// still-pending request with ErrClosed, per spec.md §4.F / §6.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.tr.close()
	drained := c.queue.drainAll(ErrClosed)
	if c.logger != nil && len(drained) > 0 {
		c.logger.Printf("rconn: close: failing %d pending request(s)", len(drained))
	}
	return err
}
