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

import "rconn/internal/wire"

// onChannelActive implements spec.md §4.F's channel_active handler: build
// the replay list (synthetic AUTH, synthetic SELECT, then every
// previously queued request, in that order), clear the pending queue,
// and re-submit everything to the newly opened channel. writeMu is held
// throughout, so no concurrent dispatch can interleave with the replay.
func (c *Client) onChannelActive() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.active = true
	password, hasAuth, db := c.authPassword, c.hasAuth, c.selectedDB

	pending := c.queue.snapshotAndClear()

	replay := make([]*request, 0, len(pending)+2)
	if hasAuth {
		replay = append(replay, newRequest(
			"AUTH",
			wire.NewArgWriter([]byte("AUTH")).Value([]byte(password)).Bytes(),
			wire.NewStatusSink(),
			c.metrics,
		))
	}
	if db != 0 {
		replay = append(replay, newRequest(
			"SELECT",
			wire.NewArgWriter([]byte("SELECT")).Int64(int64(db)).Bytes(),
			wire.NewStatusSink(),
			c.metrics,
		))
	}
	replay = append(replay, pending...)

	if c.logger != nil {
		c.logger.Printf("rconn: channel active, replaying %d pending request(s)", len(pending))
	}
	c.metrics.incReconnects()
	c.metrics.addReplayed(len(pending))

	writeFailed := false
	for _, r := range replay {
		if r.cancelled.Load() {
			continue
		}
		// Every surviving request is re-enqueued unconditionally, even
		// once a write has already failed: onChannelInactive will fire for
		// that failure, and the next onChannelActive must still find every
		// remaining request queued so it can retry them, not just the
		// ones that happened to be written before the connection died.
		c.queue.push(r)
		if writeFailed {
			continue
		}
		if err := c.tr.write(r.bytes); err != nil {
			writeFailed = true
		}
	}
	c.metrics.setPendingDepth(c.queue.depth())
}

// onChannelInactive implements spec.md §4.F's channel_inactive handler:
// if the client has been closed, drain and fail every pending request;
// otherwise leave the queue untouched for the next reconnection's replay.
func (c *Client) onChannelInactive(err error) {
	c.writeMu.Lock()
	c.active = false
	c.writeMu.Unlock()

	if c.closed.Load() {
		drained := c.queue.drainAll(ErrClosed)
		if c.logger != nil && len(drained) > 0 {
			c.logger.Printf("rconn: channel inactive after close, failed %d pending request(s)", len(drained))
		}
		return
	}
	if c.logger != nil {
		c.logger.Printf("rconn: channel inactive: %v", err)
	}
}

// onRead feeds newly received bytes to the decoder. A protocol violation
// is treated as connection loss: the decoder cannot recover its framing
// position, so the only safe move is to drop the physical connection and
// let the supervisor re-establish it and replay whatever is still
// pending.
func (c *Client) onRead(b []byte) {
	if err := c.decoder.Feed(b, c.queue); err != nil {
		if c.logger != nil {
			c.logger.Printf("rconn: protocol error, reconnecting: %v", err)
		}
		c.tr.dropConnection()
		return
	}
	c.metrics.setPendingDepth(c.queue.depth())
}
