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
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rconn/codec"
	"rconn/internal/wire"
)

// fakeTransport stands in for the real net.Conn-backed transport in
// tests, the same way the end-to-end scenarios in spec.md §8 are meant
// to be driven: the test controls exactly what bytes the "server" sends
// back and inspects exactly what bytes the client wrote.
type fakeTransport struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool

	// failAfter, when non-zero, makes the (failAfter+1)th and every later
	// write fail without recording the bytes — simulating a connection
	// that dies partway through a replay.
	failAfter int
}

func (f *fakeTransport) write(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter != 0 && len(f.writes) >= f.failAfter {
		return errWriteFailed
	}
	f.writes = append(f.writes, append([]byte(nil), b...))
	return nil
}

var errWriteFailed = errors.New("fakeTransport: simulated write failure")

func (f *fakeTransport) dropConnection() {}

func (f *fakeTransport) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) allWrites() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []byte
	for _, w := range f.writes {
		out = append(out, w...)
	}
	return out
}

func newTestClient() (*Client, *fakeTransport) {
	ft := &fakeTransport{}
	c := &Client{
		codec:   codec.Bytes{},
		queue:   newPendingQueue(),
		decoder: wire.NewDecoder(),
	}
	c.tr = ft
	c.onChannelActive()
	return c, ft
}

func await(t *testing.T, f interface {
	Await(context.Context) (any, error)
}) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return f.Await(ctx)
}

// Scenario 1: SET then GET, fed "+OK\r\n$3\r\nbar\r\n".
func TestScenario_SetThenGet(t *testing.T) {
	c, _ := newTestClient()

	setFut := c.Set("foo", "bar")
	getFut := c.Get("foo")

	c.onRead([]byte("+OK\r\n$3\r\nbar\r\n"))

	v, err := await(t, setFut)
	if err != nil || v != "OK" {
		t.Fatalf("SET: got (%v, %v), want (OK, nil)", v, err)
	}
	v, err = await(t, getFut)
	if err != nil {
		t.Fatalf("GET: unexpected error %v", err)
	}
	if !bytes.Equal(v.([]byte), []byte("bar")) {
		t.Fatalf("GET: got %q, want %q", v, "bar")
	}
}

// Scenario 2: INCR fed ":42\r\n".
func TestScenario_Incr(t *testing.T) {
	c, _ := newTestClient()
	fut := c.Incr("c")
	c.onRead([]byte(":42\r\n"))

	v, err := await(t, fut)
	if err != nil || v.(int64) != 42 {
		t.Fatalf("INCR: got (%v, %v), want (42, nil)", v, err)
	}
}

// Scenario 3: LRANGE into an empty list, fed "*0\r\n".
func TestScenario_LRangeEmpty(t *testing.T) {
	c, _ := newTestClient()
	fut := c.LRange("k", 0, -1)
	c.onRead([]byte("*0\r\n"))

	v, err := await(t, fut)
	if err != nil {
		t.Fatalf("LRANGE: unexpected error %v", err)
	}
	list := v.([][]byte)
	if len(list) != 0 {
		t.Fatalf("LRANGE: got %v, want empty", list)
	}
}

// Scenario 4: HGETALL fed the wire form of {a:1, b:2}.
func TestScenario_HGetAll(t *testing.T) {
	c, _ := newTestClient()
	fut := c.HGetAll("h")
	c.onRead([]byte("*4\r\n$1\r\na\r\n$1\r\n1\r\n$1\r\nb\r\n$1\r\n2\r\n"))

	v, err := await(t, fut)
	if err != nil {
		t.Fatalf("HGETALL: unexpected error %v", err)
	}
	m := v.(map[string][]byte)
	if string(m["a"]) != "1" || string(m["b"]) != "2" {
		t.Fatalf("HGETALL: got %v, want {a:1 b:2}", m)
	}
}

// Scenario 6: a pending GET with channel inactive, password remembered
// and db=3, is replayed as AUTH, SELECT, GET on channel_active.
func TestScenario_ReplayPrependsAuthAndSelect(t *testing.T) {
	ft := &fakeTransport{}
	c := &Client{
		codec:   codec.Bytes{},
		queue:   newPendingQueue(),
		decoder: wire.NewDecoder(),
	}
	c.tr = ft
	c.hasAuth = true
	c.authPassword = "hunter2"
	c.selectedDB = 3

	// Dispatch while inactive: queued but not written yet.
	c.dispatch(string(cmdGet), wire.NewArgWriter([]byte("GET")).Key([]byte("k")).Bytes(), wire.NewValueSink())
	if len(ft.writes) != 0 {
		t.Fatalf("expected no writes before channel_active, got %d", len(ft.writes))
	}

	c.onChannelActive()

	if len(ft.writes) != 3 {
		t.Fatalf("expected 3 writes (AUTH, SELECT, GET), got %d", len(ft.writes))
	}
	if !bytes.Contains(ft.writes[0], []byte("AUTH")) {
		t.Fatalf("write[0] = %q, want AUTH first", ft.writes[0])
	}
	if !bytes.Contains(ft.writes[1], []byte("SELECT")) {
		t.Fatalf("write[1] = %q, want SELECT second", ft.writes[1])
	}
	if !bytes.Contains(ft.writes[2], []byte("GET")) {
		t.Fatalf("write[2] = %q, want GET third", ft.writes[2])
	}
}

// A write failure partway through a replay must not drop the requests
// after the failure point: every surviving request stays queued so the
// next channel_active retries the remainder (and may redeliver the one
// that raced the failure, which is acceptable at-least-once replay).
func TestScenario_ReplaySurvivesMidWriteFailure(t *testing.T) {
	ft := &fakeTransport{}
	c := &Client{
		codec:   codec.Bytes{},
		queue:   newPendingQueue(),
		decoder: wire.NewDecoder(),
	}
	c.tr = ft

	c.dispatch(string(cmdGet), wire.NewArgWriter([]byte("GET")).Key([]byte("a")).Bytes(), wire.NewValueSink())
	c.dispatch(string(cmdGet), wire.NewArgWriter([]byte("GET")).Key([]byte("b")).Bytes(), wire.NewValueSink())
	c.dispatch(string(cmdGet), wire.NewArgWriter([]byte("GET")).Key([]byte("c")).Bytes(), wire.NewValueSink())

	ft.failAfter = 1
	c.onChannelActive()

	if len(ft.writes) != 1 {
		t.Fatalf("expected exactly 1 successful write before the simulated failure, got %d", len(ft.writes))
	}
	if got := c.queue.depth(); got != 3 {
		t.Fatalf("expected all 3 requests still queued after the failed replay, got %d", got)
	}

	ft.failAfter = 0
	c.onChannelActive()

	if len(ft.writes) != 4 {
		t.Fatalf("expected the retried replay to add 3 more writes, got %d total", len(ft.writes))
	}
	if got := c.queue.depth(); got != 3 {
		t.Fatalf("expected all 3 requests queued again awaiting replies, got %d", got)
	}
}

// A request whose Await times out must be marked cancelled so a
// subsequent reconnect does not replay it forever.
func TestScenario_TimedOutRequestSkippedOnReplay(t *testing.T) {
	c, ft := newTestClient()
	fut := c.Get("k") // never answered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := fut.Await(ctx); err != ErrTimeout {
		t.Fatalf("Await = %v, want ErrTimeout", err)
	}

	writesBefore := len(ft.writes)
	c.onChannelActive()

	if got := c.queue.depth(); got != 0 {
		t.Fatalf("expected timed-out request not to be replayed, queue depth = %d", got)
	}
	if len(ft.writes) != writesBefore {
		t.Fatalf("expected no write for a timed-out request on reconnect, got %d new write(s)", len(ft.writes)-writesBefore)
	}
}

// A request whose Await times out must discard its reply if one still
// arrives, rather than resolving its future a second time.
func TestScenario_TimedOutRequestDiscardsLateReply(t *testing.T) {
	c, _ := newTestClient()
	fut := c.Get("k")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := fut.Await(ctx); err != ErrTimeout {
		t.Fatalf("Await = %v, want ErrTimeout", err)
	}

	c.onRead([]byte("$3\r\nbar\r\n"))
	if fut.Done() {
		t.Fatalf("a cancelled request's future must not resolve once its late reply decodes")
	}
}

// Close is idempotent and fails pending requests with ErrClosed.
func TestClose_FailsPendingAndIsIdempotent(t *testing.T) {
	c, _ := newTestClient()
	fut := c.Get("k") // never answered

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	_, err := await(t, fut)
	if err != ErrClosed {
		t.Fatalf("pending request error = %v, want ErrClosed", err)
	}

	if _, err := await(t, c.Get("k2")); err != ErrClosed {
		t.Fatalf("dispatch after close = %v, want ErrClosed", err)
	}
}

// A server error reply rejects only the affected request.
func TestServerError_RejectsOnlyAffectedRequest(t *testing.T) {
	c, _ := newTestClient()

	badFut := c.Get("missing")
	goodFut := c.Incr("c")

	c.onRead([]byte("-ERR no such key\r\n:1\r\n"))

	_, err := await(t, badFut)
	if err == nil {
		t.Fatalf("expected server error for GET")
	}

	v, err := await(t, goodFut)
	if err != nil || v.(int64) != 1 {
		t.Fatalf("INCR after a sibling error: got (%v, %v), want (1, nil)", v, err)
	}
}
