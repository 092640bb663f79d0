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
	"bufio"
	"net"
	"path/filepath"
	"time"
)

// conservativeMSS mirrors the reference clients' read-buffer sizing: the
// IPv6 minimum MTU (1280) less a 40-byte IP header and a 32-byte TCP
// header with timestamps.
const conservativeMSS = 1208

// reconnectDelay is the idle period between failed dial attempts.
const reconnectDelay = 100 * time.Millisecond

// transport is the out-of-scope collaborator spec.md §1 assumes: ordered
// bytes, writability backpressure, and active/inactive callbacks. rconn
// defines the minimal shape it needs and ships exactly one concrete
// implementation, tcpTransport, built directly on net.Conn the way both
// reference Redis clients in the pack are.
type transport interface {
	// write sends a fully wire-encoded request. Safe to call concurrently
	// with read, never concurrently with itself (the caller serializes
	// writers under the connection mutex).
	write(b []byte) error
	// dropConnection forces the current physical connection closed
	// without stopping reconnection attempts.
	dropConnection()
	// close tears down the current physical connection, if any, and
	// stops any reconnection attempts in progress.
	close() error
}

// transportCallbacks are invoked by the transport's own goroutines.
// onActive fires once a new physical connection is ready to write to.
// onInactive fires after each failed dial attempt and once a physical
// connection is lost, with the (non-nil) error that caused it.
type transportCallbacks struct {
	onActive   func()
	onInactive func(err error)
	onRead     func(b []byte)
}

// tcpTransport owns a single physical net.Conn (or Unix socket) and the
// goroutine loop that dials, reconnects on failure, and reads replies —
// grounded on other_examples' xenking-redis and twokaybee-redis Client
// types, whose connect()/manage() loops this is a direct generalization
// of (adding callback hooks instead of those clients' built-in queueing,
// since rconn's dispatcher and supervisor own that state instead).
type tcpTransport struct {
	addr        string
	dialTimeout time.Duration
	cb          transportCallbacks

	mu       chan struct{} // 1-slot semaphore guarding conn
	conn     net.Conn
	closed   bool
	stopDial chan struct{}
}

func newTCPTransport(addr string, dialTimeout time.Duration, cb transportCallbacks) *tcpTransport {
	t := &tcpTransport{
		addr:        normalizeAddr(addr),
		dialTimeout: dialTimeout,
		cb:          cb,
		mu:          make(chan struct{}, 1),
		stopDial:    make(chan struct{}),
	}
	t.mu <- struct{}{}
	go t.connectLoop(true)
	return t
}

func isUnixAddr(s string) bool { return len(s) != 0 && s[0] == '/' }

func normalizeAddr(s string) string {
	if isUnixAddr(s) {
		return filepath.Clean(s)
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host = s
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	return net.JoinHostPort(host, port)
}

func (t *tcpTransport) network() string {
	if isUnixAddr(t.addr) {
		return "unix"
	}
	return "tcp"
}

// connectLoop dials, retrying with reconnectDelay between attempts, until
// it succeeds or close() has been called. On success it fires onActive
// and runs the read loop; once the read loop returns because the
// connection dropped, connectLoop redials, unless closed.
func (t *tcpTransport) connectLoop(firstAttempt bool) {
	for {
		select {
		case <-t.stopDial:
			return
		default:
		}

		conn, err := net.DialTimeout(t.network(), t.addr, t.dialTimeout)
		if err != nil {
			t.cb.onInactive(err)
			select {
			case <-time.After(reconnectDelay):
			case <-t.stopDial:
				return
			}
			continue
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.SetNoDelay(true)
			tcp.SetLinger(0)
		}

		<-t.mu
		if t.closed {
			t.mu <- struct{}{}
			conn.Close()
			return
		}
		t.conn = conn
		t.mu <- struct{}{}

		t.cb.onActive()
		t.readLoop(conn)

		// readLoop returned: the connection died. Loop back and redial
		// unless the transport has since been closed.
		<-t.mu
		closed := t.closed
		t.mu <- struct{}{}
		if closed {
			return
		}
		firstAttempt = false
		_ = firstAttempt
	}
}

func (t *tcpTransport) readLoop(conn net.Conn) {
	r := bufio.NewReaderSize(conn, conservativeMSS)
	buf := make([]byte, conservativeMSS)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			t.cb.onRead(buf[:n])
		}
		if err != nil {
			t.cb.onInactive(err)
			return
		}
	}
}

func (t *tcpTransport) write(b []byte) error {
	<-t.mu
	conn := t.conn
	t.mu <- struct{}{}
	if conn == nil {
		return ErrClosed
	}
	_, err := conn.Write(b)
	return err
}

// dropConnection forcibly closes the current physical connection without
// stopping the redial loop — used when the client detects a protocol
// violation or a failed write and wants the supervisor to re-establish
// the channel rather than abandoning it.
func (t *tcpTransport) dropConnection() {
	<-t.mu
	conn := t.conn
	t.mu <- struct{}{}
	if conn != nil {
		conn.Close()
	}
}

func (t *tcpTransport) close() error {
	<-t.mu
	if t.closed {
		t.mu <- struct{}{}
		return nil
	}
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.mu <- struct{}{}

	close(t.stopDial)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
