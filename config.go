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
	"log"
	"time"

	"rconn/codec"
)

// Options configures a Client. The zero value is not meant to be used
// directly — build one with NewOptions and the With* functions below, the
// same functional-options shape the teacher's root package uses for its
// own construction (vsa.Options / vsa.NewWithOptions), generalized here
// into composable With* functions since a connection has substantially
// more optional collaborators than a counter does.
type Options struct {
	Addr           string
	DialTimeout    time.Duration
	CommandTimeout time.Duration
	Password       string
	DB             int
	Codec          codec.Codec
	Logger         *log.Logger
	Metrics        *Metrics
}

// Option mutates an Options value during construction.
type Option func(*Options)

// defaultOptions mirrors the reference clients' one-second connect
// timeout default and plain identity codec.
func defaultOptions() Options {
	return Options{
		Addr:        "localhost:6379",
		DialTimeout: time.Second,
		Codec:       codec.Bytes{},
		Logger:      log.Default(),
	}
}

// NewOptions builds an Options value from defaults plus the supplied
// overrides, applied in order.
func NewOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAddr sets the remote address ("host:port", or an absolute path for
// a Unix domain socket). Defaults to "localhost:6379".
func WithAddr(addr string) Option {
	return func(o *Options) { o.Addr = addr }
}

// WithDialTimeout bounds how long a single connection attempt may take.
func WithDialTimeout(d time.Duration) Option {
	return func(o *Options) { o.DialTimeout = d }
}

// WithCommandTimeout sets a default Await timeout applied by the
// synchronous AUTH/SELECT helpers whenever the ctx they're called with
// carries no deadline of its own. A caller that passes a ctx already
// bounded by context.WithTimeout/WithDeadline is unaffected by this
// setting — their own deadline always wins.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *Options) { o.CommandTimeout = d }
}

// WithPassword remembers a password to AUTH with on connect and replay on
// every subsequent reconnect.
func WithPassword(password string) Option {
	return func(o *Options) { o.Password = password }
}

// WithDB remembers a logical database number to SELECT on connect and
// replay on every subsequent reconnect.
func WithDB(db int) Option {
	return func(o *Options) { o.DB = db }
}

// WithCodec overrides the default identity codec.Bytes.
func WithCodec(c codec.Codec) Option {
	return func(o *Options) { o.Codec = c }
}

// WithLogger overrides the default log.Default() logger. Passing nil
// silences logging entirely.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics attaches a metrics Registry. Without this option the client
// runs with a nil-safe no-op registry, the same discipline the teacher
// applies to optional collaborators elsewhere in the pack.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}
