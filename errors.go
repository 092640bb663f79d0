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
	"errors"

	"rconn/internal/future"
	"rconn/internal/wire"
)

// ErrClosed rejects dispatch after Close.
var ErrClosed = errors.New("rconn: client closed")

// ErrCommandInterrupted is returned by Await/AwaitAll when the waiting
// context is cancelled outright (ctx.Err() == context.Canceled) rather
// than timing out. Aliased directly to future.ErrInterrupted — not
// wrapped — so errors.Is(err, rconn.ErrCommandInterrupted) matches
// exactly what Future.Await returns; the two sentinels must never
// silently diverge.
var ErrCommandInterrupted = future.ErrInterrupted

// ErrTimeout is returned by Await/AwaitAll when the wait's deadline
// elapses before the completion resolves. Aliased directly to
// future.ErrTimeout for the same reason as ErrCommandInterrupted above.
// The affected request is marked cancelled client-side (Future's cancel
// hook, wired from dispatch.go's newRequest): it is skipped on the next
// reconnect replay, and its eventual reply, if one still arrives, is
// discarded instead of resolving the future a second time. The server
// continues executing it regardless.
var ErrTimeout = future.ErrTimeout

// ErrCodecUnavailable signals a fatal, platform-level codec failure (for
// example SHA-1 being unavailable), surfaced immediately rather than via a
// request completion.
var ErrCodecUnavailable = errors.New("rconn: codec unavailable")

// ErrUnsupportedScriptOutput is returned when a script-output type outside
// the closed enumeration (status, integer, bulk, array) is requested.
var ErrUnsupportedScriptOutput = errors.New("rconn: unsupported script output type")

// errDiscarded rejects a transaction child's completion after DISCARD.
var errDiscarded = errors.New("rconn: transaction discarded")

// ServerError is the text of a reply that began with "-". It is recorded
// on the affected request's sink and surfaced through Get/Await only —
// server errors are never retried by the reconnection supervisor.
type ServerError = wire.ServerError
