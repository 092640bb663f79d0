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

// Package wire implements the request/reply framing of the RESP protocol
// family: an array header followed by bulk strings on the way out, and a
// resumable decoder for the five reply token types on the way in.
package wire

import (
	"math"
	"strconv"
)

// ArgWriter assembles a single request as a multi-bulk array: a "*N\r\n"
// header followed by N "$len\r\n<bytes>\r\n" bulk strings. Element 0 is
// always the command name; callers append arguments in protocol order.
type ArgWriter struct {
	buf  []byte
	argc int
}

// NewArgWriter starts a request with the given command name as element 0.
func NewArgWriter(command []byte) *ArgWriter {
	w := &ArgWriter{buf: make([]byte, 0, 64)}
	w.Raw(command)
	return w
}

// Raw appends an already-encoded argument verbatim as the next bulk string.
func (w *ArgWriter) Raw(b []byte) *ArgWriter {
	w.buf = appendBulk(w.buf, b)
	w.argc++
	return w
}

// Key appends a key argument. The core never interprets the bytes; callers
// that need user-level key encoding should run it through a codec.Codec
// first and pass the result here.
func (w *ArgWriter) Key(b []byte) *ArgWriter { return w.Raw(b) }

// Value appends a value argument, same contract as Key.
func (w *ArgWriter) Value(b []byte) *ArgWriter { return w.Raw(b) }

// Int64 appends a signed 64-bit integer rendered as decimal text.
func (w *ArgWriter) Int64(v int64) *ArgWriter {
	return w.Raw(strconv.AppendInt(nil, v, 10))
}

// Double appends a double rendered per spec.md §4.A / §9: non-finite values
// render as "+inf"/"-inf"; everything else uses Go's shortest round-trip
// decimal representation, which is what strconv.FormatFloat('g', -1, 64)
// already guarantees deterministically across platforms.
func (w *ArgWriter) Double(v float64) *ArgWriter {
	return w.Raw([]byte(FormatDouble(v)))
}

// FormatDouble renders a float64 the way the wire protocol expects it.
func FormatDouble(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// Map appends each entry as two bulk strings, key then value, in the order
// iteration supplies them. Callers control ordering by passing a slice of
// pairs rather than a Go map, so insertion order is preserved.
func (w *ArgWriter) Map(pairs [][2][]byte) *ArgWriter {
	for _, kv := range pairs {
		w.Raw(kv[0])
		w.Raw(kv[1])
	}
	return w
}

// Bytes returns the full wire-ready request: the array header followed by
// the accumulated bulk strings.
func (w *ArgWriter) Bytes() []byte {
	header := appendArrayHeader(nil, w.argc)
	return append(header, w.buf...)
}

// Argc reports how many bulk-string elements have been appended so far,
// including the command name.
func (w *ArgWriter) Argc() int { return w.argc }

func appendArrayHeader(dst []byte, n int) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, '\r', '\n')
}

func appendBulk(dst []byte, b []byte) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, '\r', '\n')
	dst = append(dst, b...)
	return append(dst, '\r', '\n')
}
