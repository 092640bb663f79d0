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

// Package codec defines the pluggable key/value translation the connection
// core never inspects on its own. The wire codec only ever sees bytes; it is
// this package's job to turn caller-supplied keys and values into bytes and
// back.
package codec

// Codec translates user-level keys and values to and from wire bytes. The
// connection core treats the result as opaque — it never interprets key or
// value bytes itself.
type Codec interface {
	EncodeKey(key any) ([]byte, error)
	EncodeValue(value any) ([]byte, error)
	DecodeKey(b []byte) (any, error)
	DecodeValue(b []byte) (any, error)
}

// Bytes is the default, dependency-free codec: strings and []byte pass
// through unchanged, and nothing else is accepted. It exists so the module
// is directly usable without requiring callers to write their own codec for
// the common case of byte-string keys and values.
type Bytes struct{}

// EncodeKey accepts string or []byte and returns its bytes.
func (Bytes) EncodeKey(key any) ([]byte, error) { return toBytes(key) }

// EncodeValue accepts string or []byte and returns its bytes.
func (Bytes) EncodeValue(value any) ([]byte, error) { return toBytes(value) }

// DecodeKey returns the bytes unchanged.
func (Bytes) DecodeKey(b []byte) (any, error) { return b, nil }

// DecodeValue returns the bytes unchanged.
func (Bytes) DecodeValue(b []byte) (any, error) { return b, nil }

func toBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, errUnsupportedType
	}
}

var errUnsupportedType = unsupportedTypeError{}

type unsupportedTypeError struct{}

func (unsupportedTypeError) Error() string {
	return "codec: value is not a string or []byte"
}
