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
	"crypto/sha1"
	"encoding/hex"
	"testing"
)

// Eval/EvalSHA reject an output selector outside the closed enumeration
// without dispatching anything.
func TestEval_RejectsUnsupportedScriptOutput(t *testing.T) {
	c, ft := newTestClient()

	fut := c.Eval("return 1", nil, nil, ScriptOutput(99))
	if _, err := await(t, fut); err != ErrUnsupportedScriptOutput {
		t.Fatalf("Eval error = %v, want ErrUnsupportedScriptOutput", err)
	}
	if len(ft.writes) != 0 {
		t.Fatalf("expected no write for a rejected script output, got %d", len(ft.writes))
	}
}

func TestEvalSHA_RejectsUnsupportedScriptOutput(t *testing.T) {
	c, ft := newTestClient()

	fut := c.EvalSHA("return 1", nil, nil, ScriptOutput(99))
	if _, err := await(t, fut); err != ErrUnsupportedScriptOutput {
		t.Fatalf("EvalSHA error = %v, want ErrUnsupportedScriptOutput", err)
	}
	if len(ft.writes) != 0 {
		t.Fatalf("expected no write for a rejected script output, got %d", len(ft.writes))
	}
}

// Eval with ScriptOutputInteger decodes its reply through IntSink.
func TestEval_IntegerOutput(t *testing.T) {
	c, _ := newTestClient()

	fut := c.Eval("return 1", nil, nil, ScriptOutputInteger)
	c.onRead([]byte(":7\r\n"))

	v, err := await(t, fut)
	if err != nil || v.(int64) != 7 {
		t.Fatalf("Eval: got (%v, %v), want (7, nil)", v, err)
	}
}

// codecUpper uppercases every encoded value, standing in for any
// non-identity codec: under it, EvalSHA's digest must differ from the
// digest of the script's raw bytes.
type codecUpper struct{}

func (codecUpper) EncodeKey(v any) ([]byte, error) { return []byte(v.(string)), nil }
func (codecUpper) EncodeValue(v any) ([]byte, error) {
	s := v.(string)
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		out[i] = b
	}
	return out, nil
}
func (codecUpper) DecodeKey(b []byte) (any, error)   { return b, nil }
func (codecUpper) DecodeValue(b []byte) (any, error) { return b, nil }

// ScriptSHA1 must hash the codec-encoded value bytes, not the raw script
// string — otherwise a non-identity codec's server-side SCRIPT LOAD
// digest (computed over the encoded form) would never match.
func TestScriptSHA1_UsesCodecEncodedBytes(t *testing.T) {
	c, _ := newTestClient()
	c.codec = codecUpper{}

	script := "return redis.call('get', KEYS[1])"
	got := c.ScriptSHA1(script)

	rawSum := sha1.Sum([]byte(script))
	rawDigest := hex.EncodeToString(rawSum[:])
	if got == rawDigest {
		t.Fatalf("ScriptSHA1 under a non-identity codec should not match the raw-string digest")
	}
}
