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

//go:build e2e

// Package e2e drives a real Client against a live server at
// 127.0.0.1:6379, the same "skip if unreachable" discipline the teacher's
// own e2e suite uses rather than a hermetic fake.
package e2e

import (
	"bytes"
	"context"
	"testing"
	"time"

	"rconn"
)

func dialOrSkip(t *testing.T) *rconn.Client {
	t.Helper()
	c := rconn.NewClient(rconn.WithAddr("127.0.0.1:6379"), rconn.WithDialTimeout(200*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.Ping().Await(ctx); err != nil {
		c.Close()
		t.Skipf("skipping: no server reachable on 127.0.0.1:6379: %v", err)
	}
	return c
}

func TestRconnE2E_SetGetRoundTrip(t *testing.T) {
	c := dialOrSkip(t)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := c.Set("rconn-e2e:key", "value").Await(ctx); err != nil {
		t.Fatalf("SET: %v", err)
	}
	v, err := c.Get("rconn-e2e:key").Await(ctx)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if !bytes.Equal(v.([]byte), []byte("value")) {
		t.Fatalf("GET = %q, want value", v)
	}
}

func TestRconnE2E_Transaction(t *testing.T) {
	c := dialOrSkip(t)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Multi(ctx); err != nil {
		t.Fatalf("MULTI: %v", err)
	}
	setFut := c.Set("rconn-e2e:txn", "1")
	incrFut := c.Incr("rconn-e2e:counter")

	results, err := c.Exec(ctx)
	if err != nil {
		t.Fatalf("EXEC: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("EXEC results = %v, want 2 entries", results)
	}

	if v, err := setFut.Await(ctx); err != nil || v != "OK" {
		t.Fatalf("SET child: got (%v, %v), want (OK, nil)", v, err)
	}
	if _, err := incrFut.Await(ctx); err != nil {
		t.Fatalf("INCR child: %v", err)
	}
}
