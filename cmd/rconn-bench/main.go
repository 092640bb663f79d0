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

// Package main provides a small command-line smoke test and throughput
// benchmark for the rconn connection core. It dials a single Client,
// drives a configurable number of concurrent SET/GET loops against it, and
// reports completed-command throughput until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rconn"
)

func main() {
	addr := flag.String("addr", "localhost:6379", "server address (host:port, or an absolute path for a Unix socket)")
	password := flag.String("password", "", "AUTH password, if the server requires one")
	db := flag.Int("db", 0, "logical database to SELECT on connect")
	concurrency := flag.Int("concurrency", 8, "number of concurrent SET/GET loops")
	dialTimeout := flag.Duration("dial_timeout", time.Second, "per-attempt dial timeout")
	commandTimeout := flag.Duration("command_timeout", 2*time.Second, "per-command Await timeout")
	metricsAddr := flag.String("metrics_addr", "", "if non-empty, expose Prometheus /metrics on this address (e.g. :9090)")
	reportInterval := flag.Duration("report_interval", 2*time.Second, "how often to print a throughput line")
	flag.Parse()

	logger := log.New(os.Stdout, "rconn-bench: ", log.LstdFlags)

	metrics := rconn.NewMetrics()
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
		go func() {
			logger.Printf("serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("metrics server: %v", err)
			}
		}()
	}

	client := rconn.NewClient(
		rconn.WithAddr(*addr),
		rconn.WithPassword(*password),
		rconn.WithDB(*db),
		rconn.WithDialTimeout(*dialTimeout),
		rconn.WithCommandTimeout(*commandTimeout),
		rconn.WithLogger(logger),
		rconn.WithMetrics(metrics),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var completed atomic.Int64
	var failed atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			key := fmt.Sprintf("rconn-bench:%d", worker)
			for ctx.Err() == nil {
				runRound(ctx, client, key, *commandTimeout, &completed, &failed)
			}
		}(i)
	}

	ticker := time.NewTicker(*reportInterval)
	defer ticker.Stop()
	last := int64(0)
	logger.Printf("driving %d concurrent loop(s) against %s", *concurrency, *addr)

reportLoop:
	for {
		select {
		case <-ticker.C:
			now := completed.Load()
			logger.Printf("completed=%d (+%d) failed=%d", now, now-last, failed.Load())
			last = now
		case <-ctx.Done():
			break reportLoop
		}
	}

	logger.Printf("shutting down...")
	wg.Wait()
	if err := client.Close(); err != nil {
		logger.Printf("close: %v", err)
	}
	logger.Printf("final: completed=%d failed=%d", completed.Load(), failed.Load())
}

// runRound issues one SET followed by one GET against key, counting each
// individually. A per-round context bounds both calls to commandTimeout so
// a connection that is mid-reconnect never blocks the loop indefinitely.
func runRound(ctx context.Context, client *rconn.Client, key string, commandTimeout time.Duration, completed, failed *atomic.Int64) {
	roundCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	setFut := client.Set(key, "bench")
	if _, err := setFut.Await(roundCtx); err != nil {
		failed.Add(1)
		return
	}
	completed.Add(1)

	getFut := client.Get(key)
	if _, err := getFut.Await(roundCtx); err != nil {
		failed.Add(1)
		return
	}
	completed.Add(1)
}
