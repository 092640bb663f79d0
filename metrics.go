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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the connection-level Prometheus instrumentation: pending
// queue depth, reconnect and replay counts, and command latency. Every
// collector lives on its own *prometheus.Registry rather than the global
// default registry, so more than one Client (as in tests, which build many
// short-lived clients) can each hold a Metrics without a duplicate-
// registration panic — the teacher's churn package instead registers onto
// the global default once via init(), which this module cannot assume.
type Metrics struct {
	registry *prometheus.Registry

	pendingDepth    prometheus.Gauge
	reconnectsTotal prometheus.Counter
	replayedTotal   prometheus.Counter
	commandLatency  prometheus.Histogram
}

// NewMetrics builds a ready-to-use Metrics with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		pendingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rconn_pending_depth",
			Help: "Number of requests written but not yet matched to a reply.",
		}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rconn_reconnects_total",
			Help: "Number of times the connection has been re-established.",
		}),
		replayedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rconn_replayed_requests_total",
			Help: "Number of pending requests re-submitted after reconnection.",
		}),
		commandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rconn_command_latency_seconds",
			Help:    "Time from dispatch to completion for a single command.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.pendingDepth, m.reconnectsTotal, m.replayedTotal, m.commandLatency)
	return m
}

// Registry exposes the underlying registry so callers can serve it however
// they like (promhttp.HandlerFor, a federation scrape, etc).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// The methods below are nil-receiver safe: a Client built without
// WithMetrics carries a nil *Metrics, and every call site goes through
// these accessors rather than touching the collectors directly.

func (m *Metrics) setPendingDepth(n int) {
	if m == nil {
		return
	}
	m.pendingDepth.Set(float64(n))
}

func (m *Metrics) incReconnects() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

func (m *Metrics) addReplayed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.replayedTotal.Add(float64(n))
}

func (m *Metrics) observeLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.commandLatency.Observe(d.Seconds())
}
