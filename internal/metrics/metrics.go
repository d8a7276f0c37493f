// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes the bridge's Prometheus instrumentation: ingest
// counters (spec §7), subscription queue high-water gauges, and SSE frame
// counts. Mounted at GET /metrics alongside the REST API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestReceivedTotal counts every MQTT message the pipeline was handed,
	// including ones that no mapping rule's topic pattern matches.
	IngestReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "i3x_ingest_received_total",
		Help: "Total MQTT messages received by the ingest pipeline.",
	})

	// IngestErrorsTotal counts messages dropped after a codec failure.
	IngestErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "i3x_ingest_errors_total",
		Help: "Total ingest messages dropped due to a codec decode failure.",
	})

	// SubscriptionQueueHighWater holds, per subscription, the pending-queue
	// length at the most recent observation.
	SubscriptionQueueHighWater = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "i3x_subscription_queue_high_water",
		Help: "Most recently observed pending-queue length for a subscription.",
	}, []string{"subscription_id"})

	// SSEFramesTotal counts SSE frames successfully written to a client.
	SSEFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "i3x_sse_frames_total",
		Help: "Total SSE frames written to subscribers.",
	})
)

// ObserveQueueLength sets the high-water gauge for subscriptionId to length,
// whether or not it exceeds the previously observed value. Prometheus gauges have no
// built-in max-of accumulator, so the caller supplies the current length and
// this records it unconditionally — the /metrics consumer is expected to
// scrape frequently enough that the true high-water is visible in the series.
func ObserveQueueLength(subscriptionId string, length int) {
	SubscriptionQueueHighWater.WithLabelValues(subscriptionId).Set(float64(length))
}
