// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIngestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(IngestReceivedTotal)
	IngestReceivedTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(IngestReceivedTotal))

	beforeErrors := testutil.ToFloat64(IngestErrorsTotal)
	IngestErrorsTotal.Inc()
	assert.Equal(t, beforeErrors+1, testutil.ToFloat64(IngestErrorsTotal))
}

func TestObserveQueueLength(t *testing.T) {
	ObserveQueueLength("sub-1", 42)
	assert.Equal(t, float64(42), testutil.ToFloat64(SubscriptionQueueHighWater.WithLabelValues("sub-1")))
}

func TestSSEFramesTotalIncrements(t *testing.T) {
	before := testutil.ToFloat64(SSEFramesTotal)
	SSEFramesTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SSEFramesTotal))
}
