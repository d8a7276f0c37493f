// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package subscription

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSE struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (f *fakeSSE) WriteFrame(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection gone")
	}
	f.frames = append(f.frames, payload)
	return nil
}

func (f *fakeSSE) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestCreateDefaults(t *testing.T) {
	m := NewManager()
	sub := m.Create(CreateOptions{})
	assert.Equal(t, defaultQueueHighWaterMark, sub.QueueHighWaterMark)
	assert.Equal(t, 0, sub.MaxDepth)
	assert.WithinDuration(t, time.Now(), sub.CreatedAt, time.Second)
}

func TestZeroMonitoredItemsSyncDrainsEmpty(t *testing.T) {
	m := NewManager()
	sub := m.Create(CreateOptions{})
	assert.Empty(t, sub.Sync())
}

func TestNotifyChangeOnlyReachesMonitoringSubscriptions(t *testing.T) {
	m := NewManager()
	subA := m.Create(CreateOptions{MonitoredItems: []string{"x.y"}})
	subB := m.Create(CreateOptions{MonitoredItems: []string{"other"}})

	m.NotifyChange("x.y", store.ObjectValue{ElementId: "x.y", Value: store.Number(1), Timestamp: time.Now()}, nil)

	assert.Len(t, subA.Sync(), 1)
	assert.Empty(t, subB.Sync())
}

func TestQueueBoundDropsOldest(t *testing.T) {
	// P5
	m := NewManager()
	sub := m.Create(CreateOptions{MonitoredItems: []string{"x.y"}, QueueHighWaterMark: 3})

	for i := 0; i < 5; i++ {
		m.NotifyChange("x.y", store.ObjectValue{ElementId: "x.y", Value: store.Number(float64(i)), Timestamp: time.Now()}, nil)
	}

	drained := sub.Sync()
	require.Len(t, drained, 3)
	assert.Equal(t, 2.0, drained[0].Value.Number)
	assert.Equal(t, 3.0, drained[1].Value.Number)
	assert.Equal(t, 4.0, drained[2].Value.Number)
}

func TestSyncIsTotalDrain(t *testing.T) {
	// P6
	m := NewManager()
	sub := m.Create(CreateOptions{MonitoredItems: []string{"x.y"}})
	m.NotifyChange("x.y", store.ObjectValue{ElementId: "x.y", Value: store.Number(1), Timestamp: time.Now()}, nil)
	require.Len(t, sub.Sync(), 1)
	assert.Empty(t, sub.Sync())
}

func TestScenario4SseAndSyncAtLeastOnce(t *testing.T) {
	m := NewManager()
	sub := m.Create(CreateOptions{MonitoredItems: []string{"x.y"}, QueueHighWaterMark: 3})

	sse := &fakeSSE{}
	sub.AttachSSE(sse)

	for i := 0; i < 5; i++ {
		m.NotifyChange("x.y", store.ObjectValue{ElementId: "x.y", Value: store.Number(float64(i)), Timestamp: time.Now()}, nil)
	}
	assert.LessOrEqual(t, sse.count(), 5)

	drained := sub.Sync()
	assert.NotEmpty(t, drained)

	sub.DetachSSE()
	for i := 5; i < 9; i++ {
		m.NotifyChange("x.y", store.ObjectValue{ElementId: "x.y", Value: store.Number(float64(i)), Timestamp: time.Now()}, nil)
	}

	final := sub.Sync()
	require.Len(t, final, 3)
	assert.Equal(t, 6.0, final[0].Value.Number)
	assert.Equal(t, 7.0, final[1].Value.Number)
	assert.Equal(t, 8.0, final[2].Value.Number)
}

func TestSSEWriteFailureDetachesButKeepsQueue(t *testing.T) {
	m := NewManager()
	sub := m.Create(CreateOptions{MonitoredItems: []string{"x.y"}})
	sse := &fakeSSE{fail: true}
	sub.AttachSSE(sse)

	m.NotifyChange("x.y", store.ObjectValue{ElementId: "x.y", Value: store.Number(1), Timestamp: time.Now()}, nil)

	assert.False(t, sub.IsStreaming())
	assert.Len(t, sub.Sync(), 1)
}

func TestAttachingSecondSseEndsFirst(t *testing.T) {
	m := NewManager()
	sub := m.Create(CreateOptions{})
	first := &fakeSSE{}
	second := &fakeSSE{}
	sub.AttachSSE(first)
	sub.AttachSSE(second)
	assert.True(t, sub.IsStreaming())

	sub.Register("x.y")
	m.NotifyChange("x.y", store.ObjectValue{ElementId: "x.y", Value: store.Number(1), Timestamp: time.Now()}, nil)
	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())
}

func TestDeleteRemovesSubscriptionAndDetachesSse(t *testing.T) {
	m := NewManager()
	sub := m.Create(CreateOptions{})
	sse := &fakeSSE{}
	sub.AttachSSE(sse)

	assert.True(t, m.Delete(sub.Id))
	_, ok := m.Get(sub.Id)
	assert.False(t, ok)
	assert.False(t, sub.IsStreaming())
}

func TestDeleteUnknownIsFalse(t *testing.T) {
	m := NewManager()
	assert.False(t, m.Delete(uuid.New()))
}

func TestRegisterUnregister(t *testing.T) {
	m := NewManager()
	sub := m.Create(CreateOptions{})
	sub.Register("a", "b")
	assert.ElementsMatch(t, []string{"a", "b"}, sub.MonitoredItems())
	sub.Unregister("a")
	assert.ElementsMatch(t, []string{"b"}, sub.MonitoredItems())
}
