// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package subscription implements the SubscriptionManager of spec §4.7:
// monitored-item sets, bounded FIFO pending queues, SSE fanout, and drain
// (sync). It has no knowledge of HTTP; SSE delivery is abstracted behind the
// SSEWriter interface so the httpapi layer supplies the actual ResponseWriter
// flushing.
package subscription

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samels-litmus/mqtt-to-i3x/internal/metrics"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

const defaultQueueHighWaterMark = 10000

// SSEWriter is the minimal capability the manager needs from an attached SSE
// connection: write one already-framed chunk, or fail.
type SSEWriter interface {
	WriteFrame(payload []byte) error
}

// CreateOptions configures a new subscription. Zero values apply spec
// defaults (maxDepth=0 meaning unspecified depth, queueHighWaterMark=10000).
type CreateOptions struct {
	MonitoredItems     []store.ElementId
	MaxDepth           int
	QueueHighWaterMark int
}

// Subscription is one registered client's monitored-item set plus its
// bounded pending queue and (at most one) attached SSE connection.
type Subscription struct {
	Id                 uuid.UUID
	CreatedAt          time.Time
	MaxDepth           int
	QueueHighWaterMark int

	mu             sync.Mutex
	monitoredItems map[store.ElementId]struct{}
	pendingQueue   []store.ObjectValue
	sse            SSEWriter
}

// Manager owns the set of live subscriptions.
type Manager struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{subs: make(map[uuid.UUID]*Subscription)}
}

// Create installs a new subscription and returns it.
func (m *Manager) Create(opts CreateOptions) *Subscription {
	hwm := opts.QueueHighWaterMark
	if hwm <= 0 {
		hwm = defaultQueueHighWaterMark
	}

	items := make(map[store.ElementId]struct{}, len(opts.MonitoredItems))
	for _, id := range opts.MonitoredItems {
		items[id] = struct{}{}
	}

	sub := &Subscription{
		Id:                 uuid.New(),
		CreatedAt:          time.Now(),
		MaxDepth:           opts.MaxDepth,
		QueueHighWaterMark: hwm,
		monitoredItems:     items,
		pendingQueue:       make([]store.ObjectValue, 0),
	}

	m.mu.Lock()
	m.subs[sub.Id] = sub
	m.mu.Unlock()
	return sub
}

// Get returns the subscription by id, if it still exists.
func (m *Manager) Get(id uuid.UUID) (*Subscription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[id]
	return sub, ok
}

// List returns every live subscription, in no particular order.
func (m *Manager) List() []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	return out
}

// Delete drops any attached SSE writer and removes the subscription along
// with its queue. The dropped writer is not notified; it simply receives no
// further frames.
func (m *Manager) Delete(id uuid.UUID) bool {
	m.mu.Lock()
	sub, ok := m.subs[id]
	if ok {
		delete(m.subs, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	sub.mu.Lock()
	sub.sse = nil
	sub.mu.Unlock()
	return true
}

// Register adds elementIds to the monitored-item set.
func (sub *Subscription) Register(elementIds ...store.ElementId) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	for _, id := range elementIds {
		sub.monitoredItems[id] = struct{}{}
	}
}

// Unregister removes elementIds from the monitored-item set.
func (sub *Subscription) Unregister(elementIds ...store.ElementId) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	for _, id := range elementIds {
		delete(sub.monitoredItems, id)
	}
}

// MonitoredItems returns a snapshot of the currently monitored elementIds.
func (sub *Subscription) MonitoredItems() []store.ElementId {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	out := make([]store.ElementId, 0, len(sub.monitoredItems))
	for id := range sub.monitoredItems {
		out = append(out, id)
	}
	return out
}

// AttachSSE binds w as this subscription's (sole) SSE connection, replacing
// any previous writer. The replaced writer is not notified; it simply
// receives no further frames.
func (sub *Subscription) AttachSSE(w SSEWriter) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.sse = w
}

// DetachSSE clears the SSE binding, if any matches w (or unconditionally
// when w is nil).
func (sub *Subscription) DetachSSE() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.sse = nil
}

// IsStreaming reports whether an SSE connection is currently attached.
func (sub *Subscription) IsStreaming() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.sse != nil
}

// Sync atomically drains and returns the pending queue (P6: drain is
// total).
func (sub *Subscription) Sync() []store.ObjectValue {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	drained := sub.pendingQueue
	sub.pendingQueue = make([]store.ObjectValue, 0)
	return drained
}

// notify enqueues value (drop-oldest on overflow, P5) and, if an SSE
// connection is attached, attempts to push one frame. A failed write detaches
// the SSE binding but leaves the queue intact for later Sync.
func (sub *Subscription) notify(value store.ObjectValue) {
	sub.mu.Lock()
	if len(sub.pendingQueue) >= sub.QueueHighWaterMark {
		sub.pendingQueue = sub.pendingQueue[1:]
	}
	sub.pendingQueue = append(sub.pendingQueue, value)
	queueLen := len(sub.pendingQueue)
	writer := sub.sse
	sub.mu.Unlock()

	metrics.ObserveQueueLength(sub.Id.String(), queueLen)

	if writer == nil {
		return
	}

	frame := EncodeSSEFrame(value)
	if err := writer.WriteFrame(frame); err != nil {
		sub.mu.Lock()
		sub.sse = nil
		sub.mu.Unlock()
	}
}

// NotifyChange fans value out to every subscription monitoring elementId.
// Intended to be registered as a store.ChangeListener.
func (m *Manager) NotifyChange(elementId store.ElementId, value store.ObjectValue, _ *store.ObjectInstance) {
	m.mu.RLock()
	targets := make([]*Subscription, 0)
	for _, sub := range m.subs {
		sub.mu.Lock()
		_, monitored := sub.monitoredItems[elementId]
		sub.mu.Unlock()
		if monitored {
			targets = append(targets, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range targets {
		sub.notify(value)
	}
}
