// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/samels-litmus/mqtt-to-i3x/internal/metrics"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
	"github.com/samels-litmus/mqtt-to-i3x/internal/subscription"
)

// subscriptionInfo is the wire shape returned for every subscription
// endpoint: id, creation time, and the current monitored-item set.
type subscriptionInfo struct {
	Id                 string   `json:"id"`
	CreatedAt          string   `json:"createdAt"`
	MaxDepth           int      `json:"maxDepth"`
	QueueHighWaterMark int      `json:"queueHighWaterMark"`
	MonitoredItems     []string `json:"monitoredItems"`
}

func toSubscriptionInfo(sub *subscription.Subscription) subscriptionInfo {
	return subscriptionInfo{
		Id:                 sub.Id.String(),
		CreatedAt:          sub.CreatedAt.UTC().Format(time.RFC3339Nano),
		MaxDepth:           sub.MaxDepth,
		QueueHighWaterMark: sub.QueueHighWaterMark,
		MonitoredItems:     sub.MonitoredItems(),
	}
}

func subscriptionIdFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

var errUnknownSubscription = errString("unknown subscription id")

type createSubscriptionRequest struct {
	MonitoredItems     []string `json:"monitoredItems,omitempty"`
	MaxDepth           int      `json:"maxDepth,omitempty"`
	QueueHighWaterMark int      `json:"queueHighWaterMark,omitempty"`
}

// @summary Create a subscription
// @tags subscriptions
// @accept json
// @produce json
// @param body body createSubscriptionRequest true "subscription options"
// @success 201 {object} subscriptionInfo
// @failure 400 {object} ErrorResponse
// @router /subscriptions [post]
func (api *Api) postSubscriptions(rw http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub := api.Subscriptions.Create(subscription.CreateOptions{
		MonitoredItems:     req.MonitoredItems,
		MaxDepth:           req.MaxDepth,
		QueueHighWaterMark: req.QueueHighWaterMark,
	})
	writeJSON(rw, http.StatusCreated, toSubscriptionInfo(sub))
}

// @summary List subscriptions
// @tags subscriptions
// @produce json
// @success 200 {array} subscriptionInfo
// @router /subscriptions [get]
func (api *Api) getSubscriptions(rw http.ResponseWriter, r *http.Request) {
	subs := api.Subscriptions.List()
	out := make([]subscriptionInfo, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionInfo(sub))
	}
	writeJSON(rw, http.StatusOK, out)
}

// @summary Get a subscription
// @tags subscriptions
// @produce json
// @param id path string true "subscription id"
// @success 200 {object} subscriptionInfo
// @failure 404 {object} ErrorResponse
// @router /subscriptions/{id} [get]
func (api *Api) getSubscription(rw http.ResponseWriter, r *http.Request) {
	id, err := subscriptionIdFromPath(r)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub, ok := api.Subscriptions.Get(id)
	if !ok {
		handleError(errUnknownSubscription, http.StatusNotFound, rw)
		return
	}
	writeJSON(rw, http.StatusOK, toSubscriptionInfo(sub))
}

// @summary Terminate a subscription
// @tags subscriptions
// @param id path string true "subscription id"
// @success 204
// @failure 404 {object} ErrorResponse
// @router /subscriptions/{id} [delete]
func (api *Api) deleteSubscription(rw http.ResponseWriter, r *http.Request) {
	id, err := subscriptionIdFromPath(r)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	if !api.Subscriptions.Delete(id) {
		handleError(errUnknownSubscription, http.StatusNotFound, rw)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

// @summary Register monitored items
// @tags subscriptions
// @accept json
// @produce json
// @param id path string true "subscription id"
// @param body body elementIdsRequest true "element ids"
// @success 200 {object} subscriptionInfo
// @failure 404 {object} ErrorResponse
// @router /subscriptions/{id}/register [post]
func (api *Api) postSubscriptionRegister(rw http.ResponseWriter, r *http.Request) {
	id, err := subscriptionIdFromPath(r)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub, ok := api.Subscriptions.Get(id)
	if !ok {
		handleError(errUnknownSubscription, http.StatusNotFound, rw)
		return
	}
	var req elementIdsRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub.Register(req.ElementIds...)
	writeJSON(rw, http.StatusOK, toSubscriptionInfo(sub))
}

// @summary Unregister monitored items
// @tags subscriptions
// @accept json
// @produce json
// @param id path string true "subscription id"
// @param body body elementIdsRequest true "element ids"
// @success 200 {object} subscriptionInfo
// @failure 404 {object} ErrorResponse
// @router /subscriptions/{id}/unregister [post]
func (api *Api) postSubscriptionUnregister(rw http.ResponseWriter, r *http.Request) {
	id, err := subscriptionIdFromPath(r)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub, ok := api.Subscriptions.Get(id)
	if !ok {
		handleError(errUnknownSubscription, http.StatusNotFound, rw)
		return
	}
	var req elementIdsRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub.Unregister(req.ElementIds...)
	writeJSON(rw, http.StatusOK, toSubscriptionInfo(sub))
}

// sseFlushWriter adapts a flushing http.ResponseWriter to
// subscription.SSEWriter.
type sseFlushWriter struct {
	rw      http.ResponseWriter
	flusher http.Flusher
}

func (w sseFlushWriter) WriteFrame(payload []byte) error {
	if _, err := w.rw.Write(payload); err != nil {
		return err
	}
	w.flusher.Flush()
	metrics.SSEFramesTotal.Inc()
	return nil
}

// @summary Stream live values over SSE
// @tags subscriptions
// @produce text/event-stream
// @param id path string true "subscription id"
// @success 200 {string} string "text/event-stream"
// @failure 404 {object} ErrorResponse
// @router /subscriptions/{id}/stream [get]
func (api *Api) getSubscriptionStream(rw http.ResponseWriter, r *http.Request) {
	id, err := subscriptionIdFromPath(r)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub, ok := api.Subscriptions.Get(id)
	if !ok {
		handleError(errUnknownSubscription, http.StatusNotFound, rw)
		return
	}

	flusher, ok := rw.(http.Flusher)
	if !ok {
		handleError(errString("streaming unsupported"), http.StatusInternalServerError, rw)
		return
	}

	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.WriteHeader(http.StatusOK)
	rw.Write([]byte(": connected\n\n"))
	flusher.Flush()

	sub.AttachSSE(sseFlushWriter{rw: rw, flusher: flusher})
	defer sub.DetachSSE()

	<-r.Context().Done()
}

// @summary Drain a subscription's pending queue
// @tags subscriptions
// @produce json
// @param id path string true "subscription id"
// @success 200 {array} vqtEntry
// @failure 404 {object} ErrorResponse
// @router /subscriptions/{id}/sync [post]
func (api *Api) postSubscriptionSync(rw http.ResponseWriter, r *http.Request) {
	id, err := subscriptionIdFromPath(r)
	if err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	sub, ok := api.Subscriptions.Get(id)
	if !ok {
		handleError(errUnknownSubscription, http.StatusNotFound, rw)
		return
	}

	drained := sub.Sync()
	out := make([]vqtRecord, 0, len(drained))
	for _, v := range drained {
		out = append(out, toVqtRecord(v))
	}
	writeJSON(rw, http.StatusOK, out)
}

// vqtRecord is one (value, quality, timestamp) record keyed by elementId,
// the shape spec §6 names for sync's drained array.
type vqtRecord struct {
	ElementId string      `json:"elementId"`
	Value     interface{} `json:"value"`
	Quality   string      `json:"quality,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func toVqtRecord(v store.ObjectValue) vqtRecord {
	return vqtRecord{
		ElementId: v.ElementId,
		Value:     v.Value.ToAny(),
		Quality:   v.Quality,
		Timestamp: v.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
