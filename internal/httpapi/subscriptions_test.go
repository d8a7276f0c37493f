// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

func TestCreateGetDeleteSubscription(t *testing.T) {
	_, _, _, r := newTestApi(t)

	rw := doRequest(r, http.MethodPost, "/subscriptions", map[string]interface{}{
		"monitoredItems": []string{"a.b"},
	})
	require.Equal(t, http.StatusCreated, rw.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &created))
	id := created["id"].(string)
	assert.Equal(t, float64(10000), created["queueHighWaterMark"])

	getRw := doRequest(r, http.MethodGet, "/subscriptions/"+id, nil)
	assert.Equal(t, http.StatusOK, getRw.Code)

	listRw := doRequest(r, http.MethodGet, "/subscriptions", nil)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(listRw.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	delRw := doRequest(r, http.MethodDelete, "/subscriptions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, delRw.Code)

	getAgainRw := doRequest(r, http.MethodGet, "/subscriptions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, getAgainRw.Code)
}

func TestSubscriptionUnknownIdIs404(t *testing.T) {
	_, _, _, r := newTestApi(t)
	rw := doRequest(r, http.MethodGet, "/subscriptions/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestSubscriptionMalformedIdIs400(t *testing.T) {
	_, _, _, r := newTestApi(t)
	rw := doRequest(r, http.MethodGet, "/subscriptions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestRegisterUnregisterSubscription(t *testing.T) {
	_, _, _, r := newTestApi(t)
	createRw := doRequest(r, http.MethodPost, "/subscriptions", map[string]interface{}{})
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRw.Body.Bytes(), &created))
	id := created["id"].(string)

	regRw := doRequest(r, http.MethodPost, "/subscriptions/"+id+"/register", map[string]interface{}{
		"elementIds": []string{"a.b", "c.d"},
	})
	require.Equal(t, http.StatusOK, regRw.Code)
	var reg map[string]interface{}
	require.NoError(t, json.Unmarshal(regRw.Body.Bytes(), &reg))
	assert.ElementsMatch(t, []interface{}{"a.b", "c.d"}, reg["monitoredItems"])

	unregRw := doRequest(r, http.MethodPost, "/subscriptions/"+id+"/unregister", map[string]interface{}{
		"elementIds": []string{"a.b"},
	})
	var unreg map[string]interface{}
	require.NoError(t, json.Unmarshal(unregRw.Body.Bytes(), &unreg))
	assert.ElementsMatch(t, []interface{}{"c.d"}, unreg["monitoredItems"])
}

func TestSyncDrainsQueue(t *testing.T) {
	_, st, _, r := newTestApi(t)
	createRw := doRequest(r, http.MethodPost, "/subscriptions", map[string]interface{}{
		"monitoredItems": []string{"a.b"},
	})
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRw.Body.Bytes(), &created))
	id := created["id"].(string)

	seedObject(st, "a.b", "Tag", "urn:a", store.Number(1))
	seedObject(st, "a.b", "Tag", "urn:a", store.Number(2))

	syncRw := doRequest(r, http.MethodPost, "/subscriptions/"+id+"/sync", nil)
	require.Equal(t, http.StatusOK, syncRw.Code)

	var drained []map[string]interface{}
	require.NoError(t, json.Unmarshal(syncRw.Body.Bytes(), &drained))
	require.Len(t, drained, 2)
	assert.Equal(t, float64(1), drained[0]["value"])
	assert.Equal(t, float64(2), drained[1]["value"])

	secondSyncRw := doRequest(r, http.MethodPost, "/subscriptions/"+id+"/sync", nil)
	var empty []map[string]interface{}
	require.NoError(t, json.Unmarshal(secondSyncRw.Body.Bytes(), &empty))
	assert.Empty(t, empty)
}

func TestStreamSendsConnectedPreambleThenFrame(t *testing.T) {
	_, st, _, r := newTestApi(t)
	createRw := doRequest(r, http.MethodPost, "/subscriptions", map[string]interface{}{
		"monitoredItems": []string{"a.b"},
	})
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(createRw.Body.Bytes(), &created))
	id := created["id"].(string)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/subscriptions/"+id+"/stream", nil).WithContext(ctx)
	rw := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rw, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(rw.Body.String(), ": connected")
	}, time.Second, 10*time.Millisecond)

	seedObject(st, "a.b", "Tag", "urn:a", store.Number(42))

	require.Eventually(t, func() bool {
		return strings.Contains(rw.Body.String(), `"a.b"`)
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
