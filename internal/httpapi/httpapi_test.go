// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
	"github.com/samels-litmus/mqtt-to-i3x/internal/httpapi"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mapping"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
	"github.com/samels-litmus/mqtt-to-i3x/internal/subscription"
)

// fakeSubscriber records every broker subscription requested by the admin
// mapping endpoints, avoiding any dependency on a live broker.
type fakeSubscriber struct {
	topics []string
}

func (f *fakeSubscriber) Subscribe(topicFilter string, qos byte) error {
	f.topics = append(f.topics, topicFilter)
	return nil
}

func newTestApi(t *testing.T) (*httpapi.Api, *store.Store, *fakeSubscriber, *mux.Router) {
	t.Helper()
	st := store.New()
	subs := subscription.NewManager()
	st.AddChangeListener(subs.NotifyChange)
	engine := mapping.NewEngine[config.MappingRule]()
	bridge := &fakeSubscriber{}
	api := httpapi.New(st, subs, engine, bridge, config.AuthConfig{})

	r := mux.NewRouter()
	api.MountRoutes(r)
	return api, st, bridge, r
}

func doRequest(r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	return rw
}

func seedObject(st *store.Store, elementId, typeId, namespaceUri string, value store.Value) {
	st.Upsert(elementId, value, time.Now(), "", &store.ObjectInstance{
		ElementId:    elementId,
		DisplayName:  elementId,
		TypeId:       typeId,
		NamespaceUri: namespaceUri,
	})
}
