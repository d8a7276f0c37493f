// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

func TestGetNamespaces(t *testing.T) {
	_, st, _, r := newTestApi(t)
	st.RegisterNamespace(store.Namespace{Uri: "urn:a", DisplayName: "A"})

	rw := doRequest(r, http.MethodGet, "/namespaces", nil)
	require.Equal(t, http.StatusOK, rw.Code)

	var body map[string][]store.Namespace
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Len(t, body["namespaces"], 1)
	assert.Equal(t, "urn:a", body["namespaces"][0].Uri)
}

func TestGetObjectTypesFilterByNamespace(t *testing.T) {
	_, st, _, r := newTestApi(t)
	st.RegisterType(store.ObjectType{ElementId: "Motor", NamespaceUri: "urn:a"})
	st.RegisterType(store.ObjectType{ElementId: "Pump", NamespaceUri: "urn:b"})

	rw := doRequest(r, http.MethodGet, "/objecttypes?namespaceUri=urn:a", nil)
	var body map[string][]store.ObjectType
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Len(t, body["objectTypes"], 1)
	assert.Equal(t, "Motor", body["objectTypes"][0].ElementId)
}

func TestPostObjectsListOmitsUnknownIds(t *testing.T) {
	_, st, _, r := newTestApi(t)
	seedObject(st, "a.b", "Tag", "urn:a", store.Number(1))

	rw := doRequest(r, http.MethodPost, "/objects/list", elementIdsRequest{ElementIds: []string{"a.b", "missing"}})
	require.Equal(t, http.StatusOK, rw.Code)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "a.b", out[0]["elementId"])
}

type elementIdsRequest struct {
	ElementIds []string `json:"elementIds"`
}

func TestGetObjectsFilterByType(t *testing.T) {
	_, st, _, r := newTestApi(t)
	seedObject(st, "motor.1", "Motor", "urn:a", store.Number(1))
	seedObject(st, "pump.1", "Pump", "urn:a", store.Number(2))

	rw := doRequest(r, http.MethodGet, "/objects?typeId=Motor", nil)
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "motor.1", out[0]["elementId"])
}

func TestPostObjectsRelatedDirectOnlyByDefault(t *testing.T) {
	_, st, _, r := newTestApi(t)
	seedObject(st, "a", "T", "urn:a", store.Null())
	seedObject(st, "b", "T", "urn:a", store.Null())
	seedObject(st, "c", "T", "urn:a", store.Null())
	st.AddRelationship("a", "b", store.HasComponent)
	st.AddRelationship("b", "c", store.HasComponent)

	rw := doRequest(r, http.MethodPost, "/objects/related", map[string]interface{}{
		"elementId":          "a",
		"relationshipTypeId": store.HasComponent,
	})
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0]["elementId"])
}

func TestPostObjectsRelatedDepthTwoReachesSecondHop(t *testing.T) {
	_, st, _, r := newTestApi(t)
	seedObject(st, "a", "T", "urn:a", store.Null())
	seedObject(st, "b", "T", "urn:a", store.Null())
	seedObject(st, "c", "T", "urn:a", store.Null())
	st.AddRelationship("a", "b", store.HasComponent)
	st.AddRelationship("b", "c", store.HasComponent)

	rw := doRequest(r, http.MethodPost, "/objects/related", map[string]interface{}{
		"elementId":          "a",
		"relationshipTypeId": store.HasComponent,
		"depth":              2,
	})
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestPostObjectsRelatedDepthZeroIsDirectOnly(t *testing.T) {
	_, st, _, r := newTestApi(t)
	seedObject(st, "a", "T", "urn:a", store.Null())
	seedObject(st, "b", "T", "urn:a", store.Null())
	seedObject(st, "c", "T", "urn:a", store.Null())
	st.AddRelationship("a", "b", store.HasComponent)
	st.AddRelationship("b", "c", store.HasComponent)

	rw := doRequest(r, http.MethodPost, "/objects/related", map[string]interface{}{
		"elementId":          "a",
		"relationshipTypeId": store.HasComponent,
		"depth":              0,
	})
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0]["elementId"])
}

func TestPostObjectsValueDefaultMaxDepthIsDirectChildrenOnly(t *testing.T) {
	_, st, _, r := newTestApi(t)
	seedObject(st, "parent", "T", "urn:a", store.Number(1))
	seedObject(st, "child", "T", "urn:a", store.Number(2))
	seedObject(st, "grandchild", "T", "urn:a", store.Number(3))
	st.AddRelationship("parent", "child", store.HasComponent)
	st.AddRelationship("child", "grandchild", store.HasComponent)

	rw := doRequest(r, http.MethodPost, "/objects/value", map[string]interface{}{
		"elementIds": []string{"parent"},
	})
	require.Equal(t, http.StatusOK, rw.Code)

	var out map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	require.Contains(t, out, "parent")
	require.Contains(t, out["parent"], "child")
	child := out["parent"]["child"].(map[string]interface{})
	assert.NotContains(t, child, "grandchild")
}

func TestPostObjectsValueUnlimitedDepth(t *testing.T) {
	_, st, _, r := newTestApi(t)
	seedObject(st, "parent", "T", "urn:a", store.Number(1))
	seedObject(st, "child", "T", "urn:a", store.Number(2))
	seedObject(st, "grandchild", "T", "urn:a", store.Number(3))
	st.AddRelationship("parent", "child", store.HasComponent)
	st.AddRelationship("child", "grandchild", store.HasComponent)

	rw := doRequest(r, http.MethodPost, "/objects/value", map[string]interface{}{
		"elementIds": []string{"parent"},
		"maxDepth":   0,
	})

	var out map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	child := out["parent"]["child"].(map[string]interface{})
	assert.Contains(t, child, "grandchild")
}

func TestPostObjectsValueUnknownIdIsNull(t *testing.T) {
	_, _, _, r := newTestApi(t)

	rw := doRequest(r, http.MethodPost, "/objects/value", map[string]interface{}{
		"elementIds": []string{"missing"},
	})
	require.Equal(t, http.StatusOK, rw.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &out))
	require.Contains(t, out, "missing")
	assert.Nil(t, out["missing"])
}

func TestPostObjectsHistoryNotImplemented(t *testing.T) {
	_, _, _, r := newTestApi(t)
	rw := doRequest(r, http.MethodPost, "/objects/history", map[string]interface{}{})
	assert.Equal(t, http.StatusNotImplemented, rw.Code)
}

func TestPostObjectsListMalformedBodyIs400(t *testing.T) {
	_, _, _, r := newTestApi(t)
	req := httptest.NewRequest(http.MethodPost, "/objects/list", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusBadRequest, rw.Code)
}
