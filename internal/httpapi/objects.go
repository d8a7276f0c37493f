// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi

import (
	"net/http"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

// objectDTO is the wire shape named by spec §6's "GET /objects" response row.
type objectDTO struct {
	ElementId     string `json:"elementId"`
	DisplayName   string `json:"displayName"`
	TypeId        string `json:"typeId"`
	ParentId      string `json:"parentId,omitempty"`
	HasChildren   bool   `json:"hasChildren"`
	IsComposition bool   `json:"isComposition"`
	NamespaceUri  string `json:"namespaceUri"`
}

func (api *Api) toObjectDTO(inst store.ObjectInstance) objectDTO {
	parentId, _ := api.Store.GetParentId(inst.ElementId)
	return objectDTO{
		ElementId:     inst.ElementId,
		DisplayName:   inst.DisplayName,
		TypeId:        inst.TypeId,
		ParentId:      parentId,
		HasChildren:   api.Store.HasChildren(inst.ElementId),
		IsComposition: inst.IsComposition,
		NamespaceUri:  inst.NamespaceUri,
	}
}

// @summary List registered namespaces
// @tags objects
// @produce json
// @success 200 {object} map[string][]store.Namespace
// @router /namespaces [get]
func (api *Api) getNamespaces(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]interface{}{"namespaces": api.Store.GetAllNamespaces()})
}

// @summary List or filter object types
// @tags objects
// @produce json
// @param namespaceUri query string false "restrict to one namespace"
// @success 200 {object} map[string][]store.ObjectType
// @router /objecttypes [get]
func (api *Api) getObjectTypes(rw http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespaceUri")
	var types []store.ObjectType
	if ns != "" {
		types = api.Store.GetTypesByNamespace(ns)
	} else {
		types = api.Store.GetAllTypes()
	}
	writeJSON(rw, http.StatusOK, map[string]interface{}{"objectTypes": types})
}

type elementIdsRequest struct {
	ElementIds []string `json:"elementIds"`
}

// @summary Batch-fetch object types by id
// @tags objects
// @accept json
// @produce json
// @param body body elementIdsRequest true "element ids"
// @success 200 {object} map[string][]store.ObjectType
// @failure 400 {object} ErrorResponse
// @router /objecttypes/query [post]
func (api *Api) postObjectTypesQuery(rw http.ResponseWriter, r *http.Request) {
	var req elementIdsRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	out := make([]store.ObjectType, 0, len(req.ElementIds))
	for _, id := range req.ElementIds {
		if t, ok := api.Store.GetType(id); ok {
			out = append(out, t)
		}
	}
	writeJSON(rw, http.StatusOK, map[string]interface{}{"objectTypes": out})
}

// @summary List or filter relationship types
// @tags objects
// @produce json
// @param namespaceUri query string false "restrict to one namespace"
// @success 200 {object} map[string][]store.RelationshipType
// @router /relationshiptypes [get]
func (api *Api) getRelationshipTypes(rw http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespaceUri")
	var types []store.RelationshipType
	if ns != "" {
		types = api.Store.GetRelationshipTypesByNamespace(ns)
	} else {
		types = api.Store.GetAllRelationshipTypes()
	}
	writeJSON(rw, http.StatusOK, map[string]interface{}{"relationshipTypes": types})
}

// @summary Batch-fetch relationship types by id
// @tags objects
// @accept json
// @produce json
// @param body body elementIdsRequest true "element ids"
// @success 200 {object} map[string][]store.RelationshipType
// @failure 400 {object} ErrorResponse
// @router /relationshiptypes/query [post]
func (api *Api) postRelationshipTypesQuery(rw http.ResponseWriter, r *http.Request) {
	var req elementIdsRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	out := make([]store.RelationshipType, 0, len(req.ElementIds))
	for _, id := range req.ElementIds {
		if t, ok := api.Store.GetRelationshipType(id); ok {
			out = append(out, t)
		}
	}
	writeJSON(rw, http.StatusOK, map[string]interface{}{"relationshipTypes": out})
}

// @summary List or filter objects
// @tags objects
// @produce json
// @param namespaceUri query string false "restrict to one namespace"
// @param typeId query string false "restrict to one type"
// @success 200 {array} objectDTO
// @router /objects [get]
func (api *Api) getObjects(rw http.ResponseWriter, r *http.Request) {
	ns := r.URL.Query().Get("namespaceUri")
	typeId := r.URL.Query().Get("typeId")

	var instances []store.ObjectInstance
	switch {
	case typeId != "":
		instances = api.Store.GetInstancesByType(typeId)
	case ns != "":
		instances = api.Store.GetInstancesByNamespace(ns)
	default:
		instances = api.Store.GetAllInstances()
	}
	if ns != "" && typeId != "" {
		filtered := instances[:0]
		for _, inst := range instances {
			if inst.NamespaceUri == ns {
				filtered = append(filtered, inst)
			}
		}
		instances = filtered
	}

	out := make([]objectDTO, 0, len(instances))
	for _, inst := range instances {
		out = append(out, api.toObjectDTO(inst))
	}
	writeJSON(rw, http.StatusOK, out)
}

// @summary Batch-fetch objects by id
// @tags objects
// @accept json
// @produce json
// @param body body elementIdsRequest true "element ids"
// @success 200 {array} objectDTO
// @failure 400 {object} ErrorResponse
// @router /objects/list [post]
func (api *Api) postObjectsList(rw http.ResponseWriter, r *http.Request) {
	var req elementIdsRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	out := make([]objectDTO, 0, len(req.ElementIds))
	for _, id := range req.ElementIds {
		if inst, ok := api.Store.GetInstance(id); ok {
			out = append(out, api.toObjectDTO(inst))
		}
	}
	writeJSON(rw, http.StatusOK, out)
}

type relatedRequest struct {
	ElementId          string `json:"elementId"`
	RelationshipTypeId string `json:"relationshipTypeId,omitempty"`
	Depth              *int   `json:"depth,omitempty"`
	IncludeMetadata    bool   `json:"includeMetadata,omitempty"`
}

// @summary Traverse related objects
// @tags objects
// @accept json
// @produce json
// @param body body relatedRequest true "traversal request"
// @success 200 {array} objectDTO
// @failure 400 {object} ErrorResponse
// @router /objects/related [post]
func (api *Api) postObjectsRelated(rw http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}

	// depth=0, or omitted, means direct relations only (one hop); depth=N
	// traverses N hops (spec §6 "depth=0 → direct only").
	depth := 1
	if req.Depth != nil && *req.Depth > 0 {
		depth = *req.Depth
	}

	visited := map[string]struct{}{req.ElementId: {}}
	frontier := []string{req.ElementId}
	out := make([]objectDTO, 0)

	for hops := 0; len(frontier) > 0; hops++ {
		if hops >= depth {
			break
		}
		var next []string
		for _, id := range frontier {
			for _, targetId := range api.Store.GetRelatedElementIds(id, req.RelationshipTypeId) {
				if _, seen := visited[targetId]; seen {
					continue
				}
				visited[targetId] = struct{}{}
				if inst, ok := api.Store.GetInstance(targetId); ok {
					out = append(out, api.toObjectDTO(inst))
				}
				next = append(next, targetId)
			}
		}
		frontier = next
	}

	writeJSON(rw, http.StatusOK, out)
}

type valueRequest struct {
	ElementIds []string `json:"elementIds"`
	MaxDepth   *int     `json:"maxDepth,omitempty"`
}

type vqtEntry struct {
	Value     interface{} `json:"value"`
	Quality   string      `json:"quality,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// @summary Fetch last-known value and composition tree for objects
// @tags objects
// @accept json
// @produce json
// @param body body valueRequest true "value request"
// @success 200 {object} map[string]interface{}
// @failure 400 {object} ErrorResponse
// @router /objects/value [post]
func (api *Api) postObjectsValue(rw http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}

	maxDepth := 1
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}

	out := make(map[string]interface{}, len(req.ElementIds))
	for _, id := range req.ElementIds {
		if _, ok := api.Store.GetInstance(id); !ok {
			out[id] = nil
			continue
		}
		out[id] = api.valueTree(id, maxDepth, 0)
	}
	writeJSON(rw, http.StatusOK, out)
}

// valueTree builds the nested { data: [...], [childId]: {...} } shape for
// elementId, recursing through HasComponent edges up to maxDepth levels
// (0 means unlimited).
func (api *Api) valueTree(elementId string, maxDepth, depth int) map[string]interface{} {
	node := map[string]interface{}{}

	if val, ok := api.Store.GetValue(elementId); ok {
		node["data"] = []vqtEntry{{
			Value:     val.Value.ToAny(),
			Quality:   val.Quality,
			Timestamp: val.Timestamp.UTC().Format(time.RFC3339Nano),
		}}
	} else {
		node["data"] = []vqtEntry{}
	}

	if maxDepth != 0 && depth >= maxDepth {
		return node
	}

	for _, childId := range api.Store.GetRelatedElementIds(elementId, store.HasComponent) {
		node[childId] = api.valueTree(childId, maxDepth, depth+1)
	}
	return node
}

// @summary Historical values
// @tags objects
// @produce json
// @failure 501 {object} ErrorResponse
// @router /objects/history [post]
func (api *Api) postObjectsHistory(rw http.ResponseWriter, r *http.Request) {
	handleError(errNotImplemented, http.StatusNotImplemented, rw)
}

var errNotImplemented = errString("historical value queries are not implemented")
