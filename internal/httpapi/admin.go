// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mapping"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

var errDuplicateId = errString("an entry with this id already exists")

// @summary Create an object type
// @tags admin
// @accept json
// @produce json
// @security ApiKeyAuth
// @param body body store.ObjectType true "object type"
// @success 201 {object} store.ObjectType
// @failure 400 {object} ErrorResponse
// @failure 409 {object} ErrorResponse
// @router /admin/objecttypes [post]
func (api *Api) postAdminObjectType(rw http.ResponseWriter, r *http.Request) {
	var t store.ObjectType
	if err := decode(r.Body, &t); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	if _, exists := api.Store.GetType(t.ElementId); exists {
		handleError(errDuplicateId, http.StatusConflict, rw)
		return
	}
	api.Store.RegisterType(t)
	writeJSON(rw, http.StatusCreated, t)
}

// @summary List object types (admin view)
// @tags admin
// @produce json
// @security ApiKeyAuth
// @success 200 {array} store.ObjectType
// @router /admin/objecttypes [get]
func (api *Api) getAdminObjectTypes(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, api.Store.GetAllTypes())
}

// @summary Update an object type
// @tags admin
// @accept json
// @produce json
// @security ApiKeyAuth
// @param id path string true "object type id"
// @param body body store.ObjectType true "object type"
// @success 200 {object} store.ObjectType
// @failure 400 {object} ErrorResponse
// @failure 404 {object} ErrorResponse
// @router /admin/objecttypes/{id} [put]
func (api *Api) putAdminObjectType(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, exists := api.Store.GetType(id); !exists {
		handleError(errUnknownObjectType, http.StatusNotFound, rw)
		return
	}
	var t store.ObjectType
	if err := decode(r.Body, &t); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	t.ElementId = id
	api.Store.RegisterType(t)
	writeJSON(rw, http.StatusOK, t)
}

var errUnknownObjectType = errString("unknown object type id")

// @summary Delete an object type
// @tags admin
// @security ApiKeyAuth
// @param id path string true "object type id"
// @success 204
// @failure 409 {object} ErrorResponse
// @router /admin/objecttypes/{id} [delete]
func (api *Api) deleteAdminObjectType(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := api.Store.DeleteType(id); err != nil {
		handleError(err, http.StatusConflict, rw)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

// @summary Create a mapping rule
// @tags admin
// @accept json
// @produce json
// @security ApiKeyAuth
// @description On success the derived broker subscription topic (each
// @description "{x}" placeholder replaced with "+") is subscribed immediately.
// @param body body config.MappingRule true "mapping rule"
// @success 201 {object} config.MappingRule
// @failure 400 {object} ErrorResponse
// @failure 409 {object} ErrorResponse
// @router /admin/mappings [post]
func (api *Api) postAdminMapping(rw http.ResponseWriter, r *http.Request) {
	var rule config.MappingRule
	if err := decode(r.Body, &rule); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	if _, exists := api.Engine.Get(rule.Id); exists {
		handleError(errDuplicateId, http.StatusConflict, rw)
		return
	}
	if err := api.Engine.Add(rule.Id, rule.TopicPattern, rule); err != nil {
		handleError(err, http.StatusConflict, rw)
		return
	}
	if api.Bridge != nil {
		topic := mapping.BrokerSubscriptionTopic(rule.TopicPattern)
		if err := api.Bridge.Subscribe(topic, 0); err != nil {
			logger.Errorf("subscribing derived topic %q for rule %q: %s", topic, rule.Id, err.Error())
		}
	}
	writeJSON(rw, http.StatusCreated, rule)
}

// @summary List mapping rules
// @tags admin
// @produce json
// @security ApiKeyAuth
// @success 200 {array} config.MappingRule
// @router /admin/mappings [get]
func (api *Api) getAdminMappings(rw http.ResponseWriter, r *http.Request) {
	rules := api.Engine.List()
	out := make([]config.MappingRule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, rule.Data)
	}
	writeJSON(rw, http.StatusOK, out)
}

var errUnknownMapping = errString("unknown mapping rule id")

// @summary Update a mapping rule
// @tags admin
// @accept json
// @produce json
// @security ApiKeyAuth
// @description Does not unsubscribe the previous rule's broker topic — a
// @description topic shared by another rule, or still wanted after a pattern
// @description change, would otherwise be dropped from under it. Stale
// @description subscriptions are harmless: the mapping engine's topic match
// @description still decides whether a delivered message is processed.
// @param id path string true "mapping rule id"
// @param body body config.MappingRule true "mapping rule"
// @success 200 {object} config.MappingRule
// @failure 400 {object} ErrorResponse
// @failure 404 {object} ErrorResponse
// @router /admin/mappings/{id} [put]
func (api *Api) putAdminMapping(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, exists := api.Engine.Get(id); !exists {
		handleError(errUnknownMapping, http.StatusNotFound, rw)
		return
	}
	var rule config.MappingRule
	if err := decode(r.Body, &rule); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}
	rule.Id = id

	api.Engine.Remove(id)
	if err := api.Engine.Add(id, rule.TopicPattern, rule); err != nil {
		handleError(err, http.StatusConflict, rw)
		return
	}
	if api.Bridge != nil {
		topic := mapping.BrokerSubscriptionTopic(rule.TopicPattern)
		if err := api.Bridge.Subscribe(topic, 0); err != nil {
			logger.Errorf("subscribing derived topic %q for rule %q: %s", topic, rule.Id, err.Error())
		}
	}
	writeJSON(rw, http.StatusOK, rule)
}

// @summary Delete a mapping rule
// @tags admin
// @security ApiKeyAuth
// @param id path string true "mapping rule id"
// @success 204
// @failure 404 {object} ErrorResponse
// @router /admin/mappings/{id} [delete]
func (api *Api) deleteAdminMapping(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !api.Engine.Remove(id) {
		handleError(errUnknownMapping, http.StatusNotFound, rw)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}
