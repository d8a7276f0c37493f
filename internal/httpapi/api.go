// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package httpapi implements the bridge's REST + SSE egress surface (spec
// §6 Egress table): read-only object/relationship browsing, subscription
// CRUD and streaming, and admin CRUD for object types and mapping rules.
// The core pipeline consumes none of this; it exists purely to expose the
// Store and SubscriptionManager to external clients.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mapping"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mqttbridge"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
	"github.com/samels-litmus/mqtt-to-i3x/internal/subscription"

	"github.com/samels-litmus/mqtt-to-i3x/pkg/log"
)

var logger = log.Component("httpapi")

// Subscriber is the slice of mqttbridge.Client the admin mapping endpoints
// need: subscribing a newly created rule's derived broker topic. Expressed
// as an interface so tests can supply a fake instead of a live broker.
type Subscriber interface {
	Subscribe(topicFilter string, qos byte) error
}

// Api bundles every collaborator the HTTP handlers need. Construct with New
// and mount with MountRoutes.
type Api struct {
	Store         *store.Store
	Subscriptions *subscription.Manager
	Engine        *mapping.Engine[config.MappingRule]
	Bridge        Subscriber
	Auth          config.AuthConfig
}

// New builds an Api. bridge may be nil in tests that never exercise admin
// mapping creation.
func New(st *store.Store, subs *subscription.Manager, engine *mapping.Engine[config.MappingRule], bridge Subscriber, auth config.AuthConfig) *Api {
	return &Api{Store: st, Subscriptions: subs, Engine: engine, Bridge: bridge, Auth: auth}
}

var _ Subscriber = (*mqttbridge.Client)(nil)

// MountRoutes registers every endpoint from spec §6's Egress table onto r.
// Admin routes are wrapped in the bearer/API-key auth middleware; read-only
// browsing and subscription routes are not (matching spec §6's "bearer/
// API-key check external to the core" scoping auth to mutation).
func (api *Api) MountRoutes(r *mux.Router) {
	r.HandleFunc("/namespaces", api.getNamespaces).Methods(http.MethodGet)

	r.HandleFunc("/objecttypes", api.getObjectTypes).Methods(http.MethodGet)
	r.HandleFunc("/objecttypes/query", api.postObjectTypesQuery).Methods(http.MethodPost)

	r.HandleFunc("/relationshiptypes", api.getRelationshipTypes).Methods(http.MethodGet)
	r.HandleFunc("/relationshiptypes/query", api.postRelationshipTypesQuery).Methods(http.MethodPost)

	r.HandleFunc("/objects", api.getObjects).Methods(http.MethodGet)
	r.HandleFunc("/objects/list", api.postObjectsList).Methods(http.MethodPost)
	r.HandleFunc("/objects/related", api.postObjectsRelated).Methods(http.MethodPost)
	r.HandleFunc("/objects/value", api.postObjectsValue).Methods(http.MethodPost)
	r.HandleFunc("/objects/history", api.postObjectsHistory).Methods(http.MethodPost)

	r.HandleFunc("/subscriptions", api.postSubscriptions).Methods(http.MethodPost)
	r.HandleFunc("/subscriptions", api.getSubscriptions).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}", api.getSubscription).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}", api.deleteSubscription).Methods(http.MethodDelete)
	r.HandleFunc("/subscriptions/{id}/register", api.postSubscriptionRegister).Methods(http.MethodPost)
	r.HandleFunc("/subscriptions/{id}/unregister", api.postSubscriptionUnregister).Methods(http.MethodPost)
	r.HandleFunc("/subscriptions/{id}/stream", api.getSubscriptionStream).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}/sync", api.postSubscriptionSync).Methods(http.MethodPost)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware(api.Auth))
	admin.HandleFunc("/objecttypes", api.postAdminObjectType).Methods(http.MethodPost)
	admin.HandleFunc("/objecttypes", api.getAdminObjectTypes).Methods(http.MethodGet)
	admin.HandleFunc("/objecttypes/{id}", api.putAdminObjectType).Methods(http.MethodPut)
	admin.HandleFunc("/objecttypes/{id}", api.deleteAdminObjectType).Methods(http.MethodDelete)

	admin.HandleFunc("/mappings", api.postAdminMapping).Methods(http.MethodPost)
	admin.HandleFunc("/mappings", api.getAdminMappings).Methods(http.MethodGet)
	admin.HandleFunc("/mappings/{id}", api.putAdminMapping).Methods(http.MethodPut)
	admin.HandleFunc("/mappings/{id}", api.deleteAdminMapping).Methods(http.MethodDelete)
}
