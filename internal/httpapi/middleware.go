// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the fully wired top-level router: api's routes, the
// Prometheus /metrics endpoint, and — when dev is true — the swagger UI at
// /swagger/, all wrapped in the teacher's compression/recovery/CORS/logging
// middleware stack.
func (api *Api) NewRouter(dev bool) http.Handler {
	r := mux.NewRouter()
	api.MountRoutes(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if dev {
		r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	}

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	r.Use(handlers.CORS(
		handlers.AllowCredentials(),
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization", "Origin"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedOrigins([]string{"*"})))

	return handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		level := logger.Debugf
		if strings.HasPrefix(params.Request.RequestURI, "/admin/") {
			level = logger.Infof
		}
		level("%s %s (%d, %.02fkb, %dms)",
			params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, float32(params.Size)/1024,
			time.Since(params.TimeStamp).Milliseconds())
	})
}
