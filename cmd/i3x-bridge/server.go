// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
	"github.com/samels-litmus/mqtt-to-i3x/internal/httpapi"
	"github.com/samels-litmus/mqtt-to-i3x/pkg/log"
	"github.com/samels-litmus/mqtt-to-i3x/pkg/runtimeEnv"
)

var httpServer *http.Server

// serverStart builds the HTTP listener for cfg and serves api's router on
// it, blocking until the server is shut down or fails to bind.
func serverStart(cfg config.ServerConfig, api *httpapi.Api) {
	httpServer = &http.Server{
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
		Handler:      api.NewRouter(flagDev),
		Addr:         cfg.Addr,
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Fatalf("starting http listener failed: %v", err)
	}

	if cfg.HttpsCertFile != "" && cfg.HttpsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.HttpsCertFile, cfg.HttpsKeyFile)
		if err != nil {
			log.Fatalf("loading X509 keypair failed: %v", err)
		}
		listener = tls.NewListener(listener, &tls.Config{
			Certificates: []tls.Certificate{cert},
			CipherSuites: []uint16{
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			},
			MinVersion:               tls.VersionTLS12,
			PreferServerCipherSuites: true,
		})
		fmt.Printf("HTTPS server listening at %s...\n", cfg.Addr)
	} else {
		fmt.Printf("HTTP server listening at %s...\n", cfg.Addr)
	}

	// The listener must be bound before dropping privileges, otherwise a
	// privileged port (e.g. 80/443) could never be taken.
	if err := runtimeEnv.DropPrivileges(cfg.User, cfg.Group); err != nil {
		log.Fatalf("error while preparing server start: %s", err.Error())
	}

	if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		log.Fatalf("starting server failed: %v", err)
	}
}

// serverShutdown gracefully drains in-flight requests before returning.
func serverShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
