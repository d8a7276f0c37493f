// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
)

// authMiddleware enforces spec §6.3: a bearer token checked against the
// configured API keys, falling back to JWT signature verification against
// Auth.JwtSecret. A disabled Auth config is a no-op passthrough.
func authMiddleware(auth config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !auth.Enabled {
			return next
		}
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || !tokenAccepted(token, auth) {
				handleError(errUnauthorized, http.StatusUnauthorized, rw)
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}

var errUnauthorized = errString("missing or invalid bearer token")

type errString string

func (e errString) Error() string { return string(e) }

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}

func tokenAccepted(token string, auth config.AuthConfig) bool {
	for _, key := range auth.ApiKeys {
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
			return true
		}
	}
	if auth.JwtSecret == "" {
		return false
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(auth.JwtSecret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	return err == nil && parsed.Valid
}
