// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config decodes and validates the single JSON configuration
// document the bridge is bootstrapped from (spec §6 Configuration).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samels-litmus/mqtt-to-i3x/internal/codec"
	"github.com/samels-litmus/mqtt-to-i3x/internal/decompose"
	"github.com/samels-litmus/mqtt-to-i3x/internal/extract"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Addr string `json:"addr"`

	// Drop root permissions once the listener is bound.
	User  string `json:"user,omitempty"`
	Group string `json:"group,omitempty"`

	// If both are set, serve HTTPS using those certificates.
	HttpsCertFile string `json:"httpsCertFile,omitempty"`
	HttpsKeyFile  string `json:"httpsKeyFile,omitempty"`
}

// AuthConfig controls the admin/API auth middleware (httpapi's authMiddleware).
type AuthConfig struct {
	Enabled   bool     `json:"enabled"`
	ApiKeys   []string `json:"apiKeys,omitempty"`
	JwtSecret string   `json:"jwtSecret,omitempty"`
}

// TlsConfig configures the MQTT client's TLS transport.
type TlsConfig struct {
	CaFile             string `json:"caFile,omitempty"`
	CertFile           string `json:"certFile,omitempty"`
	KeyFile            string `json:"keyFile,omitempty"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty"`
}

// MqttConfig is the broker connection configuration.
type MqttConfig struct {
	BrokerUrl       string     `json:"brokerUrl"`
	Username        string     `json:"username,omitempty"`
	Password        string     `json:"password,omitempty"`
	Tls             *TlsConfig `json:"tls,omitempty"`
	Keepalive       int        `json:"keepalive,omitempty"`
	ReconnectPeriod int        `json:"reconnectPeriod,omitempty"` // seconds
	ProtocolVersion uint       `json:"protocolVersion,omitempty"`
}

// MappingRule is one admin-managed ingest rule: the generic payload type
// plugged into mapping.Engine[MappingRule]. Field names mirror spec §4.4/4.5
// exactly so schemamap.RuleSpec and decompose.Config can be built from it
// directly.
type MappingRule struct {
	Id           string          `json:"id"`
	TopicPattern string          `json:"topicPattern"`
	Codec        string          `json:"codec"`
	CodecOptions codec.Options   `json:"codecOptions,omitempty"`
	Extract      *extract.Spec   `json:"extract,omitempty"`

	ElementIdTemplate   string `json:"elementIdTemplate,omitempty"`
	NamespaceUri        string `json:"namespaceUri,omitempty"`
	ObjectTypeId        string `json:"objectTypeId,omitempty"`
	DisplayNameTemplate string `json:"displayNameTemplate,omitempty"`
	ValueExtractor      string `json:"valueExtractor,omitempty"`
	TimestampExtractor  string `json:"timestampExtractor,omitempty"`
	QualityExtractor    string `json:"qualityExtractor,omitempty"`

	Decompose *decompose.Config `json:"decompose,omitempty"`
}

// ProgramConfig is the root configuration document (spec §6 Configuration).
type ProgramConfig struct {
	Server      ServerConfig       `json:"server"`
	Auth        AuthConfig         `json:"auth,omitempty"`
	Mqtt        MqttConfig         `json:"mqtt"`
	Namespaces  []store.Namespace  `json:"namespaces,omitempty"`
	ObjectTypes []store.ObjectType `json:"objectTypes,omitempty"`
	Mappings    []MappingRule      `json:"mappings,omitempty"`
}

// Default returns the baseline configuration applied before a config file is
// read, matching the teacher's "defaults overwritten by file contents" style.
func Default() ProgramConfig {
	return ProgramConfig{
		Server: ServerConfig{Addr: ":8080"},
		Mqtt: MqttConfig{
			Keepalive:       30,
			ReconnectPeriod: 5,
		},
	}
}

// Load reads path, validates it against the embedded JSON Schema, and decodes
// it over Default(). A missing file is not an error; callers get the default
// configuration back.
func Load(path string) (ProgramConfig, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := Validate(raw); err != nil {
		return cfg, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	return cfg, nil
}
