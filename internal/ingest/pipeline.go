// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest glues the pipeline stages together: MappingEngine ->
// Extractor -> CodecRegistry -> SchemaMapper -> PayloadDecomposer -> Store,
// applying the error-handling policy of spec §7 at each stage boundary.
package ingest

import (
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/codec"
	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
	"github.com/samels-litmus/mqtt-to-i3x/internal/decompose"
	"github.com/samels-litmus/mqtt-to-i3x/internal/extract"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mapping"
	"github.com/samels-litmus/mqtt-to-i3x/internal/metrics"
	"github.com/samels-litmus/mqtt-to-i3x/internal/schemamap"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"

	"github.com/samels-litmus/mqtt-to-i3x/pkg/log"
)

var logger = log.Component("ingest")

// Pipeline owns one MappingEngine, one CodecRegistry, and the Store every
// matched, decoded message is ultimately upserted into.
type Pipeline struct {
	engine  *mapping.Engine[config.MappingRule]
	codecs  *codec.Registry
	store   *store.Store
	nowFunc func() time.Time
}

// New builds a Pipeline. engine and codecs are typically shared with the
// admin API (rule CRUD mutates the same engine instance).
func New(engine *mapping.Engine[config.MappingRule], codecs *codec.Registry, st *store.Store) *Pipeline {
	return &Pipeline{engine: engine, codecs: codecs, store: st, nowFunc: time.Now}
}

// HandleMessage processes one raw MQTT delivery. It never panics and never
// blocks on I/O; it is safe to call directly from the MQTT client's callback
// goroutine.
func (p *Pipeline) HandleMessage(topic string, payload []byte) {
	metrics.IngestReceivedTotal.Inc()
	receiveTime := p.nowFunc()

	match, ok := p.engine.Match(topic)
	if !ok {
		return // topic no-match: silent drop (spec §7)
	}
	rule := match.Rule.Data

	raw := extract.Extract(payload, rule.Extract)

	opts := rule.CodecOptions
	if opts.Endian == "" && rule.Extract != nil && rule.Extract.Endian != "" {
		opts.Endian = string(rule.Extract.Endian)
	}
	decoded, ok := p.codecs.Decode(rule.Codec, raw, opts)
	if !ok {
		metrics.IngestErrorsTotal.Inc()
		logger.Debugf("codec %q failed to decode message on topic %q", rule.Codec, topic)
		return
	}

	mapped := schemamap.Map(toRuleSpec(rule), schemamap.Input{
		Topic:       topic,
		Captures:    match.Captures,
		Decoded:     decoded,
		ReceiveTime: receiveTime,
	})

	timestamp, err := time.Parse(time.RFC3339Nano, mapped.Timestamp)
	if err != nil {
		timestamp = receiveTime
	}

	quality := ""
	if mapped.QualitySet {
		quality = mapped.Quality
	}

	instance := &store.ObjectInstance{
		ElementId:     mapped.ElementId,
		DisplayName:   mapped.DisplayName,
		TypeId:        mapped.TypeId,
		NamespaceUri:  mapped.NamespaceUri,
		IsComposition: false,
	}
	p.store.Upsert(mapped.ElementId, mapped.Value, timestamp, quality, instance)

	if rule.Decompose != nil && rule.Decompose.Enabled {
		p.decomposeAndStore(*rule.Decompose, mapped, timestamp, quality)
	}
}

func (p *Pipeline) decomposeAndStore(cfg decompose.Config, mapped schemamap.Mapped, timestamp time.Time, quality string) {
	entries := decompose.Decompose(cfg, mapped.ElementId, mapped.NamespaceUri, mapped.Value, timestamp, quality)
	for _, entry := range entries {
		inst := entry.Instance
		p.store.Upsert(inst.ElementId, entry.Value.Value, entry.Value.Timestamp, entry.Value.Quality, &inst)
		p.store.AddRelationship(entry.ParentComponentId, inst.ElementId, store.HasComponent)
		p.store.AddRelationship(inst.ElementId, entry.ParentComponentId, store.ComponentOf)
	}
}

func toRuleSpec(rule config.MappingRule) schemamap.RuleSpec {
	return schemamap.RuleSpec{
		ElementIdTemplate:   rule.ElementIdTemplate,
		ValueExtractor:      rule.ValueExtractor,
		TimestampExtractor:  rule.TimestampExtractor,
		QualityExtractor:    rule.QualityExtractor,
		NamespaceUri:        rule.NamespaceUri,
		ObjectTypeId:        rule.ObjectTypeId,
		DisplayNameTemplate: rule.DisplayNameTemplate,
	}
}
