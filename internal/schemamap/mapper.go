// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schemamap

import (
	"strings"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

// RuleSpec carries the subset of a mapping rule's configuration the mapper
// needs. It mirrors spec §4.4's named rule fields exactly; the caller (the
// ingest pipeline) supplies it from its own mapping-rule configuration type.
type RuleSpec struct {
	ElementIdTemplate   string
	ValueExtractor      string
	TimestampExtractor  string
	QualityExtractor    string
	NamespaceUri        string
	ObjectTypeId        string
	DisplayNameTemplate string
}

// Input bundles everything Map needs beyond the rule itself.
type Input struct {
	Topic       string
	Captures    map[string]string
	Decoded     store.Value
	ReceiveTime time.Time
}

// Mapped is the derived-field result of applying a RuleSpec to an Input, per
// spec §4.4 steps 1-8.
type Mapped struct {
	ElementId    string
	Value        store.Value
	Timestamp    string // RFC 3339
	Quality      string
	QualitySet   bool
	NamespaceUri string
	TypeId       string
	DisplayName  string
}

// Map derives element identity and value metadata from decoded payload data,
// following spec §4.4's eight-step algorithm.
func Map(rule RuleSpec, in Input) Mapped {
	var m Mapped

	// 1. elementId
	if rule.ElementIdTemplate != "" {
		m.ElementId = RenderTemplate(rule.ElementIdTemplate, in.Captures)
	} else {
		m.ElementId = strings.ReplaceAll(in.Topic, "/", ".")
	}

	// 2. value
	m.Value = in.Decoded
	if rule.ValueExtractor != "" {
		if extracted, ok := ExtractPath(in.Decoded, rule.ValueExtractor); ok && !extracted.IsNull() {
			m.Value = extracted
		}
	}

	// 3. timestamp
	m.Timestamp = in.ReceiveTime.UTC().Format(time.RFC3339Nano)
	if rule.TimestampExtractor != "" {
		if extracted, ok := ExtractPath(in.Decoded, rule.TimestampExtractor); ok {
			switch extracted.Kind {
			case store.KindString:
				m.Timestamp = extracted.Str
			case store.KindNumber:
				ms := int64(extracted.Number)
				m.Timestamp = time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
			}
		}
	}

	// 4. quality
	if rule.QualityExtractor != "" {
		if extracted, ok := ExtractPath(in.Decoded, rule.QualityExtractor); ok && extracted.Kind == store.KindString {
			m.Quality = extracted.Str
			m.QualitySet = true
		}
	}

	// 5. namespaceUri
	switch {
	case rule.NamespaceUri != "":
		m.NamespaceUri = RenderTemplate(rule.NamespaceUri, in.Captures)
	case in.Captures["namespace"] != "":
		m.NamespaceUri = in.Captures["namespace"]
	default:
		m.NamespaceUri = "urn:default"
	}

	// 6. typeId
	if rule.ObjectTypeId != "" {
		m.TypeId = RenderTemplate(rule.ObjectTypeId, in.Captures)
	} else {
		m.TypeId = "GenericTag"
	}

	// 7. displayName
	if rule.DisplayNameTemplate != "" {
		m.DisplayName = RenderTemplate(rule.DisplayNameTemplate, in.Captures)
	} else {
		m.DisplayName = m.ElementId
	}

	// 8. isComposition is always false for direct mapper output; the
	// Decomposer may later emit instances with isComposition set.

	return m
}
