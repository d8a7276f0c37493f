// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package decompose walks a nested payload Value and emits child
// ObjectInstance/ObjectValue pairs for its recognized sub-structures, per
// spec §4.5. It never touches the store directly — it returns Entry values
// for the ingest pipeline to upsert and relate.
package decompose

import (
	"strings"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/schemamap"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

// Strategy picks how nested mappings are recognized as child candidates.
type Strategy string

const (
	StrategyAbelara Strategy = "abelara"
	StrategyFlat    Strategy = "flat"
	StrategyAuto    Strategy = "auto"
)

// ChildIdStrategy picks how a child's elementId is derived.
type ChildIdStrategy string

const (
	ChildIdPath   ChildIdStrategy = "path"
	ChildIdAppend ChildIdStrategy = "append"
)

// Config is a rule's decomposition configuration (spec §4.5).
type Config struct {
	Enabled         bool            `json:"enabled"`
	Strategy        Strategy        `json:"strategy,omitempty"`
	Root            string          `json:"root,omitempty"` // path expression narrowing to a sub-tree; empty = whole payload
	ChildIdStrategy ChildIdStrategy `json:"childIdStrategy,omitempty"`
	// MaxDepth bounds recursion: nil defaults to defaultMaxDepth, 0 means
	// unlimited, any other value is the explicit bound.
	MaxDepth      *int     `json:"maxDepth,omitempty"`
	ExcludeFields []string `json:"excludeFields,omitempty"`
}

// defaultMaxDepth applies when a rule enables decomposition without setting
// maxDepth explicitly.
const defaultMaxDepth = 10

// effectiveMaxDepth resolves cfg.MaxDepth per the nil/zero/positive rule.
func (cfg Config) effectiveMaxDepth() int {
	if cfg.MaxDepth == nil {
		return defaultMaxDepth
	}
	return *cfg.MaxDepth
}

// Entry is one decomposed child: its instance, its current value, and the
// elementId of its immediate parent in the decomposition traversal.
type Entry struct {
	Instance          store.ObjectInstance
	Value             store.ObjectValue
	ParentComponentId store.ElementId
}

const (
	typeIdDecomposedComponent = "DecomposedComponent"
	typeIdScalarProperty      = "ScalarProperty"
	markerModel               = "_model"
	markerName                = "_name"
	markerPath                = "_path"
)

var markerFields = map[string]bool{markerModel: true, markerName: true, markerPath: true}

// Decompose applies cfg to root (the decoded payload of the primary
// instance) and returns every recognized descendant. parentElementId is the
// primary instance's elementId; namespaceUri, timestamp and quality are
// inherited by every emitted child.
func Decompose(cfg Config, parentElementId string, namespaceUri string, root store.Value, timestamp time.Time, quality string) []Entry {
	if !cfg.Enabled {
		return nil
	}

	subject := root
	if cfg.Root != "" {
		extracted, ok := schemamap.ExtractPath(root, cfg.Root)
		if !ok {
			return nil
		}
		subject = extracted
	}
	if subject.Kind != store.KindMap {
		return nil
	}

	var out []Entry
	walk(cfg, cfg.effectiveMaxDepth(), parentElementId, namespaceUri, subject, timestamp, quality, 1, &out)
	return out
}

func walk(cfg Config, maxDepth int, parentId, namespaceUri string, node store.Value, timestamp time.Time, quality string, depth int, out *[]Entry) {
	keys := make([]string, 0, len(node.Map))
	for k := range node.Map {
		keys = append(keys, k)
	}
	sortStrings(keys)

	for _, key := range keys {
		if markerFields[key] || excluded(cfg.ExcludeFields, key) {
			continue
		}
		field := node.Map[key]

		switch field.Kind {
		case store.KindMap:
			if !isCandidate(cfg.Strategy, field) {
				continue
			}
			childId := childElementId(cfg.ChildIdStrategy, parentId, key, field)
			displayName, typeId := abelaraMeta(field)
			if displayName == "" {
				displayName = key
			}
			inst := store.ObjectInstance{
				ElementId:     childId,
				DisplayName:   displayName,
				TypeId:        typeId,
				NamespaceUri:  namespaceUri,
				IsComposition: false,
			}
			val := store.ObjectValue{
				ElementId: childId,
				Value:     scalarSubset(field, cfg.ExcludeFields),
				Timestamp: timestamp,
				Quality:   quality,
			}
			*out = append(*out, Entry{Instance: inst, Value: val, ParentComponentId: parentId})

			if maxDepth == 0 || depth < maxDepth {
				walk(cfg, maxDepth, childId, namespaceUri, field, timestamp, quality, depth+1, out)
			}

		default:
			// Non-mapping leaf (scalar or list): always materialized as a
			// ScalarProperty child, regardless of strategy.
			childId := parentId + "." + sanitize(key)
			inst := store.ObjectInstance{
				ElementId:     childId,
				DisplayName:   key,
				TypeId:        typeIdScalarProperty,
				NamespaceUri:  namespaceUri,
				IsComposition: false,
			}
			val := store.ObjectValue{
				ElementId: childId,
				Value:     field,
				Timestamp: timestamp,
				Quality:   quality,
			}
			*out = append(*out, Entry{Instance: inst, Value: val, ParentComponentId: parentId})
		}
	}
}

func isCandidate(strategy Strategy, field store.Value) bool {
	if field.Kind != store.KindMap {
		return false
	}
	switch strategy {
	case StrategyAbelara:
		return hasAbelaraMarkers(field)
	case StrategyFlat, StrategyAuto:
		return len(field.Map) > 0
	default:
		return len(field.Map) > 0
	}
}

func hasAbelaraMarkers(field store.Value) bool {
	if _, ok := field.Map[markerName]; ok {
		return true
	}
	if _, ok := field.Map[markerModel]; ok {
		return true
	}
	return false
}

// abelaraMeta derives (displayName, typeId) for a candidate mapping: abelara
// markers win when present, regardless of strategy, matching "auto: abelara
// markers preferred; otherwise flat".
func abelaraMeta(field store.Value) (string, string) {
	displayName := ""
	typeId := typeIdDecomposedComponent

	if nameVal, ok := field.Map[markerName]; ok && nameVal.Kind == store.KindString {
		displayName = nameVal.Str
	}
	if modelVal, ok := field.Map[markerModel]; ok && modelVal.Kind == store.KindString {
		typeId = lastSlashSegment(modelVal.Str)
	}
	return displayName, typeId
}

func lastSlashSegment(s string) string {
	idx := strings.LastIndexByte(s, '/')
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

func childElementId(strategy ChildIdStrategy, parentId, key string, field store.Value) string {
	if strategy == ChildIdPath {
		if pathVal, ok := field.Map[markerPath]; ok && pathVal.Kind == store.KindString {
			return strings.ReplaceAll(pathVal.Str, "/", ".")
		}
	}
	return parentId + "." + sanitize(key)
}

func sanitize(key string) string {
	r := strings.NewReplacer(".", "_", "/", "_")
	return r.Replace(key)
}

// scalarSubset returns the non-object, non-array fields of field (minus
// excluded and marker fields) as a Map Value, or Null if none remain.
func scalarSubset(field store.Value, excludeFields []string) store.Value {
	out := make(map[string]store.Value)
	for k, v := range field.Map {
		if markerFields[k] || excluded(excludeFields, k) {
			continue
		}
		if v.Kind == store.KindMap || v.Kind == store.KindList {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return store.Null()
	}
	return store.Map(out)
}

func excluded(excludeFields []string, key string) bool {
	for _, f := range excludeFields {
		if f == key {
			return true
		}
	}
	return false
}

// sortStrings gives the traversal a deterministic field order (map iteration
// order in Go is randomized; nothing in the spec depends on order, but
// deterministic output makes tests and diffs reproducible).
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
