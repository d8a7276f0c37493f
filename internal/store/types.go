// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package store

import (
	"encoding/json"
	"time"
)

// ElementId is an opaque, store-unique string, by convention dot-segmented
// ("a.b.c"). The last segment is a display hint; the prefix is the parent path.
type ElementId = string

// Namespace maps a URI to a display name. Registration-only: never deleted by
// runtime ingest events.
type Namespace struct {
	Uri         string `json:"uri"`
	DisplayName string `json:"displayName"`
}

// ObjectType is an admin-managed catalogue entry for a class of instance.
type ObjectType struct {
	ElementId    ElementId       `json:"elementId"`
	DisplayName  string          `json:"displayName"`
	NamespaceUri string          `json:"namespaceUri"`
	Schema       json.RawMessage `json:"schema,omitempty"`
}

// RelationshipType is a catalogue entry for a directed edge kind.
type RelationshipType struct {
	ElementId    ElementId `json:"elementId"`
	DisplayName  string    `json:"displayName"`
	NamespaceUri string    `json:"namespaceUri"`
	ReverseOf    string    `json:"reverseOf"`
}

// RelationshipsNamespace is the fixed namespace the four built-in
// relationship types live under.
const RelationshipsNamespace = "urn:i3x:relationships"

// Built-in relationship type element IDs, seeded at store construction.
const (
	HasParent    = "HasParent"
	HasChildren  = "HasChildren"
	HasComponent = "HasComponent"
	ComponentOf  = "ComponentOf"
)

func builtinRelationshipTypes() []RelationshipType {
	return []RelationshipType{
		{ElementId: HasParent, DisplayName: "Has Parent", NamespaceUri: RelationshipsNamespace, ReverseOf: HasChildren},
		{ElementId: HasChildren, DisplayName: "Has Children", NamespaceUri: RelationshipsNamespace, ReverseOf: HasParent},
		{ElementId: HasComponent, DisplayName: "Has Component", NamespaceUri: RelationshipsNamespace, ReverseOf: ComponentOf},
		{ElementId: ComponentOf, DisplayName: "Component Of", NamespaceUri: RelationshipsNamespace, ReverseOf: HasComponent},
	}
}

// PlaceholderTypeId marks auto-created ancestor instances.
const PlaceholderTypeId = "Placeholder"

// ObjectInstance is a single live object in the graph. Callers only ever see
// immutable snapshots; the store exclusively owns the authoritative copy.
type ObjectInstance struct {
	ElementId     ElementId `json:"elementId"`
	DisplayName   string    `json:"displayName"`
	TypeId        string    `json:"typeId"`
	NamespaceUri  string    `json:"namespaceUri"`
	IsComposition bool      `json:"isComposition"`
}

// ObjectValue is the current (value, timestamp, quality) triple for an
// elementId. Exactly one exists per elementId at all times.
type ObjectValue struct {
	ElementId ElementId `json:"elementId"`
	Value     Value     `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Quality   string    `json:"quality,omitempty"`
}

// Edge is a directed (source, target, typeId) relationship triple.
type Edge struct {
	Source ElementId
	Target ElementId
	TypeId string
}

// ChangeListener is invoked by Upsert with (elementId, value, instance) after
// every successful write, synchronously and in upsert order. It must not
// perform long work; a panic is recovered and swallowed.
type ChangeListener func(elementId ElementId, value ObjectValue, instance *ObjectInstance)

// Stats is a point-in-time snapshot of store cardinalities.
type Stats struct {
	Values            int `json:"values"`
	Instances         int `json:"instances"`
	Types             int `json:"types"`
	Namespaces        int `json:"namespaces"`
	RelationshipTypes int `json:"relationshipTypes"`
	Edges             int `json:"edges"`
}
