// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store implements the canonical, indexed, in-memory entity/value/
// relationship graph described by the i3X bridge: ObjectInstances, their
// last-known ObjectValues, and typed Relationships between them, with
// computed parent/child derivation and placeholder-parent creation.
//
// A single coarse-grained sync.RWMutex guards every map and index, matching
// the floor the bridge's concurrency model calls for: the store is logically
// single-writer, many-reader.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/pkg/log"
)

var logger = log.Component("store")

// Store is the canonical object/value/relationship graph. Zero value is not
// usable; construct with New().
type Store struct {
	mu sync.RWMutex

	values    map[ElementId]ObjectValue
	instances map[ElementId]ObjectInstance

	namespaces map[string]Namespace
	types      map[string]ObjectType
	relTypes   map[string]RelationshipType

	namespaceIndex map[string]map[ElementId]struct{}
	typeIndex      map[string]map[ElementId]struct{}

	relationships map[ElementId][]Edge
	targetIndex   map[ElementId]map[ElementId]struct{}

	listeners   map[int]ChangeListener
	listenerSeq int

	now func() time.Time
}

// New constructs an empty Store with the four built-in relationship types
// seeded (I1's counterpart catalogue; see spec §3).
func New() *Store {
	s := &Store{
		values:         make(map[ElementId]ObjectValue),
		instances:      make(map[ElementId]ObjectInstance),
		namespaces:     make(map[string]Namespace),
		types:          make(map[string]ObjectType),
		relTypes:       make(map[string]RelationshipType),
		namespaceIndex: make(map[string]map[ElementId]struct{}),
		typeIndex:      make(map[string]map[ElementId]struct{}),
		relationships:  make(map[ElementId][]Edge),
		targetIndex:    make(map[ElementId]map[ElementId]struct{}),
		listeners:      make(map[int]ChangeListener),
		now:            time.Now,
	}
	for _, rt := range builtinRelationshipTypes() {
		s.relTypes[rt.ElementId] = rt
	}
	return s
}

// ---- values ----------------------------------------------------------

// Upsert replaces the value for elementId and, if instance is non-nil,
// installs/replaces the instance, recomputes its placeholder ancestry, and
// maintains the HasParent/HasChildren edges (spec §4.6 "Upsert algorithm").
func (s *Store) Upsert(elementId ElementId, value Value, timestamp time.Time, quality string, instance *ObjectInstance) {
	s.mu.Lock()

	ov := ObjectValue{ElementId: elementId, Value: value, Timestamp: timestamp, Quality: quality}
	s.values[elementId] = ov

	var snapshot *ObjectInstance
	if instance != nil {
		inst := *instance
		inst.ElementId = elementId
		s.installInstance(inst)
		snap := inst
		snapshot = &snap
	}

	listeners := make([]ChangeListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.invokeListener(l, elementId, ov, snapshot)
	}
}

func (s *Store) invokeListener(l ChangeListener, elementId ElementId, value ObjectValue, instance *ObjectInstance) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("change listener panicked: %v", r)
		}
	}()
	l(elementId, value, instance)
}

// installInstance must be called with s.mu held for writing.
func (s *Store) installInstance(inst ObjectInstance) {
	if old, ok := s.instances[inst.ElementId]; ok {
		s.removeFromSecondaryIndices(old)
	}
	s.instances[inst.ElementId] = inst
	s.addToSecondaryIndices(inst)

	parentId := parentPrefix(inst.ElementId)
	if parentId != "" && parentId != inst.ElementId {
		s.ensureParentExists(parentId, inst.NamespaceUri)
		s.removeEdgesFrom(inst.ElementId, HasParent)
		s.addEdgeLocked(inst.ElementId, parentId, HasParent)
		s.addEdgeLocked(parentId, inst.ElementId, HasChildren)
	}
}

// ensureParentExists recursively creates Placeholder instances along the
// ancestry chain when the real instance has not arrived yet. Must be called
// with s.mu held for writing. Guards against self-parenting to terminate.
func (s *Store) ensureParentExists(elementId ElementId, namespaceUri string) {
	if elementId == "" {
		return
	}
	if _, ok := s.instances[elementId]; ok {
		return
	}

	grandparent := parentPrefix(elementId)
	if grandparent != "" && grandparent != elementId {
		s.ensureParentExists(grandparent, namespaceUri)
	}

	placeholder := ObjectInstance{
		ElementId:     elementId,
		DisplayName:   lastSegment(elementId),
		TypeId:        PlaceholderTypeId,
		NamespaceUri:  namespaceUri,
		IsComposition: false,
	}
	s.instances[elementId] = placeholder
	s.addToSecondaryIndices(placeholder)
	s.values[elementId] = ObjectValue{
		ElementId: elementId,
		Value:     Null(),
		Timestamp: s.now(),
		Quality:   "uncertain",
	}

	if grandparent != "" && grandparent != elementId {
		s.removeEdgesFrom(elementId, HasParent)
		s.addEdgeLocked(elementId, grandparent, HasParent)
		s.addEdgeLocked(grandparent, elementId, HasChildren)
	}
}

func parentPrefix(elementId ElementId) string {
	idx := strings.LastIndex(elementId, ".")
	if idx < 0 {
		return ""
	}
	return elementId[:idx]
}

func lastSegment(elementId ElementId) string {
	idx := strings.LastIndex(elementId, ".")
	if idx < 0 {
		return elementId
	}
	return elementId[idx+1:]
}

func (s *Store) addToSecondaryIndices(inst ObjectInstance) {
	if s.namespaceIndex[inst.NamespaceUri] == nil {
		s.namespaceIndex[inst.NamespaceUri] = make(map[ElementId]struct{})
	}
	s.namespaceIndex[inst.NamespaceUri][inst.ElementId] = struct{}{}

	if s.typeIndex[inst.TypeId] == nil {
		s.typeIndex[inst.TypeId] = make(map[ElementId]struct{})
	}
	s.typeIndex[inst.TypeId][inst.ElementId] = struct{}{}
}

func (s *Store) removeFromSecondaryIndices(inst ObjectInstance) {
	if set, ok := s.namespaceIndex[inst.NamespaceUri]; ok {
		delete(set, inst.ElementId)
		if len(set) == 0 {
			delete(s.namespaceIndex, inst.NamespaceUri)
		}
	}
	if set, ok := s.typeIndex[inst.TypeId]; ok {
		delete(set, inst.ElementId)
		if len(set) == 0 {
			delete(s.typeIndex, inst.TypeId)
		}
	}
}

// GetValue returns the current value for elementId, if any.
func (s *Store) GetValue(elementId ElementId) (ObjectValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[elementId]
	return v, ok
}

// GetValues returns the current values for the given elementIds, omitting
// entries that do not exist.
func (s *Store) GetValues(elementIds []ElementId) map[ElementId]ObjectValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ElementId]ObjectValue, len(elementIds))
	for _, id := range elementIds {
		if v, ok := s.values[id]; ok {
			out[id] = v
		}
	}
	return out
}

// GetAllValues returns a snapshot of every stored value.
func (s *Store) GetAllValues() map[ElementId]ObjectValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ElementId]ObjectValue, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// ---- instances ---------------------------------------------------------

func (s *Store) GetInstance(elementId ElementId) (ObjectInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.instances[elementId]
	return i, ok
}

func (s *Store) GetInstances(elementIds []ElementId) map[ElementId]ObjectInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ElementId]ObjectInstance, len(elementIds))
	for _, id := range elementIds {
		if i, ok := s.instances[id]; ok {
			out[id] = i
		}
	}
	return out
}

func (s *Store) GetAllInstances() []ObjectInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ObjectInstance, 0, len(s.instances))
	for _, i := range s.instances {
		out = append(out, i)
	}
	return out
}

func (s *Store) GetInstancesByNamespace(ns string) []ObjectInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.namespaceIndex[ns]
	out := make([]ObjectInstance, 0, len(ids))
	for id := range ids {
		out = append(out, s.instances[id])
	}
	return out
}

func (s *Store) GetInstancesByType(typeId string) []ObjectInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.typeIndex[typeId]
	out := make([]ObjectInstance, 0, len(ids))
	for id := range ids {
		out = append(out, s.instances[id])
	}
	return out
}

// Delete removes elementId's instance and value and clears its relationships
// in both directions (cascade, spec §4.6 "Cascade delete"). It does not
// remove descendants named by the dot-segment hierarchy.
func (s *Store) Delete(elementId ElementId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[elementId]
	if !ok {
		delete(s.values, elementId)
		return false
	}

	s.removeFromSecondaryIndices(inst)
	delete(s.instances, elementId)
	delete(s.values, elementId)
	s.clearRelationshipsLocked(elementId)
	return true
}

// Clear removes every value, instance, index entry and relationship. The
// registered namespaces, object types and relationship types (including the
// built-ins) are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[ElementId]ObjectValue)
	s.instances = make(map[ElementId]ObjectInstance)
	s.namespaceIndex = make(map[string]map[ElementId]struct{})
	s.typeIndex = make(map[string]map[ElementId]struct{})
	s.relationships = make(map[ElementId][]Edge)
	s.targetIndex = make(map[ElementId]map[ElementId]struct{})
}

// ---- registries ---------------------------------------------------------

func (s *Store) RegisterNamespace(ns Namespace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaces[ns.Uri] = ns
}

func (s *Store) GetNamespace(uri string) (Namespace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[uri]
	return ns, ok
}

func (s *Store) GetAllNamespaces() []Namespace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Namespace, 0, len(s.namespaces))
	for _, ns := range s.namespaces {
		out = append(out, ns)
	}
	return out
}

func (s *Store) RegisterType(t ObjectType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t.ElementId] = t
}

func (s *Store) GetType(elementId string) (ObjectType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[elementId]
	return t, ok
}

func (s *Store) GetAllTypes() []ObjectType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ObjectType, 0, len(s.types))
	for _, t := range s.types {
		out = append(out, t)
	}
	return out
}

func (s *Store) GetTypesByNamespace(ns string) []ObjectType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ObjectType, 0)
	for _, t := range s.types {
		if t.NamespaceUri == ns {
			out = append(out, t)
		}
	}
	return out
}

// ErrTypeInUse is returned by DeleteType when live instances reference it.
var ErrTypeInUse = &typeInUseError{}

type typeInUseError struct{}

func (*typeInUseError) Error() string { return "object type is referenced by live instances" }

// DeleteType refuses deletion (spec §3 "Deletion refused while any instance
// references it") by returning ErrTypeInUse.
func (s *Store) DeleteType(elementId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids, ok := s.typeIndex[elementId]; ok && len(ids) > 0 {
		return ErrTypeInUse
	}
	delete(s.types, elementId)
	return nil
}

func (s *Store) RegisterRelationshipType(rt RelationshipType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relTypes[rt.ElementId] = rt
}

func (s *Store) GetRelationshipType(elementId string) (RelationshipType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.relTypes[elementId]
	return rt, ok
}

func (s *Store) GetAllRelationshipTypes() []RelationshipType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RelationshipType, 0, len(s.relTypes))
	for _, rt := range s.relTypes {
		out = append(out, rt)
	}
	return out
}

func (s *Store) GetRelationshipTypesByNamespace(ns string) []RelationshipType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RelationshipType, 0)
	for _, rt := range s.relTypes {
		if rt.NamespaceUri == ns {
			out = append(out, rt)
		}
	}
	return out
}

// ---- relationships -------------------------------------------------------

// AddRelationship adds a directed edge; adding an identical edge twice is a
// no-op (P7, spec §4.6).
func (s *Store) AddRelationship(source, target ElementId, typeId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addEdgeLocked(source, target, typeId)
}

func (s *Store) addEdgeLocked(source, target ElementId, typeId string) {
	for _, e := range s.relationships[source] {
		if e.Target == target && e.TypeId == typeId {
			return
		}
	}
	s.relationships[source] = append(s.relationships[source], Edge{Source: source, Target: target, TypeId: typeId})
	if s.targetIndex[target] == nil {
		s.targetIndex[target] = make(map[ElementId]struct{})
	}
	s.targetIndex[target][source] = struct{}{}
}

// GetRelationships returns edges with the given source in insertion order,
// optionally filtered by typeId.
func (s *Store) GetRelationships(elementId ElementId, typeId string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := s.relationships[elementId]
	if typeId == "" {
		out := make([]Edge, len(edges))
		copy(out, edges)
		return out
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.TypeId == typeId {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) GetRelatedElementIds(elementId ElementId, typeId string) []ElementId {
	edges := s.GetRelationships(elementId, typeId)
	out := make([]ElementId, len(edges))
	for i, e := range edges {
		out[i] = e.Target
	}
	return out
}

// GetSourcesForTarget is the O(1) reverse lookup backed by targetIndex.
func (s *Store) GetSourcesForTarget(targetId ElementId) []ElementId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.targetIndex[targetId]
	out := make([]ElementId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// RemoveRelationship removes an edge (source, target[, typeId]); when typeId
// is empty every edge between source and target is removed.
func (s *Store) RemoveRelationship(source, target ElementId, typeId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeEdgeLocked(source, target, typeId)
}

func (s *Store) removeEdgeLocked(source, target ElementId, typeId string) {
	edges := s.relationships[source]
	kept := edges[:0]
	removedAny := false
	for _, e := range edges {
		if e.Target == target && (typeId == "" || e.TypeId == typeId) {
			removedAny = true
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(s.relationships, source)
	} else {
		s.relationships[source] = kept
	}

	if removedAny && !s.sourceStillPointsAt(source, target) {
		if set, ok := s.targetIndex[target]; ok {
			delete(set, source)
			if len(set) == 0 {
				delete(s.targetIndex, target)
			}
		}
	}
}

func (s *Store) sourceStillPointsAt(source, target ElementId) bool {
	for _, e := range s.relationships[source] {
		if e.Target == target {
			return true
		}
	}
	return false
}

// RemoveRelationshipsByType removes every edge of typeId with elementId as
// source.
func (s *Store) RemoveRelationshipsByType(elementId ElementId, typeId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edges := append([]Edge(nil), s.relationships[elementId]...)
	for _, e := range edges {
		if e.TypeId == typeId {
			s.removeEdgeLocked(elementId, e.Target, typeId)
		}
	}
}

func (s *Store) removeEdgesFrom(source ElementId, typeId string) {
	edges := append([]Edge(nil), s.relationships[source]...)
	for _, e := range edges {
		if e.TypeId == typeId {
			s.removeEdgeLocked(source, e.Target, typeId)
		}
	}
}

// ClearRelationships removes every edge touching elementId, as either source
// or target.
func (s *Store) ClearRelationships(elementId ElementId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearRelationshipsLocked(elementId)
}

func (s *Store) clearRelationshipsLocked(elementId ElementId) {
	for _, e := range s.relationships[elementId] {
		if set, ok := s.targetIndex[e.Target]; ok {
			delete(set, elementId)
			if len(set) == 0 {
				delete(s.targetIndex, e.Target)
			}
		}
	}
	delete(s.relationships, elementId)

	for source := range s.targetIndex[elementId] {
		edges := s.relationships[source]
		kept := edges[:0]
		for _, e := range edges {
			if e.Target != elementId {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.relationships, source)
		} else {
			s.relationships[source] = kept
		}
	}
	delete(s.targetIndex, elementId)
}

// GetParentId returns the target of elementId's first HasParent edge.
func (s *Store) GetParentId(elementId ElementId) (ElementId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.relationships[elementId] {
		if e.TypeId == HasParent {
			return e.Target, true
		}
	}
	return "", false
}

// HasChildren reports whether elementId is the source of any HasChildren
// edge in its forward relationships.
func (s *Store) HasChildren(elementId ElementId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.relationships[elementId] {
		if e.TypeId == HasChildren {
			return true
		}
	}
	return false
}

// ---- change listeners -----------------------------------------------------

// AddChangeListener registers l and returns a token for RemoveChangeListener.
func (s *Store) AddChangeListener(l ChangeListener) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenerSeq++
	id := s.listenerSeq
	s.listeners[id] = l
	return id
}

func (s *Store) RemoveChangeListener(token int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, token)
}

// ---- stats -----------------------------------------------------------------

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := 0
	for _, es := range s.relationships {
		edges += len(es)
	}
	return Stats{
		Values:            len(s.values),
		Instances:         len(s.instances),
		Types:             len(s.types),
		Namespaces:        len(s.namespaces),
		RelationshipTypes: len(s.relTypes),
		Edges:             edges,
	}
}
