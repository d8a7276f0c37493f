// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mapping

import (
	"fmt"
	"sync"
)

// Rule pairs an admin-assigned rule id and compiled topic pattern with the
// caller's own rule payload (e.g. codec name, templates, decompose config).
type Rule[T any] struct {
	Id      string
	Pattern *TopicPattern
	Data    T
}

// Match is the result of a successful topic match: the rule that matched and
// the captured placeholder segments.
type Match[T any] struct {
	Rule     Rule[T]
	Captures map[string]string
}

// Engine stores rules in insertion order and resolves a topic to the first
// matching rule (spec §4.1 "Tie-break rule": first-inserted wins).
type Engine[T any] struct {
	mu    sync.RWMutex
	rules []Rule[T]
}

// NewEngine constructs an empty mapping engine.
func NewEngine[T any]() *Engine[T] {
	return &Engine[T]{}
}

// Add compiles patternSrc and appends a new rule at the end of the insertion
// order. Returns an error if id is already in use.
func (e *Engine[T]) Add(id string, patternSrc string, data T) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.rules {
		if r.Id == id {
			return fmt.Errorf("mapping rule %q already exists", id)
		}
	}
	e.rules = append(e.rules, Rule[T]{Id: id, Pattern: CompilePattern(patternSrc), Data: data})
	return nil
}

// Remove deletes the rule with the given id, reporting whether it existed.
func (e *Engine[T]) Remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.Id == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the rule table in insertion order.
func (e *Engine[T]) List() []Rule[T] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule[T], len(e.rules))
	copy(out, e.rules)
	return out
}

// Get returns the rule with the given id, if present.
func (e *Engine[T]) Get(id string) (Rule[T], bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.rules {
		if r.Id == id {
			return r, true
		}
	}
	return Rule[T]{}, false
}

// Match returns the first rule (in insertion order) whose pattern matches
// topic, or false if none do.
func (e *Engine[T]) Match(topic string) (Match[T], bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, r := range e.rules {
		if captures := r.Pattern.Match(topic); captures != nil {
			return Match[T]{Rule: r, Captures: captures}, true
		}
	}
	return Match[T]{}, false
}

// MatchAll returns every rule whose pattern matches topic, in insertion
// order.
func (e *Engine[T]) MatchAll(topic string) []Match[T] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []Match[T]
	for _, r := range e.rules {
		if captures := r.Pattern.Match(topic); captures != nil {
			out = append(out, Match[T]{Rule: r, Captures: captures})
		}
	}
	return out
}
