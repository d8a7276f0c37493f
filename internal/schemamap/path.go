// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schemamap derives element identity and value metadata from a
// decoded payload: literal "{key}" template rendering against topic
// captures, and a minimal JSONPath-subset for pulling a scalar out of a
// nested payload (internal/store.Value tree).
package schemamap

import (
	"strconv"
	"strings"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

// segment is one step of a compiled path: a map key, optionally followed by
// an array index.
type segment struct {
	key      string
	hasIndex bool
	index    int
}

// compilePath parses "$.a.b[0].c" (leading "$." optional) into segments.
func compilePath(expr string) []segment {
	expr = strings.TrimPrefix(expr, "$.")
	expr = strings.TrimPrefix(expr, "$")
	if expr == "" {
		return nil
	}
	parts := strings.Split(expr, ".")
	segments := make([]segment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		key := p
		idx := -1
		if open := strings.IndexByte(p, '['); open >= 0 && strings.HasSuffix(p, "]") {
			key = p[:open]
			n, err := strconv.Atoi(p[open+1 : len(p)-1])
			if err == nil {
				idx = n
			}
		}
		seg := segment{key: key}
		if idx >= 0 {
			seg.hasIndex = true
			seg.index = idx
		}
		segments = append(segments, seg)
	}
	return segments
}

// ExtractPath evaluates expr against root and returns the resolved Value and
// whether resolution succeeded. Any type mismatch along the way (indexing a
// non-list, keying a non-map, out-of-range index) yields (Value{}, false) —
// "undefined" in spec terms.
func ExtractPath(root store.Value, expr string) (store.Value, bool) {
	segments := compilePath(expr)
	current := root
	for _, seg := range segments {
		if seg.key != "" {
			if current.Kind != store.KindMap {
				return store.Value{}, false
			}
			next, ok := current.Map[seg.key]
			if !ok {
				return store.Value{}, false
			}
			current = next
		}
		if seg.hasIndex {
			if current.Kind != store.KindList {
				return store.Value{}, false
			}
			if seg.index < 0 || seg.index >= len(current.List) {
				return store.Value{}, false
			}
			current = current.List[seg.index]
		}
	}
	return current, true
}
