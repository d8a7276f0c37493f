// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package decompose

import (
	"strings"
	"testing"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depthPtr(n int) *int { return &n }

func TestDisabledYieldsNoEntries(t *testing.T) {
	entries := Decompose(Config{Enabled: false}, "root", "urn:default", store.Map(map[string]store.Value{}), time.Now(), "")
	assert.Empty(t, entries)
}

func TestRootNotMappingYieldsNoEntries(t *testing.T) {
	entries := Decompose(Config{Enabled: true}, "root", "urn:default", store.String("scalar"), time.Now(), "")
	assert.Empty(t, entries)
}

func TestScenario3AbelaraAuto(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"value": store.Map(map[string]store.Value{
			"_name":          store.String("OEE"),
			"_model":         store.String("Models/Component/KPI"),
			"Value":          store.Number(87.7),
			"UnitsOfMeasure": store.String("%"),
		}),
	})
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := Decompose(Config{Enabled: true, Strategy: StrategyAuto, MaxDepth: depthPtr(10)}, "kpi.parent", "urn:default", payload, ts, "Good")
	// The child itself, then ScalarProperty leaves for its Value and UnitsOfMeasure.
	require.Len(t, entries, 3)

	e := entries[0]
	assert.Equal(t, "kpi.parent.value", e.Instance.ElementId)
	assert.Equal(t, "KPI", e.Instance.TypeId)
	assert.Equal(t, "OEE", e.Instance.DisplayName)
	assert.False(t, e.Instance.IsComposition)
	assert.Equal(t, "kpi.parent", e.ParentComponentId)

	require.Equal(t, store.KindMap, e.Value.Value.Kind)
	assert.Equal(t, 87.7, e.Value.Value.Map["Value"].Number)
	assert.Equal(t, "%", e.Value.Value.Map["UnitsOfMeasure"].Str)
	_, hasName := e.Value.Value.Map["_name"]
	assert.False(t, hasName)
}

func TestFlatStrategyTreatsAnyNonEmptyMappingAsCandidate(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"motor": store.Map(map[string]store.Value{
			"rpm": store.Number(1200),
		}),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat, MaxDepth: depthPtr(10)}, "root", "urn:default", payload, time.Now(), "")
	require.Len(t, entries, 2) // root.motor and its root.motor.rpm leaf
	assert.Equal(t, "root.motor", entries[0].Instance.ElementId)
	assert.Equal(t, "motor", entries[0].Instance.DisplayName)
	assert.Equal(t, typeIdDecomposedComponent, entries[0].Instance.TypeId)
}

func TestAbelaraStrategySkipsMappingsWithoutMarkers(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"plain": store.Map(map[string]store.Value{
			"x": store.Number(1),
		}),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyAbelara, MaxDepth: depthPtr(10)}, "root", "urn:default", payload, time.Now(), "")
	assert.Empty(t, entries)
}

func TestScalarLeafBecomesScalarProperty(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"count": store.Number(5),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat, MaxDepth: depthPtr(10)}, "root", "urn:default", payload, time.Now(), "")
	require.Len(t, entries, 1)
	assert.Equal(t, "root.count", entries[0].Instance.ElementId)
	assert.Equal(t, typeIdScalarProperty, entries[0].Instance.TypeId)
	assert.Equal(t, "count", entries[0].Instance.DisplayName)
	assert.Equal(t, 5.0, entries[0].Value.Value.Number)
}

func TestExcludeFieldsSkipsBothChildrenAndLeaves(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"secret": store.Number(1),
		"keep":   store.Number(2),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat, MaxDepth: depthPtr(10), ExcludeFields: []string{"secret"}}, "root", "urn:default", payload, time.Now(), "")
	require.Len(t, entries, 1)
	assert.Equal(t, "root.keep", entries[0].Instance.ElementId)
}

func TestChildIdStrategyPathUsesUnderscorePath(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"comp": store.Map(map[string]store.Value{
			"_name":  store.String("Comp"),
			"_path":  store.String("line1/station2/comp"),
			"status": store.String("ok"),
		}),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyAuto, ChildIdStrategy: ChildIdPath, MaxDepth: depthPtr(10)}, "root", "urn:default", payload, time.Now(), "")
	require.Len(t, entries, 2) // the child and its status leaf
	assert.Equal(t, "line1.station2.comp", entries[0].Instance.ElementId)
}

func TestMaxDepthStopsRecursion(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"a": store.Map(map[string]store.Value{
			"b": store.Map(map[string]store.Value{
				"x": store.Number(1),
			}),
		}),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat, MaxDepth: depthPtr(1)}, "root", "urn:default", payload, time.Now(), "")
	// depth 1 yields "root.a"; recursion into "a" is skipped since depth(1) >= maxDepth(1).
	require.Len(t, entries, 1)
	assert.Equal(t, "root.a", entries[0].Instance.ElementId)
}

func TestMaxDepthZeroIsUnlimited(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"a": store.Map(map[string]store.Value{
			"b": store.Map(map[string]store.Value{
				"x": store.Number(1),
			}),
		}),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat, MaxDepth: depthPtr(0)}, "root", "urn:default", payload, time.Now(), "")
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Instance.ElementId
	}
	assert.Contains(t, ids, "root.a")
	assert.Contains(t, ids, "root.a.b")
	assert.Contains(t, ids, "root.a.b.x")
}

// nestedMap builds depth levels of {"a": ...} maps bottoming out in a scalar,
// enough to reveal where an unspecified maxDepth actually cuts off.
func nestedMap(depth int) store.Value {
	if depth == 0 {
		return store.Number(1)
	}
	return store.Map(map[string]store.Value{"a": nestedMap(depth - 1)})
}

func TestMaxDepthOmittedDefaultsToTen(t *testing.T) {
	payload := nestedMap(defaultMaxDepth + 2)
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat}, "root", "urn:default", payload, time.Now(), "")

	depths := make(map[int]bool)
	for _, e := range entries {
		depths[strings.Count(e.Instance.ElementId, ".")] = true
	}
	assert.True(t, depths[defaultMaxDepth])
	assert.False(t, depths[defaultMaxDepth+1])
}

func TestRootNarrowsToSubTree(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"wrapper": store.Map(map[string]store.Value{
			"inner": store.Number(1),
		}),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat, Root: "$.wrapper", MaxDepth: depthPtr(10)}, "root", "urn:default", payload, time.Now(), "")
	require.Len(t, entries, 1)
	assert.Equal(t, "root.inner", entries[0].Instance.ElementId)
}

func TestRootNarrowedToNonMappingYieldsNoEntries(t *testing.T) {
	payload := store.Map(map[string]store.Value{
		"scalar": store.Number(1),
	})
	entries := Decompose(Config{Enabled: true, Strategy: StrategyFlat, Root: "$.scalar", MaxDepth: depthPtr(10)}, "root", "urn:default", payload, time.Now(), "")
	assert.Empty(t, entries)
}
