// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/codec"
	"github.com/samels-litmus/mqtt-to-i3x/internal/config"
	"github.com/samels-litmus/mqtt-to-i3x/internal/decompose"
	"github.com/samels-litmus/mqtt-to-i3x/internal/extract"
	"github.com/samels-litmus/mqtt-to-i3x/internal/mapping"
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depthPtr(n int) *int { return &n }

func newTestPipeline(t *testing.T) (*Pipeline, *mapping.Engine[config.MappingRule], *store.Store) {
	t.Helper()
	engine := mapping.NewEngine[config.MappingRule]()
	codecs := codec.NewRegistry()
	st := store.New()
	return New(engine, codecs, st), engine, st
}

func TestScenario1Float32SingleValue(t *testing.T) {
	p, engine, st := newTestPipeline(t)

	length := 4
	require.NoError(t, engine.Add("temp", "{site}/sensors/temp/{id}", config.MappingRule{
		Id:                "temp",
		TopicPattern:      "{site}/sensors/temp/{id}",
		Codec:             "float32",
		Extract:           &extract.Spec{ByteOffset: 0, ByteLength: &length, Endian: extract.BigEndian},
		CodecOptions:      codec.Options{Endian: "big"},
		ElementIdTemplate: "temp.{site}.{id}",
	}))

	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, math.Float32bits(39.0))
	p.HandleMessage("f1/sensors/temp/s01", payload)

	val, ok := st.GetValue("temp.f1.s01")
	require.True(t, ok)
	assert.Equal(t, 39.0, val.Value.Number)

	assert.False(t, st.HasChildren("temp.f1.s01"))
	assert.True(t, st.HasChildren("temp.f1"))
	assert.True(t, st.HasChildren("temp"))
}

func TestScenario2JsonPathExtraction(t *testing.T) {
	p, engine, st := newTestPipeline(t)

	require.NoError(t, engine.Add("json-rule", "x/y", config.MappingRule{
		Codec:              "json",
		ValueExtractor:     "$.temperature",
		TimestampExtractor: "$.ts",
	}))

	payload := []byte(`{"temperature":23.5,"ts":"2026-02-02T10:30:45.123Z","status":"ok"}`)
	p.HandleMessage("x/y", payload)

	val, ok := st.GetValue("x.y")
	require.True(t, ok)
	assert.Equal(t, 23.5, val.Value.Number)
	assert.Empty(t, val.Quality)
}

func TestScenario3DecompositionAbelaraAuto(t *testing.T) {
	p, engine, st := newTestPipeline(t)

	require.NoError(t, engine.Add("kpi", "line/{id}", config.MappingRule{
		Codec:             "json",
		ElementIdTemplate: "kpi.{id}",
		Decompose: &decompose.Config{
			Enabled:  true,
			Strategy: decompose.StrategyAuto,
			MaxDepth: depthPtr(10),
		},
	}))

	payload := []byte(`{"value":{"_name":"OEE","_model":"Models/Component/KPI","Value":87.7,"UnitsOfMeasure":"%"}}`)
	p.HandleMessage("line/L1", payload)

	childId := "kpi.L1.value"
	inst, ok := st.GetInstance(childId)
	require.True(t, ok)
	assert.Equal(t, "KPI", inst.TypeId)
	assert.Equal(t, "OEE", inst.DisplayName)

	childVal, ok := st.GetValue(childId)
	require.True(t, ok)
	assert.Equal(t, 87.7, childVal.Value.Map["Value"].Number)

	related := st.GetRelatedElementIds("kpi.L1", store.HasComponent)
	assert.Contains(t, related, childId)
	reverse := st.GetRelatedElementIds(childId, store.ComponentOf)
	assert.Contains(t, reverse, "kpi.L1")
}

func TestTopicNoMatchIsSilentlyDropped(t *testing.T) {
	p, _, st := newTestPipeline(t)
	p.HandleMessage("unmapped/topic", []byte("x"))
	assert.Equal(t, 0, st.Stats().Values)
}

func TestCodecFailureDropsMessage(t *testing.T) {
	p, engine, st := newTestPipeline(t)
	require.NoError(t, engine.Add("r", "a/b", config.MappingRule{Codec: "float32"}))
	p.HandleMessage("a/b", []byte{1}) // too short for float32
	assert.Equal(t, 0, st.Stats().Values)
}

func TestDecompositionWithNonMappingRootYieldsOnlyPrimary(t *testing.T) {
	p, engine, st := newTestPipeline(t)
	require.NoError(t, engine.Add("r", "a/b", config.MappingRule{
		Codec:             "utf8",
		ElementIdTemplate: "a.b",
		Decompose:         &decompose.Config{Enabled: true, Strategy: decompose.StrategyFlat, MaxDepth: depthPtr(10)},
	}))
	p.HandleMessage("a/b", []byte("scalar-string"))

	val, ok := st.GetValue("a.b")
	require.True(t, ok)
	assert.Equal(t, "scalar-string", val.Value.Str)
	assert.False(t, st.HasChildren("a.b"))
}

func TestTimestampFallsBackToReceiveTimeOnUnparsableExtractor(t *testing.T) {
	p, engine, st := newTestPipeline(t)
	require.NoError(t, engine.Add("r", "a/b", config.MappingRule{
		Codec:              "json",
		TimestampExtractor: "$.ts",
	}))
	before := time.Now()
	p.HandleMessage("a/b", []byte(`{"ts":"not-a-timestamp"}`))
	val, ok := st.GetValue("a.b")
	require.True(t, ok)
	assert.WithinDuration(t, before, val.Timestamp, 2*time.Second)
}
