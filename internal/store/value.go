// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package store

import "fmt"

// Kind tags the concrete shape a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindBytes
	KindList
	KindMap
)

// Value is the tagged-variant contract decoded payloads and stored values
// carry: null, bool, number, string, raw bytes, ordered list, or a string-keyed
// mapping. Consumers pattern-match on Kind rather than type-asserting an "any".
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Bytes  []byte
	List   []Value
	Map    map[string]Value
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Number(n float64) Value     { return Value{Kind: KindNumber, Number: n} }
func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Bytes(b []byte) Value       { return Value{Kind: KindBytes, Bytes: b} }
func List(v []Value) Value       { return Value{Kind: KindList, List: v} }
func Map(m map[string]Value) Value { return Value{Kind: KindMap, Map: m} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// ToAny converts a Value into a plain interface{} tree suitable for JSON
// marshaling (map[string]interface{}, []interface{}, string, float64, bool, nil,
// or a base64-ish string for raw bytes via Go's native []byte JSON encoding).
func (v Value) ToAny() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindString:
		return v.Str
	case KindBytes:
		return v.Bytes
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, e := range v.List {
			out[i] = e.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// FromAny builds a Value from a decoded JSON-shaped interface{} tree (as
// produced by encoding/json.Unmarshal into interface{}).
func FromAny(a interface{}) Value {
	switch t := a.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case []interface{}:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = FromAny(e)
		}
		return List(out)
	case map[string]interface{}:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			out[k] = FromAny(e)
		}
		return Map(out)
	case map[string]Value:
		return Map(t)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
