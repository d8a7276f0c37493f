// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

func registerBuiltins(r *Registry) {
	r.Register("raw", decodeRaw)
	r.Register("utf8", decodeUtf8)
	r.Register("json", decodeJson)
	r.Register("base64", decodeBase64)
	r.Register("uint8", decodeUint8)
	r.Register("int8", decodeInt8)
	r.Register("uint16", decodeUint(2))
	r.Register("int16", decodeInt(2))
	r.Register("uint32", decodeUint(4))
	r.Register("int32", decodeInt(4))
	r.Register("float32", decodeFloat32)
	r.Register("float64", decodeFloat64)
	// Reserved: left as always-undefined stubs (spec §4.3).
	r.Register("protobuf", decodeUnimplemented)
	r.Register("msgpack", decodeUnimplemented)
}

func byteOrder(opts Options) binary.ByteOrder {
	if opts.Endian == "little" {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func decodeRaw(payload []byte, _ Options) (store.Value, bool) {
	return store.Bytes(append([]byte(nil), payload...)), true
}

func decodeUtf8(payload []byte, _ Options) (store.Value, bool) {
	return store.String(string(payload)), true
}

func decodeJson(payload []byte, _ Options) (store.Value, bool) {
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return store.Value{}, false
	}
	return store.FromAny(v), true
}

func decodeBase64(payload []byte, _ Options) (store.Value, bool) {
	decoded, err := base64.StdEncoding.DecodeString(string(payload))
	if err != nil {
		return store.Value{}, false
	}
	return store.Bytes(decoded), true
}

func decodeUint8(payload []byte, _ Options) (store.Value, bool) {
	if len(payload) < 1 {
		return store.Value{}, false
	}
	return store.Number(float64(payload[0])), true
}

func decodeInt8(payload []byte, _ Options) (store.Value, bool) {
	if len(payload) < 1 {
		return store.Value{}, false
	}
	return store.Number(float64(int8(payload[0]))), true
}

func decodeUint(width int) Decoder {
	return func(payload []byte, opts Options) (store.Value, bool) {
		if len(payload) < width {
			return store.Value{}, false
		}
		order := byteOrder(opts)
		switch width {
		case 2:
			return store.Number(float64(order.Uint16(payload))), true
		case 4:
			return store.Number(float64(order.Uint32(payload))), true
		}
		return store.Value{}, false
	}
}

func decodeInt(width int) Decoder {
	return func(payload []byte, opts Options) (store.Value, bool) {
		if len(payload) < width {
			return store.Value{}, false
		}
		order := byteOrder(opts)
		switch width {
		case 2:
			return store.Number(float64(int16(order.Uint16(payload)))), true
		case 4:
			return store.Number(float64(int32(order.Uint32(payload)))), true
		}
		return store.Value{}, false
	}
}

func decodeFloat32(payload []byte, opts Options) (store.Value, bool) {
	if len(payload) < 4 {
		return store.Value{}, false
	}
	bits := byteOrder(opts).Uint32(payload)
	return store.Number(float64(math.Float32frombits(bits))), true
}

func decodeFloat64(payload []byte, opts Options) (store.Value, bool) {
	if len(payload) < 8 {
		return store.Value{}, false
	}
	bits := byteOrder(opts).Uint64(payload)
	return store.Number(math.Float64frombits(bits)), true
}

func decodeUnimplemented(_ []byte, _ Options) (store.Value, bool) {
	return store.Value{}, false
}
