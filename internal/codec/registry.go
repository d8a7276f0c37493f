// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package codec provides a name-keyed registry of payload decoders. Decoding
// is fault-tolerant by contract: any panic or error inside a codec is
// converted to (store.Value{}, false), which the ingest pipeline treats as a
// decode failure (message dropped, error counter incremented — spec §4.3/§7).
package codec

import (
	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

// Options carries codec-specific decode options (currently just endianness).
type Options struct {
	Endian string `json:"endian,omitempty"` // "big" (default) or "little"
}

// Decoder turns raw bytes into a tagged store.Value. ok is false on any
// decode failure.
type Decoder func(payload []byte, opts Options) (value store.Value, ok bool)

// Registry is a name-keyed, overwrite-on-conflict map of Decoders.
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns a Registry pre-populated with every builtin codec.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	registerBuiltins(r)
	return r
}

// Register installs (or overwrites) the decoder for name.
func (r *Registry) Register(name string, d Decoder) {
	r.decoders[name] = d
}

// Decode looks up name and invokes its decoder, converting panics into a
// decode failure so a single misbehaving codec cannot take down ingest.
func (r *Registry) Decode(name string, payload []byte, opts Options) (value store.Value, ok bool) {
	d, found := r.decoders[name]
	if !found {
		return store.Value{}, false
	}

	defer func() {
		if rec := recover(); rec != nil {
			value, ok = store.Value{}, false
		}
	}()

	return d(payload, opts)
}

// Has reports whether a codec named name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.decoders[name]
	return ok
}
