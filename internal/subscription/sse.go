// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package subscription

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samels-litmus/mqtt-to-i3x/internal/store"
)

// sseEntry is the per-value shape inside an SSE frame's data array.
type sseEntry struct {
	Value     interface{} `json:"value"`
	Quality   string      `json:"quality"`
	Timestamp string      `json:"timestamp"`
}

// sseBucket wraps one elementId's entries, matching spec §4.7's
// { [elementId]: { data: [...] } } shape.
type sseBucket struct {
	Data []sseEntry `json:"data"`
}

// EncodeSSEFrame renders value as a complete SSE frame: "data: <json>\n\n".
// Quality defaults to "Good" when the stored value carries none — the SSE
// asymmetry spec.md §9 calls out (left untouched on /objects/value).
func EncodeSSEFrame(value store.ObjectValue) []byte {
	quality := value.Quality
	if quality == "" {
		quality = "Good"
	}

	body := map[string]sseBucket{
		value.ElementId: {
			Data: []sseEntry{{
				Value:     value.Value.ToAny(),
				Quality:   quality,
				Timestamp: value.Timestamp.UTC().Format(time.RFC3339Nano),
			}},
		},
	}

	payload, err := json.Marshal([]map[string]sseBucket{body})
	if err != nil {
		payload = []byte("[]")
	}

	return []byte(fmt.Sprintf("data: %s\n\n", payload))
}
