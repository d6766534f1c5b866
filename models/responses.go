package models

import "encoding/json"

// Envelope is the remote API response wrapper: {"data": ..., "meta": {...}}.
// Data is kept raw so transport code can hand it to the caller for typed
// decoding without knowing the resource shape.
type Envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *Meta           `json:"meta,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Meta carries list pagination info.
type Meta struct {
	Total   int64  `json:"total"`
	Page    *int64 `json:"page,omitempty"`
	PerPage *int64 `json:"per_page,omitempty"`
}
