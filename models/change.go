// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package models

import (
	"encoding/json"
	"time"
)

// ChangeMethod is the HTTP verb a queued change is replayed with.
type ChangeMethod string

const (
	MethodPost   ChangeMethod = "POST"
	MethodPut    ChangeMethod = "PUT"
	MethodDelete ChangeMethod = "DELETE"
)

// PendingChange is one durable, not-yet-acknowledged write. Changes are
// totally ordered by CreatedAt (insertion order), never mutated in place,
// and destroyed only after a successful replay.
//
// ID identifies the change itself and is distinct from the id of the
// resource the change targets: a change and a resource never share identity.
type PendingChange struct {
	// ID is the opaque id of the change record (UUIDv7).
	ID string `json:"id"`

	// Method is the HTTP verb the change replays with.
	Method ChangeMethod `json:"method"`

	// TargetURL is the API path the change replays against,
	// e.g. "/notes/tmp-0193a2f1".
	TargetURL string `json:"url"`

	// Body is the request body to replay verbatim; nil for DELETE.
	Body json.RawMessage `json:"body,omitempty"`

	// Kind is the resource collection the change touches.
	Kind Kind `json:"kind"`

	// ResourceID is the id of the resource the change targets. For a create
	// queued offline this is a client-generated temp id that the replay path
	// rewrites once the server assigns a real one.
	ResourceID string `json:"resource_id"`

	// CreatedAt orders the queue. Replay is strictly FIFO by this value.
	CreatedAt time.Time `json:"created_at"`
}
