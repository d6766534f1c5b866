// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avoskov/archivemind/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// CachedRecord is one row of the local read mirror: the raw JSON of a remote
// resource plus the ordering timestamp. The payload is written wholesale and
// never merged field by field.
type CachedRecord struct {
	ID        string
	Payload   json.RawMessage
	UpdatedAt time.Time
}

// CacheRepository persists best-effort mirrors of remote resources, keyed by
// (kind, id). The mirror is advisory: read failures degrade to "no cached
// data" at the call site, they are never surfaced to the user.
type CacheRepository interface {
	// Put overwrites the cached payload for (kind, id).
	Put(ctx context.Context, kind models.Kind, id string, payload json.RawMessage, updatedAt time.Time) error

	// GetAll returns every cached record of the kind, ordered by UpdatedAt
	// descending (newest first), matching remote list ordering.
	GetAll(ctx context.Context, kind models.Kind) ([]CachedRecord, error)

	// GetByID returns one cached record or ErrNotFound.
	GetByID(ctx context.Context, kind models.Kind, id string) (CachedRecord, error)

	// Remove deletes a cached record. Removing a missing record is a no-op.
	Remove(ctx context.Context, kind models.Kind, id string) error

	// ReplaceID rekeys a cached record from a client temp id to the
	// server-assigned id, rewriting the id inside the payload as well.
	ReplaceID(ctx context.Context, kind models.Kind, oldID, newID string) error
}

// QueueRepository is the durable, ordered queue of not-yet-acknowledged
// writes. Changes are never mutated in place except for temp-id rewriting
// after the owning resource receives its server id.
type QueueRepository interface {
	// Enqueue appends a change to the queue.
	Enqueue(ctx context.Context, change models.PendingChange) error

	// List returns all pending changes ordered by CreatedAt ascending.
	List(ctx context.Context) ([]models.PendingChange, error)

	// Remove deletes a replayed change by its change id.
	Remove(ctx context.Context, id string) error

	// Count returns the number of queued changes. The coordinator's
	// pending counter is always recomputed from this, never trusted
	// in memory.
	Count(ctx context.Context) (int, error)

	// RewriteResource replaces every occurrence of oldID with newID in the
	// target URL, body, and resource id of all queued changes. Called when
	// a replayed create resolves a temp id to a server id.
	RewriteResource(ctx context.Context, oldID, newID string) error
}

// BlobRepository stores binary payloads (photos, audio) captured offline,
// referenced by the id of the owning resource.
type BlobRepository interface {
	// Store persists a blob.
	Store(ctx context.Context, blob models.MediaBlob) error

	// ListForOwner returns the blobs owned by a resource, oldest first.
	ListForOwner(ctx context.Context, ownerID string) ([]models.MediaBlob, error)

	// ListAll returns every queued blob, oldest first.
	ListAll(ctx context.Context) ([]models.MediaBlob, error)

	// Remove deletes an uploaded blob by id.
	Remove(ctx context.Context, id string) error

	// RewriteOwner re-points blobs from a temp owner id to the
	// server-assigned one.
	RewriteOwner(ctx context.Context, oldID, newID string) error
}

// SessionRepository holds the single persisted auth session.
type SessionRepository interface {
	// SaveToken stores (or replaces) the bearer token.
	SaveToken(ctx context.Context, token string) error

	// Token returns the stored bearer token, or "" with no error when none
	// has been saved: a missing token is an expected state, not a failure.
	Token(ctx context.Context) (string, error)

	// ClearAuth wipes the persisted session. Called on 401.
	ClearAuth(ctx context.Context) error
}
