// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avoskov/archivemind/internal/adapter"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/internal/utils"
	"github.com/avoskov/archivemind/models"
)

// mutation describes one optimistic write: which cache keys it touches, how
// to apply it tentatively, how to undo its durable side effects, and the
// (method, url, body) triple it replays with. A queued PendingChange stores
// the same triple verbatim.
type mutation struct {
	kind       models.Kind
	resourceID string
	keys       []CacheKey

	// apply writes the tentative result into every affected cache,
	// in-memory and durable, before the network resolves.
	apply func()

	// undo reverses apply's durable writes on rollback; the in-memory side
	// is restored from the snapshot. Optional.
	undo func()

	method models.ChangeMethod
	url    string
	body   any

	// onSuccess reconciles tentative values with the server's authoritative
	// reply. Optional.
	onSuccess func(reply *adapter.Reply)
}

// mutator is the optimistic engine shared by every resource kind. The
// contract, in order: fence and snapshot the affected caches, apply
// tentatively, attempt the network call; absorb network-unavailable into
// the offline queue keeping the tentative state; roll everything back and
// propagate on a genuine rejection.
type mutator struct {
	cache  *Cache
	state  *State
	client adapter.RequestClient
	coord  *Coordinator
	ids    *utils.UUIDGenerator
	clock  func() time.Time
	log    *logger.Logger
}

func (m *mutator) run(ctx context.Context, mut mutation) error {
	snap := m.cache.BeginMutation(mut.keys)
	mut.apply()

	// Already flagged offline: skip the doomed network attempt.
	if m.state.Offline() {
		return m.enqueue(ctx, mut)
	}

	reply, err := m.client.Do(ctx, string(mut.method), mut.url, mut.body)
	if err != nil {
		if adapter.IsNetworkUnavailable(err) {
			return m.enqueue(ctx, mut)
		}
		m.cache.Restore(snap)
		if mut.undo != nil {
			mut.undo()
		}
		return err
	}

	if mut.onSuccess != nil {
		mut.onSuccess(reply)
	}
	return nil
}

// enqueue persists the change for later replay. The tentative state stays:
// it is the user's working copy until the queue flushes.
func (m *mutator) enqueue(ctx context.Context, mut mutation) error {
	var body json.RawMessage
	if mut.body != nil {
		b, err := json.Marshal(mut.body)
		if err != nil {
			return err
		}
		body = b
	}

	change := models.PendingChange{
		ID:         m.ids.Generate(),
		Method:     mut.method,
		TargetURL:  mut.url,
		Body:       body,
		Kind:       mut.kind,
		ResourceID: mut.resourceID,
		CreatedAt:  m.clock(),
	}
	if err := m.coord.QueueChange(ctx, change); err != nil {
		return err
	}

	m.log.Debug().
		Str("func", "mutator.enqueue").
		Str("change_id", change.ID).
		Str("url", change.TargetURL).
		Msg("change queued for replay")
	return nil
}
