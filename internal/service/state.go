// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package service

import (
	"sync"
	"time"

	"github.com/avoskov/archivemind/models"
)

// State is the single process-wide sync state: the offline flag, the
// user-visible status, the last successful sync time, and the pending-change
// counter. All mutation goes through the setters; observers subscribe for
// snapshots instead of reading fields.
//
// PendingCount is a derived projection of the durable queue length. It is
// only ever set from a fresh store recount, never incremented in memory, so
// it self-heals after a crash or restart.
type State struct {
	mu           sync.Mutex
	offline      bool
	status       models.SyncStatus
	lastSyncAt   *time.Time
	pendingCount int

	nextSubID int
	subs      map[int]chan models.SyncSnapshot
}

func NewState() *State {
	return &State{
		status: models.StatusSynced,
		subs:   make(map[int]chan models.SyncSnapshot),
	}
}

// Subscribe registers an observer. Snapshots are delivered best-effort: a
// subscriber that stops draining loses intermediate updates, never blocks
// the publisher. The returned func unsubscribes.
func (s *State) Subscribe() (<-chan models.SyncSnapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan models.SyncSnapshot, 16)
	s.subs[id] = ch

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// SetOffline flips the offline flag and the matching status. The channel and
// flush orchestration around the flip lives in the Coordinator.
func (s *State) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offline = offline
	if offline {
		s.status = models.StatusOffline
	} else {
		s.status = models.StatusSynced
	}
	s.publishLocked()
}

// Offline reports the current offline flag.
func (s *State) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// SetStatus publishes a new sync status. Invalid statuses are ignored.
func (s *State) SetStatus(status models.SyncStatus) {
	if !status.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.publishLocked()
}

// Status returns the current sync status.
func (s *State) Status() models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RecordSync marks a successful synchronization: status synced, lastSyncAt
// updated.
func (s *State) RecordSync(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.StatusSynced
	s.lastSyncAt = &at
	s.publishLocked()
}

// SetPendingCount publishes a freshly recounted queue length.
func (s *State) SetPendingCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCount = n
	s.publishLocked()
}

// Snapshot returns a point-in-time copy of the state.
func (s *State) Snapshot() models.SyncSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() models.SyncSnapshot {
	snap := models.SyncSnapshot{
		Offline:      s.offline,
		Status:       s.status,
		PendingCount: s.pendingCount,
	}
	if s.lastSyncAt != nil {
		at := *s.lastSyncAt
		snap.LastSyncAt = &at
	}
	return snap
}

func (s *State) publishLocked() {
	snap := s.snapshotLocked()
	for _, sub := range s.subs {
		select {
		case sub <- snap:
		default:
		}
	}
}
