// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskov/archivemind/internal/adapter"
	"github.com/avoskov/archivemind/internal/config"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/internal/store"
	"github.com/avoskov/archivemind/models"
)

// ── test doubles ──

type fakeCall struct {
	Method string
	URL    string
	Body   any
}

type fakeClient struct {
	mu      sync.Mutex
	calls   []fakeCall
	uploads []models.MediaBlob

	// handler decides each Do outcome; defaults to 200 {"data":null}.
	handler func(call fakeCall) (*adapter.Reply, error)

	uploadErr error
}

func (f *fakeClient) Do(_ context.Context, method, url string, body any) (*adapter.Reply, error) {
	f.mu.Lock()
	call := fakeCall{Method: method, URL: url, Body: body}
	f.calls = append(f.calls, call)
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		return handler(call)
	}
	return replyWith(200, nil), nil
}

func (f *fakeClient) UploadMedia(_ context.Context, _ string, blob models.MediaBlob) (*adapter.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, blob)
	return replyWith(201, nil), nil
}

func (f *fakeClient) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// replyWith builds an enveloped reply the way the remote API shapes them.
func replyWith(status int, data any) *adapter.Reply {
	body, _ := json.Marshal(map[string]any{"data": data})
	return &adapter.Reply{Status: status, Body: body}
}

func netDown() error {
	return &adapter.Error{Kind: adapter.KindNetworkUnavailable, Message: "connection refused", Exhausted: true}
}

type fakeChannel struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeChannel) Start(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeChannel) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

// ── fixture ──

type coordFixture struct {
	state   *State
	cache   *Cache
	queue   store.QueueRepository
	blobs   store.BlobRepository
	durable store.CacheRepository
	client  *fakeClient
	channel *fakeChannel
	coord   *Coordinator
}

func newCoordFixture(t *testing.T) *coordFixture {
	t.Helper()

	db, err := store.Open(context.Background(), config.Storage{DSN: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &coordFixture{
		state:   NewState(),
		cache:   NewCache(),
		queue:   store.NewQueueRepository(db, logger.Nop()),
		blobs:   store.NewBlobRepository(db, logger.Nop()),
		durable: store.NewCacheRepository(db, logger.Nop()),
		client:  &fakeClient{},
		channel: &fakeChannel{},
	}
	f.coord = NewCoordinator(f.state, f.queue, f.blobs, f.durable, f.client, f.channel, f.cache, logger.Nop())
	return f
}

func change(id int, method models.ChangeMethod, url, resourceID string, body string) models.PendingChange {
	var raw json.RawMessage
	if body != "" {
		raw = json.RawMessage(body)
	}
	return models.PendingChange{
		ID:         fmt.Sprintf("c-%03d", id),
		Method:     method,
		TargetURL:  url,
		Body:       raw,
		Kind:       models.KindNote,
		ResourceID: resourceID,
		CreatedAt:  time.Date(2026, 8, 1, 12, 0, id, 0, time.UTC),
	}
}

// ── tests ──

func TestCoordinator_QueueChangeRecountsFromStore(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()

	require.NoError(t, f.coord.QueueChange(ctx, change(1, models.MethodPost, "/notes", "tmp-a", `{"title":"x"}`)))
	assert.Equal(t, 1, f.state.Snapshot().PendingCount)

	require.NoError(t, f.coord.QueueChange(ctx, change(2, models.MethodDelete, "/notes/n-9", "n-9", "")))
	assert.Equal(t, 2, f.state.Snapshot().PendingCount)
}

// TestCoordinator_PendingCountSelfHeals enqueues behind the coordinator's
// back (as a crashed previous process would have) and verifies the counter
// is recomputed from the store, not trusted in memory.
func TestCoordinator_PendingCountSelfHeals(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()

	require.NoError(t, f.queue.Enqueue(ctx, change(1, models.MethodPost, "/notes", "tmp-a", `{}`)))
	require.NoError(t, f.queue.Enqueue(ctx, change(2, models.MethodPost, "/notes", "tmp-b", `{}`)))
	require.Zero(t, f.state.Snapshot().PendingCount)

	n := f.coord.SyncPendingCount(ctx)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.state.Snapshot().PendingCount)
}

func TestCoordinator_FlushEmptyQueueIsNoop(t *testing.T) {
	f := newCoordFixture(t)

	flushed, idMap, err := f.coord.FlushPendingChanges(t.Context())
	require.NoError(t, err)
	assert.Zero(t, flushed)
	assert.Empty(t, idMap)
	assert.Empty(t, f.client.Calls())
}

func TestCoordinator_FlushDrainsInOrder(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()
	syncedAt := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)
	f.coord.clock = func() time.Time { return syncedAt }

	var drained bool
	f.coord.OnDrained(func(context.Context) { drained = true })

	require.NoError(t, f.queue.Enqueue(ctx, change(1, models.MethodPut, "/notes/n-1", "n-1", `{"title":"a"}`)))
	require.NoError(t, f.queue.Enqueue(ctx, change(2, models.MethodDelete, "/notes/n-2", "n-2", "")))

	flushed, _, err := f.coord.FlushPendingChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, flushed)

	calls := f.client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "PUT", calls[0].Method)
	assert.Equal(t, "/notes/n-1", calls[0].URL)
	assert.Equal(t, "DELETE", calls[1].Method)

	snap := f.state.Snapshot()
	assert.Equal(t, models.StatusSynced, snap.Status)
	assert.Zero(t, snap.PendingCount)
	require.NotNil(t, snap.LastSyncAt)
	assert.True(t, snap.LastSyncAt.Equal(syncedAt))
	assert.True(t, drained)
}

// TestCoordinator_FlushHaltsOnFirstFailure is the FIFO ordering guarantee:
// when the first change fails, the second must stay queued and unattempted.
func TestCoordinator_FlushHaltsOnFirstFailure(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()

	require.NoError(t, f.queue.Enqueue(ctx, change(1, models.MethodPut, "/notes/x", "x", `{"title":"first"}`)))
	require.NoError(t, f.queue.Enqueue(ctx, change(2, models.MethodPut, "/notes/x", "x", `{"title":"second"}`)))

	f.client.handler = func(fakeCall) (*adapter.Reply, error) {
		return nil, netDown()
	}

	flushed, _, err := f.coord.FlushPendingChanges(ctx)
	require.Error(t, err)
	assert.Zero(t, flushed)
	assert.Len(t, f.client.Calls(), 1, "second change must stay unattempted")

	remaining, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "c-001", remaining[0].ID)

	snap := f.state.Snapshot()
	assert.Equal(t, models.StatusError, snap.Status)
	assert.Equal(t, 2, snap.PendingCount)
	assert.Nil(t, snap.LastSyncAt, "lastSyncAt only moves on a full drain")
}

func TestCoordinator_FlushPartialFailureKeepsTail(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()

	require.NoError(t, f.queue.Enqueue(ctx, change(1, models.MethodDelete, "/notes/n-1", "n-1", "")))
	require.NoError(t, f.queue.Enqueue(ctx, change(2, models.MethodDelete, "/notes/n-2", "n-2", "")))
	require.NoError(t, f.queue.Enqueue(ctx, change(3, models.MethodDelete, "/notes/n-3", "n-3", "")))

	f.client.handler = func(call fakeCall) (*adapter.Reply, error) {
		if call.URL == "/notes/n-2" {
			return nil, netDown()
		}
		return replyWith(200, nil), nil
	}

	flushed, _, err := f.coord.FlushPendingChanges(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, flushed)

	remaining, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "c-002", remaining[0].ID)
	assert.Equal(t, "c-003", remaining[1].ID)
}

// TestCoordinator_FlushResolvesTempIDs replays an offline create followed by
// an edit that still targets the temp id. The create's reply assigns the
// server id; the later change, the queued blob, and the durable cache row
// must all be rewritten before the edit is sent.
func TestCoordinator_FlushResolvesTempIDs(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()
	tempID := "tmp-0199aaaa-1111-7222-8333-444455556666"

	require.NoError(t, f.queue.Enqueue(ctx,
		change(1, models.MethodPost, "/notes", tempID, `{"title":"Field log"}`)))
	require.NoError(t, f.queue.Enqueue(ctx,
		change(2, models.MethodPut, "/notes/"+tempID, tempID, `{"title":"Field log, day 2"}`)))
	require.NoError(t, f.blobs.Store(ctx, models.MediaBlob{
		ID: "b-1", OwnerResourceID: tempID, Kind: models.BlobPhoto,
		Data: []byte{1, 2}, Filename: "site.jpg", MimeType: "image/jpeg",
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, f.durable.Put(ctx, models.KindNote, tempID,
		json.RawMessage(`{"id":"`+tempID+`","title":"Field log"}`), time.Now()))

	f.client.handler = func(call fakeCall) (*adapter.Reply, error) {
		if call.Method == "POST" {
			return replyWith(201, map[string]string{"id": "n-42"}), nil
		}
		return replyWith(200, nil), nil
	}

	flushed, idMap, err := f.coord.FlushPendingChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, flushed)
	assert.Equal(t, map[string]string{tempID: "n-42"}, idMap)

	calls := f.client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/notes/n-42", calls[1].URL, "edit must replay against the server id")

	blobs, err := f.blobs.ListForOwner(ctx, "n-42")
	require.NoError(t, err)
	require.Len(t, blobs, 1)

	rec, err := f.durable.GetByID(ctx, models.KindNote, "n-42")
	require.NoError(t, err)
	assert.Contains(t, string(rec.Payload), `"id":"n-42"`)
	_, err = f.durable.GetByID(ctx, models.KindNote, tempID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCoordinator_SetOfflineTogglesChannel(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()

	f.coord.SetOffline(ctx, true)
	assert.True(t, f.state.Offline())
	assert.Equal(t, 1, f.channel.stops)
	assert.Zero(t, f.channel.starts)

	// Queue something while offline; coming back must flush it.
	require.NoError(t, f.coord.QueueChange(ctx, change(1, models.MethodPut, "/notes/n-1", "n-1", `{}`)))

	f.coord.SetOffline(ctx, false)
	assert.False(t, f.state.Offline())
	assert.Equal(t, 1, f.channel.starts)
	assert.Len(t, f.client.Calls(), 1)
	assert.Zero(t, f.state.Snapshot().PendingCount)

	// Repeating the same flag is a no-op.
	f.coord.SetOffline(ctx, false)
	assert.Equal(t, 1, f.channel.starts)
}

func TestCoordinator_FlushMediaBlobs(t *testing.T) {
	f := newCoordFixture(t)
	ctx := t.Context()

	ready := models.MediaBlob{
		ID: "b-1", OwnerResourceID: "n-7", Kind: models.BlobAudio,
		Data: []byte{9}, Filename: "call.ogg", MimeType: "audio/ogg",
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	orphan := models.MediaBlob{
		ID: "b-2", OwnerResourceID: "tmp-unresolved", Kind: models.BlobPhoto,
		Data: []byte{1}, Filename: "x.jpg", MimeType: "image/jpeg",
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC),
	}
	require.NoError(t, f.blobs.Store(ctx, ready))
	require.NoError(t, f.blobs.Store(ctx, orphan))

	uploaded, err := f.coord.FlushMediaBlobs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, uploaded)
	require.Len(t, f.client.uploads, 1)
	assert.Equal(t, "n-7", f.client.uploads[0].OwnerResourceID)

	// The uploaded blob is gone; the one with an unresolved owner stays.
	left, err := f.blobs.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b-2", left[0].ID)
}

func TestCoordinator_ChannelEvents(t *testing.T) {
	f := newCoordFixture(t)

	at := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)
	f.coord.OnConnected(at)
	snap := f.state.Snapshot()
	assert.Equal(t, models.StatusSynced, snap.Status)
	require.NotNil(t, snap.LastSyncAt)
	assert.True(t, snap.LastSyncAt.Equal(at))

	// Losing the socket while online degrades gracefully to synced.
	f.state.SetStatus(models.StatusSyncing)
	f.coord.OnDisconnected()
	assert.Equal(t, models.StatusSynced, f.state.Status())

	// While offline the flag wins.
	f.state.SetOffline(true)
	f.coord.OnDisconnected()
	assert.Equal(t, models.StatusOffline, f.state.Status())
	f.state.SetOffline(false)

	f.coord.OnStatus(models.StatusError)
	assert.Equal(t, models.StatusError, f.state.Status())

	// A sync push refetches and leaves the state syncing; only the ack
	// settles it back to synced.
	var refetches int
	f.coord.OnDrained(func(context.Context) { refetches++ })
	f.coord.OnSync(at.Add(30 * time.Second))
	assert.Equal(t, models.StatusSyncing, f.state.Status())
	assert.Equal(t, 1, refetches)

	ack := at.Add(time.Minute)
	f.coord.OnAck(ack)
	snap = f.state.Snapshot()
	assert.Equal(t, models.StatusSynced, snap.Status)
	assert.True(t, snap.LastSyncAt.Equal(ack))
}
