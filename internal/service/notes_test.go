// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoskov/archivemind/internal/adapter"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/internal/utils"
	"github.com/avoskov/archivemind/models"
)

type notesFixture struct {
	*coordFixture
	notes *NoteService
}

func newNotesFixture(t *testing.T) *notesFixture {
	t.Helper()
	f := newCoordFixture(t)
	notes := NewNoteService(f.cache, f.durable, f.coord, f.client, f.state, logger.Nop())
	return &notesFixture{coordFixture: f, notes: notes}
}

func note(id, title string) models.NoteSummary {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return models.NoteSummary{ID: id, Title: title, CreatedAt: at, UpdatedAt: at}
}

func TestNoteService_ListFetchesAndMirrors(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	want := []models.NoteSummary{note("n-2", "Second"), note("n-1", "First")}
	f.client.handler = func(call fakeCall) (*adapter.Reply, error) {
		require.Equal(t, "GET", call.Method)
		require.Equal(t, "/notes", call.URL)
		return replyWith(200, want), nil
	}

	got, err := f.notes.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Second read is served from memory, no extra network call.
	_, err = f.notes.List(ctx)
	require.NoError(t, err)
	assert.Len(t, f.client.Calls(), 1)

	// The fetch mirrored every row durably.
	rec, err := f.durable.GetByID(ctx, models.KindNote, "n-1")
	require.NoError(t, err)
	assert.Contains(t, string(rec.Payload), `"title":"First"`)
}

// TestNoteService_ListFallsBackToMirror: network down, previously mirrored
// rows must still be readable.
func TestNoteService_ListFallsBackToMirror(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	mirrored := note("n-1", "Survives")
	payload, _ := json.Marshal(mirrored)
	require.NoError(t, f.durable.Put(ctx, models.KindNote, mirrored.ID, payload, mirrored.UpdatedAt))

	f.client.handler = func(fakeCall) (*adapter.Reply, error) { return nil, netDown() }

	got, err := f.notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Survives", got[0].Title)
}

func TestNoteService_GetFallsBackToMirror(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	mirrored := note("n-1", "Cached copy")
	payload, _ := json.Marshal(mirrored)
	require.NoError(t, f.durable.Put(ctx, models.KindNote, mirrored.ID, payload, mirrored.UpdatedAt))

	f.client.handler = func(fakeCall) (*adapter.Reply, error) { return nil, netDown() }

	got, err := f.notes.Get(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "Cached copy", got.Title)

	_, err = f.notes.Get(ctx, "n-missing")
	require.Error(t, err)
}

// TestNoteService_CreateOfflineQueues is the offline mutation contract: the
// optimistic row appears instantly under a stable temp id, the equivalent
// change is durably queued, and the network is never touched.
func TestNoteService_CreateOfflineQueues(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{note("n-1", "Existing")})
	f.state.SetOffline(true)

	created, err := f.notes.Create(ctx, "Field log", "journal")
	require.NoError(t, err)
	assert.True(t, utils.IsTempID(created.ID))
	assert.Equal(t, "Field log", created.Title)

	list, err := f.notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID, "optimistic row leads the list")

	assert.Empty(t, f.client.Calls(), "offline mutations never touch the network")

	queued, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, models.MethodPost, queued[0].Method)
	assert.Equal(t, "/notes", queued[0].TargetURL)
	assert.Equal(t, created.ID, queued[0].ResourceID)
	assert.Contains(t, string(queued[0].Body), `"title":"Field log"`)

	assert.Equal(t, 1, f.state.Snapshot().PendingCount)

	// The temp id is a valid edit target before the server ever sees it.
	got, err := f.notes.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Field log", got.Title)
}

// TestNoteService_CreateOnlineSettles is the end-to-end happy path: the
// optimistic temp row is swapped for the server's row, leaving exactly one
// copy and no temp id anywhere.
func TestNoteService_CreateOnlineSettles(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{})

	server := note("n-42", "Field log")
	f.client.handler = func(call fakeCall) (*adapter.Reply, error) {
		require.Equal(t, "POST", call.Method)
		return replyWith(201, server), nil
	}

	created, err := f.notes.Create(ctx, "Field log", "")
	require.NoError(t, err)
	assert.Equal(t, "n-42", created.ID)

	list, err := f.notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n-42", list[0].ID)
	assert.False(t, utils.IsTempID(list[0].ID))

	got, err := f.notes.Get(ctx, "n-42")
	require.NoError(t, err)
	assert.Equal(t, "Field log", got.Title)

	// The durable mirror holds only the settled row.
	records, err := f.durable.GetAll(ctx, models.KindNote)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "n-42", records[0].ID)
}

// TestNoteService_CreateRejectedRollsBack is the genuine-rejection contract:
// every cache returns to its pre-mutation state and the typed error
// propagates.
func TestNoteService_CreateRejectedRollsBack(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	before := []models.NoteSummary{note("n-1", "Existing")}
	f.cache.Put(ListKey(models.KindNote), before)

	f.client.handler = func(fakeCall) (*adapter.Reply, error) {
		return nil, &adapter.Error{Kind: adapter.KindPlanLimit, Status: 403, Message: "note limit reached"}
	}

	_, err := f.notes.Create(ctx, "One too many", "")
	require.Error(t, err)
	assert.True(t, adapter.IsPlanLimit(err))

	list, err := f.notes.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, list, "rollback must restore the exact pre-mutation list")

	records, err := f.durable.GetAll(ctx, models.KindNote)
	require.NoError(t, err)
	assert.Empty(t, records, "the tentative mirror row must be gone")

	queued, err := f.queue.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, queued, "rejections are not queued for replay")
}

func TestNoteService_CreateNetworkFailureKeepsTentativeAndQueues(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{})
	f.client.handler = func(fakeCall) (*adapter.Reply, error) { return nil, netDown() }

	created, err := f.notes.Create(ctx, "Field log", "")
	require.NoError(t, err, "network failures are absorbed, not surfaced")
	assert.True(t, utils.IsTempID(created.ID))

	list, _ := f.notes.List(ctx)
	require.Len(t, list, 1, "tentative state is the user's working copy")

	queued, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
}

func TestNoteService_UpdateOptimistic(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	existing := note("n-1", "Old title")
	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{existing})
	f.cache.Put(CacheKey{Kind: models.KindNote, ID: "n-1"}, existing)

	server := note("n-1", "New title")
	f.client.handler = func(call fakeCall) (*adapter.Reply, error) {
		require.Equal(t, "PUT", call.Method)
		require.Equal(t, "/notes/n-1", call.URL)
		return replyWith(200, server), nil
	}

	title := "New title"
	got, err := f.notes.Update(ctx, "n-1", models.NoteUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)

	list, _ := f.notes.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "New title", list[0].Title)
}

func TestNoteService_UpdateRejectedRollsBack(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	existing := note("n-1", "Old title")
	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{existing})
	f.cache.Put(CacheKey{Kind: models.KindNote, ID: "n-1"}, existing)
	f.notes.mirror(ctx, existing)

	f.client.handler = func(fakeCall) (*adapter.Reply, error) {
		return nil, &adapter.Error{Kind: adapter.KindClientError, Status: 422, Message: "title too long"}
	}

	title := "Unacceptable"
	_, err := f.notes.Update(ctx, "n-1", models.NoteUpdate{Title: &title})
	require.Error(t, err)
	assert.True(t, adapter.IsClientError(err))

	got, err := f.notes.Get(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "Old title", got.Title)

	rec, err := f.durable.GetByID(ctx, models.KindNote, "n-1")
	require.NoError(t, err)
	assert.Contains(t, string(rec.Payload), `"title":"Old title"`, "durable mirror rolls back too")
}

func TestNoteService_DeleteOfflineQueues(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	existing := note("n-1", "Trash me")
	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{existing})
	f.state.SetOffline(true)

	require.NoError(t, f.notes.Delete(ctx, "n-1"))

	list, _ := f.notes.List(ctx)
	assert.Empty(t, list, "a deleted note leaves the list immediately")

	// The trash copy stays reachable by id so Restore has a target.
	got, err := f.notes.Get(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	queued, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, models.MethodDelete, queued[0].Method)
	assert.Equal(t, "/notes/n-1", queued[0].TargetURL)
	assert.Empty(t, queued[0].Body)
}

// TestNoteService_DeleteRollbackIdempotence: deleting from a cached list [A]
// empties the list at once; a server rejection restores exactly [A]; the
// cycle repeats without drift, and a network failure keeps the empty list
// while queuing the delete.
func TestNoteService_DeleteRollbackIdempotence(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	before := []models.NoteSummary{note("n-1", "A")}
	f.cache.Put(ListKey(models.KindNote), before)

	var inFlight []models.NoteSummary
	f.client.handler = func(fakeCall) (*adapter.Reply, error) {
		if v, ok := f.cache.Get(ListKey(models.KindNote)); ok {
			inFlight = v.([]models.NoteSummary)
		}
		return nil, &adapter.Error{Kind: adapter.KindClientError, Status: 422, Message: "cannot delete"}
	}

	for range 2 {
		err := f.notes.Delete(ctx, "n-1")
		require.Error(t, err)
		assert.Empty(t, inFlight, "the list must already be empty while the delete is in flight")

		list, lerr := f.notes.List(ctx)
		require.NoError(t, lerr)
		assert.Equal(t, before, list, "rejection restores exactly the pre-delete list")
	}

	f.client.handler = func(fakeCall) (*adapter.Reply, error) { return nil, netDown() }
	require.NoError(t, f.notes.Delete(ctx, "n-1"))

	list, err := f.notes.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, f.state.Snapshot().PendingCount)
}

// TestNoteService_DeletedNotesNeverSurfaceFromMirror: trash rows stay in the
// durable mirror for Restore but must not reappear in an offline list read.
func TestNoteService_DeletedNotesNeverSurfaceFromMirror(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	kept := note("n-1", "Kept")
	trashed := note("n-2", "Trashed")
	trashed.Deleted = true
	f.notes.mirror(ctx, kept)
	f.notes.mirror(ctx, trashed)

	f.state.SetOffline(true)

	list, err := f.notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n-1", list[0].ID)

	got, err := f.notes.Get(ctx, "n-2")
	require.NoError(t, err)
	assert.True(t, got.Deleted, "the trash row itself is still readable by id")
}

func TestNoteService_ToggleStarAndRestore(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	trashed := note("n-1", "Starred soon")
	trashed.Deleted = true
	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{})
	f.cache.Put(CacheKey{Kind: models.KindNote, ID: "n-1"}, trashed)
	f.state.SetOffline(true)

	starred, err := f.notes.ToggleStar(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, starred.Starred)

	restored, err := f.notes.Restore(ctx, "n-1")
	require.NoError(t, err)
	assert.False(t, restored.Deleted)
	assert.True(t, restored.Starred, "restore keeps the earlier toggle")

	// The restored note re-enters the list view.
	list, _ := f.notes.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "n-1", list[0].ID)
	assert.False(t, list[0].Deleted)

	queued, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, "/notes/n-1/star", queued[0].TargetURL)
	assert.Equal(t, "/notes/n-1/restore", queued[1].TargetURL)
}

// TestNoteService_OfflineEditOfOfflineCreate covers the create-then-edit
// chain under one offline session: both changes queue, both target the same
// temp id, and replay resolves them against the server id in order.
func TestNoteService_OfflineEditOfOfflineCreate(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	f.cache.Put(ListKey(models.KindNote), []models.NoteSummary{})
	f.state.SetOffline(true)

	created, err := f.notes.Create(ctx, "Draft", "")
	require.NoError(t, err)

	title := "Draft, revised"
	_, err = f.notes.Update(ctx, created.ID, models.NoteUpdate{Title: &title})
	require.NoError(t, err)

	queued, err := f.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, "/notes/"+created.ID, queued[1].TargetURL)

	// Back online: the create resolves to n-9, the edit follows it.
	f.state.SetOffline(false)
	f.client.handler = func(call fakeCall) (*adapter.Reply, error) {
		if call.Method == "POST" {
			return replyWith(201, map[string]string{"id": "n-9"}), nil
		}
		require.Equal(t, "/notes/n-9", call.URL)
		return replyWith(200, nil), nil
	}

	flushed, idMap, err := f.coord.FlushPendingChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, flushed)
	assert.Equal(t, "n-9", idMap[created.ID])

	// The in-memory detail view follows the rekey.
	_, ok := f.cache.Get(CacheKey{Kind: models.KindNote, ID: created.ID})
	assert.False(t, ok)
	_, ok = f.cache.Get(CacheKey{Kind: models.KindNote, ID: "n-9"})
	assert.True(t, ok)
}

func TestNoteService_AttachBlob(t *testing.T) {
	f := newNotesFixture(t)
	ctx := t.Context()

	blob := models.MediaBlob{
		OwnerResourceID: "n-1", Kind: models.BlobPhoto,
		Data: []byte{1, 2, 3}, Filename: "site.jpg", MimeType: "image/jpeg",
	}

	// Online with a real owner id: uploaded immediately, nothing queued.
	require.NoError(t, f.notes.AttachBlob(ctx, blob))
	assert.Len(t, f.client.uploads, 1)

	// Temp owner: always queued, even online.
	blob.OwnerResourceID = "tmp-unresolved"
	require.NoError(t, f.notes.AttachBlob(ctx, blob))
	assert.Len(t, f.client.uploads, 1)

	queued, err := f.blobs.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.NotEmpty(t, queued[0].ID, "queued blob gets an id assigned")
}
