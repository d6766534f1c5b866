// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avoskov/archivemind/internal/adapter"
	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/internal/store"
	"github.com/avoskov/archivemind/internal/utils"
	"github.com/avoskov/archivemind/models"
)

// NoteService is the optimistic read/write surface for notes. Reads serve
// from the in-memory cache, then the network, then the durable mirror;
// writes follow the engine contract in mutation.go.
type NoteService struct {
	mutator

	kind    models.Kind
	path    string
	durable store.CacheRepository
}

type createNoteRequest struct {
	Title    string `json:"title"`
	NoteType string `json:"note_type,omitempty"`
}

func NewNoteService(
	cache *Cache,
	durable store.CacheRepository,
	coord *Coordinator,
	client adapter.RequestClient,
	state *State,
	log *logger.Logger,
) *NoteService {
	return &NoteService{
		mutator: mutator{
			cache:  cache,
			state:  state,
			client: client,
			coord:  coord,
			ids:    utils.NewUUIDGenerator(),
			clock:  time.Now,
			log:    log,
		},
		kind:    models.KindNote,
		path:    "/notes",
		durable: durable,
	}
}

// List returns the notes, newest first. Cache, then network, then the
// durable mirror when the network is unreachable.
func (s *NoteService) List(ctx context.Context) ([]models.NoteSummary, error) {
	key := ListKey(s.kind)
	if v, ok := s.cache.Get(key); ok {
		return v.([]models.NoteSummary), nil
	}

	gen := s.cache.Generation(key)

	if s.state.Offline() {
		return s.listFromMirror(ctx, key, gen)
	}

	reply, err := s.client.Do(ctx, http.MethodGet, s.path, nil)
	if err != nil {
		if notes, merr := s.listFromMirror(ctx, key, gen); merr == nil {
			return notes, nil
		}
		return nil, err
	}

	var notes []models.NoteSummary
	if err := reply.DecodeData(&notes); err != nil {
		return nil, fmt.Errorf("decode notes list: %w", err)
	}
	for _, n := range notes {
		s.mirror(ctx, n)
	}
	s.cache.CompleteFetch(key, gen, notes)
	return notes, nil
}

// Get returns one note by id, with the same fallback ladder as List.
func (s *NoteService) Get(ctx context.Context, id string) (models.NoteSummary, error) {
	key := CacheKey{Kind: s.kind, ID: id}
	if v, ok := s.cache.Get(key); ok {
		return v.(models.NoteSummary), nil
	}

	gen := s.cache.Generation(key)

	if s.state.Offline() || utils.IsTempID(id) {
		return s.getFromMirror(ctx, key, gen, id)
	}

	reply, err := s.client.Do(ctx, http.MethodGet, s.path+"/"+id, nil)
	if err != nil {
		if note, merr := s.getFromMirror(ctx, key, gen, id); merr == nil {
			return note, nil
		}
		return models.NoteSummary{}, err
	}

	var note models.NoteSummary
	if err := reply.DecodeData(&note); err != nil {
		return models.NoteSummary{}, fmt.Errorf("decode note: %w", err)
	}
	s.mirror(ctx, note)
	s.cache.CompleteFetch(key, gen, note)
	return note, nil
}

// Create adds a note. The returned note carries the server id when the call
// succeeded online, or a stable "tmp-" id when the write was queued; the
// temp id remains a valid navigation and edit target until replay resolves
// it.
func (s *NoteService) Create(ctx context.Context, title, noteType string) (models.NoteSummary, error) {
	now := s.clock()
	note := models.NoteSummary{
		ID:        s.ids.TempID(),
		Title:     title,
		NoteType:  noteType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result := note

	mut := mutation{
		kind:       s.kind,
		resourceID: note.ID,
		keys:       AffectedKeys(s.kind, note.ID),
		apply: func() {
			if list, ok := s.cachedList(); ok {
				s.cache.Put(ListKey(s.kind), append([]models.NoteSummary{note}, list...))
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: note.ID}, note)
			s.mirror(ctx, note)
		},
		undo: func() {
			s.unmirror(ctx, note.ID)
		},
		method:    models.MethodPost,
		url:       s.path,
		body:      createNoteRequest{Title: title, NoteType: noteType},
		onSuccess: func(reply *adapter.Reply) {
			var created models.NoteSummary
			if err := reply.DecodeData(&created); err != nil || created.ID == "" {
				s.log.Debug().Str("func", "NoteService.Create").Msg("create reply had no usable body")
				return
			}
			s.settleCreate(ctx, note.ID, created)
			result = created
		},
	}

	if err := s.run(ctx, mut); err != nil {
		return models.NoteSummary{}, err
	}
	return result, nil
}

// Update applies a partial edit.
func (s *NoteService) Update(ctx context.Context, id string, upd models.NoteUpdate) (models.NoteSummary, error) {
	current, err := s.materialize(ctx, id)
	if err != nil {
		return models.NoteSummary{}, err
	}

	updated := applyNoteUpdate(current, upd)
	updated.UpdatedAt = s.clock()
	result := updated

	mut := s.editMutation(ctx, current, updated, models.MethodPut, s.path+"/"+id, upd, &result)
	if err := s.run(ctx, mut); err != nil {
		return models.NoteSummary{}, err
	}
	return result, nil
}

// Delete moves a note to the trash. The list view drops the row at once;
// the detail and mirror copies survive as trash so Restore still has a
// target. A rejection puts the row back exactly where it was.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	current, err := s.materialize(ctx, id)
	if err != nil {
		return err
	}

	trashed := current
	trashed.Deleted = true
	trashed.UpdatedAt = s.clock()

	mut := mutation{
		kind:       s.kind,
		resourceID: id,
		keys:       AffectedKeys(s.kind, id),
		apply: func() {
			if list, ok := s.cachedList(); ok {
				s.cache.Put(ListKey(s.kind), dropFromList(list, id))
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: id}, trashed)
			s.mirror(ctx, trashed)
		},
		undo: func() {
			s.mirror(ctx, current)
		},
		method: models.MethodDelete,
		url:    s.path + "/" + id,
		onSuccess: func(reply *adapter.Reply) {
			var server models.NoteSummary
			if err := reply.DecodeData(&server); err != nil || server.ID == "" {
				return
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: server.ID}, server)
			s.mirror(ctx, server)
		},
	}
	return s.run(ctx, mut)
}

// Restore brings a trashed note back and reinserts it into the list view.
func (s *NoteService) Restore(ctx context.Context, id string) (models.NoteSummary, error) {
	current, err := s.materialize(ctx, id)
	if err != nil {
		return models.NoteSummary{}, err
	}

	updated := current
	updated.Deleted = false
	updated.UpdatedAt = s.clock()
	result := updated

	mut := mutation{
		kind:       s.kind,
		resourceID: id,
		keys:       AffectedKeys(s.kind, id),
		apply: func() {
			if list, ok := s.cachedList(); ok {
				s.cache.Put(ListKey(s.kind), upsertList(list, updated))
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: id}, updated)
			s.mirror(ctx, updated)
		},
		undo: func() {
			s.mirror(ctx, current)
		},
		method: models.MethodPost,
		url:    s.path + "/" + id + "/restore",
		onSuccess: func(reply *adapter.Reply) {
			var server models.NoteSummary
			if err := reply.DecodeData(&server); err != nil || server.ID == "" {
				return
			}
			if list, ok := s.cachedList(); ok {
				s.cache.Put(ListKey(s.kind), upsertList(list, server))
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: server.ID}, server)
			s.mirror(ctx, server)
			result = server
		},
	}
	if err := s.run(ctx, mut); err != nil {
		return models.NoteSummary{}, err
	}
	return result, nil
}

// ToggleStar flips the starred flag.
func (s *NoteService) ToggleStar(ctx context.Context, id string) (models.NoteSummary, error) {
	current, err := s.materialize(ctx, id)
	if err != nil {
		return models.NoteSummary{}, err
	}

	updated := current
	updated.Starred = !current.Starred
	updated.UpdatedAt = s.clock()
	result := updated

	mut := s.editMutation(ctx, current, updated, models.MethodPost, s.path+"/"+id+"/star", nil, &result)
	if err := s.run(ctx, mut); err != nil {
		return models.NoteSummary{}, err
	}
	return result, nil
}

// AttachBlob records a media capture against a note. Online it uploads
// immediately; offline (or unreachable) the blob is queued and uploaded by
// the next flush, with its owner id rewritten if the note was itself created
// offline.
func (s *NoteService) AttachBlob(ctx context.Context, blob models.MediaBlob) error {
	if blob.ID == "" {
		blob.ID = s.ids.Generate()
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = s.clock()
	}

	if s.state.Offline() || utils.IsTempID(blob.OwnerResourceID) {
		return s.coord.QueueBlob(ctx, blob)
	}

	if _, err := s.client.UploadMedia(ctx, "/media", blob); err != nil {
		if adapter.IsNetworkUnavailable(err) {
			return s.coord.QueueBlob(ctx, blob)
		}
		return err
	}
	return nil
}

// editMutation builds the shared mutation shape for update-style writes:
// replace the row in the list and detail views tentatively, undo the durable
// write from the pre-edit copy, adopt the server's copy when the reply
// carries one.
func (s *NoteService) editMutation(
	ctx context.Context,
	current, updated models.NoteSummary,
	method models.ChangeMethod,
	url string,
	body any,
	result *models.NoteSummary,
) mutation {
	return mutation{
		kind:       s.kind,
		resourceID: current.ID,
		keys:       AffectedKeys(s.kind, current.ID),
		apply: func() {
			if list, ok := s.cachedList(); ok {
				s.cache.Put(ListKey(s.kind), replaceInList(list, updated))
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: updated.ID}, updated)
			s.mirror(ctx, updated)
		},
		undo: func() {
			s.mirror(ctx, current)
		},
		method: method,
		url:    url,
		body:   body,
		onSuccess: func(reply *adapter.Reply) {
			var server models.NoteSummary
			if err := reply.DecodeData(&server); err != nil || server.ID == "" {
				return
			}
			if list, ok := s.cachedList(); ok {
				s.cache.Put(ListKey(s.kind), replaceInList(list, server))
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: server.ID}, server)
			s.mirror(ctx, server)
			*result = server
		},
	}
}

// settleCreate swaps the temporary row for the server's authoritative one in
// every cache, leaving no duplicate and no temp row behind.
func (s *NoteService) settleCreate(ctx context.Context, tempID string, created models.NoteSummary) {
	if list, ok := s.cachedList(); ok {
		out := make([]models.NoteSummary, 0, len(list)+1)
		out = append(out, created)
		for _, n := range list {
			if n.ID == tempID || n.ID == created.ID {
				continue
			}
			out = append(out, n)
		}
		s.cache.Put(ListKey(s.kind), out)
	}
	s.cache.ReplaceID(s.kind, tempID, created.ID)
	s.cache.Put(CacheKey{Kind: s.kind, ID: created.ID}, created)

	s.unmirror(ctx, tempID)
	s.mirror(ctx, created)
}

// materialize resolves the note a mutation starts from: memory, then the
// durable mirror, then (online, real ids only) the network.
func (s *NoteService) materialize(ctx context.Context, id string) (models.NoteSummary, error) {
	if v, ok := s.cache.Get(CacheKey{Kind: s.kind, ID: id}); ok {
		return v.(models.NoteSummary), nil
	}
	if list, ok := s.cachedList(); ok {
		for _, n := range list {
			if n.ID == id {
				return n, nil
			}
		}
	}
	return s.Get(ctx, id)
}

func (s *NoteService) cachedList() ([]models.NoteSummary, bool) {
	v, ok := s.cache.Get(ListKey(s.kind))
	if !ok {
		return nil, false
	}
	return v.([]models.NoteSummary), true
}

func (s *NoteService) listFromMirror(ctx context.Context, key CacheKey, gen uint64) ([]models.NoteSummary, error) {
	records, err := s.durable.GetAll(ctx, s.kind)
	if err != nil {
		return nil, err
	}

	notes := make([]models.NoteSummary, 0, len(records))
	for _, rec := range records {
		var n models.NoteSummary
		if err := json.Unmarshal(rec.Payload, &n); err != nil {
			s.log.Debug().Str("func", "NoteService.listFromMirror").Str("id", rec.ID).Msg("skipping unreadable mirror row")
			continue
		}
		// Trash rows stay mirrored for Restore but never surface in lists.
		if n.Deleted {
			continue
		}
		notes = append(notes, n)
	}
	s.cache.CompleteFetch(key, gen, notes)
	return notes, nil
}

func (s *NoteService) getFromMirror(ctx context.Context, key CacheKey, gen uint64, id string) (models.NoteSummary, error) {
	rec, err := s.durable.GetByID(ctx, s.kind, id)
	if err != nil {
		return models.NoteSummary{}, err
	}
	var note models.NoteSummary
	if err := json.Unmarshal(rec.Payload, &note); err != nil {
		return models.NoteSummary{}, fmt.Errorf("decode mirrored note %s: %w", id, err)
	}
	s.cache.CompleteFetch(key, gen, note)
	return note, nil
}

// mirror writes a note into the durable cache. The mirror is advisory:
// failures are logged, never propagated.
func (s *NoteService) mirror(ctx context.Context, note models.NoteSummary) {
	payload, err := json.Marshal(note)
	if err != nil {
		return
	}
	if err := s.durable.Put(ctx, s.kind, note.ID, payload, note.UpdatedAt); err != nil {
		s.log.Err(err).Str("func", "NoteService.mirror").Str("id", note.ID).Msg("mirror write failed")
	}
}

func (s *NoteService) unmirror(ctx context.Context, id string) {
	if err := s.durable.Remove(ctx, s.kind, id); err != nil {
		s.log.Err(err).Str("func", "NoteService.unmirror").Str("id", id).Msg("mirror remove failed")
	}
}

func applyNoteUpdate(note models.NoteSummary, upd models.NoteUpdate) models.NoteSummary {
	if upd.Title != nil {
		note.Title = *upd.Title
	}
	if upd.NoteType != nil {
		note.NoteType = *upd.NoteType
	}
	if upd.Starred != nil {
		note.Starred = *upd.Starred
	}
	return note
}

func replaceInList(list []models.NoteSummary, updated models.NoteSummary) []models.NoteSummary {
	out := make([]models.NoteSummary, len(list))
	copy(out, list)
	for i, n := range out {
		if n.ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}

func dropFromList(list []models.NoteSummary, id string) []models.NoteSummary {
	out := make([]models.NoteSummary, 0, len(list))
	for _, n := range list {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

// upsertList replaces the row in place, or prepends it when absent (a
// restored note re-enters the list it was dropped from).
func upsertList(list []models.NoteSummary, updated models.NoteSummary) []models.NoteSummary {
	for i := range list {
		if list[i].ID == updated.ID {
			return replaceInList(list, updated)
		}
	}
	return append([]models.NoteSummary{updated}, list...)
}
