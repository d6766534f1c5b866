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

// EntityService serves the entity index (people, places, species) through
// the same optimistic engine as notes, parameterized by kind.
type EntityService struct {
	mutator

	kind    models.Kind
	path    string
	durable store.CacheRepository
}

type createEntityRequest struct {
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
}

func NewEntityService(
	cache *Cache,
	durable store.CacheRepository,
	coord *Coordinator,
	client adapter.RequestClient,
	state *State,
	log *logger.Logger,
) *EntityService {
	return &EntityService{
		mutator: mutator{
			cache:  cache,
			state:  state,
			client: client,
			coord:  coord,
			ids:    utils.NewUUIDGenerator(),
			clock:  time.Now,
			log:    log,
		},
		kind:    models.KindEntity,
		path:    "/entities",
		durable: durable,
	}
}

// List returns the entity index: cache, then network, then the durable
// mirror.
func (s *EntityService) List(ctx context.Context) ([]models.EntitySummary, error) {
	key := ListKey(s.kind)
	if v, ok := s.cache.Get(key); ok {
		return v.([]models.EntitySummary), nil
	}

	gen := s.cache.Generation(key)

	if s.state.Offline() {
		return s.listFromMirror(ctx, key, gen)
	}

	reply, err := s.client.Do(ctx, http.MethodGet, s.path, nil)
	if err != nil {
		if entities, merr := s.listFromMirror(ctx, key, gen); merr == nil {
			return entities, nil
		}
		return nil, err
	}

	var entities []models.EntitySummary
	if err := reply.DecodeData(&entities); err != nil {
		return nil, fmt.Errorf("decode entities list: %w", err)
	}
	for _, e := range entities {
		s.mirror(ctx, e)
	}
	s.cache.CompleteFetch(key, gen, entities)
	return entities, nil
}

// Create adds an entity, optimistically and offline-safe, exactly like a
// note create.
func (s *EntityService) Create(ctx context.Context, name, entityType string) (models.EntitySummary, error) {
	entity := models.EntitySummary{
		ID:         s.ids.TempID(),
		Name:       name,
		EntityType: entityType,
		UpdatedAt:  s.clock(),
	}
	result := entity

	mut := mutation{
		kind:       s.kind,
		resourceID: entity.ID,
		keys:       AffectedKeys(s.kind, entity.ID),
		apply: func() {
			if list, ok := s.cachedList(); ok {
				s.cache.Put(ListKey(s.kind), append([]models.EntitySummary{entity}, list...))
			}
			s.cache.Put(CacheKey{Kind: s.kind, ID: entity.ID}, entity)
			s.mirror(ctx, entity)
		},
		undo: func() {
			if err := s.durable.Remove(ctx, s.kind, entity.ID); err != nil {
				s.log.Err(err).Str("func", "EntityService.Create").Msg("mirror remove failed")
			}
		},
		method:    models.MethodPost,
		url:       s.path,
		body:      createEntityRequest{Name: name, EntityType: entityType},
		onSuccess: func(reply *adapter.Reply) {
			var created models.EntitySummary
			if err := reply.DecodeData(&created); err != nil || created.ID == "" {
				return
			}
			if list, ok := s.cachedList(); ok {
				out := make([]models.EntitySummary, 0, len(list)+1)
				out = append(out, created)
				for _, e := range list {
					if e.ID == entity.ID || e.ID == created.ID {
						continue
					}
					out = append(out, e)
				}
				s.cache.Put(ListKey(s.kind), out)
			}
			s.cache.ReplaceID(s.kind, entity.ID, created.ID)
			s.cache.Put(CacheKey{Kind: s.kind, ID: created.ID}, created)
			if err := s.durable.Remove(ctx, s.kind, entity.ID); err != nil {
				s.log.Err(err).Str("func", "EntityService.Create").Msg("mirror remove failed")
			}
			s.mirror(ctx, created)
			result = created
		},
	}

	if err := s.run(ctx, mut); err != nil {
		return models.EntitySummary{}, err
	}
	return result, nil
}

func (s *EntityService) cachedList() ([]models.EntitySummary, bool) {
	v, ok := s.cache.Get(ListKey(s.kind))
	if !ok {
		return nil, false
	}
	return v.([]models.EntitySummary), true
}

func (s *EntityService) listFromMirror(ctx context.Context, key CacheKey, gen uint64) ([]models.EntitySummary, error) {
	records, err := s.durable.GetAll(ctx, s.kind)
	if err != nil {
		return nil, err
	}

	entities := make([]models.EntitySummary, 0, len(records))
	for _, rec := range records {
		var e models.EntitySummary
		if err := json.Unmarshal(rec.Payload, &e); err != nil {
			continue
		}
		entities = append(entities, e)
	}
	s.cache.CompleteFetch(key, gen, entities)
	return entities, nil
}

func (s *EntityService) mirror(ctx context.Context, entity models.EntitySummary) {
	payload, err := json.Marshal(entity)
	if err != nil {
		return
	}
	if err := s.durable.Put(ctx, s.kind, entity.ID, payload, entity.UpdatedAt); err != nil {
		s.log.Err(err).Str("func", "EntityService.mirror").Str("id", entity.ID).Msg("mirror write failed")
	}
}
