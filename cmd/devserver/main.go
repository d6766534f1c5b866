// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

// Command devserver is a self-contained stand-in for the ArchiveMind
// backend: the REST surface under /api/v1, the sync WebSocket under /ws,
// JWT logins, all state in memory. It exists so the sync core can be
// exercised end-to-end without the real service.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/models"
)

const defaultAddr = ":8080"

func main() {
	log := logger.NewLogger("archivemind-devserver")

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = defaultAddr
	}
	maxNotes := 0
	if v := os.Getenv("MAX_NOTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxNotes = n
		}
	}

	srv := newServer([]byte(envOr("JWT_SECRET", "dev-secret")), maxNotes, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", srv.handleLogin)
		r.Get("/health", srv.handleHealth)

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", srv.handleListNotes)
			r.Post("/", srv.handleCreateNote)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", srv.handleGetNote)
				r.Put("/", srv.handleUpdateNote)
				r.Delete("/", srv.handleDeleteNote)
				r.Post("/star", srv.handleStarNote)
				r.Post("/restore", srv.handleRestoreNote)
			})
		})

		r.Get("/entities", srv.handleListEntities)
		r.Post("/entities", srv.handleCreateEntity)
		r.Post("/media", srv.handleUploadMedia)
	})
	r.Get("/ws", srv.hub.handleWS)

	log.Info().Str("addr", addr).Msg("devserver listening")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("devserver stopped")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// server holds the in-memory backend state.
type server struct {
	mu       sync.Mutex
	notes    map[string]models.NoteSummary
	entities map[string]models.EntitySummary
	nextID   int

	secret   []byte
	maxNotes int
	hub      *hub
	log      *logger.Logger
}

func newServer(secret []byte, maxNotes int, log *logger.Logger) *server {
	return &server{
		notes:    make(map[string]models.NoteSummary),
		entities: make(map[string]models.EntitySummary),
		secret:   secret,
		maxNotes: maxNotes,
		hub:      newHub(log),
		log:      log,
	}
}

func (s *server) assignID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// ── envelope helpers ──

func writeData(w http.ResponseWriter, status int, data any, meta *models.Meta) {
	body, _ := json.Marshal(data)
	env := models.Envelope{Data: body, Meta: meta}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.Envelope{Error: msg})
}

// ── handlers ──

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, nil)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
		writeError(w, http.StatusBadRequest, "login is required")
		return
	}

	claims := jwt.RegisteredClaims{
		Subject:   req.Login,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token signing failed")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"token": token}, nil)
}

func (s *server) handleListNotes(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	list := make([]models.NoteSummary, 0, len(s.notes))
	for _, n := range s.notes {
		// Trashed notes are only reachable by id until restored.
		if n.Deleted {
			continue
		}
		list = append(list, n)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})

	total := int64(len(list))
	page, perPage := int64(1), int64(len(list))
	writeData(w, http.StatusOK, list, &models.Meta{Total: total, Page: &page, PerPage: &perPage})
}

func (s *server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		NoteType string `json:"note_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}

	s.mu.Lock()
	if s.maxNotes > 0 && len(s.notes) >= s.maxNotes {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "note limit reached for the current plan")
		return
	}
	now := time.Now().UTC()
	note := models.NoteSummary{
		ID:        s.assignID("n"),
		Title:     req.Title,
		NoteType:  req.NoteType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes[note.ID] = note
	s.mu.Unlock()

	s.hub.broadcastAck()
	writeData(w, http.StatusCreated, note, nil)
}

func (s *server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	note, ok := s.notes[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	writeData(w, http.StatusOK, note, nil)
}

func (s *server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var upd models.NoteUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	note, ok := s.notes[chi.URLParam(r, "id")]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	if upd.Title != nil {
		note.Title = *upd.Title
	}
	if upd.NoteType != nil {
		note.NoteType = *upd.NoteType
	}
	if upd.Starred != nil {
		note.Starred = *upd.Starred
	}
	note.UpdatedAt = time.Now().UTC()
	s.notes[note.ID] = note
	s.mu.Unlock()

	s.hub.broadcastAck()
	writeData(w, http.StatusOK, note, nil)
}

func (s *server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	s.setDeleted(w, r, true)
}

func (s *server) handleRestoreNote(w http.ResponseWriter, r *http.Request) {
	s.setDeleted(w, r, false)
}

func (s *server) setDeleted(w http.ResponseWriter, r *http.Request, deleted bool) {
	s.mu.Lock()
	note, ok := s.notes[chi.URLParam(r, "id")]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	note.Deleted = deleted
	note.UpdatedAt = time.Now().UTC()
	s.notes[note.ID] = note
	s.mu.Unlock()

	s.hub.broadcastAck()
	writeData(w, http.StatusOK, note, nil)
}

func (s *server) handleStarNote(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	note, ok := s.notes[chi.URLParam(r, "id")]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	note.Starred = !note.Starred
	note.UpdatedAt = time.Now().UTC()
	s.notes[note.ID] = note
	s.mu.Unlock()

	s.hub.broadcastAck()
	writeData(w, http.StatusOK, note, nil)
}

func (s *server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	list := make([]models.EntitySummary, 0, len(s.entities))
	for _, e := range s.entities {
		list = append(list, e)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	writeData(w, http.StatusOK, list, &models.Meta{Total: int64(len(list))})
}

func (s *server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		EntityType string `json:"entity_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	s.mu.Lock()
	entity := models.EntitySummary{
		ID:         s.assignID("e"),
		Name:       req.Name,
		EntityType: req.EntityType,
		UpdatedAt:  time.Now().UTC(),
	}
	s.entities[entity.ID] = entity
	s.mu.Unlock()

	s.hub.broadcastAck()
	writeData(w, http.StatusCreated, entity, nil)
}

func (s *server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part missing")
		return
	}
	defer func() { _ = file.Close() }()

	ownerID := r.FormValue("owner_id")
	s.log.Info().
		Str("func", "server.handleUploadMedia").
		Str("owner_id", ownerID).
		Str("filename", header.Filename).
		Int64("size", header.Size).
		Msg("media received")

	s.mu.Lock()
	id := s.assignID("m")
	s.mu.Unlock()

	s.hub.broadcastAck()
	writeData(w, http.StatusCreated, map[string]string{"id": id, "owner_id": ownerID}, nil)
}
