package models

import "time"

// Kind identifies a cached resource collection. It doubles as the remote
// collection path segment ("/notes", "/entities") and the discriminator
// column of the local cache_records table.
type Kind string

const (
	KindNote   Kind = "notes"
	KindEntity Kind = "entities"
)

// NoteSummary is the slice of a remote note the sync core manipulates.
// The local copy is a best-effort mirror: it is overwritten wholesale on
// every successful fetch and never merged field by field.
type NoteSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	NoteType  string    `json:"note_type,omitempty"`
	Starred   bool      `json:"is_starred"`
	Deleted   bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteUpdate is a partial note edit. Nil fields are left untouched both in
// the optimistic caches and in the request body sent to the server.
type NoteUpdate struct {
	Title    *string `json:"title,omitempty"`
	NoteType *string `json:"note_type,omitempty"`
	Starred  *bool   `json:"is_starred,omitempty"`
}

// EntitySummary mirrors a remote entity record (person, place, species...).
type EntitySummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EntityType string    `json:"entity_type"`
	NoteCount  int       `json:"note_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}
