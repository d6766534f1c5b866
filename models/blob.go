package models

import "time"

// BlobKind distinguishes queued media payloads.
type BlobKind string

const (
	BlobPhoto BlobKind = "photo"
	BlobAudio BlobKind = "audio"
)

// MediaBlob is a binary upload captured while offline. Unlike a
// PendingChange it carries the raw payload bytes, because a photo or audio
// clip cannot be reconstructed from a JSON body. OwnerResourceID may be a
// client temp id; the flush path rewrites it once the owning resource gets
// a server-assigned id.
type MediaBlob struct {
	ID              string    `json:"id"`
	OwnerResourceID string    `json:"owner_resource_id"`
	Kind            BlobKind  `json:"kind"`
	Data            []byte    `json:"data"`
	Filename        string    `json:"filename"`
	MimeType        string    `json:"mime_type"`
	CreatedAt       time.Time `json:"created_at"`
}
