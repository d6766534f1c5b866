// Package utils holds small shared helpers with no domain logic.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks a client-generated placeholder id for a resource
// created while offline. The prefix keeps temp ids recognisable until the
// server assigns the real id during queue replay.
const TempIDPrefix = "tmp-"

// UUIDGenerator produces time-ordered identifiers for changes, requests and
// offline-created resources.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a UUIDv7 string. v7 ids sort by creation time, which
// keeps change ids aligned with queue order. Falls back to v4 if the
// monotonic source fails.
func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}

// TempID returns a client-side placeholder resource id ("tmp-<uuid>").
func (g *UUIDGenerator) TempID() string {
	return TempIDPrefix + g.Generate()
}

// IsTempID reports whether id is a client-generated placeholder that still
// awaits a server-assigned replacement.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
