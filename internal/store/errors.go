package store

import "errors"

var (
	// ErrNotFound is returned when a cached record, queued change, or blob
	// does not exist. Callers above the store treat it as a cache miss.
	ErrNotFound = errors.New("record not found in local store")

	// ErrNoSession is returned when no auth token has been persisted yet.
	// Absence of a token is not a failure at the transport layer.
	ErrNoSession = errors.New("no local session")
)
