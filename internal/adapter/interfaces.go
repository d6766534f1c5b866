// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

// Package adapter implements the resilient transport boundary of the sync
// core. Every outbound call passes through one [Client], which attaches the
// bearer token and a correlation id, applies the shared circuit breaker, and
// retries retryable failures with bounded exponential backoff.
//
// Failures are classified exactly once, into [Error] values tagged with a
// [Kind]; callers branch on the tag via the Is* helpers and never inspect
// raw responses.
package adapter

import (
	"context"

	"github.com/avoskov/archivemind/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// RequestClient is the resilient transport every outbound call goes through.
// Implementations must return either a *Reply or an *Error; no other error
// shapes cross this boundary.
type RequestClient interface {
	// Do sends one JSON request against the configured base URL. The url is
	// a path relative to the base, e.g. "/notes/n-1". body is JSON-encoded
	// when non-nil. The call is subject to the circuit breaker and the
	// retry budget.
	Do(ctx context.Context, method, url string, body any) (*Reply, error)

	// UploadMedia posts a queued binary blob as multipart form data,
	// subject to the same breaker and retry treatment as Do.
	UploadMedia(ctx context.Context, url string, blob models.MediaBlob) (*Reply, error)
}

// TokenSource supplies the bearer token attached to outbound requests and
// wipes it when the server reports the session expired. Absence of a token
// is not an error at this layer: Token returns ("", nil) and the request
// goes out anonymous.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ClearAuth(ctx context.Context) error
}
