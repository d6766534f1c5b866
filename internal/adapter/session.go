// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package adapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by Claims when no session is stored.
var ErrNoToken = errors.New("session error: no token stored")

// TokenStore is the persistence the session sits on: a TokenSource that can
// also save a fresh token after login.
type TokenStore interface {
	TokenSource
	SaveToken(ctx context.Context, token string) error
}

// SessionClaims is the subset of JWT claims the client cares about.
type SessionClaims struct {
	UserID    string
	ExpiresAt time.Time
}

// Session is the client-side view of the persisted auth session. It fronts
// the durable token store and can peek at the token's claims without
// verifying the signature - verification is the server's job, the client
// only needs the subject and expiry for display and proactive re-login.
type Session struct {
	store TokenStore
}

func NewSession(store TokenStore) *Session {
	return &Session{store: store}
}

// SetToken persists the bearer token received at login.
func (s *Session) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session error: empty token")
	}
	return s.store.SaveToken(ctx, token)
}

// Token implements TokenSource.
func (s *Session) Token(ctx context.Context) (string, error) {
	return s.store.Token(ctx)
}

// ClearAuth implements TokenSource.
func (s *Session) ClearAuth(ctx context.Context) error {
	return s.store.ClearAuth(ctx)
}

// Claims decodes the stored token's registered claims without signature
// verification. Returns ErrNoToken when no session is stored.
func (s *Session) Claims(ctx context.Context) (SessionClaims, error) {
	token, err := s.store.Token(ctx)
	if err != nil {
		return SessionClaims{}, err
	}
	if token == "" {
		return SessionClaims{}, ErrNoToken
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.RegisteredClaims{})
	if err != nil {
		return SessionClaims{}, err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return SessionClaims{}, errors.New("session error: unexpected claims type")
	}

	out := SessionClaims{UserID: claims.Subject}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Expired reports whether the stored token exists but is past its expiry.
// A missing token is not "expired": callers treat the two states differently
// (login prompt vs. silent anonymous mode).
func (s *Session) Expired(ctx context.Context) (bool, error) {
	claims, err := s.Claims(ctx)
	if errors.Is(err, ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if claims.ExpiresAt.IsZero() {
		return false, nil
	}
	return time.Now().After(claims.ExpiresAt), nil
}
