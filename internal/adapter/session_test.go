package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokenStore struct {
	token string
}

func (m *memTokenStore) SaveToken(_ context.Context, token string) error {
	m.token = token
	return nil
}
func (m *memTokenStore) Token(_ context.Context) (string, error) { return m.token, nil }
func (m *memTokenStore) ClearAuth(_ context.Context) error {
	m.token = ""
	return nil
}

func signedToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSession_ClaimsRoundTrip(t *testing.T) {
	s := NewSession(&memTokenStore{})
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, s.SetToken(t.Context(), signedToken(t, "user-42", exp)))

	claims, err := s.Claims(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.True(t, claims.ExpiresAt.Equal(exp))

	expired, err := s.Expired(t.Context())
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestSession_Expired(t *testing.T) {
	s := NewSession(&memTokenStore{})
	past := time.Now().Add(-time.Minute)

	require.NoError(t, s.SetToken(t.Context(), signedToken(t, "user-42", past)))

	expired, err := s.Expired(t.Context())
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestSession_NoToken(t *testing.T) {
	s := NewSession(&memTokenStore{})

	_, err := s.Claims(t.Context())
	require.ErrorIs(t, err, ErrNoToken)

	// Missing is not expired: the caller shows a login prompt instead.
	expired, err := s.Expired(t.Context())
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestSession_RejectsEmptyToken(t *testing.T) {
	s := NewSession(&memTokenStore{})
	require.Error(t, s.SetToken(t.Context(), "   "))
}

func TestSession_ClearAuth(t *testing.T) {
	store := &memTokenStore{}
	s := NewSession(store)

	require.NoError(t, s.SetToken(t.Context(), signedToken(t, "user-42", time.Now().Add(time.Hour))))
	require.NoError(t, s.ClearAuth(t.Context()))

	token, err := s.Token(t.Context())
	require.NoError(t, err)
	assert.Empty(t, token)
}
