package jwt_test

import (
	"testing"
	"time"

	jw "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/jwt"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(nil)
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)

	svc, err := jwt.New(secret)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestService_GenerateParse(t *testing.T) {
	t.Parallel()

	svc, err := jwt.New(secret, jwt.WithIssuer("notifyhub"), jwt.WithTTL(time.Minute))
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		token, err := svc.Generate("alice")
		require.NoError(t, err)

		claims, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, "notifyhub", claims.Issuer)
		require.NotNil(t, claims.ExpiresAt)
	})

	t.Run("empty subject", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Generate("")
		assert.ErrorIs(t, err, jwt.ErrMissingSubject)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Parse("")
		assert.ErrorIs(t, err, jwt.ErrMissingToken)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Parse("not.a.token")
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.New([]byte("another-secret-another-secret-xx"), jwt.WithIssuer("notifyhub"))
		require.NoError(t, err)
		token, err := other.Generate("alice")
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.New(secret, jwt.WithIssuer("someone-else"))
		require.NoError(t, err)
		token, err := other.Generate("alice")
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		past := func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := jwt.New(secret, jwt.WithIssuer("notifyhub"), jwt.WithTTL(time.Minute), jwt.WithClock(past))
		require.NoError(t, err)
		token, err := old.Generate("alice")
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("token without subject", func(t *testing.T) {
		t.Parallel()
		token, err := jw.NewWithClaims(jw.SigningMethodHS256, jw.RegisteredClaims{Issuer: "notifyhub"}).SignedString(secret)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrMissingSubject)
	})

	t.Run("other signing method", func(t *testing.T) {
		t.Parallel()
		token, err := jw.NewWithClaims(jw.SigningMethodHS512, jw.RegisteredClaims{Subject: "alice", Issuer: "notifyhub"}).SignedString(secret)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})
}
