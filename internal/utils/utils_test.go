package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-patients/internal/model"
)

func TestBcryptHasher_HashNeverEqualsPlaintext(t *testing.T) {
	h := NewBcryptHasher(4)

	for _, plain := range []string{"secreto1", "abc123", "contraseña9"} {
		hash, err := h.Hash(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, hash)
		assert.True(t, h.Verify(hash, plain))
		assert.False(t, h.Verify(hash, plain+"x"))
	}
}

func TestBcryptHasher_FreshSalt(t *testing.T) {
	h := NewBcryptHasher(4)
	a, err := h.Hash("secreto1")
	require.NoError(t, err)
	b, err := h.Hash("secreto1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, 10, NewBcryptHasher(0).cost)
	assert.Equal(t, 31, NewBcryptHasher(99).cost)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestTokenIssuer_AcceptedBeforeTTLRejectedAfter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	issuer := NewTokenIssuer("test-secret", time.Hour).WithClock(clock.Now)

	tok, err := issuer.Issue(7, "ana@clinica.com", model.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(time.Hour), tok.Exp)

	clock.t = clock.t.Add(59 * time.Minute)
	claims, err := issuer.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.ID)
	assert.Equal(t, "ana@clinica.com", claims.Email)
	assert.Equal(t, model.RoleDoctor, claims.Role)

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = issuer.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_WrongSecretIsInvalid(t *testing.T) {
	tok, err := NewTokenIssuer("one", time.Hour).Issue(1, "a@b.com", model.RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_GarbageIsInvalid(t *testing.T) {
	_, err := NewTokenIssuer("s", time.Hour).Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		ID:   1,
		Role: model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("s", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenIssuer_RequiresExpiry(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: 1}).SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = NewTokenIssuer("s", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewResetToken_Entropy(t *testing.T) {
	a, err := NewResetToken()
	require.NoError(t, err)
	b, err := NewResetToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Len(t, HashToken(a), 64)
	assert.NotEqual(t, a, HashToken(a))
	assert.Equal(t, HashToken(a), HashToken(strings.Clone(a)))
}
