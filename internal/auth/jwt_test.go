package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")
	tok, err := v.Mint(42, time.Minute)
	require.NoError(t, err)

	claims, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, err := NewVerifier("secret-a").Mint(42, time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyExpired(t *testing.T) {
	v := NewVerifier("test-secret")
	tok, err := v.Mint(42, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewVerifier("test-secret").Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyMissingAccount(t *testing.T) {
	v := NewVerifier("test-secret")
	tok, err := v.Mint(0, time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
