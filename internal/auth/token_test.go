package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", "simplebank", 30*time.Minute)

	token, exp, err := tm.Issue("alice", "1234567890")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "1234567890", claims.AccountNumber)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", "simplebank", -time.Minute)

	token, _, err := tm.Issue("alice", "1234567890")
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenTampered(t *testing.T) {
	tm := NewTokenManager("test-secret", "simplebank", 30*time.Minute)

	token, _, err := tm.Issue("alice", "1234567890")
	require.NoError(t, err)

	_, err = tm.Verify(token + "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tm.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenWrongKeyOrIssuer(t *testing.T) {
	tm := NewTokenManager("test-secret", "simplebank", 30*time.Minute)
	token, _, err := tm.Issue("alice", "1234567890")
	require.NoError(t, err)

	other := NewTokenManager("other-secret", "simplebank", 30*time.Minute)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	wrongIssuer := NewTokenManager("test-secret", "someone-else", 30*time.Minute)
	_, err = wrongIssuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
