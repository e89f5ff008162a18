package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bark-bank/bark/internal/bankerr"
	"github.com/bark-bank/bark/internal/identity"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-secret", time.Minute)

	token, err := svc.Issue(identity.User{ID: "user-1", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.EqualValues(t, 60, token.ExpiresIn)

	p, err := svc.Verify(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "user-1", Admin: true}, p)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issued, err := NewService("secret-a", time.Minute).Issue(identity.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Minute).Verify(issued.AccessToken)
	assert.ErrorIs(t, err, bankerr.ErrUnauthorized)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService("secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issued, err := svc.Issue(identity.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = NewService("secret", time.Minute).Verify(issued.AccessToken)
	assert.ErrorIs(t, err, bankerr.ErrUnauthorized)
}

func TestPrincipalCanAccess(t *testing.T) {
	assert.True(t, Principal{UserID: "u1"}.CanAccess("u1"))
	assert.False(t, Principal{UserID: "u1"}.CanAccess("u2"))
	assert.True(t, Principal{UserID: "admin", Admin: true}.CanAccess("u2"))
	assert.False(t, Principal{}.CanAccess(""))
}
