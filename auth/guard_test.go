package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"murmur/apperr"
	"murmur/token"
)

func newTestGuard() (*Guard, *token.Service) {
	tokens := token.NewService([]byte("guard-test-secret"))
	return NewGuard(tokens), tokens
}

func TestCurrentUser(t *testing.T) {
	guard, tokens := newTestGuard()

	tok, err := tokens.Issue(9)
	assert.NoError(t, err)

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	userID, err := guard.CurrentUser(req)
	assert.NoError(t, err)
	assert.Equal(t, uint(9), userID)
}

func TestCurrentUser_NoToken(t *testing.T) {
	guard, _ := newTestGuard()

	req := httptest.NewRequest("POST", "/", nil)
	_, err := guard.CurrentUser(req)

	assert.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestAssertOwner(t *testing.T) {
	guard, _ := newTestGuard()

	assert.NoError(t, guard.AssertOwner(3, 3))

	err := guard.AssertOwner(3, 4)
	assert.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
