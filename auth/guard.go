// Package auth resolves caller identity and enforces ownership.
package auth

import (
	"net/http"

	"murmur/apperr"
	"murmur/token"
)

type Guard struct {
	tokens *token.Service
}

func NewGuard(tokens *token.Service) *Guard {
	return &Guard{tokens: tokens}
}

// CurrentUser resolves the caller's user id from the request's bearer
// token. Every protected mutation calls this before touching storage.
func (g *Guard) CurrentUser(r *http.Request) (uint, error) {
	claims, err := g.tokens.FromRequest(r)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// AssertOwner rejects callers that do not own the resource. Exact
// equality only: no role hierarchy, no admin override.
func (g *Guard) AssertOwner(resourceOwnerID, subjectUserID uint) error {
	if resourceOwnerID != subjectUserID {
		return apperr.Forbidden("You do not own this resource")
	}
	return nil
}
