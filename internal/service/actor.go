package service

import (
	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/policy"
)

// actorFor converts JWT claims into a policy actor. Nil claims mean an
// unauthenticated caller.
func actorFor(claims *models.JWTClaims) *policy.Actor {
	if claims == nil {
		return nil
	}
	return &policy.Actor{ID: claims.UserID, Role: claims.Role}
}
