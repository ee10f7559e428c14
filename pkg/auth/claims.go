package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Name string
	Role enums.Role
	JTI  string
}

// AccessTokenClaims represents the typed JWT issued by the identity provider.
type AccessTokenClaims struct {
	Name string     `json:"name"`
	Role enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts validated claims into the workflow actor.
func (c *AccessTokenClaims) Actor() access.Actor {
	return access.Actor{Name: c.Name, Role: c.Role}
}
