package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cozyapp/cozyapp-api/internal/application/access"
	"github.com/cozyapp/cozyapp-api/internal/interface/middleware"
)

// Guards holds the three chains protected routes are built from.
type Guards struct {
	Auth  access.Chain
	Admin access.Chain
	Owner access.Chain
	Deny  func(c *gin.Context, err error)
}

func NewGuards(tokens access.TokenVerifier, users access.UserFinder, lookupTimeout time.Duration, deny func(c *gin.Context, err error)) Guards {
	authn := access.Authenticate(tokens, users, lookupTimeout)
	return Guards{
		Auth:  access.NewChain(authn),
		Admin: access.NewChain(authn, access.RequireAdmin()),
		Owner: access.NewChain(authn, access.RequireOwner()),
		Deny:  deny,
	}
}

func (g Guards) Authenticated(h middleware.ProtectedHandler) gin.HandlerFunc {
	return middleware.Protect(g.Auth, g.Deny, h)
}

func (g Guards) AdminOnly(h middleware.ProtectedHandler) gin.HandlerFunc {
	return middleware.Protect(g.Admin, g.Deny, h)
}

func (g Guards) OwnerOrAdmin(h middleware.ProtectedHandler) gin.HandlerFunc {
	return middleware.Protect(g.Owner, g.Deny, h)
}
