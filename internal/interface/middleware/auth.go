package middleware

import (
	"expvar"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cozyapp/cozyapp-api/internal/application/access"
	"github.com/cozyapp/cozyapp-api/internal/domain"
)

// guardDenials counts denials per reason, published under /debug/vars.
var guardDenials = expvar.NewMap("guard_denials")

// ProtectedHandler receives the principal resolved by the guard chain.
type ProtectedHandler func(c *gin.Context, p access.Principal)

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Protect runs chain before handler. The target user id for ownership checks
// is taken from the ":id" path parameter.
func Protect(chain access.Chain, onDeny func(c *gin.Context, err error), handler ProtectedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := chain.Run(c.Request.Context(), access.Request{
			BearerToken:  BearerToken(c),
			TargetUserID: c.Param("id"),
		})
		if err != nil {
			reason := string(domain.ReasonOf(err))
			if reason == "" {
				reason = "internal"
			}
			guardDenials.Add(reason, 1)
			onDeny(c, err)
			c.Abort()
			return
		}
		c.Set("userID", p.ID())
		handler(c, p)
	}
}
