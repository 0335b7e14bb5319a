package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/cozyapp/cozyapp-api/internal/interface/http"
)

// UserModule registers user administration under /auth/users and /auth/stats.
// Reads and stats updates on a single user are open to its owner; everything else needs the admin role.
type UserModule struct {
	Handler *handlers.UserHandler
	Guards  Guards
}

func NewUserModule(h *handlers.UserHandler, guards Guards) *UserModule {
	return &UserModule{Handler: h, Guards: guards}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/auth/users")
	users.POST("", m.Guards.AdminOnly(m.Handler.Create))
	users.GET("", m.Guards.AdminOnly(m.Handler.List))
	users.GET("/search", m.Guards.AdminOnly(m.Handler.Search))
	users.GET("/:id", m.Guards.OwnerOrAdmin(m.Handler.Get))
	users.PATCH("/:id/status", m.Guards.AdminOnly(m.Handler.ToggleStatus))
	users.PATCH("/:id/role", m.Guards.AdminOnly(m.Handler.SetRole))
	users.DELETE("/:id", m.Guards.AdminOnly(m.Handler.Delete))
	users.PUT("/:id/stats", m.Guards.OwnerOrAdmin(m.Handler.UpdateStats))

	rg.GET("/auth/stats/users", m.Guards.AdminOnly(m.Handler.Stats))
}
