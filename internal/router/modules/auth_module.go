package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/cozyapp/cozyapp-api/internal/interface/http"
	"github.com/cozyapp/cozyapp-api/internal/interface/middleware"
)

// AuthModule registers the session and self-service routes under /auth.
// Public: POST /login, /register, /forgot-password, /password/request-reset, /reset-password
// Protected: POST /password/change, GET /check-token, GET /dashboard, PUT /profile, PUT /preferences
type AuthModule struct {
	Handler *handlers.AuthHandler
	Guards  Guards
	Redis   *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, guards Guards, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Guards: guards, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.Redis, middleware.Limit{Name: "login", Max: 10, Window: time.Minute, Key: middleware.KeyByIP()})
	registerLimiter := middleware.RateLimit(m.Redis, middleware.Limit{Name: "register", Max: 10, Window: time.Minute, Key: middleware.KeyByIP()})
	resetInitLimiter := middleware.RateLimit(m.Redis, middleware.Limit{Name: "reset_request", Max: 5, Window: time.Minute, Key: middleware.KeyByIPAndPath()})
	resetConfirmLimiter := middleware.RateLimit(m.Redis, middleware.Limit{Name: "reset_confirm", Max: 30, Window: time.Minute, Key: middleware.KeyByIPAndPath()})

	auth := rg.Group("/auth")
	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.POST("/register", registerLimiter, m.Handler.Register)
	auth.POST("/forgot-password", resetInitLimiter, m.Handler.ForgotPassword)
	auth.POST("/password/request-reset", resetInitLimiter, m.Handler.ForgotPassword)
	auth.POST("/reset-password", resetConfirmLimiter, m.Handler.ResetPassword)

	auth.POST("/password/change", m.Guards.Authenticated(m.Handler.ChangePassword))
	auth.GET("/check-token", m.Guards.Authenticated(m.Handler.CheckToken))
	auth.GET("/dashboard", m.Guards.Authenticated(m.Handler.Dashboard))
	auth.PUT("/profile", m.Guards.Authenticated(m.Handler.UpdateProfile))
	auth.PUT("/preferences", m.Guards.Authenticated(m.Handler.UpdatePreferences))
}
