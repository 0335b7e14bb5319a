package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/cozyapp/cozyapp-api/internal/interface/http"
	"github.com/cozyapp/cozyapp-api/internal/interface/middleware"
)

// DebugModule serves liveness and, when enabled, the expvar dump.
type DebugModule struct {
	Redis   *redis.Client
	Checks  map[string]handlers.Pinger
	Expvars bool
}

func NewDebugModule(rdb *redis.Client, checks map[string]handlers.Pinger, expvars bool) *DebugModule {
	return &DebugModule{Redis: rdb, Checks: checks, Expvars: expvars}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	health := handlers.Health(m.Checks)
	rg.GET("/health", health)
	rg.GET("/auth/health", health)

	if !m.Expvars {
		return
	}
	// rate-limited per IP; in-cluster scrapers bypass
	rl := middleware.RateLimit(m.Redis, middleware.Limit{
		Name:   "debug_vars",
		Max:    120,
		Window: time.Minute,
		Key:    middleware.KeyByIP(),
		Bypass: middleware.AllowPrivateIP(),
	})
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
