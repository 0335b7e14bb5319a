package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cozyapp/cozyapp-api/pkg/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// Health reports liveness plus the state of any registered dependencies.
// Dependency failures are reported but do not change the status code.
func Health(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps := make(map[string]string, len(checks))
		for name, ping := range checks {
			if ping == nil {
				continue
			}
			if err := ping(ctx); err != nil {
				deps[name] = "down"
				continue
			}
			deps[name] = "up"
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "dependencies": deps}, "ok", nil)
	}
}
