package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingModule struct{ path string }

func (m pingModule) Register(rg *gin.RouterGroup) {
	rg.GET(m.path, func(c *gin.Context) { c.String(http.StatusOK, m.path) })
}

func TestRegistry_MountsModulesUnderAPIPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reg := NewRegistry(engine)
	reg.Add(pingModule{"/a"}, pingModule{"/b"})
	reg.RegisterAll()

	reg.Add(pingModule{"/c"})
	assert.NotPanics(t, reg.RegisterAll, "already mounted modules are not registered twice")

	for _, path := range []string{"/api/a", "/api/b", "/api/c"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
