package router

import "github.com/gin-gonic/gin"

// APIPrefix is the group every module is mounted under.
const APIPrefix = "/api"

// Registry collects modules and mounts them on the API group in the order they were added.
type Registry struct {
	api     *gin.RouterGroup
	modules []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{api: engine.Group(APIPrefix)}
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// RegisterAll mounts every added module once; later calls only mount modules added since.
func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.api)
	}
	r.modules = r.modules[:0]
}
