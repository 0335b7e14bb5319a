package router

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/application/access"
	"github.com/cozyapp/cozyapp-api/internal/container"
	handlers "github.com/cozyapp/cozyapp-api/internal/interface/http"
	"github.com/cozyapp/cozyapp-api/internal/router/modules"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
)

// Deps is everything the HTTP modules need.
type Deps struct {
	Service       *application.Service
	Tokens        access.TokenVerifier
	Redis         *redis.Client
	Logger        logrus.FieldLogger
	LookupTimeout time.Duration
	Health        map[string]handlers.Pinger
	Expvars       bool
}

// Mount registers the auth, user and debug modules built from d.
func (r *Registry) Mount(d Deps) {
	deny := handlers.ErrorResponder{Logger: d.Logger}.Respond
	guards := modules.NewGuards(d.Tokens, d.Service.Repo, d.LookupTimeout, deny)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(d.Service, d.Logger), guards, d.Redis))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(d.Service, d.Logger), guards))
	r.Add(modules.NewDebugModule(d.Redis, d.Health, d.Expvars))
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()

	checks := map[string]handlers.Pinger{}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return helpers.PingRedis(ctx, rdb) }
	}
	if mc := container.GetMongo(); mc != nil {
		checks["mongo"] = func(ctx context.Context) error { return mc.Ping(ctx, nil) }
	}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if es := container.GetES(); es != nil {
		checks["elasticsearch"] = func(ctx context.Context) error { return helpers.PingES(ctx, es) }
	}
	if pub := container.GetRabbitPub(); pub != nil {
		checks["rabbitmq"] = func(context.Context) error { return pub.Healthy() }
	}

	r.Mount(Deps{
		Service:       container.GetService(),
		Tokens:        container.GetJWT(),
		Redis:         rdb,
		Logger:        container.GetLogger(),
		LookupTimeout: cfg.GuardLookupTimeout,
		Health:        checks,
		Expvars:       cfg.DebugMetricsEnabled,
	})
}
