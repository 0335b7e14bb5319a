package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/cozyapp/cozyapp-api/config"
	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/container"
	"github.com/cozyapp/cozyapp-api/internal/infrastructure/search"
	"github.com/cozyapp/cozyapp-api/internal/infrastructure/store"
	"github.com/cozyapp/cozyapp-api/internal/interface/middleware"
	"github.com/cozyapp/cozyapp-api/internal/router"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
	"github.com/cozyapp/cozyapp-api/pkg/mailer"
	tpl "github.com/cozyapp/cozyapp-api/pkg/mailer/templates"
	"github.com/cozyapp/cozyapp-api/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Credential store
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("credential store: %v", err)
	}
	defer st.Close(context.Background())

	// Redis (rate limiting only; nil disables it)
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unreachable; rate limits fail open")
		}
		defer func() { _ = rdb.Close() }()
	}

	// Elasticsearch (user search; optional)
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch disabled")
		es = nil
	}
	index := search.NewUserIndex(es, cfg.ESUsersIndex)

	// Email: in-process dispatcher feeding RabbitMQ, or a logging sink
	pub, rabbitPub := emailPublisher(cfg, logger)
	defer rabbitPub.Close()
	dispatcher := mailer.NewDispatcher(pub, logger, cfg.MailQueueSize)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatcher.Start(dispatchCtx)
	notifier := mailer.NewNotifier(dispatcher, tpl.Brand{AppName: cfg.AppName, SupportURL: cfg.SupportURL}, cfg.ResetTokenTTL)

	jwtManager := helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	svc := application.NewService(st.Repo, jwtManager, notifier, index, logger, cfg.ResetPasswordURL(), cfg.ResetTokenTTL)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
		if err != nil {
			logger.WithError(err).Error("admin bootstrap failed")
		} else if !created {
			logger.Debug("admin already present")
		}
	}

	// Provide singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetMongo(st.Mongo)
	container.SetPGPool(st.PG)
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetService(svc)
	container.SetRabbitPub(rabbitPub)
	container.SetES(es)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if err := dispatcher.Stop(ctxShutdown); err != nil {
		logger.WithError(err).Warn("email queue not fully flushed")
	}
	logger.Info("server exited properly")
}

// emailPublisher returns the RabbitMQ publisher when sending is enabled and the
// broker is reachable, and a logging publisher otherwise.
func emailPublisher(cfg *config.Config, logger *logrus.Logger) (mailer.Publisher, *helpers.RabbitPublisher) {
	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; emails are logged, not sent")
		return mailer.LogPublisher{Logger: logger}, nil
	}
	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Warn("rabbitmq unavailable; emails are logged, not sent")
		return mailer.LogPublisher{Logger: logger}, nil
	}
	return pub, pub
}
