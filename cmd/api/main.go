package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nexa-backend/internal/calllog"
	"nexa-backend/internal/config"
	"nexa-backend/internal/extract"
	"nexa-backend/internal/pipeline"
	"nexa-backend/internal/ratelimit"
	"nexa-backend/internal/users"
	"nexa-backend/internal/vapi"
	"nexa-backend/internal/webhook"
	"nexa-backend/pkg/logger"
	"nexa-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	mc, err := utils.OpenMongo(rootCtx, cfg.Mongo.URI, utils.MongoPoolConfig{})
	if err != nil {
		log.Error("mongo init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mc.Disconnect(disconnectCtx)
	}()

	db := mc.Database(cfg.Mongo.Database)
	if err := utils.EnsureIndexes(rootCtx, db); err != nil {
		log.Error("index setup failed", "err", err)
		os.Exit(1)
	}

	// Redis is optional: without it rate limiting degrades to pass-through.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.Redis.Addr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	} else {
		log.Warn("REDIS_ADDR not set, rate limiting disabled")
	}

	userRepo := users.NewMongoRepo(db.Collection(utils.UsersCollection))
	logRepo := calllog.NewMongoRepo(db.Collection(utils.CallLogsCollection))
	extractor := extract.New(extract.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model), log)

	h := webhook.Handlers{
		Secret:   cfg.Vapi.SecretToken,
		Pipeline: pipeline.New(userRepo, logRepo, extractor, log),
		Users:    userRepo,
		Vapi:     vapi.NewClient(cfg.Vapi.BaseURL, cfg.Vapi.APIKey),
		Health: func(ctx context.Context) error {
			return utils.MongoHealthCheck(ctx, mc, 3*time.Second)
		},
		Env: cfg.App.Env,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, ratelimit.New(rdb, log))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
