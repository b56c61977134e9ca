package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"idcards/internal/auth"
	"idcards/internal/cloudinary"
	"idcards/internal/config"
	"idcards/internal/handler"
	"idcards/internal/httpmiddleware"
	"idcards/internal/kvstore"
	"idcards/internal/logging"
	"idcards/internal/metrics"
	"idcards/internal/photos"
	"idcards/internal/queue"
	"idcards/internal/roster"
	"idcards/internal/store"
)

func main() {
	cfg, err := config.Load()
	log := logging.Must(cfg.Env)
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	var redisClient *store.Redis
	if cfg.QueueBackend != "memory" || cfg.KVBackend != "memory" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(8192)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "idcards:media-cleanup")
	}

	var kv kvstore.Store
	if cfg.KVBackend == "memory" {
		mem := kvstore.NewMemory()
		go mem.RunSweeper(ctx, time.Minute)
		kv = mem
	} else {
		kv = kvstore.NewRedis(redisClient.Client, "idcards:")
	}

	var media photos.MediaStore = photos.Unconfigured()
	if cfg.CloudinaryConfigured() {
		media = photos.NewCloudinaryStore(cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder))
		log.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		log.Warn("cloudinary not configured, photo uploads will fail")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	repo := roster.NewRepository(db.Client)
	cleanup := photos.NewCleanup(q, media, log, m)
	if cfg.QueueBackend == "memory" {
		// single-process mode: no separate worker drains or sweeps the queue
		sched, err := cleanup.Schedule(ctx, cfg.CleanupSchedule)
		if err != nil {
			return fmt.Errorf("cleanup schedule %q: %w", cfg.CleanupSchedule, err)
		}
		defer func() { <-sched.Stop().Done() }()
		go func() { _ = cleanup.Run(ctx) }()
	}
	authSvc := auth.NewService(repo, kv, auth.Settings{
		Issuer:      cfg.JWTIssuer,
		SigningKey:  cfg.JWTSigningKey,
		AccessTTL:   cfg.AccessTTL,
		RefreshTTL:  cfg.RefreshTTL,
		RememberTTL: cfg.RememberTTL,
	}, log)
	if err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	limiter := httpmiddleware.NewTokenBucket(cfg.UploadPerMinute, cfg.UploadPerMinute, func(c *gin.Context) string {
		if claims, ok := auth.ClaimsFrom(c); ok {
			return claims.Subject
		}
		return c.ClientIP()
	})

	h := handler.New(handler.Deps{
		Roster:      repo,
		Importer:    roster.NewImporter(repo, log),
		Photos:      photos.NewService(repo, media, cleanup, log, m, int(cfg.MaxUploadBytes)),
		Auth:        authSvc,
		Metrics:     m,
		Log:         log,
		SigningKey:  cfg.JWTSigningKey,
		Issuer:      cfg.JWTIssuer,
		UploadLimit: limiter.Middleware(),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.AccessLog(log, "/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.MaxMultipartMemory = 8 << 20

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := db.Healthy(c.Request.Context())
		redisHealthy := redisClient == nil || redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "redis": redisHealthy, "db": dbHealthy})
	})
	h.Register(r)

	// uploads of up to 50MB over slow school connections need long timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  3 * time.Minute,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}
	log.Info("server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowOriginFunc = func(string) bool { return true }
	}
	return cfg
}
