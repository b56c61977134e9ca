package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"idcards/internal/cloudinary"
	"idcards/internal/config"
	"idcards/internal/logging"
	"idcards/internal/metrics"
	"idcards/internal/photos"
	"idcards/internal/queue"
	"idcards/internal/store"
)

// Worker drains the media cleanup queue and periodically retries failed deletions.
func main() {
	cfg, err := config.Load()
	log := logging.Must(cfg.Env)
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}
	if cfg.QueueBackend == "memory" {
		log.Fatal("worker needs the redis queue backend; the api drains the memory queue itself")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable yet, consumer will keep retrying", zap.String("addr", cfg.RedisAddr))
	}
	q := queue.NewRedisQueue(redisClient.Client, "idcards:media-cleanup")

	var media photos.MediaStore = photos.Unconfigured()
	if cfg.CloudinaryConfigured() {
		media = photos.NewCloudinaryStore(cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder))
	} else {
		log.Warn("cloudinary not configured, deletions will be retried until dropped")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	cleanup := photos.NewCleanup(q, media, log, m)

	sched, err := cleanup.Schedule(ctx, cfg.CleanupSchedule)
	if err != nil {
		log.Fatal("invalid cleanup schedule", zap.String("schedule", cfg.CleanupSchedule), zap.Error(err))
	}
	defer func() { <-sched.Stop().Done() }()

	if cfg.WorkerMetricsPort != "" {
		srv := &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics listener failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	log.Info("worker started", zap.String("schedule", cfg.CleanupSchedule))
	if err := cleanup.Run(ctx); err != nil {
		log.Error("queue consume failed", zap.Error(err))
	}
	log.Info("worker stopped")
}
