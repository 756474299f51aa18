package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cnb-rates/internal/adapter/filecache"
	"cnb-rates/internal/adapter/postgres"
	"cnb-rates/internal/adapter/redis"
	"cnb-rates/internal/handler"
	"cnb-rates/internal/service"
	"cnb-rates/pkg/cnb"
	"cnb-rates/pkg/config"
	"cnb-rates/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	log.Info("Starting app...")

	ctx := context.Background()

	// initialize fallback store
	store, closeStore, err := newFallbackStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize fallback store: %v", err)
	}
	defer closeStore()
	log.WithField("backend", cfg.Fallback.Backend).Info("Initialized fallback store")

	// initialize library
	client := cnb.New(cfg.CNB, log,
		cnb.WithFallbackStore(store),
		cnb.WithRegisterer(prometheus.DefaultRegisterer),
	)
	log.WithField("host", cfg.CNB.Host).Info("Initialized CNB client")

	rateHandler := handler.NewRateHandler(client, log)

	r := gin.Default()

	// cors middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:" + cfg.App.Port, "http://127.0.0.1:" + cfg.App.Port},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", handler.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", handler.RequestIDHeader},
		AllowCredentials: false,
	}))
	r.Use(handler.RequestID(), handler.Metrics(client.Metrics()))

	rateHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// task scheduler
	c := cron.New()

	_, err = c.AddFunc(cfg.CNB.WarmupSchedule, func() {
		log.Info("Warming up rates...")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := rateHandler.Warmup(ctx, cfg.CNB.WarmupCurrencies); err != nil {
			log.Errorf("Error warming up rates: %v", err)
		} else {
			log.Info("Successfully warmed up rates")
		}
	})
	if err != nil {
		log.Fatalf("Error adding task to schedule: %v", err)
	}

	c.Start()
	log.WithField("schedule", cfg.CNB.WarmupSchedule).Info("Scheduler initialized")

	go func() {
		log.Info("Warming up rates on start...")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := rateHandler.Warmup(ctx, cfg.CNB.WarmupCurrencies); err != nil {
			log.Errorf("Error warming up rates on start: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server starting on port %s...", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Got shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error server shutdown:", err)
	}
	log.Info("Server stopped")

	<-c.Stop().Done()
	log.Info("Scheduler stopped")

	log.Info("Gracefully shut down")
}

func newFallbackStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (service.FallbackStore, func(), error) {
	switch cfg.Fallback.Backend {
	case "", "file":
		store := filecache.NewStore(cfg.Fallback.File, log)
		log.WithField("path", store.Path()).Info("Using fallback file")
		return store, func() {}, nil

	case "postgres":
		pool, err := postgres.InitDBPool(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, nil, err
		}
		repo := postgres.NewFallbackRepo(pool, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil

	case "redis":
		rdb, err := redis.NewClient(ctx, cfg.Fallback.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewFallbackCache(rdb, cfg.Fallback.RedisTTL, log), func() { rdb.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown fallback backend %q", cfg.Fallback.Backend)
	}
}
