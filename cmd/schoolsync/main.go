package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/champlabs/schoolsync/internal/connectivity"
	"github.com/champlabs/schoolsync/internal/handler"
	"github.com/champlabs/schoolsync/internal/localstore"
	"github.com/champlabs/schoolsync/internal/middleware"
	"github.com/champlabs/schoolsync/internal/remote"
	"github.com/champlabs/schoolsync/internal/service"
	"github.com/champlabs/schoolsync/internal/syncengine"
	"github.com/champlabs/schoolsync/pkg/cache"
	"github.com/champlabs/schoolsync/pkg/config"
	"github.com/champlabs/schoolsync/pkg/database"
	"github.com/champlabs/schoolsync/pkg/logger"
	corsmiddleware "github.com/champlabs/schoolsync/pkg/middleware/cors"
	reqidmiddleware "github.com/champlabs/schoolsync/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	localDB, err := database.NewSQLite(cfg.LocalStore.Path)
	if err != nil {
		logr.Sugar().Fatalw("local store unavailable", "path", cfg.LocalStore.Path, "error", err)
	}
	defer localDB.Close()

	store, err := localstore.New(localDB, logr)
	if err != nil {
		logr.Sugar().Fatalw("local schema init failed", "error", err)
	}

	// The remote store being down is a normal condition: the handle opens
	// lazily and the probe decides when we are online.
	remoteDB, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("invalid remote store configuration", "error", err)
	}
	defer remoteDB.Close()

	metrics := service.NewMetricsService()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, remote reads go uncached", "error", err)
		redisClient = nil
	}
	readCache := remote.NewReadCache(redisClient, cfg.Redis.ReadTTL, metrics, logr)
	adapter := remote.NewPostgres(remoteDB, readCache, logr)

	probe := connectivity.NewProbe(remoteDB, cfg.Sync.ProbeInterval, logr)
	probe.Start(ctx)
	defer probe.Close()

	engine := syncengine.New(store, adapter, probe, metrics, syncengine.Config{
		Interval:       cfg.Sync.Interval,
		RemoteTimeout:  cfg.Sync.RemoteTimeout,
		RetryThreshold: cfg.Sync.RetryThreshold,
		DownloadOnBoot: cfg.Sync.DownloadOnBoot,
	}, logr)
	engine.Start(ctx)
	defer engine.Close()

	validate := validator.New()
	data := service.NewDataService(store, adapter, probe, engine, service.Config{
		UseOffline: cfg.Offline.UseOffline,
		AutoSync:   cfg.Offline.AutoSync,
	}, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	students := handler.NewStudentHandler(data)
	payments := handler.NewPaymentHandler(data)
	attendance := handler.NewAttendanceHandler(data)
	syncCtl := handler.NewSyncHandler(data, engine)
	configCtl := handler.NewConfigHandler(data)
	obs := handler.NewMetricsHandler(metrics)

	r.GET("/health", obs.Health)
	r.GET("/metrics", obs.Prometheus)

	api := r.Group("/api/v1")
	{
		api.GET("/students", students.List)
		api.POST("/students", students.Create)
		api.GET("/students/:id", students.Get)
		api.PATCH("/students/:id", students.Update)
		api.DELETE("/students/:id", students.Delete)

		api.GET("/payments", payments.List)
		api.POST("/payments", payments.Create)
		api.GET("/payments/:id", payments.Get)
		api.PATCH("/payments/:id", payments.Update)
		api.DELETE("/payments/:id", payments.Delete)

		api.GET("/attendance", attendance.List)
		api.POST("/attendance", attendance.Create)
		api.GET("/attendance/:id", attendance.Get)
		api.PATCH("/attendance/:id", attendance.Update)
		api.DELETE("/attendance/:id", attendance.Delete)

		api.GET("/sync/status", syncCtl.Status)
		api.GET("/sync/events", syncCtl.Events)
		api.POST("/sync", syncCtl.SyncNow)
		api.POST("/sync/download", syncCtl.Download)

		api.GET("/config", configCtl.Get)
		api.PATCH("/config", configCtl.Update)

		api.GET("/metrics/snapshot", obs.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
