package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streaks/internal/config"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/workers"
	"github.com/comitanigiacomo/kanso-streaks/internal/logger"
)

// server bundles what newServer wires so main and the tests share it.
type server struct {
	router  *gin.Engine
	auditor *workers.StreakAuditor
}

type serverDeps struct {
	Store     domain.Store
	Pinger    adapterHTTP.Pinger
	Redis     *redis.Client
	RateLimit int
	Logger    *zap.Logger
}

func newServer(deps serverDeps) *server {
	ledger := services.NewStreakLedger(deps.Store, deps.Logger)
	auditor := workers.NewStreakAuditor(deps.Store, deps.Logger)

	habitService := services.NewHabitService(deps.Store, ledger, nil, deps.Logger)
	checkoffService := services.NewCheckoffService(deps.Store, ledger, auditor, nil, deps.Logger)
	analysisService := services.NewAnalysisService(deps.Store)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		HabitHandler:    adapterHTTP.NewHabitHandler(habitService, analysisService, deps.Logger),
		CheckoffHandler: adapterHTTP.NewCheckoffHandler(checkoffService, deps.Logger),
		AnalysisHandler: adapterHTTP.NewAnalysisHandler(analysisService, deps.Logger),
		Store:           deps.Pinger,
		Redis:           deps.Redis,
		RateLimit:       deps.RateLimit,
		Logger:          deps.Logger,
		StartTime:       time.Now(),
	})

	return &server{router: router, auditor: auditor}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	log.Info("connecting to database", zap.String("driver", cfg.DBDriver))

	sqlStore, err := repository.OpenSQLStore(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer sqlStore.Close()

	log.Info("database ready")

	var store domain.Store = sqlStore
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = cache.NewRedisClient(ctx, cache.Options{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		store = repository.NewCachedStore(sqlStore, rdb, log)
		log.Info("redis cache enabled", zap.String("addr", cfg.RedisHost+":"+cfg.RedisPort))
	}

	srv := newServer(serverDeps{
		Store:     store,
		Pinger:    sqlStore,
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Logger:    log,
	})
	srv.auditor.Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("kanso streaks running", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("critical server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("stop signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	stop()
	select {
	case <-srv.auditor.Done():
	case <-shutdownCtx.Done():
		log.Warn("streak auditor did not stop in time")
	}

	log.Info("server stopped gracefully")
}
