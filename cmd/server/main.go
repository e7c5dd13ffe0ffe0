package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/movitrak/avl/internal/api/handlers"
	"github.com/movitrak/avl/internal/config"
	"github.com/movitrak/avl/internal/geocode"
	"github.com/movitrak/avl/internal/publisher"
	"github.com/movitrak/avl/internal/repository"
	"github.com/movitrak/avl/internal/service"
	"github.com/movitrak/avl/pkg/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting AVL event processor", zap.String("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	vehicleRepo := repository.NewVehicleRepository(db)
	eventRepo := repository.NewEventRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	routeRepo := repository.NewSpecialRouteRepository(db)

	// WebSocket hub
	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	// Reverse geocoder with an LRU cache in front of the HTTP backend
	backend := geocode.NewNominatimBackend(cfg.GeocoderURL, logger)
	resolver, err := geocode.NewResolver(backend, cfg.GeocodeCacheSize, logger)
	if err != nil {
		logger.Fatal("Failed to build geocode resolver", zap.Error(err))
	}

	// Event publishers. Redis is optional; websocket broadcast is always on.
	sinks := []publisher.Sink{publisher.NewWSPublisher(wsHub)}
	if cfg.RedisAddr != "" {
		redisPub, err := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PublishChannel)
		if err != nil {
			logger.Fatal("Failed to connect redis", zap.Error(err))
		}
		defer redisPub.Close()
		sinks = append(sinks, redisPub)
		logger.Info("Redis publisher enabled", zap.String("channel", cfg.PublishChannel))
	}
	events := publisher.NewFanout(sinks...)

	periodManager := service.NewPeriodManager(periodRepo, routeRepo, logger)
	routeTracker := service.NewSpecialRouteTracker(routeRepo, logger)

	processor := service.NewProcessor(
		vehicleRepo,
		eventRepo,
		periodManager,
		routeTracker,
		resolver,
		events,
		db,
		logger,
		service.ProcessorOptions{
			SummaryExemptVehicles: cfg.SummaryExemptVehicles,
			StuckClockModems:      cfg.StuckClockModems,
			MaxValidSpeed:         cfg.MaxValidSpeed,
		},
	)

	handler := handlers.NewHandler(logger, cfg.APIKey, vehicleRepo, processor, wsHub)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
