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

	"portfolio_chat/internal/chat"
	"portfolio_chat/internal/config"
	"portfolio_chat/internal/handler"
	"portfolio_chat/internal/metrics"
	"portfolio_chat/internal/middleware"
	"portfolio_chat/internal/repository"
	"portfolio_chat/internal/service"
	"portfolio_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewWithWriter(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	checks := map[string]handler.Pinger{}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		checks["redis"] = redisPinger{rdb: rdb}
		appLogger.Info("Redis connection established")
	}

	var repos *repository.Repositories
	switch cfg.Storage {
	case config.StorageMemory:
		repos = repository.NewMemoryRepositories(rdb, cfg.Chat.InvitationTTL, appLogger)
	default:
		dbPool, err := newPool(cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(context.Background()); err != nil {
			appLogger.Fatal("Failed to ping database", "error", err)
		}
		checks["postgres"] = dbPool
		appLogger.Info("Database connection established")

		repos = repository.NewRepositories(dbPool, rdb, cfg.Chat.InvitationTTL, appLogger)
	}

	registry := chat.NewRegistry()
	history := chat.NewHistory(repos.History, repos.Message, cfg.Chat.BackfillWorkers, appLogger)
	router := chat.NewRouter(
		registry,
		chat.NewGroupTracker(repos.Invitation),
		chat.NewChatIDResolver(repos.User, repos.Message, appLogger),
		history,
		repos.User,
		repos.Message,
		appLogger,
	)
	chatMetrics := metrics.New(prometheus.DefaultRegisterer, registry.Count)
	router.Observe(chatMetrics)

	if cfg.Chat.BackfillOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if _, err := history.Backfill(ctx); err != nil {
			appLogger.Error("History backfill failed", "error", err)
		}
		cancel()
	}

	services := service.NewServices(repos, history, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.Server.RateLimit, cfg.Server.RateWindow, appLogger)

	handlers := handler.NewHandlers(services, router, registry, checks, cfg, appLogger)

	engine := setupRouter(handlers, authMiddleware, rateLimitMiddleware, chatMetrics, cfg, appLogger)

	// no WriteTimeout: it would cut hijacked websocket connections
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func newPool(dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(dbCfg.MaxConnections)
	poolCfg.MaxConnIdleTime = dbCfg.MaxIdleTime
	poolCfg.MaxConnLifetime = dbCfg.ConnMaxLifetime

	return pgxpool.NewWithConfig(context.Background(), poolCfg)
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	chatMetrics *metrics.Metrics,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(chatMetrics.GinMiddleware())
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// authentication happens after the upgrade so rejections carry a close reason
	router.GET("/ws/chat", handlers.WebSocket.HandleChat)

	v1 := router.Group("/api/v1")
	v1.Use(rateLimitMiddleware.Limit(), authMiddleware.RequireAuth())
	{
		v1.GET("/users/me/chats", handlers.Chat.ListChats)
		v1.GET("/users/me/invitations", handlers.Chat.ListInvitations)

		chats := v1.Group("/chats/:chatId")
		{
			chats.GET("/messages", handlers.Chat.GetMessages)
			chats.GET("/history", handlers.Chat.GetHistory)
		}

		messages := v1.Group("/messages")
		{
			messages.PUT("/:id", handlers.Chat.EditMessage)
			messages.DELETE("/:id", handlers.Chat.DeleteMessage)
		}
	}

	return router
}
