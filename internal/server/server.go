package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"goldshop/internal/cache"
	"goldshop/internal/config"
	"goldshop/internal/database"
	custommiddleware "goldshop/internal/middleware"
	"goldshop/internal/repository"
	"goldshop/internal/service"
	"goldshop/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
	carts  cache.CartCache
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.IsProduction()))

	router.Get("/health", healthHandler(db, redisClient))

	store := repository.NewStore(db.DB())
	cartCache := newCartCache(redisClient, cfg.Redis.CartCacheTTL, logger)

	userService := service.NewUserService(store, cfg.JWT, cfg.Auth, logger)
	catalogService := service.NewCatalogService(store, logger)
	cartService := service.NewCartService(store, cartCache, logger)
	orderService := service.NewOrderService(store, cartCache, logger)

	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)

	router.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate_limit",
		}, logger))

		transport.NewUserHandler(userService, logger).RegisterRoutes(r, authMiddleware)
		transport.NewGoldHandler(catalogService, logger).RegisterRoutes(r, authMiddleware)
		transport.NewCartHandler(cartService, orderService, logger).RegisterRoutes(r, authMiddleware)
		transport.NewOrderHandler(orderService, logger).RegisterRoutes(r, authMiddleware)
	})

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		carts:  cartCache,
	}
}

// newCartCache falls back to no caching when redis is unreachable at startup,
// so cart reads don't wait on dial timeouts and no invalidation can be lost.
func newCartCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) cache.CartCache {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis not reachable, serving carts without cache", zap.Error(err))
		return cache.NopCartCache{}
	}
	return cache.NewRedisCartCache(client, ttl)
}

// healthHandler reports 503 when a dependency is unreachable
func healthHandler(db database.Service, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbHealth := db.Health(ctx)
		status := map[string]string{"status": "ok", "database": dbHealth["status"], "redis": "up"}
		code := http.StatusOK

		if dbHealth["status"] != "up" {
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		// The API keeps serving without redis: caching and rate limiting fail open.
		if err := redisClient.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			status["status"] = "degraded"
		}

		custommiddleware.RespondWithJSON(w, code, status)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	return nil
}
