// @title           Rincon Intipuqueno Orders API
// @version         1.0
// @description     Order management API with JWT authentication and an order lifecycle engine.
// @BasePath        /api
//
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "github.com/Th3rick2002/backend-rincon-intipuquenio/docs"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/api"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/api/handler"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/api/middleware"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/service"
	mongodb "github.com/Th3rick2002/backend-rincon-intipuquenio/internal/infrastructure/db/mongo"
	redisdb "github.com/Th3rick2002/backend-rincon-intipuquenio/internal/infrastructure/db/redis"
	infrahttp "github.com/Th3rick2002/backend-rincon-intipuquenio/internal/infrastructure/http"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/infrastructure/http/handlers"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/infrastructure/messaging/kafka"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/infrastructure/queue"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/pkg/config"
	"github.com/Th3rick2002/backend-rincon-intipuquenio/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		l := logger.Get()
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "orders-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Connections ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Repositories ---
	users := mongodb.NewUserRepository(db)
	products := mongodb.NewProductRepository(db)
	orders := mongodb.NewOrderRepository(db)
	audit := mongodb.NewEventRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, products, orders, audit); err != nil {
		return err
	}

	// --- Event delivery ---
	sinks := []queue.Sink{audit}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		sinks = append(sinks, publisher)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}
	dispatcher := queue.NewDispatcher(cfg.Events.Workers, logger.For("dispatcher"), sinks...)
	dispatcher.Start()

	// --- Services ---
	tokens, err := service.NewTokenService(users, service.TokenConfig{
		AccessSecret:  cfg.Auth.JWTSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return err
	}
	authService := service.NewAuthService(users, tokens, logger.For("auth"),
		service.WithAdminSignup(cfg.Auth.AdminSignup))
	orderService := service.NewOrderService(orders, products, users, logger.For("orders"),
		service.WithIdempotencyStore(redisdb.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)),
		service.WithEventNotifier(dispatcher))
	productService := service.NewProductService(products, logger.For("products"))

	// --- HTTP ---
	e := infrahttp.NewServer(handlers.MongoCheck(mongoClient), handlers.RedisCheck(rdb))
	api.Register(e, api.Handlers{
		Auth: handler.NewAuthHandler(authService, handler.CookieConfig{
			Secure:   cfg.Auth.CookieSecure,
			SameSite: cfg.Auth.SameSite(),
			Domain:   cfg.Auth.CookieDomain,
		}),
		Orders:   handler.NewOrderHandler(orderService),
		Products: handler.NewProductHandler(productService),
	}, api.RouterConfig{
		Tokens:      tokens,
		TokenLookup: middleware.TokenLookup(cfg.Auth.TokenLookup),
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	// Stop accepting requests first so no new events are produced, then drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("event dispatcher did not drain in time")
	}
	return nil
}
