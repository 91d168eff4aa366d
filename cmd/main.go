package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/filecart/internal/config"
	"github.com/fjod/filecart/internal/domain"
	h "github.com/fjod/filecart/internal/http"
	"github.com/fjod/filecart/internal/logging"
	"github.com/fjod/filecart/internal/service"
	"github.com/fjod/filecart/internal/store"
	"github.com/fjod/filecart/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if cfg.Tracing.Enabled {
		shutdownTracing, err := telemetry.Init(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to init tracing")
		}
		defer shutdownTracing(context.Background())
	}

	ctx := context.Background()
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	docs := store.New(backend, store.WithLockTimeout(cfg.Store.LockTimeout))
	defer docs.Close()

	products, carts, err := openCollections(ctx, docs)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to prepare collections")
	}

	productService := service.NewProductService(products)
	var cartOpts []service.CartOption
	if cfg.Cart.VerifyProducts {
		cartOpts = append(cartOpts, service.WithProductLookup(productService))
	}
	cartService := service.NewCartService(carts, cartOpts...)

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RateLimit:      cfg.HTTP.RateLimit,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
	}, productService, cartService)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      telemetry.Handler(router, cfg.Tracing.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.HTTP.Port).Str("driver", cfg.Store.Driver).Msg("filecart starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}
	logging.Info().Msg("server exited")
}

func newBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverFile:
		return store.NewFileBackend(cfg.Store.DataDir)
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return store.NewRedisBackend(client, store.DefaultBreakerConfig()), nil
	case config.DriverMongo:
		db, err := store.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return store.NewMongoBackend(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openCollections creates empty products and carts documents when missing.
func openCollections(ctx context.Context, docs *store.Store) (*store.Collection[domain.Product], *store.Collection[domain.Cart], error) {
	products := store.NewCollection[domain.Product](docs, service.ProductsCollection)
	carts := store.NewCollection[domain.Cart](docs, service.CartsCollection)

	for _, ensure := range []interface {
		Ensure(context.Context) error
		Name() string
	}{products, carts} {
		if err := ensure.Ensure(ctx); err != nil {
			return nil, nil, fmt.Errorf("collection %s: %w", ensure.Name(), err)
		}
		logging.Info().Str("collection", ensure.Name()).Msg("collection ready")
	}
	return products, carts, nil
}
