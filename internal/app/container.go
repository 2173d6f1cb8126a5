// Package app wires configuration into a running taskhub: the store stack,
// event publishing, record services and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/taskhub/adapter/api"
	"github.com/felixgeelhaar/taskhub/internal/database"
	"github.com/felixgeelhaar/taskhub/internal/events"
	"github.com/felixgeelhaar/taskhub/internal/records"
	"github.com/felixgeelhaar/taskhub/internal/store"
	"github.com/felixgeelhaar/taskhub/internal/store/breaker"
	"github.com/felixgeelhaar/taskhub/internal/store/cache"
	"github.com/felixgeelhaar/taskhub/pkg/config"
	"github.com/felixgeelhaar/taskhub/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Store is the fully decorated store the services use.
	Store  store.Store
	Driver database.Driver

	Breaker     *breaker.Store
	RedisClient *redis.Client

	EventPublisher events.Publisher
	Events         *events.Recorder

	Users *records.Service
	Tasks *records.Service

	Health  *observability.HealthRegistry
	Metrics *observability.InMemoryMetrics
	Server  *api.Server
}

// NewContainer connects every configured backend. Optional services (Redis,
// RabbitMQ) that cannot be reached are skipped in development and fatal
// otherwise.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Health:  observability.NewHealthRegistry(),
		Metrics: observability.NewInMemoryMetrics(),
	}

	driver, err := StoreDriver(cfg)
	if err != nil {
		return nil, err
	}
	c.Driver = driver

	backend, err := openStore(ctx, cfg, driver, logger)
	if err != nil {
		return nil, err
	}
	c.Store = backend
	c.Health.Register("store", observability.PingChecker("store", observability.HealthStatusUnhealthy, backend.Ping))

	if cfg.BreakerEnabled {
		bcfg := breaker.DefaultConfig()
		bcfg.Name = "store-" + driver.String()
		bcfg.FailureThreshold = uint32(cfg.BreakerFailureThreshold)
		bcfg.Timeout = cfg.BreakerTimeout
		c.Breaker = breaker.New(c.Store, bcfg, logger)
		c.Store = c.Breaker
		c.Health.Register("breaker", breakerChecker(c.Breaker))
	}

	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if c.RedisClient != nil {
		c.Store = cache.New(c.Store, cache.NewRedisCache(c.RedisClient), cfg.CacheTTL, cache.WithLogger(logger))
		c.Health.Register("redis", observability.PingChecker("redis", observability.HealthStatusDegraded,
			func(ctx context.Context) error { return c.RedisClient.Ping(ctx).Err() }))
	}

	if err := c.connectRabbitMQ(); err != nil {
		c.Close()
		return nil, err
	}
	c.Events = events.NewRecorder(c.EventPublisher, logger)

	c.Users = records.NewService(records.ServiceConfig{
		Schema: records.NewUserSchema(c.Store),
		Store:  c.Store,
		Events: c.Events,
		Logger: logger,
	})
	c.Tasks = records.NewService(records.ServiceConfig{
		Schema: records.NewTaskSchema(),
		Store:  c.Store,
		Events: c.Events,
		Logger: logger,
	})

	policy := api.ParseStatusPolicy(cfg.StatusCodes)
	resources := make([]*api.ResourceHandler, 0, 2)
	for _, svc := range []*records.Service{c.Users, c.Tasks} {
		resources = append(resources, api.NewResourceHandler(api.ResourceHandlerConfig{
			Service: svc,
			Policy:  policy,
			Logger:  logger,
		}))
	}

	c.Server = api.NewServer(api.ServerConfig{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}, api.ServerDeps{
		Resources: resources,
		Health:    c.Health,
		Metrics:   c.Metrics,
		Logger:    logger,
	})

	return c, nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, caching disabled", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, caching disabled", "error", err)
		return nil
	}

	c.RedisClient = client
	c.Logger.Info("connected to Redis", "ttl", c.Config.CacheTTL.String())
	return nil
}

func (c *Container) connectRabbitMQ() error {
	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = events.NewNoopPublisher(c.Logger)
		return nil
	}

	publisher, err := events.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Config.RabbitMQExchange, c.Logger)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return err
		}
		c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
		c.EventPublisher = events.NewNoopPublisher(c.Logger)
		return nil
	}

	c.EventPublisher = publisher
	c.Health.Register("rabbitmq", observability.PingChecker("rabbitmq", observability.HealthStatusDegraded, publisher.Ping))
	return nil
}

// breakerChecker reports degraded while the store breaker is not closed.
func breakerChecker(b *breaker.Store) observability.HealthChecker {
	return func(context.Context) observability.HealthCheckResult {
		state := b.State()
		if state != "closed" {
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: "circuit breaker " + state,
			}
		}
		return observability.HealthCheckResult{
			Status:  observability.HealthStatusHealthy,
			Message: "circuit breaker closed",
		}
	}
}

// Close releases every connection the container opened.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.Logger.Warn("error closing store", "error", err)
		} else {
			c.Logger.Info("store closed", "driver", c.Driver.String())
		}
	}
}
