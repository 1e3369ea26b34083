package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/timi-123/shop-admin-sub000/internal/platform/auth"
	"github.com/timi-123/shop-admin-sub000/internal/platform/config"
	pfirestore "github.com/timi-123/shop-admin-sub000/internal/platform/firestore"
	"github.com/timi-123/shop-admin-sub000/internal/platform/idempotency"
	"github.com/timi-123/shop-admin-sub000/internal/platform/jobs"
	"github.com/timi-123/shop-admin-sub000/internal/platform/observability"
	"github.com/timi-123/shop-admin-sub000/internal/platform/requestctx"
	"github.com/timi-123/shop-admin-sub000/internal/repositories"
	"github.com/timi-123/shop-admin-sub000/internal/repositories/cache"
	fsrepo "github.com/timi-123/shop-admin-sub000/internal/repositories/firestore"
	memrepo "github.com/timi-123/shop-admin-sub000/internal/repositories/memory"
	mongorepo "github.com/timi-123/shop-admin-sub000/internal/repositories/mongo"
	"github.com/timi-123/shop-admin-sub000/internal/services"
)

const (
	firestoreCheckTimeout = 2 * time.Second
	dependencyTimeout     = 1500 * time.Millisecond
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Orders services.OrderService
	System services.SystemService
}

// Container wires repositories, services, and platform clients for runtime use.
type Container struct {
	Config        config.Config
	Services      Services
	Authenticator *auth.Authenticator
	Idempotency   idempotency.Store

	closers []func(context.Context) error
}

// Option customises container construction.
type Option func(*containerOptions)

type containerOptions struct {
	verifier auth.TokenVerifier
	checks   []repositories.DependencyCheck
}

// WithTokenVerifier replaces the Firebase verifier, for local runs against the emulator or tests.
func WithTokenVerifier(v auth.TokenVerifier) Option {
	return func(o *containerOptions) {
		o.verifier = v
	}
}

// WithDependencyCheck adds a readiness probe beyond the stores the container builds itself.
func WithDependencyCheck(check repositories.DependencyCheck) Option {
	return func(o *containerOptions) {
		o.checks = append(o.checks, check)
	}
}

// NewContainer constructs the runtime dependencies selected by cfg. Clients are created lazily
// where the SDK allows it, so construction does not require the backends to be reachable.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (c *Container, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o containerOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	c = &Container{Config: cfg}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	provider := pfirestore.NewProvider(cfg.Firestore)
	c.closers = append(c.closers, provider.Close)

	metrics := observability.NewOrderMetrics(nil, logger.Named("metrics"))
	checks := []repositories.DependencyCheck{{
		Name:    "firestore",
		Timeout: firestoreCheckTimeout,
		Check:   provider.Ping,
	}}

	orders, orderChecks, err := c.buildOrderRepository(ctx, cfg, provider, metrics)
	if err != nil {
		return nil, err
	}
	checks = append(checks, orderChecks...)
	checks = append(checks, o.checks...)

	var catalog repositories.CatalogReader
	catalog, err = fsrepo.NewCatalogRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build catalog repository: %w", err)
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, func(context.Context) error { return rdb.Close() })
		cacheLogger := logger.Named("catalog_cache")
		catalog, err = cache.NewCatalogCache(rdb, catalog,
			cache.WithTTL(cfg.Redis.CatalogTTL),
			cache.WithErrorHandler(func(ctx context.Context, op string, err error) {
				requestctx.LoggerOr(ctx, cacheLogger).Warn("catalog.cache.failed", zap.String("op", op), zap.Error(err))
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("build catalog cache: %w", err)
		}
		checks = append(checks, repositories.DependencyCheck{
			Name:    "redis",
			Timeout: dependencyTimeout,
			Check: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		})
	}

	vendors, err := fsrepo.NewVendorRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build vendor repository: %w", err)
	}

	var events services.OrderEventPublisher
	if cfg.PubSub.OrderEventsTopic != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("build pubsub client: %w", err)
		}
		topic := client.Topic(cfg.PubSub.OrderEventsTopic)
		c.closers = append(c.closers, func(context.Context) error {
			topic.Stop()
			return client.Close()
		})
		publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			return nil, fmt.Errorf("build order event publisher: %w", err)
		}
		events = publisher
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: dependencyTimeout,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		})
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:         orders,
		Catalog:        catalog,
		Vendors:        vendors,
		CommissionRate: cfg.Orders.CommissionRate,
		Clock:          time.Now,
		Events:         events,
		Metrics:        metrics,
		Logger:         observability.EventLogger(logger.Named("orders")),
	})
	if err != nil {
		return nil, fmt.Errorf("build order service: %w", err)
	}

	health, err := repositories.NewDependencyHealthRepository(checks, time.Now)
	if err != nil {
		return nil, fmt.Errorf("build health repository: %w", err)
	}
	systemSvc, err := services.NewSystemService(health)
	if err != nil {
		return nil, fmt.Errorf("build system service: %w", err)
	}

	c.Services = Services{Orders: orderSvc, System: systemSvc}

	verifier := o.verifier
	if verifier == nil {
		firebase, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			return nil, fmt.Errorf("build firebase verifier: %w", err)
		}
		verifier = firebase
	}
	c.Authenticator = auth.NewAuthenticator(verifier)

	if cfg.Orders.Store == config.OrderStoreMemory {
		c.Idempotency = idempotency.NewMemoryStore()
	} else {
		c.Idempotency = idempotency.NewFirestoreStore(provider)
	}

	return c, nil
}

func (c *Container) buildOrderRepository(ctx context.Context, cfg config.Config, provider *pfirestore.Provider, metrics *observability.OrderMetrics) (repositories.OrderRepository, []repositories.DependencyCheck, error) {
	switch cfg.Orders.Store {
	case config.OrderStoreMongo:
		client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		c.closers = append(c.closers, client.Disconnect)
		repo, err := mongorepo.NewOrderRepository(client, cfg.Mongo.Database, cfg.Orders.Collection,
			mongorepo.WithMaxWriteAttempts(cfg.Orders.MaxWriteAttempts),
			mongorepo.WithConflictObserver(metrics.WriteConflict),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("build mongo order repository: %w", err)
		}
		check := repositories.DependencyCheck{
			Name:    "mongo",
			Timeout: dependencyTimeout,
			Check: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
		}
		return repo, []repositories.DependencyCheck{check}, nil
	case config.OrderStoreMemory:
		return memrepo.NewOrderRepository(
			memrepo.WithMaxWriteAttempts(cfg.Orders.MaxWriteAttempts),
			memrepo.WithConflictObserver(metrics.WriteConflict),
		), nil, nil
	case config.OrderStoreFirestore, "":
		repo, err := fsrepo.NewOrderRepository(provider,
			fsrepo.WithOrdersCollection(cfg.Orders.Collection),
			fsrepo.WithMaxWriteAttempts(cfg.Orders.MaxWriteAttempts),
			fsrepo.WithConflictObserver(metrics.WriteConflict),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("build firestore order repository: %w", err)
		}
		return repo, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown order store %q", cfg.Orders.Store)
	}
}

// Close releases clients in reverse order of creation.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
