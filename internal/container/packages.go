package container

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shadow-links/internal/audit"
	auditstore "github.com/serroba/shadow-links/internal/audit/store"
	"github.com/serroba/shadow-links/internal/handlers"
	"github.com/serroba/shadow-links/internal/health"
	"github.com/serroba/shadow-links/internal/identity"
	"github.com/serroba/shadow-links/internal/idgen"
	"github.com/serroba/shadow-links/internal/links"
	"github.com/serroba/shadow-links/internal/messaging"
	"github.com/serroba/shadow-links/internal/middleware"
	"github.com/serroba/shadow-links/internal/ratelimit"
	"github.com/serroba/shadow-links/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Per-client burst guard in front of the policy limits.
	burstPerSecond = 20
	burstSize      = 50
)

// RepositoryPackage provides the links.Repository selected by Options.Storage,
// wrapped in the redis read-through cache when a cache TTL is set.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (links.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		repo, err := newRepository(i, opts)
		if err != nil {
			return nil, err
		}

		if opts.CacheTTLSeconds > 0 && opts.Storage != StorageRedis {
			client, err := do.Invoke[*redis.Client](i)
			if err != nil {
				return nil, err
			}

			repo = store.NewRedisCacheRepository(repo, client, opts.CacheTTL())
		}

		logger.Info("link storage ready",
			zap.String("storage", opts.Storage),
			zap.Duration("cacheTtl", opts.CacheTTL()),
		)

		return repo, nil
	})
}

func newRepository(i *do.Injector, opts *Options) (links.Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch opts.Storage {
	case StorageMemory:
		return store.NewMemoryStore(), nil
	case StoragePostgres:
		pool, err := do.Invoke[*pgxpool.Pool](i)
		if err != nil {
			return nil, err
		}

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		return pg, nil
	case StorageRedis:
		client, err := do.Invoke[*redis.Client](i)
		if err != nil {
			return nil, err
		}

		return store.NewRedisStore(client), nil
	case StorageMySQL, StorageSQLite:
		db, err := do.Invoke[*gorm.DB](i)
		if err != nil {
			return nil, err
		}

		gs := store.NewGormStore(db)
		if err := gs.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", opts.Storage, err)
		}

		return gs, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", opts.Storage)
	}
}

// LinksPackage provides the identifier generator, shadow identities, the
// resolver and the creator.
func LinksPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (idgen.Generator, error) {
		switch opts := do.MustInvoke[*Options](i); opts.IDGenerator {
		case "nanoid", "":
			return idgen.NewNanoID(), nil
		case "random":
			return idgen.NewCryptoSource(), nil
		default:
			return nil, fmt.Errorf("unknown id generator %q", opts.IDGenerator)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*identity.Shadow, error) {
		opts := do.MustInvoke[*Options](i)

		return identity.NewShadow(do.MustInvoke[idgen.Generator](i), opts.CookieMaxAge(), opts.CookieSecure), nil
	})

	do.Provide(injector, func(i *do.Injector) (*links.DestinationPolicy, error) {
		opts := do.MustInvoke[*Options](i)
		policy := links.NewDestinationPolicy(opts.AllowedHost, opts.AllowedPathPrefix)

		if opts.PolicyFile == "" {
			return policy, nil
		}

		fromFile, err := links.LoadDestinationPolicy(opts.PolicyFile)
		if err != nil {
			return nil, err
		}

		return policy.Merge(fromFile), nil
	})

	do.Provide(injector, func(i *do.Injector) (*links.Resolver, error) {
		opts := do.MustInvoke[*Options](i)

		repo, err := do.Invoke[links.Repository](i)
		if err != nil {
			return nil, err
		}

		return links.NewResolver(repo, opts.FoundStatus, opts.Fallback)
	})

	do.Provide(injector, func(i *do.Injector) (*links.Creator, error) {
		opts := do.MustInvoke[*Options](i)

		repo, err := do.Invoke[links.Repository](i)
		if err != nil {
			return nil, err
		}

		policy, err := do.Invoke[*links.DestinationPolicy](i)
		if err != nil {
			return nil, err
		}

		return links.NewCreator(repo, do.MustInvoke[idgen.Generator](i), policy, opts.CreateAttempts), nil
	})
}

// RateLimitPackage provides the policy limiter, its counter store and the burst guard.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		switch opts := do.MustInvoke[*Options](i); opts.RateLimitStore {
		case StorageMemory, "":
			return store.NewRateLimitMemoryStore(), nil
		case StorageRedis:
			client, err := do.Invoke[*redis.Client](i)
			if err != nil {
				return nil, err
			}

			return store.NewRateLimitRedisStore(client), nil
		default:
			return nil, fmt.Errorf("unknown rate limit store %q", opts.RateLimitStore)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		counters, err := do.Invoke[ratelimit.Store](i)
		if err != nil {
			return nil, err
		}

		return ratelimit.NewPolicyLimiter(counters, ratelimit.DefaultPolicy()), nil
	})

	do.Provide(injector, func(_ *do.Injector) (*ratelimit.TokenBucketLimiter, error) {
		return ratelimit.NewTokenBucketLimiter(burstPerSecond, burstSize), nil
	})
}

// PublisherGroupPackage provides the event publisher group. Without
// Options.Events the group discards every event.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		if !opts.Events {
			return messaging.NewPublisherGroup(nil), nil
		}

		client, err := do.Invoke[*redis.Client](i)
		if err != nil {
			return nil, err
		}

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i)))
		if err != nil {
			return nil, fmt.Errorf("create redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// HTTPPackage provides the router and the huma API with middleware and routes registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*handlers.LinkHandler, error) {
		opts := do.MustInvoke[*Options](i)

		resolver, err := do.Invoke[*links.Resolver](i)
		if err != nil {
			return nil, err
		}

		creator, err := do.Invoke[*links.Creator](i)
		if err != nil {
			return nil, err
		}

		publishers, err := do.Invoke[*messaging.PublisherGroup](i)
		if err != nil {
			return nil, err
		}

		return handlers.NewLinkHandler(
			resolver,
			creator,
			do.MustInvoke[*identity.Shadow](i),
			opts.PublicBaseURL(),
			opts.StrictIdentity,
			messaging.PublishFor[audit.LinkCreatedEvent](publishers, audit.TopicLinkCreated),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*health.Handler, error) {
		return newHealthHandler(i)
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		linkHandler, err := do.Invoke[*handlers.LinkHandler](i)
		if err != nil {
			return nil, err
		}

		healthHandler, err := do.Invoke[*health.Handler](i)
		if err != nil {
			return nil, err
		}

		policyLimiter, err := do.Invoke[*ratelimit.PolicyLimiter](i)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("Shadow Links", "1.0.0"))

		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.RateLimiter(api, do.MustInvoke[*ratelimit.TokenBucketLimiter](i)))
		api.UseMiddleware(middleware.PolicyRateLimiter(api, policyLimiter, ratelimit.NewOperationScopeResolver(), logger))

		health.RegisterRoutes(api, healthHandler)
		handlers.RegisterRoutes(api, linkHandler)

		return api, nil
	})
}

func newHealthHandler(i *do.Injector) (*health.Handler, error) {
	opts := do.MustInvoke[*Options](i)
	h := health.NewHandler(do.MustInvoke[*zap.Logger](i))

	if opts.UsesRedis() {
		client, err := do.Invoke[*redis.Client](i)
		if err != nil {
			return nil, err
		}

		h.Add("redis", health.NewRedisChecker(client))
	}

	if opts.Storage == StoragePostgres {
		pool, err := do.Invoke[*pgxpool.Pool](i)
		if err != nil {
			return nil, err
		}

		h.Add(StoragePostgres, health.NewPostgresChecker(pool))
	}

	if opts.UsesGorm() {
		db, err := do.Invoke[*gorm.DB](i)
		if err != nil {
			return nil, err
		}

		h.Add(opts.Storage, health.NewGormChecker(db))
	}

	return h, nil
}

// ConsumerGroupPackage provides the audit consumer group reading link.created events.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		client, err := do.Invoke[*redis.Client](i)
		if err != nil {
			return nil, err
		}

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: opts.ConsumerGroup,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create redis stream subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(
			subscriber,
			audit.TopicLinkCreated,
			audit.LinkCreatedHandler(auditstore.NewLog(logger)),
			logger,
		))

		return group, nil
	})
}
