package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shadow-links/internal/links"
)

// RedisCacheRepository wraps a Repository with Redis caching for redirect lookups.
// Owner listings always go to the underlying store.
type RedisCacheRepository struct {
	store  links.Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(store links.Repository, client *redis.Client, ttl time.Duration) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:  store,
		client: client,
		prefix: "cache:link:",
		ttl:    ttl,
	}
}

// Save stores a link in the underlying store and updates the cache.
func (r *RedisCacheRepository) Save(ctx context.Context, link *links.Link) error {
	if err := r.store.Save(ctx, link); err != nil {
		return err
	}

	r.cacheLink(ctx, link)

	return nil
}

// GetByShortID retrieves a link, checking the cache first.
func (r *RedisCacheRepository) GetByShortID(ctx context.Context, shortID string) (*links.Link, error) {
	if link, err := r.getFromCache(ctx, shortID); err == nil {
		return link, nil
	}

	link, err := r.store.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}

	r.cacheLink(ctx, link)

	return link, nil
}

func (r *RedisCacheRepository) ListByOwner(ctx context.Context, shadowUserID string) ([]*links.Link, error) {
	return r.store.ListByOwner(ctx, shadowUserID)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, shortID string) (*links.Link, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+shortID).Result()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, links.ErrNotFound
	}

	return linkFromHash(fields), nil
}

func (r *RedisCacheRepository) cacheLink(ctx context.Context, link *links.Link) {
	pipe := r.client.Pipeline()
	key := r.prefix + link.ShortID

	pipe.HSet(ctx, key, linkToHash(link))

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

var _ links.Repository = (*RedisCacheRepository)(nil)
