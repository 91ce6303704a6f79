package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shadow-links/internal/links"
)

// saveLinkScript creates the link hash and owner index only when the short id is free.
var saveLinkScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1],
	"short_id", ARGV[1],
	"destination", ARGV[2],
	"description", ARGV[3],
	"shadow_user_id", ARGV[4],
	"created_at", ARGV[5])
redis.call("ZADD", KEYS[2], ARGV[5], ARGV[1])
return 1
`)

// RedisStore is a Redis implementation of links.Repository.
// Links live in hashes under "link:<shortId>"; each owner has a sorted set
// "owner:<shadowUserId>:links" scored by creation time.
type RedisStore struct {
	client      *redis.Client
	prefix      string
	ownerPrefix string
}

// NewRedisStore creates a new Redis-backed link store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:      client,
		prefix:      "link:",
		ownerPrefix: "owner:",
	}
}

func (r *RedisStore) Save(ctx context.Context, link *links.Link) error {
	created, err := saveLinkScript.Run(ctx, r.client,
		[]string{r.prefix + link.ShortID, r.ownerKey(link.ShadowUserID)},
		link.ShortID,
		link.Destination,
		link.Description,
		link.ShadowUserID,
		link.CreatedAt.UnixNano(),
	).Int()
	if err != nil {
		return err
	}

	if created == 0 {
		return links.ErrDuplicateShortID
	}

	return nil
}

func (r *RedisStore) GetByShortID(ctx context.Context, shortID string) (*links.Link, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+shortID).Result()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, links.ErrNotFound
	}

	return linkFromHash(fields), nil
}

func (r *RedisStore) ListByOwner(ctx context.Context, shadowUserID string) ([]*links.Link, error) {
	ids, err := r.client.ZRange(ctx, r.ownerKey(shadowUserID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	owned := make([]*links.Link, 0, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))

	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.prefix+id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	for _, cmd := range cmds {
		if fields := cmd.Val(); len(fields) > 0 {
			owned = append(owned, linkFromHash(fields))
		}
	}

	return owned, nil
}

func (r *RedisStore) ownerKey(shadowUserID string) string {
	return r.ownerPrefix + shadowUserID + ":links"
}

func linkFromHash(fields map[string]string) *links.Link {
	var createdAt time.Time

	if ts, ok := fields["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos).UTC()
		}
	}

	return &links.Link{
		ShortID:      fields["short_id"],
		Destination:  fields["destination"],
		Description:  fields["description"],
		ShadowUserID: fields["shadow_user_id"],
		CreatedAt:    createdAt,
	}
}

func linkToHash(link *links.Link) map[string]any {
	return map[string]any{
		"short_id":       link.ShortID,
		"destination":    link.Destination,
		"description":    link.Description,
		"shadow_user_id": link.ShadowUserID,
		"created_at":     link.CreatedAt.UnixNano(),
	}
}

var _ links.Repository = (*RedisStore)(nil)
