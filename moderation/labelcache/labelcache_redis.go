package labelcache

import (
	"context"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	Data *cache.Cache
	TTL  time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	ctx := context.Background()
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, ttl),
	})
	return &RedisStore{
		Data: data,
		TTL:  ttl,
	}, nil
}

func redisLabelKey(subjectType, id string) string {
	return "label/" + subjectType + "/" + id
}

func (s RedisStore) Get(ctx context.Context, subjectType, id string) (string, error) {
	var val string
	err := s.Data.Get(ctx, redisLabelKey(subjectType, id), &val)
	if err == cache.ErrCacheMiss {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s RedisStore) Set(ctx context.Context, subjectType, id, label string) error {
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisLabelKey(subjectType, id),
		Value: label,
		TTL:   s.TTL,
	})
}

func (s RedisStore) Purge(ctx context.Context, subjectType, id string) error {
	return s.Data.Delete(ctx, redisLabelKey(subjectType, id))
}
