package draft

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"ojarena/internal/cli/config"
	"ojarena/pkg/errors"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ojarena:draft:"

// RedisStore keeps drafts in redis with a TTL, so several terminals can
// share them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings redis.
func NewRedisStore(cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.Newf(errors.DraftStoreError, "redis addr cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, errors.DraftStoreError, "failed to ping redis")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrapf(err, errors.DraftStoreError, "encode draft failed")
	}
	if err := s.client.Set(ctx, keyPrefix+Key(d.ContestID, d.ProblemID), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, errors.DraftStoreError, "save draft failed")
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, contestID, problemID string) (Draft, error) {
	data, err := s.client.Get(ctx, keyPrefix+Key(contestID, problemID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return Draft{}, notFound(contestID, problemID)
	}
	if err != nil {
		return Draft{}, errors.Wrapf(err, errors.DraftStoreError, "load draft failed")
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, errors.Wrapf(err, errors.DraftStoreError, "decode draft failed")
	}
	return d, nil
}

func (s *RedisStore) Delete(ctx context.Context, contestID, problemID string) error {
	if err := s.client.Del(ctx, keyPrefix+Key(contestID, problemID)).Err(); err != nil {
		return errors.Wrapf(err, errors.DraftStoreError, "delete draft failed")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
