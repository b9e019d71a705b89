package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore хранит запомненное множество в Redis, переживая рестарт процесса.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(redisURL, password string, db int, key string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ошибка при подключении к Redis: %w", err)
	}

	logger.Info("Соединение с Redis успешно установлено")

	return &RedisStore{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func (s *RedisStore) Load(ctx context.Context) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		s.logger.Error("Ошибка при чтении множества из Redis",
			"error", err,
			"key", s.key,
		)

		return nil, fmt.Errorf("ошибка при чтении множества из Redis: %w", err)
	}

	s.logger.Info("Множество дедупликации восстановлено из Redis",
		"key", s.key,
		"count", len(keys),
	)

	return keys, nil
}

func (s *RedisStore) Replace(ctx context.Context, keys []string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)

	if len(keys) > 0 {
		members := make([]interface{}, len(keys))
		for i, k := range keys {
			members[i] = k
		}

		pipe.SAdd(ctx, s.key, members...)
		pipe.Expire(ctx, s.key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Ошибка при замещении множества в Redis",
			"error", err,
			"key", s.key,
		)

		return fmt.Errorf("ошибка при замещении множества в Redis: %w", err)
	}

	return nil
}

func (s *RedisStore) Add(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.key, members...)
	pipe.Expire(ctx, s.key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Ошибка при дозаписи множества в Redis",
			"error", err,
			"key", s.key,
		)

		return fmt.Errorf("ошибка при дозаписи множества в Redis: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
