package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/edvin/shipstatic/internal/config"
	"github.com/edvin/shipstatic/internal/model"
)

const (
	buildQueueKey = "build-queue"
	statusHashKey = "status"
)

// Redis implements Queue on a Redis list (LPUSH/BRPOP) and hash (HSET/HGET).
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection before returning.
func NewRedis(cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (q *Redis) Push(ctx context.Context, id string) error {
	if err := q.client.LPush(ctx, buildQueueKey, id).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", id, err)
	}
	return nil
}

// Pop blocks indefinitely until a job is available. BRPOP delivers each
// element to exactly one connected consumer.
func (q *Redis) Pop(ctx context.Context) (string, error) {
	res, err := q.client.BRPop(ctx, 0, buildQueueKey).Result()
	if err != nil {
		return "", fmt.Errorf("pop job: %w", err)
	}
	// BRPOP returns [key, element].
	if len(res) != 2 {
		return "", fmt.Errorf("pop job: unexpected BRPOP reply of length %d", len(res))
	}
	return res[1], nil
}

func (q *Redis) SetStatus(ctx context.Context, id, status string) error {
	if err := q.client.HSet(ctx, statusHashKey, id, status).Err(); err != nil {
		return fmt.Errorf("set status %s=%s: %w", id, status, err)
	}
	return nil
}

func (q *Redis) GetStatus(ctx context.Context, id string) (string, error) {
	status, err := q.client.HGet(ctx, statusHashKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.StatusUnknown, nil
		}
		return "", fmt.Errorf("get status %s: %w", id, err)
	}
	return status, nil
}

// Ping reports whether the Redis connection is healthy.
func (q *Redis) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Redis) Close() error {
	return q.client.Close()
}
