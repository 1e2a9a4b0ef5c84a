// Package redis backs the result-read and stream-poll de-dupe cache described
// in SPEC_FULL.md's DOMAIN STACK. It is never the source of truth: the
// Submission Registry and Event Log (SQLite) own every fact it caches, so a
// flush or cold cache only costs a slower read, never a correctness gap.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/designduel/grading-pipeline/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetResult caches a terminal FinalResult by submission id. TTL is generous
// since the cached value never changes once a submission is complete.
func (c *Client) SetResult(ctx context.Context, submissionID string, result interface{}, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, fmt.Sprintf("result:%s", submissionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result cache: %w", err)
	}

	logger.Debug("Result cached", zap.String("submission_id", submissionID), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetResult(ctx context.Context, submissionID string, result interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("result:%s", submissionID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get result cache: %w", err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return false, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	logger.Debug("Result cache hit", zap.String("submission_id", submissionID))
	return true, nil
}

func (c *Client) InvalidateResult(ctx context.Context, submissionID string) error {
	return c.client.Del(ctx, fmt.Sprintf("result:%s", submissionID)).Err()
}

// TryLockStreamPoll de-dupes concurrent pollers for the same submission's
// progress stream: only the first caller within the TTL window gets true.
// No handler in this module calls it; the SSE handler polls the Event Log
// directly for every connection.
func (c *Client) TryLockStreamPoll(ctx context.Context, submissionID string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, fmt.Sprintf("streamlock:%s", submissionID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire stream poll lock: %w", err)
	}
	return ok, nil
}

func (c *Client) IncrementMetric(ctx context.Context, metricName string) error {
	return c.client.Incr(ctx, fmt.Sprintf("metric:%s", metricName)).Err()
}

func (c *Client) GetMetric(ctx context.Context, metricName string) (int64, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf("metric:%s", metricName)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
