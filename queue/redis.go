package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Handler processes one decoded batch.
type Handler func(ctx context.Context, b Batch) error

// Consumer pops batch messages from a Redis list.
type Consumer struct {
	rdb    redis.Cmdable
	key    string
	block  time.Duration
	logger *slog.Logger
}

// NewConsumer creates a Consumer reading from the list at key. block bounds
// each BLPOP so cancellation is noticed promptly.
func NewConsumer(rdb redis.Cmdable, key string, block time.Duration, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if block <= 0 {
		block = 5 * time.Second
	}
	return &Consumer{
		rdb:    rdb,
		key:    key,
		block:  block,
		logger: logger.With("component", "queue", "queue", key),
	}
}

// Run processes messages one at a time until ctx is cancelled. Undecodable
// messages and handler failures are logged and do not stop the loop.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	c.logger.Info("consumer started")

	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopping")
			return nil
		}

		res, err := c.rdb.BLPop(ctx, c.block, c.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to pop batch", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		// BLPOP returns the key followed by the value.
		if len(res) != 2 {
			continue
		}
		c.handle(ctx, []byte(res[1]), h)
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte, h Handler) {
	batch, err := Decode(body, c.logger)
	if err != nil {
		c.logger.Warn("skipping message", "error", err)
		return
	}

	c.logger.Info("received batch", "push_id", batch.PushID, "pages", len(batch.Pages))
	if err := h(ctx, batch); err != nil {
		c.logger.Error("batch failed", "push_id", batch.PushID, "error", err)
	}
}

// Publisher pushes batch messages onto a Redis list.
type Publisher struct {
	rdb redis.Cmdable
	key string
}

// NewPublisher creates a Publisher writing to the list at key.
func NewPublisher(rdb redis.Cmdable, key string) *Publisher {
	return &Publisher{rdb: rdb, key: key}
}

// Enqueue appends b to the list.
func (p *Publisher) Enqueue(ctx context.Context, b Batch) error {
	body, err := Encode(b)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.key, body).Err(); err != nil {
		return fmt.Errorf("failed to enqueue batch: %w", err)
	}
	return nil
}
