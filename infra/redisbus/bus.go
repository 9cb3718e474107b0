// Package redisbus adapts the real-time bus contract to Redis Pub/Sub.
// Channel keys map directly to Redis channels under a configurable prefix.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhive/dispatch/core/bus"
	"github.com/taskhive/dispatch/infra/logger"
)

// Config defines the Redis connection parameters.
type Config struct {
	Addr          string `json:"addr"`
	Password      string `json:"password"`
	DB            int    `json:"db"`
	ChannelPrefix string `json:"channel_prefix"`
}

// Bus implements bus.Bus using Redis PUBLISH.
type Bus struct {
	cli    *redis.Client
	prefix string
	logger logger.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg Config) (*Bus, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = "notify"
	}
	return &Bus{cli: cli, prefix: prefix, logger: logger.New("redis_bus")}, nil
}

// ChannelName maps a channel key to its Redis channel.
func (b *Bus) ChannelName(ch bus.Channel) string {
	return b.prefix + ":" + ch.String()
}

// Publish sends event to the channel. Subscriber count is not checked;
// delivery to disconnected clients is handled by the durable booking record.
func (b *Bus) Publish(ch bus.Channel, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.cli.Publish(ctx, b.ChannelName(ch), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	b.logger.Debugf("published %T to %s", event, b.ChannelName(ch))
	return nil
}

// Close releases the Redis connection.
func (b *Bus) Close() {
	if err := b.cli.Close(); err != nil {
		b.logger.Errorf("redis close: %v", err)
	}
}

var _ bus.Bus = (*Bus)(nil)
