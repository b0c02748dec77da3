package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes each event as JSON on "<prefix>:<type>".
type RedisPublisher struct {
	rdb    redis.UniversalClient
	prefix string
	logger *slog.Logger
}

func NewRedisPublisher(rdb redis.UniversalClient, prefix string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb:    rdb,
		prefix: prefix,
		logger: logger.With("component", "redis_publisher"),
	}
}

func (p *RedisPublisher) Channel(t Type) string {
	return fmt.Sprintf("%s:%s", p.prefix, t)
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Type, err)
	}

	channel := p.Channel(ev.Type)
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}

	p.logger.Debug("Event published", "channel", channel)
	return nil
}
