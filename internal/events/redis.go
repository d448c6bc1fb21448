package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bidwise/bidcore/pkg/utils"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher broadcasts events over Redis pub/sub for the real-time
// collaborator. One channel per item, "item.{id}", matching what the
// websocket broadcaster subscribes to.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(ctx context.Context) (*RedisPublisher, error) {
	addr := utils.GetEnv("REDIS_ADDR", "localhost:6379")
	passwrd := utils.GetEnv("REDIS_PASSWORD", "")
	db := utils.GetIntEnv("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     passwrd,
		DB:           db,
		PoolSize:     50,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("events: redis ping: %w", err)
	}

	return &RedisPublisher{client: client}, nil
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(envelope{Event: event.Name(), Data: event})
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", event.Name(), err)
	}

	channel := "item." + event.Item().String()
	return p.client.Publish(ctx, channel, payload).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
