package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis publishes messages as JSON on a pub/sub channel.
type Redis struct {
	rdb     *goredis.Client
	channel string
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, channel string) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, channel: channel}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Notify(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return r.rdb.Publish(ctx, r.channel, raw).Err()
}

// Subscribe calls onMsg for every message published on the channel until ctx
// is cancelled. It returns once the subscription is confirmed.
func (r *Redis) Subscribe(ctx context.Context, onMsg func(Message)) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

// Close releases the connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
