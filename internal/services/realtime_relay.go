package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayChannel is the Redis channel order frames are published on.
const RelayChannel = "orders:events"

const maxRelayBackoff = 30 * time.Second

// RedisRelay spreads order events across server instances. Notify publishes
// to Redis and one subscriber per process feeds the local Hub.
type RedisRelay struct {
	client  *redis.Client
	hub     *Hub
	log     *zap.Logger
	started sync.Once
}

func NewRedisRelay(client *redis.Client, hub *Hub, log *zap.Logger) *RedisRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRelay{client: client, hub: hub, log: log.With(zap.String("component", "realtime_relay"))}
}

// Notify publishes the frames for event. If Redis is unreachable the frames
// are delivered to local peers only.
func (r *RedisRelay) Notify(ctx context.Context, event OrderEvent) {
	envs, err := EnvelopesFor(event)
	if err != nil {
		r.log.Error("encode order event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	for _, env := range envs {
		data, err := json.Marshal(env)
		if err != nil {
			r.log.Error("encode envelope", zap.Error(err))
			continue
		}
		if err := r.client.Publish(ctx, RelayChannel, data).Err(); err != nil {
			r.log.Warn("relay publish failed, delivering locally", zap.String("type", env.Type), zap.Error(err))
			r.hub.broadcastRaw(data)
		}
	}
}

// Start runs the subscriber until ctx is done. Only the first call has effect.
func (r *RedisRelay) Start(ctx context.Context) {
	r.started.Do(func() {
		go r.run(ctx)
	})
}

func (r *RedisRelay) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := r.subscribe(ctx, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return
		}
		r.log.Warn("relay subscriber error", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxRelayBackoff {
			backoff = maxRelayBackoff
		}
	}
}

func (r *RedisRelay) subscribe(ctx context.Context, onMessage func()) error {
	pubsub := r.client.Subscribe(ctx, RelayChannel)
	defer pubsub.Close()

	r.log.Info("relay subscriber started", zap.String("channel", RelayChannel))
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()
		r.hub.broadcastRaw([]byte(msg.Payload))
	}
}
