package publish

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bnzr-team/grinder-sub003/internal/config"
	"github.com/bnzr-team/grinder-sub003/internal/grid"
)

// Redis keeps the latest plan per symbol plus the cycle digest so
// downstream consumers can read current state without replaying the
// Kafka stream. A nil Redis publishes nothing.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(cfg config.RedisPublishConfig) *Redis {
	if !cfg.Enabled {
		return nil
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
	}
}

// PublishCycle writes one cycle's plans and digest in a single
// pipelined round trip.
func (r *Redis) PublishCycle(ctx context.Context, ts int64, plans []grid.Plan, digest string) error {
	if r == nil {
		return nil
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range plans {
			raw, err := json.Marshal(p)
			if err != nil {
				return err
			}
			pipe.Set(ctx, r.planKey(p.Symbol), raw, r.ttl)
		}
		pipe.Set(ctx, r.prefix+"digest", digest, r.ttl)
		pipe.Set(ctx, r.prefix+"cycle_ts", strconv.FormatInt(ts, 10), r.ttl)
		return nil
	})
	return err
}

func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}

func (r *Redis) planKey(symbol string) string {
	return r.prefix + "plan:" + symbol
}
