package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cryptosnap/config"
	"cryptosnap/internal/metrics"
	"cryptosnap/internal/models"
	"cryptosnap/logger"
)

// Redis stores each snapshot as one JSON string under <prefix>:<tf>, without
// expiry.
type Redis struct {
	client redis.Cmdable
	closer func() error
	prefix string
	log    *logger.Log
}

func NewRedis(client redis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, log: logger.GetLogger()}
}

// NewRedisFromConfig connects and pings the configured server.
func NewRedisFromConfig(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	r := NewRedis(client, cfg.Prefix)
	r.closer = client.Close
	r.log.WithComponent("redis_store").WithFields(logger.Fields{
		"addr":   cfg.Addr,
		"db":     cfg.DB,
		"prefix": cfg.Prefix,
	}).Info("redis snapshot store connected")
	return r, nil
}

func (r *Redis) key(tf models.Timeframe) string {
	if r.prefix == "" {
		return tf.String()
	}
	return r.prefix + ":" + tf.String()
}

func (r *Redis) Save(ctx context.Context, tf models.Timeframe, snap models.MarketSnapshot) (err error) {
	defer func() { metrics.RecordSnapshotSave(tf.String(), err) }()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", tf, err)
	}
	key := r.key(tf)
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s snapshot: %w", tf, err)
	}

	r.log.WithComponent("redis_store").WithFields(logger.Fields{
		"key":          key,
		"coins_number": snap.CoinsNumber,
		"bytes":        len(data),
	}).Info("snapshot saved")
	return nil
}

func (r *Redis) Load(ctx context.Context, tf models.Timeframe) (*models.MarketSnapshot, error) {
	data, err := r.client.Get(ctx, r.key(tf)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s snapshot: %w", tf, err)
	}
	var snap models.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", tf, err)
	}
	return &snap, nil
}

func (r *Redis) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
