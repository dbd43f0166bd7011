package accountlock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/adledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("accountlock",
	fx.Provide(NewLocker),
)

// NewLocker returns a redis-backed locker when REDIS_ADDR is set and an in-process one otherwise.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	if !cfg.Redis.Enabled() {
		log.Info("account lock is process-local")
		return NewLocal()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Info("account lock is redis-backed", zap.String("addr", cfg.Redis.Addr))
	return NewRedis(client, log, RedisOptions{
		Prefix:       cfg.Lock.Prefix,
		TTL:          cfg.Lock.TTL,
		PollInterval: cfg.Lock.PollInterval,
	})
}
