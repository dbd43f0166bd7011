package accountlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Redis extends Local across processes with a SETNX token lock per account.
type Redis struct {
	client       redis.UniversalClient
	script       *redis.Script
	local        *Local
	log          *zap.Logger
	prefix       string
	ttl          time.Duration
	pollInterval time.Duration
}

type RedisOptions struct {
	Prefix       string
	TTL          time.Duration
	PollInterval time.Duration
}

func NewRedis(client redis.UniversalClient, log *zap.Logger, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "adledger:account_lock"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		client:       client,
		script:       redis.NewScript(lockReleaseScript),
		local:        NewLocal(),
		log:          log.Named("accountlock.redis"),
		prefix:       opts.Prefix,
		ttl:          opts.TTL,
		pollInterval: opts.PollInterval,
	}
}

func (r *Redis) Lock(ctx context.Context, accountID snowflake.ID) (Unlock, error) {
	if r == nil || r.client == nil {
		return nil, errors.New("lock client not configured")
	}

	unlockLocal, err := r.local.Lock(ctx, accountID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:%s", r.prefix, accountID.String())
	token := uuid.NewString()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.script.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				r.log.Warn("failed to release account lock", zap.String("key", key), zap.Error(err))
			}
			unlockLocal()
		})
	}, nil
}
