package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	Client redis.UniversalClient
	Prefix string
}

func NewRedisLocker(opt *redis.Options, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "couponcapture:lease:"
	}
	return &RedisLocker{Client: redis.NewClient(opt), Prefix: prefix}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	full := r.Prefix + key
	token := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, r.Client, []string{full}, token).Err()
		if err == redis.Nil {
			return nil
		}
		return err
	}, true, nil
}

func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisLocker) Close() error {
	return r.Client.Close()
}
