package runlock

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisPrefix = "pts-sync:lock:"

// Deletes the key only when it still holds our token, so an expired lease
// never releases a lock that a later holder acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker connects to addr and pings it before returning.
func NewRedisLocker(ctx context.Context, addr string) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return &RedisLocker{client: client}, nil
}

func NewRedisLockerWithClient(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquire run lock")
	}
	if !ok {
		return nil, ErrLocked
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

func (l *RedisLocker) Held(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, redisPrefix+key).Result()
	if err != nil {
		return false, errors.Wrap(err, "check run lock")
	}
	return n > 0, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLease) Key() string { return l.key }

func (l *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{redisPrefix + l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return errors.Wrap(err, "extend run lock")
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{redisPrefix + l.key}, l.token).Err(); err != nil {
		return errors.Wrap(err, "release run lock")
	}
	return nil
}
