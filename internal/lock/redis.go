package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultLockTTL = 15 * time.Second

var errHeld = errors.New("lock held")

// releaseScript deletes the key only while it still carries our token, so an expired
// holder never frees a lock that somebody else took over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a SETNX lock shared by every replica that talks to the same Redis.
// TTL bounds how long a crashed holder can block a seat.
type Redis struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Redis{Client: client, TTL: ttl}
}

func (r *Redis) Lock(ctx context.Context, tripID uuid.UUID, seat int) (func(), error) {
	key := Key(tripID, seat)
	token := uuid.NewString()
	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		ok, err := r.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(err)
		}
		if !ok {
			return errHeld
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if errors.Is(err, errHeld) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
		}
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.Client, []string{key}, token).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("release seat lock")
		}
	}, nil
}
