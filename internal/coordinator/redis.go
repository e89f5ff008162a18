package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/bark-bank/bark/internal/bankerr"
)

const (
	lockPrefix       = "lock:account:"
	defaultExpiry    = 30 * time.Second
	defaultRetry     = 25 * time.Millisecond
	unlockTimeout    = 2 * time.Second
	breakerThreshold = 5
)

// RedisOptions tunes the distributed coordinator.
type RedisOptions struct {
	// Expiry bounds how long a lock survives a crashed holder.
	Expiry     time.Duration
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Redis coordinates several API instances through redsync mutexes. Calls to
// Redis go through a circuit breaker so an unreachable server fails fast
// instead of holding every request until its deadline.
type Redis struct {
	rs      *redsync.Redsync
	breaker *gobreaker.CircuitBreaker
	opts    RedisOptions
}

// NewRedis builds a coordinator backed by client.
func NewRedis(client *redis.Client, opts RedisOptions) *Redis {
	if opts.Expiry <= 0 {
		opts.Expiry = defaultExpiry
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetry
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-locks",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		IsSuccessful: func(err error) bool {
			// Contention and caller deadlines say nothing about Redis health.
			return err == nil ||
				errors.Is(err, redsync.ErrFailed) ||
				errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("lock breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Redis{
		rs:      redsync.New(goredis.NewPool(client)),
		breaker: cb,
		opts:    opts,
	}
}

func (r *Redis) Acquire(ctx context.Context, ids ...string) (Lease, error) {
	const op = "coordinator.Acquire"
	ordered := Order(ids...)
	held := make([]*redsync.Mutex, 0, len(ordered))
	for _, id := range ordered {
		m := r.rs.NewMutex(lockPrefix+id,
			redsync.WithExpiry(r.opts.Expiry),
			redsync.WithTries(math.MaxInt32),
			redsync.WithRetryDelay(r.opts.RetryDelay),
		)
		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, m.LockContext(ctx)
		})
		if err != nil {
			r.unlock(held)
			if ctx.Err() != nil {
				return nil, bankerr.Wrap(bankerr.KindTimeout, op, ctx.Err())
			}
			return nil, bankerr.Wrap(bankerr.KindTimeout, op, err)
		}
		held = append(held, m)
	}

	var once sync.Once
	return releaseFunc(func() {
		once.Do(func() { r.unlock(held) })
	}), nil
}

func (r *Redis) unlock(held []*redsync.Mutex) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		if ok, err := held[i].UnlockContext(ctx); !ok || err != nil {
			r.opts.Logger.Warn("failed to release account lock", "key", held[i].Name(), "error", err)
		}
	}
}
