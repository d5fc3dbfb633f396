package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// Guard makes sure only one pass runs at a time. Acquire returns
// ErrRunInProgress when another pass holds the guard.
type Guard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

var (
	_ Guard = (*LocalGuard)(nil)
	_ Guard = (*RedisGuard)(nil)
)

// LocalGuard serializes passes within one process.
type LocalGuard struct {
	busy atomic.Bool
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) Acquire(_ context.Context) (func(), error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	return func() { g.busy.Store(false) }, nil
}

var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisGuard serializes passes across instances sharing a spreadsheet. The
// lock expires after ttl unless the holder keeps extending it.
type RedisGuard struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisGuard(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisGuard{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go g.keepAlive(token, stop, done)

	return func() {
		close(stop)
		<-done

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.client, []string{g.key}, token).Err(); err != nil {
			g.logger.Warn("Failed to release run lock", "key", g.key, "error", err)
		}
	}, nil
}

func (g *RedisGuard) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(g.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			extended, err := extendScript.Run(ctx, g.client, []string{g.key}, token, g.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				g.logger.Warn("Failed to extend run lock", "key", g.key, "error", err)
				continue
			}
			if extended == 0 {
				g.logger.Error("Run lock lost", "key", g.key)
				return
			}
		}
	}
}
