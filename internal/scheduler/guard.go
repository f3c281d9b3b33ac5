package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/heartbeat/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const guardKey = "heartbeat:scheduler:owner"

// Lua scripts so release and refresh only touch a lease this owner holds.
var (
	guardReleaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	guardRefreshScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// InstanceGuard asserts exclusive ownership of the backing store: a second
// engine process pointed at the same database refuses to start while the
// lease is held. It never coordinates work across nodes.
type InstanceGuard struct {
	client  *redis.Client
	logger  *zap.SugaredLogger
	ownerID string
	ttl     time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewInstanceGuard creates a guard with its own Redis client and a fresh
// owner identity.
func NewInstanceGuard(cfg *config.RedisConfig, logger *zap.SugaredLogger) *InstanceGuard {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &InstanceGuard{
		client:  client,
		logger:  logger,
		ownerID: fmt.Sprintf("heartbeat-%s", uuid.New().String()[:8]),
		ttl:     cfg.LockTTL,
	}
}

// Owner returns this process's lease identity.
func (g *InstanceGuard) Owner() string {
	return g.ownerID
}

// Acquire takes the ownership lease and starts refreshing it. It fails when
// another live instance already holds the lease.
func (g *InstanceGuard) Acquire(ctx context.Context) error {
	ok, err := g.client.SetNX(ctx, guardKey, g.ownerID, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !ok {
		holder, _ := g.client.Get(ctx, guardKey).Result()
		return fmt.Errorf("another instance (%s) owns this database", holder)
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	go g.refreshLoop(refreshCtx)

	g.logger.Infow("instance lock acquired", "owner", g.ownerID, "ttl", g.ttl)
	return nil
}

// Release stops the refresh loop, drops the lease and closes the client.
func (g *InstanceGuard) Release(ctx context.Context) error {
	if g.cancel != nil {
		g.cancel()
		<-g.done
		g.cancel = nil
	}

	_, err := guardReleaseScript.Run(ctx, g.client, []string{guardKey}, g.ownerID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release instance lock: %w", err)
	}

	return g.client.Close()
}

// refreshLoop extends the lease at a third of its TTL so it outlives worst
// case scheduling stalls but expires quickly after a crash.
func (g *InstanceGuard) refreshLoop(ctx context.Context) {
	defer close(g.done)

	ticker := time.NewTicker(g.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := guardRefreshScript.Run(ctx, g.client, []string{guardKey}, g.ownerID, g.ttl.Milliseconds()).Result()
			if err != nil && err != redis.Nil {
				g.logger.Warnw("failed to refresh instance lock", "error", err)
				continue
			}
			if extended, ok := res.(int64); ok && extended == 0 {
				g.logger.Errorw("instance lock lost", "owner", g.ownerID)
			}
		}
	}
}
