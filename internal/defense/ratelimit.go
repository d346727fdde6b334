package defense

import (
	"context"
	"sync"
	"time"

	"github.com/fctanu/ClassConnect/config"
	autherror "github.com/fctanu/ClassConnect/internal/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Counter tracks fixed-window request counts. Incr returns the count for key
// within the current window, starting a new window when none is active.
// Implementations decide whether counts are process-local or shared.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limit is one route class budget: at most Max requests per Window per client.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
}

func AuthLimit(cfg *config.Config) Limit {
	return Limit{Name: "auth", Max: cfg.AuthRateMax, Window: time.Duration(cfg.AuthRateWindowMin) * time.Minute}
}

func PostCreationLimit(cfg *config.Config) Limit {
	return Limit{Name: "post", Max: cfg.PostRateMax, Window: time.Duration(cfg.PostRateWindowMin) * time.Minute}
}

func CommentLimit(cfg *config.Config) Limit {
	return Limit{Name: "comment", Max: cfg.CommentRateMax, Window: time.Duration(cfg.CommentRateWindowMin) * time.Minute}
}

func LikeLimit(cfg *config.Config) Limit {
	return Limit{Name: "like", Max: cfg.LikeRateMax, Window: time.Duration(cfg.LikeRateWindowMin) * time.Minute}
}

func GeneralLimit(cfg *config.Config) Limit {
	return Limit{Name: "general", Max: cfg.GeneralRateMax, Window: time.Duration(cfg.GeneralRateWindowMin) * time.Minute}
}

// RateLimit returns middleware enforcing limit per client address. Counter
// failures fail open: an unreachable shared counter must not take the API down.
func RateLimit(counter Counter, limit Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := counter.Incr(c.UserContext(), limit.Name+":"+c.IP(), limit.Window)
		if err != nil {
			return c.Next()
		}

		if count > int64(limit.Max) {
			return autherror.ErrRateLimited
		}

		return c.Next()
	}
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter is a process-local Counter. Counts are not shared across
// instances; deployments needing strict global limits use RedisCounter.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !w.resetAt.After(now) {
		w = &memoryWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}

	w.count++
	return w.count, nil
}

// RedisCounter shares fixed-window counts across instances using INCR with
// an expiry set on the first hit of each window.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, "rl:"+key).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, "rl:"+key, window).Err(); err != nil {
			return 0, err
		}
	}

	return count, nil
}
