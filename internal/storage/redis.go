package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"linkcheck/internal/domain"
)

// CheckCache remembers recently classified URLs across runs so an opt-in gate
// can skip re-navigating them inside the TTL.
type CheckCache struct {
	client *redis.Client
}

func NewCheckCache(addr string) *CheckCache {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &CheckCache{client: rdb}
}

func (c *CheckCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CheckCache) Close() error {
	return c.client.Close()
}

// MarkChecked records the classification of url with a TTL.
func (c *CheckCache) MarkChecked(ctx context.Context, url string, status domain.Status, ttl time.Duration) error {
	key := fmt.Sprintf("checked:%s", url)
	return c.client.Set(ctx, key, string(status), ttl).Err()
}

// RecentStatus returns the cached classification of url, if any.
func (c *CheckCache) RecentStatus(ctx context.Context, url string) (domain.Status, bool, error) {
	key := fmt.Sprintf("checked:%s", url)
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.Status(val), true, nil
}
