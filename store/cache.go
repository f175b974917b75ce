package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"validateiq/api/models"
)

const (
	dashboardCacheKey   = "validateiq:stats:dashboard"
	signupCountCacheKey = "validateiq:signups:count"
)

// StatsCache keeps the dashboard snapshot and the public signup count in
// Redis for a short TTL, so the landing page polling /count and a dashboard
// refresh do not re-run the aggregate queries every time. A nil client
// disables caching: every lookup is then a miss and every write a no-op.
// Cache failures are logged and treated as misses, never surfaced.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func (c *StatsCache) GetDashboard(ctx context.Context) (*models.DashboardStats, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, dashboardCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Printf("Error reading dashboard cache: %v", err)
		return nil, false
	}

	stats := &models.DashboardStats{}
	if err := json.Unmarshal([]byte(data), stats); err != nil {
		log.Printf("Error decoding cached dashboard: %v", err)
		return nil, false
	}
	return stats, true
}

func (c *StatsCache) SetDashboard(ctx context.Context, stats *models.DashboardStats) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		log.Printf("Error encoding dashboard for cache: %v", err)
		return
	}
	if err := c.client.Set(ctx, dashboardCacheKey, data, c.ttl).Err(); err != nil {
		log.Printf("Error writing dashboard cache: %v", err)
	}
}

func (c *StatsCache) GetSignupCount(ctx context.Context) (int, bool) {
	if c.client == nil {
		return 0, false
	}

	count, err := c.client.Get(ctx, signupCountCacheKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		log.Printf("Error reading signup count cache: %v", err)
		return 0, false
	}
	return count, true
}

func (c *StatsCache) SetSignupCount(ctx context.Context, count int) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, signupCountCacheKey, count, c.ttl).Err(); err != nil {
		log.Printf("Error writing signup count cache: %v", err)
	}
}

// InvalidateSignups drops both cached views after a successful signup, since
// a new signup changes the count and the dashboard.
func (c *StatsCache) InvalidateSignups(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, signupCountCacheKey, dashboardCacheKey).Err(); err != nil {
		log.Printf("Error invalidating signup caches: %v", err)
	}
}
