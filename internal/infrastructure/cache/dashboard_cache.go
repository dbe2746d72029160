package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	appreport "github.com/retail/backend/internal/application/report"
	"github.com/retail/backend/internal/domain/report"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "retail:dashboard:"
	periodLayout     = "20060102"
)

// DashboardCache stores dashboards in Redis. Each organization has a generation
// counter that is part of every dashboard key; invalidating bumps the counter so
// older entries are never read again and expire with their TTL.
//
// A nil client disables the cache: reads miss, writes are dropped and the lock is
// always granted.
type DashboardCache struct {
	client    *redis.Client
	locker    *redislock.Client
	keyPrefix string
	ttl       time.Duration
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewDashboardCache creates a new DashboardCache
func NewDashboardCache(client *redis.Client, ttl, lockTTL time.Duration, logger *zap.Logger) *DashboardCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &DashboardCache{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
		lockTTL:   lockTTL,
		logger:    logger,
	}
	if client != nil {
		c.locker = redislock.New(client)
	}
	return c
}

// Enabled reports whether a Redis client backs the cache
func (c *DashboardCache) Enabled() bool {
	return c.client != nil
}

// Get returns the cached dashboard, or nil on a miss
func (c *DashboardCache) Get(ctx context.Context, orgID uuid.UUID, period report.Period) (*report.Dashboard, error) {
	if !c.Enabled() {
		return nil, nil
	}
	gen, err := c.Generation(ctx, orgID)
	if err != nil {
		return nil, err
	}
	key := dashboardKey(c.keyPrefix, orgID, gen, period)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dashboard: %w", err)
	}

	var dashboard report.Dashboard
	if err := json.Unmarshal(data, &dashboard); err != nil {
		// an unreadable entry is a miss; the next Set overwrites it
		c.logger.Warn("discarding unreadable dashboard entry", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return &dashboard, nil
}

// Generation returns the organization's current generation, 0 before the first
// invalidation
func (c *DashboardCache) Generation(ctx context.Context, orgID uuid.UUID) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, c.generationKey(orgID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read dashboard generation: %w", err)
	}
	return gen, nil
}

// Set stores the dashboard under generation gen, as read before it was computed
func (c *DashboardCache) Set(ctx context.Context, orgID uuid.UUID, gen int64, period report.Period, dashboard *report.Dashboard) error {
	if !c.Enabled() {
		return nil
	}
	key := dashboardKey(c.keyPrefix, orgID, gen, period)
	data, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}

// Invalidate starts a new generation for the organization
func (c *DashboardCache) Invalidate(ctx context.Context, orgID uuid.UUID) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Incr(ctx, c.generationKey(orgID)).Err(); err != nil {
		return fmt.Errorf("bump dashboard generation: %w", err)
	}
	return nil
}

// Lock takes the recompute lock of a period. ok is false when another process holds it.
func (c *DashboardCache) Lock(ctx context.Context, orgID uuid.UUID, period report.Period) (func(), bool, error) {
	if !c.Enabled() {
		return func() {}, true, nil
	}
	lock, err := c.locker.Obtain(ctx, c.lockKey(orgID, period), c.lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("obtain dashboard lock: %w", err)
	}
	release := func() {
		// the holder's context may be done by now
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			c.logger.Warn("failed to release dashboard lock", zap.String("key", lock.Key()), zap.Error(err))
		}
	}
	return release, true, nil
}

func (c *DashboardCache) generationKey(orgID uuid.UUID) string {
	return c.keyPrefix + orgID.String() + ":gen"
}

func (c *DashboardCache) lockKey(orgID uuid.UUID, period report.Period) string {
	return c.keyPrefix + orgID.String() + ":lock:" + periodSuffix(period)
}

func dashboardKey(prefix string, orgID uuid.UUID, gen int64, period report.Period) string {
	return fmt.Sprintf("%s%s:%d:%s", prefix, orgID, gen, periodSuffix(period))
}

func periodSuffix(period report.Period) string {
	return formatDay(period.From) + "-" + formatDay(period.To)
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format(periodLayout)
}

var _ appreport.DashboardCache = (*DashboardCache)(nil)
