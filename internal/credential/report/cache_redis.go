package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "safeguard/pkg/domain"
)

const defaultSnapshotTTL = 5 * time.Minute

// RedisSnapshotCache stores the latest compliance snapshot per organization
// with a TTL, so dashboards poll Redis instead of rescanning Postgres. Stale
// reads are acceptable within the TTL; the sweep refreshes on its own
// cadence.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache wraps an existing client. A non-positive ttl falls
// back to the default.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(orgID id.OrgID) string {
	return "safeguard:compliance-snapshot:" + orgID.String()
}

func (c *RedisSnapshotCache) Get(ctx context.Context, orgID id.OrgID) (ComplianceSnapshot, bool, error) {
	payload, err := c.client.Get(ctx, snapshotKey(orgID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ComplianceSnapshot{}, false, nil
	}
	if err != nil {
		return ComplianceSnapshot{}, false, fmt.Errorf("get snapshot: %w", err)
	}
	var snapshot ComplianceSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return ComplianceSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, true, nil
}

func (c *RedisSnapshotCache) Put(ctx context.Context, orgID id.OrgID, snapshot ComplianceSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(orgID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}
