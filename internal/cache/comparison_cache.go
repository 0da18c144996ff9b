package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"offerdesk/internal/comparison"
)

// ComparisonCache keeps built comparison matrices per collection. Entries are
// dropped whenever an offer of the collection changes.
type ComparisonCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewComparisonCache(client *redisv9.Client, ttl time.Duration) *ComparisonCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ComparisonCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *ComparisonCache) Get(ctx context.Context, collectionID uint) (*comparison.Matrix, bool, error) {
	raw, err := c.client.Get(ctx, matrixKey(collectionID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get comparison failed: %w", err)
	}

	var m comparison.Matrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached comparison failed: %w", err)
	}
	return &m, true, nil
}

func (c *ComparisonCache) Set(ctx context.Context, collectionID uint, m *comparison.Matrix) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal comparison cache failed: %w", err)
	}
	if err := c.client.Set(ctx, matrixKey(collectionID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set comparison failed: %w", err)
	}
	return nil
}

func (c *ComparisonCache) Invalidate(ctx context.Context, collectionID uint) error {
	if err := c.client.Del(ctx, matrixKey(collectionID)).Err(); err != nil {
		return fmt.Errorf("redis delete comparison failed: %w", err)
	}
	return nil
}

func matrixKey(collectionID uint) string {
	return fmt.Sprintf("offerdesk:comparison:%d", collectionID)
}
