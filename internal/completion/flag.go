package completion

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"vendor-onboarding/internal/common/database"
)

// FlagStore keeps a durable "onboarded" marker per vendor in redis.
type FlagStore struct {
	redis *database.RedisClient
}

func NewFlagStore(redis *database.RedisClient) *FlagStore {
	return &FlagStore{redis: redis}
}

func (f *FlagStore) Name() string { return "flag" }

func (f *FlagStore) key(vendorID string) string {
	return f.redis.Key("completed", vendorID)
}

// Deliver writes the marker. Re-delivery overwrites it with the same values.
func (f *FlagStore) Deliver(ctx context.Context, rec Record) error {
	err := f.redis.Client.HSet(ctx, f.key(rec.VendorID),
		"completedAt", rec.CompletedAt.UTC().Format(time.RFC3339),
		"percentage", strconv.FormatFloat(rec.Completion.Percentage, 'f', 1, 64),
		"vendorType", rec.Draft.VendorType,
	).Err()
	if err != nil {
		return fmt.Errorf("set completion flag: %w", err)
	}
	return nil
}

// IsCompleted reports whether vendorID has a completion marker.
func (f *FlagStore) IsCompleted(ctx context.Context, vendorID string) (bool, error) {
	n, err := f.redis.Client.Exists(ctx, f.key(vendorID)).Result()
	if err != nil {
		return false, fmt.Errorf("read completion flag: %w", err)
	}
	return n > 0, nil
}

// CompletedAt returns when vendorID finished, or the zero time.
func (f *FlagStore) CompletedAt(ctx context.Context, vendorID string) (time.Time, error) {
	v, err := f.redis.Client.HGet(ctx, f.key(vendorID), "completedAt").Result()
	if err != nil {
		if database.IsRedisNil(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read completion flag: %w", err)
	}
	return time.Parse(time.RFC3339, v)
}
