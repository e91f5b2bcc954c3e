package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nekogravitycat/space-booking-backend/internal/events"
)

const keyPrefix = "availability:"

// Cache stores computed availability lists. Misses report ok == false.
//
// Every space has a generation that InvalidateSpace bumps. Callers read the
// generation before querying the store and build the key from it, so a list
// computed from a snapshot older than an invalidation lands under a dead key.
type Cache interface {
	Generation(ctx context.Context, spaceID string) (int64, error)
	Get(ctx context.Context, key string) (dates []time.Time, ok bool, err error)
	Set(ctx context.Context, key string, dates []time.Time, ttl time.Duration) error
	// InvalidateSpace retires every cached list of the space.
	InvalidateSpace(ctx context.Context, spaceID string) error
}

// CacheKey identifies one availability answer. "today" is part of the key so
// entries roll over at midnight without explicit eviction.
func CacheKey(spaceID string, gen int64, today time.Time, horizonDays int) string {
	return keyPrefix + spaceID + ":g" + strconv.FormatInt(gen, 10) + ":" +
		today.Format(time.DateOnly) + ":" + strconv.Itoa(horizonDays)
}

func generationKey(spaceID string) string {
	return keyPrefix + "gen:" + spaceID
}

// RedisCache keeps availability lists in redis as JSON arrays of dates.
// It also subscribes to booking events and invalidates the touched space.
type RedisCache struct {
	client *redis.Client
}

var _ events.Publisher = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]time.Time, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var days []string
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	dates := make([]time.Time, 0, len(days))
	for _, d := range days {
		t, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", key, err)
		}
		dates = append(dates, t)
	}
	return dates, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, dates []time.Time, ttl time.Duration) error {
	days := make([]string, len(dates))
	for i, d := range dates {
		days[i] = d.Format(time.DateOnly)
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Generation(ctx context.Context, spaceID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(spaceID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation %s: %w", spaceID, err)
	}
	return gen, nil
}

// InvalidateSpace bumps the generation. Lists under older generations are
// never read again and expire with their TTL.
func (c *RedisCache) InvalidateSpace(ctx context.Context, spaceID string) error {
	if err := c.client.Incr(ctx, generationKey(spaceID)).Err(); err != nil {
		return fmt.Errorf("redis incr generation %s: %w", spaceID, err)
	}
	return nil
}

// Publish invalidates the space an event refers to.
func (c *RedisCache) Publish(ctx context.Context, e events.Event) error {
	if e.SpaceID == "" {
		return nil
	}
	return c.InvalidateSpace(ctx, e.SpaceID)
}
