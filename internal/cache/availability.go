package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
)

const availabilityPrefix = "availability:"

// generation keys outlive every entry written under them
const generationGrace = time.Hour

var errStaleGeneration = errors.New("availability generation moved")

// AvailabilityCache keeps planner output per (date, package) under the
// date's current generation. Invalidate bumps the generation, which orphans
// every entry of that date; orphans age out on their own TTL. Set only
// writes while the generation it was read under is still current, so a
// planner run that raced a booking write never lands.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func generationKey(date string) string {
	return availabilityPrefix + date + ":gen"
}

func entryKey(date string, gen, packageID int64) string {
	return fmt.Sprintf("%s%s:g%d:p%d", availabilityPrefix, date, gen, packageID)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, c stringGetter, date string) (int64, error) {
	gen, err := c.Get(ctx, generationKey(date)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached slots, or on a miss the generation a later Set
// must present.
func (c *AvailabilityCache) Get(ctx context.Context, date string, packageID int64) ([]time.Time, int64, bool, error) {
	gen, err := readGeneration(ctx, c.client, date)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := c.client.Get(ctx, entryKey(date, gen, packageID)).Bytes()
	if err == redis.Nil {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	slots, err := decodeSlots(raw)
	if err != nil {
		return nil, gen, false, err
	}
	return slots, gen, true, nil
}

// Set stores slots computed under gen. It is a silent no-op when the date
// was invalidated in the meantime.
func (c *AvailabilityCache) Set(ctx context.Context, date string, packageID, gen int64, slots []time.Time) error {
	b, err := encodeSlots(slots)
	if err != nil {
		return err
	}
	genKey := generationKey(date)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, date)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, entryKey(date, gen, packageID), b, c.ttl)
			if c.ttl > 0 {
				pipe.Expire(ctx, genKey, c.ttl+generationGrace)
			}
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, dates ...string) error {
	if len(dates) == 0 {
		return nil
	}
	pipe := c.client.TxPipeline()
	for _, d := range dates {
		pipe.Incr(ctx, generationKey(d))
		if c.ttl > 0 {
			pipe.Expire(ctx, generationKey(d), c.ttl+generationGrace)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func encodeSlots(slots []time.Time) ([]byte, error) {
	if slots == nil {
		slots = []time.Time{}
	}
	return jsoniter.ConfigFastest.Marshal(slots)
}

func decodeSlots(raw []byte) ([]time.Time, error) {
	slots := []time.Time{}
	if err := jsoniter.ConfigFastest.Unmarshal(raw, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}
