package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and pings it once.
func NewRedis(ctx context.Context, addr, password string, db int, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.key(k)
	}
	return r.client.Del(ctx, prefixed...).Err()
}

// neverLapses scores index members added without a ttl.
const neverLapses = float64(1 << 53)

// AddToIndex keeps the index as a sorted set scored by each member's expiry
// in unix seconds. Lapsed members are trimmed on every add, so the set only
// grows with live entries.
func (r *Redis) AddToIndex(ctx context.Context, index, key string, ttl time.Duration) error {
	now := time.Now()
	score := neverLapses
	if ttl > 0 {
		score = float64(now.Add(ttl).Unix())
	}

	idx := r.key(index)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, idx, redis.Z{Score: score, Member: key})
		pipe.ZRemRangeByScore(ctx, idx, "-inf", "("+strconv.FormatInt(now.Unix(), 10))
		return nil
	})
	return err
}

func (r *Redis) IndexMembers(ctx context.Context, index string) ([]string, error) {
	return r.client.ZRangeByScore(ctx, r.key(index), &redis.ZRangeBy{
		Min: strconv.FormatInt(time.Now().Unix(), 10),
		Max: "+inf",
	}).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
