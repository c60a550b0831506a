package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// UnionCache 缓存域的联合域列表。
type UnionCache interface {
	// Get 返回缓存的联合域列表，未命中时 ok 为 false。
	Get(ctx context.Context, domainID string) (union []string, ok bool, err error)
	Set(ctx context.Context, domainID string, union []string) error
}

type redisUnionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewUnionCache 创建一个基于 Redis 的 UnionCache。
func NewUnionCache(rdb *redis.Client, ttl time.Duration) UnionCache {
	return &redisUnionCache{rdb: rdb, ttl: ttl}
}

func unionKey(domainID string) string {
	return "domain:union:" + domainID
}

func (c *redisUnionCache) Get(ctx context.Context, domainID string) ([]string, bool, error) {
	val, err := c.rdb.Get(ctx, unionKey(domainID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var union []string
	if err := json.Unmarshal(val, &union); err != nil {
		return nil, false, err
	}
	return union, true, nil
}

func (c *redisUnionCache) Set(ctx context.Context, domainID string, union []string) error {
	val, err := json.Marshal(union)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, unionKey(domainID), val, c.ttl).Err()
}
