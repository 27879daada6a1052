package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// localItem 序列化后的值与过期时间
type localItem struct {
	data      []byte
	expiresAt time.Time // 零值表示不过期
}

// LocalCache 进程内 LRU 缓存
// 与 RedisCache 一样存储 JSON，读出的值与写入时互不共享内存
type LocalCache struct {
	lru *lru.Cache[string, localItem]
}

// NewLocalCache 创建容量为 size 的本地缓存
func NewLocalCache(size int) (CacheService, error) {
	l, err := lru.New[string, localItem](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LocalCache{lru: l}, nil
}

func (c *LocalCache) load(key string) (localItem, bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		return localItem{}, false
	}
	// 检查过期
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		c.lru.Remove(key)
		return localItem{}, false
	}
	return item, true
}

func (c *LocalCache) Get(_ context.Context, key string, dest interface{}) error {
	item, ok := c.load(key)
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *LocalCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	item := localItem{data: data}
	if expiration > 0 {
		item.expiresAt = time.Now().Add(expiration)
	}
	c.lru.Add(key, item)
	return nil
}

func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.load(key)
	return ok, nil
}
