package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// NewCache 创建带过期时间的内存缓存
func NewCache(defaultTTL, cleanupInterval time.Duration) *cache.Cache {
	return cache.New(defaultTTL, cleanupInterval)
}

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// LRUCache 有容量上限的 LRU 缓存，条目带 TTL
type LRUCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
}

// NewLRUCache 初始化，size 是最大缓存条数，ttl 是数据有效期
func NewLRUCache[T any](size int, ttl time.Duration) *LRUCache[T] {
	// lru.New 是线程安全的；size <= 0 时才会返回错误
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, CacheItem[T]](size)
	return &LRUCache[T]{
		storage: c,
		ttl:     ttl,
	}
}

// Set 写入（已存在则覆盖）
func (c *LRUCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: time.Now().Add(c.ttl),
	})
}

// Get 读取（带过期检查）
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if time.Now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	return item.Value, true
}

// Clear 清空
func (c *LRUCache[T]) Clear() {
	c.storage.Purge()
}

// Len 当前条数
func (c *LRUCache[T]) Len() int {
	return c.storage.Len()
}
