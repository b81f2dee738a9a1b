// Package cache 提供带容量上限与 TTL 的泛型缓存，底层使用 hashicorp/golang-lru 的 expirable LRU
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config 缓存配置
type Config struct {
	// Name 缓存名称（用于日志与统计）
	Name string

	// MaxSize 最大条目数，<=0 表示不限
	MaxSize int

	// TTL 条目存活时间（自写入起），<=0 表示不过期
	TTL time.Duration

	// OnEvict 条目被驱逐或过期时回调
	OnEvict func(key any, value any)
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Cache 通用泛型缓存，并发安全
type Cache[K comparable, V any] struct {
	name string
	lru  *expirable.LRU[K, V]
	mu   sync.Mutex // 仅保护 GetOrCreate 的读-写组合
	hits atomic.Int64
	miss atomic.Int64
}

// New 创建缓存
func New[K comparable, V any](config Config) *Cache[K, V] {
	var onEvict expirable.EvictCallback[K, V]
	if config.OnEvict != nil {
		onEvict = func(key K, value V) { config.OnEvict(key, value) }
	}
	size := config.MaxSize
	if size < 0 {
		size = 0
	}
	return &Cache[K, V]{
		name: config.Name,
		lru:  expirable.NewLRU[K, V](size, onEvict, config.TTL),
	}
}

// Get 获取值
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.miss.Add(1)
	}
	return v, ok
}

// Set 写入值，超过容量时驱逐最久未使用的条目
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// GetOrCreate 获取值，不存在时调用 create 创建并写入
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.Get(key); ok {
		return v
	}
	v := create()
	c.lru.Add(key, v)
	return v
}

// Delete 删除条目，返回是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	return c.lru.Remove(key)
}

// Clear 清空缓存
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}

// Size 当前条目数
func (c *Cache[K, V]) Size() int {
	return c.lru.Len()
}

// Stats 获取统计信息
func (c *Cache[K, V]) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.miss.Load(), Size: c.lru.Len()}
}

// HitRate 命中率
func (c *Cache[K, V]) HitRate() float64 {
	s := c.Stats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (c *Cache[K, V]) String() string {
	s := c.Stats()
	return fmt.Sprintf("Cache[%s]{size=%d, hits=%d, misses=%d, hitRate=%.2f%%}",
		c.name, s.Size, s.Hits, s.Misses, c.HitRate()*100)
}
