// Package cache implements a small sharded, TTL-aware memoization cache.
// It has no notion of DNSSEC validation state or a serve-stale policy —
// this module never runs a recursive cache (see spec Non-goals); it only
// ever memoizes NS-address sub-resolutions within a single resolver walk.
package cache

import (
	"sync"
	"time"
)

const (
	// Number of shards - power of 2 for fast modulo via bitmasking
	defaultShardCount = 16

	// Default cache size per shard
	defaultShardSize = 1024

	// Cleanup interval for expired entries
	cleanupInterval = 60 * time.Second
)

// Entry represents a cached NS-address resolution.
type Entry struct {
	Data      []byte
	ExpiresAt time.Time
}

// IsExpired checks if entry has expired
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// shard represents a single cache shard with its own lock
type shard struct {
	mu      sync.RWMutex
	entries map[uint64]*Entry // Keyed by hash
	maxSize int
}

// ShardedCache is a thread-safe, lock-contention-reduced memoization cache
// distributing entries across multiple shards, each with its own lock.
type ShardedCache struct {
	shards []*shard

	shardCount int
	shardMask  uint64 // For fast modulo: hash & mask

	stopCleanup chan struct{}
	cleanupDone sync.WaitGroup
}

// Config holds cache configuration
type Config struct {
	// Total cache size (distributed across shards)
	MaxEntries int

	// Number of shards (default 16)
	ShardCount int
}

// NewShardedCache creates a new sharded cache
func NewShardedCache(cfg Config) *ShardedCache {
	if cfg.ShardCount == 0 {
		cfg.ShardCount = defaultShardCount
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = defaultShardSize * cfg.ShardCount
	}

	// Ensure shard count is power of 2
	if cfg.ShardCount&(cfg.ShardCount-1) != 0 {
		n := 1
		for n < cfg.ShardCount {
			n <<= 1
		}
		cfg.ShardCount = n
	}

	shardSize := cfg.MaxEntries / cfg.ShardCount

	c := &ShardedCache{
		shards:      make([]*shard, cfg.ShardCount),
		shardCount:  cfg.ShardCount,
		shardMask:   uint64(cfg.ShardCount - 1),
		stopCleanup: make(chan struct{}),
	}

	for i := 0; i < cfg.ShardCount; i++ {
		c.shards[i] = &shard{
			entries: make(map[uint64]*Entry, shardSize),
			maxSize: shardSize,
		}
	}

	c.cleanupDone.Add(1)
	go c.cleanupExpired()

	return c
}

// getShard returns the shard for a given hash
func (c *ShardedCache) getShard(hash uint64) *shard {
	return c.shards[hash&c.shardMask]
}

// Get retrieves an entry from cache
func (c *ShardedCache) Get(hash uint64) (*Entry, bool) {
	shard := c.getShard(hash)

	shard.mu.RLock()
	entry, ok := shard.entries[hash]
	shard.mu.RUnlock()

	if !ok || entry.IsExpired() {
		return nil, false
	}
	return entry, true
}

// Set stores an entry in cache
func (c *ShardedCache) Set(hash uint64, entry *Entry) {
	shard := c.getShard(hash)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if len(shard.entries) >= shard.maxSize {
		evictOldest(shard)
	}
	shard.entries[hash] = entry
}

// evictOldest removes the soonest-to-expire entry from a shard (must hold lock)
func evictOldest(s *shard) {
	var oldestHash uint64
	var oldestTime time.Time
	first := true

	for hash, entry := range s.entries {
		if first || entry.ExpiresAt.Before(oldestTime) {
			oldestHash = hash
			oldestTime = entry.ExpiresAt
			first = false
		}
	}
	if !first {
		delete(s.entries, oldestHash)
	}
}

// cleanupExpired periodically removes expired entries
func (c *ShardedCache) cleanupExpired() {
	defer c.cleanupDone.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performCleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

// performCleanup removes expired entries from all shards
func (c *ShardedCache) performCleanup() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		var expired []uint64
		for hash, entry := range shard.entries {
			if entry.IsExpired() {
				expired = append(expired, hash)
			}
		}
		for _, hash := range expired {
			delete(shard.entries, hash)
		}
		shard.mu.Unlock()
	}
}

// Close stops the background cleanup goroutine.
func (c *ShardedCache) Close() {
	close(c.stopCleanup)
	c.cleanupDone.Wait()
}
