package cache

import (
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := NewShardedCache(Config{MaxEntries: 64, ShardCount: 4})
	defer c.Close()

	entry := &Entry{Data: []byte("answer"), ExpiresAt: time.Now().Add(time.Minute)}
	c.Set(42, entry)

	got, ok := c.Get(42)
	if !ok {
		t.Fatal("expected entry to be found")
	}
	if string(got.Data) != "answer" {
		t.Fatalf("got Data %q, want %q", got.Data, "answer")
	}
}

func TestGetMissingEntry(t *testing.T) {
	c := NewShardedCache(Config{MaxEntries: 64, ShardCount: 4})
	defer c.Close()

	if _, ok := c.Get(999); ok {
		t.Fatal("expected miss for unset hash")
	}
}

func TestGetExpiredEntry(t *testing.T) {
	c := NewShardedCache(Config{MaxEntries: 64, ShardCount: 4})
	defer c.Close()

	c.Set(7, &Entry{Data: []byte("stale"), ExpiresAt: time.Now().Add(-time.Second)})

	if _, ok := c.Get(7); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestSetEvictsOldestWhenShardFull(t *testing.T) {
	c := NewShardedCache(Config{MaxEntries: 1, ShardCount: 1})
	defer c.Close()

	c.Set(1, &Entry{Data: []byte("first"), ExpiresAt: time.Now().Add(time.Minute)})
	c.Set(2, &Entry{Data: []byte("second"), ExpiresAt: time.Now().Add(2 * time.Minute)})

	if _, ok := c.Get(1); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
	if _, ok := c.Get(2); !ok {
		t.Fatal("expected newest entry to still be present")
	}
}

func TestCloseStopsCleanupGoroutine(t *testing.T) {
	c := NewShardedCache(Config{MaxEntries: 64, ShardCount: 4})

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return; cleanup goroutine likely leaked")
	}
}

func TestShardCountRoundsUpToPowerOfTwo(t *testing.T) {
	c := NewShardedCache(Config{MaxEntries: 100, ShardCount: 3})
	defer c.Close()

	if c.shardCount != 4 {
		t.Fatalf("got shardCount %d, want 4", c.shardCount)
	}
}
