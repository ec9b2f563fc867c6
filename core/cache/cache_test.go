package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLRUCache_GetPut(t *testing.T) {
	c := NewLRUCache[int, string](Config{MaxSize: 3})

	c.Put(1, "-003.png")
	c.Put(2, "-004.png")

	if v, ok := c.Get(1); !ok || v != "-003.png" {
		t.Errorf("Get(1) = %q, %v", v, ok)
	}
	if _, ok := c.Get(9); ok {
		t.Error("Get(9) should miss")
	}

	c.Put(1, "replaced")
	if v, _ := c.Get(1); v != "replaced" {
		t.Errorf("Get(1) after update = %q", v)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	var evicted []int
	c := NewLRUCache[int, int](Config{
		MaxSize: 2,
		OnEvict: func(key, _ interface{}) { evicted = append(evicted, key.(int)) },
	})

	c.Put(1, 1)
	c.Put(2, 2)
	c.Get(1) // 2 is now least recently used
	c.Put(3, 3)

	if _, ok := c.Get(2); ok {
		t.Error("2 should have been evicted")
	}
	for _, k := range []int{1, 3} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%d should still be cached", k)
		}
	}
	if len(evicted) != 1 || evicted[0] != 2 {
		t.Errorf("evicted = %v, want [2]", evicted)
	}

	s := c.Stats()
	if s.Evictions != 1 || s.Size != 2 || s.MaxSize != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLRUCache_Unbounded(t *testing.T) {
	for _, max := range []int{0, -1} {
		c := NewLRUCache[int, int](Config{MaxSize: max})
		for i := 0; i < 700; i++ {
			c.Put(i, i)
		}
		if c.Len() != 700 {
			t.Errorf("MaxSize %d: Len() = %d, want 700", max, c.Len())
		}
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 3, TTL: 50 * time.Millisecond})
	c.Put("a", 1)

	if _, ok := c.Get("a"); !ok {
		t.Fatal("fresh entry should be cached")
	}
	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should expire after the TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry still counted: Len() = %d", c.Len())
	}
}

func TestLRUCache_RemoveClear(t *testing.T) {
	c := NewLRUCache[string, int](DefaultConfig())
	c.Put("a", 1)
	c.Put("b", 2)

	c.Remove("a")
	c.Remove("missing")
	if _, ok := c.Get("a"); ok || c.Len() != 1 {
		t.Errorf("after Remove: Len() = %d", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("after Clear: Len() = %d", c.Len())
	}
}

func TestLRUCache_Stats(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 2})
	c.Put("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want 2 hits 1 miss", s)
	}
}

func TestFetch(t *testing.T) {
	c := NewLRUCache[int, []byte](DefaultConfig())
	calls := 0
	load := func() ([]byte, error) {
		calls++
		return []byte("png"), nil
	}

	for i := 0; i < 3; i++ {
		v, err := Fetch(c, 5, load)
		if err != nil || string(v) != "png" {
			t.Fatalf("Fetch = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := Fetch(c, 6, func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("Fetch error = %v", err)
	}
	if _, ok := c.Get(6); ok {
		t.Error("failed load should not be cached")
	}
}

func TestLRUCache_Concurrency(t *testing.T) {
	c := NewLRUCache[int, int](Config{MaxSize: 100})

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put(id*100+j, j)
			}
		}(g)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(id*100 + j)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d, want <= 100", c.Len())
	}
}

func BenchmarkLRUCache_PutGet(b *testing.B) {
	c := NewLRUCache[int, int](DefaultConfig())
	for i := 0; i < b.N; i++ {
		c.Put(i%128, i)
		c.Get(i % 64)
	}
}
