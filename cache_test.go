package mascotlayer

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLayerCacheSingleLoad(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := NewLayerCache(func(id string) (*image.NRGBA, error) {
		calls.Add(1)
		<-release
		return solid(1, 1, red), nil
	})

	const n = 16
	imgs := make([]*image.NRGBA, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := c.Get("body")
			if err != nil {
				t.Error(err)
				return
			}
			imgs[i] = img
		}()
	}
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("load called %d times, want 1", got)
	}
	for i := range imgs {
		if imgs[i] != imgs[0] {
			t.Fatalf("Get returned different images for the same key")
		}
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestLayerCacheIndependentKeys(t *testing.T) {
	loaded := make(map[string]int)
	var mu sync.Mutex
	c := NewLayerCache(func(id string) (*image.NRGBA, error) {
		mu.Lock()
		loaded[id]++
		mu.Unlock()
		return solid(1, 1, blue), nil
	})
	for _, id := range []string{"a", "b", "a", "c", "b"} {
		if _, err := c.Get(id); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []string{"a", "b", "c"} {
		if loaded[id] != 1 {
			t.Errorf("%s loaded %d times, want 1", id, loaded[id])
		}
	}
}

func TestLayerCacheFailureNotCached(t *testing.T) {
	errBoom := errors.New("boom")
	var calls int
	c := NewLayerCache(func(id string) (*image.NRGBA, error) {
		calls++
		if calls == 1 {
			return nil, errBoom
		}
		return solid(1, 1, red), nil
	})

	if _, err := c.Get("x"); !errors.Is(err, errBoom) {
		t.Fatalf("first Get() = %v, want %v", err, errBoom)
	}
	if c.Len() != 0 {
		t.Fatalf("failed load was cached")
	}
	if _, err := c.Get("x"); err != nil {
		t.Fatalf("second Get() = %v", err)
	}
	if calls != 2 {
		t.Errorf("load called %d times, want 2", calls)
	}
}

func TestLayerCacheClear(t *testing.T) {
	var calls int
	c := NewLayerCache(func(id string) (*image.NRGBA, error) {
		calls++
		return solid(1, 1, red), nil
	})
	c.Get("x")
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after Clear", c.Len())
	}
	c.Get("x")
	if calls != 2 {
		t.Errorf("load called %d times, want 2", calls)
	}
}
