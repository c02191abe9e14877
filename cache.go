package mascotlayer

import (
	"image"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LoadFunc decodes the pixels of one layer.
type LoadFunc func(id string) (*image.NRGBA, error)

// LayerCache holds decoded layer images keyed by identifier. Entries are
// filled on first use and live until Clear. Concurrent first requests for
// the same key share a single load; different keys load independently.
// Failed loads are not cached.
//
// Cached images are shared between callers and must not be modified.
type LayerCache struct {
	load LoadFunc

	mu      sync.RWMutex
	entries map[string]*image.NRGBA
	flight  singleflight.Group
}

func NewLayerCache(load LoadFunc) *LayerCache {
	return &LayerCache{
		load:    load,
		entries: make(map[string]*image.NRGBA),
	}
}

// Get returns the image for id, loading it on a miss.
func (c *LayerCache) Get(id string) (*image.NRGBA, error) {
	c.mu.RLock()
	img, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	v, err, _ := c.flight.Do(id, func() (any, error) {
		c.mu.RLock()
		img, ok := c.entries[id]
		c.mu.RUnlock()
		if ok {
			return img, nil
		}
		img, err := c.load(id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = img
		c.mu.Unlock()
		Logger().Debug("layer cached", "layer", id, "size", img.Bounds().Size())
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*image.NRGBA), nil
}

// Len returns the number of cached layers.
func (c *LayerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cached image. Callers swap assets on disk and then clear
// to pick up the new pixels.
func (c *LayerCache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	Logger().Info("layer cache cleared")
}
