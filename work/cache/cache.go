package cache

import (
	"m3u-failover/work/config"

	"github.com/maypok86/otter/v2"
)

// Cache holds rendered playlist responses for a short TTL so a wall of
// player refreshes does not trigger a probe round per request. Entries are
// invalidated wholesale whenever the table or a cursor changes, since any of
// those can alter the rendered output.
type Cache struct {
	playlists *otter.Cache[string, string]
	enabled   bool
}

func New(cfg *config.Config) *Cache {
	return &Cache{
		playlists: otter.Must(&otter.Options[string, string]{
			MaximumSize:      64,
			ExpiryCalculator: otter.ExpiryWriting[string, string](cfg.CacheDuration),
		}),
		enabled: cfg.CacheEnabled,
	}
}

// GetPlaylist returns a cached rendering, if any.
func (c *Cache) GetPlaylist(key string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	return c.playlists.GetIfPresent(key)
}

// SetPlaylist stores a rendered playlist under the request key.
func (c *Cache) SetPlaylist(key, body string) {
	if !c.enabled {
		return
	}
	c.playlists.Set(key, body)
}

// Clear drops every cached rendering.
func (c *Cache) Clear() {
	c.playlists.InvalidateAll()
}
