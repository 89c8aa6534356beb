package refresh

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"m3u-failover/work/cache"
	"m3u-failover/work/config"
	"m3u-failover/work/ingest"
	"m3u-failover/work/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlaylistFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func newTestRefresher(t *testing.T, dir string, interval time.Duration) (*Refresher, *store.ChannelGroupStore, *cache.Cache) {
	t.Helper()

	cfg := &config.Config{
		InputDir:              dir,
		ImportRefreshInterval: interval,
		FuzzyThreshold:        85,
		CacheEnabled:          true,
		CacheDuration:         time.Minute,
	}

	ing, err := ingest.New(cfg)
	require.NoError(t, err)

	st := store.New()
	c := cache.New(cfg)
	return New(cfg, ing, st, c), st, c
}

func TestReloadNowBuildsTableAndClearsCache(t *testing.T) {
	dir := t.TempDir()
	writePlaylistFile(t, dir, "a.m3u", "#EXTM3U\n#EXTINF:-1,CNN\nhttp://provider-a/cnn\n#EXTINF:-1,ESPN\nhttp://provider-a/espn\n")

	r, st, c := newTestRefresher(t, dir, time.Hour)
	c.SetPlaylist("playlist", "#EXTM3U\nstale\n")

	require.NoError(t, r.ReloadNow())

	assert.Equal(t, 2, st.Len())
	_, ok := c.GetPlaylist("playlist")
	assert.False(t, ok, "stale renderings are dropped on reload")
}

func TestReloadPreservesCursorForSurvivingChannel(t *testing.T) {
	dir := t.TempDir()
	writePlaylistFile(t, dir, "a.m3u", "#EXTM3U\n#EXTINF:-1,CNN\nhttp://provider-a/cnn\n")
	writePlaylistFile(t, dir, "b.m3u", "#EXTM3U\n#EXTINF:-1,CNN\nhttp://provider-b/cnn\n")

	r, st, _ := newTestRefresher(t, dir, time.Hour)
	require.NoError(t, r.ReloadNow())

	st.AdvanceCursor("CNN")
	require.Equal(t, 1, st.Cursor("CNN"))

	require.NoError(t, r.ReloadNow())
	assert.Equal(t, 1, st.Cursor("CNN"), "cursor survives a reload with the same candidate count")
}

func TestKickTriggersImmediateReload(t *testing.T) {
	dir := t.TempDir()

	r, st, _ := newTestRefresher(t, dir, time.Hour)
	go r.Start()
	defer r.Stop()

	require.Equal(t, 0, st.Len())

	writePlaylistFile(t, dir, "a.m3u", "#EXTM3U\n#EXTINF:-1,CNN\nhttp://provider-a/cnn\n")
	r.Kick()

	assert.Eventually(t, func() bool {
		return st.Len() == 1
	}, 2*time.Second, 10*time.Millisecond, "kick must reload without waiting for the tick")
}

func TestScheduledReloadPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()

	r, st, _ := newTestRefresher(t, dir, 20*time.Millisecond)
	go r.Start()
	defer r.Stop()

	writePlaylistFile(t, dir, "a.m3u", "#EXTM3U\n#EXTINF:-1,CNN\nhttp://provider-a/cnn\n")

	assert.Eventually(t, func() bool {
		return st.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
