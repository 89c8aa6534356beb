package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromContent(t *testing.T, content string) *Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("M3U_FAILOVER_CONFIG", path)
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	return LoadConfig()
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg := loadFromContent(t, `{
		"baseURL": "http://iptv.example.com",
		"listenAddr": ":9000",
		"inputDir": "/data/playlists",
		"probeTimeout": "7s",
		"checkInterval": "30s",
		"importRefreshInterval": "2h",
		"cacheDuration": "15s",
		"workerThreads": 25,
		"probesPerSecond": 50,
		"fuzzyThreshold": 90,
		"cacheEnabled": true,
		"obfuscateUrls": true
	}`)

	assert.Equal(t, "http://iptv.example.com", cfg.BaseURL)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/data/playlists", cfg.InputDir)
	assert.Equal(t, 7*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval)
	assert.Equal(t, 2*time.Hour, cfg.ImportRefreshInterval)
	assert.Equal(t, 15*time.Second, cfg.CacheDuration)
	assert.Equal(t, 25, cfg.WorkerThreads)
	assert.Equal(t, 50, cfg.ProbesPerSecond)
	assert.Equal(t, 90, cfg.FuzzyThreshold)
	assert.True(t, cfg.ObfuscateUrls)
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("M3U_FAILOVER_CONFIG", filepath.Join(t.TempDir(), "nope.json"))
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	cfg := LoadConfig()

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "input", cfg.InputDir)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval)
	assert.Equal(t, time.Hour, cfg.ImportRefreshInterval)
	assert.Equal(t, 85, cfg.FuzzyThreshold)
}

func TestLoadConfigBadDurationFallsBackToDefaults(t *testing.T) {
	cfg := loadFromContent(t, `{"probeTimeout": "not-a-duration"}`)

	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, ":8000", cfg.ListenAddr)
}

func TestProbeTimeoutClamped(t *testing.T) {
	low := &Config{ProbeTimeout: time.Second}
	validateAndSetDefaults(low)
	assert.Equal(t, 5*time.Second, low.ProbeTimeout)

	high := &Config{ProbeTimeout: time.Minute}
	validateAndSetDefaults(high)
	assert.Equal(t, 10*time.Second, high.ProbeTimeout)
}

func TestValidateRejectsBogusValues(t *testing.T) {
	cfg := &Config{
		WorkerThreads:   -3,
		ProbesPerSecond: -1,
		FuzzyThreshold:  150,
		CheckInterval:   -time.Second,
	}
	validateAndSetDefaults(cfg)

	assert.Equal(t, 10, cfg.WorkerThreads)
	assert.Equal(t, 0, cfg.ProbesPerSecond)
	assert.Equal(t, 85, cfg.FuzzyThreshold)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval)
}

func TestCreateExampleConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, CreateExampleConfig(path))

	t.Setenv("M3U_FAILOVER_CONFIG", path)
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	cfg := LoadConfig()
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, true, cfg.CacheEnabled)
	assert.True(t, cfg.ObfuscateUrls)
}

func TestLoadConfigIsCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, CreateExampleConfig(path))

	t.Setenv("M3U_FAILOVER_CONFIG", path)
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	first := LoadConfig()
	second := LoadConfig()
	assert.Same(t, first, second)
}
