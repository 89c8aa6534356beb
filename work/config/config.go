package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Config holds all application configuration values for the failover server.
// It covers the probing engine, the background schedulers, ingestion and the
// HTTP serving layer.
type Config struct {
	BaseURL               string        `json:"baseURL"`               // Base URL for the application (used in served playlists)
	ListenAddr            string        `json:"listenAddr"`            // Address the HTTP server binds to
	InputDir              string        `json:"inputDir"`              // Directory scanned for *.m3u playlist files
	UserAgent             string        `json:"userAgent"`             // User-Agent header sent with every outbound probe
	ProbeTimeout          time.Duration `json:"probeTimeout"`          // Per-probe timeout (clamped to 5s..10s)
	CheckInterval         time.Duration `json:"checkInterval"`         // Interval of the background liveness monitor
	ImportRefreshInterval time.Duration `json:"importRefreshInterval"` // Interval for re-ingesting the input directory
	WorkerThreads         int           `json:"workerThreads"`         // Size of the shared probe worker pool
	ProbesPerSecond       int           `json:"probesPerSecond"`       // Outbound probe rate limit (0 disables)
	FuzzyThreshold        int           `json:"fuzzyThreshold"`        // Name similarity (0-100) for grouping channels
	IncludeRegex          string        `json:"includeRegex"`          // Only import channels matching this pattern (empty = all)
	ExcludeRegex          string        `json:"excludeRegex"`          // Drop channels matching this pattern
	CacheEnabled          bool          `json:"cacheEnabled"`          // Whether playlist response caching is enabled
	CacheDuration         time.Duration `json:"cacheDuration"`         // TTL of cached playlist responses
	Debug                 bool          `json:"debug"`                 // Enable debug logging
	ObfuscateUrls         bool          `json:"obfuscateUrls"`         // Obfuscate source URLs in logs
}

// ConfigFile represents the JSON file structure for marshaling/unmarshaling
// configuration. Duration fields (e.g. "5s", "1h") are parsed into
// time.Duration values.
type ConfigFile struct {
	BaseURL               string `json:"baseURL"`
	ListenAddr            string `json:"listenAddr"`
	InputDir              string `json:"inputDir"`
	UserAgent             string `json:"userAgent"`
	ProbeTimeout          string `json:"probeTimeout"`          // Duration as string (e.g., "5s")
	CheckInterval         string `json:"checkInterval"`         // Duration as string (e.g., "60s")
	ImportRefreshInterval string `json:"importRefreshInterval"` // Duration as string (e.g., "1h")
	WorkerThreads         int    `json:"workerThreads"`
	ProbesPerSecond       int    `json:"probesPerSecond"`
	FuzzyThreshold        int    `json:"fuzzyThreshold"`
	IncludeRegex          string `json:"includeRegex"`
	ExcludeRegex          string `json:"excludeRegex"`
	CacheEnabled          bool   `json:"cacheEnabled"`
	CacheDuration         string `json:"cacheDuration"` // Duration as string (e.g., "10s")
	Debug                 bool   `json:"debug"`
	ObfuscateUrls         bool   `json:"obfuscateUrls"`
}

var (
	configCache *Config      // Cached configuration instance (singleton)
	configMutex sync.RWMutex // Mutex for safe concurrent access to configCache
)

// DefaultPath is where the server looks for its configuration unless the
// M3U_FAILOVER_CONFIG environment variable points somewhere else.
const DefaultPath = "/settings/config.json"

// LoadConfig loads the configuration from file or returns the cached instance.
//
// Process:
//   - Uses double-checked locking to avoid redundant reloads.
//   - Attempts to load from DefaultPath (or $M3U_FAILOVER_CONFIG).
//   - Falls back to default config if file is missing or invalid.
//   - Runs validation to ensure safe defaults.
func LoadConfig() *Config {
	configMutex.RLock()
	if configCache != nil {
		defer configMutex.RUnlock()
		return configCache
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Double-check under write lock
	if configCache != nil {
		return configCache
	}

	configPath := DefaultPath
	if p := os.Getenv("M3U_FAILOVER_CONFIG"); p != "" {
		configPath = p
	}

	config, err := loadFromFile(configPath)
	if err != nil {
		log.Printf("Failed to load config from %s: %v", configPath, err)
		log.Printf("Falling back to default configuration...")
		config = getDefaultConfig()
	}

	// Ensure safe defaults for missing values
	validateAndSetDefaults(config)

	configCache = config

	if config.Debug {
		log.Printf("Configuration loaded:")
		log.Printf("  Input dir: %s", config.InputDir)
		log.Printf("  Probe timeout: %s", config.ProbeTimeout)
		log.Printf("  Check interval: %s", config.CheckInterval)
		log.Printf("  Import refresh: %s", config.ImportRefreshInterval)
		log.Printf("  Worker threads: %d", config.WorkerThreads)
		log.Printf("  Obfuscate URLs: %v", config.ObfuscateUrls)
	}

	return config
}

// loadFromFile reads and parses the configuration from a JSON file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return convertFromFile(&configFile)
}

// convertFromFile converts a ConfigFile to Config,
// parsing duration strings into time.Duration.
func convertFromFile(cf *ConfigFile) (*Config, error) {
	config := &Config{
		BaseURL:         cf.BaseURL,
		ListenAddr:      cf.ListenAddr,
		InputDir:        cf.InputDir,
		UserAgent:       cf.UserAgent,
		WorkerThreads:   cf.WorkerThreads,
		ProbesPerSecond: cf.ProbesPerSecond,
		FuzzyThreshold:  cf.FuzzyThreshold,
		IncludeRegex:    cf.IncludeRegex,
		ExcludeRegex:    cf.ExcludeRegex,
		CacheEnabled:    cf.CacheEnabled,
		Debug:           cf.Debug,
		ObfuscateUrls:   cf.ObfuscateUrls,
	}

	// Parse duration fields
	var err error
	if config.ProbeTimeout, err = time.ParseDuration(cf.ProbeTimeout); err != nil {
		return nil, fmt.Errorf("invalid probeTimeout: %w", err)
	}
	if config.CheckInterval, err = time.ParseDuration(cf.CheckInterval); err != nil {
		return nil, fmt.Errorf("invalid checkInterval: %w", err)
	}
	if config.ImportRefreshInterval, err = time.ParseDuration(cf.ImportRefreshInterval); err != nil {
		return nil, fmt.Errorf("invalid importRefreshInterval: %w", err)
	}
	if config.CacheDuration, err = time.ParseDuration(cf.CacheDuration); err != nil {
		return nil, fmt.Errorf("invalid cacheDuration: %w", err)
	}

	return config, nil
}

// getDefaultConfig returns a baseline configuration
// with sensible defaults when no file is present.
func getDefaultConfig() *Config {
	return &Config{
		BaseURL:               "http://localhost:8000",
		ListenAddr:            ":8000",
		InputDir:              "input",
		UserAgent:             "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		ProbeTimeout:          5 * time.Second,
		CheckInterval:         60 * time.Second,
		ImportRefreshInterval: time.Hour,
		WorkerThreads:         10,
		ProbesPerSecond:       20,
		FuzzyThreshold:        85,
		CacheEnabled:          true,
		CacheDuration:         10 * time.Second,
		Debug:                 false,
		ObfuscateUrls:         false,
	}
}

// validateAndSetDefaults ensures all config values are valid,
// filling in defaults for missing/invalid ones.
func validateAndSetDefaults(config *Config) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8000"
	}
	if config.InputDir == "" {
		config.InputDir = "input"
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	}
	// Probe timeouts below 5s produce false negatives on slow providers,
	// above 10s they stall the selection round.
	if config.ProbeTimeout < 5*time.Second {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.ProbeTimeout > 10*time.Second {
		config.ProbeTimeout = 10 * time.Second
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 60 * time.Second
	}
	if config.ImportRefreshInterval <= 0 {
		config.ImportRefreshInterval = time.Hour
	}
	if config.WorkerThreads <= 0 {
		config.WorkerThreads = 10
	}
	if config.ProbesPerSecond < 0 {
		config.ProbesPerSecond = 0
	}
	if config.FuzzyThreshold <= 0 || config.FuzzyThreshold > 100 {
		config.FuzzyThreshold = 85
	}
	if config.CacheDuration <= 0 {
		config.CacheDuration = 10 * time.Second
	}
}

// CreateExampleConfig creates an example config file on disk.
func CreateExampleConfig(path string) error {
	example := ConfigFile{
		BaseURL:               "http://localhost:8000",
		ListenAddr:            ":8000",
		InputDir:              "input",
		UserAgent:             "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		ProbeTimeout:          "5s",
		CheckInterval:         "60s",
		ImportRefreshInterval: "1h",
		WorkerThreads:         10,
		ProbesPerSecond:       20,
		FuzzyThreshold:        85,
		IncludeRegex:          "",
		ExcludeRegex:          "",
		CacheEnabled:          true,
		CacheDuration:         "10s",
		Debug:                 false,
		ObfuscateUrls:         true,
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ClearConfigCache resets the configCache to nil.
// Forces a reload on the next LoadConfig() call.
func ClearConfigCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCache = nil
}
