package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"m3u-failover/work/app"
	"m3u-failover/work/cache"
	"m3u-failover/work/client"
	"m3u-failover/work/config"
	"m3u-failover/work/handlers"
	"m3u-failover/work/health"
	"m3u-failover/work/ingest"
	"m3u-failover/work/logger"
	"m3u-failover/work/middleware"
	"m3u-failover/work/monitor"
	"m3u-failover/work/prober"
	"m3u-failover/work/refresh"
	"m3u-failover/work/selector"
	"m3u-failover/work/store"
)

var (
	Version = "v0.1.0" // default version
)

// our main app worker
func main() {

	// load our config
	cfg := config.LoadConfig()

	if cfg.Debug {
		logger.SetLogLevel("DEBUG")
	}

	// Initialize HTTP client with the spoofed probe headers
	httpClient := client.NewHeaderSettingClient(cfg)

	// Initialize the shared probe worker pool; its size is the hard cap on
	// outstanding probes across selection rounds and the background monitor
	workerPool, err := ants.NewPool(cfg.WorkerThreads, ants.WithPreAlloc(true))
	if err != nil {
		log.Fatalf("Failed to create worker pool: %v", err)
	}
	defer workerPool.Release()

	// Core engine components
	channelStore := store.New()
	probe := prober.New(cfg, httpClient)
	tracker := health.NewTracker()
	playlistCache := cache.New(cfg)
	sel := selector.New(cfg, channelStore, probe, workerPool, tracker)

	// Ingestion and reload scheduling
	ingester, err := ingest.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize ingester: %v", err)
	}
	refresher := refresh.New(cfg, ingester, channelStore, playlistCache)

	// Initial import; an empty or missing input dir is not fatal, the
	// refresh loop will pick files up once they appear
	if err := refresher.ReloadNow(); err != nil {
		logger.Warn("Initial import failed: %v", err)
	}
	go refresher.Start()

	// Background liveness monitor over the currently selected candidates
	mon := monitor.New(cfg, channelStore, probe, workerPool, tracker)
	go mon.Run(context.Background())

	application := &app.App{
		Config:    cfg,
		Store:     channelStore,
		Selector:  sel,
		Cache:     playlistCache,
		Tracker:   tracker,
		Refresher: refresher,
		Pool:      workerPool,
		StartTime: time.Now(),
	}

	// Setup HTTP routes
	router := mux.NewRouter()

	// Playlist routes (all channels, and filtered by group title)
	router.HandleFunc("/playlist.m3u", middleware.GzipMiddleware(handlers.HandlePlaylist(application))).Methods("GET")
	router.HandleFunc("/group/{group}/playlist.m3u", middleware.GzipMiddleware(handlers.HandleGroupPlaylist(application))).Methods("GET")

	// Out-of-band playback failure reports
	router.HandleFunc("/failover/{channel}", handlers.HandleFailover(application)).Methods("POST")

	// Metrics handler
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// add the status routes
	setupStatusRoutes(router, application)

	// show info
	logger.Info("Starting M3U Failover %s", Version)
	logger.Info("Server configuration:")
	logger.Info("  - Listen Addr: %s", cfg.ListenAddr)
	logger.Info("  - Input Dir: %s", cfg.InputDir)
	logger.Info("  - Channels: %d", channelStore.Len())
	logger.Info("  - Worker Threads: %d", cfg.WorkerThreads)
	logger.Info("  - Probe Timeout: %s", cfg.ProbeTimeout)
	logger.Info("  - Check Interval: %s", cfg.CheckInterval)
	logger.Info("  - Source Refresh Rate: %s", cfg.ImportRefreshInterval)
	logger.Info("  - Cache Enabled: %v", cfg.CacheEnabled)
	logger.Info("  - Debug Enabled: %v", cfg.Debug)
	logger.Info("  - URL Obfuscation: %v", cfg.ObfuscateUrls)

	// fire us up
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

}
