package refresh

import (
	"time"

	"m3u-failover/work/cache"
	"m3u-failover/work/config"
	"m3u-failover/work/ingest"
	"m3u-failover/work/logger"
	"m3u-failover/work/metrics"
	"m3u-failover/work/store"
)

// Refresher periodically rebuilds the channel table from the input directory
// and swaps it into the store. All file parsing and grouping happens before
// the store's lock is touched, so playlist consumers are only ever blocked
// for the in-memory table swap of Load itself.
type Refresher struct {
	cfg      *config.Config
	ingester *ingest.Ingester
	store    *store.ChannelGroupStore
	cache    *cache.Cache
	stopChan chan bool
	kickChan chan bool
}

func New(cfg *config.Config, ing *ingest.Ingester, st *store.ChannelGroupStore, c *cache.Cache) *Refresher {
	return &Refresher{
		cfg:      cfg,
		ingester: ing,
		store:    st,
		cache:    c,
		stopChan: make(chan bool, 1),
		kickChan: make(chan bool, 1),
	}
}

// ReloadNow rebuilds and loads the table once, synchronously. Used for the
// initial load at startup and by the admin reload endpoint.
func (r *Refresher) ReloadNow() error {
	table, err := r.ingester.BuildTable()
	if err != nil {
		return err
	}

	r.store.Load(table)
	r.cache.Clear()
	metrics.ReloadsTotal.Inc()
	logger.Info("[RELOAD] Channel table reloaded: %d channels", len(table))

	return nil
}

// Start runs the periodic reload loop until Stop is called. A failed rebuild
// keeps the previous table in place; degrading to stale data beats serving
// nothing.
func (r *Refresher) Start() {
	ticker := time.NewTicker(r.cfg.ImportRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			logger.Debug("[RELOAD] Refresh loop stopped")
			return
		case <-r.kickChan:
			if err := r.ReloadNow(); err != nil {
				logger.Error("[RELOAD] Manual reload failed: %v", err)
			}
		case <-ticker.C:
			if err := r.ReloadNow(); err != nil {
				logger.Error("[RELOAD] Scheduled reload failed: %v", err)
			}
		}
	}
}

// Kick requests an immediate reload from the running loop without waiting
// for the next tick. No-op if a kick is already pending.
func (r *Refresher) Kick() {
	select {
	case r.kickChan <- true:
	default:
	}
}

// Stop signals the reload loop to exit.
func (r *Refresher) Stop() {
	select {
	case r.stopChan <- true:
	default:
	}
}
