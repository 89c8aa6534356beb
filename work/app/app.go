package app

import (
	"time"

	"m3u-failover/work/cache"
	"m3u-failover/work/config"
	"m3u-failover/work/health"
	"m3u-failover/work/refresh"
	"m3u-failover/work/selector"
	"m3u-failover/work/store"

	"github.com/panjf2000/ants/v2"
)

// App bundles the long-lived components the HTTP layer needs. There is no
// hidden global engine instance; main constructs one App and hands it to the
// route handlers, the schedulers and the failure-report endpoint.
type App struct {
	Config    *config.Config
	Store     *store.ChannelGroupStore
	Selector  *selector.Selector
	Cache     *cache.Cache
	Tracker   *health.Tracker
	Refresher *refresh.Refresher
	Pool      *ants.Pool
	StartTime time.Time
}
