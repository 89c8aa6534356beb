package monitor

import (
	"context"
	"sync"
	"time"

	"m3u-failover/work/config"
	"m3u-failover/work/health"
	"m3u-failover/work/logger"
	"m3u-failover/work/metrics"
	"m3u-failover/work/prober"
	"m3u-failover/work/store"

	"github.com/panjf2000/ants/v2"
)

// Monitor is the background liveness loop. Each tick it re-validates only
// the candidate currently sitting at every channel's cursor, which is far
// cheaper than a full selection round: one probe per channel instead of one
// per candidate. When the official pick stops answering, the cursor is
// advanced so the next playlist request starts from the following candidate.
//
// The monitor and full selection rounds run concurrently and are not
// synchronized with each other; both only ever move cursors through the
// store's serialized primitives, so they compose without extra coordination.
type Monitor struct {
	cfg     *config.Config
	store   *store.ChannelGroupStore
	prober  *prober.Prober
	pool    *ants.Pool
	tracker *health.Tracker
}

func New(cfg *config.Config, st *store.ChannelGroupStore, pr *prober.Prober, pool *ants.Pool, tracker *health.Tracker) *Monitor {
	return &Monitor{
		cfg:     cfg,
		store:   st,
		prober:  pr,
		pool:    pool,
		tracker: tracker,
	}
}

// Run drives the periodic check until the context is cancelled. It performs
// one pass immediately at startup so freshly loaded channels get health
// records before the first interval elapses. Never returns under normal
// operation.
func (m *Monitor) Run(ctx context.Context) {
	logger.Info("[MONITOR] Started (interval %s)", m.cfg.CheckInterval)

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	m.checkCurrent(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("[MONITOR] Stopped")
			return
		case <-ticker.C:
			m.checkCurrent(ctx)
		}
	}
}

// checkCurrent probes the cursor candidate of every channel concurrently on
// the shared worker pool and rotates the channels whose pick went dark.
func (m *Monitor) checkCurrent(ctx context.Context) {
	snap := m.store.Snapshot()

	names := make(map[string]struct{}, len(snap))
	var wg sync.WaitGroup

	for name, group := range snap {
		names[name] = struct{}{}
		if len(group.Candidates) == 0 {
			continue
		}

		name := name
		url := group.Candidates[group.Cursor].URL

		wg.Add(1)
		task := func() {
			defer wg.Done()

			ok := m.prober.Probe(ctx, url)
			m.tracker.Record(name, ok)
			if ok {
				return
			}

			logger.Info("[MONITOR] Channel %s: current candidate down, rotating", name)
			m.store.AdvanceCursor(name)
			metrics.FailoversTotal.WithLabelValues("monitor").Inc()
		}
		if err := m.pool.Submit(task); err != nil {
			task()
		}
	}

	wg.Wait()
	m.tracker.Retain(names)
}
