package selector

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
	"m3u-failover/work/types"

	"github.com/panjf2000/ants/v2"
)

// Selector computes the active selection: for every channel, the first
// reachable candidate starting at the channel's cursor and wrapping around.
//
// All candidates of all channels are probed up front in one concurrent
// fan-out instead of walking candidates serially from the cursor. A serial
// walk costs up to N probe round-trips per channel (many seconds each when a
// source times out); probing everything at once costs a single round of
// network I/O, and the cursor-ordered walk afterwards is a pure in-memory
// scan over verdicts that still honors the rotation priority.
//
// The shared ants pool caps how many probes are outstanding across the whole
// round, so a big table cannot overwhelm the local network stack or trip
// upstream rate limits.
type Selector struct {
	cfg     *config.Config
	store   *store.ChannelGroupStore
	prober  *prober.Prober
	pool    *ants.Pool
	tracker *health.Tracker
}

// New wires a Selector to the store, the prober and the shared worker pool.
func New(cfg *config.Config, st *store.ChannelGroupStore, pr *prober.Prober, pool *ants.Pool, tracker *health.Tracker) *Selector {
	return &Selector{
		cfg:     cfg,
		store:   st,
		prober:  pr,
		pool:    pool,
		tracker: tracker,
	}
}

// GetActiveSelection runs a full selection round and returns the channels
// that currently have a reachable candidate. Channels where every candidate
// failed are absent from the result. Winning indices are committed back to
// the store as the new cursors; the commit is skipped automatically by the
// store when a reload removed the channel mid-round.
//
// Safe to call concurrently and frequently; rounds only ever exchange data
// with the store through Snapshot and SetCursor.
func (s *Selector) GetActiveSelection(ctx context.Context) types.ActiveSelection {
	start := time.Now()

	// Snapshot under the lock, probe outside it.
	snap := s.store.Snapshot()

	verdicts := make(map[string][]bool, len(snap))
	var wg sync.WaitGroup

	for name, group := range snap {
		if len(group.Candidates) == 0 {
			continue
		}

		results := make([]bool, len(group.Candidates))
		verdicts[name] = results

		for i := range group.Candidates {
			i := i
			url := group.Candidates[i].URL

			wg.Add(1)
			task := func() {
				defer wg.Done()
				results[i] = s.prober.Probe(ctx, url)
			}
			if err := s.pool.Submit(task); err != nil {
				// Pool released during shutdown; finish the round inline.
				task()
			}
		}
	}

	wg.Wait()

	selection := make(types.ActiveSelection, len(snap))
	for name, group := range snap {
		results, ok := verdicts[name]
		if !ok {
			continue
		}

		n := len(group.Candidates)
		winner := -1
		for i := 0; i < n; i++ {
			pos := (group.Cursor + i) % n
			if results[pos] {
				winner = pos
				break
			}
		}

		if winner == -1 {
			// No guessing: the channel disappears from the output until a
			// later round or reload finds a live source.
			logger.Debug("[SELECT] Channel %s: all %d candidates down", name, n)
			s.tracker.Record(name, false)
			continue
		}

		selection[name] = group.Candidates[winner]
		s.store.SetCursor(name, winner)
		s.tracker.Record(name, true)

		if winner != group.Cursor {
			logger.Info("[SELECT] Channel %s: rotated %d -> %d", name, group.Cursor, winner)
			metrics.FailoversTotal.WithLabelValues("selection").Inc()
		}
	}

	metrics.ActiveChannels.Set(float64(len(selection)))
	metrics.SelectionDuration.Observe(time.Since(start).Seconds())
	logger.Debug("[SELECT] Round finished: %d/%d channels active in %v", len(selection), len(snap), time.Since(start))

	return selection
}
