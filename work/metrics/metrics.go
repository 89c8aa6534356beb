package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProbesTotal counts reachability probes by verdict ("up", "down", "error").
// This metric is a counter and only increases.
var ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "m3u_failover_probes_total",
	Help: "Number of source reachability probes by result",
}, []string{"result"})

// FailoversTotal counts cursor rotations away from a failing candidate.
// The "trigger" label distinguishes explicit failure reports, background
// monitor rotations and full selection rounds.
var FailoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "m3u_failover_failovers_total",
	Help: "Number of candidate rotations by trigger",
}, []string{"trigger"})

// ReloadsTotal counts playlist reloads from the input directory.
var ReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "m3u_failover_reloads_total",
	Help: "Number of channel table reloads",
})

// ActiveChannels tracks how many channels had a reachable candidate in the
// most recent selection round. This is a gauge and moves in both directions.
var ActiveChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "m3u_failover_active_channels",
	Help: "Channels with a reachable candidate in the last selection",
})

// SelectionDuration observes how long full selection rounds take, including
// the concurrent probe fan-out.
var SelectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "m3u_failover_selection_duration_seconds",
	Help:    "Duration of full active-selection rounds",
	Buckets: prometheus.DefBuckets,
})
