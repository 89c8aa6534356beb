package health

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// ChannelHealth is the last known probe outcome for a channel's currently
// preferred candidate. Entries are written by the background monitor and the
// selector and read by the status API; they are advisory only and play no
// part in selection decisions.
type ChannelHealth struct {
	Healthy      bool      `json:"healthy"`      // Verdict of the most recent probe
	LastChecked  time.Time `json:"lastChecked"`  // When the probe ran
	LastOK       time.Time `json:"lastOk"`       // Most recent successful probe
	FailureCount int64     `json:"failureCount"` // Probe failures since the last success
}

// Tracker keeps per-channel health records in a lock-free concurrent map so
// monitor ticks, selection rounds and status requests never contend.
type Tracker struct {
	channels *xsync.MapOf[string, ChannelHealth]
}

func NewTracker() *Tracker {
	return &Tracker{
		channels: xsync.NewMapOf[string, ChannelHealth](),
	}
}

// Record stores the outcome of a probe against the channel's current pick.
func (t *Tracker) Record(channel string, healthy bool) {
	now := time.Now()

	t.channels.Compute(channel, func(old ChannelHealth, _ bool) (ChannelHealth, bool) {
		entry := ChannelHealth{
			Healthy:     healthy,
			LastChecked: now,
			LastOK:      old.LastOK,
		}
		if healthy {
			entry.LastOK = now
			entry.FailureCount = 0
		} else {
			entry.FailureCount = old.FailureCount + 1
		}
		return entry, false
	})
}

// Get returns the record for one channel.
func (t *Tracker) Get(channel string) (ChannelHealth, bool) {
	return t.channels.Load(channel)
}

// Snapshot copies all records for the status API.
func (t *Tracker) Snapshot() map[string]ChannelHealth {
	out := make(map[string]ChannelHealth, t.channels.Size())
	t.channels.Range(func(name string, entry ChannelHealth) bool {
		out[name] = entry
		return true
	})
	return out
}

// Retain drops records for channels that vanished from the table, keeping
// the tracker from growing across reloads.
func (t *Tracker) Retain(names map[string]struct{}) {
	t.channels.Range(func(name string, _ ChannelHealth) bool {
		if _, ok := names[name]; !ok {
			t.channels.Delete(name)
		}
		return true
	})
}
