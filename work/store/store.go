package store

import (
	"sync"

	"m3u-failover/work/logger"
	"m3u-failover/work/types"
)

// ChannelGroupStore owns the channel table and every cursor in it. All reads
// and writes go through one coarse mutex: the table is small and every
// operation below is pure in-memory bookkeeping, so holding a single lock for
// microseconds is cheaper and simpler than finer-grained schemes. Network
// probing never happens while the lock is held; callers take a Snapshot,
// probe outside the lock, and commit results back through SetCursor.
type ChannelGroupStore struct {
	mu     sync.Mutex
	groups types.ChannelTable
}

// New creates an empty store. Load is expected to follow with the first
// ingested table.
func New() *ChannelGroupStore {
	return &ChannelGroupStore{
		groups: types.ChannelTable{},
	}
}

// Load replaces the whole channel table. Cursors migrate from the previous
// table for channels whose name survived the reload and whose new candidate
// list is still long enough to cover the old cursor; every other channel
// starts back at index 0. The old table is discarded.
func (s *ChannelGroupStore) Load(table types.ChannelTable) {
	if table == nil {
		table = types.ChannelTable{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	migrated := 0
	for name, group := range table {
		group.Cursor = 0
		if old, ok := s.groups[name]; ok && old.Cursor < len(group.Candidates) {
			group.Cursor = old.Cursor
			if old.Cursor > 0 {
				migrated++
			}
		}
	}

	s.groups = table
	logger.Debug("[STORE] Loaded %d channels (%d migrated cursors)", len(table), migrated)
}

// Snapshot returns a shallow copy of the table: fresh ChannelGroup values
// with the current cursors, sharing the candidate slices, which are treated
// as immutable once loaded. Callers use the snapshot for probing without
// holding the lock.
func (s *ChannelGroupStore) Snapshot() types.ChannelTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(types.ChannelTable, len(s.groups))
	for name, group := range s.groups {
		snap[name] = &types.ChannelGroup{
			Name:       group.Name,
			Candidates: group.Candidates,
			Cursor:     group.Cursor,
		}
	}
	return snap
}

// AdvanceCursor rotates the named channel to its next candidate, wrapping
// around at the end of the list. Unknown channels and channels with no
// candidates are silent no-ops; the length guard also keeps the modulo from
// ever dividing by zero.
func (s *ChannelGroupStore) AdvanceCursor(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[name]
	if !ok || len(group.Candidates) == 0 {
		return
	}

	group.Cursor = (group.Cursor + 1) % len(group.Candidates)
	logger.Debug("[STORE] Channel %s: cursor advanced to %d/%d", name, group.Cursor, len(group.Candidates))
}

// SetCursor commits the winning index of a selection round. The commit is
// dropped when the channel no longer exists or the index no longer fits its
// candidate list: a reload may have raced the in-flight selection, and a
// stale result must not clobber the fresh table.
func (s *ChannelGroupStore) SetCursor(name string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[name]
	if !ok || index < 0 || index >= len(group.Candidates) {
		return
	}

	group.Cursor = index
}

// Current returns the candidate at the channel's cursor, or false when the
// channel is unknown or empty.
func (s *ChannelGroupStore) Current(name string) (types.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[name]
	if !ok || len(group.Candidates) == 0 {
		return types.Candidate{}, false
	}
	return group.Candidates[group.Cursor], true
}

// Cursor returns the channel's cursor position, or -1 for unknown channels.
func (s *ChannelGroupStore) Cursor(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[name]
	if !ok {
		return -1
	}
	return group.Cursor
}

// Len returns the number of channels in the table.
func (s *ChannelGroupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}
