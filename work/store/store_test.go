package store

import (
	"fmt"
	"sync"
	"testing"

	"m3u-failover/work/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(channels map[string][]string) types.ChannelTable {
	t := types.ChannelTable{}
	for name, urls := range channels {
		group := &types.ChannelGroup{Name: name}
		for _, u := range urls {
			group.Candidates = append(group.Candidates, types.Candidate{URL: u})
		}
		t[name] = group
	}
	return t
}

func TestAdvanceCursorWrapsAround(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"news": {"http://a/1", "http://a/2", "http://a/3"},
	}))

	require.Equal(t, 0, s.Cursor("news"))

	s.AdvanceCursor("news")
	assert.Equal(t, 1, s.Cursor("news"))
	s.AdvanceCursor("news")
	assert.Equal(t, 2, s.Cursor("news"))
	s.AdvanceCursor("news")
	assert.Equal(t, 0, s.Cursor("news"), "cursor should wrap back to the start")
}

func TestAdvanceCursorNTimesIsIdentity(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"sports": {"http://a", "http://b", "http://c", "http://d", "http://e"},
	}))

	s.AdvanceCursor("sports")
	s.AdvanceCursor("sports")
	start := s.Cursor("sports")

	for i := 0; i < 5; i++ {
		s.AdvanceCursor("sports")
	}
	assert.Equal(t, start, s.Cursor("sports"))
}

func TestAdvanceCursorUnknownChannelIsNoop(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"movies": {"http://a", "http://b"},
	}))

	s.AdvanceCursor("does-not-exist")
	assert.Equal(t, 0, s.Cursor("movies"), "other channels must be untouched")
	assert.Equal(t, -1, s.Cursor("does-not-exist"))
}

func TestAdvanceCursorEmptyChannel(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{"empty": {}}))

	// Must not panic or divide by zero.
	s.AdvanceCursor("empty")
	assert.Equal(t, 0, s.Cursor("empty"))

	_, ok := s.Current("empty")
	assert.False(t, ok)
}

func TestLoadMigratesCursorWhenItStillFits(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"news": {"http://a", "http://b", "http://c"},
	}))
	s.AdvanceCursor("news")
	s.AdvanceCursor("news")
	require.Equal(t, 2, s.Cursor("news"))

	// Same channel, same candidate count: cursor survives.
	s.Load(table(map[string][]string{
		"news": {"http://x", "http://y", "http://z"},
	}))
	assert.Equal(t, 2, s.Cursor("news"))

	// Larger candidate count: cursor still survives.
	s.Load(table(map[string][]string{
		"news": {"http://1", "http://2", "http://3", "http://4"},
	}))
	assert.Equal(t, 2, s.Cursor("news"))
}

func TestLoadResetsCursorWhenListShrank(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"news": {"http://a", "http://b", "http://c"},
	}))
	s.AdvanceCursor("news")
	s.AdvanceCursor("news")

	// New list no longer covers index 2.
	s.Load(table(map[string][]string{
		"news": {"http://x", "http://y"},
	}))
	assert.Equal(t, 0, s.Cursor("news"))
}

func TestLoadDropsVanishedChannels(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"old": {"http://a"},
	}))

	s.Load(table(map[string][]string{
		"new": {"http://b"},
	}))
	assert.Equal(t, -1, s.Cursor("old"))
	assert.Equal(t, 0, s.Cursor("new"))
	assert.Equal(t, 1, s.Len())
}

func TestSetCursorGuards(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"news": {"http://a", "http://b"},
	}))

	s.SetCursor("news", 1)
	assert.Equal(t, 1, s.Cursor("news"))

	// Out of range and unknown channel commits are dropped.
	s.SetCursor("news", 5)
	assert.Equal(t, 1, s.Cursor("news"))
	s.SetCursor("news", -1)
	assert.Equal(t, 1, s.Cursor("news"))
	s.SetCursor("gone", 0)
	assert.Equal(t, -1, s.Cursor("gone"))
}

func TestSnapshotIsolatedFromStore(t *testing.T) {
	s := New()
	s.Load(table(map[string][]string{
		"news": {"http://a", "http://b"},
	}))

	snap := s.Snapshot()
	s.AdvanceCursor("news")

	assert.Equal(t, 0, snap["news"].Cursor, "snapshot must keep the cursor it was taken with")
	assert.Equal(t, 1, s.Cursor("news"))
}

func TestConcurrentMutationKeepsCursorInRange(t *testing.T) {
	s := New()

	makeTable := func(n int) types.ChannelTable {
		channels := map[string][]string{}
		for i := 0; i < 8; i++ {
			name := fmt.Sprintf("ch-%d", i)
			var urls []string
			for j := 0; j < n; j++ {
				urls = append(urls, fmt.Sprintf("http://src-%d/%d", i, j))
			}
			channels[name] = urls
		}
		return table(channels)
	}
	s.Load(makeTable(4))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				name := fmt.Sprintf("ch-%d", i%8)
				switch w % 4 {
				case 0:
					s.AdvanceCursor(name)
				case 1:
					s.SetCursor(name, i%5) // sometimes out of range on purpose
				case 2:
					// Alternate candidate counts to force migrations and resets.
					s.Load(makeTable(2 + i%3))
				default:
					for _, group := range s.Snapshot() {
						n := len(group.Candidates)
						if n > 0 {
							require.GreaterOrEqual(t, group.Cursor, 0)
							require.Less(t, group.Cursor, n)
						}
					}
				}
			}
		}()
	}
	wg.Wait()

	for _, group := range s.Snapshot() {
		n := len(group.Candidates)
		require.Greater(t, n, 0)
		assert.GreaterOrEqual(t, group.Cursor, 0)
		assert.Less(t, group.Cursor, n)
	}
}
