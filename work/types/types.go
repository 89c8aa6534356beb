package types

// Candidate is one concrete source URL for a channel, together with the
// display metadata carried through from the playlist it was imported from.
// The metadata is opaque to the selection engine; it only matters when the
// active selection is rendered back out as a playlist. Candidates are
// immutable once created and are replaced wholesale on every reload.
type Candidate struct {
	URL         string // Complete URL of the source; the only field the engine interprets
	DisplayName string // Human-readable channel name from the EXTINF line
	GroupTitle  string // group-title attribute, used for playlist grouping
	LogoURL     string // tvg-logo attribute
	ExternalID  string // tvg-id attribute
}

// ChannelGroup holds the ordered candidate list for a single channel plus the
// rotation cursor identifying which candidate is currently preferred. The
// cursor always satisfies 0 <= Cursor < len(Candidates) when the list is
// non-empty; a channel with no candidates is legal and simply never produces
// an active entry.
//
// ChannelGroup values are owned by the store and must only be mutated through
// its serialized operations.
type ChannelGroup struct {
	Name       string      // Unique channel identifier
	Candidates []Candidate // Ordered source candidates, highest priority first
	Cursor     int         // Index of the currently preferred candidate
}

// ChannelTable maps channel name to its group. A fresh table is produced by
// ingestion on every reload and handed to the store, which migrates cursors
// from the previous table where they still fit.
type ChannelTable map[string]*ChannelGroup

// ActiveSelection maps channel name to the candidate chosen by the most
// recent selection round. Channels with no reachable candidate are absent.
// The map is ephemeral and recomputed per request or cycle; it is never
// persisted.
type ActiveSelection map[string]Candidate
