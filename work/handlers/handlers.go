package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"m3u-failover/work/app"
	"m3u-failover/work/logger"
	"m3u-failover/work/metrics"
	"m3u-failover/work/types"
	"m3u-failover/work/utils"

	"github.com/gorilla/mux"
)

// HandlePlaylist serves the active selection as an M3U playlist: for every
// channel, the best currently reachable candidate, probed on demand.
func HandlePlaylist(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		generatePlaylist(a, w, r, "")
	}
}

// HandleGroupPlaylist serves the playlist restricted to one group-title.
func HandleGroupPlaylist(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		generatePlaylist(a, w, r, vars["group"])
	}
}

// HandleFailover processes an out-of-band playback failure report: the
// channel's cursor rotates to the next candidate, no health check performed.
// An unknown channel is a silent no-op so misbehaving players can never turn
// a bad report into an error loop.
func HandleFailover(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		name := resolveChannelName(a, vars["channel"])

		a.Store.AdvanceCursor(name)
		a.Cache.Clear()
		metrics.FailoversTotal.WithLabelValues("report").Inc()

		logger.Info("[FAILOVER] Reported failure for channel %s", name)
		w.WriteHeader(http.StatusNoContent)
	}
}

func generatePlaylist(a *app.App, w http.ResponseWriter, r *http.Request, groupFilter string) {
	cacheKey := "playlist"
	if groupFilter != "" {
		cacheKey = "playlist_" + strings.ToLower(groupFilter)
	}

	if cached, ok := a.Cache.GetPlaylist(cacheKey); ok {
		writePlaylist(w, cached)
		return
	}

	selection := a.Selector.GetActiveSelection(r.Context())

	// Stable output order for players that diff playlists.
	names := make([]string, 0, len(selection))
	for name := range selection {
		names = append(names, name)
	}
	sort.Strings(names)

	var playlist strings.Builder
	playlist.WriteString("#EXTM3U\n")

	written := 0
	for _, name := range names {
		candidate := selection[name]

		if groupFilter != "" && !strings.EqualFold(candidate.GroupTitle, groupFilter) {
			continue
		}

		playlist.WriteString(formatEXTINF(name, candidate))
		playlist.WriteString(candidate.URL + "\n")
		written++
	}

	result := playlist.String()
	a.Cache.SetPlaylist(cacheKey, result)
	writePlaylist(w, result)

	if a.Config.Debug {
		logger.Debug("[PLAYLIST] Served %d channels (filter=%q, %d selected)", written, groupFilter, len(selection))
	}
}

func formatEXTINF(name string, c types.Candidate) string {
	var line strings.Builder
	line.WriteString("#EXTINF:-1")

	if c.ExternalID != "" {
		fmt.Fprintf(&line, " tvg-id=%q", c.ExternalID)
	}
	if c.LogoURL != "" {
		fmt.Fprintf(&line, " tvg-logo=%q", c.LogoURL)
	}
	if c.GroupTitle != "" {
		fmt.Fprintf(&line, " group-title=%q", c.GroupTitle)
	}

	fmt.Fprintf(&line, ",%s\n", strings.Trim(name, "\""))
	return line.String()
}

func writePlaylist(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/x-mpegURL")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(body))
}

// resolveChannelName maps a sanitized channel identifier from a request path
// back to the real channel name. Falls back to the raw value, which keeps
// unknown names flowing into the store's own no-op handling.
func resolveChannelName(a *app.App, safeName string) string {
	simpleName := strings.ReplaceAll(safeName, "_", " ")
	if a.Store.Cursor(simpleName) >= 0 {
		return simpleName
	}
	if a.Store.Cursor(safeName) >= 0 {
		return safeName
	}

	for name := range a.Store.Snapshot() {
		if utils.SanitizeChannelName(name) == safeName {
			return name
		}
	}
	return safeName
}
