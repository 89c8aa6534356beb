package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"time"

	"m3u-failover/work/app"
	"m3u-failover/work/health"
	"m3u-failover/work/logger"
	"m3u-failover/work/utils"

	"github.com/gorilla/mux"
)

// StatsResponse is the system overview exposed through the status API,
// covering table size, probe health and resource usage.
type StatsResponse struct {
	TotalChannels   int    `json:"totalChannels"`
	HealthyChannels int    `json:"healthyChannels"`
	WorkerThreads   int    `json:"workerThreads"`
	RunningProbes   int    `json:"runningProbes"`
	Uptime          string `json:"uptime"`
	MemoryUsage     string `json:"memoryUsage"`
	LogLevel        string `json:"logLevel"`
	Version         string `json:"version"`
}

// ChannelResponse describes one channel for the status API: its rotation
// position, candidate inventory and last known health.
type ChannelResponse struct {
	Name       string                `json:"name"`
	SafeName   string                `json:"safeName"`
	Cursor     int                   `json:"cursor"`
	Candidates []CandidateResponse   `json:"candidates"`
	Health     *health.ChannelHealth `json:"health,omitempty"`
}

// CandidateResponse is one source URL of a channel, obfuscated when the
// config asks for it.
type CandidateResponse struct {
	URL        string `json:"url"`
	GroupTitle string `json:"groupTitle,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Current    bool   `json:"current"`
}

// setupStatusRoutes registers the status and admin endpoints.
func setupStatusRoutes(router *mux.Router, a *app.App) {
	router.HandleFunc("/status", handleStats(a)).Methods("GET")
	router.HandleFunc("/channels", handleChannels(a)).Methods("GET")
	router.HandleFunc("/admin/reload", handleReload(a)).Methods("POST")
}

func handleStats(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		healthy := 0
		for _, entry := range a.Tracker.Snapshot() {
			if entry.Healthy {
				healthy++
			}
		}

		writeJSON(w, StatsResponse{
			TotalChannels:   a.Store.Len(),
			HealthyChannels: healthy,
			WorkerThreads:   a.Pool.Cap(),
			RunningProbes:   a.Pool.Running(),
			Uptime:          time.Since(a.StartTime).Round(time.Second).String(),
			MemoryUsage:     fmt.Sprintf("%.1f MB", float64(mem.Alloc)/1024/1024),
			LogLevel:        logger.GetLogLevel(),
			Version:         Version,
		})
	}
}

func handleChannels(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := a.Store.Snapshot()
		healthSnap := a.Tracker.Snapshot()

		channels := make([]ChannelResponse, 0, len(snap))
		for name, group := range snap {
			resp := ChannelResponse{
				Name:     name,
				SafeName: utils.SanitizeChannelName(name),
				Cursor:   group.Cursor,
			}

			for i, candidate := range group.Candidates {
				resp.Candidates = append(resp.Candidates, CandidateResponse{
					URL:        utils.LogURL(a.Config, candidate.URL),
					GroupTitle: candidate.GroupTitle,
					ExternalID: candidate.ExternalID,
					Current:    i == group.Cursor,
				})
			}

			if entry, ok := healthSnap[name]; ok {
				resp.Health = &entry
			}

			channels = append(channels, resp)
		}

		sort.Slice(channels, func(i, j int) bool {
			return channels[i].Name < channels[j].Name
		})

		writeJSON(w, channels)
	}
}

// handleReload triggers an immediate re-ingest of the input directory
// without waiting for the next scheduled refresh.
func handleReload(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Info("[ADMIN] Manual reload requested by %s", r.RemoteAddr)
		a.Refresher.Kick()
		w.WriteHeader(http.StatusAccepted)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("[STATUS] Failed to encode response: %v", err)
	}
}
