package prober

import (
	"context"
	"net/http"

	"m3u-failover/work/client"
	"m3u-failover/work/config"
	"m3u-failover/work/logger"
	"m3u-failover/work/metrics"
	"m3u-failover/work/utils"

	"go.uber.org/ratelimit"
)

// Prober performs bounded-time reachability checks against candidate source
// URLs. A probe is a plain GET that never reads the response body: the status
// line is enough to decide whether a source is alive, and buffering a live
// stream body would hold the connection open for no reason.
//
// Probe never returns an error. Every transport failure (timeout, refused
// connection, DNS error, malformed response) maps to a "not working" verdict,
// so nothing upstream ever has to handle an exception from the health path.
type Prober struct {
	cfg        *config.Config
	httpClient *client.HeaderSettingClient
	limiter    ratelimit.Limiter
}

// New creates a Prober sharing the application's outbound HTTP client.
// When probesPerSecond is positive, all probes pass through a rate limiter
// so a large table does not hammer upstream providers.
func New(cfg *config.Config, httpClient *client.HeaderSettingClient) *Prober {
	limiter := ratelimit.NewUnlimited()
	if cfg.ProbesPerSecond > 0 {
		limiter = ratelimit.New(cfg.ProbesPerSecond)
	}

	return &Prober{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Probe reports whether the URL currently looks like a working source.
// Statuses 200, 301 and 302 count as working; anything else, or any
// transport error, does not.
func (p *Prober) Probe(ctx context.Context, url string) bool {
	p.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logger.Debug("[PROBE] Bad URL %s: %v", utils.LogURL(p.cfg, url), err)
		metrics.ProbesTotal.WithLabelValues("error").Inc()
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.Debug("[PROBE] Check failed %s: %v", utils.LogURL(p.cfg, url), err)
		metrics.ProbesTotal.WithLabelValues("down").Inc()
		return false
	}
	// Body is intentionally not read; close drops the connection right after
	// the status line.
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMovedPermanently, http.StatusFound:
		metrics.ProbesTotal.WithLabelValues("up").Inc()
		return true
	default:
		logger.Debug("[PROBE] HTTP %d from %s", resp.StatusCode, utils.LogURL(p.cfg, url))
		metrics.ProbesTotal.WithLabelValues("down").Inc()
		return false
	}
}
