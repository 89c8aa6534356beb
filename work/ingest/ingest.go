package ingest

import (
	"fmt"
	"path/filepath"
	"sort"

	"m3u-failover/work/config"
	"m3u-failover/work/logger"
	"m3u-failover/work/types"

	"github.com/grafana/regexp"
)

// Ingester turns the playlist files in the input directory into a grouped,
// validated channel table. Channel names that are near-identical across
// providers ("ESPN HD", "HD ESPN", "espn hd") fold into one channel whose
// candidate list preserves file order, so earlier files act as the higher
// priority sources.
type Ingester struct {
	cfg     *config.Config
	include *regexp.Regexp
	exclude *regexp.Regexp
}

// New compiles the channel name filters up front so a bad pattern surfaces
// at startup instead of silently dropping everything on each reload.
func New(cfg *config.Config) (*Ingester, error) {
	ing := &Ingester{cfg: cfg}

	var err error
	if cfg.IncludeRegex != "" {
		if ing.include, err = regexp.Compile(cfg.IncludeRegex); err != nil {
			return nil, fmt.Errorf("invalid includeRegex: %w", err)
		}
	}
	if cfg.ExcludeRegex != "" {
		if ing.exclude, err = regexp.Compile(cfg.ExcludeRegex); err != nil {
			return nil, fmt.Errorf("invalid excludeRegex: %w", err)
		}
	}

	return ing, nil
}

// BuildTable parses every *.m3u file under the input directory and returns
// the grouped channel table. File and network errors on individual playlists
// are logged and skipped; an empty directory yields an empty table, not an
// error, so a reload can never wipe out serving with a hard failure.
func (ing *Ingester) BuildTable() (types.ChannelTable, error) {
	pattern := filepath.Join(ing.cfg.InputDir, "*.m3u")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input dir: %w", err)
	}

	// Deterministic candidate priority across reloads.
	sort.Strings(files)

	var entries []Entry
	for _, file := range files {
		fileEntries, err := ParseM3UFile(file)
		if err != nil {
			logger.Warn("[INGEST] Skipping %s: %v", file, err)
			continue
		}

		logger.Debug("[INGEST] Parsed %d entries from %s", len(fileEntries), file)
		entries = append(entries, fileEntries...)
	}

	table := ing.group(entries)
	logger.Info("[INGEST] Built table: %d channels from %d entries in %d files", len(table), len(entries), len(files))

	return table, nil
}

// group folds entries into channels using the token-sort similarity scorer.
// Each entry joins the best-matching existing channel when the score clears
// the configured threshold, otherwise it starts a new channel under its own
// name.
func (ing *Ingester) group(entries []Entry) types.ChannelTable {
	table := types.ChannelTable{}
	var names []string // insertion order, for stable matching

	for _, entry := range entries {
		if !ing.keep(entry.Name) {
			continue
		}

		bestName := ""
		bestScore := 0
		for _, name := range names {
			if score := TokenSortRatio(entry.Name, name); score > bestScore {
				bestName = name
				bestScore = score
			}
		}

		if bestScore >= ing.cfg.FuzzyThreshold {
			group := table[bestName]
			group.Candidates = append(group.Candidates, entry.Candidate)
			continue
		}

		table[entry.Name] = &types.ChannelGroup{
			Name:       entry.Name,
			Candidates: []types.Candidate{entry.Candidate},
		}
		names = append(names, entry.Name)
	}

	return table
}

func (ing *Ingester) keep(name string) bool {
	if ing.include != nil && !ing.include.MatchString(name) {
		return false
	}
	if ing.exclude != nil && ing.exclude.MatchString(name) {
		return false
	}
	return true
}
