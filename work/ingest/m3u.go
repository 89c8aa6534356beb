package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"m3u-failover/work/logger"
	"m3u-failover/work/types"

	"github.com/grafov/m3u8"
)

// Entry is one raw playlist line pair (channel name + source URL) before
// grouping. The candidate carries the passthrough metadata from the EXTINF
// attributes.
type Entry struct {
	Name      string
	Candidate types.Candidate
}

// ParseM3UFile extracts entries from one playlist file. Strict grafov
// decoding is tried first; IPTV playlists with tvg-* attributes usually fail
// strict decoding, so the line scanner below handles those.
func ParseM3UFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}
	defer f.Close()

	playlist, listType, err := m3u8.DecodeFrom(bufio.NewReader(f), true)
	if err == nil && listType == m3u8.MEDIA {
		return entriesFromGrafov(playlist.(*m3u8.MediaPlaylist)), nil
	}

	// Fallback scanner; re-read from the start.
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind playlist: %w", err)
	}
	return parseM3UFallback(f), nil
}

// entriesFromGrafov converts a strictly decoded media playlist. There are no
// tvg attributes on this path; the segment title is the channel name.
func entriesFromGrafov(pl *m3u8.MediaPlaylist) []Entry {
	var entries []Entry
	for _, seg := range pl.Segments {
		if seg == nil {
			break
		}
		if seg.URI == "" || !isSourceURL(seg.URI) {
			continue
		}

		name := strings.TrimSpace(seg.Title)
		if name == "" {
			name = "Unknown"
		}

		entries = append(entries, Entry{
			Name: name,
			Candidate: types.Candidate{
				URL:         seg.URI,
				DisplayName: name,
			},
		})
	}
	return entries
}

// parseM3UFallback scans EXTINF/URL line pairs, keeping the tvg metadata.
func parseM3UFallback(f *os.File) []Entry {
	var entries []Entry
	scanner := bufio.NewScanner(f)
	var currentAttrs map[string]string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "#EXTINF:") {
			currentAttrs = ParseEXTINF(line)
		} else if currentAttrs != nil && isSourceURL(line) {
			name := currentAttrs["tvg-name"]
			if name == "" {
				name = "Unknown"
			}

			entries = append(entries, Entry{
				Name: name,
				Candidate: types.Candidate{
					URL:         line,
					DisplayName: name,
					GroupTitle:  currentAttrs["group-title"],
					LogoURL:     currentAttrs["tvg-logo"],
					ExternalID:  currentAttrs["tvg-id"],
				},
			})
			currentAttrs = nil
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("[INGEST] Scanner error in %s: %v", f.Name(), err)
	}

	return entries
}

func isSourceURL(line string) bool {
	return strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://")
}

// ParseEXTINF splits an EXTINF line into its attribute map. The channel name
// after the last unquoted comma is stored under "tvg-name".
func ParseEXTINF(line string) map[string]string {
	attrs := make(map[string]string)

	line = strings.TrimPrefix(line, "#EXTINF:")

	// Find the last comma that separates attributes from channel name
	lastComma := -1
	inQuotes := false

	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == '"' {
			inQuotes = !inQuotes
		} else if line[i] == ',' && !inQuotes {
			lastComma = i
			break
		}
	}

	if lastComma == -1 {
		return attrs
	}

	attrPart := strings.TrimSpace(line[:lastComma])
	channelName := strings.TrimSpace(line[lastComma+1:])

	// Parse duration and attributes
	parts := strings.Fields(attrPart)
	if len(parts) > 0 {
		attrs["duration"] = parts[0]
	}

	for i := 1; i < len(parts); i++ {
		part := parts[i]
		if eqIdx := strings.Index(part, "="); eqIdx != -1 {
			key := part[:eqIdx]
			value := strings.Trim(part[eqIdx+1:], "\"")
			attrs[key] = value
		}
	}

	if channelName != "" {
		attrs["tvg-name"] = channelName
	}

	return attrs
}
