// Package playlist reads and writes extended M3U playlists (m3u_plus).
package playlist

import (
	"bufio"
	"errors"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/voyagen/popcornview/internal/models"
)

var (
	reTvgName = regexp.MustCompile(`tvg-name="([^"]*)"`)
	reTvgID   = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgLogo = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reGroup   = regexp.MustCompile(`group-title="([^"]*)"`)

	reHTTPOrigin    = regexp.MustCompile(`http-origin=(.+)`)
	reHTTPReferrer  = regexp.MustCompile(`http-referrer=(.+)`)
	reHTTPUserAgent = regexp.MustCompile(`http-user-agent=(.+)`)
)

var errNoName = errors.New("no name in EXTINF")

// Headers are per-entry HTTP headers from #EXTVLCOPT lines.
type Headers struct {
	Origin    string `json:"origin,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

func (h Headers) empty() bool { return h == Headers{} }

// Entry is one playlist item.
type Entry struct {
	Name    string           `json:"name"`
	TvgID   string           `json:"tvg_id,omitempty"`
	Logo    string           `json:"logo,omitempty"`
	Group   string           `json:"group,omitempty"`
	URL     string           `json:"url"`
	Kind    models.MediaKind `json:"kind"`
	ID      models.ID        `json:"id,omitempty"`
	Headers *Headers         `json:"headers,omitempty"`
}

// Parse reads an M3U playlist. EXTINF lines without a usable name and URL
// lines without a preceding EXTINF are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	// Some panels emit very long EXTINF lines.
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var extinf string
	var headers Headers

	for scanner.Scan() {
		line := scanner.Text()
		upper := strings.ToUpper(line)
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(upper, "#EXTINF"):
			extinf = line
			headers = Headers{}
		case strings.HasPrefix(upper, "#EXTVLCOPT"):
			if s := matchFirst(reHTTPOrigin, line); s != "" {
				headers.Origin = s
			}
			if s := matchFirst(reHTTPReferrer, line); s != "" {
				headers.Referrer = s
			}
			if s := matchFirst(reHTTPUserAgent, line); s != "" {
				headers.UserAgent = s
			}
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
		default:
			if extinf == "" {
				continue
			}
			name, err := nameFromEXTINF(extinf)
			if err != nil {
				extinf = ""
				continue
			}
			kind, id := classify(trimmed)
			e := Entry{
				Name:  name,
				TvgID: matchFirst(reTvgID, extinf),
				Logo:  matchFirst(reTvgLogo, extinf),
				Group: matchFirst(reGroup, extinf),
				URL:   trimmed,
				Kind:  kind,
				ID:    id,
			}
			if !headers.empty() {
				h := headers
				e.Headers = &h
			}
			entries = append(entries, e)
			extinf = ""
			headers = Headers{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// displayName is the text after the comma that ends the attribute list.
func displayName(extinf string) string {
	if i := strings.LastIndex(extinf, `",`); i >= 0 {
		return strings.TrimSpace(extinf[i+2:])
	}
	if i := strings.Index(extinf, ","); i >= 0 {
		return strings.TrimSpace(extinf[i+1:])
	}
	return ""
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// nameFromEXTINF prefers tvg-name, then the display name after the comma,
// then tvg-id.
func nameFromEXTINF(extinf string) (string, error) {
	for _, n := range []string{
		matchFirst(reTvgName, extinf),
		displayName(extinf),
		matchFirst(reTvgID, extinf),
	} {
		if n != "" {
			return n, nil
		}
	}
	return "", errNoName
}

// classify recovers kind and id from an Xtream stream URL
// (<host>/<live|movie|series>/<user>/<pass>/<id>.<ext>). Other URLs are
// live when they look like a transport stream and movies when they carry a
// container extension.
func classify(raw string) (models.MediaKind, models.ID) {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) >= 4 {
		if kind, err := models.ParseKind(segs[len(segs)-4]); err == nil {
			return kind, models.NormalizeID(strings.TrimSuffix(segs[len(segs)-1], path.Ext(p)))
		}
	}
	switch ext {
	case ".mp4", ".mkv", ".avi", ".mov", ".webm":
		return models.KindMovie, ""
	}
	return models.KindLive, ""
}
