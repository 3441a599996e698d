package playlist

import (
	"io"
	"strings"

	"github.com/gosimple/slug"
	"github.com/valyala/bytebufferpool"

	"github.com/voyagen/popcornview/internal/models"
)

// FromItems turns listing items into playlist entries. groups maps category
// ids to names; urlFor builds the stream URL of an item.
func FromItems(items []models.Item, groups map[models.ID]string, urlFor func(models.Item) string) []Entry {
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Entry{
			Name:  it.Name,
			TvgID: it.EPGChannel,
			Logo:  it.Icon,
			Group: groups[it.CategoryID],
			URL:   urlFor(it),
			Kind:  it.Kind,
			ID:    it.ID,
		})
	}
	return out
}

// Export writes entries as an extended M3U playlist.
func Export(w io.Writer, entries []Entry) (int64, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("#EXTM3U\n")
	for _, e := range entries {
		buf.WriteString("#EXTINF:-1")
		attr(buf, "tvg-id", e.TvgID)
		attr(buf, "tvg-name", e.Name)
		attr(buf, "tvg-logo", e.Logo)
		attr(buf, "group-title", e.Group)
		buf.WriteByte(',')
		buf.WriteString(clean(e.Name))
		buf.WriteByte('\n')
		if h := e.Headers; h != nil {
			vlcopt(buf, "http-origin", h.Origin)
			vlcopt(buf, "http-referrer", h.Referrer)
			vlcopt(buf, "http-user-agent", h.UserAgent)
		}
		buf.WriteString(e.URL)
		buf.WriteByte('\n')
	}
	return buf.WriteTo(w)
}

// FileName is the download name of a playlist, e.g. "My TV" -> "my-tv.m3u".
func FileName(playlistName string) string {
	s := slug.Make(playlistName)
	if s == "" {
		s = "playlist"
	}
	return s + ".m3u"
}

// FilterGroups drops entries whose group is in hidden.
func FilterGroups(entries []Entry, hidden map[string]struct{}) []Entry {
	if len(hidden) == 0 {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := hidden[e.Group]; !ok {
			out = append(out, e)
		}
	}
	return out
}

func attr(buf *bytebufferpool.ByteBuffer, key, val string) {
	if val == "" {
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteString(`="`)
	buf.WriteString(clean(val))
	buf.WriteByte('"')
}

func vlcopt(buf *bytebufferpool.ByteBuffer, key, val string) {
	if val == "" {
		return
	}
	buf.WriteString("#EXTVLCOPT:")
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(clean(val))
	buf.WriteByte('\n')
}

// clean strips characters that would break the line-oriented format.
func clean(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ", `"`, "'").Replace(strings.TrimSpace(s))
}
