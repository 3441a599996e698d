package xtream

import (
	"net/url"
	"strings"

	"github.com/voyagen/popcornview/internal/models"
)

// The builders below are pure string functions. Their results embed the
// account credentials and must only reach logs through logger.Redact.

// LiveStreamURL returns <host>/live/<user>/<pass>/<id>.<ext>; ext defaults to "ts".
func (c *Client) LiveStreamURL(streamID models.ID, ext string) string {
	if ext == "" {
		ext = models.KindLive.DefaultExtension()
	}
	return c.streamURL(models.KindLive, streamID.String(), ext)
}

// MovieStreamURL returns <host>/movie/<user>/<pass>/<stream_id>.<container_extension>.
func (c *Client) MovieStreamURL(m models.Movie) string {
	ext := m.ContainerExtension
	if ext == "" {
		ext = models.KindMovie.DefaultExtension()
	}
	return c.streamURL(models.KindMovie, m.StreamID.String(), ext)
}

// SeriesStreamURL returns <host>/series/<user>/<pass>/<episode_id>.<container_extension>.
func (c *Client) SeriesStreamURL(ep models.Episode) string {
	ext := ep.ContainerExtension
	if ext == "" {
		ext = models.KindSeries.DefaultExtension()
	}
	return c.streamURL(models.KindSeries, ep.ID.String(), ext)
}

// StreamURL builds a playback URL for any kind from a bare id and extension.
// For series the id is an episode id.
func (c *Client) StreamURL(kind models.MediaKind, id models.ID, ext string) string {
	if ext == "" {
		ext = kind.DefaultExtension()
	}
	return c.streamURL(kind, id.String(), ext)
}

// PlaylistURL returns the get.php URL for the account playlist.
func (c *Client) PlaylistURL(playlistType, output string) string {
	u := c.host + "/get.php?" + c.credQuery() + "&type=" + url.QueryEscape(playlistType)
	if output != "" {
		u += "&output=" + url.QueryEscape(output)
	}
	return u
}

func (c *Client) streamURL(kind models.MediaKind, id, ext string) string {
	var b strings.Builder
	b.WriteString(c.host)
	b.WriteByte('/')
	b.WriteString(kind.StreamPath())
	b.WriteByte('/')
	b.WriteString(url.PathEscape(c.username))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(c.password))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(id))
	b.WriteByte('.')
	b.WriteString(url.PathEscape(strings.TrimPrefix(ext, ".")))
	return b.String()
}
