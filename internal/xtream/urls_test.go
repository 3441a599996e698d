package xtream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/popcornview/internal/models"
)

func TestStreamURLs(t *testing.T) {
	c := New("http://panel.tv:8080", "alice", "secret", nil)

	assert.Equal(t, "http://panel.tv:8080/live/alice/secret/101.ts", c.LiveStreamURL("101", ""))
	assert.Equal(t, "http://panel.tv:8080/live/alice/secret/101.m3u8", c.LiveStreamURL("101", "m3u8"))

	movie := models.Movie{StreamID: "42", ContainerExtension: "mp4"}
	assert.Equal(t, "http://panel.tv:8080/movie/alice/secret/42.mp4", c.MovieStreamURL(movie))

	ep := models.Episode{ID: "9001", ContainerExtension: "mkv"}
	assert.Equal(t, "http://panel.tv:8080/series/alice/secret/9001.mkv", c.SeriesStreamURL(ep))

	assert.Equal(t, "http://panel.tv:8080/series/alice/secret/9001.mp4", c.StreamURL(models.KindSeries, "9001", ""))
	assert.Equal(t, "http://panel.tv:8080/get.php?username=alice&password=secret&type=m3u_plus&output=ts", c.PlaylistURL("m3u_plus", "ts"))
}

func TestStreamURLTrimsHostSlash(t *testing.T) {
	c := New("http://panel.tv//", "alice", "secret", nil)
	assert.Equal(t, "http://panel.tv/movie/alice/secret/7.mkv", c.StreamURL(models.KindMovie, "7", ".mkv"))
}

func TestDecodeBase64(t *testing.T) {
	assert.Equal(t, "Journal de 20h", DecodeBase64("Sm91cm5hbCBkZSAyMGg="))
	assert.Equal(t, "Télé", DecodeBase64("VMOpbMOp"))
	assert.Equal(t, "not base64!", DecodeBase64("not base64!"))
	assert.Equal(t, "", DecodeBase64(""))
}

func TestProgrammeAndNowPlaying(t *testing.T) {
	listings := []models.ShortEPG{
		{Title: "TmV3cw==", StartTimestamp: "1700000000", StopTimestamp: "1700003600"},
		{Title: "U3BvcnQ=", Start: "2023-11-14 23:13:20", End: "2023-11-15 00:13:20"},
	}
	progs := Programmes(listings, nil)
	require.Len(t, progs, 2)
	assert.Equal(t, "News", progs[0].Title)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), progs[0].Start)
	assert.Equal(t, time.Unix(1700003600, 0).UTC(), progs[1].Start)

	now, ok := NowPlaying(progs, time.Unix(1700003700, 0))
	require.True(t, ok)
	assert.Equal(t, "Sport", now.Title)

	first, ok := NowPlaying(progs, time.Unix(1600000000, 0))
	require.True(t, ok)
	assert.Equal(t, "News", first.Title)

	_, ok = NowPlaying(nil, time.Now())
	assert.False(t, ok)
}

func TestParseM3UURL(t *testing.T) {
	c, err := ParseM3UURL("http://panel.tv:2103/get.php?username=bob&password=pw&type=m3u_plus&output=ts")
	require.NoError(t, err)
	assert.Equal(t, Credentials{Host: "http://panel.tv:2103", Username: "bob", Password: "pw"}, c)

	_, err = ParseM3UURL("http://panel.tv/list.m3u")
	assert.ErrorIs(t, err, ErrNotXtreamURL)

	_, err = ParseM3UURL("file:///etc/passwd")
	assert.Error(t, err)
}
