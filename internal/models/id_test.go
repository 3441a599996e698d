package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	cases := map[string]ID{
		"7":     "7",
		" 7 ":   "7",
		"007":   "7",
		"7.0":   "7",
		"":      "",
		"abc":   "abc",
		"12.5":  "12.5",
		"-3":    "-3",
		"  x1 ": "x1",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeID(in), "input %q", in)
	}
}

func TestNormalizeIDsDedupes(t *testing.T) {
	got := NormalizeIDs([]string{"1", "01", "", "2", "1.0", "b"})
	assert.Equal(t, []ID{"1", "2", "b"}, got)
}

func TestIDDecodesNumbersAndStrings(t *testing.T) {
	var cats []Category
	raw := `[{"category_id":7,"category_name":"News","parent_id":0},
	         {"category_id":"8","category_name":"Sport"},
	         {"category_id":null,"category_name":"Orphan"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &cats))
	require.Len(t, cats, 3)
	assert.Equal(t, ID("7"), cats[0].ID)
	assert.Equal(t, ID("0"), cats[0].ParentID)
	assert.Equal(t, ID("8"), cats[1].ID)
	assert.Equal(t, ID(""), cats[2].ID)
}

func TestFlexAndStringList(t *testing.T) {
	var s Series
	raw := `{"name":"Show","series_id":"12","rating_5based":4.5,"backdrop_path":"http://img/x.jpg","episode_run_time":"45"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, ID("12"), s.SeriesID)
	assert.InDelta(t, 4.5, s.Rating5Based.Float(), 0.0001)
	assert.Equal(t, StringList{"http://img/x.jpg"}, s.BackdropPath)
	assert.Equal(t, 45, s.EpisodeRunTime.Int())

	var s2 Series
	require.NoError(t, json.Unmarshal([]byte(`{"backdrop_path":["a","b"]}`), &s2))
	assert.Equal(t, StringList{"a", "b"}, s2.BackdropPath)
}

func TestEpisodeInfoToleratesEmptyArray(t *testing.T) {
	var ep Episode
	raw := `{"id":"991","episode_num":3,"title":"Pilot","container_extension":"mkv","info":[]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &ep))
	assert.Equal(t, ID("991"), ep.ID)
	assert.Equal(t, 3, ep.EpisodeNum.Int())
	assert.Equal(t, EpisodeInfo{}, ep.Info)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]MediaKind{"tv": KindLive, "live": KindLive, "movies": KindMovie, "vod": KindMovie, "series": KindSeries} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("radio")
	assert.Error(t, err)
}

func TestAccountKey(t *testing.T) {
	a := Account{Host: "http://Panel.example:8080/", Username: "bob", Password: "one"}
	b := Account{Host: "http://panel.example:8080", Username: "bob", Password: "one"}
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, strings.HasPrefix(a.Key(), "http://panel.example:8080|bob|"))
	assert.NotContains(t, a.Key(), "one")

	wrong := Account{Host: "http://panel.example:8080", Username: "bob", Password: "two"}
	assert.NotEqual(t, a.Key(), wrong.Key())
	assert.True(t, a.Complete())
	assert.False(t, Account{Host: "h", Username: "u"}.Complete())
}

func TestEpisodeMapAcceptsArrayForm(t *testing.T) {
	var info SeriesInfo
	require.NoError(t, json.Unmarshal([]byte(`{"episodes":[[{"id":"1","season":2}],[],[{"id":"3"}]]}`), &info))
	assert.Len(t, info.Episodes["2"], 1)
	assert.Len(t, info.Episodes["3"], 1)

	require.NoError(t, json.Unmarshal([]byte(`{"episodes":""}`), &info))
	assert.Empty(t, info.Episodes)
}
