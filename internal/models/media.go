package models

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// LiveStream is one entry of get_live_streams.
type LiveStream struct {
	Num               Flex   `json:"num"`
	Name              string `json:"name"`
	StreamType        string `json:"stream_type"`
	StreamID          ID     `json:"stream_id"`
	StreamIcon        string `json:"stream_icon"`
	EPGChannelID      string `json:"epg_channel_id"`
	Added             Flex   `json:"added"`
	CategoryID        ID     `json:"category_id"`
	CategoryIDs       []ID   `json:"category_ids,omitempty"`
	CustomSID         string `json:"custom_sid"`
	TVArchive         Flex   `json:"tv_archive"`
	DirectSource      string `json:"direct_source"`
	TVArchiveDuration Flex   `json:"tv_archive_duration"`
}

// Movie is one entry of get_vod_streams.
type Movie struct {
	Num                Flex   `json:"num"`
	Name               string `json:"name"`
	StreamType         string `json:"stream_type"`
	StreamID           ID     `json:"stream_id"`
	StreamIcon         string `json:"stream_icon"`
	Rating             Flex   `json:"rating"`
	Rating5Based       Flex   `json:"rating_5based"`
	TMDB               Flex   `json:"tmdb"`
	Trailer            string `json:"trailer"`
	Added              Flex   `json:"added"`
	IsAdult            Flex   `json:"is_adult"`
	CategoryID         ID     `json:"category_id"`
	CategoryIDs        []ID   `json:"category_ids,omitempty"`
	ContainerExtension string `json:"container_extension"`
	CustomSID          string `json:"custom_sid"`
	DirectSource       string `json:"direct_source"`
}

// Series is one entry of get_series.
type Series struct {
	Num            Flex       `json:"num"`
	Name           string     `json:"name"`
	SeriesID       ID         `json:"series_id"`
	Cover          string     `json:"cover"`
	Plot           string     `json:"plot"`
	Cast           string     `json:"cast"`
	Director       string     `json:"director"`
	Genre          string     `json:"genre"`
	ReleaseDate    string     `json:"releaseDate"`
	LastModified   Flex       `json:"last_modified"`
	Rating         Flex       `json:"rating"`
	Rating5Based   Flex       `json:"rating_5based"`
	BackdropPath   StringList `json:"backdrop_path"`
	YoutubeTrailer string     `json:"youtube_trailer"`
	TMDB           Flex       `json:"tmdb"`
	EpisodeRunTime Flex       `json:"episode_run_time"`
	CategoryID     ID         `json:"category_id"`
	CategoryIDs    []ID       `json:"category_ids,omitempty"`
}

// SeriesInfo is the payload of get_series_info: the show, its seasons and the
// episodes keyed by season label.
type SeriesInfo struct {
	Info     SeriesMeta           `json:"info"`
	Seasons  []Season             `json:"seasons"`
	Episodes EpisodeMap           `json:"episodes"`
}

// SeriesMeta is the "info" object of get_series_info.
type SeriesMeta struct {
	Name           string     `json:"name"`
	Cover          string     `json:"cover"`
	Plot           string     `json:"plot"`
	Cast           string     `json:"cast"`
	Director       string     `json:"director"`
	Genre          string     `json:"genre"`
	ReleaseDate    string     `json:"releaseDate"`
	LastModified   Flex       `json:"last_modified"`
	Rating         Flex       `json:"rating"`
	Rating5Based   Flex       `json:"rating_5based"`
	BackdropPath   StringList `json:"backdrop_path"`
	TMDB           Flex       `json:"tmdb"`
	YoutubeTrailer string     `json:"youtube_trailer"`
	EpisodeRunTime Flex       `json:"episode_run_time"`
	CategoryID     ID         `json:"category_id"`
	CategoryIDs    []ID       `json:"category_ids,omitempty"`
}

// Season is one element of the "seasons" array.
type Season struct {
	AirDate      string `json:"air_date"`
	EpisodeCount Flex   `json:"episode_count"`
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	SeasonNumber Flex   `json:"season_number"`
	Cover        string `json:"cover"`
	CoverBig     string `json:"cover_big"`
}

// Episode is one playable episode of a series.
type Episode struct {
	ID                 ID          `json:"id"`
	EpisodeNum         Flex        `json:"episode_num"`
	Title              string      `json:"title"`
	ContainerExtension string      `json:"container_extension"`
	Info               EpisodeInfo `json:"info"`
	CustomSID          string      `json:"custom_sid"`
	Added              Flex        `json:"added"`
	Season             Flex        `json:"season"`
	DirectSource       string      `json:"direct_source"`
}

// EpisodeInfo carries per-episode metadata and probe results.
type EpisodeInfo struct {
	MovieImage   string    `json:"movie_image"`
	Plot         string    `json:"plot"`
	ReleaseDate  string    `json:"releasedate"`
	Rating       Flex      `json:"rating"`
	Name         string    `json:"name"`
	DurationSecs Flex      `json:"duration_secs"`
	Duration     string    `json:"duration"`
	Video        VideoInfo `json:"video"`
	Audio        AudioInfo `json:"audio"`
	Bitrate      Flex      `json:"bitrate"`
}

// VideoInfo is the probed video stream of an episode.
type VideoInfo struct {
	Index     Flex   `json:"index"`
	CodecName string `json:"codec_name"`
	Width     Flex   `json:"width"`
	Height    Flex   `json:"height"`
	Duration  Flex   `json:"duration"`
	BitRate   Flex   `json:"bit_rate"`
}

// AudioInfo is the probed audio stream of an episode.
type AudioInfo struct {
	Index      Flex   `json:"index"`
	CodecName  string `json:"codec_name"`
	SampleRate Flex   `json:"sample_rate"`
	Channels   Flex   `json:"channels"`
	BitRate    Flex   `json:"bit_rate"`
}

// UnmarshalJSON tolerates panels that send an empty array or empty string
// instead of an object for probe data.
func (v *VideoInfo) UnmarshalJSON(b []byte) error {
	if !isObject(b) {
		*v = VideoInfo{}
		return nil
	}
	type plain VideoInfo
	return json.Unmarshal(b, (*plain)(v))
}

// UnmarshalJSON tolerates non-object probe data, see VideoInfo.
func (a *AudioInfo) UnmarshalJSON(b []byte) error {
	if !isObject(b) {
		*a = AudioInfo{}
		return nil
	}
	type plain AudioInfo
	return json.Unmarshal(b, (*plain)(a))
}

// UnmarshalJSON tolerates panels that send [] for an empty info block.
func (e *EpisodeInfo) UnmarshalJSON(b []byte) error {
	if !isObject(b) {
		*e = EpisodeInfo{}
		return nil
	}
	type plain EpisodeInfo
	return json.Unmarshal(b, (*plain)(e))
}

// EpisodeMap holds the episodes of a series keyed by season number.
type EpisodeMap map[string][]Episode

// UnmarshalJSON accepts the usual {"1":[...]} object and the array of
// per-season arrays some panels send instead. Anything else decodes empty.
func (m *EpisodeMap) UnmarshalJSON(b []byte) error {
	if isObject(b) {
		var plain map[string][]Episode
		if err := json.Unmarshal(b, &plain); err != nil {
			return err
		}
		*m = plain
		return nil
	}
	out := EpisodeMap{}
	var seasons [][]Episode
	if err := json.Unmarshal(b, &seasons); err == nil {
		for i, eps := range seasons {
			if len(eps) == 0 {
				continue
			}
			key := eps[0].Season.String()
			if key == "" {
				key = strconv.Itoa(i + 1)
			}
			out[key] = append(out[key], eps...)
		}
	}
	*m = out
	return nil
}

// StringList decodes either a JSON array of strings or a single string.
type StringList []string

// UnmarshalJSON accepts ["a","b"], "a" or null.
func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var out []string
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
		*l = out
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = StringList{s}
	return nil
}

func isObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
