package models

import "fmt"

// MediaKind identifies one of the three listing types exposed by an Xtream backend.
type MediaKind string

// Media kinds. The string values double as URL path segments in the API.
const (
	KindLive   MediaKind = "live"
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// Kinds lists every media kind in display order (TV, movies, series).
var Kinds = []MediaKind{KindLive, KindMovie, KindSeries}

// ParseKind maps a path segment to a MediaKind. "tv" and "movies" are
// accepted as aliases for the screen names used by the viewer.
func ParseKind(s string) (MediaKind, error) {
	switch s {
	case "live", "tv":
		return KindLive, nil
	case "movie", "movies", "vod":
		return KindMovie, nil
	case "series":
		return KindSeries, nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// StreamPath is the first path segment of a playback URL for the kind.
func (k MediaKind) StreamPath() string {
	return string(k)
}

// DefaultExtension is the container used when a record carries none.
func (k MediaKind) DefaultExtension() string {
	if k == KindLive {
		return "ts"
	}
	return "mp4"
}
