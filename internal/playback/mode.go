// Package playback relays upstream streams to the viewer. An Adapter owns one
// upstream connection and moves through idle → loading → playing or error;
// there is no retry and no reconnect.
package playback

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// Fixed user-facing messages.
const (
	MsgLoadFailed  = "Failed to load the stream. Please try again."
	MsgUnsupported = "Your browser does not support this video format."
)

var (
	// ErrUnsupported is returned when the client cannot play the stream format.
	ErrUnsupported = errors.New("unsupported format")
	// ErrLoadFailed wraps every upstream failure of Open or Stream.
	ErrLoadFailed = errors.New("stream load failed")
	// ErrState is returned when an operation does not fit the adapter state.
	ErrState = errors.New("playback: invalid state")
)

// Mode is how the viewer attaches to the stream.
type Mode string

const (
	// ModeMPEGTS feeds raw MPEG-TS to an MSE demuxer in the browser.
	ModeMPEGTS Mode = "mpegts"
	// ModeNative hands a progressive file to the video element.
	ModeNative Mode = "native"
	// ModeHLS serves an HLS playlist.
	ModeHLS Mode = "hls"
)

// Caps are the playback capabilities reported by the client.
type Caps struct {
	// MSE is true when the browser supports Media Source Extensions live
	// playback.
	MSE bool
}

// SelectMode picks the mode for streamURL. MPEG-TS needs MSE; without it
// SelectMode returns ErrUnsupported.
func SelectMode(streamURL string, caps Caps) (Mode, error) {
	p := streamURL
	if u, err := url.Parse(streamURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".m3u8", ".m3u":
		return ModeHLS, nil
	case ".ts", "":
		if !caps.MSE {
			return "", ErrUnsupported
		}
		return ModeMPEGTS, nil
	}
	return ModeNative, nil
}

// ContentType is the response type served for a mode when the upstream does
// not send one.
func (m Mode) ContentType() string {
	switch m {
	case ModeMPEGTS:
		return "video/mp2t"
	case ModeHLS:
		return "application/vnd.apple.mpegurl"
	}
	return "application/octet-stream"
}

// State of an Adapter.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateError:
		return "error"
	}
	return "unknown"
}
