package xtream

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voyagen/popcornview/internal/models"
)

// DecodeBase64 decodes an EPG text field. Panels pad inconsistently, so both
// padded and raw encodings are tried. Input that is not valid base64 of
// UTF-8 text is returned unchanged.
func DecodeBase64(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		b, err := enc.DecodeString(trimmed)
		if err != nil {
			continue
		}
		if !utf8.Valid(b) {
			return s
		}
		return string(b)
	}
	return s
}

const epgLayout = "2006-01-02 15:04:05"

// Programme decodes a short EPG listing: base64 text fields are decoded and
// start/stop come from the unix timestamps, falling back to the panel's
// local "start"/"end" strings interpreted in loc (UTC when nil).
func Programme(e models.ShortEPG, loc *time.Location) models.Programme {
	if loc == nil {
		loc = time.UTC
	}
	return models.Programme{
		Title:       DecodeBase64(e.Title),
		Description: DecodeBase64(e.Description),
		Lang:        e.Lang,
		ChannelID:   e.ChannelID,
		Start:       epgTime(e.StartTimestamp, e.Start, loc),
		Stop:        epgTime(e.StopTimestamp, e.End, loc),
	}
}

// Programmes decodes every listing, preserving order.
func Programmes(in []models.ShortEPG, loc *time.Location) []models.Programme {
	out := make([]models.Programme, 0, len(in))
	for _, e := range in {
		out = append(out, Programme(e, loc))
	}
	return out
}

// NowPlaying returns the listing airing at t, or the first listing when none
// covers t. ok is false for an empty guide.
func NowPlaying(progs []models.Programme, t time.Time) (models.Programme, bool) {
	if len(progs) == 0 {
		return models.Programme{}, false
	}
	for _, p := range progs {
		if p.Airing(t) {
			return p, true
		}
	}
	return progs[0], true
}

func epgTime(ts models.Flex, fallback string, loc *time.Location) time.Time {
	if n, err := strconv.ParseInt(strings.TrimSpace(ts.String()), 10, 64); err == nil && n > 0 {
		return time.Unix(n, 0).UTC()
	}
	if t, err := time.ParseInLocation(epgLayout, strings.TrimSpace(fallback), loc); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
