package models

import "time"

// ShortEPG is one listing of get_short_epg. Title and Description arrive
// base64-encoded.
type ShortEPG struct {
	ID             ID     `json:"id"`
	EPGID          ID     `json:"epg_id"`
	Title          string `json:"title"`
	Lang           string `json:"lang"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Description    string `json:"description"`
	ChannelID      string `json:"channel_id"`
	StartTimestamp Flex   `json:"start_timestamp"`
	StopTimestamp  Flex   `json:"stop_timestamp"`
	StreamID       ID     `json:"stream_id"`
}

// EPGListings wraps the get_short_epg response.
type EPGListings struct {
	Listings []ShortEPG `json:"epg_listings"`
}

// Programme is a decoded ShortEPG ready for display.
type Programme struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Lang        string    `json:"lang,omitempty"`
	ChannelID   string    `json:"channel_id,omitempty"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}

// Airing reports whether t falls inside the programme window.
func (p Programme) Airing(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.Stop)
}
